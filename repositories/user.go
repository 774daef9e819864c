//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	userSeqKey      = "user:seq"
	userIDPrefix    = "user:id:"
	userNamePrefix  = "user:name:"
	userEmailPrefix = "user:email:"
)

type IUserRepository interface {
	CreateUser(username, email, passwordHash string) (domain.User, error)
	GetUserByID(id domain.UserID) (domain.User, error)
	GetUserByEmail(email string) (domain.User, error)
	ListUsers() ([]domain.User, error)
}

type UserRepository struct {
	db  *badger.DB
	now func() time.Time
}

func NewUserRepository(db *badger.DB) UserRepository {
	return UserRepository{db: db, now: time.Now}
}

func userKey(id domain.UserID) []byte {
	return []byte(fmt.Sprintf("%s%020d", userIDPrefix, uint64(id)))
}

func userNameKey(username string) []byte {
	return []byte(userNamePrefix + strings.ToLower(username))
}

func userEmailKey(email string) []byte {
	return []byte(userEmailPrefix + strings.ToLower(email))
}

// CreateUser persists a new account and its unique username and email indexes.
// Usernames and emails are compared case-insensitively.
func (u UserRepository) CreateUser(username, email, passwordHash string) (domain.User, error) {
	var user domain.User
	err := update(u.db, func(txn *badger.Txn) error {
		taken, err := exists(txn, userNameKey(username))
		if err != nil {
			return err
		}
		if taken {
			return errors.ErrUsernameTaken
		}
		if taken, err = exists(txn, userEmailKey(email)); err != nil {
			return err
		}
		if taken {
			return errors.ErrEmailInUse
		}

		id, err := nextID(txn, []byte(userSeqKey))
		if err != nil {
			return err
		}
		user = domain.User{
			ID:           domain.UserID(id),
			Username:     username,
			Email:        email,
			PasswordHash: passwordHash,
			CreatedAt:    u.now().UTC(),
		}
		if err = setJSON(txn, userKey(user.ID), user); err != nil {
			return err
		}
		idValue := []byte(user.ID.String())
		if err = txn.Set(userNameKey(username), idValue); err != nil {
			return err
		}
		return txn.Set(userEmailKey(email), idValue)
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (u UserRepository) GetUserByID(id domain.UserID) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = loadUser(txn, id)
		return err
	})
	return user, err
}

// GetUserByEmail resolves the email index then loads the user record.
func (u UserRepository) GetUserByEmail(email string) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userEmailKey(email))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		var raw []byte
		if raw, err = item.ValueCopy(nil); err != nil {
			return err
		}
		id, err := strconv.ParseUint(string(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("corrupted email index for %q: %w", email, err)
		}
		user, err = loadUser(txn, domain.UserID(id))
		return err
	})
	return user, err
}

// ListUsers returns every account ordered by id.
func (u UserRepository) ListUsers() ([]domain.User, error) {
	var users []domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(userIDPrefix), false, func(item *badger.Item) error {
			var user domain.User
			if err := item.Value(func(val []byte) error {
				return unmarshal(val, &user)
			}); err != nil {
				return err
			}
			users = append(users, user)
			return nil
		})
	})
	return users, err
}

func loadUser(txn *badger.Txn, id domain.UserID) (domain.User, error) {
	var user domain.User
	err := getJSON(txn, userKey(id), &user)
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrUserNotFound
	}
	return user, err
}
