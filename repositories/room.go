//go:generate go run go.uber.org/mock/mockgen -source=room.go -destination=../mocks/mock_room_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	stderrors "errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

const (
	roomSeqKey       = "room:seq"
	roomIDPrefix     = "room:id:"
	roomNamePrefix   = "room:name:"
	roomMemberPrefix = "room:member:"
	roomPairPrefix   = "room:pair:"
)

type IRoomRepository interface {
	GetOrCreate(a, b domain.UserID) (domain.Room, error)
	Create(name string, members []domain.UserID) (domain.Room, error)
	GetByID(id domain.RoomID) (domain.Room, error)
	List() ([]domain.Room, error)
	ListForUser(userID domain.UserID) ([]domain.Room, error)
}

type RoomRepository struct {
	db *badger.DB
}

func NewRoomRepository(db *badger.DB) RoomRepository {
	return RoomRepository{db: db}
}

func roomKey(id domain.RoomID) []byte {
	return []byte(fmt.Sprintf("%s%020d", roomIDPrefix, uint64(id)))
}

func roomNameKey(name string) []byte {
	return []byte(roomNamePrefix + name)
}

func memberPrefix(userID domain.UserID) []byte {
	return []byte(fmt.Sprintf("%s%020d:", roomMemberPrefix, uint64(userID)))
}

func memberKey(userID domain.UserID, roomID domain.RoomID) []byte {
	return []byte(fmt.Sprintf("%s%020d", memberPrefix(userID), uint64(roomID)))
}

func pairKey(a, b domain.UserID) []byte {
	low, high := domain.PairKey(a, b)
	return []byte(fmt.Sprintf("%s%020d:%020d", roomPairPrefix, uint64(low), uint64(high)))
}

// GetOrCreate returns the room shared by a and b, creating "<a>_<b>" on first contact.
// Lookup and creation happen in one transaction and the pair index is written
// alongside the room, so two concurrent first contacts cannot both commit:
// the loser is replayed and finds the winner's room.
func (r RoomRepository) GetOrCreate(a, b domain.UserID) (domain.Room, error) {
	var room domain.Room
	err := update(r.db, func(txn *badger.Txn) error {
		sender, err := loadUser(txn, a)
		if err != nil {
			return err
		}
		receiver, err := loadUser(txn, b)
		if err != nil {
			return err
		}

		if room, err = roomByPair(txn, a, b); err == nil {
			return nil
		} else if !stderrors.Is(err, errors.ErrRoomNotFound) {
			return err
		}

		if room, err = roomBySharedMembership(txn, a, b); err == nil {
			return txn.Set(pairKey(a, b), []byte(room.ID.String()))
		} else if !stderrors.Is(err, errors.ErrRoomNotFound) {
			return err
		}

		room, err = createRoom(txn, domain.DirectRoomName(sender, receiver), []domain.UserID{a, b}, true)
		if err != nil {
			return err
		}
		return txn.Set(pairKey(a, b), []byte(room.ID.String()))
	})
	if err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

// Create persists a named room. Every member must be a registered user.
func (r RoomRepository) Create(name string, members []domain.UserID) (domain.Room, error) {
	var room domain.Room
	err := update(r.db, func(txn *badger.Txn) error {
		for _, member := range members {
			if _, err := loadUser(txn, member); err != nil {
				return err
			}
		}
		var err error
		room, err = createRoom(txn, name, members, false)
		return err
	})
	if err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (r RoomRepository) GetByID(id domain.RoomID) (domain.Room, error) {
	var room domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		room, err = loadRoom(txn, id)
		return err
	})
	return room, err
}

// List returns every room ordered by id.
func (r RoomRepository) List() ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(roomIDPrefix), false, func(item *badger.Item) error {
			var room domain.Room
			if err := item.Value(func(val []byte) error {
				return unmarshal(val, &room)
			}); err != nil {
				return err
			}
			rooms = append(rooms, room)
			return nil
		})
	})
	return rooms, err
}

// ListForUser returns the rooms userID belongs to, ordered by id.
func (r RoomRepository) ListForUser(userID domain.UserID) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		ids, err := roomsOf(txn, userID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			room, err := loadRoom(txn, id)
			if err != nil {
				return err
			}
			rooms = append(rooms, room)
		}
		return nil
	})
	return rooms, err
}

func createRoom(txn *badger.Txn, name string, members []domain.UserID, renameOnClash bool) (domain.Room, error) {
	id, err := nextID(txn, []byte(roomSeqKey))
	if err != nil {
		return domain.Room{}, err
	}
	room := domain.Room{ID: domain.RoomID(id), Name: name, Members: lo.Uniq(members)}

	taken, err := exists(txn, roomNameKey(room.Name))
	if err != nil {
		return domain.Room{}, err
	}
	if taken {
		if !renameOnClash {
			return domain.Room{}, errors.ErrRoomNameTaken
		}
		room.Name = fmt.Sprintf("%s_%d", name, id)
	}

	if err = setJSON(txn, roomKey(room.ID), room); err != nil {
		return domain.Room{}, err
	}
	if err = txn.Set(roomNameKey(room.Name), []byte(room.ID.String())); err != nil {
		return domain.Room{}, err
	}
	for _, member := range room.Members {
		if err = txn.Set(memberKey(member, room.ID), nil); err != nil {
			return domain.Room{}, err
		}
	}
	return room, nil
}

func loadRoom(txn *badger.Txn, id domain.RoomID) (domain.Room, error) {
	var room domain.Room
	err := getJSON(txn, roomKey(id), &room)
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Room{}, errors.ErrRoomNotFound
	}
	return room, err
}

func roomByPair(txn *badger.Txn, a, b domain.UserID) (domain.Room, error) {
	item, err := txn.Get(pairKey(a, b))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Room{}, errors.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return domain.Room{}, err
	}
	id, err := domain.ParseRoomID(string(raw))
	if err != nil {
		return domain.Room{}, err
	}
	return loadRoom(txn, id)
}

// roomBySharedMembership finds the lowest id room a belongs to that also has b.
func roomBySharedMembership(txn *badger.Txn, a, b domain.UserID) (domain.Room, error) {
	ids, err := roomsOf(txn, a)
	if err != nil {
		return domain.Room{}, err
	}
	for _, id := range ids {
		shared, err := exists(txn, memberKey(b, id))
		if err != nil {
			return domain.Room{}, err
		}
		if shared {
			return loadRoom(txn, id)
		}
	}
	return domain.Room{}, errors.ErrRoomNotFound
}

func roomsOf(txn *badger.Txn, userID domain.UserID) ([]domain.RoomID, error) {
	prefix := memberPrefix(userID)
	var ids []domain.RoomID
	err := scanPrefix(txn, prefix, true, func(item *badger.Item) error {
		id, err := strconv.ParseUint(string(item.Key()[len(prefix):]), 10, 64)
		if err != nil {
			return err
		}
		ids = append(ids, domain.RoomID(id))
		return nil
	})
	return ids, err
}
