//go:generate go run go.uber.org/mock/mockgen -source=revocation.go -destination=../mocks/mock_revocation_repository.go -package=mocks
package repositories

import (
	"time"

	"github.com/dgraph-io/badger/v4"
)

const revokedPrefix = "revoked:"

// IRevocationRepository blacklists token ids until they would have expired anyway.
type IRevocationRepository interface {
	Revoke(jti string, expiresAt time.Time) error
	IsRevoked(jti string) (bool, error)
}

type RevocationRepository struct {
	db  *badger.DB
	now func() time.Time
}

func NewRevocationRepository(db *badger.DB) RevocationRepository {
	return RevocationRepository{db: db, now: time.Now}
}

func (r RevocationRepository) Revoke(jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(revokedPrefix+jti), nil).WithTTL(ttl))
	})
}

func (r RevocationRepository) IsRevoked(jti string) (bool, error) {
	var revoked bool
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		revoked, err = exists(txn, []byte(revokedPrefix+jti))
		return err
	})
	return revoked, err
}
