package repositories

import (
	"chat-relay/domain"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedUsers(t *testing.T, db *badger.DB, names ...string) []domain.User {
	t.Helper()
	repository := NewUserRepository(db)
	users := make([]domain.User, 0, len(names))
	for _, name := range names {
		user, err := repository.CreateUser(name, name+"@example.com", "hash")
		require.NoError(t, err)
		users = append(users, user)
	}
	return users
}
