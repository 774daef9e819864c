package repositories

import (
	"fmt"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func TestInspectMapper_Describes_Records(t *testing.T) {
	req := require.New(t)
	db := openDB(t)
	users := seedUsers(t, db, "alice", "bob")
	room, err := NewRoomRepository(db).GetOrCreate(users[0].ID, users[1].ID)
	req.NoError(err)

	var rows []string
	req.NoError(db.View(func(txn *badger.Txn) error {
		for _, prefix := range InspectPrefixes {
			err := scanPrefix(txn, []byte(prefix), false, func(item *badger.Item) error {
				return item.Value(func(val []byte) error {
					row := InspectMapper(string(item.Key()), val)
					rows = append(rows, row.Type+" "+row.Detail)
					return nil
				})
			})
			if err != nil {
				return err
			}
		}
		return nil
	}))

	req.Equal([]string{
		"USER alice <alice@example.com>",
		"USER bob <bob@example.com>",
		fmt.Sprintf("ROOM alice_bob members=%v", room.Members),
	}, rows)
}
