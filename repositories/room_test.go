package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func Test_GetOrCreate_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	db := openDB(t)
	users := seedUsers(t, db, "alice", "bob")
	repository := NewRoomRepository(db)

	first, err := repository.GetOrCreate(users[0].ID, users[1].ID)
	req.NoError(err)
	req.Equal("alice_bob", first.Name)
	req.ElementsMatch([]domain.UserID{users[0].ID, users[1].ID}, first.Members)

	second, err := repository.GetOrCreate(users[0].ID, users[1].ID)
	req.NoError(err)
	req.Equal(first.ID, second.ID)

	reversed, err := repository.GetOrCreate(users[1].ID, users[0].ID)
	req.NoError(err)
	req.Equal(first.ID, reversed.ID)

	rooms, err := repository.List()
	req.NoError(err)
	req.Len(rooms, 1)
}

func Test_GetOrCreate_Finds_Room_Created_Elsewhere(t *testing.T) {
	req := require.New(t)
	db := openDB(t)
	users := seedUsers(t, db, "alice", "bob", "carol")
	repository := NewRoomRepository(db)

	shared, err := repository.Create("project", []domain.UserID{users[0].ID, users[1].ID, users[2].ID})
	req.NoError(err)

	room, err := repository.GetOrCreate(users[1].ID, users[2].ID)
	req.NoError(err)
	req.Equal(shared.ID, room.ID)
}

func Test_GetOrCreate_Renames_On_Name_Clash(t *testing.T) {
	req := require.New(t)
	db := openDB(t)
	users := seedUsers(t, db, "alice", "bob")
	repository := NewRoomRepository(db)

	_, err := repository.Create("alice_bob", []domain.UserID{users[0].ID})
	req.NoError(err)

	room, err := repository.GetOrCreate(users[0].ID, users[1].ID)
	req.NoError(err)
	req.Equal("alice_bob_2", room.Name)
}

func Test_GetOrCreate_Unknown_User(t *testing.T) {
	req := require.New(t)
	db := openDB(t)
	users := seedUsers(t, db, "alice")

	_, err := NewRoomRepository(db).GetOrCreate(users[0].ID, 99)
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func Test_GetOrCreate_Concurrent_First_Contact_Creates_One_Room(t *testing.T) {
	req := require.New(t)
	db := openDB(t)
	users := seedUsers(t, db, "alice", "bob")
	repository := NewRoomRepository(db)

	const contenders = 8
	ids := make([]domain.RoomID, contenders)
	errs := make([]error, contenders)
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := users[0].ID, users[1].ID
			if i%2 == 1 {
				a, b = b, a
			}
			room, err := repository.GetOrCreate(a, b)
			ids[i], errs[i] = room.ID, err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		req.NoError(err)
	}
	req.Len(lo.Uniq(ids), 1)

	rooms, err := repository.List()
	req.NoError(err)
	req.Len(rooms, 1)
}

func Test_Create_Room(t *testing.T) {
	req := require.New(t)
	db := openDB(t)
	users := seedUsers(t, db, "alice", "bob")
	repository := NewRoomRepository(db)

	room, err := repository.Create("general", []domain.UserID{users[0].ID, users[0].ID})
	req.NoError(err)
	req.Equal([]domain.UserID{users[0].ID}, room.Members)

	_, err = repository.Create("general", []domain.UserID{users[1].ID})
	req.ErrorIs(err, errors.ErrRoomNameTaken)

	_, err = repository.Create("ghosts", []domain.UserID{77})
	req.ErrorIs(err, errors.ErrUserNotFound)

	fetched, err := repository.GetByID(room.ID)
	req.NoError(err)
	req.Equal(room, fetched)

	_, err = repository.GetByID(123)
	req.ErrorIs(err, errors.ErrRoomNotFound)
}

func Test_List_Rooms_For_User(t *testing.T) {
	req := require.New(t)
	db := openDB(t)
	users := seedUsers(t, db, "alice", "bob", "carol")
	repository := NewRoomRepository(db)

	ab, err := repository.GetOrCreate(users[0].ID, users[1].ID)
	req.NoError(err)
	bc, err := repository.GetOrCreate(users[1].ID, users[2].ID)
	req.NoError(err)

	rooms, err := repository.ListForUser(users[1].ID)
	req.NoError(err)
	req.Equal([]domain.RoomID{ab.ID, bc.ID}, lo.Map(rooms, func(r domain.Room, _ int) domain.RoomID { return r.ID }))

	rooms, err = repository.ListForUser(users[0].ID)
	req.NoError(err)
	req.Len(rooms, 1)
}
