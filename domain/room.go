package domain

import (
	"fmt"
	"strconv"
)

type RoomID uint64

func (id RoomID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

func ParseRoomID(s string) (RoomID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid room id %q", s)
	}
	return RoomID(v), nil
}

// Room is a persisted conversation between its members.
// Rooms are never deleted.
type Room struct {
	ID      RoomID   `json:"id"`
	Name    string   `json:"name"`
	Members []UserID `json:"members"`
}

// PairKey orders two members so that (a, b) and (b, a) share the same key.
func PairKey(a, b UserID) (UserID, UserID) {
	if a > b {
		return b, a
	}
	return a, b
}

// DirectRoomName is the name given to a room created on first contact.
func DirectRoomName(sender, receiver User) string {
	return fmt.Sprintf("%s_%s", sender.Username, receiver.Username)
}
