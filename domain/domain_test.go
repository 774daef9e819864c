package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    UserID
		wantErr bool
	}{
		{name: "number", raw: `2`, want: 2},
		{name: "quoted number", raw: `"2"`, want: 2},
		{name: "null", raw: `null`, want: 0},
		{name: "empty string", raw: `""`, want: 0},
		{name: "word", raw: `"bob"`, wantErr: true},
		{name: "negative", raw: `-1`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			var id UserID
			err := json.Unmarshal([]byte(tt.raw), &id)
			if tt.wantErr {
				req.Error(err)
				return
			}
			req.NoError(err)
			req.Equal(tt.want, id)
		})
	}
}

func TestParseRoomID_Rejects_Zero_And_Garbage(t *testing.T) {
	req := require.New(t)
	id, err := ParseRoomID("12")
	req.NoError(err)
	req.Equal(RoomID(12), id)

	_, err = ParseRoomID("0")
	req.Error(err)
	_, err = ParseRoomID("lobby")
	req.Error(err)
}

func TestDirectRooms(t *testing.T) {
	req := require.New(t)
	low, high := PairKey(9, 4)
	req.Equal(UserID(4), low)
	req.Equal(UserID(9), high)

	alice := User{ID: 1, Username: "alice"}
	bob := User{ID: 2, Username: "bob"}
	req.Equal("alice_bob", DirectRoomName(alice, bob))
	req.Equal("bob_alice", DirectRoomName(bob, alice))
	req.Equal(UserIdentity{ID: 1, Username: "alice"}, alice.Identity())
}
