package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UserID is the numeric identity of a registered account.
type UserID uint64

// UnmarshalJSON accepts both 2 and "2".
func (id *UserID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*id = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
		if raw == "" {
			*id = 0
			return nil
		}
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %s", string(data))
	}
	*id = UserID(v)
	return nil
}

func (id UserID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

func ParseUserID(s string) (UserID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	return UserID(v), nil
}

type User struct {
	ID           UserID    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserIdentity is what the messaging core knows about the author of an event.
type UserIdentity struct {
	ID       UserID
	Username string
}

func (u User) Identity() UserIdentity {
	return UserIdentity{ID: u.ID, Username: u.Username}
}
