package repositories

import (
	"chat-relay/domain"
	"fmt"
	"strings"

	"github.com/mama165/sdk-go/database"
)

// InspectPrefixes lists the record families worth dumping, index keys excluded.
var InspectPrefixes = []string{userIDPrefix, roomIDPrefix, "msg:", revokedPrefix}

// InspectMapper renders a stored record for the badger inspector and the
// inspect command. Unknown keys fall back to the raw mapper.
func InspectMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	switch {
	case strings.HasPrefix(key, userIDPrefix):
		var user domain.User
		if err := unmarshal(val, &user); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Type = "USER"
		row.Detail = fmt.Sprintf("%s <%s>", user.Username, user.Email)
	case strings.HasPrefix(key, roomIDPrefix):
		var room domain.Room
		if err := unmarshal(val, &room); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Type = "ROOM"
		row.Detail = fmt.Sprintf("%s members=%v", room.Name, room.Members)
	case strings.HasPrefix(key, "msg:"):
		var message domain.Message
		if err := unmarshal(val, &message); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Type = "MESSAGE"
		row.Detail = fmt.Sprintf("%d -> %d: %s", message.Sender, message.Receiver, message.Content)
	case strings.HasPrefix(key, revokedPrefix):
		row.Type = "REVOKED"
		row.Detail = strings.TrimPrefix(key, revokedPrefix)
	}
	return row
}
