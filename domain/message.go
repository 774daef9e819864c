// Package domain contains core concepts of the chat system.
// Messages are immutable once appended to a room.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat record.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Room      RoomID    `json:"room"`
	Sender    UserID    `json:"sender"`
	Receiver  UserID    `json:"receiver"`
	Content   string    `json:"content"`
	Lang      string    `json:"lang,omitempty"`
	CreatedAt time.Time `json:"timestamp"`
}
