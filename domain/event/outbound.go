package event

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"chat-relay/domain"
	"chat-relay/errors"
)

// Outbound is a frame written to a connection.
type Outbound interface {
	Kind() Type
}

type MessageBroadcast struct {
	Type     Type          `json:"type"`
	Message  string        `json:"message"`
	Sender   domain.UserID `json:"sender"`
	Receiver domain.UserID `json:"receiver"`
}

func (m MessageBroadcast) Kind() Type { return m.Type }

type TypingBroadcast struct {
	Type   Type          `json:"type"`
	Sender domain.UserID `json:"sender"`
}

func (t TypingBroadcast) Kind() Type { return t.Type }

// PresenceBroadcast announces a join or an exit.
type PresenceBroadcast struct {
	Type     Type   `json:"type"`
	Username string `json:"username"`
}

func (p PresenceBroadcast) Kind() Type { return p.Type }

// Frame is the diagnostic sent right before a connection is closed.
type Frame struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

func (f Frame) Kind() Type { return f.Type }

func NewMessageBroadcast(sender, receiver domain.UserID, message string) MessageBroadcast {
	return MessageBroadcast{Type: TypeMessage, Message: message, Sender: sender, Receiver: receiver}
}

func NewTypingBroadcast(sender domain.UserID) TypingBroadcast {
	return TypingBroadcast{Type: TypeTyping, Sender: sender}
}

func NewJoinBroadcast(username string) PresenceBroadcast {
	return PresenceBroadcast{Type: TypeJoin, Username: username}
}

func NewExitBroadcast(username string) PresenceBroadcast {
	return PresenceBroadcast{Type: TypeExit, Username: username}
}

// FrameFor maps a processing failure to the single diagnostic frame the
// client receives before its connection closes.
func FrameFor(err error) Frame {
	var validationErr errors.ValidationError
	if stderrors.As(err, &validationErr) {
		return Frame{Type: TypeError, Message: validationErr.Message}
	}
	var authErr errors.AuthError
	if stderrors.As(err, &authErr) {
		return Frame{Type: TypeUnauthorized, Message: authErr.Message}
	}
	return Frame{Type: TypeError, Message: fmt.Sprintf("Server error: %v", err)}
}

func Encode(o Outbound) ([]byte, error) {
	return json.Marshal(o)
}
