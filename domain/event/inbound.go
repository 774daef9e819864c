package event

import (
	"bytes"
	"encoding/json"

	"chat-relay/domain"
	"chat-relay/errors"
)

const (
	msgMalformed       = "Malformed event payload."
	msgTokenMissing    = "Token is missing."
	msgMissingFields   = "Missing message or receiver."
	msgInvalidReceiver = "Invalid receiver."
	msgUnsupportedType = "Unsupported event type: %s"
)

// Envelope is the loosely typed shape of an inbound frame, before the
// bearer token has been checked.
type Envelope struct {
	Token    string          `json:"token"`
	Type     Type            `json:"type"`
	Message  string          `json:"message"`
	Receiver json.RawMessage `json:"receiver"`
}

// Inbound is a decoded client event with its required fields present.
type Inbound interface {
	Kind() Type
}

type MessageEvent struct {
	Message  string
	Receiver domain.UserID
}

func (MessageEvent) Kind() Type { return TypeMessage }

type TypingEvent struct{}

func (TypingEvent) Kind() Type { return TypeTyping }

type JoinEvent struct{}

func (JoinEvent) Kind() Type { return TypeJoin }

type ExitEvent struct{}

func (ExitEvent) Kind() Type { return TypeExit }

// Parse decodes raw bytes into an Envelope and requires a token.
// A missing type is read as a message event.
func Parse(raw []byte) (Envelope, error) {
	var env Envelope
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Envelope{}, errors.NewValidationError(msgMalformed)
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Envelope{}, errors.NewValidationError(msgMalformed)
	}
	if env.Token == "" {
		return Envelope{}, errors.NewValidationError(msgTokenMissing)
	}
	if env.Type == "" {
		env.Type = TypeMessage
	}
	return env, nil
}

// Resolve turns the envelope into its typed variant, checking the fields
// each variant requires.
func (e Envelope) Resolve() (Inbound, error) {
	switch e.Type {
	case TypeMessage:
		if e.Message == "" || isAbsent(e.Receiver) {
			return nil, errors.NewValidationError(msgMissingFields)
		}
		var receiver domain.UserID
		if err := json.Unmarshal(e.Receiver, &receiver); err != nil {
			return nil, errors.NewValidationError(msgInvalidReceiver)
		}
		if receiver == 0 {
			return nil, errors.NewValidationError(msgMissingFields)
		}
		return MessageEvent{Message: e.Message, Receiver: receiver}, nil
	case TypeTyping:
		return TypingEvent{}, nil
	case TypeJoin:
		return JoinEvent{}, nil
	case TypeExit:
		return ExitEvent{}, nil
	default:
		return nil, errors.NewValidationError(msgUnsupportedType, e.Type)
	}
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) ||
		bytes.Equal(trimmed, []byte(`""`)) || bytes.Equal(trimmed, []byte("0"))
}
