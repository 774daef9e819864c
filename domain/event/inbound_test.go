package event

import (
	"testing"

	"chat-relay/domain"
	"chat-relay/errors"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
		want    Type
	}{
		{"valid message", `{"token":"t","type":"message","message":"hi","receiver":2}`, "", TypeMessage},
		{"missing type defaults to message", `{"token":"t","message":"hi","receiver":2}`, "", TypeMessage},
		{"typing", `{"token":"t","type":"typing"}`, "", TypeTyping},
		{"missing token", `{"type":"message","message":"hi"}`, "Token is missing.", ""},
		{"empty token", `{"token":"","type":"join"}`, "Token is missing.", ""},
		{"not json", `hello`, "Malformed event payload.", ""},
		{"json array", `[1,2]`, "Malformed event payload.", ""},
		{"empty", ``, "Malformed event payload.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			env, err := Parse([]byte(tt.raw))
			if tt.wantErr != "" {
				req.Error(err)
				req.IsType(errors.ValidationError{}, err)
				req.Equal(tt.wantErr, err.Error())
				return
			}
			req.NoError(err)
			req.Equal(tt.want, env.Type)
		})
	}
}

func TestEnvelope_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Inbound
		wantErr string
	}{
		{"message with numeric receiver", `{"token":"t","type":"message","message":"hi","receiver":2}`,
			MessageEvent{Message: "hi", Receiver: domain.UserID(2)}, ""},
		{"message with quoted receiver", `{"token":"t","type":"message","message":"hi","receiver":"7"}`,
			MessageEvent{Message: "hi", Receiver: domain.UserID(7)}, ""},
		{"message without receiver", `{"token":"t","type":"message","message":"hi"}`, nil, "Missing message or receiver."},
		{"message without content", `{"token":"t","type":"message","receiver":2}`, nil, "Missing message or receiver."},
		{"message with empty content", `{"token":"t","type":"message","message":"","receiver":2}`, nil, "Missing message or receiver."},
		{"message with garbage receiver", `{"token":"t","type":"message","message":"hi","receiver":"bob"}`, nil, "Invalid receiver."},
		{"typing", `{"token":"t","type":"typing"}`, TypingEvent{}, ""},
		{"join", `{"token":"t","type":"join"}`, JoinEvent{}, ""},
		{"exit", `{"token":"t","type":"exit"}`, ExitEvent{}, ""},
		{"unsupported", `{"token":"t","type":"dance"}`, nil, "Unsupported event type: dance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			env, err := Parse([]byte(tt.raw))
			req.NoError(err)

			got, err := env.Resolve()
			if tt.wantErr != "" {
				req.EqualError(err, tt.wantErr)
				return
			}
			req.NoError(err)
			req.Equal(tt.want, got)
		})
	}
}
