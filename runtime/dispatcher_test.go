package runtime

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/mocks"
	"context"
	stderrors "errors"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var alice = domain.UserIdentity{ID: 1, Username: "alice"}

func newDispatcher(t *testing.T) (*Dispatcher, *mocks.MockTokenValidator, *mocks.MockMessageSender, *mocks.MockIHub) {
	ctrl := gomock.NewController(t)
	validator := mocks.NewMockTokenValidator(ctrl)
	sender := mocks.NewMockMessageSender(ctrl)
	hub := mocks.NewMockIHub(ctrl)
	return NewDispatcher(validator, sender, hub, logs.GetLoggerFromLevel(slog.LevelDebug)), validator, sender, hub
}

func TestDispatcher_Message_Persists_Then_Broadcasts(t *testing.T) {
	req := require.New(t)
	dispatcher, validator, sender, hub := newDispatcher(t)

	validator.EXPECT().Authenticate(gomock.Any(), "T1").Return(alice, nil)
	gomock.InOrder(
		sender.EXPECT().
			SendMessage(gomock.Any(), alice, domain.UserID(2), "hi").
			Return(domain.Message{Sender: 1, Receiver: 2, Content: "hi"}, nil),
		hub.EXPECT().Publish(gomock.Any(), "room1", event.NewMessageBroadcast(1, 2, "hi")),
	)

	err := dispatcher.Dispatch(context.Background(), "room1", []byte(`{"token":"T1","type":"message","message":"hi","receiver":2}`))
	req.NoError(err)
}

func TestDispatcher_Broadcast_Only_Events(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected event.Outbound
	}{
		{"Typing", `{"token":"T1","type":"typing"}`, event.NewTypingBroadcast(1)},
		{"Join", `{"token":"T1","type":"join"}`, event.NewJoinBroadcast("alice")},
		{"Exit", `{"token":"T1","type":"exit"}`, event.NewExitBroadcast("alice")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			dispatcher, validator, sender, hub := newDispatcher(t)
			validator.EXPECT().Authenticate(gomock.Any(), "T1").Return(alice, nil)
			sender.EXPECT().SendMessage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			hub.EXPECT().Publish(gomock.Any(), "room2", tt.expected)

			req.NoError(dispatcher.Dispatch(context.Background(), "room2", []byte(tt.raw)))
		})
	}
}

func TestDispatcher_Failures_Are_Terminal_And_Silent(t *testing.T) {
	storeFailure := errors.StoreError{Op: "Error saving message", Err: stderrors.New("disk full")}

	tests := []struct {
		name      string
		raw       string
		authErr   error
		sendErr   error
		expected  event.Frame
		callsAuth bool
		callsSend bool
	}{
		{
			name:     "Not a JSON object",
			raw:      `hello`,
			expected: event.Frame{Type: event.TypeError, Message: "Malformed event payload."},
		},
		{
			name:     "Missing token",
			raw:      `{"type":"message","message":"hi"}`,
			expected: event.Frame{Type: event.TypeError, Message: "Token is missing."},
		},
		{
			name:      "Invalid token",
			raw:       `{"token":"bad","type":"typing"}`,
			authErr:   errors.NewAuthError(stderrors.New("signature is invalid")),
			expected:  event.Frame{Type: event.TypeUnauthorized, Message: "Invalid or expired token."},
			callsAuth: true,
		},
		{
			name:      "Unsupported type",
			raw:       `{"token":"T1","type":"dance"}`,
			expected:  event.Frame{Type: event.TypeError, Message: "Unsupported event type: dance"},
			callsAuth: true,
		},
		{
			name:      "Missing receiver",
			raw:       `{"token":"T1","type":"message","message":"hi"}`,
			expected:  event.Frame{Type: event.TypeError, Message: "Missing message or receiver."},
			callsAuth: true,
		},
		{
			name:      "Persistence failure",
			raw:       `{"token":"T1","message":"hi","receiver":"2"}`,
			sendErr:   storeFailure,
			expected:  event.Frame{Type: event.TypeError, Message: "Server error: Error saving message: disk full"},
			callsAuth: true,
			callsSend: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			dispatcher, validator, sender, hub := newDispatcher(t)
			if tt.callsAuth {
				validator.EXPECT().Authenticate(gomock.Any(), gomock.Any()).Return(alice, tt.authErr)
			}
			if tt.callsSend {
				sender.EXPECT().SendMessage(gomock.Any(), alice, domain.UserID(2), "hi").Return(domain.Message{}, tt.sendErr)
			}
			hub.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

			err := dispatcher.Dispatch(context.Background(), "room1", []byte(tt.raw))
			req.Error(err)
			req.Equal(tt.expected, event.FrameFor(err))
		})
	}
}
