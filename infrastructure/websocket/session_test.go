package websocket

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/runtime"
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	mu     sync.Mutex
	tokens map[string]domain.UserIdentity
}

func (v *stubValidator) Authenticate(_ context.Context, token string) (domain.UserIdentity, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	identity, ok := v.tokens[token]
	if !ok {
		return domain.UserIdentity{}, errors.NewAuthError(stderrors.New("unknown token"))
	}
	return identity, nil
}

func (v *stubValidator) revoke(token string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.tokens, token)
}

type stubSender struct {
	mu       sync.Mutex
	messages []domain.Message
	err      error
}

func (s *stubSender) SendMessage(_ context.Context, sender domain.UserIdentity, receiver domain.UserID, content string) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.Message{}, s.err
	}
	message := domain.Message{ID: uuid.New(), Room: 1, Sender: sender.ID, Receiver: receiver, Content: content}
	s.messages = append(s.messages, message)
	return message, nil
}

func (s *stubSender) stored() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.messages...)
}

type fixture struct {
	server    *httptest.Server
	hub       *runtime.Hub
	validator *stubValidator
	sender    *stubSender
}

func newFixture(t *testing.T) *fixture {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	hub := runtime.NewHub(time.Second, log)
	validator := &stubValidator{tokens: map[string]domain.UserIdentity{
		"T1": {ID: 1, Username: "alice"},
		"T2": {ID: 2, Username: "bob"},
	}}
	sender := &stubSender{}
	dispatcher := runtime.NewDispatcher(validator, sender, hub, log)

	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{BufferSize: 16, WriteTimeout: time.Second, PongTimeout: 5 * time.Second, MaxMessageSize: 4096}
	handler := NewHandler(ctx, hub, dispatcher, observability.NewMonitor(log), cfg, nil, log)
	mux := http.NewServeMux()
	handler.Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		cancel()
		server.Close()
	})
	return &fixture{server: server, hub: hub, validator: validator, sender: sender}
}

func (f *fixture) dial(t *testing.T, room string) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/chat/" + room + "/"
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *gws.Conn, payload string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(gws.TextMessage, []byte(payload)))
}

func readFrame(t *testing.T, conn *gws.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame map[string]any
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame
}

func requireClosed(t *testing.T, conn *gws.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	var closeErr *gws.CloseError
	require.ErrorAs(t, err, &closeErr)
}

func TestSession_Message_Reaches_Everyone_In_The_Room(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.dial(t, "room1")
	bob := f.dial(t, "room1")

	send(t, alice, `{"token":"T1","type":"message","message":"hi","receiver":2}`)

	expected := map[string]any{"type": "message", "message": "hi", "sender": float64(1), "receiver": float64(2)}
	req.Equal(expected, readFrame(t, alice))
	req.Equal(expected, readFrame(t, bob))

	stored := f.sender.stored()
	req.Len(stored, 1)
	req.Equal(domain.UserID(1), stored[0].Sender)
	req.Equal(domain.UserID(2), stored[0].Receiver)
}

func TestSession_Typing_Is_Broadcast_Without_Persistence(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.dial(t, "room2")
	bob := f.dial(t, "room2")

	send(t, bob, `{"token":"T2","type":"typing"}`)

	expected := map[string]any{"type": "typing", "sender": float64(2)}
	req.Equal(expected, readFrame(t, alice))
	req.Equal(expected, readFrame(t, bob))
	req.Empty(f.sender.stored())
}

func TestSession_Join_And_Exit_Announce_Username(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.dial(t, "lobby")

	send(t, alice, `{"token":"T1","type":"join"}`)
	req.Equal(map[string]any{"type": "join", "username": "alice"}, readFrame(t, alice))

	send(t, alice, `{"token":"T1","type":"exit"}`)
	req.Equal(map[string]any{"type": "exit", "username": "alice"}, readFrame(t, alice))
}

func TestSession_Failures_Send_One_Frame_Then_Close(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected map[string]any
	}{
		{
			name:     "Missing token",
			payload:  `{"type":"message","message":"hi"}`,
			expected: map[string]any{"type": "error", "message": "Token is missing."},
		},
		{
			name:     "Invalid token",
			payload:  `{"token":"forged","type":"typing"}`,
			expected: map[string]any{"type": "unauthorized", "message": "Invalid or expired token."},
		},
		{
			name:     "Unsupported type",
			payload:  `{"token":"T1","type":"dance"}`,
			expected: map[string]any{"type": "error", "message": "Unsupported event type: dance"},
		},
		{
			name:     "Missing receiver",
			payload:  `{"token":"T1","type":"message","message":"hi"}`,
			expected: map[string]any{"type": "error", "message": "Missing message or receiver."},
		},
		{
			name:     "Not JSON",
			payload:  `hello there`,
			expected: map[string]any{"type": "error", "message": "Malformed event payload."},
		},
		{
			name:     "Frame over the size limit",
			payload:  `{"token":"T1","type":"message","receiver":2,"message":"` + strings.Repeat("a", 5000) + `"}`,
			expected: map[string]any{"type": "error", "message": "Message too large."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			f := newFixture(t)
			client := f.dial(t, "room1")
			witness := f.dial(t, "room1")

			send(t, client, tt.payload)

			req.Equal(tt.expected, readFrame(t, client))
			requireClosed(t, client)

			req.Eventually(func() bool { return f.hub.Stats().Sessions == 1 }, 2*time.Second, 10*time.Millisecond)
			req.NoError(witness.SetReadDeadline(time.Now().Add(100 * time.Millisecond)))
			_, _, err := witness.ReadMessage()
			req.Error(err, "no broadcast is expected after a failure")
		})
	}
}

func TestSession_Persistence_Failure_Closes_Without_Broadcast(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.sender.err = errors.StoreError{Op: "Error saving message", Err: stderrors.New("receiver 9: user not found")}
	alice := f.dial(t, "room1")

	send(t, alice, `{"token":"T1","type":"message","message":"hi","receiver":9}`)

	req.Equal(map[string]any{
		"type":    "error",
		"message": "Server error: Error saving message: receiver 9: user not found",
	}, readFrame(t, alice))
	requireClosed(t, alice)
}

func TestSession_Token_Is_Checked_On_Every_Event(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.dial(t, "room1")

	send(t, alice, `{"token":"T1","type":"typing"}`)
	req.Equal("typing", readFrame(t, alice)["type"])

	f.validator.revoke("T1")
	send(t, alice, `{"token":"T1","type":"typing"}`)
	req.Equal(map[string]any{"type": "unauthorized", "message": "Invalid or expired token."}, readFrame(t, alice))
	requireClosed(t, alice)
}

func TestSession_Disconnect_Leaves_The_Room(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.dial(t, "room1")
	bob := f.dial(t, "room1")
	req.Equal(2, f.hub.Stats().Sessions)

	req.NoError(bob.WriteMessage(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, "")))
	req.Eventually(func() bool { return f.hub.Stats().Sessions == 1 }, 2*time.Second, 10*time.Millisecond)

	send(t, alice, `{"token":"T1","type":"typing"}`)
	req.Equal("typing", readFrame(t, alice)["type"])
	req.Equal(uint64(1), f.hub.Stats().Delivered)
}

func TestSession_Rooms_Are_Isolated(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.dial(t, "room1")
	bob := f.dial(t, "room2")

	send(t, alice, `{"token":"T1","type":"typing"}`)
	req.Equal("typing", readFrame(t, alice)["type"])

	req.NoError(bob.SetReadDeadline(time.Now().Add(100 * time.Millisecond)))
	_, _, err := bob.ReadMessage()
	req.Error(err)
}

func TestOriginPolicy(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	policy := newOriginPolicy([]string{"https://Chat.Example.com", "not a url"}, log)

	allowed := httptest.NewRequest(http.MethodGet, "/ws/chat/room1/", nil)
	allowed.Header.Set("Origin", "https://chat.example.com")
	req.True(policy.allowed(allowed))

	blocked := httptest.NewRequest(http.MethodGet, "/ws/chat/room1/", nil)
	blocked.Header.Set("Origin", "https://evil.example.com")
	req.False(policy.allowed(blocked))

	req.True(policy.allowed(httptest.NewRequest(http.MethodGet, "/ws/chat/room1/", nil)))
	req.True(newOriginPolicy(nil, log).allowed(blocked))
	req.True(newOriginPolicy([]string{" ", ""}, log).allowed(blocked))
	req.True(newOriginPolicy([]string{"chat.example.com", "*"}, log).allowed(blocked))

	invalidOnly := newOriginPolicy([]string{"chat.example.com"}, log)
	req.False(invalidOnly.allowed(blocked))
	req.False(invalidOnly.allowed(allowed))
	req.True(invalidOnly.allowed(httptest.NewRequest(http.MethodGet, "/ws/chat/room1/", nil)))
}
