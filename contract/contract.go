//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging during supervision, so workers don't need to name themselves.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives outbound events. A live connection is the usual sink.
type EventSink interface {
	Consume(ctx context.Context, e event.Outbound) error
}

type HubStats struct {
	Rooms     int    `json:"rooms"`
	Sessions  int    `json:"sessions"`
	Published uint64 `json:"published"`
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
}

// IHub groups sinks by room key and fans events out to them.
type IHub interface {
	Join(roomKey string, sink EventSink)
	Leave(roomKey string, sink EventSink)
	Publish(ctx context.Context, roomKey string, e event.Outbound)
	Stats() HubStats
}

// TokenValidator resolves a bearer token to the user it was issued for.
type TokenValidator interface {
	Authenticate(ctx context.Context, token string) (domain.UserIdentity, error)
}

// MessageSender persists a direct message, creating the pair's room if needed.
type MessageSender interface {
	SendMessage(ctx context.Context, sender domain.UserIdentity, receiver domain.UserID, content string) (domain.Message, error)
}
