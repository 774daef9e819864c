package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"context"
	"log/slog"
)

// Dispatcher runs one inbound event end to end: decode, authenticate,
// act, broadcast. Any returned error is terminal for the connection.
type Dispatcher struct {
	validator contract.TokenValidator
	sender    contract.MessageSender
	hub       contract.IHub
	log       *slog.Logger
}

func NewDispatcher(validator contract.TokenValidator, sender contract.MessageSender, hub contract.IHub, log *slog.Logger) *Dispatcher {
	return &Dispatcher{validator: validator, sender: sender, hub: hub, log: log}
}

// Dispatch authenticates before looking at the event type, so an unsupported
// type with a bad token is reported as an authentication failure.
func (d *Dispatcher) Dispatch(ctx context.Context, roomKey string, raw []byte) error {
	envelope, err := event.Parse(raw)
	if err != nil {
		return err
	}

	identity, err := d.validator.Authenticate(ctx, envelope.Token)
	if err != nil {
		return err
	}

	inbound, err := envelope.Resolve()
	if err != nil {
		return err
	}
	d.log.Debug("Inbound event", "room", roomKey, "type", inbound.Kind(), "user", identity.ID)

	switch evt := inbound.(type) {
	case event.MessageEvent:
		message, err := d.sender.SendMessage(ctx, identity, evt.Receiver, evt.Message)
		if err != nil {
			return err
		}
		d.hub.Publish(ctx, roomKey, event.NewMessageBroadcast(message.Sender, message.Receiver, message.Content))
	case event.TypingEvent:
		d.hub.Publish(ctx, roomKey, event.NewTypingBroadcast(identity.ID))
	case event.JoinEvent:
		d.hub.Publish(ctx, roomKey, event.NewJoinBroadcast(identity.Username))
	case event.ExitEvent:
		d.hub.Publish(ctx, roomKey, event.NewExitBroadcast(identity.Username))
	}
	return nil
}
