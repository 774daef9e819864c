// Package event defines the frames exchanged over a chat connection.
// Inbound frames are decoded into one typed variant per event type,
// outbound frames are the shapes broadcast to a room or sent as diagnostics.
package event

type Type string

const (
	TypeMessage      Type = "message"
	TypeTyping       Type = "typing"
	TypeJoin         Type = "join"
	TypeExit         Type = "exit"
	TypeError        Type = "error"
	TypeUnauthorized Type = "unauthorized"
)
