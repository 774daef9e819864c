// Package websocket serves chat rooms over gorilla websocket connections.
package websocket

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
)

var errSessionClosed = stderrors.New("session closed")

const msgTooLarge = "Message too large."

// EventDispatcher handles one raw inbound frame for a room.
type EventDispatcher interface {
	Dispatch(ctx context.Context, roomKey string, raw []byte) error
}

type Config struct {
	BufferSize     int
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	MaxMessageSize int64
}

func (c Config) withDefaults() Config {
	if c.BufferSize <= 0 {
		c.BufferSize = 256
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = 60 * time.Second
	}
	return c
}

func (c Config) pingPeriod() time.Duration {
	return c.PongTimeout * 9 / 10
}

// Session is one live connection joined to a room.
// Inbound frames are dispatched strictly one at a time. Outbound frames go
// through a buffered queue drained by a single writer.
type Session struct {
	id         string
	roomKey    string
	conn       *gws.Conn
	send       chan []byte
	closing    chan []byte
	done       chan struct{}
	closeOnce  sync.Once
	hub        contract.IHub
	dispatcher EventDispatcher
	cfg        Config
	log        *slog.Logger
}

func NewSession(roomKey string, hub contract.IHub, dispatcher EventDispatcher, cfg Config, log *slog.Logger) *Session {
	id := uuid.NewString()
	cfg = cfg.withDefaults()
	return &Session{
		id:         id,
		roomKey:    roomKey,
		send:       make(chan []byte, cfg.BufferSize),
		closing:    make(chan []byte, 1),
		done:       make(chan struct{}),
		hub:        hub,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        log.With("session", id, "room", roomKey),
	}
}

// Consume queues an outbound event. It gives up when the session is gone
// or when ctx expires while the queue is full.
func (s *Session) Consume(ctx context.Context, e event.Outbound) error {
	payload, err := event.Encode(e)
	if err != nil {
		return err
	}
	select {
	case <-s.done:
		return errSessionClosed
	default:
	}
	select {
	case s.send <- payload:
		return nil
	case <-s.done:
		return errSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve runs the session on an accepted connection until it closes.
// It returns the error that closed the session, nil for a client disconnect.
func (s *Session) Serve(ctx context.Context, conn *gws.Conn) error {
	s.conn = conn
	defer s.release()

	stop := context.AfterFunc(ctx, func() {
		s.requestClose(nil)
		_ = s.conn.UnderlyingConn().SetReadDeadline(time.Now())
	})
	defer stop()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump()
	}()

	err := s.readPump(ctx)
	if err != nil {
		s.log.Info("Closing session after failure", "error", err)
		frame, encErr := event.Encode(event.FrameFor(err))
		if encErr != nil {
			frame = nil
		}
		s.requestClose(frame)
	} else {
		s.requestClose(nil)
	}
	<-writerDone
	return err
}

// release leaves the room first so no publish reaches a dead connection,
// then frees the connection.
func (s *Session) release() {
	s.hub.Leave(s.roomKey, s)
	s.closeOnce.Do(func() { close(s.done) })
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.log.Info("Session closed")
}

// requestClose asks the writer to flush, send the optional diagnostic
// frame then a close frame. Only the first request counts.
func (s *Session) requestClose(diagnostic []byte) {
	select {
	case s.closing <- diagnostic:
	default:
	}
}

func (s *Session) readPump(ctx context.Context) error {
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	})

	for {
		_, reader, err := s.conn.NextReader()
		if err != nil {
			s.logReadError(err)
			return nil
		}
		raw, tooLarge, err := s.readFrame(reader)
		if err != nil {
			s.logReadError(err)
			return nil
		}
		if tooLarge {
			s.log.Warn("Inbound frame too large", "limit", s.cfg.MaxMessageSize)
			return errors.NewValidationError(msgTooLarge)
		}
		if err = s.dispatcher.Dispatch(ctx, s.roomKey, raw); err != nil {
			return err
		}
	}
}

// readFrame enforces MaxMessageSize itself so the connection stays writable
// for the diagnostic frame. The rest of an oversized frame is discarded.
func (s *Session) readFrame(reader io.Reader) ([]byte, bool, error) {
	if s.cfg.MaxMessageSize <= 0 {
		raw, err := io.ReadAll(reader)
		return raw, false, err
	}
	raw, err := io.ReadAll(io.LimitReader(reader, s.cfg.MaxMessageSize+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(raw)) <= s.cfg.MaxMessageSize {
		return raw, false, nil
	}
	_, _ = io.Copy(io.Discard, reader)
	return nil, true, nil
}

func (s *Session) logReadError(err error) {
	switch {
	case gws.IsCloseError(err, gws.CloseNormalClosure, gws.CloseGoingAway, gws.CloseNoStatusReceived):
		s.log.Debug("Client disconnected", "error", err)
	default:
		s.log.Debug("Read loop ended", "error", err)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(s.cfg.pingPeriod())
	defer ticker.Stop()

	for {
		select {
		case payload := <-s.send:
			if err := s.write(gws.TextMessage, payload); err != nil {
				s.log.Debug("Write failed", "error", err)
				_ = s.conn.Close()
				return
			}
		case <-ticker.C:
			if err := s.write(gws.PingMessage, nil); err != nil {
				s.log.Debug("Ping failed", "error", err)
				_ = s.conn.Close()
				return
			}
		case diagnostic := <-s.closing:
			s.flush()
			if diagnostic != nil {
				_ = s.write(gws.TextMessage, diagnostic)
			}
			_ = s.write(gws.CloseMessage, gws.FormatCloseMessage(gws.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes what is already queued, best effort.
func (s *Session) flush() {
	for {
		select {
		case payload := <-s.send:
			if err := s.write(gws.TextMessage, payload); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Session) write(messageType int, payload []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(messageType, payload)
}
