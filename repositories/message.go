//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const saveMessageOp = "Error saving message"

type IMessageRepository interface {
	Append(room domain.RoomID, sender, receiver domain.UserID, content, lang string) (domain.Message, error)
	GetMessages(room domain.RoomID, cursor *string) ([]domain.Message, *string, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
	now           func() time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages, now: time.Now}
}

func messagePrefix(room domain.RoomID) []byte {
	return []byte(fmt.Sprintf("msg:%d:", uint64(room)))
}

// messageKey is "msg:{room}:{unixnano padded to 19 digits}:{uuid}".
// The padding keeps lexicographic order chronological and the uuid
// separates two messages sharing a nanosecond.
func messageKey(message domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%d:%019d:%s",
		uint64(message.Room),
		message.CreatedAt.UnixNano(),
		message.ID,
	))
}

// Append persists a message after checking that its room, sender and
// receiver exist. The server timestamp is forced strictly after the room's
// latest message so that key order matches append order.
func (m MessageRepository) Append(room domain.RoomID, sender, receiver domain.UserID, content, lang string) (domain.Message, error) {
	var message domain.Message
	err := update(m.db, func(txn *badger.Txn) error {
		if _, err := loadRoom(txn, room); err != nil {
			return err
		}
		if _, err := loadUser(txn, sender); err != nil {
			return fmt.Errorf("sender %d: %w", sender, err)
		}
		if _, err := loadUser(txn, receiver); err != nil {
			return fmt.Errorf("receiver %d: %w", receiver, err)
		}

		at := m.now().UTC()
		latest, found, err := latestTimestamp(txn, room)
		if err != nil {
			return err
		}
		if found && !at.After(latest) {
			at = latest.Add(time.Nanosecond)
		}

		message = domain.Message{
			ID:        uuid.New(),
			Room:      room,
			Sender:    sender,
			Receiver:  receiver,
			Content:   content,
			Lang:      lang,
			CreatedAt: at,
		}
		return setJSON(txn, messageKey(message), message)
	})
	if err != nil {
		return domain.Message{}, errors.StoreError{Op: saveMessageOp, Err: err}
	}
	m.log.Debug("Message stored", "room", room, "id", message.ID)
	return message, nil
}

// GetMessages returns a page of messages of a room, oldest first.
// The returned cursor is set only when the page is full; passing it back
// resumes right after the last returned message.
func (m MessageRepository) GetMessages(room domain.RoomID, cursor *string) ([]domain.Message, *string, error) {
	var messages []domain.Message
	var lastKey string
	full := false
	prefix := messagePrefix(room)

	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := prefix
		if cursor != nil {
			seekKey = append(append([]byte{}, prefix...), *cursor...)
		}
		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()[len(prefix):]) == *cursor {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				full = true
				break
			}
			item := it.Item()
			var message domain.Message
			if err := item.Value(func(val []byte) error {
				return unmarshal(val, &message)
			}); err != nil {
				return err
			}
			lastKey = string(item.Key()[len(prefix):])
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if !full {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

func latestTimestamp(txn *badger.Txn, room domain.RoomID) (time.Time, bool, error) {
	prefix := messagePrefix(room)
	options := badger.DefaultIteratorOptions
	options.Reverse = true
	options.PrefetchValues = false
	options.Prefix = prefix
	it := txn.NewIterator(options)
	defer it.Close()

	it.Seek(append(append([]byte{}, prefix...), 0xFF))
	if !it.ValidForPrefix(prefix) {
		return time.Time{}, false, nil
	}
	key := it.Item().Key()[len(prefix):]
	if len(key) < 19 {
		return time.Time{}, false, fmt.Errorf("malformed message key %q", key)
	}
	nanos, err := strconv.ParseInt(string(key[:19]), 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(0, nanos).UTC(), true, nil
}
