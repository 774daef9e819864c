//go:generate go run go.uber.org/mock/mockgen -source=message_index.go -destination=../mocks/mock_message_index.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/blugelabs/bluge/search"
	"github.com/google/uuid"
)

const (
	fieldRoom      = "room"
	fieldSender    = "sender"
	fieldReceiver  = "receiver"
	fieldContent   = "content"
	fieldTimestamp = "timestamp"
)

type SearchHit struct {
	Message domain.Message `json:"message"`
	Score   float64        `json:"score"`
}

// IMessageIndex is the full text view over persisted messages.
type IMessageIndex interface {
	Index(message domain.Message) error
	Search(ctx context.Context, room domain.RoomID, query string, limit int) ([]SearchHit, error)
}

type MessageIndex struct {
	writer *bluge.Writer
}

func NewMessageIndex(writer *bluge.Writer) MessageIndex {
	return MessageIndex{writer: writer}
}

func (i MessageIndex) Index(message domain.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewKeywordField(fieldRoom, message.Room.String()).StoreValue()).
		AddField(bluge.NewKeywordField(fieldSender, message.Sender.String()).StoreValue()).
		AddField(bluge.NewKeywordField(fieldReceiver, message.Receiver.String()).StoreValue()).
		AddField(bluge.NewTextField(fieldContent, message.Content).StoreValue()).
		AddField(bluge.NewStoredOnlyField(fieldTimestamp, []byte(strconv.FormatInt(message.CreatedAt.UnixNano(), 10))))
	return i.writer.Update(doc.ID(), doc)
}

// Search matches query against the content of the messages of one room, best score first.
func (i MessageIndex) Search(ctx context.Context, room domain.RoomID, query string, limit int) ([]SearchHit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("open index reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(room.String()).SetField(fieldRoom)).
		AddMust(bluge.NewMatchQuery(query).SetField(fieldContent))
	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, err
	}

	var hits []SearchHit
	match, err := iterator.Next()
	for err == nil && match != nil {
		hit, convErr := toSearchHit(room, match)
		if convErr != nil {
			return nil, convErr
		}
		hits = append(hits, hit)
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}

func toSearchHit(room domain.RoomID, match *search.DocumentMatch) (SearchHit, error) {
	hit := SearchHit{Score: match.Score, Message: domain.Message{Room: room}}
	var parseErr error
	err := match.VisitStoredFields(func(field string, value []byte) bool {
		switch field {
		case "_id":
			hit.Message.ID, parseErr = uuid.ParseBytes(value)
		case fieldSender:
			hit.Message.Sender, parseErr = domain.ParseUserID(string(value))
		case fieldReceiver:
			hit.Message.Receiver, parseErr = domain.ParseUserID(string(value))
		case fieldContent:
			hit.Message.Content = string(value)
		case fieldTimestamp:
			var nanos int64
			nanos, parseErr = strconv.ParseInt(string(value), 10, 64)
			hit.Message.CreatedAt = time.Unix(0, nanos).UTC()
		}
		return parseErr == nil
	})
	if err != nil {
		return SearchHit{}, err
	}
	return hit, parseErr
}
