package services

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"context"
	"log/slog"
	"strings"

	"github.com/abadojack/whatlanggo"
	"github.com/samber/lo"
)

const defaultSearchLimit = 20

type IChatService interface {
	SendMessage(ctx context.Context, sender domain.UserIdentity, receiver domain.UserID, content string) (domain.Message, error)
	PostMessage(ctx context.Context, room domain.RoomID, sender domain.UserIdentity, receiver domain.UserID, content string) (domain.Message, error)
	ListUsers() ([]domain.User, error)
	ListRooms() ([]domain.Room, error)
	ListRoomsFor(userID domain.UserID) ([]domain.Room, error)
	CreateRoom(name string, members []domain.UserID, creator domain.UserID) (domain.Room, error)
	GetMessages(room domain.RoomID, cursor *string) ([]domain.Message, *string, error)
	SearchMessages(ctx context.Context, room domain.RoomID, query string, limit int) ([]repositories.SearchHit, error)
}

type ChatService struct {
	userRepository    repositories.IUserRepository
	roomRepository    repositories.IRoomRepository
	messageRepository repositories.IMessageRepository
	messageIndex      repositories.IMessageIndex
	moderator         *moderation.Moderator
	log               *slog.Logger
}

// NewChatService wires the stores behind the messaging core.
// moderator may be nil when moderation is disabled.
func NewChatService(
	userRepository repositories.IUserRepository,
	roomRepository repositories.IRoomRepository,
	messageRepository repositories.IMessageRepository,
	messageIndex repositories.IMessageIndex,
	moderator *moderation.Moderator,
	log *slog.Logger,
) *ChatService {
	return &ChatService{
		userRepository:    userRepository,
		roomRepository:    roomRepository,
		messageRepository: messageRepository,
		messageIndex:      messageIndex,
		moderator:         moderator,
		log:               log,
	}
}

// SendMessage stores a direct message in the room shared by sender and receiver,
// creating that room on first contact. A room created here is kept even if
// the append then fails.
func (s *ChatService) SendMessage(ctx context.Context, sender domain.UserIdentity, receiver domain.UserID, content string) (domain.Message, error) {
	room, err := s.roomRepository.GetOrCreate(sender.ID, receiver)
	if err != nil {
		return domain.Message{}, errors.StoreError{Op: "Error saving message", Err: err}
	}
	return s.persist(ctx, room.ID, sender, receiver, content)
}

// PostMessage stores a message in an explicit room.
func (s *ChatService) PostMessage(ctx context.Context, room domain.RoomID, sender domain.UserIdentity, receiver domain.UserID, content string) (domain.Message, error) {
	if strings.TrimSpace(content) == "" || receiver == 0 {
		return domain.Message{}, errors.NewValidationError("Missing message or receiver.")
	}
	return s.persist(ctx, room, sender, receiver, content)
}

func (s *ChatService) persist(_ context.Context, room domain.RoomID, sender domain.UserIdentity, receiver domain.UserID, content string) (domain.Message, error) {
	if s.moderator != nil {
		var words []string
		if content, words = s.moderator.Censor(content); len(words) > 0 {
			s.log.Info("Censored words in message", "room", room, "sender", sender.ID, "count", len(words))
		}
	}

	message, err := s.messageRepository.Append(room, sender.ID, receiver, content, detectLang(content))
	if err != nil {
		return domain.Message{}, err
	}

	if err = s.messageIndex.Index(message); err != nil {
		s.log.Warn("Unable to index message", "room", room, "id", message.ID, "error", err)
	}
	return message, nil
}

// detectLang returns the ISO 639-1 code of content when the guess is reliable.
func detectLang(content string) string {
	info := whatlanggo.Detect(content)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}

func (s *ChatService) ListUsers() ([]domain.User, error) {
	return s.userRepository.ListUsers()
}

func (s *ChatService) ListRooms() ([]domain.Room, error) {
	return s.roomRepository.List()
}

func (s *ChatService) ListRoomsFor(userID domain.UserID) ([]domain.Room, error) {
	return s.roomRepository.ListForUser(userID)
}

// CreateRoom always adds the creator to the members.
func (s *ChatService) CreateRoom(name string, members []domain.UserID, creator domain.UserID) (domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Room{}, errors.NewValidationError("Room name is required.")
	}
	members = lo.Uniq(append([]domain.UserID{creator}, members...))
	room, err := s.roomRepository.Create(name, members)
	if err != nil {
		return domain.Room{}, err
	}
	s.log.Info("Room created", "room", room.ID, "name", room.Name, "members", len(room.Members))
	return room, nil
}

func (s *ChatService) GetMessages(room domain.RoomID, cursor *string) ([]domain.Message, *string, error) {
	if _, err := s.roomRepository.GetByID(room); err != nil {
		return nil, nil, err
	}
	return s.messageRepository.GetMessages(room, cursor)
}

func (s *ChatService) SearchMessages(ctx context.Context, room domain.RoomID, query string, limit int) ([]repositories.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.NewValidationError("Search query is required.")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if _, err := s.roomRepository.GetByID(room); err != nil {
		return nil, err
	}
	return s.messageIndex.Search(ctx, room, query, limit)
}
