package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pixelshelf/pixelshelf/internal/model"
	"github.com/pixelshelf/pixelshelf/internal/repository"
)

var (
	ErrEmptyMessage = errors.New("message text is required")
	ErrSelfMessage  = errors.New("cannot send a message to yourself")
	ErrUnknownUser  = errors.New("recipient not found")
)

type MessageService struct {
	messageRepository repository.MessageRepository
	userRepository    repository.UserRepository
}

func NewMessageService(
	messageRepository repository.MessageRepository,
	userRepository repository.UserRepository,
) *MessageService {
	return &MessageService{
		messageRepository: messageRepository,
		userRepository:    userRepository,
	}
}

func (s *MessageService) Send(senderID, receiverID, text string) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if senderID == receiverID {
		return nil, ErrSelfMessage
	}

	_, err := s.userRepository.ByID(receiverID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("failed to lookup recipient: %w", err)
	}

	message := &model.Message{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		CreatedAt:  time.Now(),
	}

	err = s.messageRepository.Create(message)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	return message, nil
}

// Conversation returns the full message history between two users, oldest
// first.
func (s *MessageService) Conversation(userID, otherID string) ([]*model.Message, error) {
	return s.messageRepository.Conversation(userID, otherID)
}

// MarkRead marks every unread message from the given sender to the given
// reader as read and returns how many were updated.
func (s *MessageService) MarkRead(readerID, senderID string) (int, error) {
	return s.messageRepository.MarkRead(readerID, senderID)
}

// Chats builds the user's chat list: one entry per conversation partner,
// carrying the most recent message and the unread count, newest first.
func (s *MessageService) Chats(userID string) ([]*model.Chat, error) {
	messages, err := s.messageRepository.ByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	latest := make(map[string]*model.Message)
	unread := make(map[string]int)
	for _, message := range messages {
		other := message.SenderID
		if other == userID {
			other = message.ReceiverID
		}
		if _, ok := latest[other]; !ok {
			latest[other] = message
		}
		if message.ReceiverID == userID && !message.IsRead {
			unread[other]++
		}
	}

	chats := make([]*model.Chat, 0, len(latest))
	for otherID, message := range latest {
		other, err := s.userRepository.ByID(otherID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to load chat partner: %w", err)
		}

		chats = append(chats, &model.Chat{
			User:        other,
			LastMessage: message,
			UnreadCount: unread[otherID],
		})
	}

	sort.Slice(chats, func(i, j int) bool {
		return chats[i].LastMessage.CreatedAt.After(chats[j].LastMessage.CreatedAt)
	})

	return chats, nil
}
