package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pixelshelf/pixelshelf/internal/model"
	"github.com/pixelshelf/pixelshelf/internal/repository"
)

// ReminderService periodically emails users about messages that have sat
// unread past a threshold. Each message triggers at most one reminder.
type ReminderService struct {
	messageRepository repository.MessageRepository
	userRepository    repository.UserRepository
	emailService      *EmailService
	after             time.Duration
	interval          time.Duration
}

func NewReminderService(
	messageRepository repository.MessageRepository,
	userRepository repository.UserRepository,
	emailService *EmailService,
	after time.Duration,
	interval time.Duration,
) *ReminderService {
	return &ReminderService{
		messageRepository: messageRepository,
		userRepository:    userRepository,
		emailService:      emailService,
		after:             after,
		interval:          interval,
	}
}

// Start runs the reminder loop until the context is cancelled.
func (s *ReminderService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("unread message reminder started", "after", s.after, "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("unread message reminder stopped")
			return
		case <-ticker.C:
			err := s.RunOnce(time.Now())
			if err != nil {
				slog.Error("unread message reminder run failed", "error", err)
			}
		}
	}
}

// RunOnce sends reminders for every unread, un-notified message older than
// the threshold, grouped per receiver and sender so each pair gets one email
// per run.
func (s *ReminderService) RunOnce(now time.Time) error {
	cutoff := now.Add(-s.after)
	messages, err := s.messageRepository.UnreadUnnotifiedBefore(cutoff)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	type pair struct{ receiverID, senderID string }
	grouped := make(map[pair][]*model.Message)
	for _, message := range messages {
		key := pair{receiverID: message.ReceiverID, senderID: message.SenderID}
		grouped[key] = append(grouped[key], message)
	}

	var notified []string
	for key, group := range grouped {
		receiver, err := s.userRepository.ByID(key.receiverID)
		if err != nil {
			slog.Warn("skipping reminder, receiver lookup failed", "error", err, "user_id", key.receiverID)
			continue
		}
		sender, err := s.userRepository.ByID(key.senderID)
		if err != nil {
			slog.Warn("skipping reminder, sender lookup failed", "error", err, "user_id", key.senderID)
			continue
		}

		err = s.emailService.SendUnreadMessagesReminder(receiver.Email, receiver.Username, sender.Username, len(group))
		if err != nil {
			slog.Warn("failed to send unread reminder", "error", err, "user_id", receiver.ID)
			continue
		}

		for _, message := range group {
			notified = append(notified, message.ID)
		}
	}

	if len(notified) == 0 {
		return nil
	}

	err = s.messageRepository.MarkNotified(notified)
	if err != nil {
		return err
	}

	slog.Info("unread message reminders sent", "messages", len(notified), "conversations", len(grouped))
	return nil
}
