package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

type EmailService struct {
	client    *resend.Client
	fromEmail string
	isDev     bool
	appURL    string
	appName   string
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		isDev:     isDev,
		appURL:    appURL,
		appName:   appName,
	}
}

func (s *EmailService) send(emailType, to, subject, body string) error {
	if s.isDev {
		slog.Info("email sent (dev mode)", "type", emailType, "to", to, "subject", subject)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(context.Background(), params)
	if err == nil {
		slog.Info("email sent", "type", emailType, "to", to)
	}
	return err
}

func (s *EmailService) SendWelcomeEmail(email, name string) error {
	feedURL := fmt.Sprintf("%s/posts", s.appURL)
	subject, body := welcomeEmailTemplate(name, feedURL, s.appName)
	return s.send("welcome", email, subject, body)
}

func (s *EmailService) SendCommentNotification(email, authorName, commenterName, postTitle, postID string) error {
	postURL := fmt.Sprintf("%s/posts/%s", s.appURL, postID)
	subject, body := commentNotificationTemplate(authorName, commenterName, postTitle, postURL, s.appName)
	return s.send("comment_notification", email, subject, body)
}

func (s *EmailService) SendUnreadMessagesReminder(email, name, senderName string, count int) error {
	messagesURL := fmt.Sprintf("%s/messages", s.appURL)
	subject, body := unreadMessagesTemplate(name, senderName, count, messagesURL, s.appName)
	return s.send("unread_messages", email, subject, body)
}

func (s *EmailService) SendPasswordChangedEmail(email, name string) error {
	subject, body := passwordChangedTemplate(name, s.appName)
	return s.send("password_changed", email, subject, body)
}

func (s *EmailService) SendEmailChangeNotification(oldEmail, newEmail, name string) error {
	subject, body := emailChangedTemplate(name, newEmail, s.appName)
	return s.send("email_changed", oldEmail, subject, body)
}
