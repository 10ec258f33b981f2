package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelshelf/pixelshelf/internal/model"
)

func newReminderFixture(messages *fakeMessageRepo, users *fakeUserRepo) *ReminderService {
	emailService := NewEmailService("", "noreply@pixelshelf.app", "http://localhost:8080", "Pixelshelf", true)
	return NewReminderService(messages, users, emailService, 24*time.Hour, time.Hour)
}

func TestReminderRunOnce(t *testing.T) {
	ada := &model.User{ID: "u1", Username: "ada", Email: "ada@example.com"}
	grace := &model.User{ID: "u2", Username: "grace", Email: "grace@example.com"}
	now := time.Now()

	t.Run("notifies messages older than the threshold", func(t *testing.T) {
		messages := &fakeMessageRepo{messages: []*model.Message{
			{ID: "m1", SenderID: "u2", ReceiverID: "u1", CreatedAt: now.Add(-48 * time.Hour)},
			{ID: "m2", SenderID: "u2", ReceiverID: "u1", CreatedAt: now.Add(-30 * time.Hour)},
			{ID: "m3", SenderID: "u2", ReceiverID: "u1", CreatedAt: now.Add(-time.Hour)},
		}}
		svc := newReminderFixture(messages, newFakeUserRepo(ada, grace))

		require.NoError(t, svc.RunOnce(now))
		assert.ElementsMatch(t, []string{"m1", "m2"}, messages.notified)
	})

	t.Run("already notified or read messages are skipped", func(t *testing.T) {
		messages := &fakeMessageRepo{messages: []*model.Message{
			{ID: "m1", SenderID: "u2", ReceiverID: "u1", Notified: true, CreatedAt: now.Add(-48 * time.Hour)},
			{ID: "m2", SenderID: "u2", ReceiverID: "u1", IsRead: true, CreatedAt: now.Add(-48 * time.Hour)},
		}}
		svc := newReminderFixture(messages, newFakeUserRepo(ada, grace))

		require.NoError(t, svc.RunOnce(now))
		assert.Empty(t, messages.notified)
	})

	t.Run("a run is idempotent", func(t *testing.T) {
		messages := &fakeMessageRepo{messages: []*model.Message{
			{ID: "m1", SenderID: "u2", ReceiverID: "u1", CreatedAt: now.Add(-48 * time.Hour)},
		}}
		svc := newReminderFixture(messages, newFakeUserRepo(ada, grace))

		require.NoError(t, svc.RunOnce(now))
		require.NoError(t, svc.RunOnce(now))
		assert.Equal(t, []string{"m1"}, messages.notified)
	})

	t.Run("missing users do not block other reminders", func(t *testing.T) {
		messages := &fakeMessageRepo{messages: []*model.Message{
			{ID: "m1", SenderID: "gone", ReceiverID: "u1", CreatedAt: now.Add(-48 * time.Hour)},
			{ID: "m2", SenderID: "u2", ReceiverID: "u1", CreatedAt: now.Add(-48 * time.Hour)},
		}}
		svc := newReminderFixture(messages, newFakeUserRepo(ada, grace))

		require.NoError(t, svc.RunOnce(now))
		assert.Equal(t, []string{"m2"}, messages.notified)
	})
}
