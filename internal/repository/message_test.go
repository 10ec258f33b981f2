package repository

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/pixelshelf/pixelshelf/internal/model"
)

func messageColumns() []string {
	return []string{"id", "sender_id", "receiver_id", "text", "is_read", "notified", "created_at"}
}

func messageRow(id, senderID, receiverID string, isRead bool) []driver.Value {
	return []driver.Value{id, senderID, receiverID, "hi", isRead, false, time.Now()}
}

func TestMessageRepositoryConversation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)

	rows := sqlmock.NewRows(messageColumns()).
		AddRow(messageRow("m1", "u1", "u2", true)...).
		AddRow(messageRow("m2", "u2", "u1", false)...)

	mock.ExpectQuery("SELECT \\* FROM messages").
		WithArgs("u1", "u2").
		WillReturnRows(rows)

	messages, err := repo.Conversation("u1", "u2")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m1", messages[0].ID)
}

func TestMessageRepositoryMarkRead(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)

	mock.ExpectExec("UPDATE messages SET is_read = TRUE").
		WithArgs("u1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 3))

	updated, err := repo.MarkRead("u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, 3, updated)
}

func TestMessageRepositoryUnreadUnnotifiedBefore(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)

	cutoff := time.Now().Add(-3 * time.Hour)

	mock.ExpectQuery("is_read = FALSE AND notified = FALSE AND created_at <").
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows(messageColumns()).AddRow(messageRow("m1", "u1", "u2", false)...))

	messages, err := repo.UnreadUnnotifiedBefore(cutoff)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.False(t, messages[0].IsRead)
	assert.False(t, messages[0].Notified)
}

func TestMessageRepositoryMarkNotified(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)

	t.Run("empty list is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.MarkNotified(nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("updates each id", func(t *testing.T) {
		mock.ExpectExec("UPDATE messages SET notified = TRUE").
			WithArgs("m1", "m2").
			WillReturnResult(sqlmock.NewResult(0, 2))

		assert.NoError(t, repo.MarkNotified([]string{"m1", "m2"}))
	})
}

func TestMessageRepositoryCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)

	now := time.Now()
	message := &model.Message{
		ID:         "m1",
		SenderID:   "u1",
		ReceiverID: "u2",
		Text:       "hello",
		CreatedAt:  now,
	}

	mock.ExpectExec("INSERT INTO messages").
		WithArgs("m1", "u1", "u2", "hello", false, false, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, repo.Create(message))
	assert.NoError(t, mock.ExpectationsWereMet())
}
