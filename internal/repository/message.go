package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pixelshelf/pixelshelf/internal/model"
)

var ErrMessageNotFound = errors.New("message not found")

type MessageRepository interface {
	Create(message *model.Message) error
	ByID(id string) (*model.Message, error)
	Conversation(userID, otherID string) ([]*model.Message, error)
	ByUser(userID string) ([]*model.Message, error)
	MarkRead(receiverID, senderID string) (int, error)
	CountUnread(receiverID, senderID string) (int, error)
	UnreadUnnotifiedBefore(cutoff time.Time) ([]*model.Message, error)
	MarkNotified(ids []string) error
}

type messageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(message *model.Message) error {
	query := `INSERT INTO messages (id, sender_id, receiver_id, text, is_read, notified, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(query,
		message.ID,
		message.SenderID,
		message.ReceiverID,
		message.Text,
		message.IsRead,
		message.Notified,
		message.CreatedAt,
	)

	return err
}

func (r *messageRepository) ByID(id string) (*model.Message, error) {
	message := &model.Message{}
	query := `SELECT * FROM messages WHERE id = $1`

	err := r.db.Get(message, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrMessageNotFound
	}

	return message, err
}

func (r *messageRepository) Conversation(userID, otherID string) ([]*model.Message, error) {
	var messages []*model.Message
	query := `SELECT * FROM messages
	          WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
	          ORDER BY created_at ASC`

	err := r.db.Select(&messages, query, userID, otherID)
	if err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *messageRepository) ByUser(userID string) ([]*model.Message, error) {
	var messages []*model.Message
	query := `SELECT * FROM messages
	          WHERE sender_id = $1 OR receiver_id = $1
	          ORDER BY created_at DESC`

	err := r.db.Select(&messages, query, userID)
	if err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *messageRepository) MarkRead(receiverID, senderID string) (int, error) {
	query := `UPDATE messages SET is_read = TRUE
	          WHERE receiver_id = $1 AND sender_id = $2 AND is_read = FALSE`

	result, err := r.db.Exec(query, receiverID, senderID)
	if err != nil {
		return 0, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(rows), nil
}

func (r *messageRepository) CountUnread(receiverID, senderID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM messages
	          WHERE receiver_id = $1 AND sender_id = $2 AND is_read = FALSE`
	err := r.db.QueryRow(query, receiverID, senderID).Scan(&count)
	return count, err
}

func (r *messageRepository) UnreadUnnotifiedBefore(cutoff time.Time) ([]*model.Message, error) {
	var messages []*model.Message
	query := `SELECT * FROM messages
	          WHERE is_read = FALSE AND notified = FALSE AND created_at < $1
	          ORDER BY created_at ASC`

	err := r.db.Select(&messages, query, cutoff)
	if err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *messageRepository) MarkNotified(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`UPDATE messages SET notified = TRUE WHERE id IN (?)`, ids)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(r.db.Rebind(query), args...)
	return err
}
