package model

import "time"

type Message struct {
	ID         string    `db:"id" json:"id"`
	SenderID   string    `db:"sender_id" json:"senderId"`
	ReceiverID string    `db:"receiver_id" json:"receiverId"`
	Text       string    `db:"text" json:"text"`
	IsRead     bool      `db:"is_read" json:"isRead"`
	Notified   bool      `db:"notified" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Chat summarizes a conversation with one peer: the most recent message and
// how many of their messages are still unread.
type Chat struct {
	User        *User    `json:"user"`
	LastMessage *Message `json:"lastMessage"`
	UnreadCount int      `json:"unreadCount"`
}
