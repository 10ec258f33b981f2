package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pixelshelf/pixelshelf/internal/ctxkeys"
	"github.com/pixelshelf/pixelshelf/internal/service"
)

type messageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *messageHandler {
	return &messageHandler{messageService: messageService}
}

func (h *messageHandler) Send(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req struct {
		ReceiverID string `json:"receiverId"`
		Text       string `json:"text"`
	}
	err := decodeJSON(r, &req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := h.messageService.Send(user.ID, req.ReceiverID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage),
			errors.Is(err, service.ErrSelfMessage):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUnknownUser):
			respondError(w, http.StatusNotFound, err.Error())
		default:
			slog.Error("failed to send message", "error", err, "user_id", user.ID)
			respondError(w, http.StatusInternalServerError, "failed to send message")
		}
		return
	}

	respondJSON(w, http.StatusCreated, message)
}

// Conversation returns the message history with another user, oldest first.
func (h *messageHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	otherID := r.PathValue("userId")

	messages, err := h.messageService.Conversation(user.ID, otherID)
	if err != nil {
		slog.Error("failed to load conversation", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	respondJSON(w, http.StatusOK, messages)
}

// MarkRead marks every unread message from the given sender as read.
func (h *messageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	senderID := r.PathValue("userId")

	updated, err := h.messageService.MarkRead(user.ID, senderID)
	if err != nil {
		slog.Error("failed to mark messages read", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "failed to mark messages read")
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

// Chats lists the user's conversations with last message and unread count.
func (h *messageHandler) Chats(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	chats, err := h.messageService.Chats(user.ID)
	if err != nil {
		slog.Error("failed to load chats", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "failed to load chats")
		return
	}

	respondJSON(w, http.StatusOK, chats)
}
