package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pixelshelf/pixelshelf/internal/ctxkeys"
	"github.com/pixelshelf/pixelshelf/internal/model"
	"github.com/pixelshelf/pixelshelf/internal/repository"
	"github.com/pixelshelf/pixelshelf/internal/service"
	"github.com/pixelshelf/pixelshelf/internal/validation"
)

type userHandler struct {
	userService *service.UserService
	postService *service.PostService
}

func NewUserHandler(userService *service.UserService, postService *service.PostService) *userHandler {
	return &userHandler{
		userService: userService,
		postService: postService,
	}
}

type profileResponse struct {
	User  *model.User   `json:"user"`
	Posts []*model.Post `json:"posts"`
}

// Profile returns a user's public profile with their posts.
func (h *userHandler) Profile(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	user, err := h.userService.ByUsername(username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		slog.Error("failed to load profile", "error", err, "username", username)
		respondError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	posts, err := h.postService.ByUserID(user.ID)
	if err != nil {
		slog.Error("failed to load user posts", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	user.PasswordHash = nil
	respondJSON(w, http.StatusOK, profileResponse{User: user, Posts: posts})
}

// Search finds users by username prefix, for starting a chat.
func (h *userHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	users, err := h.userService.SearchByUsername(query, limit)
	if err != nil {
		slog.Error("user search failed", "error", err, "query", query)
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}

	for _, user := range users {
		user.PasswordHash = nil
	}
	respondJSON(w, http.StatusOK, users)
}

func (h *userHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req struct {
		Username  string `json:"username"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	err := decodeJSON(r, &req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.userService.UpdateProfile(user.ID, req.Username, req.FirstName, req.LastName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameRequired):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUsernameAlreadyTaken):
			respondError(w, http.StatusConflict, err.Error())
		default:
			slog.Error("profile update failed", "error", err, "user_id", user.ID)
			respondError(w, http.StatusInternalServerError, "profile update failed")
		}
		return
	}

	updated.PasswordHash = nil
	respondJSON(w, http.StatusOK, updated)
}

func (h *userHandler) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req struct {
		Email           string `json:"email"`
		CurrentPassword string `json:"currentPassword"`
	}
	err := decodeJSON(r, &req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.userService.ChangeEmail(user.ID, req.CurrentPassword, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrWrongPassword):
			respondError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrEmailAlreadyExists):
			respondError(w, http.StatusConflict, err.Error())
		default:
			slog.Error("email change failed", "error", err, "user_id", user.ID)
			respondError(w, http.StatusInternalServerError, "email change failed")
		}
		return
	}

	updated.PasswordHash = nil
	respondJSON(w, http.StatusOK, updated)
}

func (h *userHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	err := decodeJSON(r, &req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err = h.userService.ChangePassword(user.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWrongPassword):
			respondError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, validation.ErrPasswordTooShort),
			errors.Is(err, validation.ErrPasswordTooWeak):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("password change failed", "error", err, "user_id", user.ID)
			respondError(w, http.StatusInternalServerError, "password change failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

func (h *userHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := r.ParseMultipartForm(10 << 20)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		respondError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer func() { _ = file.Close() }()

	updated, err := h.userService.UploadAvatar(user.ID, file, header)
	if err != nil {
		slog.Warn("avatar upload rejected", "error", err, "user_id", user.ID)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated.PasswordHash = nil
	respondJSON(w, http.StatusOK, updated)
}

func (h *userHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	updated, err := h.userService.DeleteAvatar(user.ID)
	if err != nil {
		slog.Error("avatar delete failed", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "avatar delete failed")
		return
	}

	updated.PasswordHash = nil
	respondJSON(w, http.StatusOK, updated)
}
