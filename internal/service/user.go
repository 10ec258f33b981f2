package service

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pixelshelf/pixelshelf/internal/model"
	"github.com/pixelshelf/pixelshelf/internal/repository"
	"github.com/pixelshelf/pixelshelf/internal/storage"
	"github.com/pixelshelf/pixelshelf/internal/validation"
)

var ErrWrongPassword = errors.New("current password is incorrect")

type UserService struct {
	userRepository repository.UserRepository
	authService    *AuthService
	emailService   *EmailService
	storage        storage.Storage
}

func NewUserService(
	userRepository repository.UserRepository,
	authService *AuthService,
	emailService *EmailService,
	storage storage.Storage,
) *UserService {
	return &UserService{
		userRepository: userRepository,
		authService:    authService,
		emailService:   emailService,
		storage:        storage,
	}
}

func (s *UserService) ByID(id string) (*model.User, error) {
	return s.userRepository.ByID(id)
}

func (s *UserService) ByUsername(username string) (*model.User, error) {
	return s.userRepository.ByUsername(username)
}

func (s *UserService) SearchByUsername(prefix string, limit int) ([]*model.User, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, nil
	}
	return s.userRepository.SearchByUsernamePrefix(prefix, limit)
}

func (s *UserService) UpdateProfile(userID, username, firstName, lastName string) (*model.User, error) {
	user, err := s.userRepository.ByID(userID)
	if err != nil {
		return nil, err
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}

	user.Username = username
	user.FirstName = strings.TrimSpace(firstName)
	user.LastName = strings.TrimSpace(lastName)
	user.UpdatedAt = time.Now()

	err = s.userRepository.Update(user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUsernameAlreadyTaken
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return user, nil
}

// ChangeEmail updates the account email after confirming the current
// password. OAuth-only accounts have no password to confirm.
func (s *UserService) ChangeEmail(userID, currentPassword, newEmail string) (*model.User, error) {
	newEmail = strings.TrimSpace(strings.ToLower(newEmail))

	err := validation.ValidateEmail(newEmail)
	if err != nil {
		return nil, ErrInvalidEmail
	}

	user, err := s.userRepository.ByID(userID)
	if err != nil {
		return nil, err
	}

	if user.HasPassword() {
		err = s.authService.ComparePassword(currentPassword, *user.PasswordHash)
		if err != nil {
			return nil, ErrWrongPassword
		}
	}

	if newEmail == user.Email {
		return user, nil
	}

	oldEmail := user.Email
	user.Email = newEmail
	user.UpdatedAt = time.Now()

	err = s.userRepository.Update(user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to update email: %w", err)
	}

	err = s.emailService.SendEmailChangeNotification(oldEmail, newEmail, user.Username)
	if err != nil {
		slog.Warn("failed to send email change notification", "error", err, "user_id", user.ID)
	}

	return user, nil
}

func (s *UserService) ChangePassword(userID, currentPassword, newPassword string) error {
	user, err := s.userRepository.ByID(userID)
	if err != nil {
		return err
	}

	if user.HasPassword() {
		err = s.authService.ComparePassword(currentPassword, *user.PasswordHash)
		if err != nil {
			return ErrWrongPassword
		}
	}

	err = validation.ValidatePassword(newPassword)
	if err != nil {
		return err
	}

	hash, err := s.authService.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = &hash
	user.UpdatedAt = time.Now()
	err = s.userRepository.Update(user)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	err = s.emailService.SendPasswordChangedEmail(user.Email, user.Username)
	if err != nil {
		slog.Warn("failed to send password change email", "error", err, "user_id", user.ID)
	}

	return nil
}

func (s *UserService) UploadAvatar(userID string, file multipart.File, header *multipart.FileHeader) (*model.User, error) {
	user, err := s.userRepository.ByID(userID)
	if err != nil {
		return nil, err
	}

	err = validation.ValidateFile(header, validation.ImageConstraints)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(header.Filename)
	key := fmt.Sprintf("avatars/%s%s", uuid.New().String(), ext)

	err = s.storage.Save(key, header.Header.Get("Content-Type"), file)
	if err != nil {
		return nil, fmt.Errorf("failed to save avatar: %w", err)
	}

	oldKey := user.AvatarKey

	url := s.storage.URL(key)
	user.AvatarKey = &key
	user.AvatarURL = &url
	user.UpdatedAt = time.Now()

	err = s.userRepository.Update(user)
	if err != nil {
		delErr := s.storage.Delete(key)
		if delErr != nil {
			slog.Error("failed to delete avatar during cleanup", "error", delErr, "key", key)
		}
		return nil, fmt.Errorf("failed to update avatar: %w", err)
	}

	if oldKey != nil {
		err = s.storage.Delete(*oldKey)
		if err != nil {
			slog.Warn("failed to delete old avatar", "error", err, "key", *oldKey)
		}
	}

	return user, nil
}

func (s *UserService) DeleteAvatar(userID string) (*model.User, error) {
	user, err := s.userRepository.ByID(userID)
	if err != nil {
		return nil, err
	}

	if user.AvatarKey == nil {
		return user, nil
	}

	err = s.storage.Delete(*user.AvatarKey)
	if err != nil {
		slog.Warn("failed to delete avatar from storage", "error", err, "key", *user.AvatarKey)
	}

	user.AvatarKey = nil
	user.AvatarURL = nil
	user.UpdatedAt = time.Now()

	err = s.userRepository.Update(user)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}
