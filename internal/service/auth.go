package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pixelshelf/pixelshelf/internal/model"
	"github.com/pixelshelf/pixelshelf/internal/repository"
	"github.com/pixelshelf/pixelshelf/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrEmailAlreadyExists   = errors.New("email already exists")
	ErrUsernameAlreadyTaken = errors.New("username already taken")
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrUsernameRequired     = errors.New("username is required")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")
)

type AuthService struct {
	userRepository repository.UserRepository
	emailService   *EmailService
	jwtSecret      string
	isProduction   bool
	jwtExpiry      time.Duration
	refreshExpiry  time.Duration
}

func NewAuthService(
	userRepository repository.UserRepository,
	emailService *EmailService,
	jwtSecret string,
	isProduction bool,
	jwtExpiry time.Duration,
	refreshExpiry time.Duration,
) *AuthService {
	return &AuthService{
		userRepository: userRepository,
		emailService:   emailService,
		jwtSecret:      jwtSecret,
		isProduction:   isProduction,
		jwtExpiry:      jwtExpiry,
		refreshExpiry:  refreshExpiry,
	}
}

func (s *AuthService) Register(username, email, password, firstName, lastName string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))

	if username == "" {
		return nil, ErrUsernameRequired
	}

	err := validation.ValidateEmail(email)
	if err != nil {
		return nil, ErrInvalidEmail
	}

	err = validation.ValidatePassword(password)
	if err != nil {
		return nil, err
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: &hash,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.userRepository.Create(user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyExists
		}
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUsernameAlreadyTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	err = s.emailService.SendWelcomeEmail(user.Email, user.Username)
	if err != nil {
		slog.Warn("failed to send welcome email", "error", err, "email", user.Email)
	}

	slog.Info("new user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (s *AuthService) Login(email, password string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepository.ByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasPassword() {
		return nil, fmt.Errorf("this account uses social login, please sign in with your provider")
	}

	err = s.ComparePassword(password, *user.PasswordHash)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (s *AuthService) GenerateJWT(user *model.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(s.jwtExpiry).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (s *AuthService) VerifyJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// IssueRefreshToken rotates the user's stored refresh token and returns the new one.
func (s *AuthService) IssueRefreshToken(user *model.User) (string, error) {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	token := hex.EncodeToString(bytes)

	user.RefreshToken = &token
	user.UpdatedAt = time.Now()
	err = s.userRepository.Update(user)
	if err != nil {
		return "", fmt.Errorf("failed to save refresh token: %w", err)
	}

	return token, nil
}

func (s *AuthService) Refresh(refreshToken string) (*model.User, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepository.ByRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to lookup refresh token: %w", err)
	}

	return user, nil
}

func (s *AuthService) Logout(userID string) error {
	user, err := s.userRepository.ByID(userID)
	if err != nil {
		return err
	}

	user.RefreshToken = nil
	user.UpdatedAt = time.Now()
	return s.userRepository.Update(user)
}

func (s *AuthService) SetAuthCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	now := time.Now()
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    accessToken,
		Expires:  now.Add(s.jwtExpiry),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Expires:  now.Add(s.refreshExpiry),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) ClearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{"auth_token", "refresh_token"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Expires:  time.Unix(0, 0),
			Path:     "/",
			HttpOnly: true,
			Secure:   s.isProduction,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// AuthenticateOAuth signs a user in via an OAuth provider, creating the
// account on first login and linking the provider ID to an existing
// account when the email already belongs to one.
func (s *AuthService) AuthenticateOAuth(provider, providerID, email, name string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	err := validation.ValidateEmail(email)
	if err != nil {
		return nil, ErrInvalidEmail
	}

	user, err := s.userByProvider(provider, providerID)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to lookup user: %w", err)
	}
	if user != nil {
		slog.Info("user authenticated via OAuth", "user_id", user.ID, "provider", provider)
		return user, nil
	}

	user, err = s.userRepository.ByEmail(email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to lookup user: %w", err)
		}

		now := time.Now()
		user = &model.User{
			ID:        uuid.New().String(),
			Username:  s.oauthUsername(email, name),
			Email:     email,
			IsOAuth:   true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		setProviderID(user, provider, providerID)

		if first, last, ok := splitName(name); ok {
			user.FirstName = first
			user.LastName = last
		}

		err = s.userRepository.Create(user)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		err = s.emailService.SendWelcomeEmail(user.Email, user.Username)
		if err != nil {
			slog.Warn("failed to send welcome email", "error", err, "email", user.Email)
		}

		slog.Info("new OAuth user created", "user_id", user.ID, "provider", provider)
		return user, nil
	}

	// Same email, first login with this provider. Link the account.
	setProviderID(user, provider, providerID)
	user.UpdatedAt = time.Now()
	err = s.userRepository.Update(user)
	if err != nil {
		slog.Warn("failed to link OAuth provider", "error", err, "user_id", user.ID, "provider", provider)
	}

	slog.Info("user authenticated via OAuth", "user_id", user.ID, "provider", provider)
	return user, nil
}

func (s *AuthService) userByProvider(provider, providerID string) (*model.User, error) {
	switch provider {
	case "google":
		return s.userRepository.ByGoogleID(providerID)
	case "github":
		return s.userRepository.ByGitHubID(providerID)
	default:
		return nil, fmt.Errorf("unsupported OAuth provider: %s", provider)
	}
}

func setProviderID(user *model.User, provider, providerID string) {
	switch provider {
	case "google":
		user.GoogleID = &providerID
	case "github":
		user.GitHubID = &providerID
	}
}

// oauthUsername derives a username from the provider profile, falling back
// to the email local part with a random suffix to dodge collisions.
func (s *AuthService) oauthUsername(email, name string) string {
	base := strings.TrimSpace(name)
	if base == "" {
		base, _, _ = strings.Cut(email, "@")
	}
	base = strings.ToLower(strings.ReplaceAll(base, " ", ""))

	if _, err := s.userRepository.ByUsername(base); errors.Is(err, repository.ErrUserNotFound) {
		return base
	}

	return fmt.Sprintf("%s-%s", base, uuid.New().String()[:8])
}

func splitName(name string) (string, string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", false
	}
	first, last, found := strings.Cut(name, " ")
	if !found {
		return name, "", true
	}
	return first, last, true
}
