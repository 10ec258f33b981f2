package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pixelshelf/pixelshelf/internal/config"
	"github.com/pixelshelf/pixelshelf/internal/ctxkeys"
	"github.com/pixelshelf/pixelshelf/internal/model"
	"github.com/pixelshelf/pixelshelf/internal/service"
	"github.com/pixelshelf/pixelshelf/internal/validation"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

type authHandler struct {
	authService       *service.AuthService
	googleOAuthConfig *oauth2.Config
	githubOAuthConfig *oauth2.Config
}

func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *authHandler {
	return &authHandler{
		authService: authService,
		googleOAuthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.AppURL + "/auth/google/callback",
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint,
		},
		githubOAuthConfig: &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.AppURL + "/auth/github/callback",
			Scopes:       []string{"user:email"},
			Endpoint:     github.Endpoint,
		},
	}
}

type authResponse struct {
	User         *model.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	err := decodeJSON(r, &req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.Register(req.Username, req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailAlreadyExists),
			errors.Is(err, service.ErrUsernameAlreadyTaken):
			respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrInvalidEmail),
			errors.Is(err, service.ErrUsernameRequired),
			errors.Is(err, validation.ErrPasswordTooShort),
			errors.Is(err, validation.ErrPasswordTooWeak):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("registration failed", "error", err)
			respondError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	h.issueTokens(w, user, http.StatusCreated)
}

func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	err := decodeJSON(r, &req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		slog.Error("login failed", "error", err)
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	h.issueTokens(w, user, http.StatusOK)
}

func (h *authHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	// The token may arrive in the body or in the refresh cookie
	_ = decodeJSON(r, &req)
	if req.RefreshToken == "" {
		cookie, err := r.Cookie("refresh_token")
		if err == nil {
			req.RefreshToken = cookie.Value
		}
	}

	user, err := h.authService.Refresh(req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			h.authService.ClearAuthCookies(w)
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		slog.Error("token refresh failed", "error", err)
		respondError(w, http.StatusInternalServerError, "token refresh failed")
		return
	}

	h.issueTokens(w, user, http.StatusOK)
}

func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	if user != nil {
		err := h.authService.Logout(user.ID)
		if err != nil {
			slog.Warn("failed to revoke refresh token", "error", err, "user_id", user.ID)
		}
	}

	h.authService.ClearAuthCookies(w)
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ctxkeys.User(r.Context()))
}

func (h *authHandler) issueTokens(w http.ResponseWriter, user *model.User, status int) {
	accessToken, err := h.authService.GenerateJWT(user)
	if err != nil {
		slog.Error("failed to generate JWT", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	refreshToken, err := h.authService.IssueRefreshToken(user)
	if err != nil {
		slog.Error("failed to issue refresh token", "error", err, "user_id", user.ID)
		respondError(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	h.authService.SetAuthCookies(w, accessToken, refreshToken)

	user.PasswordHash = nil
	respondJSON(w, status, authResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// GoogleAuth redirects user to Google OAuth consent screen
func (h *authHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	h.redirectToProvider(w, r, h.googleOAuthConfig)
}

// GoogleCallback handles the OAuth callback from Google
func (h *authHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	token, ok := h.exchangeCode(w, r, h.googleOAuthConfig, "google")
	if !ok {
		return
	}

	client := h.googleOAuthConfig.Client(context.Background(), token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		slog.Error("failed to get google user info", "error", err)
		respondError(w, http.StatusBadGateway, "OAuth authentication failed")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	var userInfo struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	err = json.NewDecoder(resp.Body).Decode(&userInfo)
	if err != nil {
		slog.Error("failed to decode google user info", "error", err)
		respondError(w, http.StatusBadGateway, "OAuth authentication failed")
		return
	}

	h.finishOAuth(w, "google", userInfo.ID, userInfo.Email, userInfo.Name)
}

// GitHubAuth redirects user to GitHub OAuth consent screen
func (h *authHandler) GitHubAuth(w http.ResponseWriter, r *http.Request) {
	h.redirectToProvider(w, r, h.githubOAuthConfig)
}

// GitHubCallback handles the OAuth callback from GitHub
func (h *authHandler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	token, ok := h.exchangeCode(w, r, h.githubOAuthConfig, "github")
	if !ok {
		return
	}

	client := h.githubOAuthConfig.Client(context.Background(), token)
	resp, err := client.Get("https://api.github.com/user")
	if err != nil {
		slog.Error("failed to get github user info", "error", err)
		respondError(w, http.StatusBadGateway, "OAuth authentication failed")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	var userInfo struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
		Login string `json:"login"`
	}
	err = json.NewDecoder(resp.Body).Decode(&userInfo)
	if err != nil {
		slog.Error("failed to decode github user info", "error", err)
		respondError(w, http.StatusBadGateway, "OAuth authentication failed")
		return
	}

	// GitHub hides private emails from /user; ask /user/emails for the
	// primary one
	if userInfo.Email == "" {
		emailResp, err := client.Get("https://api.github.com/user/emails")
		if err != nil {
			slog.Error("failed to get github user emails", "error", err)
			respondError(w, http.StatusBadGateway, "OAuth authentication failed")
			return
		}
		defer func() { _ = emailResp.Body.Close() }()

		var emails []struct {
			Email   string `json:"email"`
			Primary bool   `json:"primary"`
		}
		err = json.NewDecoder(emailResp.Body).Decode(&emails)
		if err != nil {
			slog.Error("failed to decode github emails", "error", err)
			respondError(w, http.StatusBadGateway, "OAuth authentication failed")
			return
		}

		for _, e := range emails {
			if e.Primary {
				userInfo.Email = e.Email
				break
			}
		}
	}

	if userInfo.Email == "" {
		slog.Warn("github oauth: no email found")
		respondError(w, http.StatusBadRequest, "could not retrieve email from GitHub")
		return
	}

	name := userInfo.Name
	if name == "" {
		name = userInfo.Login
	}

	h.finishOAuth(w, "github", fmt.Sprintf("%d", userInfo.ID), userInfo.Email, name)
}

func (h *authHandler) redirectToProvider(w http.ResponseWriter, r *http.Request, oauthConfig *oauth2.Config) {
	state := generateOAuthState()

	cfg := ctxkeys.Config(r.Context())
	isProduction := cfg != nil && cfg.IsProduction()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})

	url := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// exchangeCode validates the OAuth state cookie and trades the callback code
// for a provider token.
func (h *authHandler) exchangeCode(w http.ResponseWriter, r *http.Request, oauthConfig *oauth2.Config, provider string) (*oauth2.Token, bool) {
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie("oauth_state")
	if err != nil || cookie.Value != state || state == "" {
		slog.Warn("oauth state validation failed", "error", err, "provider", provider)
		respondError(w, http.StatusBadRequest, "OAuth authentication failed")
		return nil, false
	}

	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("oauth callback missing code", "provider", provider)
		respondError(w, http.StatusBadRequest, "OAuth authentication failed")
		return nil, false
	}

	token, err := oauthConfig.Exchange(context.Background(), code)
	if err != nil {
		slog.Error("oauth token exchange failed", "error", err, "provider", provider)
		respondError(w, http.StatusBadGateway, "OAuth authentication failed")
		return nil, false
	}

	return token, true
}

func (h *authHandler) finishOAuth(w http.ResponseWriter, provider, providerID, email, name string) {
	user, err := h.authService.AuthenticateOAuth(provider, providerID, email, name)
	if err != nil {
		slog.Error("oauth authentication failed", "error", err, "provider", provider)
		respondError(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	slog.Info("user logged in with oauth", "user_id", user.ID, "provider", provider)
	h.issueTokens(w, user, http.StatusOK)
}

// generateOAuthState creates cryptographically secure random state token for OAuth CSRF protection
func generateOAuthState() string {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		panic("failed to generate oauth state: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
