package routes

import (
	"net/http"

	"github.com/pixelshelf/pixelshelf/internal/app"
	"github.com/pixelshelf/pixelshelf/internal/handler"
	"github.com/pixelshelf/pixelshelf/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.AuthService, app.Cfg)
	user := handler.NewUserHandler(app.UserService, app.PostService)
	post := handler.NewPostHandler(app.PostService, app.Cfg.MaxUploadSize)
	message := handler.NewMessageHandler(app.MessageService)

	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Auth (rate limited)
	rateLimiter := middleware.RateLimitAuth()

	mux.HandleFunc("POST /auth/register", rateLimiter(auth.Register))
	mux.HandleFunc("POST /auth/login", rateLimiter(auth.Login))
	mux.HandleFunc("POST /auth/refresh", auth.Refresh)
	mux.HandleFunc("POST /auth/logout", auth.Logout)
	mux.HandleFunc("GET /auth/me", middleware.RequireAuth(auth.Me))

	// OAuth
	mux.HandleFunc("GET /auth/google", rateLimiter(auth.GoogleAuth))
	mux.HandleFunc("GET /auth/google/callback", rateLimiter(auth.GoogleCallback))
	mux.HandleFunc("GET /auth/github", rateLimiter(auth.GitHubAuth))
	mux.HandleFunc("GET /auth/github/callback", rateLimiter(auth.GitHubCallback))

	// Users
	mux.HandleFunc("GET /users/{username}", user.Profile)
	mux.HandleFunc("GET /users", middleware.RequireAuth(user.Search))
	mux.HandleFunc("PATCH /account/profile", middleware.RequireAuth(user.UpdateProfile))
	mux.HandleFunc("PATCH /account/email", middleware.RequireAuth(user.ChangeEmail))
	mux.HandleFunc("POST /account/password", middleware.RequireAuth(user.ChangePassword))
	mux.HandleFunc("POST /account/avatar", middleware.RequireAuth(user.UploadAvatar))
	mux.HandleFunc("DELETE /account/avatar", middleware.RequireAuth(user.DeleteAvatar))

	// Posts
	mux.HandleFunc("GET /posts", post.List)
	mux.HandleFunc("POST /posts", middleware.RequireAuth(post.Create))
	mux.HandleFunc("POST /posts/search-by-image", post.SearchByImage)
	mux.HandleFunc("GET /posts/{id}", post.Get)
	mux.HandleFunc("PUT /posts/{id}", middleware.RequireAuth(post.Update))
	mux.HandleFunc("DELETE /posts/{id}", middleware.RequireAuth(post.Delete))
	mux.HandleFunc("GET /posts/{id}/download", post.Download)
	mux.HandleFunc("POST /posts/{id}/like", middleware.RequireAuth(post.ToggleLike))
	mux.HandleFunc("GET /posts/{id}/comments", post.Comments)
	mux.HandleFunc("POST /posts/{id}/comments", middleware.RequireAuth(post.AddComment))
	mux.HandleFunc("DELETE /comments/{id}", middleware.RequireAuth(post.DeleteComment))

	// Messages
	mux.HandleFunc("GET /messages/chats", middleware.RequireAuth(message.Chats))
	mux.HandleFunc("POST /messages", middleware.RequireAuth(message.Send))
	mux.HandleFunc("GET /messages/{userId}", middleware.RequireAuth(message.Conversation))
	mux.HandleFunc("POST /messages/{userId}/read", middleware.RequireAuth(message.MarkRead))

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.Config(app.Cfg),
		middleware.SecurityHeaders,
		middleware.RequestLogging,
		middleware.CSRFProtection,
		middleware.AuthMiddleware(app.AuthService, app.UserService),
	)
}
