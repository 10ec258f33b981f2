package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pixelshelf/pixelshelf/internal/config"
	"github.com/pixelshelf/pixelshelf/internal/db"
	"github.com/pixelshelf/pixelshelf/internal/imagehash"
	"github.com/pixelshelf/pixelshelf/internal/repository"
	"github.com/pixelshelf/pixelshelf/internal/service"
	"github.com/pixelshelf/pixelshelf/internal/storage"
)

type App struct {
	Cfg             *config.Config
	DB              *sqlx.DB
	AuthService     *service.AuthService
	UserService     *service.UserService
	EmailService    *service.EmailService
	PostService     *service.PostService
	MessageService  *service.MessageService
	ReminderService *service.ReminderService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	postRepository := repository.NewPostRepository(database)
	commentRepository := repository.NewCommentRepository(database)
	messageRepository := repository.NewMessageRepository(database)

	// Storage
	imageStorage, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %v", err)
	}

	hasher := imagehash.NewPerceptualHasher(cfg.HashTimeout)

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	authService := service.NewAuthService(
		userRepository,
		emailService,
		cfg.JWTSecret,
		cfg.IsProduction(),
		cfg.JWTExpiry,
		cfg.RefreshTokenExpiry,
	)
	userService := service.NewUserService(userRepository, authService, emailService, imageStorage)
	postService := service.NewPostService(
		postRepository,
		commentRepository,
		userRepository,
		imageStorage,
		hasher,
		emailService,
	)
	messageService := service.NewMessageService(messageRepository, userRepository)
	reminderService := service.NewReminderService(
		messageRepository,
		userRepository,
		emailService,
		cfg.UnreadReminderAfter,
		cfg.UnreadReminderEvery,
	)

	return &App{
		Cfg:             cfg,
		DB:              database,
		AuthService:     authService,
		UserService:     userService,
		EmailService:    emailService,
		PostService:     postService,
		MessageService:  messageService,
		ReminderService: reminderService,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
