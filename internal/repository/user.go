package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pixelshelf/pixelshelf/internal/model"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateUsername = errors.New("username is already taken")
)

type UserRepository interface {
	Create(user *model.User) error
	ByID(id string) (*model.User, error)
	ByEmail(email string) (*model.User, error)
	ByUsername(username string) (*model.User, error)
	ByGoogleID(id string) (*model.User, error)
	ByGitHubID(id string) (*model.User, error)
	ByRefreshToken(token string) (*model.User, error)
	SearchByUsernamePrefix(prefix string, limit int) ([]*model.User, error)
	Update(user *model.User) error
	Delete(id string) error
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *model.User) error {
	query := `INSERT INTO users (id, username, email, password_hash, first_name, last_name,
	          google_id, github_id, is_oauth, refresh_token, avatar_url, avatar_key, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.Exec(query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.GoogleID,
		user.GitHubID,
		user.IsOAuth,
		user.RefreshToken,
		user.AvatarURL,
		user.AvatarKey,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		// Check for unique constraint violation (works for both SQLite and PostgreSQL)
		errStr := err.Error()
		if strings.Contains(errStr, "UNIQUE constraint failed") || strings.Contains(errStr, "duplicate key value") {
			if strings.Contains(errStr, "username") {
				return ErrDuplicateUsername
			}
			return ErrDuplicateEmail
		}
		return err
	}

	return nil
}

func (r *userRepository) ByID(id string) (*model.User, error) {
	return r.one(`SELECT * FROM users WHERE id = $1`, id)
}

func (r *userRepository) ByEmail(email string) (*model.User, error) {
	return r.one(`SELECT * FROM users WHERE email = $1`, email)
}

func (r *userRepository) ByUsername(username string) (*model.User, error) {
	return r.one(`SELECT * FROM users WHERE username = $1`, username)
}

func (r *userRepository) ByGoogleID(id string) (*model.User, error) {
	return r.one(`SELECT * FROM users WHERE google_id = $1`, id)
}

func (r *userRepository) ByGitHubID(id string) (*model.User, error) {
	return r.one(`SELECT * FROM users WHERE github_id = $1`, id)
}

func (r *userRepository) ByRefreshToken(token string) (*model.User, error) {
	return r.one(`SELECT * FROM users WHERE refresh_token = $1`, token)
}

func (r *userRepository) one(query string, arg any) (*model.User, error) {
	user := &model.User{}
	err := r.db.Get(user, query, arg)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (r *userRepository) SearchByUsernamePrefix(prefix string, limit int) ([]*model.User, error) {
	var users []*model.User
	query := `SELECT * FROM users WHERE LOWER(username) LIKE $1 ORDER BY username LIMIT $2`

	err := r.db.Select(&users, query, strings.ToLower(prefix)+"%", limit)
	if err != nil {
		return nil, err
	}

	return users, nil
}

func (r *userRepository) Update(user *model.User) error {
	query := `UPDATE users SET username = $1, email = $2, password_hash = $3, first_name = $4,
	          last_name = $5, google_id = $6, github_id = $7, is_oauth = $8, refresh_token = $9,
	          avatar_url = $10, avatar_key = $11, updated_at = $12
	          WHERE id = $13`

	_, err := r.db.Exec(query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.GoogleID,
		user.GitHubID,
		user.IsOAuth,
		user.RefreshToken,
		user.AvatarURL,
		user.AvatarKey,
		time.Now(),
		user.ID,
	)
	return err
}

func (r *userRepository) Delete(id string) error {
	query := `DELETE FROM users WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}
