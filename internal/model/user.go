package model

import (
	"time"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash *string   `db:"password_hash" json:"-"` // Nullable for OAuth users
	FirstName    string    `db:"first_name" json:"firstName"`
	LastName     string    `db:"last_name" json:"lastName"`
	GoogleID     *string   `db:"google_id" json:"-"`
	GitHubID     *string   `db:"github_id" json:"-"`
	IsOAuth      bool      `db:"is_oauth" json:"isOAuth"`
	RefreshToken *string   `db:"refresh_token" json:"-"`
	AvatarURL    *string   `db:"avatar_url" json:"avatarUrl"`
	AvatarKey    *string   `db:"avatar_key" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
