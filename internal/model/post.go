package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FilterMap holds a post's free-form filter attributes (assetType, color,
// style, orientation, ...). The vocabulary is open; keys and values are not
// validated beyond being non-empty. Stored as a JSON object column.
type FilterMap map[string]string

func (f FilterMap) Value() (driver.Value, error) {
	if f == nil {
		return "{}", nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (f *FilterMap) Scan(src any) error {
	return scanJSON(src, f)
}

// TagList is an ordered list of tags. Duplicates are allowed. Stored as a
// JSON array column.
type TagList []string

func (t TagList) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *TagList) Scan(src any) error {
	return scanJSON(src, t)
}

func scanJSON(src, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("cannot scan %T into JSON column", src)
	}
}

type Post struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"userId"`
	Title       string    `db:"title" json:"title"`
	ImageURL    string    `db:"image_url" json:"imageUrl"`
	ImageKey    string    `db:"image_key" json:"imageKey"`
	ContentType string    `db:"content_type" json:"contentType"`
	Fingerprint string    `db:"fingerprint" json:"-"`
	Filters     FilterMap `db:"filters" json:"filters"`
	Tags        TagList   `db:"tags" json:"tags"`
	Sort        string    `db:"sort" json:"sort"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`

	// Computed fields joined in by queries, not columns on posts
	LikeCount    int    `db:"like_count" json:"likeCount"`
	CommentCount int    `db:"comment_count" json:"commentCount"`
	Username     string `db:"username" json:"username,omitempty"`
	AvatarURL    string `db:"-" json:"avatarUrl,omitempty"`
}
