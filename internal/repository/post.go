package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pixelshelf/pixelshelf/internal/model"
)

var ErrPostNotFound = errors.New("post not found")

// SearchCriteria narrows a post query. Zero values mean "no constraint".
// Tags match by case-insensitive equality against any element of the post's
// tag list; Filters match attribute values exactly.
type SearchCriteria struct {
	Title   string
	Tags    []string
	Filters map[string]string
}

type PostRepository interface {
	Create(post *model.Post) error
	ByID(id string) (*model.Post, error)
	ByUserID(userID string) ([]*model.Post, error)
	Search(criteria SearchCriteria) ([]*model.Post, error)
	Fingerprinted() ([]*model.Post, error)
	Update(post *model.Post) error
	Delete(id string) error
	CountByImageKey(key string) (int, error)
	ToggleLike(postID, userID string) (liked bool, total int, err error)
	LikedBy(postID string) ([]string, error)
}

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

// selectPosts joins in the author's username and the like/comment counts the
// ranking layer needs. Counts are recomputed per query, never stored.
const selectPosts = `
	SELECT p.*, u.username,
	       (SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id) AS like_count,
	       (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comment_count
	FROM posts p
	JOIN users u ON u.id = p.user_id`

func (r *postRepository) Create(post *model.Post) error {
	query := `INSERT INTO posts (id, user_id, title, image_url, image_key, content_type,
	          fingerprint, filters, tags, sort, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(query,
		post.ID,
		post.UserID,
		post.Title,
		post.ImageURL,
		post.ImageKey,
		post.ContentType,
		post.Fingerprint,
		post.Filters,
		post.Tags,
		post.Sort,
		post.CreatedAt,
		post.UpdatedAt,
	)

	return err
}

func (r *postRepository) ByID(id string) (*model.Post, error) {
	post := &model.Post{}
	query := selectPosts + ` WHERE p.id = $1`

	err := r.db.Get(post, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrPostNotFound
	}

	return post, err
}

func (r *postRepository) ByUserID(userID string) ([]*model.Post, error) {
	var posts []*model.Post
	query := selectPosts + ` WHERE p.user_id = $1 ORDER BY p.created_at DESC`

	err := r.db.Select(&posts, query, userID)
	if err != nil {
		return nil, err
	}

	return posts, nil
}

// Search filters posts by title substring, tag membership and filter
// attributes. Tags and filters live in JSON text columns, so membership is
// matched against the JSON-quoted encoding; this works identically on SQLite
// and PostgreSQL without dialect-specific JSON operators.
func (r *postRepository) Search(criteria SearchCriteria) ([]*model.Post, error) {
	var (
		clauses []string
		args    []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if criteria.Title != "" {
		clauses = append(clauses, fmt.Sprintf("LOWER(p.title) LIKE %s", arg("%"+strings.ToLower(criteria.Title)+"%")))
	}
	for _, tag := range criteria.Tags {
		clauses = append(clauses, fmt.Sprintf("LOWER(p.tags) LIKE %s", arg(`%"`+strings.ToLower(strings.TrimSpace(tag))+`"%`)))
	}
	for key, value := range criteria.Filters {
		clauses = append(clauses, fmt.Sprintf("p.filters LIKE %s", arg(`%"`+key+`":"`+value+`"%`)))
	}

	query := selectPosts
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY p.created_at DESC"

	var posts []*model.Post
	err := r.db.Select(&posts, query, args...)
	if err != nil {
		return nil, err
	}

	return posts, nil
}

// Fingerprinted returns every post carrying a fingerprint, the candidate set
// for a similarity search. Posts created before indexing existed have an
// empty fingerprint and are excluded up front.
func (r *postRepository) Fingerprinted() ([]*model.Post, error) {
	var posts []*model.Post
	query := selectPosts + ` WHERE p.fingerprint != ''`

	err := r.db.Select(&posts, query)
	if err != nil {
		return nil, err
	}

	return posts, nil
}

func (r *postRepository) Update(post *model.Post) error {
	query := `UPDATE posts SET title = $1, image_url = $2, image_key = $3, content_type = $4,
	          fingerprint = $5, filters = $6, tags = $7, sort = $8, updated_at = $9
	          WHERE id = $10`

	result, err := r.db.Exec(query,
		post.Title,
		post.ImageURL,
		post.ImageKey,
		post.ContentType,
		post.Fingerprint,
		post.Filters,
		post.Tags,
		post.Sort,
		time.Now(),
		post.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrPostNotFound
	}

	return nil
}

func (r *postRepository) Delete(id string) error {
	query := `DELETE FROM posts WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrPostNotFound
	}

	return nil
}

// CountByImageKey reports how many posts reference a stored image object.
// The stored object is only deleted when the last referencing post goes away.
func (r *postRepository) CountByImageKey(key string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM posts WHERE image_key = $1`
	err := r.db.QueryRow(query, key).Scan(&count)
	return count, err
}

func (r *postRepository) ToggleLike(postID, userID string) (bool, int, error) {
	var exists int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM likes WHERE post_id = $1 AND user_id = $2`, postID, userID).Scan(&exists)
	if err != nil {
		return false, 0, err
	}

	liked := exists == 0
	if liked {
		_, err = r.db.Exec(`INSERT INTO likes (post_id, user_id, created_at) VALUES ($1, $2, $3)`, postID, userID, time.Now())
	} else {
		_, err = r.db.Exec(`DELETE FROM likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	}
	if err != nil {
		return false, 0, err
	}

	var total int
	err = r.db.QueryRow(`SELECT COUNT(*) FROM likes WHERE post_id = $1`, postID).Scan(&total)
	return liked, total, err
}

func (r *postRepository) LikedBy(postID string) ([]string, error) {
	var userIDs []string
	err := r.db.Select(&userIDs, `SELECT user_id FROM likes WHERE post_id = $1 ORDER BY created_at`, postID)
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}
