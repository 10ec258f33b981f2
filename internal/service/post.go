package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pixelshelf/pixelshelf/internal/imagehash"
	"github.com/pixelshelf/pixelshelf/internal/model"
	"github.com/pixelshelf/pixelshelf/internal/ranking"
	"github.com/pixelshelf/pixelshelf/internal/repository"
	"github.com/pixelshelf/pixelshelf/internal/similarity"
	"github.com/pixelshelf/pixelshelf/internal/storage"
	"github.com/pixelshelf/pixelshelf/internal/validation"
)

var (
	ErrTitleRequired  = errors.New("title is required")
	ErrTagRequired    = errors.New("at least one tag is required")
	ErrFilterRequired = errors.New("at least one filter is required")
	ErrNotPostOwner   = errors.New("post belongs to another user")
	ErrEmptyComment   = errors.New("comment text is required")
)

type PostService struct {
	postRepository    repository.PostRepository
	commentRepository repository.CommentRepository
	userRepository    repository.UserRepository
	storage           storage.Storage
	hasher            imagehash.Hasher
	emailService      *EmailService
}

func NewPostService(
	postRepository repository.PostRepository,
	commentRepository repository.CommentRepository,
	userRepository repository.UserRepository,
	storage storage.Storage,
	hasher imagehash.Hasher,
	emailService *EmailService,
) *PostService {
	return &PostService{
		postRepository:    postRepository,
		commentRepository: commentRepository,
		userRepository:    userRepository,
		storage:           storage,
		hasher:            hasher,
		emailService:      emailService,
	}
}

type CreatePostInput struct {
	Title   string
	Tags    model.TagList
	Filters model.FilterMap
	Sort    string
}

func (in *CreatePostInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return ErrTitleRequired
	}
	if len(in.Tags) == 0 {
		return ErrTagRequired
	}
	if len(in.Filters) == 0 {
		return ErrFilterRequired
	}
	if in.Sort == "" {
		in.Sort = ranking.SortRecent.String()
	}
	return nil
}

// Create validates the upload, stores the image, fingerprints it and only
// then persists the post. A post is never written without a fingerprint; if
// hashing fails the stored object is rolled back.
func (s *PostService) Create(ctx context.Context, userID string, in CreatePostInput, file multipart.File, header *multipart.FileHeader) (*model.Post, error) {
	err := in.validate()
	if err != nil {
		return nil, err
	}

	err = validation.ValidateFile(header, validation.ImageConstraints)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	key := fmt.Sprintf("images/%s%s", uuid.New().String(), filepath.Ext(header.Filename))

	err = s.storage.Save(key, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}

	fingerprint, err := s.hasher.Hash(ctx, bytes.NewReader(data))
	if err != nil {
		s.deleteObject(key)
		return nil, fmt.Errorf("failed to fingerprint image: %w", err)
	}

	now := time.Now()
	post := &model.Post{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       in.Title,
		ImageURL:    s.storage.URL(key),
		ImageKey:    key,
		ContentType: contentType,
		Fingerprint: fingerprint,
		Filters:     in.Filters,
		Tags:        in.Tags,
		Sort:        in.Sort,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.postRepository.Create(post)
	if err != nil {
		s.deleteObject(key)
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	slog.Info("post created", "post_id", post.ID, "user_id", userID)
	return post, nil
}

func (s *PostService) ByID(id string) (*model.Post, error) {
	return s.postRepository.ByID(id)
}

func (s *PostService) ByUserID(userID string) ([]*model.Post, error) {
	return s.postRepository.ByUserID(userID)
}

// Search filters posts by title, tags and filters and orders the result.
// Relevance is computed against a single clock reading so ties are stable
// within one request.
func (s *PostService) Search(criteria repository.SearchCriteria, mode ranking.SortMode) ([]*model.Post, error) {
	posts, err := s.postRepository.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search posts: %w", err)
	}

	ranking.Sort(posts, mode, time.Now())
	return posts, nil
}

// SearchByImage fingerprints the uploaded image and ranks every stored post
// by perceptual similarity to it.
func (s *PostService) SearchByImage(ctx context.Context, file multipart.File, header *multipart.FileHeader) ([]similarity.Match, error) {
	err := validation.ValidateFile(header, validation.ImageConstraints)
	if err != nil {
		return nil, err
	}

	fingerprint, err := s.hasher.Hash(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint image: %w", err)
	}

	posts, err := s.postRepository.Fingerprinted()
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}

	return similarity.Rank(fingerprint, posts), nil
}

type UpdatePostInput struct {
	Title   string
	Tags    model.TagList
	Filters model.FilterMap
	Sort    string
}

// Update edits a post's metadata and optionally replaces its image. A
// replacement image is re-fingerprinted; the old object is removed from
// storage only when no other post still references its key.
func (s *PostService) Update(ctx context.Context, userID, postID string, in UpdatePostInput, file multipart.File, header *multipart.FileHeader) (*model.Post, error) {
	post, err := s.postRepository.ByID(postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, ErrNotPostOwner
	}

	if title := strings.TrimSpace(in.Title); title != "" {
		post.Title = title
	}
	if len(in.Tags) > 0 {
		post.Tags = in.Tags
	}
	if len(in.Filters) > 0 {
		post.Filters = in.Filters
	}
	if in.Sort != "" {
		post.Sort = in.Sort
	}

	oldKey := post.ImageKey
	if file != nil && header != nil {
		err = validation.ValidateFile(header, validation.ImageConstraints)
		if err != nil {
			return nil, err
		}

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}

		contentType := header.Header.Get("Content-Type")
		key := fmt.Sprintf("images/%s%s", uuid.New().String(), filepath.Ext(header.Filename))

		err = s.storage.Save(key, contentType, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to save image: %w", err)
		}

		fingerprint, err := s.hasher.Hash(ctx, bytes.NewReader(data))
		if err != nil {
			s.deleteObject(key)
			return nil, fmt.Errorf("failed to fingerprint image: %w", err)
		}

		post.ImageURL = s.storage.URL(key)
		post.ImageKey = key
		post.ContentType = contentType
		post.Fingerprint = fingerprint
	}

	post.UpdatedAt = time.Now()
	err = s.postRepository.Update(post)
	if err != nil {
		if post.ImageKey != oldKey {
			s.deleteObject(post.ImageKey)
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	if post.ImageKey != oldKey {
		s.deleteObjectIfUnreferenced(oldKey)
	}

	return post, nil
}

// Delete removes the post and, when no other post shares the image key, the
// stored object as well.
func (s *PostService) Delete(userID, postID string) error {
	post, err := s.postRepository.ByID(postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return ErrNotPostOwner
	}

	err = s.postRepository.Delete(postID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	s.deleteObjectIfUnreferenced(post.ImageKey)

	slog.Info("post deleted", "post_id", postID, "user_id", userID)
	return nil
}

func (s *PostService) ToggleLike(postID, userID string) (bool, int, error) {
	_, err := s.postRepository.ByID(postID)
	if err != nil {
		return false, 0, err
	}
	return s.postRepository.ToggleLike(postID, userID)
}

func (s *PostService) LikedBy(postID string) ([]string, error) {
	return s.postRepository.LikedBy(postID)
}

// AddComment stores a comment and notifies the post author by email unless
// they commented on their own post. The email is best effort.
func (s *PostService) AddComment(userID, postID, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}

	post, err := s.postRepository.ByID(postID)
	if err != nil {
		return nil, err
	}

	commenter, err := s.userRepository.ByID(userID)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		ID:        uuid.New().String(),
		PostID:    postID,
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now(),
		Username:  commenter.Username,
	}

	err = s.commentRepository.Create(comment)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	if post.UserID != userID {
		author, err := s.userRepository.ByID(post.UserID)
		if err == nil {
			err = s.emailService.SendCommentNotification(author.Email, author.Username, commenter.Username, post.Title, post.ID)
			if err != nil {
				slog.Warn("failed to send comment notification", "error", err, "post_id", post.ID)
			}
		}
	}

	return comment, nil
}

func (s *PostService) Comments(postID string) ([]*model.Comment, error) {
	return s.commentRepository.ByPostID(postID)
}

// DeleteComment allows the comment author or the post owner to remove a
// comment.
func (s *PostService) DeleteComment(userID, commentID string) error {
	comment, err := s.commentRepository.ByID(commentID)
	if err != nil {
		return err
	}

	if comment.UserID != userID {
		post, err := s.postRepository.ByID(comment.PostID)
		if err != nil {
			return err
		}
		if post.UserID != userID {
			return ErrNotPostOwner
		}
	}

	return s.commentRepository.Delete(commentID)
}

// Download streams the original image bytes for a post.
func (s *PostService) Download(postID string) (io.ReadCloser, string, error) {
	post, err := s.postRepository.ByID(postID)
	if err != nil {
		return nil, "", err
	}

	body, err := s.storage.Get(post.ImageKey)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}

	return body, post.ContentType, nil
}

func (s *PostService) deleteObject(key string) {
	err := s.storage.Delete(key)
	if err != nil {
		slog.Error("failed to delete object from storage", "error", err, "key", key)
	}
}

// deleteObjectIfUnreferenced drops the stored object unless another post
// still points at the same key.
func (s *PostService) deleteObjectIfUnreferenced(key string) {
	count, err := s.postRepository.CountByImageKey(key)
	if err != nil {
		slog.Warn("failed to count image key references", "error", err, "key", key)
		return
	}
	if count > 0 {
		return
	}
	s.deleteObject(key)
}
