package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/pixelshelf/pixelshelf/internal/model"
	"github.com/pixelshelf/pixelshelf/internal/repository"
)

// fakeStorage keeps objects in memory and records deletions.
type fakeStorage struct {
	objects map[string][]byte
	deleted []string
	saveErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (s *fakeStorage) Save(key, contentType string, body io.Reader) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *fakeStorage) Get(key string) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStorage) Delete(key string) error {
	s.deleted = append(s.deleted, key)
	delete(s.objects, key)
	return nil
}

func (s *fakeStorage) URL(key string) string {
	return "https://cdn.test/" + key
}

// fakeHasher returns a canned fingerprint and counts invocations.
type fakeHasher struct {
	fingerprint string
	err         error
	calls       int
}

func (h *fakeHasher) Hash(ctx context.Context, r io.Reader) (string, error) {
	h.calls++
	if h.err != nil {
		return "", h.err
	}
	return h.fingerprint, nil
}

// fakePostRepo is an in-memory PostRepository.
type fakePostRepo struct {
	posts     map[string]*model.Post
	createErr error
	likes     map[string]map[string]bool
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: map[string]*model.Post{}, likes: map[string]map[string]bool{}}
}

func (r *fakePostRepo) Create(post *model.Post) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.posts[post.ID] = post
	return nil
}

func (r *fakePostRepo) ByID(id string) (*model.Post, error) {
	post, ok := r.posts[id]
	if !ok {
		return nil, repository.ErrPostNotFound
	}
	return post, nil
}

func (r *fakePostRepo) ByUserID(userID string) ([]*model.Post, error) {
	var out []*model.Post
	for _, p := range r.posts {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePostRepo) Search(criteria repository.SearchCriteria) ([]*model.Post, error) {
	var out []*model.Post
	for _, p := range r.posts {
		if criteria.Title != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(criteria.Title)) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *fakePostRepo) Fingerprinted() ([]*model.Post, error) {
	var out []*model.Post
	for _, p := range r.posts {
		if p.Fingerprint != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePostRepo) Update(post *model.Post) error {
	if _, ok := r.posts[post.ID]; !ok {
		return repository.ErrPostNotFound
	}
	r.posts[post.ID] = post
	return nil
}

func (r *fakePostRepo) Delete(id string) error {
	if _, ok := r.posts[id]; !ok {
		return repository.ErrPostNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *fakePostRepo) CountByImageKey(key string) (int, error) {
	count := 0
	for _, p := range r.posts {
		if p.ImageKey == key {
			count++
		}
	}
	return count, nil
}

func (r *fakePostRepo) ToggleLike(postID, userID string) (bool, int, error) {
	if r.likes[postID] == nil {
		r.likes[postID] = map[string]bool{}
	}
	liked := !r.likes[postID][userID]
	if liked {
		r.likes[postID][userID] = true
	} else {
		delete(r.likes[postID], userID)
	}
	return liked, len(r.likes[postID]), nil
}

func (r *fakePostRepo) LikedBy(postID string) ([]string, error) {
	var out []string
	for userID := range r.likes[postID] {
		out = append(out, userID)
	}
	return out, nil
}

// fakeCommentRepo is an in-memory CommentRepository.
type fakeCommentRepo struct {
	comments map[string]*model.Comment
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{comments: map[string]*model.Comment{}}
}

func (r *fakeCommentRepo) Create(comment *model.Comment) error {
	r.comments[comment.ID] = comment
	return nil
}

func (r *fakeCommentRepo) ByID(id string) (*model.Comment, error) {
	comment, ok := r.comments[id]
	if !ok {
		return nil, repository.ErrCommentNotFound
	}
	return comment, nil
}

func (r *fakeCommentRepo) ByPostID(postID string) ([]*model.Comment, error) {
	var out []*model.Comment
	for _, c := range r.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCommentRepo) CountByPostID(postID string) (int, error) {
	list, _ := r.ByPostID(postID)
	return len(list), nil
}

func (r *fakeCommentRepo) Delete(id string) error {
	if _, ok := r.comments[id]; !ok {
		return repository.ErrCommentNotFound
	}
	delete(r.comments, id)
	return nil
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	users map[string]*model.User
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]*model.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(user *model.User) error {
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
		if u.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) ByID(id string) (*model.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) ByEmail(email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) ByUsername(username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) ByGoogleID(id string) (*model.User, error) {
	for _, u := range r.users {
		if u.GoogleID != nil && *u.GoogleID == id {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) ByGitHubID(id string) (*model.User, error) {
	for _, u := range r.users {
		if u.GitHubID != nil && *u.GitHubID == id {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) ByRefreshToken(token string) (*model.User, error) {
	for _, u := range r.users {
		if u.RefreshToken != nil && *u.RefreshToken == token {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) SearchByUsernamePrefix(prefix string, limit int) ([]*model.User, error) {
	var out []*model.User
	for _, u := range r.users {
		if strings.HasPrefix(strings.ToLower(u.Username), strings.ToLower(prefix)) {
			out = append(out, u)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Update(user *model.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Delete(id string) error {
	if _, ok := r.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

// fakeMessageRepo is an in-memory MessageRepository.
type fakeMessageRepo struct {
	messages []*model.Message
	notified []string
}

func (r *fakeMessageRepo) Create(message *model.Message) error {
	r.messages = append(r.messages, message)
	return nil
}

func (r *fakeMessageRepo) ByID(id string) (*model.Message, error) {
	for _, m := range r.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, repository.ErrMessageNotFound
}

func (r *fakeMessageRepo) Conversation(userID, otherID string) ([]*model.Message, error) {
	var out []*model.Message
	for _, m := range r.messages {
		if (m.SenderID == userID && m.ReceiverID == otherID) ||
			(m.SenderID == otherID && m.ReceiverID == userID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) ByUser(userID string) ([]*model.Message, error) {
	var out []*model.Message
	for i := len(r.messages) - 1; i >= 0; i-- {
		m := r.messages[i]
		if m.SenderID == userID || m.ReceiverID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) MarkRead(receiverID, senderID string) (int, error) {
	count := 0
	for _, m := range r.messages {
		if m.ReceiverID == receiverID && m.SenderID == senderID && !m.IsRead {
			m.IsRead = true
			count++
		}
	}
	return count, nil
}

func (r *fakeMessageRepo) CountUnread(receiverID, senderID string) (int, error) {
	count := 0
	for _, m := range r.messages {
		if m.ReceiverID == receiverID && m.SenderID == senderID && !m.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeMessageRepo) UnreadUnnotifiedBefore(cutoff time.Time) ([]*model.Message, error) {
	var out []*model.Message
	for _, m := range r.messages {
		if !m.IsRead && !m.Notified && m.CreatedAt.Before(cutoff) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) MarkNotified(ids []string) error {
	r.notified = append(r.notified, ids...)
	for _, m := range r.messages {
		for _, id := range ids {
			if m.ID == id {
				m.Notified = true
			}
		}
	}
	return nil
}

// multipartImage builds a real multipart file and header from raw bytes.
func multipartImage(filename string, data []byte) (multipart.File, *multipart.FileHeader, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, nil, err
	}
	_, err = part.Write(data)
	if err != nil {
		return nil, nil, err
	}
	err = writer.Close()
	if err != nil {
		return nil, nil, err
	}

	reader := multipart.NewReader(&buf, writer.Boundary())
	form, err := reader.ReadForm(32 << 20)
	if err != nil {
		return nil, nil, err
	}

	header := form.File["image"][0]
	file, err := header.Open()
	if err != nil {
		return nil, nil, err
	}
	return file, header, nil
}
