package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/pixelshelf/pixelshelf/internal/ctxkeys"
	"github.com/pixelshelf/pixelshelf/internal/imagehash"
	"github.com/pixelshelf/pixelshelf/internal/model"
	"github.com/pixelshelf/pixelshelf/internal/ranking"
	"github.com/pixelshelf/pixelshelf/internal/repository"
	"github.com/pixelshelf/pixelshelf/internal/service"
	"github.com/pixelshelf/pixelshelf/internal/validation"
)

type postHandler struct {
	postService   *service.PostService
	maxUploadSize int64
}

func NewPostHandler(postService *service.PostService, maxUploadSize int64) *postHandler {
	return &postHandler{
		postService:   postService,
		maxUploadSize: maxUploadSize,
	}
}

// Create handles a multipart post upload: image file plus title, tags,
// filters and sort fields. Tags and filters arrive as JSON-encoded form
// values.
func (h *postHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	file, header, ok := h.formImage(w, r, "image", true)
	if !ok {
		return
	}
	defer func() { _ = file.Close() }()

	in := service.CreatePostInput{
		Title: r.FormValue("title"),
		Sort:  r.FormValue("sort"),
	}

	if raw := r.FormValue("tags"); raw != "" {
		err := json.Unmarshal([]byte(raw), &in.Tags)
		if err != nil {
			respondError(w, http.StatusBadRequest, "tags must be a JSON array of strings")
			return
		}
	}
	if raw := r.FormValue("filters"); raw != "" {
		err := json.Unmarshal([]byte(raw), &in.Filters)
		if err != nil {
			respondError(w, http.StatusBadRequest, "filters must be a JSON object")
			return
		}
	}

	post, err := h.postService.Create(r.Context(), user.ID, in, file, header)
	if err != nil {
		h.respondPostError(w, err, "failed to create post")
		return
	}

	respondJSON(w, http.StatusCreated, post)
}

// List returns the feed, filtered by the title, tag and filter query
// parameters and ordered by the sort mode.
func (h *postHandler) List(w http.ResponseWriter, r *http.Request) {
	criteria := repository.SearchCriteria{
		Title: r.URL.Query().Get("title"),
		Tags:  r.URL.Query()["tag"],
	}

	// Filters arrive as repeated filter=key:value pairs
	for _, raw := range r.URL.Query()["filter"] {
		key, value, found := strings.Cut(raw, ":")
		if !found || key == "" || value == "" {
			respondError(w, http.StatusBadRequest, "filter must be key:value")
			return
		}
		if criteria.Filters == nil {
			criteria.Filters = model.FilterMap{}
		}
		criteria.Filters[key] = value
	}

	mode := ranking.ParseSortMode(r.URL.Query().Get("sort"))

	posts, err := h.postService.Search(criteria, mode)
	if err != nil {
		slog.Error("post search failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load posts")
		return
	}

	respondJSON(w, http.StatusOK, posts)
}

type postDetailResponse struct {
	Post     *model.Post      `json:"post"`
	Comments []*model.Comment `json:"comments"`
	LikedBy  []string         `json:"likedBy"`
}

func (h *postHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	post, err := h.postService.ByID(id)
	if err != nil {
		h.respondPostError(w, err, "failed to load post")
		return
	}

	comments, err := h.postService.Comments(id)
	if err != nil {
		slog.Error("failed to load comments", "error", err, "post_id", id)
		respondError(w, http.StatusInternalServerError, "failed to load post")
		return
	}

	likedBy, err := h.postService.LikedBy(id)
	if err != nil {
		slog.Error("failed to load likes", "error", err, "post_id", id)
		respondError(w, http.StatusInternalServerError, "failed to load post")
		return
	}

	respondJSON(w, http.StatusOK, postDetailResponse{
		Post:     post,
		Comments: comments,
		LikedBy:  likedBy,
	})
}

func (h *postHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	id := r.PathValue("id")

	file, header, ok := h.formImage(w, r, "image", false)
	if !ok {
		return
	}
	if file != nil {
		defer func() { _ = file.Close() }()
	}

	in := service.UpdatePostInput{
		Title: r.FormValue("title"),
		Sort:  r.FormValue("sort"),
	}

	if raw := r.FormValue("tags"); raw != "" {
		err := json.Unmarshal([]byte(raw), &in.Tags)
		if err != nil {
			respondError(w, http.StatusBadRequest, "tags must be a JSON array of strings")
			return
		}
	}
	if raw := r.FormValue("filters"); raw != "" {
		err := json.Unmarshal([]byte(raw), &in.Filters)
		if err != nil {
			respondError(w, http.StatusBadRequest, "filters must be a JSON object")
			return
		}
	}

	post, err := h.postService.Update(r.Context(), user.ID, id, in, file, header)
	if err != nil {
		h.respondPostError(w, err, "failed to update post")
		return
	}

	respondJSON(w, http.StatusOK, post)
}

func (h *postHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	id := r.PathValue("id")

	err := h.postService.Delete(user.ID, id)
	if err != nil {
		h.respondPostError(w, err, "failed to delete post")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *postHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	id := r.PathValue("id")

	liked, total, err := h.postService.ToggleLike(id, user.ID)
	if err != nil {
		h.respondPostError(w, err, "failed to toggle like")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"liked":     liked,
		"likeCount": total,
	})
}

func (h *postHandler) Comments(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	comments, err := h.postService.Comments(id)
	if err != nil {
		slog.Error("failed to load comments", "error", err, "post_id", id)
		respondError(w, http.StatusInternalServerError, "failed to load comments")
		return
	}

	respondJSON(w, http.StatusOK, comments)
}

func (h *postHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	id := r.PathValue("id")

	var req struct {
		Text string `json:"text"`
	}
	err := decodeJSON(r, &req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	comment, err := h.postService.AddComment(user.ID, id, req.Text)
	if err != nil {
		if errors.Is(err, service.ErrEmptyComment) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.respondPostError(w, err, "failed to add comment")
		return
	}

	respondJSON(w, http.StatusCreated, comment)
}

func (h *postHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	id := r.PathValue("id")

	err := h.postService.DeleteComment(user.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.respondPostError(w, err, "failed to delete comment")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// SearchByImage ranks all posts by perceptual similarity to the uploaded
// image.
func (h *postHandler) SearchByImage(w http.ResponseWriter, r *http.Request) {
	file, header, ok := h.formImage(w, r, "image", true)
	if !ok {
		return
	}
	defer func() { _ = file.Close() }()

	matches, err := h.postService.SearchByImage(r.Context(), file, header)
	if err != nil {
		switch {
		case errors.Is(err, imagehash.ErrHashingFailure):
			respondError(w, http.StatusUnprocessableEntity, "image could not be processed")
		case errors.Is(err, validation.ErrInvalidFile):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("image search failed", "error", err)
			respondError(w, http.StatusInternalServerError, "image search failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, matches)
}

// Download proxies the original image bytes.
func (h *postHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	body, contentType, err := h.postService.Download(id)
	if err != nil {
		h.respondPostError(w, err, "failed to download image")
		return
	}
	defer func() { _ = body.Close() }()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment")
	_, err = io.Copy(w, body)
	if err != nil {
		slog.Warn("image download interrupted", "error", err, "post_id", id)
	}
}

// formImage parses the multipart form and pulls out the image file. When
// required is false a missing file is fine and returns nil.
func (h *postHandler) formImage(w http.ResponseWriter, r *http.Request, field string, required bool) (multipart.File, *multipart.FileHeader, bool) {
	err := r.ParseMultipartForm(h.maxUploadSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return nil, nil, false
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		if !required && errors.Is(err, http.ErrMissingFile) {
			return nil, nil, true
		}
		respondError(w, http.StatusBadRequest, "image file is required")
		return nil, nil, false
	}

	return file, header, true
}

func (h *postHandler) respondPostError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrPostNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotPostOwner):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrTagRequired),
		errors.Is(err, service.ErrFilterRequired):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, validation.ErrInvalidFile):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, imagehash.ErrHashingFailure):
		respondError(w, http.StatusUnprocessableEntity, "image could not be processed")
	default:
		slog.Error(fallback, "error", err)
		respondError(w, http.StatusInternalServerError, fallback)
	}
}
