package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/scangate/qrlogin-server-go/internal/errors"
	"github.com/scangate/qrlogin-server-go/internal/middleware"
	"github.com/scangate/qrlogin-server-go/internal/service"
	"github.com/scangate/qrlogin-server-go/internal/store"
)

type contentRequest struct {
	Content string `json:"content"`
}

type FeedHandler struct {
	feed *service.FeedService
}

func NewFeedHandler(feed *service.FeedService) *FeedHandler {
	return &FeedHandler{feed: feed}
}

func (h *FeedHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListPosts)
	r.Post("/", h.CreatePost)
	r.Post("/{postID}/comments", h.AddComment)

	return r
}

// GET /api/posts
func (h *FeedHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.feed.ListPosts())
}

// POST /api/posts
func (h *FeedHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.Content == "" {
		writeError(w, apperrors.MissingRequired("content"))
		return
	}

	post := h.feed.CreatePost(middleware.GetUser(r.Context()), req.Content)

	writeJSON(w, http.StatusCreated, post)
}

// POST /api/posts/{postID}/comments
func (h *FeedHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.Atoi(chi.URLParam(r, "postID"))
	if err != nil {
		writeError(w, apperrors.InvalidInput("post id", "must be an integer"))
		return
	}

	var req contentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.Content == "" {
		writeError(w, apperrors.MissingRequired("content"))
		return
	}

	comment, err := h.feed.AddComment(postID, middleware.GetUser(r.Context()), req.Content)
	if err != nil {
		if errors.Is(err, store.ErrPostNotFound) {
			writeError(w, apperrors.NotFound("Post"))
			return
		}
		writeError(w, apperrors.Internal("Failed to add comment"))
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}
