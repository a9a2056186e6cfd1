package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/khanhnotech/congdongacf-gateway/internal/feed"
	"github.com/khanhnotech/congdongacf-gateway/internal/remote"
	"github.com/khanhnotech/congdongacf-gateway/internal/store"
	"github.com/khanhnotech/congdongacf-gateway/internal/ws"
)

// Server owns the HTTP handlers. All domain work is delegated to the feed
// service; handlers translate requests, identities and errors.
type Server struct {
	feed   *feed.Service
	hub    *ws.Hub
	stores *store.Stores
	logger *zap.SugaredLogger
}

func NewServer(feedSvc *feed.Service, hub *ws.Hub, stores *store.Stores, logger *zap.SugaredLogger) *Server {
	return &Server{feed: feedSvc, hub: hub, stores: stores, logger: logger}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

// respondError maps the error taxonomy onto HTTP statuses. Upstream
// rejections keep their status and sanitized message; everything else gets a
// generic body so internals never leak.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	var apiErr *remote.APIError
	var decodeErr *remote.DecodeError

	switch {
	case errors.Is(err, remote.ErrEmptyContent):
		writeError(w, http.StatusUnprocessableEntity, "empty_content", "comment content must not be empty")
	case errors.Is(err, feed.ErrUnknownCollection):
		writeError(w, http.StatusNotFound, "unknown_collection", "unknown feed collection")
	case errors.As(err, &apiErr):
		message := apiErr.Message
		if message == "" {
			message = "request failed"
		}
		code := apiErr.Code
		if code == "" {
			code = "upstream_rejected"
		}
		writeError(w, apiErr.Status, code, message)
	case errors.As(err, &decodeErr):
		s.logger.Errorw("upstream response unintelligible", "op", decodeErr.Op, "err", decodeErr.Err)
		writeError(w, http.StatusBadGateway, "bad_upstream", "upstream returned an unreadable response")
	default:
		s.logger.Errorw("request failed", "err", err)
		writeError(w, http.StatusServiceUnavailable, "unavailable", "request failed, try again")
	}
}

var feedCollections = map[string]string{
	"list":  feed.CollectionList,
	"trend": feed.CollectionTrend,
	"new":   feed.CollectionNew,
}

func feedFilters(r *http.Request) map[string]string {
	filters := map[string]string{}
	topic := r.URL.Query().Get("topic_id")
	if topic == "" {
		topic = r.URL.Query().Get("topic")
	}
	if topic != "" {
		filters["topic"] = topic
	}
	if q := r.URL.Query().Get("q"); q != "" {
		filters["q"] = q
	}
	return filters
}

func feedLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return n
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	collection, ok := feedCollections[chi.URLParam(r, "list")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_collection", "unknown feed collection")
		return
	}
	id := callerIdentity(r)

	view, err := s.feed.Feed(r.Context(), id.Token, id.UserID, collection, feedLimit(r), feedFilters(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleFeedMore(w http.ResponseWriter, r *http.Request) {
	collection, ok := feedCollections[chi.URLParam(r, "list")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_collection", "unknown feed collection")
		return
	}
	id := callerIdentity(r)

	view, err := s.feed.LoadMore(r.Context(), id.Token, id.UserID, collection, feedLimit(r), feedFilters(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleFeedRefresh(w http.ResponseWriter, r *http.Request) {
	collection, ok := feedCollections[chi.URLParam(r, "list")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_collection", "unknown feed collection")
		return
	}
	id := callerIdentity(r)

	view, err := s.feed.Refresh(r.Context(), id.Token, id.UserID, collection, feedLimit(r), feedFilters(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	idOrSlug := chi.URLParam(r, "idOrSlug")
	if idOrSlug == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "article id or slug is required")
		return
	}
	id := callerIdentity(r)

	article, err := s.feed.Article(r.Context(), id.Token, id.UserID, idOrSlug)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r)
	if !id.authenticated() {
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in to like")
		return
	}
	articleID, err := strconv.ParseInt(chi.URLParam(r, "idOrSlug"), 10, 64)
	if err != nil || articleID <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "numeric article id is required")
		return
	}

	res, err := s.feed.Like(r.Context(), id.Token, id.UserID, articleID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r)
	slug := chi.URLParam(r, "idOrSlug")
	if slug == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "article slug is required")
		return
	}

	res, err := s.feed.Share(r.Context(), id.Token, slug)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	articleID, err := strconv.ParseInt(chi.URLParam(r, "idOrSlug"), 10, 64)
	if err != nil || articleID <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "numeric article id is required")
		return
	}

	var parentID *int64
	if raw := r.URL.Query().Get("parent_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "parent_id must be numeric")
			return
		}
		parentID = &parsed
	}
	more, _ := strconv.ParseBool(r.URL.Query().Get("more"))

	view, err := s.feed.Comments(r.Context(), articleID, parentID, more)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type createCommentRequest struct {
	Content  string `json:"content"`
	ParentID *int64 `json:"parentId"`
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r)
	if !id.authenticated() {
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in to comment")
		return
	}
	articleID, err := strconv.ParseInt(chi.URLParam(r, "idOrSlug"), 10, 64)
	if err != nil || articleID <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "numeric article id is required")
		return
	}

	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	comment, err := s.feed.CreateComment(r.Context(), id.Token, articleID, req.Content, req.ParentID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleTopMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.feed.TopMembers(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	memberID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || memberID <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "numeric member id is required")
		return
	}
	id := callerIdentity(r)

	member, err := s.feed.Profile(r.Context(), id.Token, memberID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r)
	if !id.authenticated() {
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in to follow")
		return
	}
	memberID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || memberID <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "numeric member id is required")
		return
	}

	res, err := s.feed.Follow(r.Context(), id.Token, memberID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.feed.Topics(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.feed.Events(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	id := callerIdentity(r)
	if !id.authenticated() {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not signed in")
		return
	}
	if err := s.feed.Logout(r.Context(), id.UserID); err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.stores.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "stores unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ready",
		"inMemory": s.stores.InMemoryMode(),
	})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}
