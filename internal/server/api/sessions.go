// Package api provides the HTTP handlers for recognizer sessions.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
)

// Config holds the dependencies of the session API. Store is required.
type Config struct {
	Store    *store.Store
	Defaults gesture.Config
	Options  session.Options

	// TTL evicts sessions that received no request for this long.
	TTL          time.Duration
	MaxBodyBytes int64
}

// SessionHandler serves /api/sessions. Live recognizers are kept in an
// expiring cache; the store keeps the history after they are gone.
type SessionHandler struct {
	store    *store.Store
	defaults gesture.Config
	opts     session.Options
	metrics  *metrics.Metrics
	maxBody  int64
	live     *cache.Cache
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(cfg Config) *SessionHandler {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	h := &SessionHandler{
		store:    cfg.Store,
		defaults: cfg.Defaults,
		opts:     cfg.Options,
		metrics:  cfg.Options.Metrics,
		maxBody:  maxBody,
		live:     cache.New(ttl, ttl/2),
	}
	h.live.OnEvicted(h.onEvicted)
	return h
}

// onEvicted runs for expired and deleted sessions alike.
func (h *SessionHandler) onEvicted(id string, _ interface{}) {
	if h.metrics != nil {
		h.metrics.ActiveSessions.Dec()
	}
	if err := h.store.Sessions().End(id); err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("failed to end session", "session", id, "error", err)
		return
	}
	slog.Info("session closed", "session", id)
}

// Live returns the number of live sessions.
func (h *SessionHandler) Live() int {
	return h.live.ItemCount()
}

// Close ends every live session.
func (h *SessionHandler) Close() {
	for id := range h.live.Items() {
		h.live.Delete(id)
	}
}

func (h *SessionHandler) lookup(id string) (*session.Session, bool) {
	v, ok := h.live.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*session.Session), true
}

// touch restarts the session's idle timer. A session evicted meanwhile stays evicted.
func (h *SessionHandler) touch(s *session.Session) {
	_ = h.live.Replace(s.ID(), s, cache.DefaultExpiration)
}

// ServeHTTP routes:
//
//	GET|POST /api/sessions
//	GET|DELETE /api/sessions/{id}
//	POST /api/sessions/{id}/frames
//	POST /api/sessions/{id}/reset
//	GET /api/sessions/{id}/events
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id, action, _ := strings.Cut(path, "/")
	switch {
	case action == "" && r.Method == http.MethodGet:
		h.get(w, r, id)
	case action == "" && r.Method == http.MethodDelete:
		h.delete(w, r, id)
	case action == "frames" && r.Method == http.MethodPost:
		h.frames(w, r, id)
	case action == "reset" && r.Method == http.MethodPost:
		h.reset(w, r, id)
	case action == "events" && r.Method == http.MethodGet:
		h.events(w, r, id)
	case action == "" || action == "frames" || action == "reset" || action == "events":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Request and response types

type createSessionRequest struct {
	Config gesture.Config `json:"config"`
}

type sessionResponse struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	Active    bool           `json:"active"`
	Config    gesture.Config `json:"config"`
	CreatedAt string         `json:"created_at"`
	EndedAt   string         `json:"ended_at,omitempty"`
}

type liveSessionResponse struct {
	ID        string          `json:"id"`
	Config    gesture.Config  `json:"config"`
	Confirmed gesture.Label   `json:"confirmed"`
	History   []gesture.Label `json:"history"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type frameRequest struct {
	Hands []landmark.HandLandmarks `json:"hands"`
}

type frameResponse struct {
	Raw       gesture.Label `json:"raw"`
	Confirmed gesture.Label `json:"confirmed"`
	Changed   bool          `json:"changed"`
	Hands     int           `json:"hands"`
}

type eventResponse struct {
	ID        int64  `json:"id"`
	Label     string `json:"label"`
	Raw       string `json:"raw"`
	Hands     int    `json:"hands"`
	CreatedAt string `json:"created_at"`
}

type listEventsResponse struct {
	Events []eventResponse `json:"events"`
}

type errorResponse struct {
	Error string `json:"error"`
	Hand  *int   `json:"hand,omitempty"`
	Field string `json:"field,omitempty"`
}

func toSessionResponse(s *store.Session, live bool) sessionResponse {
	resp := sessionResponse{
		ID:     s.ID,
		Source: s.Source,
		Active: live && s.Active(),
		Config: gesture.Config{
			WindowSize:          s.WindowSize,
			MajorityThreshold:   s.MajorityThreshold,
			ThumbThreshold:      s.ThumbThreshold,
			HandProximity:       s.HandProximity,
			ThumbVerticalMargin: s.ThumbVerticalMargin,
		},
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	}
	if s.EndedAt != nil {
		resp.EndedAt = s.EndedAt.Format(time.RFC3339)
	}
	return resp
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/sessions.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		live, ok := h.lookup(s.ID)
		resp := toSessionResponse(s, ok)
		if ok {
			resp.Config = live.Config()
		}
		response.Sessions = append(response.Sessions, resp)
	}
	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/sessions. The optional config overrides the defaults field by field.
func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	req := createSessionRequest{Config: h.defaults}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	s, err := session.New(uuid.NewString(), store.SourceAPI, req.Config, h.opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec := s.Record()
	if err := h.store.Sessions().Create(rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	h.live.Set(s.ID(), s, cache.DefaultExpiration)
	if h.metrics != nil {
		h.metrics.ActiveSessions.Inc()
	}
	slog.Info("session created", "session", s.ID(), "window", req.Config.WindowSize, "threshold", req.Config.MajorityThreshold)

	resp := toSessionResponse(rec, true)
	resp.Config = s.Config()
	writeJSON(w, http.StatusCreated, resp)
}

// get handles GET /api/sessions/{id} and returns the live recognizer state.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	s, ok := h.lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, liveSessionResponse{
		ID:        s.ID(),
		Config:    s.Config(),
		Confirmed: s.Confirmed(),
		History:   s.History(),
	})
}

// delete handles DELETE /api/sessions/{id}. Live sessions are evicted;
// sessions that already expired are only marked ended.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.lookup(id); ok {
		h.live.Delete(id)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.store.Sessions().End(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// frames handles POST /api/sessions/{id}/frames.
func (h *SessionHandler) frames(w http.ResponseWriter, r *http.Request, id string) {
	s, ok := h.lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	var req frameRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	res, err := s.Process(req.Hands)
	h.touch(s)
	if err != nil {
		var inv *gesture.InvalidInputError
		if errors.As(err, &inv) {
			resp := errorResponse{Error: err.Error(), Field: inv.Field}
			if inv.Hand >= 0 {
				hand := inv.Hand
				resp.Hand = &hand
			}
			writeJSON(w, http.StatusBadRequest, resp)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to process frame")
		return
	}

	writeJSON(w, http.StatusOK, frameResponse{
		Raw:       res.Raw,
		Confirmed: res.Confirmed,
		Changed:   res.Changed,
		Hands:     res.Hands,
	})
}

// reset handles POST /api/sessions/{id}/reset.
func (h *SessionHandler) reset(w http.ResponseWriter, r *http.Request, id string) {
	s, ok := h.lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	s.Reset()
	h.touch(s)
	w.WriteHeader(http.StatusNoContent)
}

// events handles GET /api/sessions/{id}/events?limit=N.
func (h *SessionHandler) events(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	evts, err := h.store.Events().ListBySession(id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	response := listEventsResponse{Events: make([]eventResponse, 0, len(evts))}
	for _, e := range evts {
		response.Events = append(response.Events, eventResponse{
			ID:        e.ID,
			Label:     e.Label,
			Raw:       e.RawLabel,
			Hands:     e.Hands,
			CreatedAt: e.CreatedAt.Format(time.RFC3339Nano),
		})
	}
	writeJSON(w, http.StatusOK, response)
}
