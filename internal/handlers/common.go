package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/lehigh-university-libraries/vibetrack/internal/app"
	"github.com/lehigh-university-libraries/vibetrack/internal/coordinator"
	"github.com/lehigh-university-libraries/vibetrack/internal/export"
	"github.com/lehigh-university-libraries/vibetrack/internal/images"
	"github.com/lehigh-university-libraries/vibetrack/internal/staging"
	"github.com/lehigh-university-libraries/vibetrack/internal/storage"
)

// DefaultMaxUploadBytes bounds one upload request
const DefaultMaxUploadBytes = 32 << 20

type Handler struct {
	sessionStore   *storage.SessionStore
	services       *app.Services
	fetcher        *images.Fetcher
	maxUploadBytes int64
	now            func() time.Time
}

func New(services *app.Services, sessions *storage.SessionStore, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	fetcher := images.NewFetcher()
	fetcher.MaxBytes = maxUploadBytes

	return &Handler{
		sessionStore:   sessions,
		services:       services,
		fetcher:        fetcher,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	} else {
		slog.Debug("Request rejected", "status", code, "reason", message)
	}
	h.writeJSON(w, code, errorResponse{Error: message})
}

// writeErr maps domain errors to status codes
func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	h.writeError(w, err.Error(), statusFor(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, staging.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, coordinator.ErrNoImages),
		errors.Is(err, staging.ErrNotImage),
		errors.Is(err, export.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, coordinator.ErrBusy),
		errors.Is(err, coordinator.ErrNotAnalyzing),
		errors.Is(err, coordinator.ErrNoResults),
		errors.Is(err, coordinator.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, coordinator.ErrClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request) (*storage.Session, bool) {
	session, exists := h.sessionStore.Get(chi.URLParam(r, "sessionID"))
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}
