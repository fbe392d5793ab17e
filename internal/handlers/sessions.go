package handlers

import (
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/vibetrack/internal/models"
	"github.com/lehigh-university-libraries/vibetrack/internal/storage"
)

type sessionSummary struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Status    models.Status `json:"status"`
	Images    int           `json:"images"`
	Results   int           `json:"results"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	models.Session
	Notices []models.Notice `json:"notices,omitempty"`
}

func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionStore.GetAll()
	list := make([]sessionSummary, 0, len(sessions))
	for _, s := range sessions {
		snap := s.Coordinator.Snapshot()
		list = append(list, sessionSummary{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
			Status:    snap.Status,
			Images:    len(snap.Images),
			Results:   len(snap.Results),
		})
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	session := h.sessionStore.Create(h.services.NewCoordinator())
	h.writeJSON(w, http.StatusCreated, view(session, nil))
}

// HandleGetSession returns the session and drains its pending notices
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, view(session, session.Coordinator.DrainNotices()))
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.sessionStore.Delete(session.ID)
	w.WriteHeader(http.StatusNoContent)
}

func view(session *storage.Session, notices []models.Notice) sessionResponse {
	return sessionResponse{
		ID:        session.ID,
		CreatedAt: session.CreatedAt,
		Session:   session.Coordinator.Snapshot(),
		Notices:   notices,
	}
}
