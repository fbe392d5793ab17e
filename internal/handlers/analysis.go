package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lehigh-university-libraries/vibetrack/internal/coordinator"
	"github.com/lehigh-university-libraries/vibetrack/internal/export"
	"github.com/lehigh-university-libraries/vibetrack/internal/models"
)

type analyzeResponse struct {
	Token     uint64        `json:"token"`
	Appending bool          `json:"appending"`
	Status    models.Status `json:"status"`
}

// HandleAnalyze starts a run and returns at once; clients poll the session.
// ?more=true asks for further songs that exclude the current results.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	more := false
	if v := r.URL.Query().Get("more"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, "invalid value for more", http.StatusBadRequest)
			return
		}
		more = parsed
	}

	run, err := session.Coordinator.StartAnalysis(r.Context(), more)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	go func(id string) {
		if outcome, err := run.Wait(context.Background()); outcome == coordinator.OutcomeFailed {
			slog.Warn("Session analysis failed", "session_id", id, "token", run.Token(), "err", err)
		}
	}(session.ID)

	h.writeJSON(w, http.StatusAccepted, analyzeResponse{
		Token:     run.Token(),
		Appending: run.Appending(),
		Status:    session.Coordinator.Snapshot().Status,
	})
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if err := session.Coordinator.Cancel(); err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view(session, nil))
}

func (h *Handler) HandleRestage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if err := session.Coordinator.Restage(); err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view(session, nil))
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	session.Coordinator.Reset()
	h.writeJSON(w, http.StatusOK, view(session, nil))
}

// HandleExport downloads the results; ?format=yaml|json|parquet, default yaml
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(export.FormatYAML)
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	snap := session.Coordinator.Snapshot()
	if snap.Status != models.StatusSuccess {
		h.writeErr(w, coordinator.ErrNoResults)
		return
	}

	report := export.Report{
		GeneratedAt: h.now().UTC(),
		Provider:    h.services.Provider,
		Model:       h.services.Model,
		Songs:       snap.Results,
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="vibetrack-`+session.ID+`.`+string(format)+`"`)
	if err := export.Write(w, format, report); err != nil {
		slog.Error("Export failed", "session_id", session.ID, "format", format, "err", err)
	}
}
