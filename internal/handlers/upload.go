package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/lehigh-university-libraries/vibetrack/internal/models"
	"github.com/lehigh-university-libraries/vibetrack/internal/staging"
)

type uploadResponse struct {
	Images []models.ImageView `json:"images"`
	Total  int                `json:"total"`
}

// HandleUpload stages images from a multipart form (field "images") or a
// JSON body {"urls": [...]}. A request is staged whole or not at all.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var (
		uploads []staging.Upload
		err     error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		uploads, err = h.readURLUpload(r)
	} else {
		uploads, err = h.readFileUpload(r)
	}
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(uploads) == 0 {
		h.writeError(w, "no images in request", http.StatusBadRequest)
		return
	}

	added, err := session.Coordinator.AddImages(uploads...)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, uploadResponse{
		Images: added,
		Total:  len(session.Coordinator.Snapshot().Images),
	})
}

func (h *Handler) readURLUpload(r *http.Request) ([]staging.Upload, error) {
	var request struct {
		URLs []string `json:"urls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return h.fetcher.DownloadAll(r.Context(), request.URLs)
}

func (h *Handler) readFileUpload(r *http.Request) ([]staging.Upload, error) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return nil, fmt.Errorf("failed to parse upload: %w", err)
	}

	headers := r.MultipartForm.File["images"]
	uploads := make([]staging.Upload, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read file contents: %w", err)
		}
		uploads = append(uploads, staging.Upload{Name: header.Filename, Data: data})
	}
	return uploads, nil
}

func (h *Handler) HandleRemoveImage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.writeError(w, "invalid image index", http.StatusBadRequest)
		return
	}

	if err := session.Coordinator.RemoveImage(index); err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view(session, nil))
}

// HandlePreview serves the bytes behind a live preview handle of this session
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	handle := staging.HandleFromID(chi.URLParam(r, "previewID"))
	owned := false
	for _, img := range session.Coordinator.Snapshot().Images {
		if img.Preview == string(handle) {
			owned = true
			break
		}
	}

	data, mimeType, live := h.services.Previews.Open(handle)
	if !owned || !live {
		h.writeError(w, "Preview not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	if _, err := w.Write(data); err != nil {
		h.writeError(w, "Unable to write preview", http.StatusInternalServerError)
	}
}
