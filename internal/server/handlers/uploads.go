package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/camazac/realty/internal/server/uploads"
)

// UploadHandler отдает загруженные изображения
type UploadHandler struct {
	responder
	pipeline *uploads.Pipeline
}

// NewUploadHandler создает handler для /uploads
func NewUploadHandler(logger *slog.Logger, pipeline *uploads.Pipeline) *UploadHandler {
	return &UploadHandler{
		responder: responder{logger: logger},
		pipeline:  pipeline,
	}
}

// Serve обрабатывает GET /uploads/{filename}
func (h *UploadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.PathValue("filename")

	rc, err := h.pipeline.Open(ctx, name)
	if err != nil {
		if errors.Is(err, uploads.ErrNotFound) {
			h.sendError(w, "File not found", http.StatusNotFound)
			return
		}
		h.sendInternal(r, w, "failed to open upload", err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", uploads.ContentTypeByName(name))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WarnContext(ctx, "failed to send upload", slog.String("name", name), slog.Any("error", err))
	}
}
