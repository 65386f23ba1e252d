package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/camazac/realty/internal/models"
	"github.com/camazac/realty/internal/server/properties"
	"github.com/camazac/realty/internal/server/storage"
	"github.com/camazac/realty/internal/server/uploads"
	"github.com/camazac/realty/internal/validation"
	"github.com/camazac/realty/pkg/api"
)

const (
	// imagesField имя multipart поля с файлами
	imagesField = "images"
	// multipartMemory сколько формы держать в памяти, остальное во временных файлах
	multipartMemory = 8 << 20
)

// PropertyHandler обрабатывает запросы каталога объектов
type PropertyHandler struct {
	responder
	service  *properties.Service
	pipeline *uploads.Pipeline
	maxBody  int64
}

// NewPropertyHandler создает handler объектов недвижимости
func NewPropertyHandler(logger *slog.Logger, service *properties.Service, pipeline *uploads.Pipeline) *PropertyHandler {
	return &PropertyHandler{
		responder: responder{logger: logger},
		service:   service,
		pipeline:  pipeline,
		// все файлы плюс текстовые поля
		maxBody: pipeline.MaxSize()*models.MaxPropertyImages + 1<<20,
	}
}

// List обрабатывает GET /api/properties
func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.sendInternal(r, w, "failed to list properties", err)
		return
	}

	h.sendJSON(w, api.NewProperties(list), http.StatusOK)
}

// Get обрабатывает GET /api/properties/{id}
func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	property, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrPropertyNotFound) {
			h.sendError(w, "Property not found", http.StatusNotFound)
			return
		}
		h.sendInternal(r, w, "failed to get property", err)
		return
	}

	h.sendJSON(w, api.NewProperty(property), http.StatusOK)
}

// Create обрабатывает POST /api/properties (multipart)
func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.parseForm(w, r) {
		return
	}

	form, err := validation.DecodePropertyForm(r.MultipartForm.Value)
	if err != nil {
		h.sendValidation(w, err)
		return
	}

	files := r.MultipartForm.File[imagesField]
	if len(files) == 0 {
		h.sendValidation(w, validation.Field(imagesField, "at least one image is required"))
		return
	}
	if len(files) > models.MaxPropertyImages {
		h.sendValidation(w, validation.Field(imagesField, fmt.Sprintf("a property can have at most %d images", models.MaxPropertyImages)))
		return
	}

	refs, ok := h.storeFiles(w, r, files)
	if !ok {
		return
	}

	property, err := h.service.Create(ctx, form, refs)
	if err != nil {
		h.discard(ctx, refs)
		if h.sendValidation(w, err) {
			return
		}
		h.sendInternal(r, w, "failed to create property", err)
		return
	}

	h.sendJSON(w, api.NewProperty(property), http.StatusCreated)
}

// Update обрабатывает PATCH /api/properties/{id} (multipart)
// existingImages: JSON массив ссылок, которые нужно сохранить
func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	if !h.parseForm(w, r) {
		return
	}

	form, err := validation.DecodePropertyForm(r.MultipartForm.Value)
	if err != nil {
		h.sendValidation(w, err)
		return
	}

	keep, err := validation.DecodeImageRefs(formValue(r.MultipartForm, "existingImages"))
	if err != nil {
		h.sendValidation(w, err)
		return
	}

	// Проверяем количество до сохранения файлов
	files := r.MultipartForm.File[imagesField]
	if len(keep)+len(files) > models.MaxPropertyImages {
		h.sendValidation(w, validation.Field(imagesField, fmt.Sprintf("a property can have at most %d images", models.MaxPropertyImages)))
		return
	}

	if _, err := h.service.Get(ctx, id); err != nil {
		if errors.Is(err, storage.ErrPropertyNotFound) {
			h.sendError(w, "Property not found", http.StatusNotFound)
			return
		}
		h.sendInternal(r, w, "failed to get property", err)
		return
	}

	refs, ok := h.storeFiles(w, r, files)
	if !ok {
		return
	}

	property, err := h.service.Update(ctx, id, form, keep, refs)
	if err != nil {
		h.discard(ctx, refs)
		if errors.Is(err, storage.ErrPropertyNotFound) {
			h.sendError(w, "Property not found", http.StatusNotFound)
			return
		}
		if h.sendValidation(w, err) {
			return
		}
		h.sendInternal(r, w, "failed to update property", err)
		return
	}

	h.sendJSON(w, api.NewProperty(property), http.StatusOK)
}

// Delete обрабатывает DELETE /api/properties/{id}
func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, storage.ErrPropertyNotFound) {
			h.sendError(w, "Property not found", http.StatusNotFound)
			return
		}
		h.sendInternal(r, w, "failed to delete property", err)
		return
	}

	h.sendJSON(w, api.MessageResponse{Message: "Property deleted successfully"}, http.StatusOK)
}

// parseForm ограничивает размер тела и разбирает multipart форму
func (h *PropertyHandler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.sendError(w, "request body too large", http.StatusBadRequest)
			return false
		}
		h.logger.WarnContext(r.Context(), "failed to parse multipart form", slog.Any("error", err))
		h.sendError(w, "invalid multipart form", http.StatusBadRequest)
		return false
	}

	return true
}

// storeFiles пропускает каждый файл через pipeline
// При отказе уже сохраненные файлы этого запроса удаляются
func (h *PropertyHandler) storeFiles(w http.ResponseWriter, r *http.Request, files []*multipart.FileHeader) ([]string, bool) {
	ctx := r.Context()
	refs := make([]string, 0, len(files))

	for _, fh := range files {
		stored, err := h.acceptFile(ctx, fh)
		if err != nil {
			h.discard(ctx, refs)

			switch {
			case errors.Is(err, uploads.ErrUnsupportedMediaType):
				h.logger.WarnContext(ctx, "rejected upload", slog.String("filename", fh.Filename), slog.Any("error", err))
				h.sendError(w, "Only image files are allowed", http.StatusUnsupportedMediaType)
			case errors.Is(err, uploads.ErrFileTooLarge):
				h.sendValidation(w, validation.Field(imagesField, fmt.Sprintf("%s is larger than %d bytes", fh.Filename, h.pipeline.MaxSize())))
			default:
				h.sendInternal(r, w, "failed to store upload", err)
			}
			return nil, false
		}
		refs = append(refs, stored.Ref)
	}

	return refs, true
}

func (h *PropertyHandler) acceptFile(ctx context.Context, fh *multipart.FileHeader) (*uploads.StoredFile, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	return h.pipeline.Accept(ctx, f, fh.Filename, fh.Header.Get("Content-Type"), fh.Size)
}

// discard удаляет файлы, которые не попали в запись объекта
func (h *PropertyHandler) discard(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if err := h.pipeline.Remove(ctx, ref); err != nil {
			h.logger.WarnContext(ctx, "failed to discard upload", slog.String("ref", ref), slog.Any("error", err))
		}
	}
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}
