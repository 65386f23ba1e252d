package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/camazac/realty/internal/validation"
	"github.com/camazac/realty/pkg/api"
)

// SendJSON отправляет JSON ответ
func SendJSON(logger *slog.Logger, w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// SendError отправляет JSON ответ с ошибкой
func SendError(logger *slog.Logger, w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	SendJSON(logger, w, resp, statusCode)
}

// responder общие методы ответа для всех handlers
type responder struct {
	logger *slog.Logger
}

func (h responder) sendJSON(w http.ResponseWriter, data any, statusCode int) {
	SendJSON(h.logger, w, data, statusCode)
}

func (h responder) sendError(w http.ResponseWriter, message string, statusCode int) {
	SendError(h.logger, w, message, statusCode)
}

// sendValidation отправляет 400 с ошибками по полям
// Возвращает false, если err не является ошибкой валидации
func (h responder) sendValidation(w http.ResponseWriter, err error) bool {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return false
	}

	resp := api.ErrorResponse{
		Error:   http.StatusText(http.StatusBadRequest),
		Message: verrs.Error(),
		Fields:  verrs,
	}
	h.sendJSON(w, resp, http.StatusBadRequest)
	return true
}

// sendInternal логирует ошибку и отправляет generic 500
func (h responder) sendInternal(r *http.Request, w http.ResponseWriter, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg, slog.Any("error", err))
	h.sendError(w, "internal server error", http.StatusInternalServerError)
}

// maxJSONBody ограничение размера JSON тела запроса
const maxJSONBody = 64 << 10

// decodeJSON разбирает тело запроса; неизвестные поля игнорируются
// Тело длиннее maxJSONBody дает ошибку
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	return json.NewDecoder(r.Body).Decode(dst)
}
