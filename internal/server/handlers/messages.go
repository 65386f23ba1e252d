package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/camazac/realty/internal/models"
	"github.com/camazac/realty/internal/server/storage"
	"github.com/camazac/realty/internal/validation"
	"github.com/camazac/realty/pkg/api"
)

// MessageHandler обрабатывает заявки с контактной формы
type MessageHandler struct {
	responder
	messages storage.MessageStorage
	now      func() time.Time
}

// NewMessageHandler создает handler заявок
func NewMessageHandler(logger *slog.Logger, messages storage.MessageStorage) *MessageHandler {
	return &MessageHandler{
		responder: responder{logger: logger},
		messages:  messages,
		now:       time.Now,
	}
}

// List обрабатывает GET /api/messages (только admin)
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.messages.ListMessages(r.Context())
	if err != nil {
		h.sendInternal(r, w, "failed to list messages", err)
		return
	}

	h.sendJSON(w, api.NewMessages(list), http.StatusOK)
}

// Create обрабатывает POST /api/messages
// Отправитель берется из сессии; userId из тела должен с ним совпадать
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.sendError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req api.CreateMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode message request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.UserID != "" && req.UserID != userID {
		h.sendValidation(w, validation.Field("userId", "userId does not match the signed-in user"))
		return
	}

	msg, err := validation.ValidateContactMessage(req.PropertyID, req.Message, req.UserName, req.UserEmail)
	if err != nil {
		h.sendValidation(w, err)
		return
	}

	message := &models.Message{
		ID:         uuid.New().String(),
		UserID:     userID,
		PropertyID: msg.PropertyID,
		Body:       msg.Body,
		UserName:   msg.UserName,
		UserEmail:  msg.UserEmail,
		CreatedAt:  h.now(),
	}

	if err := h.messages.CreateMessage(ctx, message); err != nil {
		switch {
		case errors.Is(err, storage.ErrPropertyNotFound):
			h.sendValidation(w, validation.Field("propertyId", "property does not exist"))
		case errors.Is(err, storage.ErrUserNotFound):
			h.sendValidation(w, validation.Field("userId", "user does not exist"))
		default:
			h.sendInternal(r, w, "failed to create message", err)
		}
		return
	}

	h.logger.InfoContext(ctx, "message created",
		slog.String("message_id", message.ID),
		slog.String("property_id", message.PropertyID))

	h.sendJSON(w, api.NewMessage(message), http.StatusCreated)
}
