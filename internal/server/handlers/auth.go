package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/camazac/realty/internal/models"
	"github.com/camazac/realty/internal/server/auth"
	"github.com/camazac/realty/internal/server/session"
	"github.com/camazac/realty/internal/server/storage"
	"github.com/camazac/realty/internal/validation"
	"github.com/camazac/realty/pkg/api"
)

// UserService is the part of the credential store used by the handlers.
type UserService interface {
	CreateUser(ctx context.Context, in auth.NewUser) (*models.User, error)
	VerifyCredentials(ctx context.Context, username, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	responder
	users    UserService
	sessions *session.Manager
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, users UserService, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{
		responder: responder{logger: logger},
		users:     users,
		sessions:  sessions,
	}
}

// Register обрабатывает POST /api/auth/register
// Создает пользователя и сразу открывает для него сессию
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode register request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	reg, err := validation.ValidateRegistration(req.Username, req.Email, req.FullName, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid registration", slog.String("username", req.Username), slog.Any("error", err))
		h.sendValidation(w, err)
		return
	}

	user, err := h.users.CreateUser(ctx, auth.NewUser{
		Username: reg.Username,
		Email:    reg.Email,
		FullName: reg.FullName,
		Password: reg.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUserAlreadyExists):
			h.sendError(w, "Username already exists", http.StatusBadRequest)
		case errors.Is(err, storage.ErrEmailAlreadyExists):
			h.sendError(w, "Email already exists", http.StatusBadRequest)
		default:
			h.sendInternal(r, w, "failed to create user", err)
		}
		return
	}

	if _, err := h.sessions.Start(ctx, w, user.ID); err != nil {
		h.sendInternal(r, w, "failed to start session", err)
		return
	}

	h.logger.InfoContext(ctx, "user registered successfully",
		slog.String("username", user.Username),
		slog.String("user_id", user.ID))

	h.sendJSON(w, api.NewUser(user), http.StatusCreated)
}

// Login обрабатывает POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		h.sendError(w, "username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.users.VerifyCredentials(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.sendError(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		h.sendInternal(r, w, "failed to verify credentials", err)
		return
	}

	// Старая сессия этого клиента больше не нужна
	if token, ok := GetSessionToken(ctx); ok {
		if err := h.sessions.Destroy(ctx, w, token); err != nil {
			h.logger.WarnContext(ctx, "failed to destroy previous session", slog.Any("error", err))
		}
	}

	if _, err := h.sessions.Start(ctx, w, user.ID); err != nil {
		h.sendInternal(r, w, "failed to start session", err)
		return
	}

	h.logger.InfoContext(ctx, "user logged in successfully",
		slog.String("username", user.Username),
		slog.String("user_id", user.ID))

	h.sendJSON(w, api.NewUser(user), http.StatusOK)
}

// Logout обрабатывает POST /api/auth/logout
// Выход без сессии тоже успешен
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := h.sessions.TokenFromRequest(r)
	if err := h.sessions.Destroy(ctx, w, token); err != nil {
		h.sendInternal(r, w, "failed to destroy session", err)
		return
	}

	if userID, ok := GetUserID(ctx); ok {
		h.logger.InfoContext(ctx, "user logged out", slog.String("user_id", userID))
	}

	h.sendJSON(w, api.MessageResponse{Message: "Logged out successfully"}, http.StatusOK)
}

// Me обрабатывает GET /api/auth/me
// Для анонимного запроса возвращает null
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.sendJSON(w, nil, http.StatusOK)
		return
	}

	user, err := h.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.sendJSON(w, nil, http.StatusOK)
			return
		}
		h.sendInternal(r, w, "failed to get user", err)
		return
	}

	h.sendJSON(w, api.NewUser(user), http.StatusOK)
}
