package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/camazac/realty/internal/models"
	"github.com/camazac/realty/internal/server/handlers"
	"github.com/camazac/realty/internal/server/storage"
)

// SessionResolver resolves the session cookie of a request.
type SessionResolver interface {
	TokenFromRequest(r *http.Request) string
	Resolve(ctx context.Context, token string) (string, bool, error)
}

// UserLookup loads the current state of a user.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Authenticate создает middleware, которое разрешает cookie сессии
// Запрос без валидной сессии проходит дальше как анонимный
func Authenticate(logger *slog.Logger, sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessions.TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, ok, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				logger.ErrorContext(r.Context(), "failed to resolve session", slog.Any("error", err))
				handlers.SendError(logger, w, "internal server error", http.StatusInternalServerError)
				return
			}
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			logger.DebugContext(r.Context(), "session resolved", slog.String("user_id", userID))

			next.ServeHTTP(w, r.WithContext(handlers.WithSession(r.Context(), userID, token)))
		})
	}
}

// RequireAuthenticated пропускает только запросы с сессией, иначе 401
func RequireAuthenticated(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := handlers.GetUserID(r.Context()); !ok {
				logger.WarnContext(r.Context(), "unauthenticated request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))
				handlers.SendError(logger, w, "Authentication required", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin пропускает только администраторов
// Пользователь перечитывается на каждом запросе, поэтому снятие флага действует сразу
func RequireAdmin(logger *slog.Logger, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		admin := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID, _ := handlers.GetUserID(ctx)

			user, err := users.GetUserByID(ctx, userID)
			if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
				logger.ErrorContext(ctx, "failed to load user", slog.Any("error", err))
				handlers.SendError(logger, w, "internal server error", http.StatusInternalServerError)
				return
			}

			if err != nil || !user.IsAdmin {
				logger.WarnContext(ctx, "admin access denied",
					slog.String("user_id", userID),
					slog.String("path", r.URL.Path))
				handlers.SendError(logger, w, "Admin access required", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})

		return RequireAuthenticated(logger)(admin)
	}
}
