// Package session implements server-side sessions bound to an opaque cookie
// token. A session lives for a fixed TTL from issuance and is never renewed.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/camazac/realty/internal/models"
	"github.com/camazac/realty/internal/server/storage"
)

const (
	// DefaultCookieName имя cookie с токеном сессии
	DefaultCookieName = "realty_session"
	// DefaultTTL фиксированное время жизни сессии
	DefaultTTL = 7 * 24 * time.Hour

	tokenBytes = 32
)

// Options configures cookie and lifetime of sessions.
type Options struct {
	CookieName string
	TTL        time.Duration
	// Secure ставит флаг Secure на cookie (только в production)
	Secure bool
}

// Manager issues, resolves and destroys sessions.
type Manager struct {
	logger *slog.Logger
	store  storage.SessionStorage
	now    func() time.Time
	opts   Options
}

// NewManager создает менеджер сессий поверх хранилища
func NewManager(logger *slog.Logger, store storage.SessionStorage, opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}

	return &Manager{
		logger: logger,
		store:  store,
		now:    time.Now,
		opts:   opts,
	}
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.opts.CookieName
}

// Start создает новую сессию для userID и выставляет cookie
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, userID string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	now := m.now()
	session := &models.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(m.opts.TTL),
		CreatedAt: now,
	}

	if err := m.store.SaveSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(m.opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	m.logger.DebugContext(ctx, "session started", slog.String("user_id", userID))

	return token, nil
}

// Resolve возвращает userID для токена
// Пустой, неизвестный или истекший токен дает ok=false без ошибки (анонимный запрос).
// Ошибка возвращается только при сбое хранилища
func (m *Manager) Resolve(ctx context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}

	session, err := m.store.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to resolve session: %w", err)
	}

	if session.Expired(m.now()) {
		if err := m.store.DeleteSession(ctx, token); err != nil {
			m.logger.WarnContext(ctx, "failed to delete expired session", slog.Any("error", err))
		}
		return "", false, nil
	}

	return session.UserID, true, nil
}

// Destroy удаляет сессию и сбрасывает cookie
// Неизвестный или пустой токен не является ошибкой
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, token string) error {
	m.clearCookie(w)

	if token == "" {
		return nil
	}

	if err := m.store.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}

	return nil
}

// TokenFromRequest извлекает токен из cookie запроса
func (m *Manager) TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(m.opts.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Sweep удаляет истекшие сессии из хранилища
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	deleted, err := m.store.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep sessions: %w", err)
	}
	return deleted, nil
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// generateToken создает случайный непрозрачный токен
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
