package storage

import (
	"context"

	"github.com/camazac/realty/internal/models"
)

// SessionStorage defines interface for server-side session persistence.
// Every operation is atomic per token.
type SessionStorage interface {
	// SaveSession stores a session
	// If a session with the same token exists, it will be replaced
	SaveSession(ctx context.Context, session *models.Session) error

	// GetSession retrieves session by token
	// Returns ErrSessionNotFound if token is unknown
	GetSession(ctx context.Context, token string) (*models.Session, error)

	// DeleteSession deletes session by token
	// Deleting an unknown token is not an error
	DeleteSession(ctx context.Context, token string) error

	// DeleteExpiredSessions removes all sessions expired at the time of the call
	// Returns number of deleted sessions
	DeleteExpiredSessions(ctx context.Context) (int, error)
}
