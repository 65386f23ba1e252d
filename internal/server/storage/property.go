package storage

import (
	"context"

	"github.com/camazac/realty/internal/models"
)

// PropertyStorage defines interface for property listings persistence
type PropertyStorage interface {
	// CreateProperty stores a new property
	CreateProperty(ctx context.Context, property *models.Property) error

	// GetProperty retrieves property by ID
	// Returns ErrPropertyNotFound if property doesn't exist
	GetProperty(ctx context.Context, id string) (*models.Property, error)

	// ListProperties returns all properties, newest first
	// Returns empty slice if no properties found
	ListProperties(ctx context.Context) ([]*models.Property, error)

	// UpdateProperty replaces every mutable field including the image list
	// Returns ErrPropertyNotFound if property doesn't exist
	UpdateProperty(ctx context.Context, property *models.Property) error

	// DeleteProperty deletes property by ID together with its messages
	// Returns ErrPropertyNotFound if property doesn't exist
	DeleteProperty(ctx context.Context, id string) error
}

// MessageStorage defines interface for contact messages persistence
type MessageStorage interface {
	// CreateMessage stores a new message
	// Returns ErrUserNotFound or ErrPropertyNotFound if a reference is dangling
	CreateMessage(ctx context.Context, message *models.Message) error

	// ListMessages returns all messages, newest first
	ListMessages(ctx context.Context) ([]*models.Message, error)
}
