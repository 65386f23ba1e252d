package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/camazac/realty/internal/models"
)

func setupTestStorage(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	// Используем in-memory database для тестов
	storage, err := New(ctx, ":memory:")
	require.NoError(t, err)

	cleanup := func() {
		_ = storage.Close()
	}

	return storage, cleanup
}

func createTestUser(t *testing.T, ctx context.Context, s *Storage) *models.User {
	userID := uuid.New().String()
	user := &models.User{
		ID:           userID,
		Username:     "user_" + userID[:8],
		Email:        userID[:8] + "@example.com",
		PasswordHash: "hash",
		FullName:     "Test User",
		CreatedAt:    time.Now(),
	}

	require.NoError(t, s.CreateUser(ctx, user))
	return user
}

func createTestProperty(t *testing.T, ctx context.Context, s *Storage, createdAt time.Time, images ...string) *models.Property {
	property := &models.Property{
		ID:          uuid.New().String(),
		Title:       "Casa en el centro",
		Description: "Tres recámaras",
		Address:     "Av. Juárez 10",
		Price:       250000000,
		Type:        "Casa",
		Images:      images,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	require.NoError(t, s.CreateProperty(ctx, property))
	return property
}
