package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camazac/realty/internal/models"
	"github.com/camazac/realty/internal/server/storage"
)

const propertyColumns = `id, title, description, address, price, type, images, created_at, updated_at`

// CreateProperty stores a new property
func (s *Storage) CreateProperty(ctx context.Context, property *models.Property) error {
	images, err := encodeImages(property.Images)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO properties (` + propertyColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		property.ID,
		property.Title,
		property.Description,
		property.Address,
		property.Price,
		property.Type,
		images,
		property.CreatedAt.UTC(),
		property.UpdatedAt.UTC(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert property: %w", err)
	}

	return nil
}

// GetProperty retrieves property by ID
func (s *Storage) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)

	property, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrPropertyNotFound
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}

	return property, nil
}

// ListProperties returns all properties, newest first
func (s *Storage) ListProperties(ctx context.Context) ([]*models.Property, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+propertyColumns+` FROM properties ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	properties := make([]*models.Property, 0)

	for rows.Next() {
		property, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, property)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return properties, nil
}

// UpdateProperty replaces every mutable field of the property
func (s *Storage) UpdateProperty(ctx context.Context, property *models.Property) error {
	images, err := encodeImages(property.Images)
	if err != nil {
		return err
	}

	query := `
		UPDATE properties
		SET title = ?, description = ?, address = ?, price = ?, type = ?, images = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		property.Title,
		property.Description,
		property.Address,
		property.Price,
		property.Type,
		images,
		property.UpdatedAt.UTC(),
		property.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update property: %w", err)
	}

	return rowsAffected(result, storage.ErrPropertyNotFound)
}

// DeleteProperty deletes property by ID
func (s *Storage) DeleteProperty(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM properties WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}

	return rowsAffected(result, storage.ErrPropertyNotFound)
}

// rowScanner is implemented by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(row rowScanner) (*models.Property, error) {
	property := &models.Property{}
	var images string

	if err := row.Scan(
		&property.ID,
		&property.Title,
		&property.Description,
		&property.Address,
		&property.Price,
		&property.Type,
		&images,
		&property.CreatedAt,
		&property.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(images), &property.Images); err != nil {
		return nil, fmt.Errorf("failed to decode images of property %s: %w", property.ID, err)
	}

	return property, nil
}

func encodeImages(images []string) (string, error) {
	if images == nil {
		images = []string{}
	}

	data, err := json.Marshal(images)
	if err != nil {
		return "", fmt.Errorf("failed to encode images: %w", err)
	}

	return string(data), nil
}
