package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/camazac/realty/internal/models"
	"github.com/camazac/realty/internal/server/storage"
)

// CreateMessage stores a new message
// Ссылки на пользователя и объект проверяются в той же транзакции, что и вставка
func (s *Storage) CreateMessage(ctx context.Context, message *models.Message) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = exists(ctx, tx, `SELECT 1 FROM users WHERE id = ?`, message.UserID, storage.ErrUserNotFound); err != nil {
		return err
	}
	if err = exists(ctx, tx, `SELECT 1 FROM properties WHERE id = ?`, message.PropertyID, storage.ErrPropertyNotFound); err != nil {
		return err
	}

	query := `
		INSERT INTO messages (id, user_id, property_id, message, user_name, user_email, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if _, err = tx.ExecContext(ctx, query,
		message.ID,
		message.UserID,
		message.PropertyID,
		message.Body,
		message.UserName,
		message.UserEmail,
		message.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}

	return nil
}

// ListMessages returns all messages, newest first
func (s *Storage) ListMessages(ctx context.Context) ([]*models.Message, error) {
	query := `
		SELECT id, user_id, property_id, message, user_name, user_email, created_at
		FROM messages
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	messages := make([]*models.Message, 0)

	for rows.Next() {
		message := &models.Message{}
		if err := rows.Scan(
			&message.ID,
			&message.UserID,
			&message.PropertyID,
			&message.Body,
			&message.UserName,
			&message.UserEmail,
			&message.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return messages, nil
}

func exists(ctx context.Context, tx *sql.Tx, query, id string, notFound error) error {
	var one int
	err := tx.QueryRowContext(ctx, query, id).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound
		}
		return fmt.Errorf("failed to check reference: %w", err)
	}
	return nil
}
