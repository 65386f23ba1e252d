// Package auth implements the credential store: user creation with bcrypt
// hashed passwords and uniform credential verification.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/camazac/realty/internal/crypto"
	"github.com/camazac/realty/internal/models"
	"github.com/camazac/realty/internal/server/storage"
)

// ErrInvalidCredentials is returned for an unknown username and for a wrong
// password alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// NewUser описывает данные для создания пользователя
type NewUser struct {
	Username string
	Email    string
	FullName string
	Password string
	IsAdmin  bool
}

// Credentials хранит пользователей и проверяет их пароли
type Credentials struct {
	logger *slog.Logger
	users  storage.UserStorage
	now    func() time.Time
	// dummyHash is compared against when the username is unknown so that both
	// failure paths cost one bcrypt comparison
	dummyHash string
	cost      int
}

// NewCredentials создает credential store поверх UserStorage
// cost: стоимость bcrypt, не ниже crypto.MinPasswordCost
func NewCredentials(logger *slog.Logger, users storage.UserStorage, cost int) (*Credentials, error) {
	if cost < crypto.MinPasswordCost {
		cost = crypto.MinPasswordCost
	}

	dummy, err := crypto.HashPassword(uuid.New().String(), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &Credentials{
		logger:    logger,
		users:     users,
		now:       time.Now,
		dummyHash: dummy,
		cost:      cost,
	}, nil
}

// CreateUser создает пользователя с захешированным паролем
// Возвращает storage.ErrUserAlreadyExists или storage.ErrEmailAlreadyExists
func (c *Credentials) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	if _, err := c.users.GetUserByUsername(ctx, in.Username); err == nil {
		return nil, storage.ErrUserAlreadyExists
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	if _, err := c.users.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, storage.ErrEmailAlreadyExists
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := crypto.HashPassword(in.Password, c.cost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		IsAdmin:      in.IsAdmin,
		CreatedAt:    c.now(),
	}

	// Уникальность также гарантируется ограничениями хранилища на случай гонки
	if err := c.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "user created",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
		slog.Bool("is_admin", user.IsAdmin))

	return user, nil
}

// VerifyCredentials проверяет пару username/пароль
// Неизвестный пользователь и неверный пароль неразличимы: ErrInvalidCredentials
func (c *Credentials) VerifyCredentials(ctx context.Context, username, password string) (*models.User, error) {
	user, err := c.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			_ = crypto.VerifyPassword(c.dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := crypto.VerifyPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, crypto.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	return user, nil
}

// GetUserByID возвращает пользователя или storage.ErrUserNotFound
func (c *Credentials) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return c.users.GetUserByID(ctx, id)
}

// SetAdmin выдает или снимает флаг администратора
func (c *Credentials) SetAdmin(ctx context.Context, id string, isAdmin bool) (*models.User, error) {
	user, err := c.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.IsAdmin = isAdmin
	if err := c.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	c.logger.InfoContext(ctx, "admin flag changed",
		slog.String("user_id", user.ID),
		slog.Bool("is_admin", isAdmin))

	return user, nil
}

// SetPassword заменяет пароль пользователя
func (c *Credentials) SetPassword(ctx context.Context, id, password string) error {
	user, err := c.users.GetUserByID(ctx, id)
	if err != nil {
		return err
	}

	hash, err := crypto.HashPassword(password, c.cost)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	if err := c.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

// EnsureAdmin создает администратора или повышает существующего пользователя
// Для существующего пользователя пароль меняется, только если он передан
// created сообщает, был ли пользователь создан
func (c *Credentials) EnsureAdmin(ctx context.Context, in NewUser) (user *models.User, created bool, err error) {
	existing, err := c.users.GetUserByUsername(ctx, in.Username)
	if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
		return nil, false, fmt.Errorf("failed to check username: %w", err)
	}

	if existing == nil {
		in.IsAdmin = true
		newUser, err := c.CreateUser(ctx, in)
		if err != nil {
			return nil, false, err
		}
		return newUser, true, nil
	}

	if in.Password != "" {
		if err := c.SetPassword(ctx, existing.ID, in.Password); err != nil {
			return nil, false, err
		}
	}

	user, err = c.SetAdmin(ctx, existing.ID, true)
	if err != nil {
		return nil, false, err
	}

	return user, false, nil
}
