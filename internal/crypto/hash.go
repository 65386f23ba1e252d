package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordCost минимально допустимая стоимость bcrypt
const MinPasswordCost = 10

// ErrPasswordMismatch indicates that a password does not match the stored hash
var ErrPasswordMismatch = errors.New("password mismatch")

// HashPassword хеширует пароль с помощью bcrypt (соль генерируется внутри bcrypt)
// cost ниже MinPasswordCost поднимается до MinPasswordCost
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	if cost < MinPasswordCost {
		cost = MinPasswordCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword проверяет пароль против сохраненного bcrypt хеша
// Возвращает ErrPasswordMismatch, если пароль не подходит
func VerifyPassword(hashedPassword, password string) error {
	if hashedPassword == "" {
		return fmt.Errorf("hashed password cannot be empty")
	}

	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("failed to verify password: %w", err)
	}

	return nil
}
