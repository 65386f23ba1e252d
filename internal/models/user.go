package models

import "time"

// User представляет пользователя в системе
type User struct {
	ID           string    `json:"id"`         // UUID пользователя
	Username     string    `json:"username"`   // уникальный username
	Email        string    `json:"email"`      // уникальный email
	PasswordHash string    `json:"-"`          // bcrypt хеш пароля, наружу не отдается
	FullName     string    `json:"full_name"`  // отображаемое имя
	IsAdmin      bool      `json:"is_admin"`   // доступ к управлению объектами и заявками
	CreatedAt    time.Time `json:"created_at"` // время создания
}

// Session представляет серверную сессию, привязанную к cookie
type Session struct {
	Token     string    `json:"token"`      // непрозрачный токен из cookie
	UserID    string    `json:"user_id"`    // ID пользователя
	ExpiresAt time.Time `json:"expires_at"` // фиксированное время истечения
	CreatedAt time.Time `json:"created_at"` // время выдачи
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
