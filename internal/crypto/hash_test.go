package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		errMsg   string
		password string
		cost     int
		wantCost int
		wantErr  bool
	}{
		{
			name:     "default cost",
			password: "correct horse battery",
			cost:     10,
			wantCost: 10,
		},
		{
			name:     "cost below minimum is raised",
			password: "admin123",
			cost:     4,
			wantCost: MinPasswordCost,
		},
		{
			name:     "empty password",
			password: "",
			cost:     10,
			wantErr:  true,
			errMsg:   "password cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password, tt.cost)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Empty(t, hash)
				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hash, "хеш не должен совпадать с паролем")

			cost, err := bcrypt.Cost([]byte(hash))
			require.NoError(t, err)
			assert.Equal(t, tt.wantCost, cost)
		})
	}
}

func TestHashPassword_Salted(t *testing.T) {
	// Одинаковый пароль дает разные хеши за счет соли
	first, err := HashPassword("same-password", MinPasswordCost)
	require.NoError(t, err)
	second, err := HashPassword("same-password", MinPasswordCost)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", MinPasswordCost)
	require.NoError(t, err)

	tests := []struct {
		wantErr  error
		name     string
		hash     string
		password string
		anyErr   bool
	}{
		{
			name:     "valid password",
			hash:     hash,
			password: "s3cret-pass",
		},
		{
			name:     "wrong password",
			hash:     hash,
			password: "s3cret-pasS",
			wantErr:  ErrPasswordMismatch,
		},
		{
			name:     "empty hash",
			hash:     "",
			password: "s3cret-pass",
			anyErr:   true,
		},
		{
			name:     "malformed hash",
			hash:     "not-a-bcrypt-hash",
			password: "s3cret-pass",
			anyErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyPassword(tt.hash, tt.password)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, ErrPasswordMismatch)
			default:
				assert.NoError(t, err)
			}
		})
	}
}
