package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/camazac/realty/internal/models"
	"github.com/camazac/realty/internal/server/storage"
)

var _ storage.SessionStorage = (*RedisStore)(nil)

// RedisStore keeps sessions in Redis. Redis key expiry enforces the TTL.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
	prefix string
}

// NewRedisStore создает хранилище сессий поверх redis клиента
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisStore{client: client, now: time.Now, prefix: prefix}
}

// DialRedis подключается к redis и проверяет соединение
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// Close closes the redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// SaveSession stores a session with a key expiry equal to its remaining lifetime
func (s *RedisStore) SaveSession(ctx context.Context, session *models.Session) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.DeleteSession(ctx, session.Token)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(session.Token), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetSession retrieves session by token
func (s *RedisStore) GetSession(ctx context.Context, token string) (*models.Session, error) {
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session := &models.Session{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return session, nil
}

// DeleteSession deletes session by token
func (s *RedisStore) DeleteSession(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions is a no-op: redis evicts expired keys itself
func (s *RedisStore) DeleteExpiredSessions(ctx context.Context) (int, error) {
	return 0, nil
}

func (s *RedisStore) key(token string) string {
	return s.prefix + token
}
