package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	sessionKeyPrefix = "wisma:session:"
	adminKeyPrefix   = "wisma:admin:"
)

// RedisStore keeps sessions as JSON values whose TTL matches the session
// expiry, so Redis drops them on its own. Admin grants never expire.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

var _ SessionStore = (*RedisStore)(nil)

// NewRedisStore connects using a redis:// URL and pings the server.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStoreWithClient(client), nil
}

func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

type redisSession struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func sessionKey(id string) string { return sessionKeyPrefix + id }

func adminKey(email string) string { return adminKeyPrefix + email }

func (s *RedisStore) SaveSession(ctx context.Context, sess Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(redisSession{
		Subject:   sess.Subject,
		Email:     sess.Email,
		Admin:     sess.Admin,
		CreatedAt: sess.CreatedAt,
		ExpiresAt: sess.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *RedisStore) GetSession(ctx context.Context, id string) (Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	var rs redisSession
	if err := json.Unmarshal(data, &rs); err != nil {
		return Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return Session{
		ID:        id,
		Subject:   rs.Subject,
		Email:     rs.Email,
		Admin:     rs.Admin,
		CreatedAt: rs.CreatedAt,
		ExpiresAt: rs.ExpiresAt,
	}, nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) GrantAdmin(ctx context.Context, email, grantedBy string, at time.Time) error {
	err := s.client.HSet(ctx, adminKey(email), "granted_by", grantedBy, "granted_at", at.UTC().Format(time.RFC3339)).Err()
	if err != nil {
		return fmt.Errorf("grant admin %s: %w", email, err)
	}
	return nil
}

func (s *RedisStore) IsAdmin(ctx context.Context, email string) (bool, error) {
	n, err := s.client.Exists(ctx, adminKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("check admin %s: %w", email, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
