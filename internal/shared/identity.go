package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound indicates an unknown or expired bearer token.
var ErrSessionNotFound = errors.New("session not found")

type sessionRecord struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// SessionStore resolves bearer tokens to actors. Session issuance belongs
// to the auth collaborator; this store only reads what it wrote to Redis.
type SessionStore struct {
	client *redis.Client
	prefix string
}

// NewSessionStore builds a SessionStore with the given key prefix.
func NewSessionStore(client *redis.Client, prefix string) *SessionStore {
	if prefix == "" {
		prefix = "meridian_session"
	}
	return &SessionStore{client: client, prefix: prefix}
}

// Resolve maps a bearer token to the authenticated actor.
func (s *SessionStore) Resolve(ctx context.Context, token string) (Actor, error) {
	if token == "" {
		return Actor{}, ErrSessionNotFound
	}
	raw, err := s.client.Get(ctx, fmt.Sprintf("%s:%s", s.prefix, token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Actor{}, ErrSessionNotFound
		}
		return Actor{}, fmt.Errorf("shared: resolve session: %w", err)
	}
	var rec sessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Actor{}, fmt.Errorf("shared: decode session: %w", err)
	}
	userID, err := uuid.Parse(rec.UserID)
	if err != nil {
		return Actor{}, fmt.Errorf("shared: session user id: %w", err)
	}
	return Actor{UserID: userID, Role: rec.Role}, nil
}
