package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/safar/go-travel-store/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrRevokedToken = errors.New("session has been revoked")
)

// Claims embeds the registered claims; sub carries the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Session is the authenticated identity attached to a request.
type Session struct {
	UserID    int64
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

func (s *Session) IsAdmin() bool { return s != nil && s.Role == models.RoleAdmin }

type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// Revoker remembers token ids that must no longer be accepted.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Manager struct {
	secret  []byte
	ttl     time.Duration
	revoker Revoker
	now     func() time.Time
}

// NewManager returns a session manager. A nil revoker disables revocation.
func NewManager(secret string, ttl time.Duration, revoker Revoker) *Manager {
	if revoker == nil {
		revoker = NopRevoker{}
	}
	return &Manager{
		secret:  []byte(secret),
		ttl:     ttl,
		revoker: revoker,
		now:     time.Now,
	}
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue signs an HS256 session token for user.
func (m *Manager) Issue(user *models.User) (Token, error) {
	now := m.now().UTC()
	exp := now.Add(m.ttl)
	id := uuid.NewString()

	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign session token: %w", err)
	}
	return Token{Value: signed, ID: id, ExpiresAt: exp}, nil
}

// Parse validates raw and checks it against the revocation list. Revocation
// lookups that fail are treated as not revoked.
func (m *Manager) Parse(ctx context.Context, raw string) (*Session, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, ErrInvalidToken
	}

	if claims.ID != "" {
		if revoked, err := m.revoker.IsRevoked(ctx, claims.ID); err == nil && revoked {
			return nil, ErrRevokedToken
		}
	}

	return &Session{
		UserID:    userID,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke blocks the session's token until it would have expired anyway.
func (m *Manager) Revoke(ctx context.Context, s *Session) error {
	if s == nil || s.TokenID == "" {
		return nil
	}
	ttl := s.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	return m.revoker.Revoke(ctx, s.TokenID, ttl)
}

type NopRevoker struct{}

func (NopRevoker) Revoke(context.Context, string, time.Duration) error { return nil }
func (NopRevoker) IsRevoked(context.Context, string) (bool, error)     { return false, nil }

// RedisRevoker stores revoked token ids as expiring keys.
type RedisRevoker struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisRevoker(rdb *redis.Client, prefix string) Revoker {
	if rdb == nil {
		return NopRevoker{}
	}
	if prefix == "" {
		prefix = "session:revoked"
	}
	return &RedisRevoker{rdb: rdb, prefix: prefix}
}

func (r *RedisRevoker) key(tokenID string) string { return r.prefix + ":" + tokenID }

func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, r.key(tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked session: %w", err)
	}
	return n > 0, nil
}
