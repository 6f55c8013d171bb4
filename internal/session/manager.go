// Package session issues and verifies signed tokens bound to revocable
// session records held in Redis.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionIDClaim is the namespaced claim carrying the revocable session
// identifier. Token schema: sub, iss, aud, iat, nbf, exp plus this
// claim; the value keys the Redis session record.
const SessionIDClaim = "labcas:session_id"

// keyPrefix namespaces session records in Redis.
const keyPrefix = "labcas:sessions:"

// ErrInvalidToken indicates the token failed signature, claim or
// session-liveness validation.
var ErrInvalidToken = errors.New("invalid token")

// Config carries the signing and session parameters.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration

	// AcceptAny disables signature verification entirely. Development
	// escape hatch only; a prominent warning is logged on every use.
	AcceptAny bool
}

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	SessionID string
	Raw       jwt.MapClaims
}

// Manager issues, verifies and revokes session-bound tokens.
type Manager struct {
	cfg    Config
	redis  *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewManager constructs a Manager.
func NewManager(cfg Config, client *redis.Client, logger *slog.Logger) *Manager {
	return &Manager{cfg: cfg, redis: client, logger: logger, now: time.Now}
}

// Issue signs a token for the subject and writes the session record.
// A session id supplied in extra overrides the generated one; remaining
// extra claims are merged into the payload.
func (m *Manager) Issue(ctx context.Context, subject string, extra map[string]any) (string, error) {
	sessionID := ""
	if extra != nil {
		if sid, ok := extra[SessionIDClaim].(string); ok && sid != "" {
			sessionID = sid
		}
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	now := m.now().UTC()
	expiresAt := now.Add(m.cfg.TTL)

	claims := jwt.MapClaims{
		"sub":          subject,
		"iss":          m.cfg.Issuer,
		"aud":          m.cfg.Audience,
		"iat":          now.Unix(),
		"nbf":          now.Unix(),
		"exp":          expiresAt.Unix(),
		SessionIDClaim: sessionID,
	}
	for key, value := range extra {
		if key == SessionIDClaim {
			continue
		}
		claims[key] = value
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("session: sign token: %w", err)
	}

	ttl := expiresAt.Sub(now)
	if ttl < 0 {
		ttl = 0
	}
	if err := m.redis.SetEx(ctx, keyPrefix+sessionID, subject, ttl).Err(); err != nil {
		return "", fmt.Errorf("session: store record: %w", err)
	}

	m.logger.Debug("issued token", slog.String("subject", subject), slog.String("session", sessionID))
	return token, nil
}

// Verify validates the token signature and claims, then checks that the
// embedded session still exists. Every failure maps to ErrInvalidToken.
func (m *Manager) Verify(ctx context.Context, token string) (*Claims, error) {
	if m.cfg.AcceptAny {
		m.logger.Warn("ACCEPT_ANY_TOKEN is enabled; skipping token verification")
		claims, err := m.parseUnverified(token)
		if err != nil {
			return nil, err
		}
		// Liveness is reported but not enforced in this mode.
		if alive, err := m.sessionAlive(ctx, claims.SessionID); err == nil && !alive {
			m.logger.Warn("unverified token references a dead session", slog.String("session", claims.SessionID))
		}
		return claims, nil
	}

	parsed, err := jwt.Parse(token,
		func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(m.cfg.Secret), nil
		},
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithAudience(m.cfg.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		m.logger.Warn("token verification failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	raw, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, err := claimsFrom(raw)
	if err != nil {
		return nil, err
	}

	alive, err := m.sessionAlive(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("session: liveness check: %w", err)
	}
	if !alive {
		return nil, fmt.Errorf("%w: session is invalid or expired", ErrInvalidToken)
	}
	return claims, nil
}

// Revoke deletes the session record. Revoking a nonexistent or already
// revoked session is not an error.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	if err := m.redis.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("session: revoke %s: %w", sessionID, err)
	}
	m.logger.Debug("revoked session", slog.String("session", sessionID))
	return nil
}

func (m *Manager) parseUnverified(token string) (*Claims, error) {
	raw := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claimsFrom(raw)
}

func (m *Manager) sessionAlive(ctx context.Context, sessionID string) (bool, error) {
	n, err := m.redis.Exists(ctx, keyPrefix+sessionID).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func claimsFrom(raw jwt.MapClaims) (*Claims, error) {
	subject, _ := raw["sub"].(string)
	sessionID, _ := raw[SessionIDClaim].(string)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: missing session identifier", ErrInvalidToken)
	}
	return &Claims{Subject: subject, SessionID: sessionID, Raw: raw}, nil
}
