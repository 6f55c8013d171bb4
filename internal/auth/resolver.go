package auth

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labcas-project/labcas-gateway/internal/directory"
	"github.com/labcas-project/labcas-gateway/internal/platform/httpx"
	"github.com/labcas-project/labcas-gateway/internal/session"
)

// TokenCookie is the cookie checked for a token when no Authorization
// header is present.
const TokenCookie = "JasonWebToken"

// Resolver turns request credentials into a security context.
type Resolver struct {
	directory directory.Provider
	sessions  *session.Manager
	logger    *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(dir directory.Provider, sessions *session.Manager, logger *slog.Logger) *Resolver {
	return &Resolver{directory: dir, sessions: sessions, logger: logger}
}

// Resolve performs optional authentication: a verifying bearer token or
// token cookie yields that subject with no groups, anything else falls
// back to the guest identity. It never fails.
func (r *Resolver) Resolve(req *http.Request) *Context {
	if token, ok := bearerToken(req.Header.Get("Authorization")); ok {
		if sc := r.contextFromToken(req, token); sc != nil {
			return sc
		}
	}
	if cookie, err := req.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		if sc := r.contextFromToken(req, cookie.Value); sc != nil {
			return sc
		}
	}
	return &Context{Subject: GuestDN}
}

// Require performs strict authentication via HTTP Basic credentials or
// a bearer token. It never falls back to guest.
func (r *Resolver) Require(req *http.Request) (*Context, error) {
	header := req.Header.Get("Authorization")
	if header == "" {
		return nil, fmt.Errorf("%w: authentication required", httpx.ErrUnauthorized)
	}

	if encoded, ok := strings.CutPrefix(header, "Basic "); ok {
		username, password, err := decodeBasic(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid basic authentication header", httpx.ErrUnauthorized)
		}
		user, err := r.directory.Authenticate(req.Context(), username, password)
		if err != nil {
			r.logger.Error("directory authentication failed", slog.Any("error", err))
			return nil, fmt.Errorf("%w: directory unavailable", httpx.ErrUpstream)
		}
		if user == nil {
			return nil, fmt.Errorf("%w: invalid username or password", httpx.ErrUnauthorized)
		}
		// Group lookup is best-effort: a degraded directory narrows
		// visibility to public rows instead of failing the request.
		return &Context{Subject: user.DN, Groups: r.directory.Groups(req.Context(), user)}, nil
	}

	if token, ok := bearerToken(header); ok {
		if token == "" {
			return nil, fmt.Errorf("%w: authentication required", httpx.ErrUnauthorized)
		}
		claims, err := r.sessions.Verify(req.Context(), token)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid or expired token", httpx.ErrUnauthorized)
		}
		if claims.Subject == "" {
			return nil, fmt.Errorf("%w: invalid token", httpx.ErrUnauthorized)
		}
		return &Context{Subject: claims.Subject, Token: token}, nil
	}

	return nil, fmt.Errorf("%w: unsupported authentication scheme, use Basic or Bearer", httpx.ErrUnauthorized)
}

func (r *Resolver) contextFromToken(req *http.Request, token string) *Context {
	claims, err := r.sessions.Verify(req.Context(), token)
	if err != nil || claims.Subject == "" {
		return nil
	}
	return &Context{Subject: claims.Subject, Token: token}
}

func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func decodeBasic(encoded string) (string, string, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", "", err
	}
	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", "", fmt.Errorf("missing credential separator")
	}
	return username, password, nil
}
