// Package directory abstracts the user directory used for
// authentication and group membership lookups.
package directory

import (
	"context"
	"time"
)

// User is an authenticated directory user.
type User struct {
	Username string
	DN       string
}

// Provider is the capability interface for directory services. The
// concrete implementation is selected once at process start.
type Provider interface {
	// Authenticate validates credentials and returns the directory user,
	// or (nil, nil) on any credential mismatch. Callers cannot tell an
	// unknown user apart from a wrong password.
	Authenticate(ctx context.Context, username, password string) (*User, error)

	// Groups returns the security groups for the user. Lookup failures
	// degrade to an empty set rather than failing the request.
	Groups(ctx context.Context, user *User) []string

	// LastModified returns the directory record modification time for
	// the user, or the Unix epoch when unavailable. Freshness/audit use
	// only; never on the authorization path.
	LastModified(ctx context.Context, user *User) time.Time
}

// Epoch returns the Unix epoch, the fallback modification timestamp.
func Epoch() time.Time {
	return time.Unix(0, 0).UTC()
}
