// Package auth resolves request credentials into a security context and
// serves the token-issuance and logout endpoints.
package auth

// GuestDN is the fixed identity assigned to unauthenticated callers on
// endpoints that permit anonymous access.
const GuestDN = "uid=guest,ou=public"

// Context is the per-request security context. It is immutable once
// constructed and never persisted beyond the request.
type Context struct {
	Subject string
	Groups  []string
	Token   string
}

// IsGuest reports whether this is the anonymous fallback identity.
func (c *Context) IsGuest() bool {
	return c == nil || c.Subject == "" || c.Subject == GuestDN
}
