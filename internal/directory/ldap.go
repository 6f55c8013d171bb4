package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// LDAPConfig carries the connection settings for the LDAP provider.
type LDAPConfig struct {
	URI         string
	BindDN      string
	Password    string
	UserBase    string
	GroupBase   string
	DialTimeout time.Duration
}

// LDAPProvider authenticates users with a bind-as-user and resolves
// group membership with search-as-admin.
type LDAPProvider struct {
	cfg    LDAPConfig
	logger *slog.Logger
}

// NewLDAPProvider constructs an LDAPProvider.
func NewLDAPProvider(cfg LDAPConfig, logger *slog.Logger) (*LDAPProvider, error) {
	if cfg.URI == "" {
		return nil, errors.New("directory: LDAP URI is required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	return &LDAPProvider{cfg: cfg, logger: logger}, nil
}

// Authenticate resolves the user DN as admin, then binds as that user.
func (p *LDAPProvider) Authenticate(ctx context.Context, username, password string) (*User, error) {
	if username == "" || password == "" {
		return nil, nil
	}

	userDN, err := p.resolveUserDN(ctx, username)
	if err != nil {
		return nil, err
	}
	if userDN == "" {
		return nil, nil
	}

	conn, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.Bind(userDN, password); err != nil {
		p.logger.Warn("ldap bind failed", slog.String("username", username))
		return nil, nil
	}
	return &User{Username: username, DN: userDN}, nil
}

// Groups searches the group base for entries naming the user as a
// unique member. Any failure, including timeout, yields an empty set.
func (p *LDAPProvider) Groups(ctx context.Context, user *User) []string {
	if p.cfg.GroupBase == "" || user == nil {
		return nil
	}

	conn, err := p.adminConnection(ctx)
	if err != nil {
		p.logger.Warn("ldap group lookup unavailable", slog.String("dn", user.DN), slog.Any("error", err))
		return nil
	}
	defer conn.Close()

	request := ldap.NewSearchRequest(
		p.cfg.GroupBase,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf("(uniqueMember=%s)", ldap.EscapeFilter(user.DN)),
		[]string{"cn"},
		nil,
	)
	result, err := conn.Search(request)
	if err != nil {
		p.logger.Warn("ldap group search failed", slog.String("dn", user.DN), slog.Any("error", err))
		return nil
	}

	groups := make([]string, 0, len(result.Entries))
	for _, entry := range result.Entries {
		groups = append(groups, entry.DN)
	}
	return groups
}

// LastModified reads the modifyTimestamp operational attribute.
func (p *LDAPProvider) LastModified(ctx context.Context, user *User) time.Time {
	if p.cfg.UserBase == "" || user == nil {
		return Epoch()
	}

	conn, err := p.adminConnection(ctx)
	if err != nil {
		p.logger.Warn("ldap modify-timestamp lookup unavailable", slog.Any("error", err))
		return Epoch()
	}
	defer conn.Close()

	request := ldap.NewSearchRequest(
		user.DN,
		ldap.ScopeBaseObject, ldap.NeverDerefAliases, 1, 0, false,
		"(objectClass=*)",
		[]string{"modifyTimestamp"},
		nil,
	)
	result, err := conn.Search(request)
	if err != nil || len(result.Entries) == 0 {
		return Epoch()
	}

	raw := result.Entries[0].GetAttributeValue("modifyTimestamp")
	if raw == "" {
		return Epoch()
	}
	parsed, err := time.Parse("20060102150405Z", raw)
	if err != nil {
		p.logger.Warn("unparseable ldap timestamp", slog.String("value", raw))
		return Epoch()
	}
	return parsed.UTC()
}

func (p *LDAPProvider) resolveUserDN(ctx context.Context, username string) (string, error) {
	if p.cfg.UserBase == "" {
		return "", nil
	}

	conn, err := p.adminConnection(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	request := ldap.NewSearchRequest(
		p.cfg.UserBase,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 1, 0, false,
		fmt.Sprintf("(uid=%s)", ldap.EscapeFilter(username)),
		[]string{"dn"},
		nil,
	)
	result, err := conn.Search(request)
	if err != nil {
		return "", fmt.Errorf("directory: resolve dn for %s: %w", username, err)
	}
	if len(result.Entries) == 0 {
		return "", nil
	}
	return result.Entries[0].DN, nil
}

func (p *LDAPProvider) adminConnection(ctx context.Context) (*ldap.Conn, error) {
	if p.cfg.BindDN == "" || p.cfg.Password == "" {
		return nil, errors.New("directory: admin bind credentials are required")
	}

	conn, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}
	if err := conn.Bind(p.cfg.BindDN, p.cfg.Password); err != nil {
		conn.Close()
		return nil, fmt.Errorf("directory: admin bind: %w", err)
	}
	return conn, nil
}

func (p *LDAPProvider) dial(ctx context.Context) (*ldap.Conn, error) {
	timeout := p.cfg.DialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	conn, err := ldap.DialURL(p.cfg.URI, ldap.DialWithDialer(&net.Dialer{Timeout: timeout}))
	if err != nil {
		return nil, fmt.Errorf("directory: dial %s: %w", p.cfg.URI, err)
	}
	conn.SetTimeout(timeout)
	return conn, nil
}
