package directory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MockProvider is an in-memory directory for tests and development.
type MockProvider struct {
	mu       sync.RWMutex
	users    map[string][]byte // username -> bcrypt hash
	groups   map[string][]string
	modified map[string]time.Time
}

// NewMockProvider constructs a MockProvider seeded with a guest/guest
// account, matching the development default.
func NewMockProvider() *MockProvider {
	p := &MockProvider{
		users:    make(map[string][]byte),
		groups:   make(map[string][]string),
		modified: make(map[string]time.Time),
	}
	p.AddUser("guest", "guest")
	return p
}

// Authenticate compares the supplied password against the stored hash.
func (p *MockProvider) Authenticate(_ context.Context, username, password string) (*User, error) {
	p.mu.RLock()
	hash, ok := p.users[username]
	p.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, nil
	}
	return &User{Username: username, DN: mockDN(username)}, nil
}

// Groups returns the configured groups for the user's DN.
func (p *MockProvider) Groups(_ context.Context, user *User) []string {
	if user == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.groups[user.DN]...)
}

// LastModified returns the recorded modification time, or the epoch.
func (p *MockProvider) LastModified(_ context.Context, user *User) time.Time {
	if user == nil {
		return Epoch()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if ts, ok := p.modified[user.DN]; ok {
		return ts
	}
	return Epoch()
}

// AddUser registers a user with the given password.
func (p *MockProvider) AddUser(username, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		// bcrypt only fails on oversized passwords; treat as programmer error.
		panic(fmt.Sprintf("directory: hash password for %s: %v", username, err))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[username] = hash
	dn := mockDN(username)
	if _, ok := p.groups[dn]; !ok {
		p.groups[dn] = nil
	}
	p.modified[dn] = time.Now().UTC()
}

// SetGroups replaces the group list for a DN.
func (p *MockProvider) SetGroups(dn string, groups []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.groups[dn] = append([]string(nil), groups...)
	p.modified[dn] = time.Now().UTC()
}

func mockDN(username string) string {
	return fmt.Sprintf("uid=%s,ou=users,dc=example,dc=com", username)
}
