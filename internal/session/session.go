// Package session holds the identity of the acting user and the tokens that prove it.
//
// A Session moves through Restore (tokens loaded from a TokenStore), Authenticated (tokens
// plus the user profile) and Logout (everything cleared). It is the only shared mutable
// state of the client and is safe for concurrent use.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tickora-io/tickora/internal/types"
)

// State is the lifecycle position of a Session.
type State int

const (
	// StateAnonymous holds no tokens.
	StateAnonymous State = iota
	// StateRestored holds tokens but the profile has not been fetched yet.
	StateRestored
	// StateAuthenticated holds tokens and the user profile.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateRestored:
		return "restored"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Session is the current user and tokens.
type Session struct {
	mu     sync.RWMutex
	store  TokenStore
	tokens *Tokens
	user   *types.User
	expiry time.Time

	leeway time.Duration
	now    func() time.Time
	logger *log.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger injects a custom logger implementation.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRefreshLeeway sets how long before expiry an access token is considered stale.
func WithRefreshLeeway(d time.Duration) Option {
	return func(s *Session) {
		s.leeway = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an anonymous session persisting to store. A nil store keeps tokens in memory.
func New(store TokenStore, opts ...Option) *Session {
	if store == nil {
		store = &MemoryStore{}
	}
	s := &Session{
		store:  store,
		leeway: time.Minute,
		now:    time.Now,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads persisted tokens. It reports false, without error, when nothing is stored.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	tokens, err := s.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoTokens) {
			return false, nil
		}
		return false, fmt.Errorf("restore session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTokensLocked(tokens)
	s.user = nil
	return true, nil
}

// Establish records a fresh login and persists the tokens.
func (s *Session) Establish(ctx context.Context, user *types.User, access, refresh string) error {
	tokens := &Tokens{Access: access, Refresh: refresh, SavedAt: s.now()}
	if user != nil {
		tokens.UserID = user.ID
		tokens.Username = user.Username
	}
	if !tokens.Valid() {
		return errors.New("login response carried no tokens")
	}
	if err := s.store.Save(ctx, tokens); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTokensLocked(tokens)
	s.user = cloneUser(user)
	return nil
}

// UpdateTokens stores a refreshed pair. An empty refresh token keeps the current one.
func (s *Session) UpdateTokens(ctx context.Context, access, refresh string) error {
	s.mu.Lock()
	if s.tokens == nil {
		s.mu.Unlock()
		return errors.New("no session to refresh")
	}
	next := *s.tokens
	next.Access = access
	if refresh != "" {
		next.Refresh = refresh
	}
	next.SavedAt = s.now()
	s.setTokensLocked(&next)
	s.mu.Unlock()

	return s.store.Save(ctx, &next)
}

// SetUser records the profile of the token holder.
func (s *Session) SetUser(user *types.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil || user == nil {
		return
	}
	s.user = cloneUser(user)
	s.tokens.UserID = user.ID
	s.tokens.Username = user.Username
}

// Logout clears memory and the store.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.tokens = nil
	s.user = nil
	s.expiry = time.Time{}
	s.mu.Unlock()

	return s.store.Clear(ctx)
}

// State returns the lifecycle position.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.tokens == nil:
		return StateAnonymous
	case s.user == nil:
		return StateRestored
	default:
		return StateAuthenticated
	}
}

// CurrentUser returns a copy of the profile, or nil before it is known.
func (s *Session) CurrentUser() *types.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUser(s.user)
}

// Username returns the stored username, available even before the profile is fetched.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user != nil {
		return s.user.Username
	}
	if s.tokens != nil {
		return s.tokens.Username
	}
	return ""
}

// AccessToken returns the bearer token, empty when anonymous.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens == nil {
		return ""
	}
	return s.tokens.Access
}

// RefreshToken returns the refresh token, empty when anonymous.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens == nil {
		return ""
	}
	return s.tokens.Refresh
}

// AuthHeader returns the Authorization header value.
func (s *Session) AuthHeader() string {
	token := s.AccessToken()
	if token == "" {
		return ""
	}
	return "Bearer " + token
}

// ExpiresAt returns the access token expiry, zero when unknown.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiry
}

// NeedsRefresh reports whether the access token expires within the leeway. Tokens whose
// expiry cannot be read are left to the backend to reject.
func (s *Session) NeedsRefresh() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens == nil || s.expiry.IsZero() {
		return false
	}
	return s.now().After(s.expiry.Add(-s.leeway))
}

func (s *Session) setTokensLocked(tokens *Tokens) {
	s.tokens = tokens
	exp, err := ExpiryOf(tokens.Access)
	if err != nil {
		s.logger.Printf("session: access token expiry unknown: %v", err)
		s.expiry = time.Time{}
		return
	}
	s.expiry = exp
}

func cloneUser(u *types.User) *types.User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.DepartmentRoles != nil {
		cp.DepartmentRoles = append([]types.DepartmentRole(nil), u.DepartmentRoles...)
	}
	return &cp
}
