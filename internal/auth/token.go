package auth

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/graphtutorial/internal/constants"
)

// Token represents a cached OAuth2 access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
	Scope       string    `json:"scope,omitempty"`
}

// Valid reports whether the token can still be handed out. Tokens expiring
// within constants.TokenExpirationBuffer are treated as expired.
func (t *Token) Valid() bool {
	if t == nil || t.AccessToken == "" {
		return false
	}

	if t.ExpiresAt.IsZero() {
		return true
	}

	return time.Now().Add(constants.TokenExpirationBuffer).Before(t.ExpiresAt)
}

// ValidFor reports whether the token is valid and was issued for scopeKey.
func (t *Token) ValidFor(scopeKey string) bool {
	return t.Valid() && t.Scope == scopeKey
}

// TokenStore is a concurrency-safe single-slot token cache.
type TokenStore struct {
	mu    sync.RWMutex
	token *Token
}

// NewTokenStore creates an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get returns the cached token or nil.
func (s *TokenStore) Get() *Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// Set replaces the cached token.
func (s *TokenStore) Set(token *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
}

// Clear empties the store.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = nil
}

// ScopeKey normalizes scopes into a cache key. Scope names are
// case-insensitive and order does not matter; blank entries are dropped.
func ScopeKey(scopes []string) string {
	normalized := make([]string, 0, len(scopes))

	for _, scope := range scopes {
		scope = strings.ToLower(strings.TrimSpace(scope))
		if scope != "" {
			normalized = append(normalized, scope)
		}
	}

	slices.Sort(normalized)

	return strings.Join(slices.Compact(normalized), " ")
}
