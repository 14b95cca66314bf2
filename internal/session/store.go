// Package session holds the current credential and its decoded claims. It is
// the single writer of the durable credential key and the publisher of
// credential-change events.
package session

import (
	"fmt"
	"log/slog"
	"sync"

	jwt "github.com/golang-jwt/jwt/v5"

	"freshcart/internal/storage"
	"freshcart/pkg/domain"
)

// Change is published on every credential transition.
type Change struct {
	Token    string
	LoggedIn bool
}

// Store is the session/identity store. Construct one per process and pass it
// by reference; it is never a package-level singleton.
type Store struct {
	storage storage.Store
	logger  *slog.Logger

	mu       sync.RWMutex
	token    string
	claims   domain.TokenClaims
	claimsOK bool
	subs     []chan Change
}

// New constructs a session store on top of durable storage.
func New(st storage.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{storage: st, logger: logger}
}

// LoadFromStorage reads a previously stored credential. Runs once at process
// start, before any subscriber exists, so it does not publish a change and
// makes no network call.
func (s *Store) LoadFromStorage() error {
	token, ok, err := s.storage.Get(storage.KeyCredential)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	if !ok || token == "" {
		return nil
	}
	s.mu.Lock()
	s.token = token
	s.claims, s.claimsOK = s.decodeClaims(token)
	s.mu.Unlock()
	return nil
}

// SetCredential stores a new token, decodes its claims, and publishes a
// logged-in change. A token whose claims fail to decode is still accepted;
// downstream display code must tolerate empty claims.
func (s *Store) SetCredential(token string) error {
	if err := s.storage.Set(storage.KeyCredential, token); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}
	s.mu.Lock()
	s.token = token
	s.claims, s.claimsOK = s.decodeClaims(token)
	s.mu.Unlock()
	s.publish(Change{Token: token, LoggedIn: true})
	return nil
}

// Clear drops the credential and claims and publishes a logged-out change.
// Called on explicit logout and by the 401 hook.
func (s *Store) Clear() error {
	if err := s.storage.Delete(storage.KeyCredential); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	s.mu.Lock()
	s.token = ""
	s.claims = domain.TokenClaims{}
	s.claimsOK = false
	s.mu.Unlock()
	s.publish(Change{LoggedIn: false})
	return nil
}

// Token returns the current credential, empty when logged out. Satisfies
// api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// LoggedIn reports whether a credential is held.
func (s *Store) LoggedIn() bool {
	return s.Token() != ""
}

// Claims returns the decoded claims. ok is false when logged out or when the
// stored token could not be decoded. A token carrying only display claims
// still reports ok; callers needing an identity check UserID themselves.
func (s *Store) Claims() (domain.TokenClaims, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims, s.token != "" && s.claimsOK
}

// Subscribe returns a channel receiving credential changes. Slow consumers
// drop events rather than block the store.
func (s *Store) Subscribe() <-chan Change {
	ch := make(chan Change, 16)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) publish(change Change) {
	s.mu.RLock()
	subs := make([]chan Change, len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- change:
		default:
			s.logger.Warn("session change dropped: subscriber not draining")
		}
	}
}

// decodeClaims extracts display claims without signature verification; the
// client holds no keys and the server re-validates every call anyway. ok
// reports only that the token parsed, not that any particular claim is set.
func (s *Store) decodeClaims(token string) (domain.TokenClaims, bool) {
	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mapClaims); err != nil {
		s.logger.Warn("credential claims decode failed", "err", err)
		return domain.TokenClaims{}, false
	}
	claims := domain.TokenClaims{
		UserID: stringClaim(mapClaims, "id"),
		Name:   stringClaim(mapClaims, "name"),
		Email:  stringClaim(mapClaims, "email"),
		Role:   domain.UserRole(stringClaim(mapClaims, "role")),
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, true
}

func stringClaim(claims jwt.MapClaims, key string) string {
	value, _ := claims[key].(string)
	return value
}
