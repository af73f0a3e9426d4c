package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/Skotchmaster/storefront/internal/api"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Store owns the current Identity. A nil identity means "guest".
type Store struct {
	api    *api.Client
	log    *slog.Logger
	events events.Publisher

	mu        sync.Mutex
	identity  *models.Identity
	probing   bool
	signedOut []func()
}

func NewStore(client *api.Client, log *slog.Logger, pub events.Publisher) *Store {
	if pub == nil {
		pub = events.Noop{}
	}
	return &Store{
		api:     client,
		log:     log,
		events:  pub,
		probing: true,
	}
}

// Identity returns a copy of the current identity, or nil for a guest.
func (s *Store) Identity() *models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// Probing reports whether the initial session probe is still outstanding.
// Dependent UI must not render while it is true.
func (s *Store) Probing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probing
}

// OnSignedOut registers a callback fired whenever the identity resolves to
// absent (logout or a probe that did not find a session). The cart store
// uses this to clear itself.
func (s *Store) OnSignedOut(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signedOut = append(s.signedOut, fn)
}

// Probe asks the backend whether a valid session cookie exists. A 401 is the
// expected guest answer and is not an error; any other failure is logged and
// still resolves to a guest.
func (s *Store) Probe(ctx context.Context) error {
	defer func() {
		s.mu.Lock()
		s.probing = false
		s.mu.Unlock()
	}()

	identity, err := s.api.Profile(ctx)
	if err != nil {
		var apiErr *api.Error
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
			s.log.Warn("session probe failed", "error", err)
		}
		s.resolveAbsent()
		return nil
	}

	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()
	return nil
}

func (s *Store) Login(ctx context.Context, creds api.Credentials) (*models.Identity, error) {
	identity, err := s.api.Login(ctx, creds)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, fmt.Errorf("%s: %w", apiErr.Message, ErrInvalidCredentials)
		}
		return nil, err
	}

	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()

	if err := s.events.Publish(ctx, events.TopicUserEvents, identity.Username, map[string]any{
		"type":   "user_logged_in",
		"userID": identity.ID,
	}); err != nil {
		s.log.Warn("event publish failed", "error", err)
	}
	return identity, nil
}

// Logout is fail-open: the backend call is best-effort and the local
// identity is cleared no matter what it returns.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.api.Logout(ctx); err != nil {
		s.log.Warn("server logout failed", "error", err)
	}
	s.resolveAbsent()
	return nil
}

// UpdateIdentity replaces the identity after a profile edit the backend
// already confirmed. The backend is the source of truth here.
func (s *Store) UpdateIdentity(identity models.Identity) {
	s.mu.Lock()
	s.identity = &identity
	s.mu.Unlock()
}

func (s *Store) Register(ctx context.Context, creds api.Credentials, email string) (*models.Identity, error) {
	return s.api.Register(ctx, creds, email)
}

func (s *Store) UpdateProfile(ctx context.Context, identity models.Identity) (*models.Identity, error) {
	updated, err := s.api.UpdateProfile(ctx, identity)
	if err != nil {
		return nil, err
	}
	s.UpdateIdentity(*updated)
	return updated, nil
}

func (s *Store) ChangePassword(ctx context.Context, current, updated string) error {
	return s.api.ChangePassword(ctx, current, updated)
}

func (s *Store) resolveAbsent() {
	s.mu.Lock()
	s.identity = nil
	listeners := make([]func(), len(s.signedOut))
	copy(listeners, s.signedOut)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
