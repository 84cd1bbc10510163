// Package store holds the portal's client-facing state: the authenticated
// session, the active conversation, the notification list and the task
// list. Stores are constructed explicitly and injected at the composition
// root; none of them is a package-level singleton.
package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"unihub/internal/auth"
	"unihub/internal/localstate"
	"unihub/internal/models"
	"unihub/internal/observability"

	"golang.org/x/sync/singleflight"
)

// SessionStore owns the authenticated-identity slice of state and mediates
// every auth operation. The session (and nothing else) is persisted to the
// device store so it survives restarts.
type SessionStore struct {
	auth   *auth.Service
	local  *localstate.Store
	logger *observability.Logger

	// Collapses concurrent auth calls for the same account into a single
	// outcome instead of letting the last writer win.
	group singleflight.Group

	mu      sync.RWMutex
	session *models.Session
}

// NewSessionStore returns a SessionStore. Call Restore before first use to
// load any persisted session.
func NewSessionStore(authSvc *auth.Service, local *localstate.Store) *SessionStore {
	return &SessionStore{
		auth:   authSvc,
		local:  local,
		logger: observability.Named("session-store"),
	}
}

// Restore loads the persisted session from device storage. A missing or
// malformed record leaves the store unauthenticated.
func (s *SessionStore) Restore() error {
	sess, err := s.local.LoadSession()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
	if sess != nil {
		s.logger.Info("session restored", "user_id", sess.User.ID)
	}
	return nil
}

// Login signs the user in and replaces the session. Concurrent calls for
// the same email share one flight.
func (s *SessionStore) Login(ctx context.Context, email, password string) (*models.Session, error) {
	key := "login:" + strings.ToLower(strings.TrimSpace(email))
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		user, token, err := s.auth.SignIn(ctx, email, password)
		if err != nil {
			return nil, err
		}
		sess := &models.Session{
			User:            *user,
			Token:           token,
			IsAuthenticated: true,
			CreatedAt:       time.Now(),
		}
		if err := s.local.SaveSession(sess); err != nil {
			s.logger.WarnContext(ctx, "failed to persist session", "error", err)
		}
		s.mu.Lock()
		s.session = sess
		s.mu.Unlock()
		return sess, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Session), nil
}

// Register creates the account and then logs in with the same credentials.
// A failure before account creation leaves no partial state; a failure
// after it leaves an account without profile fields, which Login tolerates.
func (s *SessionStore) Register(ctx context.Context, in auth.SignUpInput) (*models.Session, error) {
	if _, err := s.auth.SignUp(ctx, in); err != nil {
		return nil, err
	}
	return s.Login(ctx, in.Email, in.Password)
}

// Logout clears the session. Task and notification state are independent
// of identity and deliberately survive logout.
func (s *SessionStore) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
	if err := s.local.ClearSession(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "logged out")
	return nil
}

// UpdateUserProfile pushes the provided fields to the account and merges
// the result into the session.
func (s *SessionStore) UpdateUserProfile(ctx context.Context, upd models.ProfileUpdate) (*models.Session, error) {
	sess := s.Session()
	if sess == nil {
		return nil, models.NewUnauthorizedError("Not signed in")
	}

	user, err := s.auth.UpdateProfile(ctx, sess.User.ID, upd)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.session != nil {
		s.session.User = *user
		sess = s.session
	}
	s.mu.Unlock()

	if err := s.local.SaveSession(sess); err != nil {
		s.logger.WarnContext(ctx, "failed to persist session", "error", err)
	}
	return sess, nil
}

// ResetPassword triggers the password-reset email flow.
func (s *SessionStore) ResetPassword(ctx context.Context, email string) error {
	return s.auth.SendPasswordReset(ctx, email)
}

// Session returns a copy of the current session, or nil when signed out.
func (s *SessionStore) Session() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	cp := *s.session
	return &cp
}

// IsAuthenticated reports whether a session is active.
func (s *SessionStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session != nil && s.session.IsAuthenticated
}

// CurrentUserID returns the signed-in user's id, or false when signed out.
func (s *SessionStore) CurrentUserID() (uint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return 0, false
	}
	return s.session.User.ID, true
}
