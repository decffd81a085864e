package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// ErrIncompleteSession is returned by SetAuth when the user or token is missing.
var ErrIncompleteSession = errors.New("session requires both user and access token")

// TokenInspector extracts display claims from an access token. It never
// validates the token.
type TokenInspector interface {
	Inspect(token string) (subject string, expiresAt time.Time, err error)
}

// Store owns the persisted session keys and the in-memory session.
//
// Every mutation is written to storage before the in-memory session changes,
// and subscribers are notified after both, outside the lock.
type Store struct {
	storage   Storage
	inspector TokenInspector
	logger    *slog.Logger

	mu      sync.RWMutex
	current Session

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(Session)
}

func NewStore(storage Storage, inspector TokenInspector, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		storage:   storage,
		inspector: inspector,
		logger:    logger,
		subs:      make(map[int]func(Session)),
	}
}

// Restore rehydrates the session from storage. Absent, torn or malformed
// data yields an empty session; storage errors are logged, never returned.
func (s *Store) Restore(ctx context.Context) Session {
	sess := s.read(ctx)

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	return sess.clone()
}

func (s *Store) read(ctx context.Context) Session {
	rawUser, okUser, err := s.storage.Get(ctx, KeyUser)
	if err != nil {
		s.logger.Warn("session restore: read user", "error", err)
		return Session{}
	}
	token, okToken, err := s.storage.Get(ctx, KeyAccessToken)
	if err != nil {
		s.logger.Warn("session restore: read token", "error", err)
		return Session{}
	}
	if !okUser || !okToken || token == "" {
		if okUser != okToken {
			s.logger.Warn("session restore: torn session ignored", "has_user", okUser, "has_token", okToken)
		}
		return Session{}
	}

	user, err := DecodeUser(rawUser)
	if err != nil {
		s.logger.Warn("session restore: malformed user ignored", "error", err)
		return Session{}
	}

	sess := Session{User: user, AccessToken: token}
	if refresh, ok, err := s.storage.Get(ctx, KeyRefreshToken); err == nil && ok {
		sess.RefreshToken = refresh
	}
	s.annotate(&sess)
	return sess
}

func (s *Store) annotate(sess *Session) {
	if s.inspector == nil || sess.AccessToken == "" {
		return
	}
	subject, exp, err := s.inspector.Inspect(sess.AccessToken)
	if err != nil {
		s.logger.Debug("access token not inspectable", "error", err)
		return
	}
	sess.Subject = subject
	sess.ExpiresAt = exp
}

// Current returns a copy of the in-memory session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// SetAuth persists user and token, then replaces the in-memory session. A
// previously stored refresh token is kept. When the token write fails the
// user key is rolled back to its previous value.
func (s *Store) SetAuth(ctx context.Context, user User, accessToken string) error {
	if user == (User{}) || accessToken == "" {
		return ErrIncompleteSession
	}
	encoded, err := EncodeUser(&user)
	if err != nil {
		return err
	}

	s.mu.Lock()
	prevUser, hadUser, err := s.storage.Get(ctx, KeyUser)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.storage.Set(ctx, KeyUser, encoded); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.storage.Set(ctx, KeyAccessToken, accessToken); err != nil {
		s.rollbackUser(ctx, prevUser, hadUser)
		s.mu.Unlock()
		return err
	}
	refresh, _, _ := s.storage.Get(ctx, KeyRefreshToken)

	next := Session{User: &user, AccessToken: accessToken, RefreshToken: refresh}
	s.annotate(&next)
	s.current = next
	s.mu.Unlock()

	s.notify(next.clone())
	return nil
}

func (s *Store) rollbackUser(ctx context.Context, prev string, had bool) {
	var err error
	if had {
		err = s.storage.Set(ctx, KeyUser, prev)
	} else {
		err = s.storage.Delete(ctx, KeyUser)
	}
	if err != nil {
		s.logger.Error("session rollback failed", "error", err)
	}
}

// SetRefreshToken persists the refresh token. It is stored for later use and
// never sent anywhere by this package.
func (s *Store) SetRefreshToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if token == "" {
		err = s.storage.Delete(ctx, KeyRefreshToken)
	} else {
		err = s.storage.Set(ctx, KeyRefreshToken, token)
	}
	if err != nil {
		return err
	}
	s.current.RefreshToken = token
	return nil
}

// Logout removes user, auth_token and refresh_token and clears the in-memory
// session. It is idempotent. The in-memory session is cleared even when the
// delete fails; the error is still returned.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	err := s.storage.Delete(ctx, KeyUser, KeyAccessToken, KeyRefreshToken)
	wasAuthenticated := s.current.Authenticated()
	s.current = Session{}
	s.mu.Unlock()

	if err != nil {
		err = fmt.Errorf("logout: %w", err)
	}
	if wasAuthenticated {
		s.notify(Session{})
	}
	return err
}

// Subscribe registers fn for every session change and returns a func that
// removes it. fn runs synchronously on the mutating goroutine.
func (s *Store) Subscribe(fn func(Session)) func() {
	if fn == nil {
		return func() {}
	}
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify(sess Session) {
	s.subMu.Lock()
	fns := make([]func(Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(sess.clone())
	}
}
