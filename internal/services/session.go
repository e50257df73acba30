package services

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/models"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/storage"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/utils"
)

// SessionService wraps the session side of the store with per-session-key
// mutual exclusion. The transport is at-least-once: two deliveries of the
// same turn must not both read the same "before" state and both transition,
// so every dialogue step runs under the lock of its (phone, slug) key from
// session load to persisted completion. Steps for different keys run in
// parallel.
type SessionService struct {
	store storage.Store

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is one key's lock entry. refs counts the steps currently
// holding or waiting on it; the entry is dropped from the map when the last
// one releases, so the map only ever holds keys with in-flight messages.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewSessionService creates a session service over the store.
func NewSessionService(store storage.Store) *SessionService {
	return &SessionService{
		store: store,
		locks: make(map[string]*sessionLock),
	}
}

func (s *SessionService) acquire(key string) *sessionLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[key]
	if !ok {
		l = &sessionLock{}
		s.locks[key] = l
	}
	l.refs++
	return l
}

func (s *SessionService) release(key string, l *sessionLock) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(s.locks, key)
	}
}

// WithSession runs fn holding the (phone, slug) key lock, with the session
// loaded or created. fn must persist any transition before returning.
func (s *SessionService) WithSession(phone, slug string, fn func(*models.Session) error) error {
	key := phone + "|" + slug
	l := s.acquire(key)
	l.mu.Lock()
	defer func() {
		l.mu.Unlock()
		s.release(key, l)
	}()

	sess, err := s.store.GetOrCreateSession(phone, slug)
	if err != nil {
		return err
	}
	if err := sess.Data.Validate(sess.State); err != nil {
		// A corrupted payload cannot drive the dialogue; restart it rather
		// than fault on every subsequent message.
		utils.GetLogger().Warn("session payload invalid, resetting",
			zap.String("session_id", sess.ID), zap.Error(err))
		reset := models.StateStart
		sess, err = s.store.UpdateSession(sess.ID, storage.SessionUpdate{
			State: &reset,
			Data:  &models.SessionData{},
		})
		if err != nil {
			return err
		}
	}
	return fn(sess)
}

// Active returns the phone's most recently updated non-terminal session,
// independent of tenant, or storage.ErrNotFound.
func (s *SessionService) Active(phone string) (*models.Session, error) {
	return s.store.GetActiveSession(phone)
}

// Latest returns the phone's most recently updated session regardless of
// state. Terminal sessions are kept for a while after completion so
// follow-up commands can still find their tenant.
func (s *SessionService) Latest(phone string) (*models.Session, error) {
	return s.store.GetLatestSession(phone)
}

// Update applies a partial update to a session. Callers inside a dialogue
// step already hold the session key lock.
func (s *SessionService) Update(id string, state *models.SessionState, data *models.SessionData) (*models.Session, error) {
	return s.store.UpdateSession(id, storage.SessionUpdate{State: state, Data: data})
}

// SweepExpired deletes terminal sessions whose last update is older than the
// retention window and returns how many were removed. Non-terminal sessions
// are never swept, whatever their age.
func (s *SessionService) SweepExpired(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	removed, err := s.store.SweepExpiredSessions(time.Duration(retentionDays) * 24 * time.Hour)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		utils.GetLogger().Info("expired sessions swept", zap.Int64("removed", removed))
	}
	return removed, nil
}
