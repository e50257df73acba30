package storage

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/models"
)

// MemoryStore holds all data in memory. Used for tests and local runs
// without PostgreSQL; not for production.
type MemoryStore struct {
	tenants  map[string]*models.Tenant    // keyed by slug
	services map[string][]*models.Service // keyed by tenant id
	sessions map[string]*models.Session   // keyed by phone|slug
	byID     map[string]*models.Session   // same sessions, keyed by id
	bookings map[string]*models.Booking   // keyed by id
	byKey    map[string]string            // idempotency key -> booking id

	tenantMu  sync.RWMutex
	serviceMu sync.RWMutex
	sessionMu sync.RWMutex
	bookingMu sync.RWMutex

	tenantCounter  int
	serviceCounter int
	bookingCounter int
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:  make(map[string]*models.Tenant),
		services: make(map[string][]*models.Service),
		sessions: make(map[string]*models.Session),
		byID:     make(map[string]*models.Session),
		bookings: make(map[string]*models.Booking),
		byKey:    make(map[string]string),
	}
}

func sessionKey(phone, slug string) string {
	return phone + "|" + slug
}

// Tenant operations

func (m *MemoryStore) CreateTenant(t *models.Tenant) (*models.Tenant, error) {
	m.tenantMu.Lock()
	defer m.tenantMu.Unlock()

	slug := strings.ToLower(t.Slug)
	if _, exists := m.tenants[slug]; exists {
		return nil, fmt.Errorf("tenant slug %q already taken", slug)
	}

	m.tenantCounter++
	now := time.Now()
	stored := *t
	stored.Slug = slug
	if stored.ID == "" {
		stored.ID = fmt.Sprintf("TEN%05d", m.tenantCounter)
	}
	if stored.Status == "" {
		stored.Status = models.TenantStatusActive
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now

	m.tenants[slug] = &stored
	out := stored
	return &out, nil
}

func (m *MemoryStore) GetTenantBySlug(slug string) (*models.Tenant, error) {
	m.tenantMu.RLock()
	defer m.tenantMu.RUnlock()

	t, exists := m.tenants[strings.ToLower(slug)]
	if !exists {
		return nil, ErrNotFound
	}
	out := *t
	return &out, nil
}

func (m *MemoryStore) UpdateTenant(t *models.Tenant) error {
	m.tenantMu.Lock()
	defer m.tenantMu.Unlock()

	slug := strings.ToLower(t.Slug)
	if _, exists := m.tenants[slug]; !exists {
		return ErrNotFound
	}
	stored := *t
	stored.Slug = slug
	stored.UpdatedAt = time.Now()
	m.tenants[slug] = &stored
	return nil
}

// Service catalog

func (m *MemoryStore) CreateService(s *models.Service) (*models.Service, error) {
	m.serviceMu.Lock()
	defer m.serviceMu.Unlock()

	m.serviceCounter++
	now := time.Now()
	stored := *s
	if stored.ID == "" {
		stored.ID = fmt.Sprintf("SVC%05d", m.serviceCounter)
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now

	m.services[stored.TenantID] = append(m.services[stored.TenantID], &stored)
	out := stored
	return &out, nil
}

func (m *MemoryStore) GetActiveServices(tenantID string) ([]*models.Service, error) {
	m.serviceMu.RLock()
	defer m.serviceMu.RUnlock()

	var result []*models.Service
	for _, s := range m.services[tenantID] {
		if s.Active {
			out := *s
			result = append(result, &out)
		}
	}
	return result, nil
}

// Session operations

func (m *MemoryStore) GetOrCreateSession(phone, slug string) (*models.Session, error) {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	key := sessionKey(phone, slug)
	if s, exists := m.sessions[key]; exists {
		s.UpdatedAt = time.Now()
		out := *s
		return &out, nil
	}

	now := time.Now()
	s := &models.Session{
		ID:         uuid.NewString(),
		UserPhone:  phone,
		TenantSlug: slug,
		State:      models.StateStart,
		Data:       models.SessionData{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.sessions[key] = s
	m.byID[s.ID] = s

	out := *s
	return &out, nil
}

func (m *MemoryStore) GetSession(id string) (*models.Session, error) {
	m.sessionMu.RLock()
	defer m.sessionMu.RUnlock()

	s, exists := m.byID[id]
	if !exists {
		return nil, ErrNotFound
	}
	out := *s
	return &out, nil
}

func (m *MemoryStore) GetActiveSession(phone string) (*models.Session, error) {
	m.sessionMu.RLock()
	defer m.sessionMu.RUnlock()

	var latest *models.Session
	for _, s := range m.sessions {
		if s.UserPhone != phone || s.State.Terminal() {
			continue
		}
		if latest == nil || s.UpdatedAt.After(latest.UpdatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	out := *latest
	return &out, nil
}

func (m *MemoryStore) GetLatestSession(phone string) (*models.Session, error) {
	m.sessionMu.RLock()
	defer m.sessionMu.RUnlock()

	var latest *models.Session
	for _, s := range m.sessions {
		if s.UserPhone != phone {
			continue
		}
		if latest == nil || s.UpdatedAt.After(latest.UpdatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	out := *latest
	return &out, nil
}

func (m *MemoryStore) UpdateSession(id string, upd SessionUpdate) (*models.Session, error) {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	s, exists := m.byID[id]
	if !exists {
		return nil, ErrNotFound
	}
	if upd.State != nil {
		s.State = *upd.State
	}
	if upd.Data != nil {
		s.Data = *upd.Data
	}
	s.UpdatedAt = time.Now()

	out := *s
	return &out, nil
}

func (m *MemoryStore) SweepExpiredSessions(maxAge time.Duration) (int64, error) {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	var removed int64
	for key, s := range m.sessions {
		if s.State.Terminal() && s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, key)
			delete(m.byID, s.ID)
			removed++
		}
	}
	return removed, nil
}

// Booking operations

func (m *MemoryStore) CreateBooking(b *models.Booking) (*models.Booking, error) {
	m.bookingMu.Lock()
	defer m.bookingMu.Unlock()

	if b.IdempotencyKey != "" {
		if _, exists := m.byKey[b.IdempotencyKey]; exists {
			return nil, ErrDuplicateBooking
		}
	}

	m.bookingCounter++
	now := time.Now()
	stored := *b
	if stored.ID == "" {
		stored.ID = fmt.Sprintf("BK%05d", m.bookingCounter)
	}
	if stored.Status == "" {
		stored.Status = models.BookingStatusConfirmed
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now

	m.bookings[stored.ID] = &stored
	if stored.IdempotencyKey != "" {
		m.byKey[stored.IdempotencyKey] = stored.ID
	}

	out := stored
	return &out, nil
}

func (m *MemoryStore) GetBooking(id string) (*models.Booking, error) {
	m.bookingMu.RLock()
	defer m.bookingMu.RUnlock()

	b, exists := m.bookings[id]
	if !exists {
		return nil, ErrNotFound
	}
	out := *b
	return &out, nil
}

func (m *MemoryStore) GetBookingsByDate(tenantID, date string) ([]*models.Booking, error) {
	m.bookingMu.RLock()
	defer m.bookingMu.RUnlock()

	var result []*models.Booking
	for _, b := range m.bookings {
		if b.TenantID == tenantID && b.Date == date && b.Status != models.BookingStatusCancelled {
			out := *b
			result = append(result, &out)
		}
	}
	return result, nil
}
