package storage

import (
	"errors"
	"time"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/models"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateBooking is returned by CreateBooking when a booking with the
// same idempotency key already exists. The ledger rejects the resend; it
// never writes a second row.
var ErrDuplicateBooking = errors.New("booking already recorded for idempotency key")

var storeInstance Store

// SetStore sets the global store instance (call from main.go)
func SetStore(s Store) {
	storeInstance = s
}

// GetStore returns the global store instance
func GetStore() Store {
	return storeInstance
}

// SessionUpdate is a partial session update; nil fields are left untouched.
// Every update refreshes updated_at.
type SessionUpdate struct {
	State *models.SessionState
	Data  *models.SessionData
}

// Store defines the interface for storage operations
type Store interface {
	// Tenant operations
	CreateTenant(t *models.Tenant) (*models.Tenant, error)
	GetTenantBySlug(slug string) (*models.Tenant, error)
	UpdateTenant(t *models.Tenant) error

	// Service catalog
	CreateService(s *models.Service) (*models.Service, error)
	GetActiveServices(tenantID string) ([]*models.Service, error)

	// Session operations. All hot-path access is keyed on the composite
	// (phone, slug) or on the session id, never a full scan.
	GetOrCreateSession(phone, slug string) (*models.Session, error)
	GetSession(id string) (*models.Session, error)
	GetActiveSession(phone string) (*models.Session, error)
	GetLatestSession(phone string) (*models.Session, error)
	UpdateSession(id string, upd SessionUpdate) (*models.Session, error)
	SweepExpiredSessions(maxAge time.Duration) (int64, error)

	// Booking operations
	CreateBooking(b *models.Booking) (*models.Booking, error)
	GetBooking(id string) (*models.Booking, error)
	GetBookingsByDate(tenantID, date string) ([]*models.Booking, error)
}
