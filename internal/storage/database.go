package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/models"
)

// DatabaseStore is the PostgreSQL-backed Store. It relies on the unique
// composite index on (user_phone, tenant_slug) and on the unique booking
// idempotency key; gorm must be opened with TranslateError so duplicate-key
// violations surface as gorm.ErrDuplicatedKey.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a store backed by the given gorm connection.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Tenant operations

func (d *DatabaseStore) CreateTenant(t *models.Tenant) (*models.Tenant, error) {
	t.Slug = strings.ToLower(t.Slug)
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = models.TenantStatusActive
	}
	if err := d.db.Create(t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("tenant slug %q already taken", t.Slug)
		}
		return nil, err
	}
	return t, nil
}

func (d *DatabaseStore) GetTenantBySlug(slug string) (*models.Tenant, error) {
	var t models.Tenant
	err := d.db.Where("slug = ?", strings.ToLower(slug)).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *DatabaseStore) UpdateTenant(t *models.Tenant) error {
	t.Slug = strings.ToLower(t.Slug)
	res := d.db.Save(t)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Service catalog

func (d *DatabaseStore) CreateService(s *models.Service) (*models.Service, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if err := d.db.Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

func (d *DatabaseStore) GetActiveServices(tenantID string) ([]*models.Service, error) {
	var services []*models.Service
	err := d.db.
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("created_at asc").
		Find(&services).Error
	if err != nil {
		return nil, err
	}
	return services, nil
}

// Session operations

func (d *DatabaseStore) GetOrCreateSession(phone, slug string) (*models.Session, error) {
	var s models.Session
	err := d.db.Where("user_phone = ? AND tenant_slug = ?", phone, slug).First(&s).Error
	if err == nil {
		// Touch updated_at so this becomes the phone's most recent session.
		if err := d.db.Model(&s).Update("updated_at", time.Now()).Error; err != nil {
			return nil, err
		}
		return &s, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	s = models.Session{
		ID:         uuid.NewString(),
		UserPhone:  phone,
		TenantSlug: slug,
		State:      models.StateStart,
		Data:       models.SessionData{},
	}
	if err := d.db.Create(&s).Error; err != nil {
		// A concurrent create won the unique (phone, slug) race; load it.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing models.Session
			if err := d.db.Where("user_phone = ? AND tenant_slug = ?", phone, slug).First(&existing).Error; err != nil {
				return nil, err
			}
			return &existing, nil
		}
		return nil, err
	}
	return &s, nil
}

func (d *DatabaseStore) GetSession(id string) (*models.Session, error) {
	var s models.Session
	err := d.db.Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *DatabaseStore) GetActiveSession(phone string) (*models.Session, error) {
	var s models.Session
	err := d.db.
		Where("user_phone = ? AND state <> ?", phone, models.StateDone).
		Order("updated_at desc").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *DatabaseStore) GetLatestSession(phone string) (*models.Session, error) {
	var s models.Session
	err := d.db.
		Where("user_phone = ?", phone).
		Order("updated_at desc").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *DatabaseStore) UpdateSession(id string, upd SessionUpdate) (*models.Session, error) {
	updates := map[string]interface{}{"updated_at": time.Now()}
	if upd.State != nil {
		updates["state"] = *upd.State
	}
	if upd.Data != nil {
		updates["data"] = *upd.Data
	}

	res := d.db.Model(&models.Session{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return d.GetSession(id)
}

func (d *DatabaseStore) SweepExpiredSessions(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	res := d.db.
		Where("state = ? AND updated_at < ?", models.StateDone, cutoff).
		Delete(&models.Session{})
	return res.RowsAffected, res.Error
}

// Booking operations

func (d *DatabaseStore) CreateBooking(b *models.Booking) (*models.Booking, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = models.BookingStatusConfirmed
	}
	if err := d.db.Create(b).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateBooking
		}
		return nil, err
	}
	return b, nil
}

func (d *DatabaseStore) GetBooking(id string) (*models.Booking, error) {
	var b models.Booking
	err := d.db.Where("id = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (d *DatabaseStore) GetBookingsByDate(tenantID, date string) ([]*models.Booking, error) {
	var bookings []*models.Booking
	err := d.db.
		Where("tenant_id = ? AND date = ? AND status <> ?", tenantID, date, models.BookingStatusCancelled).
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}
