package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/models"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/storage"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// AvailabilityProvider answers "when can this service be booked". Within a
// single dialogue run it behaves as a deterministic, side-effect-free oracle.
type AvailabilityProvider interface {
	// Dates returns bookable dates (YYYY-MM-DD) up to daysAhead days forward.
	Dates(ctx context.Context, tenant *models.Tenant, serviceID string, daysAhead int) ([]string, error)
	// Times returns free slots (HH:MM) on one date.
	Times(ctx context.Context, tenant *models.Tenant, serviceID string, date string) ([]string, error)
}

// ScheduleAvailability derives availability from the tenant's schedule
// settings minus already committed bookings. The clock is injectable so
// tests can pin the window.
type ScheduleAvailability struct {
	store storage.Store
	now   func() time.Time
}

// NewScheduleAvailability creates the default availability provider.
// now may be nil, in which case time.Now is used.
func NewScheduleAvailability(store storage.Store, now func() time.Time) *ScheduleAvailability {
	if now == nil {
		now = time.Now
	}
	return &ScheduleAvailability{store: store, now: now}
}

func (a *ScheduleAvailability) Dates(ctx context.Context, tenant *models.Tenant, serviceID string, daysAhead int) ([]string, error) {
	if daysAhead <= 0 {
		daysAhead = 7
	}

	var dates []string
	today := a.now()
	for i := 1; i <= daysAhead; i++ {
		day := today.AddDate(0, 0, i)
		if !openOn(tenant.Settings, day.Weekday()) {
			continue
		}
		date := day.Format(dateLayout)
		times, err := a.Times(ctx, tenant, serviceID, date)
		if err != nil {
			return nil, err
		}
		if len(times) > 0 {
			dates = append(dates, date)
		}
	}
	return dates, nil
}

func (a *ScheduleAvailability) Times(ctx context.Context, tenant *models.Tenant, serviceID string, date string) ([]string, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("bad date %q: %w", date, err)
	}
	if !openOn(tenant.Settings, day.Weekday()) {
		return nil, nil
	}

	openH, closeH, step := scheduleBounds(tenant.Settings)

	booked := make(map[string]bool)
	bookings, err := a.store.GetBookingsByDate(tenant.ID, date)
	if err != nil {
		return nil, err
	}
	for _, b := range bookings {
		booked[b.Time] = true
	}

	var slots []string
	for m := openH * 60; m+step <= closeH*60; m += step {
		slot := fmt.Sprintf("%02d:%02d", m/60, m%60)
		if !booked[slot] {
			slots = append(slots, slot)
		}
	}
	return slots, nil
}

func openOn(s models.TenantSettings, wd time.Weekday) bool {
	if len(s.OpenWeekdays) == 0 {
		return true
	}
	for _, d := range s.OpenWeekdays {
		if d == wd {
			return true
		}
	}
	return false
}

// scheduleBounds applies defaults for tenants with no schedule configured:
// 09:00-18:00, one-hour slots.
func scheduleBounds(s models.TenantSettings) (openH, closeH, stepMinutes int) {
	openH, closeH, stepMinutes = s.OpenHour, s.CloseHour, s.SlotMinutes
	if stepMinutes <= 0 {
		stepMinutes = 60
	}
	if closeH <= openH {
		openH, closeH = 9, 18
	}
	return openH, closeH, stepMinutes
}
