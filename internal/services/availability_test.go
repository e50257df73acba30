package services

import (
	"context"
	"testing"
	"time"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/models"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/storage"
)

// Friday 2026-09-04; the following week starts Monday 2026-09-07.
var testNow = time.Date(2026, 9, 4, 10, 0, 0, 0, time.UTC)

func newScheduleEnv(t *testing.T, settings models.TenantSettings) (*ScheduleAvailability, *storage.MemoryStore, *models.Tenant) {
	t.Helper()
	store := storage.NewMemoryStore()
	tenant, err := store.CreateTenant(&models.Tenant{
		Slug:     "acme",
		Name:     "Acme",
		Settings: settings,
		Status:   models.TenantStatusActive,
	})
	if err != nil {
		t.Fatalf("creating tenant: %v", err)
	}
	return NewScheduleAvailability(store, func() time.Time { return testNow }), store, tenant
}

func TestTimesFollowSchedule(t *testing.T) {
	avail, _, tenant := newScheduleEnv(t, models.TenantSettings{
		OpenHour:    9,
		CloseHour:   12,
		SlotMinutes: 60,
	})

	times, err := avail.Times(context.Background(), tenant, "SVC00001", "2026-09-07")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"09:00", "10:00", "11:00"}
	if len(times) != len(want) {
		t.Fatalf("got %v, want %v", times, want)
	}
	for i := range want {
		if times[i] != want[i] {
			t.Fatalf("got %v, want %v", times, want)
		}
	}
}

func TestTimesExcludeBookedSlots(t *testing.T) {
	avail, store, tenant := newScheduleEnv(t, models.TenantSettings{
		OpenHour:    9,
		CloseHour:   12,
		SlotMinutes: 60,
	})

	if _, err := store.CreateBooking(&models.Booking{
		TenantID:       tenant.ID,
		ServiceID:      "SVC00001",
		CustomerPhone:  "5491100000001",
		Date:           "2026-09-07",
		Time:           "10:00",
		IdempotencyKey: "k1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	times, err := avail.Times(context.Background(), tenant, "SVC00001", "2026-09-07")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, slot := range times {
		if slot == "10:00" {
			t.Errorf("booked slot still offered: %v", times)
		}
	}
	if len(times) != 2 {
		t.Errorf("got %d slots, want 2: %v", len(times), times)
	}
}

func TestTimesRespectClosedWeekdays(t *testing.T) {
	avail, _, tenant := newScheduleEnv(t, models.TenantSettings{
		OpenWeekdays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		OpenHour:     9,
		CloseHour:    12,
		SlotMinutes:  60,
	})

	// 2026-09-06 is a Sunday.
	times, err := avail.Times(context.Background(), tenant, "SVC00001", "2026-09-06")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(times) != 0 {
		t.Errorf("closed day offered slots: %v", times)
	}
}

func TestDatesWindowSkipsClosedDays(t *testing.T) {
	avail, _, tenant := newScheduleEnv(t, models.TenantSettings{
		OpenWeekdays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		OpenHour:     9,
		CloseHour:    12,
		SlotMinutes:  60,
	})

	dates, err := avail.Dates(context.Background(), tenant, "SVC00001", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Sat 05 and Sun 06 are closed; Mon 07 through Fri 11 remain.
	want := []string{"2026-09-07", "2026-09-08", "2026-09-09", "2026-09-10", "2026-09-11"}
	if len(dates) != len(want) {
		t.Fatalf("got %v, want %v", dates, want)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Fatalf("got %v, want %v", dates, want)
		}
	}
}

func TestScheduleDefaultsWhenUnconfigured(t *testing.T) {
	avail, _, tenant := newScheduleEnv(t, models.TenantSettings{})

	times, err := avail.Times(context.Background(), tenant, "SVC00001", "2026-09-07")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Default 09:00-18:00 with one-hour slots.
	if len(times) != 9 {
		t.Errorf("got %d default slots, want 9: %v", len(times), times)
	}
	if times[0] != "09:00" || times[len(times)-1] != "17:00" {
		t.Errorf("default bounds wrong: %v", times)
	}
}
