package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/models"
)

func TestGetOrCreateSessionIsUniquePerKey(t *testing.T) {
	m := NewMemoryStore()

	first, err := m.GetOrCreateSession("5491100000001", "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.State != models.StateStart {
		t.Errorf("new session state = %s, want %s", first.State, models.StateStart)
	}

	second, err := m.GetOrCreateSession("5491100000001", "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("same (phone, slug) produced two sessions: %s and %s", first.ID, second.ID)
	}

	other, err := m.GetOrCreateSession("5491100000001", "otro")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if other.ID == first.ID {
		t.Error("different tenants must get different sessions")
	}
}

func TestGetActiveSessionSkipsTerminal(t *testing.T) {
	m := NewMemoryStore()

	a, _ := m.GetOrCreateSession("5491100000001", "acme")
	b, _ := m.GetOrCreateSession("5491100000001", "otro")

	// b is the most recent; mark it terminal and the lookup must fall back to a.
	done := models.StateDone
	if _, err := m.UpdateSession(b.ID, SessionUpdate{State: &done}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	active, err := m.GetActiveSession("5491100000001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active.ID != a.ID {
		t.Errorf("active session = %s, want %s", active.ID, a.ID)
	}

	if _, err := m.UpdateSession(a.ID, SessionUpdate{State: &done}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.GetActiveSession("5491100000001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound with all sessions terminal, got %v", err)
	}
}

func TestUpdateSessionPartial(t *testing.T) {
	m := NewMemoryStore()
	s, _ := m.GetOrCreateSession("5491100000001", "acme")

	data := models.SessionData{Services: []models.ServiceOption{{ID: "SVC00001", Name: "Corte"}}}
	updated, err := m.UpdateSession(s.ID, SessionUpdate{Data: &data})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.State != models.StateStart {
		t.Errorf("data-only update changed state to %s", updated.State)
	}
	if len(updated.Data.Services) != 1 {
		t.Errorf("data update lost payload: %+v", updated.Data)
	}
	if !updated.UpdatedAt.After(s.CreatedAt) && !updated.UpdatedAt.Equal(s.CreatedAt) {
		t.Error("update did not refresh updated_at")
	}
}

func TestSweepExpiredSessionsOnlyTerminal(t *testing.T) {
	m := NewMemoryStore()

	done, _ := m.GetOrCreateSession("5491100000001", "acme")
	open, _ := m.GetOrCreateSession("5491100000002", "acme")

	old := time.Now().Add(-31 * 24 * time.Hour)
	m.sessionMu.Lock()
	m.byID[done.ID].State = models.StateDone
	m.byID[done.ID].UpdatedAt = old
	// Aged past the threshold but mid-dialogue: must survive the sweep.
	m.byID[open.ID].State = models.StateChoosingDate
	m.byID[open.ID].UpdatedAt = old
	m.sessionMu.Unlock()

	removed, err := m.SweepExpiredSessions(30 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 1 {
		t.Errorf("sweep removed %d sessions, want 1", removed)
	}
	if _, err := m.GetSession(done.ID); !errors.Is(err, ErrNotFound) {
		t.Error("terminal session survived the sweep")
	}
	if _, err := m.GetSession(open.ID); err != nil {
		t.Errorf("non-terminal session was swept: %v", err)
	}
}

func TestCreateBookingRejectsDuplicateKey(t *testing.T) {
	m := NewMemoryStore()

	b := &models.Booking{
		TenantID:       "TEN00001",
		ServiceID:      "SVC00001",
		CustomerPhone:  "5491100000001",
		Date:           "2026-09-01",
		Time:           "10:00",
		IdempotencyKey: "ses-1:1",
	}
	if _, err := m.CreateBooking(b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dup := *b
	if _, err := m.CreateBooking(&dup); !errors.Is(err, ErrDuplicateBooking) {
		t.Errorf("expected ErrDuplicateBooking, got %v", err)
	}

	got, err := m.GetBookingsByDate("TEN00001", "2026-09-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("found %d bookings, want 1", len(got))
	}
}

func TestTenantSlugIsCaseInsensitive(t *testing.T) {
	m := NewMemoryStore()

	if _, err := m.CreateTenant(&models.Tenant{Slug: "Acme", Name: "Acme"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tenant, err := m.GetTenantBySlug("ACME")
	if err != nil {
		t.Fatalf("lookup by uppercase slug failed: %v", err)
	}
	if tenant.Slug != "acme" {
		t.Errorf("stored slug = %q, want lowercase", tenant.Slug)
	}
	if _, err := m.CreateTenant(&models.Tenant{Slug: "ACME", Name: "Other"}); err == nil {
		t.Error("expected duplicate slug rejection")
	}
}
