package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/models"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/storage"
)

const testPhone = "5491100000001"

type fakeAvailability struct {
	dates []string
	times map[string][]string
}

func (f *fakeAvailability) Dates(ctx context.Context, tenant *models.Tenant, serviceID string, daysAhead int) ([]string, error) {
	return f.dates, nil
}

func (f *fakeAvailability) Times(ctx context.Context, tenant *models.Tenant, serviceID string, date string) ([]string, error) {
	return f.times[date], nil
}

// flakyLedger fails the first n commits, then delegates to the store.
type flakyLedger struct {
	inner    BookingLedger
	failures int
}

func (l *flakyLedger) Commit(ctx context.Context, b *models.Booking) error {
	if l.failures > 0 {
		l.failures--
		return errors.New("ledger unavailable")
	}
	return l.inner.Commit(ctx, b)
}

type testEnv struct {
	engine *DialogueEngine
	store  *storage.MemoryStore
	tenant *models.Tenant
	avail  *fakeAvailability
	ledger *flakyLedger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := storage.NewMemoryStore()
	tenant, err := store.CreateTenant(&models.Tenant{
		Slug:   "acme",
		Name:   "Acme Barber",
		Status: models.TenantStatusActive,
	})
	if err != nil {
		t.Fatalf("creating tenant: %v", err)
	}
	for _, svc := range []*models.Service{
		{TenantID: tenant.ID, Name: "Corte", Price: 500, DurationMin: 30, Active: true},
		{TenantID: tenant.ID, Name: "Barba", Price: 300, DurationMin: 20, Active: true},
	} {
		if _, err := store.CreateService(svc); err != nil {
			t.Fatalf("creating service: %v", err)
		}
	}

	avail := &fakeAvailability{
		dates: []string{"2026-09-01", "2026-09-02", "2026-09-03"},
		times: map[string][]string{
			"2026-09-01": {"10:00", "11:00"},
			"2026-09-02": {"09:00", "10:00", "15:00"},
			"2026-09-03": {"16:00"},
		},
	}

	sessions := NewSessionService(store)
	directory := NewTenantDirectory(store, nil, 0)
	ledger := &flakyLedger{inner: NewStoreLedger(store)}
	engine := NewDialogueEngine(store, sessions, directory, avail, ledger, 7)

	return &testEnv{engine: engine, store: store, tenant: tenant, avail: avail, ledger: ledger}
}

func (e *testEnv) send(t *testing.T, text string) string {
	t.Helper()
	reply, err := e.engine.HandleMessage(context.Background(), testPhone, text)
	if err != nil {
		t.Fatalf("HandleMessage(%q): %v", text, err)
	}
	return reply
}

func (e *testEnv) session(t *testing.T) *models.Session {
	t.Helper()
	s, err := e.store.GetOrCreateSession(testPhone, "acme")
	if err != nil {
		t.Fatalf("loading session: %v", err)
	}
	return s
}

func TestFullBookingScenario(t *testing.T) {
	env := newTestEnv(t)

	// Opening with the slug creates the session and lists services.
	reply := env.send(t, "acme")
	if !strings.Contains(reply, "1. Corte") || !strings.Contains(reply, "2. Barba") {
		t.Fatalf("service menu missing entries:\n%s", reply)
	}
	if s := env.session(t); s.State != models.StateChoosingService {
		t.Fatalf("state = %s, want %s", s.State, models.StateChoosingService)
	}

	// Pick the first service.
	reply = env.send(t, "1")
	s := env.session(t)
	if s.State != models.StateChoosingDate {
		t.Fatalf("state = %s, want %s", s.State, models.StateChoosingDate)
	}
	if s.Data.SelectedService == nil || s.Data.SelectedService.Name != "Corte" {
		t.Fatalf("selected service = %+v, want Corte", s.Data.SelectedService)
	}
	if !strings.Contains(reply, "2026-09-01") {
		t.Fatalf("date list missing dates:\n%s", reply)
	}

	// Out of range: three dates listed, nine requested.
	reply = env.send(t, "9")
	if s := env.session(t); s.State != models.StateChoosingDate {
		t.Fatalf("out-of-range input transitioned to %s", s.State)
	}
	if !strings.Contains(reply, "Opción no válida") {
		t.Fatalf("expected re-prompt, got:\n%s", reply)
	}

	// Pick the second date.
	env.send(t, "2")
	s = env.session(t)
	if s.State != models.StateChoosingTime {
		t.Fatalf("state = %s, want %s", s.State, models.StateChoosingTime)
	}
	if s.Data.SelectedDate != "2026-09-02" {
		t.Fatalf("selected date = %s, want 2026-09-02", s.Data.SelectedDate)
	}

	// Pick the first time; the summary must carry all selections.
	reply = env.send(t, "1")
	s = env.session(t)
	if s.State != models.StateConfirming {
		t.Fatalf("state = %s, want %s", s.State, models.StateConfirming)
	}
	for _, want := range []string{"Acme Barber", "Corte", "2026-09-02", "09:00", "500"} {
		if !strings.Contains(reply, want) {
			t.Errorf("summary missing %q:\n%s", want, reply)
		}
	}

	// Confirm: exactly one booking, session terminal.
	env.send(t, "si")
	if s := env.session(t); s.State != models.StateDone {
		t.Fatalf("state = %s, want %s", s.State, models.StateDone)
	}
	bookings, err := env.store.GetBookingsByDate(env.tenant.ID, "2026-09-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bookings) != 1 {
		t.Fatalf("found %d bookings, want 1", len(bookings))
	}
	b := bookings[0]
	if b.Time != "09:00" || b.ServiceName != "Corte" || b.CustomerPhone != testPhone || b.Amount != 500 {
		t.Errorf("booking fields wrong: %+v", b)
	}
}

func TestUnknownUserGetsDisambiguationPrompt(t *testing.T) {
	env := newTestEnv(t)

	reply, err := env.engine.HandleMessage(context.Background(), testPhone, "hola")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(reply, "código del negocio") {
		t.Errorf("expected disambiguation prompt, got:\n%s", reply)
	}
	if _, err := env.store.GetActiveSession(testPhone); !errors.Is(err, storage.ErrNotFound) {
		t.Error("disambiguation must not create a session")
	}
}

func TestInvalidInputNeverMutatesSession(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, "acme")
	env.send(t, "1")

	before := env.session(t)
	for _, input := range []string{"0", "4", "abc", "-1", "1.5"} {
		env.send(t, input)
		after := env.session(t)
		if after.State != before.State {
			t.Errorf("input %q changed state to %s", input, after.State)
		}
		if after.Data.SelectedDate != "" || len(after.Data.Times) != 0 {
			t.Errorf("input %q mutated payload: %+v", input, after.Data)
		}
	}
}

func TestGlobalResetFromEveryState(t *testing.T) {
	for _, cmd := range []string{"menu", "INICIO", " Start "} {
		for _, state := range []models.SessionState{
			models.StateStart,
			models.StateChoosingService,
			models.StateChoosingDate,
			models.StateChoosingTime,
			models.StateConfirming,
			models.StateDone,
		} {
			env := newTestEnv(t)
			env.send(t, "acme")
			sess := env.session(t)

			svc := &models.ServiceOption{ID: "SVC00001", Name: "Corte", Price: 500}
			data := models.SessionData{
				Services:        []models.ServiceOption{*svc},
				SelectedService: svc,
				Dates:           []string{"2026-09-01"},
				SelectedDate:    "2026-09-01",
				Times:           []string{"10:00"},
				SelectedTime:    "10:00",
			}
			st := state
			if _, err := env.store.UpdateSession(sess.ID, storage.SessionUpdate{State: &st, Data: &data}); err != nil {
				t.Fatalf("seeding state %s: %v", state, err)
			}

			reply := env.send(t, cmd)
			after := env.session(t)
			// The reset lands in inicio and immediately re-lists services,
			// so the observable state is the service menu with a clean slate.
			if after.State != models.StateChoosingService {
				t.Errorf("%q from %s: state = %s, want %s", cmd, state, after.State, models.StateChoosingService)
			}
			if after.Data.SelectedService != nil || after.Data.SelectedDate != "" || after.Data.SelectedTime != "" {
				t.Errorf("%q from %s: selections survived the reset: %+v", cmd, state, after.Data)
			}
			if !strings.Contains(reply, "Nuestros servicios") {
				t.Errorf("%q from %s: expected the service menu, got:\n%s", cmd, state, reply)
			}
		}
	}
}

func TestPayloadAccumulatesAcrossTransitions(t *testing.T) {
	env := newTestEnv(t)

	env.send(t, "acme")
	withServices := env.session(t).Data

	env.send(t, "1")
	withDate := env.session(t).Data
	if len(withDate.Services) != len(withServices.Services) {
		t.Error("service list dropped after selecting a service")
	}

	env.send(t, "1")
	withTime := env.session(t).Data
	if withTime.SelectedService == nil || len(withTime.Dates) == 0 || withTime.SelectedDate == "" {
		t.Errorf("prior selections dropped: %+v", withTime)
	}

	env.send(t, "1")
	confirming := env.session(t).Data
	if confirming.SelectedService == nil || confirming.SelectedDate == "" ||
		confirming.SelectedTime == "" || len(confirming.Services) == 0 ||
		len(confirming.Dates) == 0 || len(confirming.Times) == 0 {
		t.Errorf("payload not a superset at confirmation: %+v", confirming)
	}
}

func TestEmptyTimesRelistsDatesWithoutReset(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, "acme")
	env.send(t, "1")

	// The third date fills up between turns.
	env.avail.times["2026-09-03"] = nil

	reply := env.send(t, "3")
	s := env.session(t)
	if s.State != models.StateChoosingDate {
		t.Fatalf("state = %s, want to stay in %s", s.State, models.StateChoosingDate)
	}
	if s.Data.SelectedDate != "" {
		t.Errorf("full date was recorded as selected: %q", s.Data.SelectedDate)
	}
	if !strings.Contains(reply, "1. 2026-09-01") {
		t.Errorf("expected the date list again, got:\n%s", reply)
	}
}

func TestNoDatesResetsToStart(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, "acme")

	env.avail.dates = nil
	reply := env.send(t, "1")
	if s := env.session(t); s.State != models.StateStart {
		t.Fatalf("state = %s, want %s", s.State, models.StateStart)
	}
	if !strings.Contains(reply, "no hay fechas disponibles") {
		t.Errorf("expected apology, got:\n%s", reply)
	}
}

func TestLedgerFailureHoldsConfirmingForRetry(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, "acme")
	env.send(t, "1")
	env.send(t, "1")
	env.send(t, "1")

	env.ledger.failures = 1
	reply := env.send(t, "si")
	s := env.session(t)
	if s.State != models.StateConfirming {
		t.Fatalf("failed commit moved state to %s, want %s", s.State, models.StateConfirming)
	}
	if s.Data.ConfirmKey == "" {
		t.Fatal("idempotency key must be persisted before the commit attempt")
	}
	if !strings.Contains(reply, "intentarlo de nuevo") {
		t.Errorf("expected retry prompt, got:\n%s", reply)
	}
	key := s.Data.ConfirmKey

	// The resend reuses the same key and succeeds.
	env.send(t, "si")
	s = env.session(t)
	if s.State != models.StateDone {
		t.Fatalf("retry did not finalize, state = %s", s.State)
	}
	if s.Data.ConfirmKey != key {
		t.Errorf("retry minted a new key: %q != %q", s.Data.ConfirmKey, key)
	}
	bookings, _ := env.store.GetBookingsByDate(env.tenant.ID, "2026-09-01")
	if len(bookings) != 1 {
		t.Fatalf("found %d bookings after retry, want 1", len(bookings))
	}
}

func TestRebookingAfterResetCreatesSecondBooking(t *testing.T) {
	env := newTestEnv(t)

	// First booking: Corte on 2026-09-01 at 10:00.
	env.send(t, "acme")
	env.send(t, "1")
	env.send(t, "1")
	env.send(t, "1")
	env.send(t, "si")

	// Same session, fresh dialogue: Barba on 2026-09-02 at 10:00.
	env.send(t, "menu")
	env.send(t, "2")
	env.send(t, "2")
	reply := env.send(t, "2")
	if !strings.Contains(reply, "Barba") {
		t.Fatalf("second dialogue summary wrong:\n%s", reply)
	}
	env.send(t, "si")
	if s := env.session(t); s.State != models.StateDone {
		t.Fatalf("second confirmation left state %s", s.State)
	}

	day1, err := env.store.GetBookingsByDate(env.tenant.ID, "2026-09-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	day2, err := env.store.GetBookingsByDate(env.tenant.ID, "2026-09-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(day1) != 1 || len(day2) != 1 {
		t.Fatalf("bookings per day = %d/%d, want 1/1", len(day1), len(day2))
	}
	if day2[0].ServiceName != "Barba" || day2[0].Time != "10:00" {
		t.Errorf("second booking fields wrong: %+v", day2[0])
	}
	if day1[0].IdempotencyKey == day2[0].IdempotencyKey {
		t.Errorf("both bookings share idempotency key %q", day1[0].IdempotencyKey)
	}
}

func TestConcurrentConfirmationsCommitOnce(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, "acme")
	env.send(t, "1")
	env.send(t, "1")
	env.send(t, "1")

	// Two deliveries of the same "si": the per-session lock serializes them
	// and the second sees the terminal state.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = env.engine.HandleMessage(context.Background(), testPhone, "si")
		}()
	}
	wg.Wait()

	bookings, err := env.store.GetBookingsByDate(env.tenant.ID, "2026-09-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bookings) != 1 {
		t.Fatalf("concurrent confirmations produced %d bookings, want 1", len(bookings))
	}
}

func TestNegativeConfirmationResetsWithoutBooking(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, "acme")
	env.send(t, "1")
	env.send(t, "1")
	env.send(t, "1")

	reply := env.send(t, "no")
	if s := env.session(t); s.State != models.StateStart {
		t.Fatalf("state = %s, want %s", s.State, models.StateStart)
	}
	if !strings.Contains(reply, "cancelada") {
		t.Errorf("expected cancellation notice, got:\n%s", reply)
	}
	bookings, _ := env.store.GetBookingsByDate(env.tenant.ID, "2026-09-01")
	if len(bookings) != 0 {
		t.Fatalf("cancellation wrote %d bookings", len(bookings))
	}
}

func TestConfirmationRepromptsOnNoise(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, "acme")
	env.send(t, "1")
	env.send(t, "1")
	env.send(t, "1")

	reply := env.send(t, "tal vez")
	if s := env.session(t); s.State != models.StateConfirming {
		t.Fatalf("noise input moved state to %s", s.State)
	}
	if !strings.Contains(reply, "confirmar") {
		t.Errorf("expected confirmation re-prompt, got:\n%s", reply)
	}
}

func TestSuspendedTenantLeavesSessionUntouched(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, "acme")
	env.send(t, "1")
	before := env.session(t)

	env.tenant.Status = models.TenantStatusSuspended
	if err := env.store.UpdateTenant(env.tenant); err != nil {
		t.Fatalf("suspending tenant: %v", err)
	}

	reply := env.send(t, "2")
	if !strings.Contains(reply, "no está disponible") {
		t.Errorf("expected unavailability notice, got:\n%s", reply)
	}
	after := env.session(t)
	if after.State != before.State {
		t.Errorf("suspended tenant message changed state: %s -> %s", before.State, after.State)
	}

	// Reactivation resumes the dialogue where it stood.
	env.tenant.Status = models.TenantStatusActive
	if err := env.store.UpdateTenant(env.tenant); err != nil {
		t.Fatalf("reactivating tenant: %v", err)
	}
	env.send(t, "2")
	if s := env.session(t); s.State != models.StateChoosingTime {
		t.Errorf("dialogue did not resume after reactivation, state = %s", s.State)
	}
}

func TestTerminalSessionOnlyAcceptsReset(t *testing.T) {
	env := newTestEnv(t)
	env.send(t, "acme")
	env.send(t, "1")
	env.send(t, "1")
	env.send(t, "1")
	env.send(t, "si")

	// finalizado is excluded from phone-only lookup, so a bare number finds
	// no active session.
	reply := env.send(t, "1")
	if !strings.Contains(reply, "código del negocio") {
		t.Errorf("expected disambiguation, got:\n%s", reply)
	}

	// But addressing the tenant by slug still works from finalizado.
	reply = env.send(t, "acme")
	if !strings.Contains(reply, "ya está confirmada") {
		t.Errorf("expected already-done notice, got:\n%s", reply)
	}

	// And the global reset starts a fresh booking.
	env.send(t, "menu")
	if s := env.session(t); s.State != models.StateChoosingService {
		t.Errorf("reset from finalizado landed in %s", s.State)
	}
}

func TestEmptyCatalogStaysInStart(t *testing.T) {
	store := storage.NewMemoryStore()
	tenant, err := store.CreateTenant(&models.Tenant{Slug: "vacio", Name: "Sin Servicios", Status: models.TenantStatusActive})
	if err != nil {
		t.Fatalf("creating tenant: %v", err)
	}
	sessions := NewSessionService(store)
	directory := NewTenantDirectory(store, nil, 0)
	engine := NewDialogueEngine(store, sessions, directory, &fakeAvailability{}, NewStoreLedger(store), 7)

	reply, err := engine.HandleMessage(context.Background(), testPhone, "vacio")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(reply, "no tiene servicios") {
		t.Errorf("expected unavailability message, got:\n%s", reply)
	}
	s, err := store.GetOrCreateSession(testPhone, tenant.Slug)
	if err != nil {
		t.Fatalf("loading session: %v", err)
	}
	if s.State != models.StateStart {
		t.Errorf("empty catalog transitioned to %s", s.State)
	}
}
