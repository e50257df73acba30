package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/models"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/storage"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/utils"
)

// Reset commands restart the dialogue from any state, including finalizado.
var resetCommands = map[string]bool{
	"menu":   true,
	"inicio": true,
	"start":  true,
}

var affirmativeTokens = map[string]bool{
	"si":        true,
	"sí":        true,
	"confirmar": true,
}

var negativeTokens = map[string]bool{
	"no":       true,
	"cancelar": true,
}

// DialogueEngine drives the booking conversation: it routes an inbound
// message to its tenant, loads the session, computes the transition and
// persists it, returning the reply text. Every per-session step runs under
// the session key lock (see SessionService), so duplicate deliveries of one
// turn are applied at most once.
type DialogueEngine struct {
	store        storage.Store
	sessions     *SessionService
	tenants      *TenantDirectory
	availability AvailabilityProvider
	ledger       BookingLedger
	windowDays   int
	log          *zap.Logger
}

// NewDialogueEngine wires the engine. windowDays is how far forward dates are
// offered; zero falls back to 7.
func NewDialogueEngine(
	store storage.Store,
	sessions *SessionService,
	tenants *TenantDirectory,
	availability AvailabilityProvider,
	ledger BookingLedger,
	windowDays int,
) *DialogueEngine {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &DialogueEngine{
		store:        store,
		sessions:     sessions,
		tenants:      tenants,
		availability: availability,
		ledger:       ledger,
		windowDays:   windowDays,
		log:          utils.GetLogger(),
	}
}

// HandleMessage processes one inbound message and returns the reply text.
// User mistakes (bad index, unknown command) never surface as errors; they
// become re-prompt replies. An error return means a collaborator failed and
// the message should be retried by the caller.
func (e *DialogueEngine) HandleMessage(ctx context.Context, rawPhone, text string) (string, error) {
	phone := utils.NormalizePhone(rawPhone)
	if phone == "" {
		return "", errors.New("empty sender phone")
	}
	input := strings.TrimSpace(text)

	tenant, reply, err := e.resolveTenant(ctx, phone, input)
	if err != nil || tenant == nil {
		return reply, err
	}

	err = e.sessions.WithSession(phone, tenant.Slug, func(sess *models.Session) error {
		r, stepErr := e.step(ctx, tenant, sess, input)
		reply = r
		return stepErr
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

// resolveTenant picks the tenant for this message: an explicit slug token
// wins, then the phone's active session. A nil tenant with a non-empty reply
// means the message was answered without touching any session (disambiguation
// or unavailability notice).
func (e *DialogueEngine) resolveTenant(ctx context.Context, phone, input string) (*models.Tenant, string, error) {
	if slug, ok := e.tenants.SlugCandidate(input); ok {
		t, err := e.tenants.Resolve(ctx, slug)
		switch {
		case err == nil && t.Bookable():
			return t, "", nil
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return nil, "", err
		}
		// Unknown or unavailable slug: the text may just be an ordinary
		// word or a numeric reply, so fall through to the active session.
	}

	sess, err := e.sessions.Active(phone)
	if errors.Is(err, storage.ErrNotFound) && isResetCommand(input) {
		// Terminal sessions are invisible to the active lookup, but the
		// global reset must still work after a finished booking.
		sess, err = e.sessions.Latest(phone)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, msgDisambiguation, nil
	}
	if err != nil {
		return nil, "", err
	}

	t, err := e.tenants.Resolve(ctx, sess.TenantSlug)
	if errors.Is(err, storage.ErrNotFound) {
		// Tenant deleted under an open session; nothing to route to.
		return nil, msgDisambiguation, nil
	}
	if err != nil {
		return nil, "", err
	}
	if !t.Bookable() {
		// The tenant may become active again: leave the session untouched.
		return nil, msgTenantUnavailable(t.Name), nil
	}
	return t, "", nil
}

// step applies one transition of the state machine. It persists any change
// before returning; on collaborator failure the session keeps its pre-step
// state so the next delivery retries cleanly.
func (e *DialogueEngine) step(ctx context.Context, tenant *models.Tenant, sess *models.Session, input string) (string, error) {
	if isResetCommand(input) {
		updated, err := e.sessions.Update(sess.ID, stateRef(models.StateStart), &models.SessionData{})
		if err != nil {
			return "", err
		}
		sess = updated
	}

	switch sess.State {
	case models.StateStart:
		return e.listServices(ctx, tenant, sess)
	case models.StateChoosingService:
		return e.chooseService(ctx, tenant, sess, input)
	case models.StateChoosingDate:
		return e.chooseDate(ctx, tenant, sess, input)
	case models.StateChoosingTime:
		return e.chooseTime(tenant, sess, input)
	case models.StateConfirming:
		return e.confirm(ctx, tenant, sess, input)
	case models.StateDone:
		return msgAlreadyDone, nil
	default:
		e.log.Warn("session in unknown state, resetting",
			zap.String("session_id", sess.ID), zap.String("state", string(sess.State)))
		if _, err := e.sessions.Update(sess.ID, stateRef(models.StateStart), &models.SessionData{}); err != nil {
			return "", err
		}
		return msgDisambiguation, nil
	}
}

// listServices renders the tenant's menu and freezes it into the session.
// With an empty catalog the session stays in inicio untouched.
func (e *DialogueEngine) listServices(ctx context.Context, tenant *models.Tenant, sess *models.Session) (string, error) {
	services, err := e.store.GetActiveServices(tenant.ID)
	if err != nil {
		return "", err
	}
	if len(services) == 0 {
		return msgNoServices(tenant.Name), nil
	}

	opts := make([]models.ServiceOption, len(services))
	for i, s := range services {
		opts[i] = models.ServiceOption{ID: s.ID, Name: s.Name, Price: s.Price}
	}

	data := models.SessionData{Services: opts}
	if _, err := e.sessions.Update(sess.ID, stateRef(models.StateChoosingService), &data); err != nil {
		return "", err
	}
	return renderServiceMenu(tenant, opts), nil
}

func (e *DialogueEngine) chooseService(ctx context.Context, tenant *models.Tenant, sess *models.Session, input string) (string, error) {
	idx, ok := parseSelection(input, len(sess.Data.Services))
	if !ok {
		return msgInvalidOption(len(sess.Data.Services)), nil
	}
	selected := sess.Data.Services[idx-1]

	dates, err := e.availability.Dates(ctx, tenant, selected.ID, e.windowDays)
	if err != nil {
		return "", err
	}
	if len(dates) == 0 {
		if _, err := e.sessions.Update(sess.ID, stateRef(models.StateStart), &models.SessionData{}); err != nil {
			return "", err
		}
		return msgNoDates(selected.Name), nil
	}

	data := sess.Data
	data.SelectedService = &selected
	data.Dates = dates
	if _, err := e.sessions.Update(sess.ID, stateRef(models.StateChoosingDate), &data); err != nil {
		return "", err
	}
	return renderDateList(selected.Name, dates), nil
}

func (e *DialogueEngine) chooseDate(ctx context.Context, tenant *models.Tenant, sess *models.Session, input string) (string, error) {
	idx, ok := parseSelection(input, len(sess.Data.Dates))
	if !ok {
		return msgInvalidOption(len(sess.Data.Dates)), nil
	}
	date := sess.Data.Dates[idx-1]

	times, err := e.availability.Times(ctx, tenant, sess.Data.SelectedService.ID, date)
	if err != nil {
		return "", err
	}
	if len(times) == 0 {
		// The date filled up since it was listed. Stay in this state and
		// offer the dates again rather than restarting the whole flow.
		return msgNoTimesRelist(date, sess.Data.Dates), nil
	}

	data := sess.Data
	data.SelectedDate = date
	data.Times = times
	if _, err := e.sessions.Update(sess.ID, stateRef(models.StateChoosingTime), &data); err != nil {
		return "", err
	}
	return renderTimeList(date, times), nil
}

func (e *DialogueEngine) chooseTime(tenant *models.Tenant, sess *models.Session, input string) (string, error) {
	idx, ok := parseSelection(input, len(sess.Data.Times))
	if !ok {
		return msgInvalidOption(len(sess.Data.Times)), nil
	}

	data := sess.Data
	data.SelectedTime = data.Times[idx-1]
	if _, err := e.sessions.Update(sess.ID, stateRef(models.StateConfirming), &data); err != nil {
		return "", err
	}
	return renderSummary(tenant, &data), nil
}

// confirm is the only step with an irreversible side effect. The idempotency
// key is minted and persisted before the ledger write, so a redelivered "si"
// re-attempts the same write and the ledger rejects the duplicate. On a
// ledger failure the session stays in confirmando: losing the whole dialogue
// to a transient storage error is worse than asking the user to resend.
func (e *DialogueEngine) confirm(ctx context.Context, tenant *models.Tenant, sess *models.Session, input string) (string, error) {
	switch {
	case isAffirmative(input):
		data := sess.Data
		if data.ConfirmKey == "" {
			// A fresh key per confirmation turn: the session is reused across
			// bookings, so the key must not derive from session identity.
			data.ConfirmKey = uuid.NewString()
			updated, err := e.sessions.Update(sess.ID, nil, &data)
			if err != nil {
				return "", err
			}
			sess = updated
		}

		booking := &models.Booking{
			TenantID:       tenant.ID,
			ServiceID:      data.SelectedService.ID,
			ServiceName:    data.SelectedService.Name,
			CustomerPhone:  sess.UserPhone,
			Date:           data.SelectedDate,
			Time:           data.SelectedTime,
			Amount:         data.SelectedService.Price,
			IdempotencyKey: data.ConfirmKey,
			Status:         models.BookingStatusConfirmed,
		}

		err := e.ledger.Commit(ctx, booking)
		if err != nil && !errors.Is(err, storage.ErrDuplicateBooking) {
			e.log.Error("booking commit failed, holding confirmando",
				zap.String("session_id", sess.ID), zap.Error(err))
			return msgBookingFailed, nil
		}

		if _, err := e.sessions.Update(sess.ID, stateRef(models.StateDone), nil); err != nil {
			return "", err
		}
		return msgBookingDone(tenant, &data), nil

	case isNegative(input):
		if _, err := e.sessions.Update(sess.ID, stateRef(models.StateStart), &models.SessionData{}); err != nil {
			return "", err
		}
		return msgCancelled, nil

	default:
		return msgConfirmPrompt, nil
	}
}

// parseSelection resolves a numeric reply against a candidate list of length
// n: integers in [1, n] only. Anything else is a re-prompt, never a fault.
func parseSelection(input string, n int) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || v < 1 || v > n {
		return 0, false
	}
	return v, true
}

func isResetCommand(input string) bool {
	return resetCommands[strings.ToLower(strings.TrimSpace(input))]
}

func isAffirmative(input string) bool {
	return affirmativeTokens[strings.ToLower(strings.TrimSpace(input))]
}

func isNegative(input string) bool {
	return negativeTokens[strings.ToLower(strings.TrimSpace(input))]
}

func stateRef(s models.SessionState) *models.SessionState {
	return &s
}
