package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SessionState is the position of a dialogue inside the booking flow. The
// values are the storage strings and are user-language (the dialogue is
// Spanish); the constant names say what each state does.
type SessionState string

const (
	StateStart           SessionState = "inicio"
	StateChoosingService SessionState = "eligiendo_servicio"
	StateChoosingDate    SessionState = "eligiendo_fecha"
	StateChoosingTime    SessionState = "eligiendo_horario"
	StateConfirming      SessionState = "confirmando"
	StateDone            SessionState = "finalizado"
)

// Terminal reports whether the state is excluded from active-session lookups
// and eligible for the retention sweep.
func (s SessionState) Terminal() bool {
	return s == StateDone
}

// ServiceOption is one entry of the numbered menu presented to the user.
// The list shown on one turn is frozen into the session data so the numeric
// reply on the next turn resolves against exactly what the user saw, even if
// the catalog changed in between.
type ServiceOption struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// SessionData is the turn-scoped payload of a session. Fields accumulate as
// the dialogue advances and are only cleared by a reset. ConfirmKey is the
// booking idempotency key, minted on the first affirmative confirmation and
// persisted before the ledger write so a redelivered confirmation reuses it.
type SessionData struct {
	Services        []ServiceOption `json:"services,omitempty"`
	SelectedService *ServiceOption  `json:"selectedService,omitempty"`
	Dates           []string        `json:"dates,omitempty"`
	SelectedDate    string          `json:"selectedDate,omitempty"`
	Times           []string        `json:"times,omitempty"`
	SelectedTime    string          `json:"selectedTime,omitempty"`
	ConfirmKey      string          `json:"confirmKey,omitempty"`
}

func (d SessionData) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *SessionData) Scan(src interface{}) error {
	if src == nil {
		*d = SessionData{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported type %T for SessionData", src)
	}
}

// Empty reports whether no selection has been recorded yet.
func (d *SessionData) Empty() bool {
	return len(d.Services) == 0 && d.SelectedService == nil &&
		len(d.Dates) == 0 && d.SelectedDate == "" &&
		len(d.Times) == 0 && d.SelectedTime == "" && d.ConfirmKey == ""
}

// Validate checks that the payload carries the fields the given state needs.
// A session loaded from storage is validated instead of trusted blindly.
func (d *SessionData) Validate(state SessionState) error {
	switch state {
	case StateChoosingService:
		if len(d.Services) == 0 {
			return errors.New("choosing service without a presented service list")
		}
	case StateChoosingDate:
		if d.SelectedService == nil {
			return errors.New("choosing date without a selected service")
		}
		if len(d.Dates) == 0 {
			return errors.New("choosing date without a presented date list")
		}
	case StateChoosingTime:
		if d.SelectedService == nil || d.SelectedDate == "" {
			return errors.New("choosing time without service and date")
		}
		if len(d.Times) == 0 {
			return errors.New("choosing time without a presented time list")
		}
	case StateConfirming:
		if d.SelectedService == nil || d.SelectedDate == "" || d.SelectedTime == "" {
			return errors.New("confirming with incomplete selections")
		}
	}
	return nil
}

// Session is the durable record of one dialogue between a user phone and a
// tenant. At most one session exists per (UserPhone, TenantSlug) pair; it is
// updated in place, never duplicated.
type Session struct {
	ID         string       `json:"id" gorm:"primaryKey"`
	UserPhone  string       `json:"user_phone" gorm:"uniqueIndex:idx_sessions_phone_slug;index:idx_sessions_phone_state,priority:1"`
	TenantSlug string       `json:"tenant_slug" gorm:"uniqueIndex:idx_sessions_phone_slug"`
	State      SessionState `json:"state" gorm:"index:idx_sessions_phone_state,priority:2"`
	Data       SessionData  `json:"data" gorm:"type:jsonb"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" gorm:"index"`
}
