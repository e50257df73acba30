package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TenantStatus controls whether a tenant can receive bookings.
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusInactive  TenantStatus = "inactive"
	TenantStatusSuspended TenantStatus = "suspended"
)

// TenantSettings is the free-form settings bag for a tenant. The dialogue
// engine only reads the scheduling fields; everything else is carried for the
// dashboard.
type TenantSettings struct {
	OpenWeekdays []time.Weekday `json:"open_weekdays,omitempty"` // empty = open every day
	OpenHour     int            `json:"open_hour,omitempty"`
	CloseHour    int            `json:"close_hour,omitempty"`
	SlotMinutes  int            `json:"slot_minutes,omitempty"`
	Currency     string         `json:"currency,omitempty"`
	Greeting     string         `json:"greeting,omitempty"`
}

func (s TenantSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *TenantSettings) Scan(src interface{}) error {
	if src == nil {
		*s = TenantSettings{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported type %T for TenantSettings", src)
	}
}

// Tenant is one onboarded business reachable through the shared WhatsApp
// number. The slug doubles as the routing token users type to open a
// conversation. Tenants are created from the dashboard; the conversation
// engine treats them as read-only.
type Tenant struct {
	ID         string         `json:"id" gorm:"primaryKey"`
	Slug       string         `json:"slug" gorm:"uniqueIndex"` // stored lowercase
	Name       string         `json:"name"`
	BusinessID string         `json:"business_id,omitempty"`
	Settings   TenantSettings `json:"settings" gorm:"type:jsonb"`
	Status     TenantStatus   `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Bookable reports whether the tenant can currently take bookings.
func (t *Tenant) Bookable() bool {
	return t.Status == TenantStatusActive
}
