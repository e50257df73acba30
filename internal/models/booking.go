package models

import "time"

// Booking is a committed reservation, the only durable and irreversible
// outcome of a dialogue. IdempotencyKey is unique: a redelivered confirmation
// carrying the same key is rejected by storage instead of duplicated.
type Booking struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	TenantID       string    `json:"tenant_id" gorm:"index:idx_bookings_tenant_date,priority:1"`
	ServiceID      string    `json:"service_id"`
	ServiceName    string    `json:"service_name"`
	CustomerPhone  string    `json:"customer_phone" gorm:"index"`
	Date           string    `json:"date" gorm:"index:idx_bookings_tenant_date,priority:2"` // YYYY-MM-DD
	Time           string    `json:"time"`                                                  // HH:MM
	Amount         float64   `json:"amount"`
	IdempotencyKey string    `json:"-" gorm:"uniqueIndex"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Booking status constants
const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
)
