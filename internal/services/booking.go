package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/models"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/storage"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/utils"
)

// BookingLedger is where a booking becomes durable. The ledger does not
// deduplicate on its own beyond the idempotency key: minting and persisting
// the key before calling Commit is the caller's job.
type BookingLedger interface {
	// Commit writes the booking once. A resend with an idempotency key that
	// was already written returns storage.ErrDuplicateBooking.
	Commit(ctx context.Context, b *models.Booking) error
}

// StoreLedger commits bookings to the store.
type StoreLedger struct {
	store storage.Store
}

// NewStoreLedger creates the default ledger.
func NewStoreLedger(store storage.Store) *StoreLedger {
	return &StoreLedger{store: store}
}

func (l *StoreLedger) Commit(ctx context.Context, b *models.Booking) error {
	created, err := l.store.CreateBooking(b)
	if err != nil {
		return err
	}
	utils.GetLogger().Info("booking committed",
		zap.String("booking_id", created.ID),
		zap.String("tenant_id", created.TenantID),
		zap.String("service", created.ServiceName),
		zap.String("date", created.Date),
		zap.String("time", created.Time))
	return nil
}
