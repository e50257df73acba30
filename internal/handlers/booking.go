package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/storage"
)

// BookingHandler exposes read access to committed bookings. Bookings are
// only created through the dialogue; there is no write endpoint.
type BookingHandler struct {
	store storage.Store
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(store storage.Store) *BookingHandler {
	return &BookingHandler{store: store}
}

// GetBooking returns one booking by id.
func (h *BookingHandler) GetBooking(c *fiber.Ctx) error {
	booking, err := h.store.GetBooking(c.Params("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Booking not found",
		})
	}
	if err != nil {
		return err
	}
	return c.JSON(booking)
}

// ListBookings returns a tenant's bookings for one date (?date=YYYY-MM-DD).
func (h *BookingHandler) ListBookings(c *fiber.Ctx) error {
	tenant, err := h.store.GetTenantBySlug(c.Params("slug"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Tenant not found",
		})
	}
	if err != nil {
		return err
	}

	date := c.Query("date")
	if date == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "date query parameter is required",
		})
	}

	bookings, err := h.store.GetBookingsByDate(tenant.ID, date)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"bookings": bookings,
		"count":    len(bookings),
	})
}
