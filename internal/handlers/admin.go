package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/models"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/services"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/storage"
)

// AdminHandler handles tenant lifecycle operations: suspending a tenant stops
// its dialogues at the next message without destroying open sessions, so
// reactivation picks them up where they were.
type AdminHandler struct {
	store     storage.Store
	directory *services.TenantDirectory
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(store storage.Store, directory *services.TenantDirectory) *AdminHandler {
	return &AdminHandler{store: store, directory: directory}
}

func (h *AdminHandler) setStatus(c *fiber.Ctx, status models.TenantStatus) error {
	tenant, err := h.store.GetTenantBySlug(c.Params("slug"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Tenant not found",
		})
	}
	if err != nil {
		return err
	}

	tenant.Status = status
	if err := h.store.UpdateTenant(tenant); err != nil {
		return err
	}
	h.directory.Invalidate(c.Context(), tenant.Slug)

	return c.JSON(fiber.Map{
		"success": true,
		"tenant":  tenant,
	})
}

// SuspendTenant marks a tenant as suspended.
func (h *AdminHandler) SuspendTenant(c *fiber.Ctx) error {
	return h.setStatus(c, models.TenantStatusSuspended)
}

// ReactivateTenant marks a tenant as active again.
func (h *AdminHandler) ReactivateTenant(c *fiber.Ctx) error {
	return h.setStatus(c, models.TenantStatusActive)
}
