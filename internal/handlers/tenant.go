package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/models"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/services"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/storage"
)

// TenantHandler is the minimal onboarding edge: create a tenant, add
// services, inspect a tenant. The full dashboard CRUD lives elsewhere.
type TenantHandler struct {
	store     storage.Store
	directory *services.TenantDirectory
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(store storage.Store, directory *services.TenantDirectory) *TenantHandler {
	return &TenantHandler{store: store, directory: directory}
}

// TenantRegistration is the create-tenant request body
type TenantRegistration struct {
	Slug     string                `json:"slug"`
	Name     string                `json:"name"`
	Settings models.TenantSettings `json:"settings"`
}

// CreateTenant registers a new tenant with an active status.
func (h *TenantHandler) CreateTenant(c *fiber.Ctx) error {
	var reg TenantRegistration
	if err := c.BodyParser(&reg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	slug, ok := h.directory.SlugCandidate(reg.Slug)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Slug must contain only lowercase letters, digits and hyphens",
		})
	}
	if reg.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name is required"})
	}

	tenant, err := h.store.CreateTenant(&models.Tenant{
		Slug:     slug,
		Name:     reg.Name,
		Settings: reg.Settings,
		Status:   models.TenantStatusActive,
	})
	if err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	h.directory.Invalidate(c.Context(), slug)

	return c.Status(fiber.StatusCreated).JSON(tenant)
}

// GetTenant returns a tenant and its active services.
func (h *TenantHandler) GetTenant(c *fiber.Ctx) error {
	tenant, err := h.store.GetTenantBySlug(c.Params("slug"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tenant not found"})
	}
	if err != nil {
		return err
	}

	svcs, err := h.store.GetActiveServices(tenant.ID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"tenant":   tenant,
		"services": svcs,
	})
}

// ServiceRegistration is the add-service request body
type ServiceRegistration struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	DurationMin int     `json:"duration_min"`
}

// AddService appends a bookable service to a tenant's catalog.
func (h *TenantHandler) AddService(c *fiber.Ctx) error {
	tenant, err := h.store.GetTenantBySlug(c.Params("slug"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tenant not found"})
	}
	if err != nil {
		return err
	}

	var reg ServiceRegistration
	if err := c.BodyParser(&reg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if reg.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name is required"})
	}

	svc, err := h.store.CreateService(&models.Service{
		TenantID:    tenant.ID,
		Name:        reg.Name,
		Price:       reg.Price,
		DurationMin: reg.DurationMin,
		Active:      true,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(svc)
}
