package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/handlers"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/middleware"
)

// SetupRoutes configures all API routes
func SetupRoutes(
	app *fiber.App,
	wa *handlers.WhatsAppHandler,
	tenants *handlers.TenantHandler,
	bookings *handlers.BookingHandler,
	admin *handlers.AdminHandler,
	health *handlers.HealthHandler,
) {
	app.Get("/health", health.Check)

	// Inbound WhatsApp. Signature validation runs before the handler; the
	// handler itself only enqueues and acks.
	webhook := app.Group("/webhook")
	webhook.Post("/whatsapp", middleware.ValidateTwilioSignature(), wa.HandleWebhook)

	// Synchronous test endpoint for development without Twilio.
	app.Post("/test/whatsapp", wa.HandleTestWebhook)

	api := app.Group("/api")
	t := api.Group("/tenants")
	t.Post("/", tenants.CreateTenant)
	t.Get("/:slug", tenants.GetTenant)
	t.Post("/:slug/services", tenants.AddService)
	t.Get("/:slug/bookings", bookings.ListBookings)

	api.Get("/bookings/:id", bookings.GetBooking)

	admins := app.Group("/admin")
	admins.Post("/tenants/:slug/suspend", admin.SuspendTenant)
	admins.Post("/tenants/:slug/reactivate", admin.ReactivateTenant)
}
