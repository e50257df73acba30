package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/jobs"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/services"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/utils"
)

// WhatsAppHandler receives Twilio webhooks. The transport is at-least-once
// and Twilio expects a fast acknowledgment, so the handler only enqueues the
// dialogue step and returns; the worker does the actual processing.
type WhatsAppHandler struct {
	queue  *asynq.Client
	engine *services.DialogueEngine
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(queue *asynq.Client, engine *services.DialogueEngine) *WhatsAppHandler {
	return &WhatsAppHandler{queue: queue, engine: engine}
}

// TwilioWebhookPayload represents an incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid          string `form:"MessageSid"`
	AccountSid          string `form:"AccountSid"`
	MessagingServiceSid string `form:"MessagingServiceSid"`
	From                string `form:"From"` // whatsapp:+5491100000001
	To                  string `form:"To"`
	Body                string `form:"Body"`
	NumMedia            string `form:"NumMedia"`
}

// HandleWebhook enqueues an inbound message and acknowledges immediately.
// The MessageSid doubles as the task id: a redelivered webhook collapses
// into the task that is already queued or processed.
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		utils.GetLogger().Warn("unparseable webhook payload", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	// Delivery status callbacks carry no body; nothing to process.
	if payload.Body == "" || payload.From == "" {
		return c.SendStatus(fiber.StatusOK)
	}

	task, err := jobs.NewDialogueTask(payload.From, payload.Body)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	opts := []asynq.Option{asynq.MaxRetry(5)}
	if payload.MessageSid != "" {
		opts = append(opts, asynq.TaskID(payload.MessageSid))
	}

	if _, err := h.queue.Enqueue(task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			// Duplicate delivery of a message we already took.
			return c.SendStatus(fiber.StatusOK)
		}
		utils.GetLogger().Error("failed to enqueue dialogue step", zap.Error(err))
		// Let Twilio retry the webhook.
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.SendStatus(fiber.StatusOK)
}

// TestWebhookPayload drives the dialogue without Twilio (for development)
type TestWebhookPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// HandleTestWebhook processes a message synchronously and returns the reply.
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	reply, err := h.engine.HandleMessage(c.Context(), payload.From, payload.Message)
	if err != nil {
		utils.GetLogger().Error("test message processing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"response": reply,
	})
}
