package services

import (
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/config"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/utils"
)

// Messenger delivers reply text back to a user. Delivery is fire-and-forget
// relative to the dialogue step: a failed send is logged, not replayed
// through the state machine.
type Messenger interface {
	Send(to, body string) error
}

// TwilioService sends WhatsApp messages through the Twilio REST API.
type TwilioService struct {
	client *twilio.RestClient
	from   string // "whatsapp:+14155238886"
}

// NewTwilioService creates a new Twilio service instance from configuration.
func NewTwilioService() (*TwilioService, error) {
	cfg := config.AppConfig
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioWhatsAppFrom == "" {
		return nil, fmt.Errorf("missing Twilio credentials in configuration")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})

	return &TwilioService{
		client: client,
		from:   cfg.TwilioWhatsAppFrom,
	}, nil
}

// Send delivers a WhatsApp message. to is a normalized phone (bare digits);
// the channel prefix and plus are restored here.
func (t *TwilioService) Send(to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:+%s", utils.NormalizePhone(to)))
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		utils.GetLogger().Error("whatsapp send failed", zap.String("to", to), zap.Error(err))
		return err
	}

	if resp.Sid != nil {
		utils.GetLogger().Debug("whatsapp message sent",
			zap.String("to", to), zap.String("sid", *resp.Sid))
	}
	return nil
}
