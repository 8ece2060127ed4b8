package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/nexo-studio/agency-api/internal/config"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// MessageSender is the part of the Twilio REST API used to send SMS
type MessageSender interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioNotifier sends an SMS to every configured staff phone
type TwilioNotifier struct {
	sender MessageSender
	from   string
	phones []string
	logger *zap.Logger
}

// NewTwilioNotifier creates a notifier backed by the Twilio REST client
func NewTwilioNotifier(cfg *config.NotifyConfig, logger *zap.Logger) (*TwilioNotifier, error) {
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" {
		return nil, errors.New("twilio account sid and auth token are required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
	return NewTwilioNotifierWithSender(client.Api, cfg.TwilioFromNumber, cfg.StaffPhones, logger), nil
}

func NewTwilioNotifierWithSender(sender MessageSender, from string, phones []string, logger *zap.Logger) *TwilioNotifier {
	return &TwilioNotifier{
		sender: sender,
		from:   from,
		phones: phones,
		logger: logger,
	}
}

// NotifyQuotation sends the message to each staff phone. A failed phone does not stop the others.
func (n *TwilioNotifier) NotifyQuotation(ctx context.Context, msg QuotationMessage) error {
	if len(n.phones) == 0 {
		n.logger.Warn("no staff phones configured, skipping sms", zap.String("number", msg.Number))
		return nil
	}

	body := msg.Text()
	var errs []error
	for _, to := range n.phones {
		if err := ctx.Err(); err != nil {
			return err
		}

		params := &twilioApi.CreateMessageParams{}
		params.SetTo(to)
		params.SetFrom(n.from)
		params.SetBody(body)

		resp, err := n.sender.CreateMessage(params)
		if err != nil {
			n.logger.Error("failed to send sms", zap.String("to", to), zap.Error(err))
			errs = append(errs, fmt.Errorf("sms to %s: %w", to, err))
			continue
		}

		sid := ""
		if resp != nil && resp.Sid != nil {
			sid = *resp.Sid
		}
		n.logger.Debug("sms sent", zap.String("to", to), zap.String("sid", sid))
	}
	return errors.Join(errs...)
}
