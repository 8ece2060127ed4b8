// Package notify tells agency staff about quotation events.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/config"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/i18n"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// QuotationEvent identifies why staff is being notified
type QuotationEvent string

const (
	EventQuotationSubmitted QuotationEvent = "submitted"
	EventQuotationReminder  QuotationEvent = "reminder"
)

// QuotationMessage is the content of a staff notification about a quotation
type QuotationMessage struct {
	Event       QuotationEvent  `json:"event"`
	QuotationID uuid.UUID       `json:"quotation_id"`
	Number      string          `json:"number"`
	ClientName  string          `json:"client_name"`
	ClientEmail string          `json:"client_email"`
	Total       decimal.Decimal `json:"total"`
}

// NewQuotationMessage builds the message for a persisted quotation
func NewQuotationMessage(event QuotationEvent, q *domain.Quotation) QuotationMessage {
	return QuotationMessage{
		Event:       event,
		QuotationID: q.ID,
		Number:      q.Number,
		ClientName:  q.ClientName,
		ClientEmail: q.ClientEmail,
		Total:       q.Total,
	}
}

// Text renders the message as a short Spanish SMS
func (m QuotationMessage) Text() string {
	total := i18n.FormatMoney(domain.LocaleES, m.Total, i18n.DefaultCurrency)
	switch m.Event {
	case EventQuotationReminder:
		return fmt.Sprintf("Cotización %s de %s sigue pendiente (%s).", m.Number, m.ClientName, total)
	default:
		return fmt.Sprintf("Nueva cotización %s de %s <%s>: %s.", m.Number, m.ClientName, m.ClientEmail, total)
	}
}

// Notifier delivers quotation messages to staff
type Notifier interface {
	NotifyQuotation(ctx context.Context, msg QuotationMessage) error
}

// New returns the notifier selected by cfg.Mode
func New(cfg *config.NotifyConfig, logger *zap.Logger) (Notifier, error) {
	switch strings.ToLower(cfg.Mode) {
	case "twilio":
		return NewTwilioNotifier(cfg, logger)
	case "", "log":
		return NewLogNotifier(logger), nil
	default:
		return nil, fmt.Errorf("unknown notify mode: %s", cfg.Mode)
	}
}

// LogNotifier writes notifications to the log only
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyQuotation(_ context.Context, msg QuotationMessage) error {
	n.logger.Info("staff notification",
		zap.String("event", string(msg.Event)),
		zap.String("quotation_id", msg.QuotationID.String()),
		zap.String("number", msg.Number),
		zap.String("text", msg.Text()))
	return nil
}

// Multi fans a message out to several notifiers and joins their errors
type Multi []Notifier

func (m Multi) NotifyQuotation(ctx context.Context, msg QuotationMessage) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyQuotation(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
