package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/logger"
	"github.com/nexo-studio/agency-api/internal/notify"
	"go.uber.org/zap"
)

const QuotationReminderJobName = "quotation_reminder"

// PendingQuotations is the storage the reminder job reads and stamps
type PendingQuotations interface {
	ListPendingForReminder(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Quotation, error)
	MarkReminded(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// QuotationReminderJob reminds staff of quotations that stayed pending for too long.
// Each quotation is reminded at most once.
type QuotationReminderJob struct {
	quotations PendingQuotations
	notifier   notify.Notifier
	after      time.Duration
	batchSize  int
	logger     *zap.Logger
	now        func() time.Time
}

func NewQuotationReminderJob(quotations PendingQuotations, notifier notify.Notifier, after time.Duration, batchSize int, logger *zap.Logger) *QuotationReminderJob {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &QuotationReminderJob{
		quotations: quotations,
		notifier:   notifier,
		after:      after,
		batchSize:  batchSize,
		logger:     logger,
		now:        time.Now,
	}
}

func (j *QuotationReminderJob) Name() string { return QuotationReminderJobName }

// Run notifies staff about one batch of stale quotations. Quotations whose notification
// failed are left unstamped so the next run retries them.
func (j *QuotationReminderJob) Run(ctx context.Context) error {
	now := j.now()
	pending, err := j.quotations.ListPendingForReminder(ctx, now.Add(-j.after), j.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list pending quotations: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	reminded := make([]uuid.UUID, 0, len(pending))
	var errs []error
	for i := range pending {
		q := &pending[i]
		if err := j.notifier.NotifyQuotation(ctx, notify.NewQuotationMessage(notify.EventQuotationReminder, q)); err != nil {
			logger.WithQuotation(j.logger, q.ID.String(), q.Number).
				Warn("failed to send quotation reminder", zap.Error(err))
			errs = append(errs, err)
			continue
		}
		reminded = append(reminded, q.ID)
	}

	if err := j.quotations.MarkReminded(ctx, reminded, now); err != nil {
		return fmt.Errorf("failed to mark quotations reminded: %w", err)
	}

	j.logger.Info("quotation reminders sent",
		zap.Int("reminded", len(reminded)),
		zap.Int("failed", len(pending)-len(reminded)))
	return errors.Join(errs...)
}
