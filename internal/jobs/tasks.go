package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nexo-studio/agency-api/internal/config"
	"github.com/nexo-studio/agency-api/internal/notify"
	"go.uber.org/zap"
)

const (
	// TaskQuotationNotify delivers a staff notification about a quotation
	TaskQuotationNotify = "quotation:notify"

	QueueNotifications = "notifications"

	notifyMaxRetry = 5
	notifyTimeout  = 30 * time.Second
)

// NewQuotationNotifyTask wraps msg in a task
func NewQuotationNotifyTask(msg notify.QuotationMessage) (*asynq.Task, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification: %w", err)
	}
	return asynq.NewTask(TaskQuotationNotify, payload,
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(notifyMaxRetry),
		asynq.Timeout(notifyTimeout),
	), nil
}

// RedisOpt converts the redis settings into asynq connection options
func RedisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// Enqueuer implements notify.Notifier by queueing the message for the worker
type Enqueuer struct {
	client *asynq.Client
	logger *zap.Logger
}

func NewEnqueuer(opt asynq.RedisConnOpt, logger *zap.Logger) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(opt), logger: logger}
}

func (e *Enqueuer) NotifyQuotation(ctx context.Context, msg notify.QuotationMessage) error {
	task, err := NewQuotationNotifyTask(msg)
	if err != nil {
		return err
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	e.logger.Debug("quotation notification enqueued",
		zap.String("task_id", info.ID),
		zap.String("quotation_id", msg.QuotationID.String()))
	return nil
}

func (e *Enqueuer) Close() error {
	return e.client.Close()
}

// NotifyHandler processes quotation:notify tasks through a notifier
type NotifyHandler struct {
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewNotifyHandler(notifier notify.Notifier, logger *zap.Logger) *NotifyHandler {
	return &NotifyHandler{notifier: notifier, logger: logger}
}

// ProcessTask delivers the notification. Undecodable payloads are not retried.
func (h *NotifyHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var msg notify.QuotationMessage
	if err := json.Unmarshal(task.Payload(), &msg); err != nil {
		h.logger.Error("dropping malformed notification task", zap.Error(err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.notifier.NotifyQuotation(ctx, msg); err != nil {
		return fmt.Errorf("notify quotation %s: %w", msg.Number, err)
	}
	return nil
}
