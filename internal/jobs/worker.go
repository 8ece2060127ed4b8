package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Worker consumes queued tasks until its context is cancelled
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

func NewWorker(opt asynq.RedisConnOpt, concurrency int, notifyHandler *NotifyHandler, logger *zap.Logger) *Worker {
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueNotifications: 1,
		},
		Logger: zapAsynqLogger{logger.Sugar()},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Warn("task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(TaskQuotationNotify, notifyHandler)

	return &Worker{server: srv, mux: mux, logger: logger}
}

// Run processes tasks until ctx is done, then waits for in-flight tasks
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	w.logger.Info("worker started")

	<-ctx.Done()
	w.logger.Info("worker shutting down")
	w.server.Shutdown()
	return nil
}

// zapAsynqLogger adapts a zap logger to asynq.Logger
type zapAsynqLogger struct {
	s *zap.SugaredLogger
}

func (l zapAsynqLogger) Debug(args ...interface{}) { l.s.Debug(args...) }
func (l zapAsynqLogger) Info(args ...interface{})  { l.s.Info(args...) }
func (l zapAsynqLogger) Warn(args ...interface{})  { l.s.Warn(args...) }
func (l zapAsynqLogger) Error(args ...interface{}) { l.s.Error(args...) }
func (l zapAsynqLogger) Fatal(args ...interface{}) { l.s.Fatal(args...) }
