package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/notify"
	"github.com/nexo-studio/agency-api/internal/repository"
	"github.com/nexo-studio/agency-api/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNotifier struct {
	mu       sync.Mutex
	messages []notify.QuotationMessage
	failFor  string
}

func (f *fakeNotifier) NotifyQuotation(_ context.Context, msg notify.QuotationMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.Number == f.failFor {
		return errors.New("sms gateway down")
	}
	f.messages = append(f.messages, msg)
	return nil
}

func TestQuotationReminderJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.CreateTestService(t, db, "web")
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

	stale := testutil.CreateTestQuotation(t, db, svc, "COT-2026-0001", now.Add(-48*time.Hour))
	failing := testutil.CreateTestQuotation(t, db, svc, "COT-2026-0002", now.Add(-30*time.Hour))
	testutil.CreateTestQuotation(t, db, svc, "COT-2026-0003", now.Add(-time.Hour))

	approved := testutil.CreateTestQuotation(t, db, svc, "COT-2026-0004", now.Add(-72*time.Hour))
	require.NoError(t, db.Model(approved).Update("status", domain.QuotationStatusApproved).Error)

	notifier := &fakeNotifier{failFor: "COT-2026-0002"}
	repo := repository.NewQuotationRepository(db)
	job := NewQuotationReminderJob(repo, notifier, 24*time.Hour, 10, zap.NewNop())
	job.now = func() time.Time { return now }

	err := job.Run(context.Background())
	assert.Error(t, err, "the failed notification is reported")

	require.Len(t, notifier.messages, 1)
	assert.Equal(t, notify.EventQuotationReminder, notifier.messages[0].Event)
	assert.Equal(t, stale.ID, notifier.messages[0].QuotationID)

	reloaded, err := repo.GetByID(context.Background(), stale.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.RemindedAt)

	retry, err := repo.GetByID(context.Background(), failing.ID)
	require.NoError(t, err)
	assert.Nil(t, retry.RemindedAt)

	notifier.failFor = ""
	require.NoError(t, job.Run(context.Background()))
	require.Len(t, notifier.messages, 2)
	assert.Equal(t, failing.ID, notifier.messages[1].QuotationID)

	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, notifier.messages, 2, "quotations are reminded once")
}

func TestNotifyHandler(t *testing.T) {
	notifier := &fakeNotifier{}
	handler := NewNotifyHandler(notifier, zap.NewNop())

	msg := notify.QuotationMessage{
		Event:       notify.EventQuotationSubmitted,
		QuotationID: uuid.New(),
		Number:      "COT-2026-0007",
		ClientName:  "Ana",
		Total:       decimal.NewFromInt(754),
	}
	task, err := NewQuotationNotifyTask(msg)
	require.NoError(t, err)
	assert.Equal(t, TaskQuotationNotify, task.Type())

	require.NoError(t, handler.ProcessTask(context.Background(), task))
	require.Len(t, notifier.messages, 1)
	assert.Equal(t, "COT-2026-0007", notifier.messages[0].Number)
	assert.True(t, msg.Total.Equal(notifier.messages[0].Total))

	notifier.failFor = "COT-2026-0007"
	err = handler.ProcessTask(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry), "delivery failures are retried")

	err = handler.ProcessTask(context.Background(), asynq.NewTask(TaskQuotationNotify, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNewQuotationNotifyTaskPayload(t *testing.T) {
	id := uuid.New()
	task, err := NewQuotationNotifyTask(notify.QuotationMessage{QuotationID: id, Number: "COT-2026-0001"})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, id.String(), decoded["quotation_id"])
	assert.Equal(t, "COT-2026-0001", decoded["number"])
}

type namedJob string

func (j namedJob) Name() string                  { return string(j) }
func (j namedJob) Run(ctx context.Context) error { return nil }

func TestScheduler_AddRemove(t *testing.T) {
	s := NewScheduler(zap.NewNop(), 0)

	require.NoError(t, s.Add("@hourly", namedJob("b")))
	require.NoError(t, s.Add("*/5 * * * *", namedJob("a")))
	assert.Error(t, s.Add("@daily", namedJob("a")), "names are unique")
	assert.Error(t, s.Add("not a spec", namedJob("c")))

	assert.Equal(t, []string{"a", "b"}, s.Jobs())

	require.NoError(t, s.Remove("a"))
	assert.Error(t, s.Remove("a"))
	assert.Equal(t, []string{"b"}, s.Jobs())

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
