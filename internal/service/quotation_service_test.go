package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/auth"
	"github.com/nexo-studio/agency-api/internal/cache"
	"github.com/nexo-studio/agency-api/internal/config"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/notify"
	"github.com/nexo-studio/agency-api/internal/repository"
	"github.com/nexo-studio/agency-api/internal/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notify.QuotationMessage
}

func (n *recordingNotifier) NotifyQuotation(_ context.Context, msg notify.QuotationMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

type quotationFixture struct {
	db       *gorm.DB
	svc      *QuotationService
	notifier *recordingNotifier
	previews *cache.MemoryPreviewStore
	service  *domain.Service
	yesNo    *domain.Question
	clock    time.Time
}

func newQuotationFixture(t *testing.T) *quotationFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	log := testutil.Logger()

	catalog := NewCatalogService(
		repository.NewServiceRepository(db),
		repository.NewQuestionRepository(db),
		repository.NewTechnologyRepository(db),
		log,
	)
	activities := NewActivityService(repository.NewActivityRepository(db), log)
	notifier := &recordingNotifier{}
	previews := cache.NewMemoryPreviewStore()

	svc := NewQuotationService(
		repository.NewQuotationRepository(db),
		repository.NewContactRepository(db),
		repository.NewDealRepository(db),
		repository.NewTechnologyRepository(db),
		catalog,
		activities,
		previews,
		notifier,
		config.QuotationConfig{ValidityDays: 30, PreviewTTL: 1800, NumberPrefix: "COT"},
		log,
		db,
	)
	clock := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	service := testutil.CreateTestService(t, db, "web-app")
	yesNo := testutil.CreateYesNoQuestion(t, db, service, 500, 0)

	return &quotationFixture{
		db:       db,
		svc:      svc,
		notifier: notifier,
		previews: previews,
		service:  service,
		yesNo:    yesNo,
		clock:    clock,
	}
}

func (f *quotationFixture) previewRequest(answer string) *domain.QuotationPreviewRequest {
	return &domain.QuotationPreviewRequest{
		ServiceID: f.service.ID,
		Answers:   map[string]json.RawMessage{f.yesNo.ID.String(): json.RawMessage(answer)},
		Client:    domain.QuotationClientRequest{Name: " Ana López ", Email: "Ana@Example.com"},
	}
}

func staffContext() context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:      uuid.New(),
		DisplayName: "Staff User",
		Roles:       []domain.UserRoleType{domain.RoleStaff},
	})
}

func clientContext(id uuid.UUID) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:      id,
		DisplayName: "Client User",
		Roles:       []domain.UserRoleType{domain.RoleClient},
	})
}

func countQuotations(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&domain.Quotation{}).Count(&n).Error)
	return n
}

func TestQuotationService_PreviewThenConfirm(t *testing.T) {
	f := newQuotationFixture(t)
	ctx := context.Background()
	contact := testutil.CreateTestContact(t, f.db, "Ana", "ana@example.com")

	preview, err := f.svc.Preview(ctx, f.previewRequest(`"yes"`), domain.LocaleES)
	require.NoError(t, err)
	assert.NotEmpty(t, preview.Token)
	assert.Equal(t, 500.0, preview.Totals.Subtotal)
	assert.Equal(t, 80.0, preview.Totals.Tax)
	assert.Equal(t, 580.0, preview.Totals.Total)
	assert.Equal(t, "Ana López", preview.Client.Name)
	assert.Equal(t, "ana@example.com", preview.Client.Email)
	require.Len(t, preview.Lines, 1)
	assert.Equal(t, int64(0), countQuotations(t, f.db))

	quotation, err := f.svc.ConfirmPreview(ctx, preview.Token, domain.LocaleES)
	require.NoError(t, err)
	assert.Equal(t, "COT-2026-0001", quotation.Number)
	assert.Equal(t, domain.QuotationStatusPending, quotation.Status)
	assert.Equal(t, domain.QuotationSourcePublic, quotation.Source)
	assert.Nil(t, quotation.OwningUserID)
	assert.Nil(t, quotation.ValidUntil)
	require.NotNil(t, quotation.ContactID)
	assert.Equal(t, contact.ID, *quotation.ContactID)
	assert.Equal(t, 580.0, quotation.Totals.Total)
	assert.JSONEq(t, fmt.Sprintf(`{%q:"yes"}`, f.yesNo.ID.String()), string(quotation.Answers))

	require.Len(t, f.notifier.messages, 1)
	assert.Equal(t, "COT-2026-0001", f.notifier.messages[0].Number)

	_, err = f.svc.ConfirmPreview(ctx, preview.Token, domain.LocaleES)
	assert.ErrorIs(t, err, ErrPreviewNotFound)
	assert.Equal(t, int64(1), countQuotations(t, f.db))
}

func TestQuotationService_PreviewDefaultsApply(t *testing.T) {
	f := newQuotationFixture(t)

	req := f.previewRequest(`null`)
	preview, err := f.svc.Preview(context.Background(), req, domain.LocaleEN)
	require.NoError(t, err)
	assert.Equal(t, 0.0, preview.Totals.Total)
}

func TestQuotationService_PreviewValidation(t *testing.T) {
	f := newQuotationFixture(t)
	ctx := context.Background()

	t.Run("missing client fields", func(t *testing.T) {
		req := f.previewRequest(`"yes"`)
		req.Client = domain.QuotationClientRequest{Email: "not-an-email"}

		_, err := f.svc.Preview(ctx, req, domain.LocaleES)
		require.ErrorIs(t, err, ErrInvalidInput)

		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "client.name")
		assert.Contains(t, verr.Fields, "client.email")
	})

	t.Run("unknown question", func(t *testing.T) {
		req := f.previewRequest(`"yes"`)
		req.Answers[uuid.NewString()] = json.RawMessage(`"yes"`)

		_, err := f.svc.Preview(ctx, req, domain.LocaleES)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("malformed answer", func(t *testing.T) {
		_, err := f.svc.Preview(ctx, f.previewRequest(`[1,2]`), domain.LocaleES)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("no service", func(t *testing.T) {
		req := f.previewRequest(`"yes"`)
		req.ServiceID = uuid.Nil

		_, err := f.svc.Preview(ctx, req, domain.LocaleES)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("unknown service", func(t *testing.T) {
		req := f.previewRequest(`"yes"`)
		req.ServiceID = uuid.New()

		_, err := f.svc.Preview(ctx, req, domain.LocaleES)
		assert.ErrorIs(t, err, ErrServiceNotFound)
	})

	t.Run("empty catalog", func(t *testing.T) {
		empty := testutil.CreateTestService(t, f.db, "empty")
		req := &domain.QuotationPreviewRequest{
			ServiceID: empty.ID,
			Client:    domain.QuotationClientRequest{Name: "Ana", Email: "ana@example.com"},
		}

		_, err := f.svc.Preview(ctx, req, domain.LocaleES)
		require.ErrorIs(t, err, ErrInvalidInput)
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "serviceId")
	})

	assert.Equal(t, int64(0), countQuotations(t, f.db))
}

func TestQuotationService_ConfirmFailureKeepsPreview(t *testing.T) {
	f := newQuotationFixture(t)
	ctx := context.Background()

	preview, err := f.svc.Preview(ctx, f.previewRequest(`"yes"`), domain.LocaleES)
	require.NoError(t, err)

	require.NoError(t, f.db.Migrator().DropTable(&domain.Quotation{}))

	_, err = f.svc.ConfirmPreview(ctx, preview.Token, domain.LocaleES)
	require.ErrorIs(t, err, ErrPersistenceFailed)
	assert.Empty(t, f.notifier.messages)

	require.NoError(t, f.db.AutoMigrate(&domain.Quotation{}))

	quotation, err := f.svc.ConfirmPreview(ctx, preview.Token, domain.LocaleES)
	require.NoError(t, err)
	assert.Equal(t, 580.0, quotation.Totals.Total)
}

func TestQuotationService_ConfirmFailureRestoresRemainingTTL(t *testing.T) {
	f := newQuotationFixture(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	f.svc.previews = cache.NewRedisPreviewStore(client)

	preview, err := f.svc.Preview(context.Background(), f.previewRequest(`"yes"`), domain.LocaleES)
	require.NoError(t, err)

	later := f.clock.Add(20 * time.Minute)
	f.svc.now = func() time.Time { return later }

	// the client disconnects while the quotation is being written
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:client_gone", func(tx *gorm.DB) {
		if tx.Statement.Table == "quotations" {
			cancel()
			_ = tx.AddError(errors.New("connection reset by peer"))
		}
	}))

	_, err = f.svc.ConfirmPreview(ctx, preview.Token, domain.LocaleES)
	require.ErrorIs(t, err, ErrPersistenceFailed)

	key := "quotation:preview:" + preview.Token
	require.True(t, mr.Exists(key))
	assert.Equal(t, 10*time.Minute, mr.TTL(key))

	require.NoError(t, f.db.Callback().Create().Remove("test:client_gone"))

	quotation, err := f.svc.ConfirmPreview(context.Background(), preview.Token, domain.LocaleES)
	require.NoError(t, err)
	assert.Equal(t, 580.0, quotation.Totals.Total)
}

func TestQuotationService_ConfirmFailureAfterExpiryDropsPreview(t *testing.T) {
	f := newQuotationFixture(t)
	ctx := context.Background()

	preview, err := f.svc.Preview(ctx, f.previewRequest(`"yes"`), domain.LocaleES)
	require.NoError(t, err)

	later := f.clock.Add(31 * time.Minute)
	f.svc.now = func() time.Time { return later }
	require.NoError(t, f.db.Migrator().DropTable(&domain.Quotation{}))

	_, err = f.svc.ConfirmPreview(ctx, preview.Token, domain.LocaleES)
	require.ErrorIs(t, err, ErrPersistenceFailed)

	require.NoError(t, f.db.AutoMigrate(&domain.Quotation{}))
	_, err = f.svc.ConfirmPreview(ctx, preview.Token, domain.LocaleES)
	assert.ErrorIs(t, err, ErrPreviewNotFound)
}

func TestQuotationService_RejectsTotalsBeyondStorage(t *testing.T) {
	f := newQuotationFixture(t)
	units := testutil.CreateTestQuestion(t, f.db, domain.Question{
		ServiceID:       f.service.ID,
		Type:            domain.QuestionTypeNumber,
		PriceMultiplier: decimal.NewFromInt(1_000_000_000),
		OrderIndex:      1,
	})
	answers := map[string]json.RawMessage{units.ID.String(): json.RawMessage(`100000`)}
	client := domain.QuotationClientRequest{Name: "Ana", Email: "ana@example.com"}

	assertRejected := func(t *testing.T, err error) {
		t.Helper()
		require.ErrorIs(t, err, ErrInvalidInput)
		assert.NotErrorIs(t, err, ErrPersistenceFailed)
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "answers")
	}

	t.Run("preview", func(t *testing.T) {
		_, err := f.svc.Preview(context.Background(), &domain.QuotationPreviewRequest{
			ServiceID: f.service.ID,
			Answers:   answers,
			Client:    client,
		}, domain.LocaleES)
		assertRejected(t, err)
	})

	t.Run("internal", func(t *testing.T) {
		_, err := f.svc.SubmitInternal(staffContext(), &domain.CreateQuotationRequest{
			ServiceID: f.service.ID,
			Answers:   answers,
			Client:    client,
		}, domain.LocaleES)
		assertRejected(t, err)
	})

	assert.Equal(t, int64(0), countQuotations(t, f.db))
}

func TestQuotationService_SubmitInternal(t *testing.T) {
	f := newQuotationFixture(t)
	ctx := staffContext()
	user, _ := auth.FromContext(ctx)

	techRepo := repository.NewTechnologyRepository(f.db)
	goTech := &domain.Technology{Name: "Go", Slug: "go", Category: "backend"}
	require.NoError(t, techRepo.Create(ctx, goTech))

	req := &domain.CreateQuotationRequest{
		ServiceID:     f.service.ID,
		Answers:       map[string]json.RawMessage{f.yesNo.ID.String(): json.RawMessage(`true`)},
		Client:        domain.QuotationClientRequest{Name: "Beto", Email: "beto@example.com"},
		TechnologyIDs: []uuid.UUID{goTech.ID, goTech.ID},
		Notes:         "urgent",
	}

	result, err := f.svc.SubmitInternal(ctx, req, domain.LocaleES)
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)

	q := result.Quotation
	require.NotNil(t, q.OwningUserID)
	assert.Equal(t, user.ID(), *q.OwningUserID)
	assert.Equal(t, domain.QuotationSourceInternal, q.Source)
	assert.Equal(t, "urgent", q.Notes)
	require.NotNil(t, q.ValidUntil)
	assert.Equal(t, f.clock.AddDate(0, 0, 30).Format("2006-01-02T15:04:05Z"), *q.ValidUntil)
	require.Len(t, q.Technologies, 1)
	assert.Equal(t, "go", q.Technologies[0].Slug)
}

func TestQuotationService_SubmitInternalAssociationFailureWarns(t *testing.T) {
	f := newQuotationFixture(t)
	ctx := staffContext()

	require.NoError(t, f.db.Migrator().DropTable(&domain.QuotationTechnology{}))

	req := &domain.CreateQuotationRequest{
		ServiceID:     f.service.ID,
		Answers:       map[string]json.RawMessage{f.yesNo.ID.String(): json.RawMessage(`"yes"`)},
		Client:        domain.QuotationClientRequest{Name: "Beto", Email: "beto@example.com"},
		TechnologyIDs: []uuid.UUID{uuid.New()},
	}

	result, err := f.svc.SubmitInternal(ctx, req, domain.LocaleES)
	require.NoError(t, err)
	assert.Equal(t, []string{warnTechnologiesNotLinked}, result.Warnings)
	assert.Equal(t, int64(1), countQuotations(t, f.db))
}

func TestQuotationService_SubmitInternalRequiresUser(t *testing.T) {
	f := newQuotationFixture(t)
	req := &domain.CreateQuotationRequest{
		ServiceID: f.service.ID,
		Client:    domain.QuotationClientRequest{Name: "Beto", Email: "beto@example.com"},
	}

	_, err := f.svc.SubmitInternal(context.Background(), req, domain.LocaleES)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestQuotationService_SubmitInternalUnknownContact(t *testing.T) {
	f := newQuotationFixture(t)
	missing := uuid.New()
	req := &domain.CreateQuotationRequest{
		ServiceID: f.service.ID,
		Client:    domain.QuotationClientRequest{Name: "Beto", Email: "beto@example.com"},
		ContactID: &missing,
	}

	_, err := f.svc.SubmitInternal(staffContext(), req, domain.LocaleES)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, int64(0), countQuotations(t, f.db))
}

func TestQuotationService_NumbersIncrease(t *testing.T) {
	f := newQuotationFixture(t)
	ctx := staffContext()

	var numbers []string
	for i := 0; i < 3; i++ {
		result, err := f.svc.SubmitInternal(ctx, &domain.CreateQuotationRequest{
			ServiceID: f.service.ID,
			Client:    domain.QuotationClientRequest{Name: "Beto", Email: "beto@example.com"},
		}, domain.LocaleES)
		require.NoError(t, err)
		numbers = append(numbers, result.Quotation.Number)
	}
	assert.Equal(t, []string{"COT-2026-0001", "COT-2026-0002", "COT-2026-0003"}, numbers)
}

func (f *quotationFixture) submit(t *testing.T, ctx context.Context) domain.QuotationDTO {
	t.Helper()
	result, err := f.svc.SubmitInternal(ctx, &domain.CreateQuotationRequest{
		ServiceID: f.service.ID,
		Answers:   map[string]json.RawMessage{f.yesNo.ID.String(): json.RawMessage(`"yes"`)},
		Client:    domain.QuotationClientRequest{Name: "Carla Ruiz", Email: "carla@example.com"},
	}, domain.LocaleES)
	require.NoError(t, err)
	return result.Quotation
}

func TestQuotationService_UpdateStatus(t *testing.T) {
	f := newQuotationFixture(t)
	ctx := staffContext()
	q := f.submit(t, ctx)

	updated, err := f.svc.UpdateStatus(ctx, q.ID, &domain.UpdateQuotationStatusRequest{Status: domain.QuotationStatusApproved}, domain.LocaleES)
	require.NoError(t, err)
	assert.Equal(t, domain.QuotationStatusApproved, updated.Status)

	_, err = f.svc.UpdateStatus(ctx, q.ID, &domain.UpdateQuotationStatusRequest{Status: domain.QuotationStatusConverted}, domain.LocaleES)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = f.svc.UpdateStatus(ctx, q.ID, &domain.UpdateQuotationStatusRequest{Status: domain.QuotationStatusRejected}, domain.LocaleES)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, q.ID, &domain.UpdateQuotationStatusRequest{Status: domain.QuotationStatusApproved}, domain.LocaleES)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = f.svc.UpdateStatus(ctx, uuid.New(), &domain.UpdateQuotationStatusRequest{Status: domain.QuotationStatusApproved}, domain.LocaleES)
	assert.ErrorIs(t, err, ErrQuotationNotFound)
}

func TestQuotationService_Convert(t *testing.T) {
	f := newQuotationFixture(t)
	ctx := staffContext()
	q := f.submit(t, ctx)

	_, err := f.svc.Convert(ctx, q.ID, &domain.ConvertQuotationRequest{}, domain.LocaleES)
	require.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = f.svc.UpdateStatus(ctx, q.ID, &domain.UpdateQuotationStatusRequest{Status: domain.QuotationStatusApproved}, domain.LocaleES)
	require.NoError(t, err)

	result, err := f.svc.Convert(ctx, q.ID, &domain.ConvertQuotationRequest{}, domain.LocaleES)
	require.NoError(t, err)

	assert.Equal(t, domain.QuotationStatusConverted, result.Quotation.Status)
	require.NotNil(t, result.Quotation.DealID)
	assert.Equal(t, result.Deal.ID, *result.Quotation.DealID)
	assert.Equal(t, domain.DealStageProposal, result.Deal.Stage)
	assert.Equal(t, 50, result.Deal.Probability)
	assert.Equal(t, 580.0, result.Deal.Value)
	require.NotNil(t, result.Deal.QuotationID)
	assert.Equal(t, q.ID, *result.Deal.QuotationID)
	assert.Equal(t, "Carla Ruiz", result.Deal.ContactName)

	contact, err := repository.NewContactRepository(f.db).GetByEmail(ctx, "carla@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Carla", contact.FirstName)
	assert.Equal(t, "Ruiz", contact.LastName)

	history, err := repository.NewDealStageHistoryRepository(f.db).GetByDealID(ctx, result.Deal.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].FromStage)

	_, err = f.svc.Convert(ctx, q.ID, &domain.ConvertQuotationRequest{}, domain.LocaleES)
	assert.ErrorIs(t, err, ErrAlreadyConverted)
}

func TestQuotationService_ClientsSeeOnlyTheirQuotations(t *testing.T) {
	f := newQuotationFixture(t)
	owner := uuid.New()
	mine := f.submit(t, clientContext(owner))
	other := f.submit(t, clientContext(uuid.New()))

	page, err := f.svc.List(clientContext(owner), 1, 20, nil, repository.DefaultSortConfig(), domain.LocaleES)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	_, err = f.svc.GetByID(clientContext(owner), mine.ID, domain.LocaleES)
	require.NoError(t, err)
	_, err = f.svc.GetByID(clientContext(owner), other.ID, domain.LocaleES)
	assert.ErrorIs(t, err, ErrQuotationNotFound)

	page, err = f.svc.List(staffContext(), 1, 20, nil, repository.DefaultSortConfig(), domain.LocaleES)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}

func TestQuotationService_Delete(t *testing.T) {
	f := newQuotationFixture(t)
	ctx := staffContext()
	q := f.submit(t, ctx)

	require.NoError(t, f.svc.Delete(ctx, q.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, q.ID), ErrQuotationNotFound)
}

func TestQuotationService_Stats(t *testing.T) {
	f := newQuotationFixture(t)
	ctx := staffContext()
	approved := f.submit(t, ctx)
	f.submit(t, ctx)

	_, err := f.svc.UpdateStatus(ctx, approved.ID, &domain.UpdateQuotationStatusRequest{Status: domain.QuotationStatusApproved}, domain.LocaleES)
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.ByStatus[domain.QuotationStatusPending])
	assert.Equal(t, int64(1), stats.ByStatus[domain.QuotationStatusApproved])
	assert.Equal(t, int64(0), stats.ByStatus[domain.QuotationStatusConverted])
}
