package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/repository"
	"github.com/nexo-studio/agency-api/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNumberSequenceRepository_GetNextNumber(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewNumberSequenceRepository(db)
	ctx := context.Background()

	current, err := repo.GetCurrentSequence(ctx, "quotation", 2026)
	require.NoError(t, err)
	assert.Equal(t, 0, current)

	for want := 1; want <= 3; want++ {
		got, err := repo.GetNextNumber(ctx, "quotation", 2026)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	t.Run("years are independent", func(t *testing.T) {
		got, err := repo.GetNextNumber(ctx, "quotation", 2027)
		require.NoError(t, err)
		assert.Equal(t, 1, got)
	})

	t.Run("scopes are independent", func(t *testing.T) {
		got, err := repo.GetNextNumber(ctx, "invoice", 2026)
		require.NoError(t, err)
		assert.Equal(t, 1, got)
	})

	current, err = repo.GetCurrentSequence(ctx, "quotation", 2026)
	require.NoError(t, err)
	assert.Equal(t, 3, current)
}

func TestNumberSequenceRepository_RollsBackWithTransaction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	_ = db.Transaction(func(tx *gorm.DB) error {
		n, err := repository.NewNumberSequenceRepository(tx).GetNextNumber(ctx, "quotation", 2026)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		return assert.AnError
	})

	current, err := repository.NewNumberSequenceRepository(db).GetCurrentSequence(ctx, "quotation", 2026)
	require.NoError(t, err)
	assert.Equal(t, 0, current)
}

func TestQuestionRepository_Ordering(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewQuestionRepository(db)
	ctx := context.Background()
	svc := testutil.CreateTestService(t, db, "web-app")

	newQuestion := func(order int) *domain.Question {
		q := &domain.Question{
			ServiceID:  svc.ID,
			Type:       domain.QuestionTypeYesNo,
			PromptES:   "Pregunta",
			PromptEN:   "Question",
			OrderIndex: order,
		}
		require.NoError(t, repo.Create(ctx, q))
		return q
	}

	first := newQuestion(1)
	second := newQuestion(0)
	third := newQuestion(1)

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.Equal(t, int64(3), third.Seq)

	questions, err := repo.ListByService(ctx, svc.ID)
	require.NoError(t, err)
	require.Len(t, questions, 3)
	assert.Equal(t, second.ID, questions[0].ID)
	assert.Equal(t, first.ID, questions[1].ID, "equal order index keeps insertion order")
	assert.Equal(t, third.ID, questions[2].ID)

	t.Run("reorder", func(t *testing.T) {
		require.NoError(t, repo.Reorder(ctx, svc.ID, []uuid.UUID{third.ID, first.ID, second.ID}))

		questions, err := repo.ListByService(ctx, svc.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{third.ID, first.ID, second.ID},
			[]uuid.UUID{questions[0].ID, questions[1].ID, questions[2].ID})
	})

	t.Run("reorder rejects a question of another service", func(t *testing.T) {
		other := testutil.CreateTestService(t, db, "landing")
		err := repo.Reorder(ctx, other.ID, []uuid.UUID{first.ID})
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("empty catalog is an empty slice", func(t *testing.T) {
		questions, err := repo.ListByService(ctx, uuid.New())
		require.NoError(t, err)
		assert.NotNil(t, questions)
		assert.Empty(t, questions)
	})
}

func TestQuotationRepository_ListFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewQuotationRepository(db)
	ctx := context.Background()
	svc := testutil.CreateTestService(t, db, "web-app")
	other := testutil.CreateTestService(t, db, "landing")

	now := time.Now().UTC()
	a := testutil.CreateTestQuotation(t, db, svc, "COT-2026-0001", now.Add(-2*time.Hour))
	b := testutil.CreateTestQuotation(t, db, svc, "COT-2026-0002", now.Add(-time.Hour))
	c := testutil.CreateTestQuotation(t, db, other, "COT-2026-0003", now)

	owner := "user-1"
	b.OwningUserID = &owner
	b.Status = domain.QuotationStatusApproved
	b.ClientName = "Acme Norte"
	require.NoError(t, repo.Update(ctx, b))

	t.Run("default sort is newest first", func(t *testing.T) {
		list, total, err := repo.List(ctx, 1, 10, nil, repository.DefaultSortConfig())
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, list, 3)
		assert.Equal(t, c.ID, list[0].ID)
		assert.Equal(t, a.ID, list[2].ID)
		require.NotNil(t, list[0].Service)
		assert.Equal(t, "landing", list[0].Service.Slug)
	})

	t.Run("status", func(t *testing.T) {
		status := domain.QuotationStatusApproved
		list, total, err := repo.List(ctx, 1, 10, &repository.QuotationFilters{Status: &status}, repository.DefaultSortConfig())
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, b.ID, list[0].ID)
	})

	t.Run("service", func(t *testing.T) {
		_, total, err := repo.List(ctx, 1, 10, &repository.QuotationFilters{ServiceID: &svc.ID}, repository.DefaultSortConfig())
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})

	t.Run("owner", func(t *testing.T) {
		list, total, err := repo.List(ctx, 1, 10, &repository.QuotationFilters{OwningUserID: &owner}, repository.DefaultSortConfig())
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, b.ID, list[0].ID)
	})

	t.Run("search is case insensitive", func(t *testing.T) {
		list, total, err := repo.List(ctx, 1, 10, &repository.QuotationFilters{Search: "NORTE"}, repository.DefaultSortConfig())
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, b.ID, list[0].ID)
	})

	t.Run("pagination keeps the total", func(t *testing.T) {
		list, total, err := repo.List(ctx, 2, 2, nil, repository.SortConfig{Field: "number", Order: repository.SortOrderAsc})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, list, 1)
		assert.Equal(t, c.ID, list[0].ID)
	})
}

func TestQuotationRepository_Reminders(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewQuotationRepository(db)
	ctx := context.Background()
	svc := testutil.CreateTestService(t, db, "web-app")

	now := time.Now().UTC()
	stale := testutil.CreateTestQuotation(t, db, svc, "COT-2026-0001", now.Add(-72*time.Hour))
	approved := testutil.CreateTestQuotation(t, db, svc, "COT-2026-0002", now.Add(-72*time.Hour))
	testutil.CreateTestQuotation(t, db, svc, "COT-2026-0003", now)

	approved.Status = domain.QuotationStatusApproved
	require.NoError(t, repo.Update(ctx, approved))

	cutoff := now.Add(-48 * time.Hour)
	due, err := repo.ListPendingForReminder(ctx, cutoff, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, stale.ID, due[0].ID)

	require.NoError(t, repo.MarkReminded(ctx, []uuid.UUID{stale.ID}, now))
	require.NoError(t, repo.MarkReminded(ctx, nil, now))

	due, err = repo.ListPendingForReminder(ctx, cutoff, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[domain.QuotationStatusPending])
	assert.Equal(t, int64(1), counts[domain.QuotationStatusApproved])
}

func TestQuotationRepository_DeleteRemovesTechnologyLinks(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewQuotationRepository(db)
	techs := repository.NewTechnologyRepository(db)
	ctx := context.Background()
	svc := testutil.CreateTestService(t, db, "web-app")
	q := testutil.CreateTestQuotation(t, db, svc, "COT-2026-0001", time.Now())

	goTech := &domain.Technology{Name: "Go", Slug: "go", Category: "backend"}
	vue := &domain.Technology{Name: "Vue", Slug: "vue", Category: "frontend"}
	require.NoError(t, techs.Create(ctx, goTech))
	require.NoError(t, techs.Create(ctx, vue))
	require.NoError(t, techs.LinkToQuotation(ctx, q.ID, []uuid.UUID{goTech.ID, vue.ID}))

	linked, err := techs.ListByQuotation(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, linked, 2)
	assert.Equal(t, "Go", linked[0].Name)

	require.NoError(t, repo.Delete(ctx, q.ID))

	var links int64
	require.NoError(t, db.Model(&domain.QuotationTechnology{}).Where("quotation_id = ?", q.ID).Count(&links).Error)
	assert.Zero(t, links)

	assert.ErrorIs(t, repo.Delete(ctx, q.ID), gorm.ErrRecordNotFound)
}

func TestDealRepository_Positions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewDealRepository(db)
	ctx := context.Background()

	newDeal := func(title string, stage domain.DealStage, pos int) *domain.Deal {
		d := &domain.Deal{Title: title, Stage: stage, Position: pos, Value: decimal.NewFromInt(1000), Currency: "MXN"}
		require.NoError(t, repo.Create(ctx, d))
		return d
	}

	a := newDeal("Sitio corporativo", domain.DealStageLead, 0)
	b := newDeal("Landing", domain.DealStageLead, 1)
	newDeal("App", domain.DealStageProposal, 0)

	require.NoError(t, repo.UpdatePositions(ctx, map[uuid.UUID]int{a.ID: 1, b.ID: 0}))

	column, err := repo.ListByStage(ctx, domain.DealStageLead)
	require.NoError(t, err)
	require.Len(t, column, 2)
	assert.Equal(t, b.ID, column[0].ID)
	assert.Equal(t, a.ID, column[1].ID)

	search := &repository.DealFilters{Search: "LANDING"}
	list, total, err := repo.List(ctx, 1, 10, search, repository.DefaultSortConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, b.ID, list[0].ID)

	assert.ErrorIs(t, repo.Delete(ctx, uuid.New()), gorm.ErrRecordNotFound)
}
