package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/repository"
	"github.com/nexo-studio/agency-api/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newDealService(t *testing.T) (*DealService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	log := testutil.Logger()
	return NewDealService(
		repository.NewDealRepository(db),
		repository.NewDealStageHistoryRepository(db),
		repository.NewContactRepository(db),
		NewActivityService(repository.NewActivityRepository(db), log),
		log,
		db,
	), db
}

func createDeal(t *testing.T, svc *DealService, title string, stage domain.DealStage, value int64) *domain.DealDTO {
	t.Helper()
	deal, err := svc.Create(staffContext(), &domain.CreateDealRequest{
		Title: title,
		Stage: stage,
		Value: decimal.NewFromInt(value),
	}, domain.LocaleES)
	require.NoError(t, err)
	return deal
}

func TestDealService_CreateDefaults(t *testing.T) {
	svc, _ := newDealService(t)

	first := createDeal(t, svc, "Sitio web", "", 1000)
	second := createDeal(t, svc, "App", "", 2000)

	assert.Equal(t, domain.DealStageLead, first.Stage)
	assert.Equal(t, 10, first.Probability)
	assert.Equal(t, "MXN", first.Currency)
	assert.Equal(t, 0, first.Position)
	assert.Equal(t, 1, second.Position)
	assert.Equal(t, "Staff User", first.OwnerName)
}

func TestDealService_CreateValidation(t *testing.T) {
	svc, _ := newDealService(t)
	ctx := staffContext()

	_, err := svc.Create(ctx, &domain.CreateDealRequest{Title: "x", Stage: "archived"}, domain.LocaleES)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, &domain.CreateDealRequest{Title: "x", Stage: domain.DealStageLost}, domain.LocaleES)
	assert.ErrorIs(t, err, ErrLostReasonRequired)

	missing := uuid.New()
	_, err = svc.Create(ctx, &domain.CreateDealRequest{Title: "x", ContactID: &missing}, domain.LocaleES)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDealService_MoveStageRecordsHistory(t *testing.T) {
	svc, db := newDealService(t)
	ctx := staffContext()
	deal := createDeal(t, svc, "Tienda", domain.DealStageLead, 5000)

	moved, err := svc.MoveStage(ctx, deal.ID, &domain.MoveDealStageRequest{
		Stage: domain.DealStageNegotiation,
		Notes: "call went well",
	}, domain.LocaleES)
	require.NoError(t, err)
	assert.Equal(t, domain.DealStageNegotiation, moved.Stage)
	assert.Equal(t, 75, moved.Probability)
	assert.Equal(t, 3750.0, moved.WeightedValue)

	history, err := svc.History(ctx, deal.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	var change *domain.DealStageHistoryDTO
	for i := range history {
		if history[i].FromStage != nil {
			change = &history[i]
		}
	}
	require.NotNil(t, change)
	assert.Equal(t, domain.DealStageLead, *change.FromStage)
	assert.Equal(t, domain.DealStageNegotiation, change.ToStage)
	assert.Equal(t, "call went well", change.Notes)
	assert.Equal(t, "Staff User", change.ChangedByName)

	activities, err := repository.NewActivityRepository(db).ListByTarget(ctx, domain.ActivityTargetDeal, deal.ID, 10)
	require.NoError(t, err)
	assert.Len(t, activities, 2)
}

func TestDealService_MoveStagePositions(t *testing.T) {
	svc, _ := newDealService(t)
	ctx := staffContext()

	a := createDeal(t, svc, "A", domain.DealStageProposal, 100)
	b := createDeal(t, svc, "B", domain.DealStageProposal, 100)
	c := createDeal(t, svc, "C", domain.DealStageLead, 100)

	top := 0
	_, err := svc.MoveStage(ctx, c.ID, &domain.MoveDealStageRequest{Stage: domain.DealStageProposal, Position: &top}, domain.LocaleES)
	require.NoError(t, err)

	board, err := svc.Board(ctx, domain.LocaleES)
	require.NoError(t, err)
	require.Len(t, board.Columns, len(domain.DealStages))

	var proposal domain.BoardColumnDTO
	for _, col := range board.Columns {
		if col.Stage == domain.DealStageProposal {
			proposal = col
		}
	}
	require.Equal(t, 3, proposal.Count)
	assert.Equal(t, 300.0, proposal.TotalValue)
	assert.Equal(t, []uuid.UUID{c.ID, a.ID, b.ID},
		[]uuid.UUID{proposal.Deals[0].ID, proposal.Deals[1].ID, proposal.Deals[2].ID})

	far := 99
	_, err = svc.MoveStage(ctx, c.ID, &domain.MoveDealStageRequest{Stage: domain.DealStageProposal, Position: &far}, domain.LocaleES)
	require.NoError(t, err)

	history, err := svc.History(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2, "reordering within a column is not a stage change")

	moved, err := svc.GetByID(ctx, c.ID, domain.LocaleES)
	require.NoError(t, err)
	assert.Equal(t, 2, moved.Position)
}

func TestDealService_MoveToLost(t *testing.T) {
	svc, _ := newDealService(t)
	ctx := staffContext()
	deal := createDeal(t, svc, "Perdido", domain.DealStageProposal, 100)

	_, err := svc.MoveStage(ctx, deal.ID, &domain.MoveDealStageRequest{Stage: domain.DealStageLost}, domain.LocaleES)
	assert.ErrorIs(t, err, ErrLostReasonRequired)

	lost, err := svc.MoveStage(ctx, deal.ID, &domain.MoveDealStageRequest{
		Stage:      domain.DealStageLost,
		LostReason: "budget",
	}, domain.LocaleES)
	require.NoError(t, err)
	assert.Equal(t, "budget", lost.LostReason)
	assert.Equal(t, 0, lost.Probability)
	assert.NotNil(t, lost.ActualCloseDate)

	reopened, err := svc.MoveStage(ctx, deal.ID, &domain.MoveDealStageRequest{Stage: domain.DealStageLead}, domain.LocaleES)
	require.NoError(t, err)
	assert.Empty(t, reopened.LostReason)
	assert.Nil(t, reopened.ActualCloseDate)
}

func TestDealService_MoveStageUnknownDeal(t *testing.T) {
	svc, _ := newDealService(t)

	_, err := svc.MoveStage(staffContext(), uuid.New(), &domain.MoveDealStageRequest{Stage: domain.DealStageWon}, domain.LocaleES)
	assert.ErrorIs(t, err, ErrDealNotFound)
}

func TestDealService_UpdateListDelete(t *testing.T) {
	svc, db := newDealService(t)
	ctx := staffContext()
	contact := testutil.CreateTestContact(t, db, "Luis", "luis@example.com")
	deal := createDeal(t, svc, "Original", domain.DealStageLead, 100)

	updated, err := svc.Update(ctx, deal.ID, &domain.UpdateDealRequest{
		Title:     "Renombrado",
		ContactID: &contact.ID,
		Value:     decimal.NewFromInt(900),
	}, domain.LocaleES)
	require.NoError(t, err)
	assert.Equal(t, "Renombrado", updated.Title)
	assert.Equal(t, "Luis Prueba", updated.ContactName)
	assert.Equal(t, domain.DealStageLead, updated.Stage)

	stage := domain.DealStageLead
	page, err := svc.List(ctx, 1, 10, &repository.DealFilters{Stage: &stage}, repository.DefaultSortConfig(), domain.LocaleES)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	require.NoError(t, svc.Delete(ctx, deal.ID))
	_, err = svc.GetByID(ctx, deal.ID, domain.LocaleES)
	assert.ErrorIs(t, err, ErrDealNotFound)
}
