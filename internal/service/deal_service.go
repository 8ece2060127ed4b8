package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/auth"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/i18n"
	"github.com/nexo-studio/agency-api/internal/mapper"
	"github.com/nexo-studio/agency-api/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Default probabilities by stage
var stageProbabilities = map[domain.DealStage]int{
	domain.DealStageLead:        10,
	domain.DealStageContacted:   25,
	domain.DealStageProposal:    50,
	domain.DealStageNegotiation: 75,
	domain.DealStageWon:         100,
	domain.DealStageLost:        0,
}

// StageProbability returns the win probability assigned to a stage
func StageProbability(stage domain.DealStage) int {
	return stageProbabilities[stage]
}

type DealService struct {
	dealRepo    *repository.DealRepository
	historyRepo *repository.DealStageHistoryRepository
	contactRepo *repository.ContactRepository
	activities  *ActivityService
	logger      *zap.Logger
	db          *gorm.DB
}

func NewDealService(
	dealRepo *repository.DealRepository,
	historyRepo *repository.DealStageHistoryRepository,
	contactRepo *repository.ContactRepository,
	activities *ActivityService,
	logger *zap.Logger,
	db *gorm.DB,
) *DealService {
	return &DealService{
		dealRepo:    dealRepo,
		historyRepo: historyRepo,
		contactRepo: contactRepo,
		activities:  activities,
		logger:      logger,
		db:          db,
	}
}

func (s *DealService) Create(ctx context.Context, req *domain.CreateDealRequest, loc domain.Locale) (*domain.DealDTO, error) {
	stage := req.Stage
	if stage == "" {
		stage = domain.DealStageLead
	}
	if !stage.IsValid() {
		return nil, invalidField("stage", "unknown stage")
	}
	if stage == domain.DealStageLost {
		return nil, ErrLostReasonRequired
	}
	if req.Value.IsNegative() {
		return nil, invalidField("value", "must not be negative")
	}
	if err := s.ensureContact(ctx, req.ContactID); err != nil {
		return nil, err
	}

	actorID, actorName := auth.Actor(ctx)
	ownerID := req.OwnerID
	if ownerID == "" {
		ownerID = actorID
	}

	deal := &domain.Deal{
		Title:             strings.TrimSpace(req.Title),
		Description:       req.Description,
		ContactID:         req.ContactID,
		Stage:             stage,
		Probability:       stageProbabilities[stage],
		Value:             req.Value,
		Currency:          currencyOrDefault(req.Currency),
		ExpectedCloseDate: req.ExpectedCloseDate,
		OwnerID:           ownerID,
		Source:            req.Source,
		Notes:             req.Notes,
	}
	if ownerID == actorID {
		deal.OwnerName = actorName
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createDealTx(ctx, tx, deal, "Deal created")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create deal: %w", err)
	}

	s.activities.Record(ctx, domain.ActivityTargetDeal, deal.ID,
		"Deal created", fmt.Sprintf("Deal '%s' was created in %s", deal.Title, deal.Stage))

	return s.getDTO(ctx, deal.ID, loc)
}

// createDealTx appends the deal to the end of its column and records its first stage
func createDealTx(ctx context.Context, tx *gorm.DB, deal *domain.Deal, notes string) error {
	dealRepo := repository.NewDealRepository(tx)

	maxPos, err := dealRepo.MaxPosition(ctx, deal.Stage)
	if err != nil {
		return err
	}
	deal.Position = maxPos + 1
	if deal.Stage.IsClosed() && deal.ActualCloseDate == nil {
		now := time.Now()
		deal.ActualCloseDate = &now
	}

	if err := dealRepo.Create(ctx, deal); err != nil {
		return err
	}

	changedByID, changedByName := auth.Actor(ctx)
	if changedByID == "" {
		changedByID = "system"
	}
	return repository.NewDealStageHistoryRepository(tx).Create(ctx, &domain.DealStageHistory{
		DealID:        deal.ID,
		ToStage:       deal.Stage,
		ChangedByID:   changedByID,
		ChangedByName: changedByName,
		Notes:         notes,
	})
}

func (s *DealService) GetByID(ctx context.Context, id uuid.UUID, loc domain.Locale) (*domain.DealDTO, error) {
	return s.getDTO(ctx, id, loc)
}

func (s *DealService) getDTO(ctx context.Context, id uuid.UUID, loc domain.Locale) (*domain.DealDTO, error) {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDealNotFound
		}
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}

	dto := mapper.ToDealDTO(deal, loc)
	return &dto, nil
}

func (s *DealService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateDealRequest, loc domain.Locale) (*domain.DealDTO, error) {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDealNotFound
		}
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}
	if req.Value.IsNegative() {
		return nil, invalidField("value", "must not be negative")
	}
	if err := s.ensureContact(ctx, req.ContactID); err != nil {
		return nil, err
	}

	deal.Title = strings.TrimSpace(req.Title)
	deal.Description = req.Description
	deal.ContactID = req.ContactID
	deal.Contact = nil
	deal.Value = req.Value
	deal.Currency = currencyOrDefault(req.Currency)
	deal.ExpectedCloseDate = req.ExpectedCloseDate
	deal.Source = req.Source
	deal.Notes = req.Notes
	if req.OwnerID != "" && req.OwnerID != deal.OwnerID {
		deal.OwnerID = req.OwnerID
		deal.OwnerName = ""
	}

	if err := s.dealRepo.Update(ctx, deal); err != nil {
		return nil, fmt.Errorf("failed to update deal: %w", err)
	}

	s.activities.Record(ctx, domain.ActivityTargetDeal, deal.ID,
		"Deal updated", fmt.Sprintf("Deal '%s' was updated", deal.Title))

	return s.getDTO(ctx, deal.ID, loc)
}

func (s *DealService) Delete(ctx context.Context, id uuid.UUID) error {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDealNotFound
		}
		return fmt.Errorf("failed to get deal: %w", err)
	}

	if err := s.dealRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete deal: %w", err)
	}

	s.activities.Record(ctx, domain.ActivityTargetDeal, id,
		"Deal deleted", fmt.Sprintf("Deal '%s' was deleted", deal.Title))
	return nil
}

func (s *DealService) List(ctx context.Context, page, pageSize int, filters *repository.DealFilters, sort repository.SortConfig, loc domain.Locale) (*domain.PaginatedResponse, error) {
	page, pageSize = repository.NormalizePage(page, pageSize)

	deals, total, err := s.dealRepo.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}

	dtos := make([]domain.DealDTO, len(deals))
	for i := range deals {
		dtos[i] = mapper.ToDealDTO(&deals[i], loc)
	}
	return domain.NewPaginatedResponse(dtos, total, page, pageSize), nil
}

// Board returns every deal grouped into kanban columns in pipeline order
func (s *DealService) Board(ctx context.Context, loc domain.Locale) (*domain.BoardDTO, error) {
	deals, err := s.dealRepo.ListForBoard(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load board: %w", err)
	}

	index := make(map[domain.DealStage]int, len(domain.DealStages))
	board := &domain.BoardDTO{Columns: make([]domain.BoardColumnDTO, len(domain.DealStages))}
	totals := make([]decimal.Decimal, len(domain.DealStages))
	for i, stage := range domain.DealStages {
		index[stage] = i
		board.Columns[i] = domain.BoardColumnDTO{Stage: stage, Deals: []domain.DealDTO{}}
	}

	for i := range deals {
		col, ok := index[deals[i].Stage]
		if !ok {
			continue
		}
		board.Columns[col].Deals = append(board.Columns[col].Deals, mapper.ToDealDTO(&deals[i], loc))
		totals[col] = totals[col].Add(deals[i].Value)
	}

	for i := range board.Columns {
		board.Columns[i].Count = len(board.Columns[i].Deals)
		board.Columns[i].TotalValue = totals[i].Round(2).InexactFloat64()
	}
	return board, nil
}

// MoveStage moves a card to a column and position. The target column is renumbered
// so positions stay contiguous. Moving to lost requires a reason.
func (s *DealService) MoveStage(ctx context.Context, id uuid.UUID, req *domain.MoveDealStageRequest, loc domain.Locale) (*domain.DealDTO, error) {
	if !req.Stage.IsValid() {
		return nil, invalidField("stage", "unknown stage")
	}

	var (
		oldStage domain.DealStage
		title    string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dealRepo := repository.NewDealRepository(tx)

		deal, err := dealRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		oldStage = deal.Stage
		title = deal.Title

		lostReason := strings.TrimSpace(req.LostReason)
		if req.Stage == domain.DealStageLost && lostReason == "" && oldStage != domain.DealStageLost {
			return ErrLostReasonRequired
		}

		column, err := dealRepo.ListByStage(ctx, req.Stage)
		if err != nil {
			return err
		}
		ordered := make([]uuid.UUID, 0, len(column)+1)
		for _, d := range column {
			if d.ID != deal.ID {
				ordered = append(ordered, d.ID)
			}
		}
		pos := len(ordered)
		if req.Position != nil && *req.Position < pos {
			pos = *req.Position
		}
		ordered = append(ordered, uuid.Nil)
		copy(ordered[pos+1:], ordered[pos:])
		ordered[pos] = deal.ID

		positions := make(map[uuid.UUID]int, len(ordered))
		for i, dealID := range ordered {
			positions[dealID] = i
		}
		if err := dealRepo.UpdatePositions(ctx, positions); err != nil {
			return err
		}

		deal.Contact = nil
		deal.Stage = req.Stage
		deal.Position = pos
		deal.Probability = stageProbabilities[req.Stage]
		switch {
		case req.Stage.IsClosed() && !oldStage.IsClosed():
			now := time.Now()
			deal.ActualCloseDate = &now
		case !req.Stage.IsClosed():
			deal.ActualCloseDate = nil
		}
		if req.Stage == domain.DealStageLost {
			if lostReason != "" {
				deal.LostReason = lostReason
			}
		} else {
			deal.LostReason = ""
		}

		if err := dealRepo.Update(ctx, deal); err != nil {
			return err
		}

		if oldStage == req.Stage {
			return nil
		}

		changedByID, changedByName := auth.Actor(ctx)
		from := oldStage
		return repository.NewDealStageHistoryRepository(tx).Create(ctx, &domain.DealStageHistory{
			DealID:        deal.ID,
			FromStage:     &from,
			ToStage:       req.Stage,
			ChangedByID:   changedByID,
			ChangedByName: changedByName,
			Notes:         req.Notes,
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrDealNotFound
		case errors.Is(err, ErrLostReasonRequired):
			return nil, err
		}
		return nil, fmt.Errorf("failed to move deal: %w", err)
	}

	if oldStage != req.Stage {
		s.activities.Record(ctx, domain.ActivityTargetDeal, id,
			"Deal stage changed", fmt.Sprintf("Deal '%s' moved from %s to %s", title, oldStage, req.Stage))
	}

	return s.getDTO(ctx, id, loc)
}

// History returns the stage changes of a deal, newest first
func (s *DealService) History(ctx context.Context, id uuid.UUID) ([]domain.DealStageHistoryDTO, error) {
	if _, err := s.dealRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDealNotFound
		}
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}

	history, err := s.historyRepo.GetByDealID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get stage history: %w", err)
	}

	dtos := make([]domain.DealStageHistoryDTO, len(history))
	for i := range history {
		dtos[i] = mapper.ToDealStageHistoryDTO(&history[i])
	}
	return dtos, nil
}

func (s *DealService) ensureContact(ctx context.Context, contactID *uuid.UUID) error {
	if contactID == nil {
		return nil
	}
	if _, err := s.contactRepo.GetByID(ctx, *contactID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalidField("contactId", "contact not found")
		}
		return fmt.Errorf("failed to get contact: %w", err)
	}
	return nil
}

func currencyOrDefault(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return i18n.DefaultCurrency
	}
	return code
}
