package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/auth"
	"github.com/nexo-studio/agency-api/internal/config"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/mapper"
	"github.com/nexo-studio/agency-api/internal/notify"
	"github.com/nexo-studio/agency-api/internal/pricing"
	"github.com/nexo-studio/agency-api/internal/quoteform"
	"github.com/nexo-studio/agency-api/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const quotationSequenceScope = "quotation"

// maxStoredAmount is the first value that no longer fits the decimal(15,2) money columns
var maxStoredAmount = decimal.New(1, 13)

// PreviewStore keeps previewed forms between the preview and confirmation requests
type PreviewStore interface {
	Save(ctx context.Context, token string, snap quoteform.Snapshot, ttl time.Duration) error
	// Take returns and removes the snapshot; nil when the token is unknown or expired
	Take(ctx context.Context, token string) (*quoteform.Snapshot, error)
}

// Warning text returned when technologies could not be attached to a saved quotation
const warnTechnologiesNotLinked = "technologies could not be linked to the quotation"

// QuotationService runs the public and internal quotation flows and the quotation workflow
type QuotationService struct {
	quotationRepo *repository.QuotationRepository
	contactRepo   *repository.ContactRepository
	dealRepo      *repository.DealRepository
	techRepo      *repository.TechnologyRepository
	catalog       *CatalogService
	activities    *ActivityService
	previews      PreviewStore
	notifier      notify.Notifier
	cfg           config.QuotationConfig
	logger        *zap.Logger
	db            *gorm.DB
	now           func() time.Time
}

func NewQuotationService(
	quotationRepo *repository.QuotationRepository,
	contactRepo *repository.ContactRepository,
	dealRepo *repository.DealRepository,
	techRepo *repository.TechnologyRepository,
	catalog *CatalogService,
	activities *ActivityService,
	previews PreviewStore,
	notifier notify.Notifier,
	cfg config.QuotationConfig,
	logger *zap.Logger,
	db *gorm.DB,
) *QuotationService {
	return &QuotationService{
		quotationRepo: quotationRepo,
		contactRepo:   contactRepo,
		dealRepo:      dealRepo,
		techRepo:      techRepo,
		catalog:       catalog,
		activities:    activities,
		previews:      previews,
		notifier:      notifier,
		cfg:           cfg,
		logger:        logger,
		db:            db,
		now:           time.Now,
	}
}

// Preview evaluates a public form and keeps it under a token. Nothing is persisted.
func (s *QuotationService) Preview(ctx context.Context, req *domain.QuotationPreviewRequest, loc domain.Locale) (*domain.QuotationPreviewDTO, error) {
	svc, session, err := s.openSession(ctx, req.ServiceID, req.Answers)
	if err != nil {
		return nil, err
	}

	totals, err := session.Preview(clientInfo(req.Client))
	if err != nil {
		return nil, sessionError(err)
	}
	if err := checkStorable(totals); err != nil {
		return nil, err
	}

	snap, err := session.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to capture preview: %w", err)
	}

	token := uuid.NewString()
	ttl := s.cfg.PreviewTTLDuration()
	snap.ExpiresAt = s.now().Add(ttl).UTC()
	if err := s.previews.Save(ctx, token, snap, ttl); err != nil {
		s.logger.Error("failed to store quotation preview", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	client := session.Client()
	return &domain.QuotationPreviewDTO{
		Token:     token,
		ExpiresAt: snap.ExpiresAt.Format(time.RFC3339),
		Service:   mapper.ToServiceDTO(svc, loc),
		Client: domain.QuotationClientDTO{
			Name:    client.Name,
			Email:   client.Email,
			Company: client.Company,
			Phone:   client.Phone,
		},
		Lines:  mapper.ToQuotationLines(session.Questions(), session.Answers(), loc),
		Totals: mapper.ToTotalsDTO(totals, loc),
	}, nil
}

// ConfirmPreview persists a previewed public form as a pending quotation without owner.
// When saving fails the preview is put back so the client can retry.
func (s *QuotationService) ConfirmPreview(ctx context.Context, token string, loc domain.Locale) (*domain.QuotationDTO, error) {
	snap, err := s.previews.Take(ctx, token)
	if err != nil {
		s.logger.Error("failed to load quotation preview", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}
	if snap == nil {
		return nil, ErrPreviewNotFound
	}

	session, err := quoteform.Restore(*snap)
	if err != nil || session.State() != quoteform.StatePreviewed {
		return nil, ErrPreviewNotFound
	}

	quotation, err := session.Confirm(ctx, quoteform.SubmitterFunc(func(ctx context.Context, sub quoteform.Submission) (*domain.Quotation, error) {
		return s.persist(ctx, sub, persistOptions{
			source:             domain.QuotationSourcePublic,
			linkContactByEmail: true,
		})
	}))
	if err != nil {
		s.restorePreview(ctx, token, snap)
		return nil, err
	}

	s.activities.Record(ctx, domain.ActivityTargetQuotation, quotation.ID,
		"Quotation received", fmt.Sprintf("Quotation %s submitted by %s", quotation.Number, quotation.ClientName))

	if err := s.notifier.NotifyQuotation(ctx, notify.NewQuotationMessage(notify.EventQuotationSubmitted, quotation)); err != nil {
		s.logger.Warn("failed to notify staff about quotation",
			zap.String("quotation_id", quotation.ID.String()),
			zap.Error(err))
	}

	dto := mapper.ToQuotationDTO(quotation, nil, loc)
	return &dto, nil
}

// restorePreview puts a preview back for the time it had left, even when the caller is gone
func (s *QuotationService) restorePreview(ctx context.Context, token string, snap *quoteform.Snapshot) {
	remaining := snap.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		return
	}
	if err := s.previews.Save(context.WithoutCancel(ctx), token, *snap, remaining); err != nil {
		s.logger.Warn("failed to restore quotation preview", zap.Error(err))
	}
}

// SubmitInternal validates and persists in one step for an authenticated user. The
// quotation belongs to the caller and expires after the configured validity period.
func (s *QuotationService) SubmitInternal(ctx context.Context, req *domain.CreateQuotationRequest, loc domain.Locale) (*domain.QuotationSubmitResultDTO, error) {
	user, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrForbidden
	}

	if err := s.checkLinks(ctx, req.ContactID, req.DealID); err != nil {
		return nil, err
	}

	_, session, err := s.openSession(ctx, req.ServiceID, req.Answers)
	if err != nil {
		return nil, err
	}

	owner := user.ID()
	quotation, err := session.Submit(ctx, clientInfo(req.Client), quoteform.SubmitterFunc(func(ctx context.Context, sub quoteform.Submission) (*domain.Quotation, error) {
		return s.persist(ctx, sub, persistOptions{
			source:    domain.QuotationSourceInternal,
			owner:     &owner,
			validFor:  s.cfg.ValidityDays,
			contactID: req.ContactID,
			dealID:    req.DealID,
			notes:     req.Notes,
		})
	}))
	if err != nil {
		return nil, sessionError(err)
	}

	result := &domain.QuotationSubmitResultDTO{}
	var technologies []domain.Technology
	if ids := uniqueIDs(req.TechnologyIDs); len(ids) > 0 {
		if err := s.techRepo.LinkToQuotation(ctx, quotation.ID, ids); err != nil {
			s.logger.Warn("failed to link technologies to quotation",
				zap.String("quotation_id", quotation.ID.String()),
				zap.Int("count", len(ids)),
				zap.Error(err))
			result.Warnings = append(result.Warnings, warnTechnologiesNotLinked)
		} else if technologies, err = s.techRepo.ListByQuotation(ctx, quotation.ID); err != nil {
			s.logger.Warn("failed to load quotation technologies", zap.Error(err))
		}
	}

	s.activities.Record(ctx, domain.ActivityTargetQuotation, quotation.ID,
		"Quotation created", fmt.Sprintf("Quotation %s created for %s", quotation.Number, quotation.ClientName))

	result.Quotation = mapper.ToQuotationDTO(quotation, technologies, loc)
	return result, nil
}

// openSession selects the service and applies the raw answers on a fresh form
func (s *QuotationService) openSession(ctx context.Context, serviceID uuid.UUID, answers map[string]json.RawMessage) (*domain.Service, *quoteform.Session, error) {
	if serviceID == uuid.Nil {
		return nil, nil, invalidField("serviceId", domain.GetValidationMessage("required"))
	}

	svc, err := s.catalog.GetActiveService(ctx, serviceID)
	if err != nil {
		return nil, nil, err
	}

	session := quoteform.NewSession()
	if err := session.SelectService(ctx, s.catalog, serviceID); err != nil {
		return nil, nil, err
	}
	if err := session.ApplyAnswers(answers); err != nil {
		return nil, nil, sessionError(err)
	}
	return svc, session, nil
}

type persistOptions struct {
	source             domain.QuotationSource
	owner              *string
	validFor           int
	contactID          *uuid.UUID
	dealID             *uuid.UUID
	notes              string
	linkContactByEmail bool
}

// persist writes the quotation and allocates its number in one transaction
func (s *QuotationService) persist(ctx context.Context, sub quoteform.Submission, opts persistOptions) (*domain.Quotation, error) {
	if err := checkStorable(sub.Totals); err != nil {
		return nil, err
	}

	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}

	now := s.now()
	quotation := &domain.Quotation{
		OwningUserID:  opts.owner,
		ServiceID:     sub.ServiceID,
		ClientName:    sub.Client.Name,
		ClientEmail:   sub.Client.Email,
		ClientCompany: sub.Client.Company,
		ClientPhone:   sub.Client.Phone,
		Answers:       datatypes.JSON(answers),
		Subtotal:      sub.Totals.Subtotal,
		Tax:           sub.Totals.Tax,
		Total:         sub.Totals.Total,
		Status:        domain.QuotationStatusPending,
		Source:        opts.source,
		ContactID:     opts.contactID,
		DealID:        opts.dealID,
		Notes:         opts.notes,
	}
	quotation.CreatedAt = now
	quotation.UpdatedAt = now
	if opts.validFor > 0 {
		validUntil := now.AddDate(0, 0, opts.validFor)
		quotation.ValidUntil = &validUntil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := repository.NewNumberSequenceRepository(tx).GetNextNumber(ctx, quotationSequenceScope, now.Year())
		if err != nil {
			return err
		}
		quotation.Number = fmt.Sprintf("%s-%d-%04d", s.numberPrefix(), now.Year(), seq)

		if opts.linkContactByEmail && quotation.ContactID == nil {
			contact, err := repository.NewContactRepository(tx).GetByEmail(ctx, quotation.ClientEmail)
			switch {
			case err == nil:
				quotation.ContactID = &contact.ID
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
		}

		return repository.NewQuotationRepository(tx).Create(ctx, quotation)
	})
	if err != nil {
		s.logger.Error("failed to persist quotation",
			zap.String("service_id", sub.ServiceID.String()),
			zap.String("source", string(opts.source)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	s.logger.Info("quotation created",
		zap.String("quotation_id", quotation.ID.String()),
		zap.String("number", quotation.Number),
		zap.String("source", string(opts.source)),
		zap.String("total", quotation.Total.StringFixed(2)))

	return quotation, nil
}

func (s *QuotationService) numberPrefix() string {
	if s.cfg.NumberPrefix == "" {
		return "COT"
	}
	return s.cfg.NumberPrefix
}

func (s *QuotationService) checkLinks(ctx context.Context, contactID, dealID *uuid.UUID) error {
	if contactID != nil {
		if _, err := s.contactRepo.GetByID(ctx, *contactID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalidField("contactId", "contact not found")
			}
			return fmt.Errorf("failed to get contact: %w", err)
		}
	}
	if dealID != nil {
		if _, err := s.dealRepo.GetByID(ctx, *dealID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalidField("dealId", "deal not found")
			}
			return fmt.Errorf("failed to get deal: %w", err)
		}
	}
	return nil
}

// List returns a page of quotations. Callers without a staff role only see their own.
func (s *QuotationService) List(ctx context.Context, page, pageSize int, filters *repository.QuotationFilters, sort repository.SortConfig, loc domain.Locale) (*domain.PaginatedResponse, error) {
	page, pageSize = repository.NormalizePage(page, pageSize)
	if filters == nil {
		filters = &repository.QuotationFilters{}
	}
	if user, ok := auth.FromContext(ctx); ok && !user.IsStaff() {
		owner := user.ID()
		filters.OwningUserID = &owner
	}

	quotations, total, err := s.quotationRepo.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}

	dtos := make([]domain.QuotationDTO, len(quotations))
	for i := range quotations {
		dtos[i] = mapper.ToQuotationDTO(&quotations[i], nil, loc)
	}
	return domain.NewPaginatedResponse(dtos, total, page, pageSize), nil
}

func (s *QuotationService) GetByID(ctx context.Context, id uuid.UUID, loc domain.Locale) (*domain.QuotationDTO, error) {
	quotation, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	technologies, err := s.techRepo.ListByQuotation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotation technologies: %w", err)
	}

	dto := mapper.ToQuotationDTO(quotation, technologies, loc)
	return &dto, nil
}

func (s *QuotationService) get(ctx context.Context, id uuid.UUID) (*domain.Quotation, error) {
	quotation, err := s.quotationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuotationNotFound
		}
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}

	if user, ok := auth.FromContext(ctx); ok && !user.IsStaff() {
		if quotation.OwningUserID == nil || *quotation.OwningUserID != user.ID() {
			return nil, ErrQuotationNotFound
		}
	}
	return quotation, nil
}

// Allowed manual status changes. Converted is only reachable through Convert.
var quotationTransitions = map[domain.QuotationStatus][]domain.QuotationStatus{
	domain.QuotationStatusPending:  {domain.QuotationStatusApproved, domain.QuotationStatusRejected},
	domain.QuotationStatusApproved: {domain.QuotationStatusRejected},
}

func canTransition(from, to domain.QuotationStatus) bool {
	for _, allowed := range quotationTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// UpdateStatus changes the CRM status of a quotation. Setting the current status again is a no-op.
func (s *QuotationService) UpdateStatus(ctx context.Context, id uuid.UUID, req *domain.UpdateQuotationStatusRequest, loc domain.Locale) (*domain.QuotationDTO, error) {
	if !req.Status.IsValid() {
		return nil, invalidField("status", "unknown status")
	}

	quotation, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if quotation.Status != req.Status {
		if !canTransition(quotation.Status, req.Status) {
			return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, quotation.Status, req.Status)
		}

		oldStatus := quotation.Status
		quotation.Status = req.Status
		if strings.TrimSpace(req.Notes) != "" {
			quotation.Notes = req.Notes
		}
		if err := s.quotationRepo.Update(ctx, quotation); err != nil {
			return nil, fmt.Errorf("failed to update quotation: %w", err)
		}

		s.activities.Record(ctx, domain.ActivityTargetQuotation, quotation.ID,
			"Quotation status changed",
			fmt.Sprintf("Quotation %s moved from %s to %s", quotation.Number, oldStatus, req.Status))
	}

	return s.GetByID(ctx, id, loc)
}

// Convert turns an approved quotation into a deal in the proposal column. The client is
// linked to an existing contact with the same email or saved as a new one.
func (s *QuotationService) Convert(ctx context.Context, id uuid.UUID, req *domain.ConvertQuotationRequest, loc domain.Locale) (*domain.QuotationConversionDTO, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}

	actorID, actorName := auth.Actor(ctx)
	var deal *domain.Deal

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quotationRepo := repository.NewQuotationRepository(tx)
		contactRepo := repository.NewContactRepository(tx)

		quotation, err := quotationRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		switch quotation.Status {
		case domain.QuotationStatusConverted:
			return ErrAlreadyConverted
		case domain.QuotationStatusApproved:
		default:
			return fmt.Errorf("%w: only approved quotations can be converted", ErrInvalidStatusTransition)
		}

		contactID, err := resolveContact(ctx, contactRepo, quotation)
		if err != nil {
			return err
		}

		title := strings.TrimSpace(req.Title)
		if title == "" {
			title = quotation.Number + " - " + quotation.ClientName
			if quotation.Service != nil {
				title = domain.Localize(loc, quotation.Service.TitleES, quotation.Service.TitleEN) + " - " + quotation.ClientName
			}
		}

		ownerID, ownerName := actorID, actorName
		if ownerID == "" && quotation.OwningUserID != nil {
			ownerID = *quotation.OwningUserID
		}

		deal = &domain.Deal{
			Title:             title,
			ContactID:         &contactID,
			QuotationID:       &quotation.ID,
			Stage:             domain.DealStageProposal,
			Probability:       stageProbabilities[domain.DealStageProposal],
			Value:             quotation.Total,
			Currency:          currencyOrDefault(""),
			ExpectedCloseDate: req.ExpectedCloseDate,
			OwnerID:           ownerID,
			OwnerName:         ownerName,
			Source:            "quotation",
			Notes:             quotation.Notes,
		}
		if err := createDealTx(ctx, tx, deal, "Converted from quotation "+quotation.Number); err != nil {
			return err
		}

		quotation.Status = domain.QuotationStatusConverted
		quotation.DealID = &deal.ID
		quotation.ContactID = &contactID
		return quotationRepo.Update(ctx, quotation)
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrQuotationNotFound
		case errors.Is(err, ErrAlreadyConverted), errors.Is(err, ErrInvalidStatusTransition):
			return nil, err
		}
		return nil, fmt.Errorf("failed to convert quotation: %w", err)
	}

	s.activities.Record(ctx, domain.ActivityTargetQuotation, id,
		"Quotation converted", fmt.Sprintf("Quotation converted into deal '%s'", deal.Title))
	s.activities.Record(ctx, domain.ActivityTargetDeal, deal.ID,
		"Deal created", fmt.Sprintf("Deal '%s' was created from a quotation", deal.Title))

	quotationDTO, err := s.GetByID(ctx, id, loc)
	if err != nil {
		return nil, err
	}
	savedDeal, err := s.dealRepo.GetByID(ctx, deal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}

	return &domain.QuotationConversionDTO{
		Quotation: *quotationDTO,
		Deal:      mapper.ToDealDTO(savedDeal, loc),
	}, nil
}

// resolveContact returns the linked contact, a contact with the client email, or a new one
func resolveContact(ctx context.Context, contactRepo *repository.ContactRepository, q *domain.Quotation) (uuid.UUID, error) {
	if q.ContactID != nil {
		if _, err := contactRepo.GetByID(ctx, *q.ContactID); err == nil {
			return *q.ContactID, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, err
		}
	}

	contact, err := contactRepo.GetByEmail(ctx, q.ClientEmail)
	if err == nil {
		return contact.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, err
	}

	contact = contactFromClient(q.ClientName, q.ClientEmail, q.ClientCompany, q.ClientPhone, "quotation")
	if err := contactRepo.Create(ctx, contact); err != nil {
		return uuid.Nil, err
	}
	return contact.ID, nil
}

func (s *QuotationService) Delete(ctx context.Context, id uuid.UUID) error {
	quotation, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.quotationRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuotationNotFound
		}
		return fmt.Errorf("failed to delete quotation: %w", err)
	}

	s.logger.Info("quotation deleted", zap.String("quotation_id", id.String()), zap.String("number", quotation.Number))
	return nil
}

// Stats counts quotations per status. Every status is present, with zero when unused.
func (s *QuotationService) Stats(ctx context.Context) (*domain.QuotationStatsDTO, error) {
	counts, err := s.quotationRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count quotations: %w", err)
	}

	stats := &domain.QuotationStatsDTO{ByStatus: map[domain.QuotationStatus]int64{
		domain.QuotationStatusPending:   0,
		domain.QuotationStatusApproved:  0,
		domain.QuotationStatusRejected:  0,
		domain.QuotationStatusConverted: 0,
	}}
	for status, n := range counts {
		stats.ByStatus[status] = n
		stats.Total += n
	}
	return stats, nil
}

func clientInfo(req domain.QuotationClientRequest) quoteform.ClientInfo {
	return quoteform.ClientInfo{
		Name:    req.Name,
		Email:   req.Email,
		Company: req.Company,
		Phone:   req.Phone,
	}
}

// sessionError turns form errors into service errors; other errors pass through
// checkStorable rejects totals the money columns cannot hold
func checkStorable(t pricing.Totals) error {
	if t.Total.GreaterThanOrEqual(maxStoredAmount) {
		return invalidField("answers", "The quotation total exceeds the supported amount")
	}
	return nil
}

func sessionError(err error) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, verr)
	}
	var aerr *domain.AnswerError
	if errors.As(err, &aerr) {
		return invalidField("answers."+aerr.QuestionID, aerr.Err.Error())
	}
	return err
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
