package mapper

import (
	"encoding/json"
	"time"

	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/i18n"
	"github.com/nexo-studio/agency-api/internal/pricing"
	"github.com/shopspring/decimal"
)

const timestampLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

// ToServiceDTO converts Service to ServiceDTO with fields localized for loc
func ToServiceDTO(svc *domain.Service, loc domain.Locale) domain.ServiceDTO {
	return domain.ServiceDTO{
		ID:            svc.ID,
		Slug:          svc.Slug,
		Title:         domain.Localize(loc, svc.TitleES, svc.TitleEN),
		TitleES:       svc.TitleES,
		TitleEN:       svc.TitleEN,
		Description:   domain.Localize(loc, svc.DescriptionES, svc.DescriptionEN),
		DescriptionES: svc.DescriptionES,
		DescriptionEN: svc.DescriptionEN,
		IsActive:      svc.IsActive,
		CreatedAt:     formatTime(svc.CreatedAt),
		UpdatedAt:     formatTime(svc.UpdatedAt),
	}
}

// ToQuestionDTO converts Question to QuestionDTO with fields localized for loc
func ToQuestionDTO(q *domain.Question, loc domain.Locale) domain.QuestionDTO {
	dto := domain.QuestionDTO{
		ID:              q.ID,
		ServiceID:       q.ServiceID,
		Type:            q.Type,
		Prompt:          domain.Localize(loc, q.PromptES, q.PromptEN),
		PromptES:        q.PromptES,
		PromptEN:        q.PromptEN,
		IsRequired:      q.IsRequired,
		OrderIndex:      q.OrderIndex,
		BasePrice:       q.BasePrice.InexactFloat64(),
		PriceMultiplier: q.PriceMultiplier.InexactFloat64(),
	}

	if len(q.Options) > 0 {
		dto.Options = make([]domain.QuestionOptionDTO, len(q.Options))
		for i, opt := range q.Options {
			dto.Options[i] = domain.QuestionOptionDTO{
				Label:   domain.Localize(loc, opt.LabelES, opt.LabelEN),
				LabelES: opt.LabelES,
				LabelEN: opt.LabelEN,
				Price:   opt.Price.InexactFloat64(),
			}
		}
	}

	if a, ok := domain.DefaultAnswer(q.Type); ok {
		dto.DefaultAnswer = a
	}

	if q.Type == domain.QuestionTypeRange {
		min, max := domain.RangeMin, domain.RangeMax
		dto.RangeMin = &min
		dto.RangeMax = &max
	}

	return dto
}

// ToQuestionDTOs converts a catalog, preserving its order
func ToQuestionDTOs(questions []domain.Question, loc domain.Locale) []domain.QuestionDTO {
	dtos := make([]domain.QuestionDTO, len(questions))
	for i := range questions {
		dtos[i] = ToQuestionDTO(&questions[i], loc)
	}
	return dtos
}

// ToTechnologyDTO converts Technology to TechnologyDTO
func ToTechnologyDTO(tech *domain.Technology) domain.TechnologyDTO {
	return domain.TechnologyDTO{
		ID:       tech.ID,
		Name:     tech.Name,
		Slug:     tech.Slug,
		Category: tech.Category,
	}
}

// ToTotalsDTO rounds totals and formats them for loc
func ToTotalsDTO(t pricing.Totals, loc domain.Locale) domain.TotalsDTO {
	return totalsDTO(t.Round(), loc)
}

func totalsDTO(t pricing.Totals, loc domain.Locale) domain.TotalsDTO {
	return domain.TotalsDTO{
		Subtotal:          t.Subtotal.InexactFloat64(),
		Tax:               t.Tax.InexactFloat64(),
		Total:             t.Total.InexactFloat64(),
		TaxRate:           pricing.TaxRate.InexactFloat64(),
		Currency:          i18n.DefaultCurrency,
		FormattedSubtotal: i18n.FormatMoney(loc, t.Subtotal, i18n.DefaultCurrency),
		FormattedTax:      i18n.FormatMoney(loc, t.Tax, i18n.DefaultCurrency),
		FormattedTotal:    i18n.FormatMoney(loc, t.Total, i18n.DefaultCurrency),
	}
}

// ToQuotationLines lists the contribution of every answered question in catalog order
func ToQuotationLines(questions []domain.Question, answers domain.AnswerSet, loc domain.Locale) []domain.QuotationLineDTO {
	lines := make([]domain.QuotationLineDTO, 0, len(answers))
	for i := range questions {
		q := &questions[i]
		a, ok := answers[q.ID]
		if !ok {
			continue
		}
		lines = append(lines, domain.QuotationLineDTO{
			QuestionID: q.ID,
			Prompt:     domain.Localize(loc, q.PromptES, q.PromptEN),
			Answer:     a,
			Amount:     pricing.Contribution(q, a).Round(2).InexactFloat64(),
		})
	}
	return lines
}

// ToQuotationDTO converts Quotation to QuotationDTO
func ToQuotationDTO(q *domain.Quotation, technologies []domain.Technology, loc domain.Locale) domain.QuotationDTO {
	dto := domain.QuotationDTO{
		ID:           q.ID,
		Number:       q.Number,
		OwningUserID: q.OwningUserID,
		ServiceID:    q.ServiceID,
		Client: domain.QuotationClientDTO{
			Name:    q.ClientName,
			Email:   q.ClientEmail,
			Company: q.ClientCompany,
			Phone:   q.ClientPhone,
		},
		Answers: json.RawMessage(q.Answers),
		Totals: totalsDTO(pricing.Totals{
			Subtotal: q.Subtotal,
			Tax:      q.Tax,
			Total:    q.Total,
		}, loc),
		Status:     q.Status,
		Source:     q.Source,
		ValidUntil: formatTimePtr(q.ValidUntil),
		ContactID:  q.ContactID,
		DealID:     q.DealID,
		Notes:      q.Notes,
		CreatedAt:  formatTime(q.CreatedAt),
		UpdatedAt:  formatTime(q.UpdatedAt),
	}

	if len(dto.Answers) == 0 {
		dto.Answers = json.RawMessage("{}")
	}

	if q.Service != nil {
		dto.ServiceTitle = domain.Localize(loc, q.Service.TitleES, q.Service.TitleEN)
	}

	if len(technologies) > 0 {
		dto.Technologies = make([]domain.TechnologyDTO, len(technologies))
		for i := range technologies {
			dto.Technologies[i] = ToTechnologyDTO(&technologies[i])
		}
	}

	return dto
}

// ToContactDTO converts Contact to ContactDTO
func ToContactDTO(contact *domain.Contact) domain.ContactDTO {
	return domain.ContactDTO{
		ID:        contact.ID,
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		FullName:  contact.FullName(),
		Email:     contact.Email,
		Phone:     contact.Phone,
		Company:   contact.Company,
		Source:    contact.Source,
		Notes:     contact.Notes,
		CreatedAt: formatTime(contact.CreatedAt),
		UpdatedAt: formatTime(contact.UpdatedAt),
	}
}

// ToDealDTO converts Deal to DealDTO
func ToDealDTO(deal *domain.Deal, loc domain.Locale) domain.DealDTO {
	weighted := deal.Value.Mul(decimal.NewFromInt(int64(deal.Probability))).Div(decimal.NewFromInt(100))

	dto := domain.DealDTO{
		ID:                deal.ID,
		Title:             deal.Title,
		Description:       deal.Description,
		ContactID:         deal.ContactID,
		QuotationID:       deal.QuotationID,
		Stage:             deal.Stage,
		Position:          deal.Position,
		Probability:       deal.Probability,
		Value:             deal.Value.InexactFloat64(),
		WeightedValue:     weighted.Round(2).InexactFloat64(),
		FormattedValue:    i18n.FormatMoney(loc, deal.Value, deal.Currency),
		Currency:          deal.Currency,
		ExpectedCloseDate: formatDatePtr(deal.ExpectedCloseDate),
		ActualCloseDate:   formatDatePtr(deal.ActualCloseDate),
		OwnerID:           deal.OwnerID,
		OwnerName:         deal.OwnerName,
		Source:            deal.Source,
		Notes:             deal.Notes,
		LostReason:        deal.LostReason,
		CreatedAt:         formatTime(deal.CreatedAt),
		UpdatedAt:         formatTime(deal.UpdatedAt),
	}

	if deal.Contact != nil {
		dto.ContactName = deal.Contact.FullName()
	}

	return dto
}

// ToDealStageHistoryDTO converts DealStageHistory to DealStageHistoryDTO
func ToDealStageHistoryDTO(h *domain.DealStageHistory) domain.DealStageHistoryDTO {
	return domain.DealStageHistoryDTO{
		ID:            h.ID,
		DealID:        h.DealID,
		FromStage:     h.FromStage,
		ToStage:       h.ToStage,
		ChangedByID:   h.ChangedByID,
		ChangedByName: h.ChangedByName,
		Notes:         h.Notes,
		ChangedAt:     formatTime(h.ChangedAt),
	}
}

// ToActivityDTO converts Activity to ActivityDTO
func ToActivityDTO(a *domain.Activity) domain.ActivityDTO {
	return domain.ActivityDTO{
		ID:          a.ID,
		TargetType:  a.TargetType,
		TargetID:    a.TargetID,
		Title:       a.Title,
		Body:        a.Body,
		OccurredAt:  formatTime(a.OccurredAt),
		CreatorID:   a.CreatorID,
		CreatorName: a.CreatorName,
	}
}

// ToPostDTO converts Post to PostDTO. withBody controls whether full bodies are included.
func ToPostDTO(p *domain.Post, loc domain.Locale, withBody bool) domain.PostDTO {
	dto := domain.PostDTO{
		ID:          p.ID,
		Kind:        p.Kind,
		Slug:        p.Slug,
		Title:       domain.Localize(loc, p.TitleES, p.TitleEN),
		TitleES:     p.TitleES,
		TitleEN:     p.TitleEN,
		Excerpt:     domain.Localize(loc, p.ExcerptES, p.ExcerptEN),
		ExcerptES:   p.ExcerptES,
		ExcerptEN:   p.ExcerptEN,
		Tags:        []string(p.Tags),
		CoverFileID: p.CoverFileID,
		Published:   p.Published,
		PublishedAt: formatTimePtr(p.PublishedAt),
		AuthorID:    p.AuthorID,
		AuthorName:  p.AuthorName,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}

	if dto.Tags == nil {
		dto.Tags = []string{}
	}

	if withBody {
		dto.Body = domain.Localize(loc, p.BodyES, p.BodyEN)
		dto.BodyES = p.BodyES
		dto.BodyEN = p.BodyEN
	}

	if p.CoverFileID != nil {
		dto.CoverURL = "/api/v1/public/posts/" + p.Slug + "/cover"
	}

	return dto
}

// ToFileDTO converts File to FileDTO
func ToFileDTO(f *domain.File) domain.FileDTO {
	return domain.FileDTO{
		ID:          f.ID,
		Filename:    f.Filename,
		ContentType: f.ContentType,
		Size:        f.Size,
		PostID:      f.PostID,
		CreatedAt:   formatTime(f.CreatedAt),
	}
}
