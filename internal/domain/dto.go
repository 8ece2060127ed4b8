package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Catalog DTOs

type ServiceDTO struct {
	ID            uuid.UUID `json:"id"`
	Slug          string    `json:"slug"`
	Title         string    `json:"title"`
	TitleES       string    `json:"titleEs"`
	TitleEN       string    `json:"titleEn"`
	Description   string    `json:"description,omitempty"`
	DescriptionES string    `json:"descriptionEs,omitempty"`
	DescriptionEN string    `json:"descriptionEn,omitempty"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     string    `json:"createdAt"`
	UpdatedAt     string    `json:"updatedAt"`
}

type QuestionOptionDTO struct {
	Label   string  `json:"label"`
	LabelES string  `json:"labelEs"`
	LabelEN string  `json:"labelEn"`
	Price   float64 `json:"price"`
}

type QuestionDTO struct {
	ID              uuid.UUID           `json:"id"`
	ServiceID       uuid.UUID           `json:"serviceId"`
	Type            QuestionType        `json:"type"`
	Prompt          string              `json:"prompt"`
	PromptES        string              `json:"promptEs"`
	PromptEN        string              `json:"promptEn"`
	IsRequired      bool                `json:"isRequired"`
	OrderIndex      int                 `json:"orderIndex"`
	BasePrice       float64             `json:"basePrice"`
	PriceMultiplier float64             `json:"priceMultiplier"`
	Options         []QuestionOptionDTO `json:"options,omitempty"`
	// DefaultAnswer is the seeded answer for types that have one
	DefaultAnswer interface{} `json:"defaultAnswer,omitempty"`
	RangeMin      *int        `json:"rangeMin,omitempty"`
	RangeMax      *int        `json:"rangeMax,omitempty"`
}

// ServiceCatalogDTO is a service together with its ordered questions
type ServiceCatalogDTO struct {
	Service   ServiceDTO    `json:"service"`
	Questions []QuestionDTO `json:"questions"`
}

type TechnologyDTO struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Slug     string    `json:"slug"`
	Category string    `json:"category,omitempty"`
}

// Quotation DTOs

// TotalsDTO carries the rounded totals of a quotation
type TotalsDTO struct {
	Subtotal          float64 `json:"subtotal"`
	Tax               float64 `json:"tax"`
	Total             float64 `json:"total"`
	TaxRate           float64 `json:"taxRate"`
	Currency          string  `json:"currency"`
	FormattedSubtotal string  `json:"formattedSubtotal"`
	FormattedTax      string  `json:"formattedTax"`
	FormattedTotal    string  `json:"formattedTotal"`
}

// QuotationLineDTO is the contribution of one answered question
type QuotationLineDTO struct {
	QuestionID uuid.UUID   `json:"questionId"`
	Prompt     string      `json:"prompt"`
	Answer     interface{} `json:"answer"`
	Amount     float64     `json:"amount"`
}

type QuotationClientDTO struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Company *string `json:"company,omitempty"`
	Phone   *string `json:"phone,omitempty"`
}

// QuotationPreviewDTO is returned by the first step of the public flow
type QuotationPreviewDTO struct {
	Token     string             `json:"token"`
	ExpiresAt string             `json:"expiresAt"`
	Service   ServiceDTO         `json:"service"`
	Client    QuotationClientDTO `json:"client"`
	Lines     []QuotationLineDTO `json:"lines"`
	Totals    TotalsDTO          `json:"totals"`
}

type QuotationDTO struct {
	ID            uuid.UUID          `json:"id"`
	Number        string             `json:"number"`
	OwningUserID  *string            `json:"owningUserId,omitempty"`
	ServiceID     uuid.UUID          `json:"serviceId"`
	ServiceTitle  string             `json:"serviceTitle,omitempty"`
	Client        QuotationClientDTO `json:"client"`
	Answers       json.RawMessage    `json:"answers"`
	Totals        TotalsDTO          `json:"totals"`
	Status        QuotationStatus    `json:"status"`
	Source        QuotationSource    `json:"source"`
	ValidUntil    *string            `json:"validUntil,omitempty"`
	ContactID     *uuid.UUID         `json:"contactId,omitempty"`
	DealID        *uuid.UUID         `json:"dealId,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	Technologies  []TechnologyDTO    `json:"technologies,omitempty"`
	CreatedAt     string             `json:"createdAt"`
	UpdatedAt     string             `json:"updatedAt"`
}

// QuotationSubmitResultDTO is the result of a submission; warnings list non-fatal failures
type QuotationSubmitResultDTO struct {
	Quotation QuotationDTO `json:"quotation"`
	Warnings  []string     `json:"warnings,omitempty"`
}

// QuotationConversionDTO is returned when a quotation is converted into a deal
type QuotationConversionDTO struct {
	Quotation QuotationDTO `json:"quotation"`
	Deal      DealDTO      `json:"deal"`
}

// QuotationStatsDTO counts quotations per status
type QuotationStatsDTO struct {
	Total    int64                     `json:"total"`
	ByStatus map[QuotationStatus]int64 `json:"byStatus"`
}

// CRM DTOs

type ContactDTO struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName,omitempty"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	Source    string    `json:"source,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`
}

type DealDTO struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	ContactID         *uuid.UUID `json:"contactId,omitempty"`
	ContactName       string     `json:"contactName,omitempty"`
	QuotationID       *uuid.UUID `json:"quotationId,omitempty"`
	Stage             DealStage  `json:"stage"`
	Position          int        `json:"position"`
	Probability       int        `json:"probability"`
	Value             float64    `json:"value"`
	WeightedValue     float64    `json:"weightedValue"`
	FormattedValue    string     `json:"formattedValue"`
	Currency          string     `json:"currency"`
	ExpectedCloseDate *string    `json:"expectedCloseDate,omitempty"`
	ActualCloseDate   *string    `json:"actualCloseDate,omitempty"`
	OwnerID           string     `json:"ownerId,omitempty"`
	OwnerName         string     `json:"ownerName,omitempty"`
	Source            string     `json:"source,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	LostReason        string     `json:"lostReason,omitempty"`
	CreatedAt         string     `json:"createdAt"`
	UpdatedAt         string     `json:"updatedAt"`
}

type DealStageHistoryDTO struct {
	ID            uuid.UUID  `json:"id"`
	DealID        uuid.UUID  `json:"dealId"`
	FromStage     *DealStage `json:"fromStage,omitempty"`
	ToStage       DealStage  `json:"toStage"`
	ChangedByID   string     `json:"changedById"`
	ChangedByName string     `json:"changedByName,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	ChangedAt     string     `json:"changedAt"`
}

// BoardColumnDTO is one kanban column
type BoardColumnDTO struct {
	Stage      DealStage `json:"stage"`
	Count      int       `json:"count"`
	TotalValue float64   `json:"totalValue"`
	Deals      []DealDTO `json:"deals"`
}

type BoardDTO struct {
	Columns []BoardColumnDTO `json:"columns"`
}

type ActivityDTO struct {
	ID          uuid.UUID          `json:"id"`
	TargetType  ActivityTargetType `json:"targetType"`
	TargetID    uuid.UUID          `json:"targetId"`
	Title       string             `json:"title"`
	Body        string             `json:"body,omitempty"`
	OccurredAt  string             `json:"occurredAt"`
	CreatorID   string             `json:"creatorId,omitempty"`
	CreatorName string             `json:"creatorName,omitempty"`
}

// CMS DTOs

type PostDTO struct {
	ID          uuid.UUID  `json:"id"`
	Kind        PostKind   `json:"kind"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	TitleES     string     `json:"titleEs"`
	TitleEN     string     `json:"titleEn,omitempty"`
	Excerpt     string     `json:"excerpt,omitempty"`
	ExcerptES   string     `json:"excerptEs,omitempty"`
	ExcerptEN   string     `json:"excerptEn,omitempty"`
	Body        string     `json:"body,omitempty"`
	BodyES      string     `json:"bodyEs,omitempty"`
	BodyEN      string     `json:"bodyEn,omitempty"`
	Tags        []string   `json:"tags"`
	CoverFileID *uuid.UUID `json:"coverFileId,omitempty"`
	CoverURL    string     `json:"coverUrl,omitempty"`
	Published   bool       `json:"published"`
	PublishedAt *string    `json:"publishedAt,omitempty"`
	AuthorID    string     `json:"authorId,omitempty"`
	AuthorName  string     `json:"authorName,omitempty"`
	CreatedAt   string     `json:"createdAt"`
	UpdatedAt   string     `json:"updatedAt"`
}

type FileDTO struct {
	ID          uuid.UUID  `json:"id"`
	Filename    string     `json:"filename"`
	ContentType string     `json:"contentType"`
	Size        int64      `json:"size"`
	PostID      *uuid.UUID `json:"postId,omitempty"`
	CreatedAt   string     `json:"createdAt"`
}

// AuthUserDTO describes the authenticated caller
type AuthUserDTO struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles"`
}

// Pagination response wrapper
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// NewPaginatedResponse computes the page count for a result page
func NewPaginatedResponse(data interface{}, total int64, page, pageSize int) *PaginatedResponse {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// HealthDTO is the body of the health endpoints
type HealthDTO struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Version string            `json:"version,omitempty"`
	Time    string            `json:"time"`
}

// Request DTOs

type CreateServiceRequest struct {
	Slug          string `json:"slug" validate:"required,max=120,slug"`
	TitleES       string `json:"titleEs" validate:"required,max=200"`
	TitleEN       string `json:"titleEn" validate:"required,max=200"`
	DescriptionES string `json:"descriptionEs,omitempty"`
	DescriptionEN string `json:"descriptionEn,omitempty"`
	IsActive      *bool  `json:"isActive,omitempty"`
}

type UpdateServiceRequest struct {
	Slug          string `json:"slug" validate:"required,max=120,slug"`
	TitleES       string `json:"titleEs" validate:"required,max=200"`
	TitleEN       string `json:"titleEn" validate:"required,max=200"`
	DescriptionES string `json:"descriptionEs,omitempty"`
	DescriptionEN string `json:"descriptionEn,omitempty"`
	IsActive      bool   `json:"isActive"`
}

type QuestionOptionRequest struct {
	LabelES string          `json:"labelEs" validate:"required,max=200"`
	LabelEN string          `json:"labelEn" validate:"max=200"`
	Price   decimal.Decimal `json:"price"`
}

// QuestionRequest is used both to create and to replace a question
type QuestionRequest struct {
	Type            QuestionType            `json:"type" validate:"required"`
	PromptES        string                  `json:"promptEs" validate:"required,max=500"`
	PromptEN        string                  `json:"promptEn" validate:"max=500"`
	IsRequired      bool                    `json:"isRequired"`
	OrderIndex      int                     `json:"orderIndex" validate:"gte=0"`
	BasePrice       decimal.Decimal         `json:"basePrice"`
	PriceMultiplier decimal.Decimal         `json:"priceMultiplier"`
	Options         []QuestionOptionRequest `json:"options,omitempty" validate:"dive"`
}

type ReorderQuestionsRequest struct {
	QuestionIDs []uuid.UUID `json:"questionIds" validate:"required,min=1"`
}

type CreateTechnologyRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Slug     string `json:"slug" validate:"required,max=120,slug"`
	Category string `json:"category,omitempty" validate:"max=50"`
}

type QuotationClientRequest struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Company *string `json:"company,omitempty"`
	Phone   *string `json:"phone,omitempty"`
}

// QuotationPreviewRequest is the body of the public preview step.
// Answers are keyed by question id; JSON null leaves a question unanswered.
type QuotationPreviewRequest struct {
	ServiceID uuid.UUID                  `json:"serviceId"`
	Answers   map[string]json.RawMessage `json:"answers"`
	Client    QuotationClientRequest     `json:"client"`
}

// CreateQuotationRequest is the body of the one-step internal flow
type CreateQuotationRequest struct {
	ServiceID     uuid.UUID                  `json:"serviceId"`
	Answers       map[string]json.RawMessage `json:"answers"`
	Client        QuotationClientRequest     `json:"client"`
	ContactID     *uuid.UUID                 `json:"contactId,omitempty"`
	DealID        *uuid.UUID                 `json:"dealId,omitempty"`
	TechnologyIDs []uuid.UUID                `json:"technologyIds,omitempty"`
	Notes         string                     `json:"notes,omitempty" validate:"max=5000"`
}

type UpdateQuotationStatusRequest struct {
	Status QuotationStatus `json:"status" validate:"required"`
	Notes  string          `json:"notes,omitempty" validate:"max=1000"`
}

type ConvertQuotationRequest struct {
	Title             string     `json:"title,omitempty" validate:"max=200"`
	ExpectedCloseDate *time.Time `json:"expectedCloseDate,omitempty"`
}

type CreateContactRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName,omitempty" validate:"max=100"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string `json:"phone,omitempty" validate:"max=50"`
	Company   string `json:"company,omitempty" validate:"max=200"`
	Source    string `json:"source,omitempty" validate:"max=50"`
	Notes     string `json:"notes,omitempty"`
}

type UpdateContactRequest = CreateContactRequest

type CreateDealRequest struct {
	Title             string          `json:"title" validate:"required,max=200"`
	Description       string          `json:"description,omitempty"`
	ContactID         *uuid.UUID      `json:"contactId,omitempty"`
	Stage             DealStage       `json:"stage,omitempty"`
	Value             decimal.Decimal `json:"value"`
	Currency          string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	ExpectedCloseDate *time.Time      `json:"expectedCloseDate,omitempty"`
	OwnerID           string          `json:"ownerId,omitempty" validate:"max=100"`
	Source            string          `json:"source,omitempty" validate:"max=100"`
	Notes             string          `json:"notes,omitempty"`
}

type UpdateDealRequest struct {
	Title             string          `json:"title" validate:"required,max=200"`
	Description       string          `json:"description,omitempty"`
	ContactID         *uuid.UUID      `json:"contactId,omitempty"`
	Value             decimal.Decimal `json:"value"`
	Currency          string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	ExpectedCloseDate *time.Time      `json:"expectedCloseDate,omitempty"`
	OwnerID           string          `json:"ownerId,omitempty" validate:"max=100"`
	Source            string          `json:"source,omitempty" validate:"max=100"`
	Notes             string          `json:"notes,omitempty"`
}

// MoveDealStageRequest moves a kanban card; Position defaults to the end of the column
type MoveDealStageRequest struct {
	Stage      DealStage `json:"stage" validate:"required"`
	Position   *int      `json:"position,omitempty" validate:"omitempty,gte=0"`
	Notes      string    `json:"notes,omitempty" validate:"max=1000"`
	LostReason string    `json:"lostReason,omitempty" validate:"max=500"`
}

type CreateActivityRequest struct {
	TargetType ActivityTargetType `json:"targetType" validate:"required"`
	TargetID   uuid.UUID          `json:"targetId" validate:"required"`
	Title      string             `json:"title" validate:"required,max=200"`
	Body       string             `json:"body,omitempty" validate:"max=2000"`
}

type PostRequest struct {
	Kind      PostKind `json:"kind" validate:"required"`
	Slug      string   `json:"slug" validate:"required,max=200,slug"`
	TitleES   string   `json:"titleEs" validate:"required,max=300"`
	TitleEN   string   `json:"titleEn,omitempty" validate:"max=300"`
	ExcerptES string   `json:"excerptEs,omitempty" validate:"max=1000"`
	ExcerptEN string   `json:"excerptEn,omitempty" validate:"max=1000"`
	BodyES    string   `json:"bodyEs,omitempty"`
	BodyEN    string   `json:"bodyEn,omitempty"`
	Tags      []string `json:"tags,omitempty" validate:"max=20,dive,max=50"`
	Published bool     `json:"published"`
}
