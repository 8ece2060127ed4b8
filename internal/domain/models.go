package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns a random UUID when the caller did not set one.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Locale identifies one of the two supported content languages
type Locale string

const (
	LocaleES Locale = "es"
	LocaleEN Locale = "en"
)

// Localize picks the text for the locale, falling back to Spanish when the English text is empty.
func Localize(locale Locale, es, en string) string {
	if locale == LocaleEN && strings.TrimSpace(en) != "" {
		return en
	}
	return es
}

// Service is a sellable offering that owns a question catalog
type Service struct {
	BaseModel
	Slug          string     `gorm:"type:varchar(120);not null;uniqueIndex"`
	TitleES       string     `gorm:"type:varchar(200);not null;column:title_es"`
	TitleEN       string     `gorm:"type:varchar(200);not null;column:title_en"`
	DescriptionES string     `gorm:"type:text;column:description_es"`
	DescriptionEN string     `gorm:"type:text;column:description_en"`
	IsActive      bool       `gorm:"not null;column:is_active;index"`
	Questions     []Question `gorm:"foreignKey:ServiceID;constraint:OnDelete:CASCADE"`
}

// QuestionType determines the answer shape and the pricing rule of a question
type QuestionType string

const (
	QuestionTypeMultipleChoice    QuestionType = "multiple_choice"
	QuestionTypeMultipleSelection QuestionType = "multiple_selection"
	QuestionTypeYesNo             QuestionType = "yes_no"
	QuestionTypeNumber            QuestionType = "number"
	QuestionTypeRange             QuestionType = "range"
)

// IsValid checks if the QuestionType is a valid enum value
func (t QuestionType) IsValid() bool {
	switch t {
	case QuestionTypeMultipleChoice, QuestionTypeMultipleSelection, QuestionTypeYesNo,
		QuestionTypeNumber, QuestionTypeRange:
		return true
	}
	return false
}

// HasOptions reports whether questions of this type carry an option list
func (t QuestionType) HasOptions() bool {
	return t == QuestionTypeMultipleChoice || t == QuestionTypeMultipleSelection
}

// Range answers are bounded to this closed interval.
const (
	RangeMin = 1
	RangeMax = 20
)

// NumberMax caps number answers so priced totals fit the money columns
const NumberMax = 100000

// QuestionOption is one selectable answer of a choice question
type QuestionOption struct {
	LabelES string          `json:"labelEs"`
	LabelEN string          `json:"labelEn"`
	Price   decimal.Decimal `json:"price"`
}

// Matches reports whether label equals the option label in either locale.
func (o QuestionOption) Matches(label string) bool {
	label = strings.TrimSpace(label)
	if label == "" {
		return false
	}
	return strings.EqualFold(label, strings.TrimSpace(o.LabelES)) ||
		strings.EqualFold(label, strings.TrimSpace(o.LabelEN))
}

// Question is a priced question in a service catalog
type Question struct {
	BaseModel
	ServiceID       uuid.UUID                           `gorm:"type:uuid;not null;index;column:service_id"`
	Type            QuestionType                        `gorm:"type:varchar(30);not null"`
	PromptES        string                              `gorm:"type:varchar(500);not null;column:prompt_es"`
	PromptEN        string                              `gorm:"type:varchar(500);not null;column:prompt_en"`
	IsRequired      bool                                `gorm:"not null;column:is_required"`
	OrderIndex      int                                 `gorm:"not null;default:0;column:order_index;index"`
	Seq             int64                               `gorm:"not null;default:0"`
	BasePrice       decimal.Decimal                     `gorm:"type:decimal(15,2);not null;default:0;column:base_price"`
	PriceMultiplier decimal.Decimal                     `gorm:"type:decimal(15,2);not null;default:0;column:price_multiplier"`
	Options         datatypes.JSONSlice[QuestionOption] `gorm:"column:options"`
}

// QuotationStatus is the CRM status of a persisted quotation
type QuotationStatus string

const (
	QuotationStatusPending   QuotationStatus = "pending"
	QuotationStatusApproved  QuotationStatus = "approved"
	QuotationStatusRejected  QuotationStatus = "rejected"
	QuotationStatusConverted QuotationStatus = "converted"
)

// IsValid checks if the QuotationStatus is a valid enum value
func (s QuotationStatus) IsValid() bool {
	switch s {
	case QuotationStatusPending, QuotationStatusApproved, QuotationStatusRejected, QuotationStatusConverted:
		return true
	}
	return false
}

// QuotationSource records which submission flow created the quotation
type QuotationSource string

const (
	QuotationSourcePublic   QuotationSource = "public"
	QuotationSourceInternal QuotationSource = "internal"
)

func (s QuotationSource) IsValid() bool {
	return s == QuotationSourcePublic || s == QuotationSourceInternal
}

// Quotation is the persisted result of a quotation submission
type Quotation struct {
	BaseModel
	Number        string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	OwningUserID  *string         `gorm:"type:varchar(100);index;column:owning_user_id"`
	ServiceID     uuid.UUID       `gorm:"type:uuid;not null;index;column:service_id"`
	Service       *Service        `gorm:"foreignKey:ServiceID"`
	ClientName    string          `gorm:"type:varchar(200);not null;column:client_name"`
	ClientEmail   string          `gorm:"type:varchar(255);not null;index;column:client_email"`
	ClientCompany *string         `gorm:"type:varchar(200);column:client_company"`
	ClientPhone   *string         `gorm:"type:varchar(50);column:client_phone"`
	Answers       datatypes.JSON  `gorm:"not null"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Tax           decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Total         decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Status        QuotationStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	Source        QuotationSource `gorm:"type:varchar(20);not null;default:'public'"`
	ValidUntil    *time.Time      `gorm:"column:valid_until"`
	ContactID     *uuid.UUID      `gorm:"type:uuid;index;column:contact_id"`
	Contact       *Contact        `gorm:"foreignKey:ContactID"`
	DealID        *uuid.UUID      `gorm:"type:uuid;index;column:deal_id"`
	Notes         string          `gorm:"type:text"`
	RemindedAt    *time.Time      `gorm:"column:reminded_at"`
}

// Technology is an item of the technology catalog offered on internal quotations
type Technology struct {
	BaseModel
	Name     string `gorm:"type:varchar(100);not null"`
	Slug     string `gorm:"type:varchar(120);not null;uniqueIndex"`
	Category string `gorm:"type:varchar(50);index"`
}

// QuotationTechnology links a quotation to a selected technology
type QuotationTechnology struct {
	QuotationID  uuid.UUID `gorm:"type:uuid;primaryKey;column:quotation_id"`
	TechnologyID uuid.UUID `gorm:"type:uuid;primaryKey;column:technology_id"`
	CreatedAt    time.Time `gorm:"not null"`
}

// Contact represents an individual person in the CRM
type Contact struct {
	BaseModel
	FirstName string `gorm:"type:varchar(100);not null;column:first_name"`
	LastName  string `gorm:"type:varchar(100);column:last_name"`
	Email     string `gorm:"type:varchar(255);index"`
	Phone     string `gorm:"type:varchar(50)"`
	Company   string `gorm:"type:varchar(200)"`
	Source    string `gorm:"type:varchar(50)"`
	Notes     string `gorm:"type:text"`
}

// FullName returns the contact's full name
func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// DealStage represents the kanban column of a deal in the sales pipeline
type DealStage string

const (
	DealStageLead        DealStage = "lead"
	DealStageContacted   DealStage = "contacted"
	DealStageProposal    DealStage = "proposal"
	DealStageNegotiation DealStage = "negotiation"
	DealStageWon         DealStage = "won"
	DealStageLost        DealStage = "lost"
)

// DealStages lists the pipeline columns in board order
var DealStages = []DealStage{
	DealStageLead, DealStageContacted, DealStageProposal, DealStageNegotiation, DealStageWon, DealStageLost,
}

// IsValid checks if the DealStage is a valid enum value
func (s DealStage) IsValid() bool {
	for _, st := range DealStages {
		if st == s {
			return true
		}
	}
	return false
}

// IsClosed reports whether the stage ends the deal
func (s DealStage) IsClosed() bool {
	return s == DealStageWon || s == DealStageLost
}

// Deal represents a sales opportunity on the kanban board
type Deal struct {
	BaseModel
	Title             string          `gorm:"type:varchar(200);not null"`
	Description       string          `gorm:"type:text"`
	ContactID         *uuid.UUID      `gorm:"type:uuid;index;column:contact_id"`
	Contact           *Contact        `gorm:"foreignKey:ContactID"`
	QuotationID       *uuid.UUID      `gorm:"type:uuid;index;column:quotation_id"`
	Stage             DealStage       `gorm:"type:varchar(50);not null;default:'lead';index"`
	Position          int             `gorm:"not null;default:0"`
	Probability       int             `gorm:"type:int;not null;default:0"`
	Value             decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Currency          string          `gorm:"type:varchar(3);not null;default:'MXN'"`
	ExpectedCloseDate *time.Time      `gorm:"type:date;column:expected_close_date"`
	ActualCloseDate   *time.Time      `gorm:"type:date;column:actual_close_date"`
	OwnerID           string          `gorm:"type:varchar(100);column:owner_id"`
	OwnerName         string          `gorm:"type:varchar(200);column:owner_name"`
	Source            string          `gorm:"type:varchar(100)"`
	Notes             string          `gorm:"type:text"`
	LostReason        string          `gorm:"type:varchar(500);column:lost_reason"`
}

// DealStageHistory tracks kanban moves for audit purposes
type DealStageHistory struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	DealID        uuid.UUID  `gorm:"type:uuid;not null;index;column:deal_id"`
	FromStage     *DealStage `gorm:"type:varchar(50);column:from_stage"`
	ToStage       DealStage  `gorm:"type:varchar(50);not null;column:to_stage"`
	ChangedByID   string     `gorm:"type:varchar(100);not null;column:changed_by_id"`
	ChangedByName string     `gorm:"type:varchar(200);column:changed_by_name"`
	Notes         string     `gorm:"type:text"`
	ChangedAt     time.Time  `gorm:"not null;column:changed_at"`
}

// TableName overrides the default table name to match the migration
func (DealStageHistory) TableName() string {
	return "deal_stage_history"
}

func (h *DealStageHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.ChangedAt.IsZero() {
		h.ChangedAt = time.Now()
	}
	return nil
}

// ActivityTargetType identifies the entity an activity belongs to
type ActivityTargetType string

const (
	ActivityTargetContact   ActivityTargetType = "contact"
	ActivityTargetDeal      ActivityTargetType = "deal"
	ActivityTargetQuotation ActivityTargetType = "quotation"
	ActivityTargetPost      ActivityTargetType = "post"
)

// IsValid checks if the ActivityTargetType is a valid enum value
func (t ActivityTargetType) IsValid() bool {
	switch t {
	case ActivityTargetContact, ActivityTargetDeal, ActivityTargetQuotation, ActivityTargetPost:
		return true
	}
	return false
}

// Activity is an entry in the CRM activity log
type Activity struct {
	BaseModel
	TargetType  ActivityTargetType `gorm:"type:varchar(50);not null;index;column:target_type"`
	TargetID    uuid.UUID          `gorm:"type:uuid;not null;index;column:target_id"`
	Title       string             `gorm:"type:varchar(200);not null"`
	Body        string             `gorm:"type:varchar(2000)"`
	OccurredAt  time.Time          `gorm:"not null;index;column:occurred_at"`
	CreatorID   string             `gorm:"type:varchar(100);column:creator_id"`
	CreatorName string             `gorm:"type:varchar(200);column:creator_name"`
}

// NumberSequence tracks the last issued number per scope and year
type NumberSequence struct {
	Scope        string    `gorm:"type:varchar(30);primaryKey"`
	Year         int       `gorm:"primaryKey"`
	LastSequence int       `gorm:"not null;default:0;column:last_sequence"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// PostKind separates blog articles from portfolio entries
type PostKind string

const (
	PostKindBlog      PostKind = "blog"
	PostKindPortfolio PostKind = "portfolio"
)

// IsValid checks if the PostKind is a valid enum value
func (k PostKind) IsValid() bool {
	return k == PostKindBlog || k == PostKindPortfolio
}

// Post is a bilingual CMS entry
type Post struct {
	BaseModel
	Kind        PostKind                    `gorm:"type:varchar(20);not null;index"`
	Slug        string                      `gorm:"type:varchar(200);not null;uniqueIndex"`
	TitleES     string                      `gorm:"type:varchar(300);not null;column:title_es"`
	TitleEN     string                      `gorm:"type:varchar(300);column:title_en"`
	ExcerptES   string                      `gorm:"type:varchar(1000);column:excerpt_es"`
	ExcerptEN   string                      `gorm:"type:varchar(1000);column:excerpt_en"`
	BodyES      string                      `gorm:"type:text;column:body_es"`
	BodyEN      string                      `gorm:"type:text;column:body_en"`
	Tags        datatypes.JSONSlice[string] `gorm:"column:tags"`
	CoverFileID *uuid.UUID                  `gorm:"type:uuid;column:cover_file_id"`
	Published   bool                        `gorm:"not null;index"`
	PublishedAt *time.Time                  `gorm:"column:published_at"`
	AuthorID    string                      `gorm:"type:varchar(100);column:author_id"`
	AuthorName  string                      `gorm:"type:varchar(200);column:author_name"`
}

// File is an uploaded blob tracked in the database
type File struct {
	BaseModel
	Filename    string     `gorm:"type:varchar(255);not null"`
	ContentType string     `gorm:"type:varchar(100);not null"`
	Size        int64      `gorm:"not null"`
	StoragePath string     `gorm:"type:varchar(500);not null;uniqueIndex"`
	PostID      *uuid.UUID `gorm:"type:uuid;index;column:post_id"`
}

// UserRoleType represents a role carried in the access token
type UserRoleType string

const (
	RoleAdmin      UserRoleType = "admin"
	RoleStaff      UserRoleType = "staff"
	RoleClient     UserRoleType = "client"
	RoleAPIService UserRoleType = "api_service"
)

// IsValid checks if the UserRoleType is a valid enum value
func (r UserRoleType) IsValid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleClient, RoleAPIService:
		return true
	}
	return false
}
