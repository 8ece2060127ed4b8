package testutil

import (
	"testing"
	"time"

	"github.com/nexo-studio/agency-api/internal/database"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database with every model migrated.
// The pool is pinned to one connection so all queries see the same memory database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// Logger returns a no-op zap logger for services under test
func Logger() *zap.Logger {
	return zap.NewNop()
}

// CreateTestService inserts an active service with the given slug
func CreateTestService(t *testing.T, db *gorm.DB, slug string) *domain.Service {
	t.Helper()
	svc := &domain.Service{
		Slug:     slug,
		TitleES:  "Servicio " + slug,
		TitleEN:  "Service " + slug,
		IsActive: true,
	}
	require.NoError(t, db.Create(svc).Error)
	return svc
}

// CreateTestQuestion inserts a question for a service
func CreateTestQuestion(t *testing.T, db *gorm.DB, q domain.Question) *domain.Question {
	t.Helper()
	if q.PromptES == "" {
		q.PromptES = "Pregunta"
	}
	if q.PromptEN == "" {
		q.PromptEN = "Question"
	}
	require.NoError(t, db.Create(&q).Error)
	return &q
}

// CreateYesNoQuestion inserts a yes/no question priced at basePrice
func CreateYesNoQuestion(t *testing.T, db *gorm.DB, svc *domain.Service, basePrice int64, order int) *domain.Question {
	t.Helper()
	return CreateTestQuestion(t, db, domain.Question{
		ServiceID:  svc.ID,
		Type:       domain.QuestionTypeYesNo,
		BasePrice:  decimal.NewFromInt(basePrice),
		OrderIndex: order,
	})
}

// CreateTestContact inserts a contact with the given email
func CreateTestContact(t *testing.T, db *gorm.DB, firstName, email string) *domain.Contact {
	t.Helper()
	contact := &domain.Contact{
		FirstName: firstName,
		LastName:  "Prueba",
		Email:     email,
	}
	require.NoError(t, db.Create(contact).Error)
	return contact
}

// CreateTestQuotation inserts a pending public quotation created at createdAt
func CreateTestQuotation(t *testing.T, db *gorm.DB, svc *domain.Service, number string, createdAt time.Time) *domain.Quotation {
	t.Helper()
	q := &domain.Quotation{
		BaseModel:   domain.BaseModel{CreatedAt: createdAt, UpdatedAt: createdAt},
		Number:      number,
		ServiceID:   svc.ID,
		ClientName:  "Cliente " + number,
		ClientEmail: "cliente@example.com",
		Answers:     []byte("{}"),
		Total:       decimal.NewFromInt(580),
		Status:      domain.QuotationStatusPending,
		Source:      domain.QuotationSourcePublic,
	}
	require.NoError(t, db.Create(q).Error)
	return q
}
