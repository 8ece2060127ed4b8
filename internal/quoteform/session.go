// Package quoteform holds the state of one quotation form: the selected service, its
// question catalog, the answers given so far and the submission step.
package quoteform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/pricing"
)

// State is the step of the form
type State string

const (
	StateEditing   State = "editing"
	StatePreviewed State = "previewed"
	StateSubmitted State = "submitted"
)

var (
	ErrInvalidTransition = errors.New("invalid form transition")
	ErrNoService         = errors.New("no service selected")
	ErrEmptyCatalog      = errors.New("service has no questions")
	ErrCatalogLoad       = errors.New("failed to load question catalog")
)

var validate = validator.New()

// CatalogLoader fetches the ordered question list of a service
type CatalogLoader interface {
	LoadCatalog(ctx context.Context, serviceID uuid.UUID) ([]domain.Question, error)
}

// Submitter persists a finalized form
type Submitter interface {
	Submit(ctx context.Context, sub Submission) (*domain.Quotation, error)
}

// SubmitterFunc adapts a function to Submitter
type SubmitterFunc func(ctx context.Context, sub Submission) (*domain.Quotation, error)

func (f SubmitterFunc) Submit(ctx context.Context, sub Submission) (*domain.Quotation, error) {
	return f(ctx, sub)
}

// ClientInfo identifies the prospective client
type ClientInfo struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Email   string  `json:"email" validate:"required,email,max=255"`
	Company *string `json:"company,omitempty" validate:"omitempty,max=200"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=50"`
}

// Normalize trims whitespace and turns blank optional fields into nil
func (c ClientInfo) Normalize() ClientInfo {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Company = trimOptional(c.Company)
	c.Phone = trimOptional(c.Phone)
	return c
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Submission is the finalized content handed to a Submitter
type Submission struct {
	ServiceID uuid.UUID
	Questions []domain.Question
	Answers   domain.AnswerSet
	Totals    pricing.Totals
	Client    ClientInfo
}

// Session is the state of a single quotation form
type Session struct {
	state     State
	serviceID uuid.UUID
	questions []domain.Question
	answers   domain.AnswerSet
	client    ClientInfo
	quotation *domain.Quotation
}

// NewSession returns an empty form in the editing state
func NewSession() *Session {
	return &Session{
		state:   StateEditing,
		answers: make(domain.AnswerSet),
	}
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) ServiceID() uuid.UUID {
	return s.serviceID
}

func (s *Session) Client() ClientInfo {
	return s.client
}

// Quotation returns the persisted quotation once the form is submitted
func (s *Session) Quotation() *domain.Quotation {
	return s.quotation
}

// Questions returns the loaded catalog in evaluation order
func (s *Session) Questions() []domain.Question {
	out := make([]domain.Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// Answers returns a copy of the current answers
func (s *Session) Answers() domain.AnswerSet {
	out := make(domain.AnswerSet, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// SelectService replaces the catalog with the one of serviceID. Previous answers are
// always discarded; the new catalog is seeded with default answers. When loading fails
// the question list stays empty and the error wraps ErrCatalogLoad.
func (s *Session) SelectService(ctx context.Context, loader CatalogLoader, serviceID uuid.UUID) error {
	if s.state != StateEditing {
		return fmt.Errorf("%w: cannot change service while %s", ErrInvalidTransition, s.state)
	}

	s.serviceID = serviceID
	s.questions = nil
	s.answers = make(domain.AnswerSet)

	questions, err := loader.LoadCatalog(ctx, serviceID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCatalogLoad, err)
	}

	s.questions = questions
	s.answers = DefaultAnswers(questions)
	return nil
}

// DefaultAnswers seeds yes_no with "no" and number/range with 1. Choice questions stay unanswered.
func DefaultAnswers(questions []domain.Question) domain.AnswerSet {
	set := make(domain.AnswerSet, len(questions))
	for _, q := range questions {
		if a, ok := domain.DefaultAnswer(q.Type); ok {
			set[q.ID] = a
		}
	}
	return set
}

// SetAnswer records an answer for a question of the loaded catalog
func (s *Session) SetAnswer(questionID uuid.UUID, a domain.Answer) error {
	if s.state != StateEditing {
		return fmt.Errorf("%w: answers are locked while %s", ErrInvalidTransition, s.state)
	}
	q := s.question(questionID)
	if q == nil {
		return &domain.AnswerError{QuestionID: questionID.String(), Err: domain.ErrUnknownQuestion}
	}
	if a.Type != q.Type {
		return &domain.AnswerError{QuestionID: questionID.String(), Err: domain.ErrAnswerTypeMismatch}
	}
	if err := a.Validate(); err != nil {
		return &domain.AnswerError{QuestionID: questionID.String(), Err: err}
	}
	s.answers[questionID] = a
	return nil
}

// ClearAnswer removes the answer of a question
func (s *Session) ClearAnswer(questionID uuid.UUID) error {
	if s.state != StateEditing {
		return fmt.Errorf("%w: answers are locked while %s", ErrInvalidTransition, s.state)
	}
	delete(s.answers, questionID)
	return nil
}

// ApplyAnswers decodes raw answers against the catalog and merges them over the current ones
func (s *Session) ApplyAnswers(raw map[string]json.RawMessage) error {
	if s.state != StateEditing {
		return fmt.Errorf("%w: answers are locked while %s", ErrInvalidTransition, s.state)
	}
	decoded, err := domain.DecodeAnswerSet(s.questions, raw)
	if err != nil {
		return err
	}
	for id, a := range decoded {
		s.answers[id] = a
	}
	return nil
}

// Totals evaluates the current answers. It is valid in every state.
func (s *Session) Totals() pricing.Totals {
	return pricing.Evaluate(s.questions, s.answers)
}

// Preview validates the form and moves it to the previewed state
func (s *Session) Preview(client ClientInfo) (pricing.Totals, error) {
	if s.state != StateEditing {
		return pricing.Totals{}, fmt.Errorf("%w: preview from %s", ErrInvalidTransition, s.state)
	}
	client = client.Normalize()
	if err := s.validate(client); err != nil {
		return pricing.Totals{}, err
	}
	s.client = client
	s.state = StatePreviewed
	return s.Totals().Round(), nil
}

// Edit returns a previewed form to editing
func (s *Session) Edit() error {
	if s.state != StatePreviewed {
		return fmt.Errorf("%w: edit from %s", ErrInvalidTransition, s.state)
	}
	s.state = StateEditing
	return nil
}

// Confirm persists a previewed form. On failure the form stays previewed with its answers intact.
func (s *Session) Confirm(ctx context.Context, submitter Submitter) (*domain.Quotation, error) {
	if s.state != StatePreviewed {
		return nil, fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, s.state)
	}
	quotation, err := submitter.Submit(ctx, s.Submission())
	if err != nil {
		return nil, err
	}
	s.quotation = quotation
	s.state = StateSubmitted
	return quotation, nil
}

// Submit validates and persists in one step, as used by authenticated users.
// On failure the form returns to editing.
func (s *Session) Submit(ctx context.Context, client ClientInfo, submitter Submitter) (*domain.Quotation, error) {
	if _, err := s.Preview(client); err != nil {
		return nil, err
	}
	quotation, err := s.Confirm(ctx, submitter)
	if err != nil {
		s.state = StateEditing
		return nil, err
	}
	return quotation, nil
}

// Submission snapshots the form content with rounded totals
func (s *Session) Submission() Submission {
	return Submission{
		ServiceID: s.serviceID,
		Questions: s.Questions(),
		Answers:   s.Answers(),
		Totals:    s.Totals().Round(),
		Client:    s.client,
	}
}

func (s *Session) question(id uuid.UUID) *domain.Question {
	for i := range s.questions {
		if s.questions[i].ID == id {
			return &s.questions[i]
		}
	}
	return nil
}

func (s *Session) validate(client ClientInfo) error {
	verr := &domain.ValidationError{}

	if err := validate.Struct(client); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				verr.Add("client."+strings.ToLower(fe.Field()), domain.GetValidationMessage(fe.Tag()))
			}
		} else {
			verr.Add("client", err.Error())
		}
	}

	if s.serviceID == uuid.Nil {
		verr.Add("serviceId", ErrNoService.Error())
	} else if len(s.questions) == 0 {
		verr.Add("serviceId", ErrEmptyCatalog.Error())
	}

	for _, q := range s.questions {
		if !q.IsRequired {
			continue
		}
		a, ok := s.answers[q.ID]
		if !ok || (q.Type == domain.QuestionTypeMultipleChoice && a.Choice == "") ||
			(q.Type == domain.QuestionTypeMultipleSelection && len(a.Selections) == 0) {
			verr.Add("answers."+q.ID.String(), domain.GetValidationMessage("required"))
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}
