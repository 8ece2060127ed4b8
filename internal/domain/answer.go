package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrAnswerTypeMismatch is returned when an answer shape does not fit the question type
	ErrAnswerTypeMismatch = errors.New("answer does not match question type")
	// ErrAnswerOutOfRange is returned for number answers below 1 and range answers outside [1,20]
	ErrAnswerOutOfRange = errors.New("answer out of range")
	// ErrUnknownQuestion is returned when an answer references a question outside the catalog
	ErrUnknownQuestion = errors.New("unknown question")
)

// Answer is the value given to one question. Type selects which field is meaningful:
// Choice for multiple_choice, Selections for multiple_selection, Yes for yes_no and
// Number for number and range.
type Answer struct {
	Type       QuestionType
	Choice     string
	Selections []string
	Yes        bool
	Number     int
}

// ChoiceAnswer builds a multiple_choice answer
func ChoiceAnswer(label string) Answer {
	return Answer{Type: QuestionTypeMultipleChoice, Choice: label}
}

// SelectionAnswer builds a multiple_selection answer
func SelectionAnswer(labels ...string) Answer {
	return Answer{Type: QuestionTypeMultipleSelection, Selections: labels}
}

// YesNoAnswer builds a yes_no answer
func YesNoAnswer(yes bool) Answer {
	return Answer{Type: QuestionTypeYesNo, Yes: yes}
}

// NumberAnswer builds a number answer
func NumberAnswer(n int) Answer {
	return Answer{Type: QuestionTypeNumber, Number: n}
}

// RangeAnswer builds a range answer
func RangeAnswer(n int) Answer {
	return Answer{Type: QuestionTypeRange, Number: n}
}

// DefaultAnswer returns the seeded answer for a question type. Choice types have no default.
func DefaultAnswer(t QuestionType) (Answer, bool) {
	switch t {
	case QuestionTypeYesNo:
		return YesNoAnswer(false), true
	case QuestionTypeNumber:
		return NumberAnswer(1), true
	case QuestionTypeRange:
		return RangeAnswer(RangeMin), true
	}
	return Answer{}, false
}

// Validate checks the answer against the value domain of its type
func (a Answer) Validate() error {
	switch a.Type {
	case QuestionTypeMultipleChoice, QuestionTypeMultipleSelection, QuestionTypeYesNo:
		return nil
	case QuestionTypeNumber:
		if a.Number < 1 || a.Number > NumberMax {
			return fmt.Errorf("%w: number must be between 1 and %d", ErrAnswerOutOfRange, NumberMax)
		}
		return nil
	case QuestionTypeRange:
		if a.Number < RangeMin || a.Number > RangeMax {
			return fmt.Errorf("%w: range must be between %d and %d", ErrAnswerOutOfRange, RangeMin, RangeMax)
		}
		return nil
	}
	return fmt.Errorf("%w: unsupported type %q", ErrAnswerTypeMismatch, a.Type)
}

// MarshalJSON writes the persisted shape: string, string array or number.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.Type {
	case QuestionTypeMultipleChoice:
		return json.Marshal(a.Choice)
	case QuestionTypeMultipleSelection:
		if a.Selections == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.Selections)
	case QuestionTypeYesNo:
		if a.Yes {
			return json.Marshal("yes")
		}
		return json.Marshal("no")
	case QuestionTypeNumber, QuestionTypeRange:
		return json.Marshal(a.Number)
	}
	return nil, fmt.Errorf("%w: unsupported type %q", ErrAnswerTypeMismatch, a.Type)
}

// DecodeAnswer parses a raw JSON value as an answer to a question of type t.
func DecodeAnswer(t QuestionType, raw json.RawMessage) (Answer, error) {
	switch t {
	case QuestionTypeMultipleChoice:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Answer{}, fmt.Errorf("%w: expected a string", ErrAnswerTypeMismatch)
		}
		return ChoiceAnswer(strings.TrimSpace(s)), nil

	case QuestionTypeMultipleSelection:
		var labels []string
		if err := json.Unmarshal(raw, &labels); err != nil {
			return Answer{}, fmt.Errorf("%w: expected an array of strings", ErrAnswerTypeMismatch)
		}
		return SelectionAnswer(labels...), nil

	case QuestionTypeYesNo:
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return YesNoAnswer(b), nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Answer{}, fmt.Errorf("%w: expected yes or no", ErrAnswerTypeMismatch)
		}
		yes, ok := ParseYesNo(s)
		if !ok {
			return Answer{}, fmt.Errorf("%w: expected yes or no, got %q", ErrAnswerTypeMismatch, s)
		}
		return YesNoAnswer(yes), nil

	case QuestionTypeNumber, QuestionTypeRange:
		n, err := decodeInt(raw)
		if err != nil {
			return Answer{}, err
		}
		a := Answer{Type: t, Number: n}
		if err := a.Validate(); err != nil {
			return Answer{}, err
		}
		return a, nil
	}
	return Answer{}, fmt.Errorf("%w: unsupported type %q", ErrAnswerTypeMismatch, t)
}

// ParseYesNo accepts yes/no in English and Spanish.
func ParseYesNo(s string) (yes bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "si", "sí", "true":
		return true, true
	case "no", "false":
		return false, true
	}
	return false, false
}

func decodeInt(raw json.RawMessage) (int, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if math.Abs(f) > math.MaxInt32 {
			return 0, fmt.Errorf("%w: number is too large", ErrAnswerOutOfRange)
		}
		if f != float64(int(f)) {
			return 0, fmt.Errorf("%w: expected an integer", ErrAnswerTypeMismatch)
		}
		return int(f), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("%w: expected a number", ErrAnswerTypeMismatch)
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: expected a number, got %q", ErrAnswerTypeMismatch, s)
	}
	return n, nil
}

// AnswerSet maps question identifiers to answers. Missing entries are unanswered.
type AnswerSet map[uuid.UUID]Answer

// MarshalJSON writes {question_id: value}.
func (s AnswerSet) MarshalJSON() ([]byte, error) {
	out := make(map[string]Answer, len(s))
	for id, a := range s {
		out[id.String()] = a
	}
	return json.Marshal(out)
}

// AnswerError reports a malformed answer for one question
type AnswerError struct {
	QuestionID string
	Err        error
}

func (e *AnswerError) Error() string {
	return fmt.Sprintf("question %s: %v", e.QuestionID, e.Err)
}

func (e *AnswerError) Unwrap() error {
	return e.Err
}

// DecodeAnswerSet decodes raw answers keyed by question id against a catalog.
// JSON null values are treated as unanswered.
func DecodeAnswerSet(questions []Question, raw map[string]json.RawMessage) (AnswerSet, error) {
	byID := make(map[uuid.UUID]QuestionType, len(questions))
	for _, q := range questions {
		byID[q.ID] = q.Type
	}

	set := make(AnswerSet, len(raw))
	for key, value := range raw {
		id, err := uuid.Parse(key)
		if err != nil {
			return nil, &AnswerError{QuestionID: key, Err: ErrUnknownQuestion}
		}
		qType, ok := byID[id]
		if !ok {
			return nil, &AnswerError{QuestionID: key, Err: ErrUnknownQuestion}
		}
		if len(value) == 0 || string(value) == "null" {
			continue
		}
		a, err := DecodeAnswer(qType, value)
		if err != nil {
			return nil, &AnswerError{QuestionID: key, Err: err}
		}
		set[id] = a
	}
	return set, nil
}
