package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAnswer(t *testing.T) {
	tests := []struct {
		name    string
		qType   QuestionType
		raw     string
		want    Answer
		wantErr error
	}{
		{"choice", QuestionTypeMultipleChoice, `" Pro "`, ChoiceAnswer("Pro"), nil},
		{"choice rejects number", QuestionTypeMultipleChoice, `3`, Answer{}, ErrAnswerTypeMismatch},
		{"selection", QuestionTypeMultipleSelection, `["A","B"]`, SelectionAnswer("A", "B"), nil},
		{"selection rejects string", QuestionTypeMultipleSelection, `"A"`, Answer{}, ErrAnswerTypeMismatch},
		{"yes", QuestionTypeYesNo, `"yes"`, YesNoAnswer(true), nil},
		{"si", QuestionTypeYesNo, `"si"`, YesNoAnswer(true), nil},
		{"sí with accent", QuestionTypeYesNo, `"Sí"`, YesNoAnswer(true), nil},
		{"bool true", QuestionTypeYesNo, `true`, YesNoAnswer(true), nil},
		{"no", QuestionTypeYesNo, `"no"`, YesNoAnswer(false), nil},
		{"maybe", QuestionTypeYesNo, `"maybe"`, Answer{}, ErrAnswerTypeMismatch},
		{"number", QuestionTypeNumber, `3`, NumberAnswer(3), nil},
		{"number as string", QuestionTypeNumber, `"12"`, NumberAnswer(12), nil},
		{"number zero", QuestionTypeNumber, `0`, Answer{}, ErrAnswerOutOfRange},
		{"number fraction", QuestionTypeNumber, `2.5`, Answer{}, ErrAnswerTypeMismatch},
		{"number upper bound", QuestionTypeNumber, `100000`, NumberAnswer(NumberMax), nil},
		{"number above", QuestionTypeNumber, `100001`, Answer{}, ErrAnswerOutOfRange},
		{"number huge", QuestionTypeNumber, `1e15`, Answer{}, ErrAnswerOutOfRange},
		{"range lower bound", QuestionTypeRange, `1`, RangeAnswer(1), nil},
		{"range upper bound", QuestionTypeRange, `20`, RangeAnswer(20), nil},
		{"range above", QuestionTypeRange, `21`, Answer{}, ErrAnswerOutOfRange},
		{"range below", QuestionTypeRange, `0`, Answer{}, ErrAnswerOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAnswer(tt.qType, json.RawMessage(tt.raw))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultAnswer(t *testing.T) {
	a, ok := DefaultAnswer(QuestionTypeYesNo)
	assert.True(t, ok)
	assert.Equal(t, YesNoAnswer(false), a)

	a, ok = DefaultAnswer(QuestionTypeNumber)
	assert.True(t, ok)
	assert.Equal(t, 1, a.Number)

	a, ok = DefaultAnswer(QuestionTypeRange)
	assert.True(t, ok)
	assert.Equal(t, 1, a.Number)

	_, ok = DefaultAnswer(QuestionTypeMultipleChoice)
	assert.False(t, ok)
	_, ok = DefaultAnswer(QuestionTypeMultipleSelection)
	assert.False(t, ok)
}

func TestAnswerSet_PersistedShape(t *testing.T) {
	choiceID := uuid.New()
	yesID := uuid.New()
	numID := uuid.New()
	set := AnswerSet{
		choiceID: ChoiceAnswer("Pro"),
		yesID:    YesNoAnswer(true),
		numID:    NumberAnswer(4),
	}

	data, err := json.Marshal(set)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Pro", decoded[choiceID.String()])
	assert.Equal(t, "yes", decoded[yesID.String()])
	assert.Equal(t, float64(4), decoded[numID.String()])
}

func TestDecodeAnswerSet(t *testing.T) {
	q := Question{Type: QuestionTypeYesNo}
	q.ID = uuid.New()
	questions := []Question{q}

	set, err := DecodeAnswerSet(questions, map[string]json.RawMessage{
		q.ID.String(): json.RawMessage(`"si"`),
	})
	require.NoError(t, err)
	assert.True(t, set[q.ID].Yes)

	set, err = DecodeAnswerSet(questions, map[string]json.RawMessage{
		q.ID.String(): json.RawMessage(`null`),
	})
	require.NoError(t, err)
	assert.Empty(t, set)

	_, err = DecodeAnswerSet(questions, map[string]json.RawMessage{
		uuid.NewString(): json.RawMessage(`"yes"`),
	})
	assert.ErrorIs(t, err, ErrUnknownQuestion)

	var answerErr *AnswerError
	_, err = DecodeAnswerSet(questions, map[string]json.RawMessage{
		q.ID.String(): json.RawMessage(`42`),
	})
	require.ErrorAs(t, err, &answerErr)
	assert.Equal(t, q.ID.String(), answerErr.QuestionID)
}

func TestQuestionValidate(t *testing.T) {
	opts := []QuestionOption{{LabelES: "Pro", LabelEN: "Pro", Price: decimal.NewFromInt(3000)}}

	valid := Question{Type: QuestionTypeMultipleChoice, PromptES: "Plan", Options: opts}
	assert.NoError(t, valid.Validate())

	noOptions := Question{Type: QuestionTypeMultipleSelection, PromptES: "Extras"}
	assert.ErrorIs(t, noOptions.Validate(), ErrInvalidQuestion)

	strayOptions := Question{Type: QuestionTypeYesNo, PromptES: "¿Hosting?", Options: opts}
	assert.ErrorIs(t, strayOptions.Validate(), ErrInvalidQuestion)

	negative := Question{Type: QuestionTypeNumber, PromptES: "Páginas", PriceMultiplier: decimal.NewFromInt(-1)}
	assert.ErrorIs(t, negative.Validate(), ErrInvalidQuestion)

	unknown := Question{Type: "slider", PromptES: "?"}
	assert.ErrorIs(t, unknown.Validate(), ErrInvalidQuestion)
}
