// Package pricing computes quotation totals from a question catalog and a set of answers.
package pricing

import (
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/shopspring/decimal"
)

// TaxRate is the fixed sales tax (IVA) applied to every subtotal.
var TaxRate = decimal.RequireFromString("0.16")

// Totals holds the three money amounts of a quotation
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Round rounds the amounts to cents. Total is the sum of the rounded parts so that
// total = subtotal + tax holds on the rounded values as well.
func (t Totals) Round() Totals {
	subtotal := t.Subtotal.Round(2)
	tax := t.Tax.Round(2)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// Evaluate folds the answers over the questions into exact, unrounded totals.
// It has no side effects and does not depend on question order.
func Evaluate(questions []domain.Question, answers domain.AnswerSet) Totals {
	subtotal := decimal.Zero
	for i := range questions {
		q := &questions[i]
		a, ok := answers[q.ID]
		if !ok {
			continue
		}
		subtotal = subtotal.Add(Contribution(q, a))
	}

	tax := subtotal.Mul(TaxRate)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// Contribution returns the amount one answered question adds to the subtotal.
// An answer whose type does not match the question contributes nothing.
func Contribution(q *domain.Question, a domain.Answer) decimal.Decimal {
	if a.Type != q.Type {
		return decimal.Zero
	}

	switch q.Type {
	case domain.QuestionTypeMultipleChoice:
		for _, opt := range q.Options {
			if opt.Matches(a.Choice) {
				return opt.Price
			}
		}
		return decimal.Zero

	case domain.QuestionTypeMultipleSelection:
		sum := decimal.Zero
		for _, opt := range q.Options {
			for _, label := range a.Selections {
				if opt.Matches(label) {
					sum = sum.Add(opt.Price)
					break
				}
			}
		}
		return sum

	case domain.QuestionTypeYesNo:
		if a.Yes {
			return q.BasePrice
		}
		return decimal.Zero

	case domain.QuestionTypeNumber, domain.QuestionTypeRange:
		if a.Number < 1 {
			return decimal.Zero
		}
		return q.BasePrice.Add(decimal.NewFromInt(int64(a.Number)).Mul(q.PriceMultiplier))
	}

	return decimal.Zero
}
