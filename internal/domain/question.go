package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidQuestion is returned when a question definition breaks the catalog rules
var ErrInvalidQuestion = errors.New("invalid question")

// Validate checks the catalog rules: known type, non-negative prices, and an option
// list that is non-empty exactly when the type is a choice type.
func (q *Question) Validate() error {
	if !q.Type.IsValid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidQuestion, q.Type)
	}
	if strings.TrimSpace(q.PromptES) == "" && strings.TrimSpace(q.PromptEN) == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidQuestion)
	}
	if q.BasePrice.IsNegative() {
		return fmt.Errorf("%w: base price must not be negative", ErrInvalidQuestion)
	}
	if q.PriceMultiplier.IsNegative() {
		return fmt.Errorf("%w: price multiplier must not be negative", ErrInvalidQuestion)
	}

	if q.Type.HasOptions() {
		if len(q.Options) == 0 {
			return fmt.Errorf("%w: %s requires at least one option", ErrInvalidQuestion, q.Type)
		}
		for i, opt := range q.Options {
			if strings.TrimSpace(opt.LabelES) == "" && strings.TrimSpace(opt.LabelEN) == "" {
				return fmt.Errorf("%w: option %d has no label", ErrInvalidQuestion, i)
			}
			if opt.Price.IsNegative() {
				return fmt.Errorf("%w: option %d price must not be negative", ErrInvalidQuestion, i)
			}
		}
	} else if len(q.Options) > 0 {
		return fmt.Errorf("%w: %s does not take options", ErrInvalidQuestion, q.Type)
	}
	return nil
}
