package util

import (
	"fmt"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	MaxDescriptionLen = 50
	MaxNoteLen        = 500
)

// maxAmount is the first value that no longer fits a decimal(12,2) column.
var maxAmount = decimal.New(1, 10)

// ValidateAmount checks an entry amount: positive, at most two decimal
// places and below maxAmount.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be greater than zero, got %s", amount.String())
	}
	if !amount.Equal(amount.Truncate(2)) {
		return fmt.Errorf("amount has more than two decimal places, got %s", amount.String())
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("amount too large, got %s", amount.String())
	}
	return nil
}

// ValidateDescription checks a category description: 1 to 50 characters.
func ValidateDescription(description string) error {
	n := utf8.RuneCountInString(description)
	if n == 0 {
		return fmt.Errorf("description is empty")
	}
	if n > MaxDescriptionLen {
		return fmt.Errorf("description too long, max %d characters", MaxDescriptionLen)
	}
	return nil
}

// ValidateNote checks an entry note; empty is allowed.
func ValidateNote(note string) error {
	if utf8.RuneCountInString(note) > MaxNoteLen {
		return fmt.Errorf("note too long, max %d characters", MaxNoteLen)
	}
	return nil
}
