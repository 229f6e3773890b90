// Package store owns the persistence rules for categories and entries.
package store

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when the requested primary resource does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports an input that fails a field constraint.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// DuplicateError reports a uniqueness violation.
type DuplicateError struct {
	Field string
	Value string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Field, e.Value)
}

// ReferenceError reports a reference to a category that does not exist.
type ReferenceError struct {
	Field string
	ID    uint
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s %d does not refer to an existing category", e.Field, e.ID)
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Message: err.Error()}
}

// isDuplicateKey matches unique violations, translated or raw driver errors.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// isForeignKeyViolation matches foreign key violations, translated or raw.
func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}
