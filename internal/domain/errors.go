package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	// Validation
	ErrValidation = errors.New("validation failed")

	// Account errors
	ErrAccountNotFound      = errors.New("account not found")
	ErrDuplicateAccountCode = errors.New("account code already exists")
	ErrAccountCodeImmutable = errors.New("account code cannot be changed")
	ErrInactiveAccount      = errors.New("account is inactive")

	// Journal errors
	ErrUnbalancedEntry      = errors.New("journal entry debits do not equal credits")
	ErrJournalEntryNotFound = errors.New("journal entry not found")
	ErrAlreadyPosted        = errors.New("journal entry is already posted")
	ErrEntryNotPosted       = errors.New("journal entry is not posted")
	ErrAlreadyReversed      = errors.New("journal entry is already reversed")
	ErrDuplicateReference   = errors.New("journal entry reference already exists")

	// Reconciliation errors
	ErrMatchNotFound  = errors.New("reconciliation match not found")
	ErrPayoutNotFound = errors.New("payout not found")
	ErrOrderNotFound  = errors.New("order not found")

	// Commerce errors
	ErrStoreNotFound = errors.New("store not found")

	// Reference data errors
	ErrInventoryItemNotFound = errors.New("inventory item not found")
)

// ValidationError carries field-level detail for malformed input.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add records a field problem.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// OrNil returns e when it holds problems and nil otherwise.
func (e *ValidationError) OrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
