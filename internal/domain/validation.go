package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Validation constants
const (
	MaxAccountNameLength = 255
	MinAccountNameLength = 1
	MaxAccountCodeLength = 20
	DefaultPageSize      = 20
	MaxPageSize          = 100
)

// Valid currency codes (ISO 4217)
var validCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CNY": true, "AUD": true, "CAD": true, "CHF": true,
	"SEK": true, "NZD": true, "KRW": true, "SGD": true,
	"NOK": true, "MXN": true, "INR": true, "BRL": true,
	"ZAR": true, "RUB": true, "TRY": true, "HKD": true,
}

var accountCodeRegex = regexp.MustCompile(`^[0-9A-Za-z.\-]+$`)

// ValidateAccountCode validates an account code.
func ValidateAccountCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return NewValidationError("code", "is required")
	}
	if len(code) > MaxAccountCodeLength {
		return NewValidationError("code", fmt.Sprintf("exceeds %d characters", MaxAccountCodeLength))
	}
	if !accountCodeRegex.MatchString(code) {
		return NewValidationError("code", "may contain only letters, digits, dots and dashes")
	}
	return nil
}

// ValidateAccountName validates account name
func ValidateAccountName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) < MinAccountNameLength {
		return NewValidationError("name", "cannot be empty")
	}

	if len(name) > MaxAccountNameLength {
		return NewValidationError("name", fmt.Sprintf("exceeds %d characters", MaxAccountNameLength))
	}

	return nil
}

// ValidateCurrency validates currency code
func ValidateCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if !validCurrencies[currency] {
		return NewValidationError("currency", fmt.Sprintf("%s is not a valid ISO 4217 currency code", currency))
	}

	return nil
}

// ValidatePage normalizes page and limit, returning the matching offset.
func ValidatePage(page, limit int) (int, int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	return page, limit, (page - 1) * limit
}

// TotalPages returns how many pages of size limit hold total rows.
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
