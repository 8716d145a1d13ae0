package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestValidateAccountName(t *testing.T) {
	t.Parallel()

	t.Run("valid name", func(t *testing.T) {
		if err := ValidateAccountName("Owner's Equity"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		err := ValidateAccountName("   ")
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("name too long", func(t *testing.T) {
		tooLong := strings.Repeat("a", MaxAccountNameLength+1)
		err := ValidateAccountName(tooLong)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
}

func TestValidateAccountCode(t *testing.T) {
	t.Parallel()

	valid := []string{"1000", "4000-01", "A.1"}
	for _, code := range valid {
		if err := ValidateAccountCode(code); err != nil {
			t.Errorf("expected %q to be valid, got %v", code, err)
		}
	}

	invalid := []string{"", "  ", "10 00", "1000;", strings.Repeat("9", MaxAccountCodeLength+1)}
	for _, code := range invalid {
		err := ValidateAccountCode(code)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Fields["code"] == "" {
			t.Errorf("expected code field error for %q, got %v", code, err)
		}
	}
}

func TestValidateCurrency(t *testing.T) {
	t.Parallel()

	if err := ValidateCurrency("usd"); err != nil {
		t.Fatalf("expected lowercase currency to be accepted, got %v", err)
	}
	if err := ValidateCurrency("XXX"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestValidatePage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                       string
		page, limit                int
		wantPage, wantLimit, wantO int
	}{
		{"defaults", 0, 0, 1, DefaultPageSize, 0},
		{"second page", 2, 10, 2, 10, 10},
		{"limit capped", 1, 1000, 1, MaxPageSize, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, limit, offset := ValidatePage(tt.page, tt.limit)
			if page != tt.wantPage || limit != tt.wantLimit || offset != tt.wantO {
				t.Fatalf("got (%d,%d,%d), want (%d,%d,%d)", page, limit, offset, tt.wantPage, tt.wantLimit, tt.wantO)
			}
		})
	}

	if TotalPages(41, 20) != 3 || TotalPages(0, 20) != 0 {
		t.Fatalf("unexpected TotalPages result")
	}
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	verr := &ValidationError{}
	if verr.OrNil() != nil {
		t.Fatal("empty validation error should be nil")
	}
	verr.Add("b", "bad")
	verr.Add("a", "missing")

	if verr.Error() != "validation failed: a: missing; b: bad" {
		t.Fatalf("unexpected message %q", verr.Error())
	}
	if !errors.Is(verr.OrNil(), ErrValidation) {
		t.Fatal("expected errors.Is to match ErrValidation")
	}
}

func TestIsMatchCandidate(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	payout := &Payout{Amount: decimal.RequireFromString("250.00"), CreatedAt: base}

	tests := []struct {
		name     string
		order    *Order
		expected bool
	}{
		{"two days apart", &Order{TotalPrice: decimal.RequireFromString("250.00"), CreatedAt: base.AddDate(0, 0, 2)}, true},
		{"half cent off", &Order{TotalPrice: decimal.RequireFromString("250.005"), CreatedAt: base}, true},
		{"one cent off", &Order{TotalPrice: decimal.RequireFromString("250.01"), CreatedAt: base}, false},
		{"order before payout", &Order{TotalPrice: decimal.RequireFromString("250"), CreatedAt: base.AddDate(0, 0, -6)}, true},
		{"exactly seven days", &Order{TotalPrice: decimal.RequireFromString("250"), CreatedAt: base.AddDate(0, 0, 7)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsMatchCandidate(payout, tt.order); got != tt.expected {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestMonthRange(t *testing.T) {
	t.Parallel()

	r := MonthRange(2024, 2)
	if r.From.Day() != 1 || r.To.Day() != 29 {
		t.Fatalf("expected leap February range, got %v..%v", r.From, r.To)
	}

	year := MonthRange(2024, 0)
	if year.From.Month() != time.January || year.To.Month() != time.December || year.To.Day() != 31 {
		t.Fatalf("expected whole-year range, got %v..%v", year.From, year.To)
	}
}
