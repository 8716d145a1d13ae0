package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func line(account string, debit, credit string) JournalLine {
	return JournalLine{
		AccountID: account,
		Debit:     decimal.RequireFromString(debit),
		Credit:    decimal.RequireFromString(credit),
	}
}

func TestJournalEntry_Validate(t *testing.T) {
	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		entry         JournalEntry
		expectErr     error
		expectedField string
	}{
		{
			name: "balanced entry",
			entry: JournalEntry{Description: "sale", Date: date, Lines: []JournalLine{
				line("cash", "100", "0"), line("sales", "0", "100"),
			}},
		},
		{
			name: "trailing zeros are not extra precision",
			entry: JournalEntry{Description: "sale", Date: date, Lines: []JournalLine{
				line("cash", "100.1000", "0"), line("sales", "0", "100.10"),
			}},
		},
		{
			name: "off by one cent",
			entry: JournalEntry{Description: "rounding", Date: date, Lines: []JournalLine{
				line("cash", "100.01", "0"), line("sales", "0", "100"),
			}},
			expectErr: ErrUnbalancedEntry,
		},
		{
			name: "sub-cent debit",
			entry: JournalEntry{Description: "half cent", Date: date, Lines: []JournalLine{
				line("cash", "100.005", "0"), line("sales", "0", "100"),
			}},
			expectErr:     ErrValidation,
			expectedField: "lines[0].debit",
		},
		{
			name: "sub-cent credit",
			entry: JournalEntry{Description: "half cent", Date: date, Lines: []JournalLine{
				line("cash", "100", "0"), line("sales", "0", "99.995"),
			}},
			expectErr:     ErrValidation,
			expectedField: "lines[1].credit",
		},
		{
			name: "unbalanced",
			entry: JournalEntry{Description: "bad", Date: date, Lines: []JournalLine{
				line("cash", "100", "0"), line("sales", "0", "90"),
			}},
			expectErr: ErrUnbalancedEntry,
		},
		{
			name: "two cents off",
			entry: JournalEntry{Description: "bad", Date: date, Lines: []JournalLine{
				line("cash", "100.02", "0"), line("sales", "0", "100"),
			}},
			expectErr: ErrUnbalancedEntry,
		},
		{
			name: "single line",
			entry: JournalEntry{Description: "one", Date: date, Lines: []JournalLine{
				line("cash", "100", "0"),
			}},
			expectErr:     ErrValidation,
			expectedField: "lines",
		},
		{
			name: "missing description",
			entry: JournalEntry{Date: date, Lines: []JournalLine{
				line("cash", "100", "0"), line("sales", "0", "100"),
			}},
			expectErr:     ErrValidation,
			expectedField: "description",
		},
		{
			name: "negative debit",
			entry: JournalEntry{Description: "neg", Date: date, Lines: []JournalLine{
				line("cash", "-100", "0"), line("sales", "0", "-100"),
			}},
			expectErr:     ErrValidation,
			expectedField: "lines[0].debit",
		},
		{
			name: "both sides on one line",
			entry: JournalEntry{Description: "both", Date: date, Lines: []JournalLine{
				line("cash", "100", "100"), line("sales", "0", "0"),
			}},
			expectErr:     ErrValidation,
			expectedField: "lines[0]",
		},
		{
			name: "missing account",
			entry: JournalEntry{Description: "noacc", Date: date, Lines: []JournalLine{
				line("", "100", "0"), line("sales", "0", "100"),
			}},
			expectErr:     ErrValidation,
			expectedField: "lines[0].accountId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.expectErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.expectErr) {
				t.Fatalf("expected %v, got %v", tt.expectErr, err)
			}
			if tt.expectedField != "" {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected ValidationError, got %T", err)
				}
				if _, ok := verr.Fields[tt.expectedField]; !ok {
					t.Fatalf("expected field %q in %v", tt.expectedField, verr.Fields)
				}
			}
		})
	}
}

func TestJournalEntry_ComputeTotals(t *testing.T) {
	e := JournalEntry{Lines: []JournalLine{
		line("a", "10.10", "0"), line("b", "20.20", "0"), line("c", "0", "30.30"),
	}}
	e.ComputeTotals()

	if !e.TotalDebit.Equal(decimal.RequireFromString("30.30")) {
		t.Errorf("expected total debit 30.30, got %s", e.TotalDebit)
	}
	if !e.TotalCredit.Equal(decimal.RequireFromString("30.30")) {
		t.Errorf("expected total credit 30.30, got %s", e.TotalCredit)
	}
}

func TestJournalEntry_Reversal(t *testing.T) {
	e := JournalEntry{
		ID:        "je-1",
		Reference: "JE-ABC",
		Lines: []JournalLine{
			line("cash", "100", "0"), line("sales", "0", "100"),
		},
	}

	rev := e.Reversal(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), "")

	if rev.Reference != "REV-JE-ABC" {
		t.Errorf("unexpected reference %s", rev.Reference)
	}
	if rev.ReversesID == nil || *rev.ReversesID != "je-1" {
		t.Fatalf("expected reversal to point at je-1")
	}
	if !rev.Lines[0].Credit.Equal(decimal.NewFromInt(100)) || !rev.Lines[1].Debit.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected sides swapped, got %+v", rev.Lines)
	}
	if err := rev.Validate(); err != nil {
		t.Errorf("reversal should validate: %v", err)
	}
}

func TestJournalEntry_AccountIDs(t *testing.T) {
	e := JournalEntry{Lines: []JournalLine{
		line("a", "1", "0"), line("b", "0", "1"), line("a", "1", "0"), line("b", "0", "1"),
	}}
	ids := e.AccountIDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("expected [a b], got %v", ids)
	}
}
