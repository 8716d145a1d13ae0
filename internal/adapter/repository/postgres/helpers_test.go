package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

func TestNumericRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "12.5", "-0.0001", "123456789.1234"} {
		d := decimal.RequireFromString(s)
		if got := numericToDecimal(decimalToNumeric(d)); !got.Equal(d) {
			t.Errorf("round trip of %s gave %s", s, got)
		}
	}

	if !numericToDecimal(pgtype.Numeric{}).IsZero() {
		t.Error("NULL numeric should read as zero")
	}
}

func TestMapConstraintError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"account code", &pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: constraintAccountCode}, domain.ErrDuplicateAccountCode},
		{"reference", &pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: constraintJournalReference}, domain.ErrDuplicateReference},
		{"second reversal", &pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: constraintJournalReverses}, domain.ErrAlreadyReversed},
		{"unknown account", &pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: constraintLineAccount}, domain.ErrAccountNotFound},
		{"unknown payout", &pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: constraintMatchPayout}, domain.ErrPayoutNotFound},
		{"unknown item", &pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: constraintMovementItem}, domain.ErrInventoryItemNotFound},
		{"duplicate sku", &pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: constraintInventorySKU}, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapConstraintError(tt.err); !errors.Is(got, tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
		})
	}

	plain := errors.New("boom")
	if got := mapConstraintError(plain); got != plain {
		t.Fatalf("expected passthrough, got %v", got)
	}
}

func TestOptionalConversions(t *testing.T) {
	if optionalText(nil).Valid {
		t.Fatal("nil string should be NULL")
	}
	s := "store-1"
	if got := textPtr(optionalText(&s)); got == nil || *got != s {
		t.Fatalf("expected %q, got %v", s, got)
	}

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := timestamptzPtr(optionalTimestamptz(&now)); got == nil || !got.Equal(now) {
		t.Fatalf("expected %v, got %v", now, got)
	}
	if timestamptzPtr(optionalTimestamptz(nil)) != nil {
		t.Fatal("nil time should stay nil")
	}
}

func TestFilterPlaceholders(t *testing.T) {
	var f filter
	if f.where() != "" {
		t.Fatalf("empty filter should render no WHERE clause, got %q", f.where())
	}

	f.add("store_id = ?", "s1")
	f.add("created_at >= ?", "2025-01-01")
	paging := f.page(10, 20)

	if got, want := f.where(), " WHERE store_id = $1 AND created_at >= $2"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if want := " LIMIT $3 OFFSET $4"; paging != want {
		t.Fatalf("expected %q, got %q", want, paging)
	}
	if len(f.args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(f.args))
	}
}
