package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLedgerUseCase_CheckConsistency(t *testing.T) {
	tests := []struct {
		name        string
		repo        *fakeLedgerRepository
		want        bool
		expectedErr error
	}{
		{
			name: "happy path balanced ledger",
			repo: &fakeLedgerRepository{
				totalDebit:  decimal.NewFromInt(500),
				totalCredit: decimal.NewFromInt(500),
			},
			want: true,
		},
		{
			name: "empty ledger",
			repo: &fakeLedgerRepository{},
			want: true,
		},
		{
			name: "repo error surfaces",
			repo: &fakeLedgerRepository{
				err: errors.New("db down"),
			},
			expectedErr: errors.New("db down"),
		},
		{
			name: "debits exceed credits",
			repo: &fakeLedgerRepository{
				totalDebit:  decimal.NewFromInt(510),
				totalCredit: decimal.NewFromInt(500),
			},
			expectedErr: ErrInconsistentLedger,
		},
		{
			name: "off by a cent",
			repo: &fakeLedgerRepository{
				totalDebit:  decimal.RequireFromString("100.00"),
				totalCredit: decimal.RequireFromString("100.01"),
			},
			expectedErr: ErrInconsistentLedger,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := NewLedgerUseCase(tt.repo)
			got, err := uc.CheckConsistency(context.Background())

			if tt.expectedErr != nil {
				if err == nil || err.Error() != tt.expectedErr.Error() {
					t.Fatalf("expected error %v, got %v", tt.expectedErr, err)
				}
				if got != nil && got.Consistent {
					t.Fatalf("expected inconsistent result, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got.Consistent != tt.want {
				t.Fatalf("CheckConsistency() = %v, want %v", got.Consistent, tt.want)
			}
		})
	}
}

func TestLedgerUseCase_ReportsDifference(t *testing.T) {
	repo := &fakeLedgerRepository{
		totalDebit:  decimal.NewFromInt(300),
		totalCredit: decimal.NewFromInt(250),
	}
	uc := NewLedgerUseCase(repo)

	result, err := uc.CheckConsistency(context.Background())
	if !errors.Is(err, ErrInconsistentLedger) {
		t.Fatalf("expected ErrInconsistentLedger, got %v", err)
	}
	if !result.Difference.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected difference 50, got %s", result.Difference)
	}
	if repo.calls != 1 {
		t.Fatalf("expected CheckConsistency to call repository once, got %d", repo.calls)
	}
}

type fakeLedgerRepository struct {
	totalDebit  decimal.Decimal
	totalCredit decimal.Decimal
	err         error
	calls       int
}

func (f *fakeLedgerRepository) CheckConsistency(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	f.calls++
	return f.totalDebit, f.totalCredit, f.err
}
