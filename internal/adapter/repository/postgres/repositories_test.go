package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

type fixedIDs struct{}

func (fixedIDs) Generate() string { return "generated-id" }

func q(s string) string { return regexp.QuoteMeta(s) }

func TestAccountRepositoryGetByCodeNotFound(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectQuery(q("FROM accounts WHERE code = $1")).
		WithArgs("9999").
		WillReturnError(pgx.ErrNoRows)

	_, err := NewAccountRepository(mockPool).GetByCode(context.Background(), nil, "9999")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestAccountRepositoryCreateDuplicateCode(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectExec(q("INSERT INTO accounts")).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: constraintAccountCode})

	err := NewAccountRepository(mockPool).Create(context.Background(), nil, &domain.Account{ID: "a1", Code: "1000"})
	if !errors.Is(err, domain.ErrDuplicateAccountCode) {
		t.Fatalf("expected ErrDuplicateAccountCode, got %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestJournalRepositoryCreateInTransaction(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectBeginTx(pgx.TxOptions{})
	mockPool.ExpectExec(q("INSERT INTO journal_entries")).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec(q("INSERT INTO journal_lines")).
		WithArgs("l1", "je1", "cash", int32(1), pgxmock.AnyArg(), pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec(q("INSERT INTO journal_lines")).
		WithArgs("l2", "je1", "sales", int32(2), pgxmock.AnyArg(), pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectCommit()

	ctx := context.Background()
	tx, err := NewTxManager(mockPool).Begin(ctx)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	amount := decimal.NewFromInt(100)
	entry := &domain.JournalEntry{
		ID:          "je1",
		Reference:   "JE-1",
		Description: "sale",
		Date:        time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
		TotalDebit:  amount,
		TotalCredit: amount,
		Lines: []domain.JournalLine{
			{ID: "l1", AccountID: "cash", LineNo: 1, Debit: amount},
			{ID: "l2", AccountID: "sales", LineNo: 2, Credit: amount},
		},
	}

	if err := NewJournalRepository(mockPool).Create(ctx, tx, entry); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestJournalRepositoryCreateMapsConstraints(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		expected   error
	}{
		{"duplicate reference", constraintJournalReference, domain.ErrDuplicateReference},
		{"second reversal", constraintJournalReverses, domain.ErrAlreadyReversed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPool := newMockPool(t)
			mockPool.ExpectExec(q("INSERT INTO journal_entries")).
				WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: tt.constraint})

			err := NewJournalRepository(mockPool).Create(context.Background(), nil, &domain.JournalEntry{ID: "je1"})
			if !errors.Is(err, tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, err)
			}

			assertExpectations(t, mockPool)
		})
	}
}

func TestJournalRepositoryMarkPosted(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectExec(q("UPDATE journal_entries")).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectExec(q("UPDATE journal_entries")).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewJournalRepository(mockPool)
	now := time.Now()

	changed, err := repo.MarkPosted(context.Background(), nil, "je1", now)
	if err != nil || !changed {
		t.Fatalf("expected first post to change a row, got changed=%v err=%v", changed, err)
	}

	changed, err = repo.MarkPosted(context.Background(), nil, "je1", now)
	if err != nil || changed {
		t.Fatalf("expected second post to be a no-op, got changed=%v err=%v", changed, err)
	}

	assertExpectations(t, mockPool)
}

func TestBalanceRepositorySumByAccount(t *testing.T) {
	mockPool := newMockPool(t)
	rows := pgxmock.NewRows([]string{"account_id", "debit", "credit"}).
		AddRow("cash", decimalToNumeric(decimal.RequireFromString("150.25")), decimalToNumeric(decimal.RequireFromString("50"))).
		AddRow("sales", decimalToNumeric(decimal.Zero), decimalToNumeric(decimal.RequireFromString("100.25")))
	mockPool.ExpectQuery(q("FROM journal_lines l")).WillReturnRows(rows)

	balances, err := NewBalanceRepository(mockPool).SumByAccount(context.Background(), nil, domain.BalanceFilter{
		To: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := balances.Get("cash").Balance; !got.Equal(decimal.RequireFromString("100.25")) {
		t.Fatalf("expected cash balance 100.25, got %s", got)
	}
	if got := balances.Get("sales").Balance; !got.Equal(decimal.RequireFromString("-100.25")) {
		t.Fatalf("expected sales balance -100.25, got %s", got)
	}
	if got := balances.Get("unknown").Balance; !got.IsZero() {
		t.Fatalf("expected zero for unknown account, got %s", got)
	}

	assertExpectations(t, mockPool)
}

func TestPayoutRepositoryListUnmatched(t *testing.T) {
	mockPool := newMockPool(t)
	store := "store-1"
	created := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"id", "external_id", "store_id", "amount", "fee", "currency", "status", "created_at"}).
		AddRow("p1", "po-1", &store, decimalToNumeric(decimal.RequireFromString("97.10")),
			decimalToNumeric(decimal.RequireFromString("2.90")), "USD", "paid", created)
	mockPool.ExpectQuery(q("NOT EXISTS (SELECT 1 FROM reconciliation_matches m WHERE m.payout_id = p.id) AND p.store_id = $1")).
		WithArgs(store).
		WillReturnRows(rows)

	payouts, err := NewPayoutRepository(mockPool).ListUnmatched(context.Background(), nil, &store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(payouts) != 1 {
		t.Fatalf("expected 1 payout, got %d", len(payouts))
	}
	p := payouts[0]
	if !p.Amount.Equal(decimal.RequireFromString("97.10")) || !p.Fee.Equal(decimal.RequireFromString("2.90")) {
		t.Fatalf("unexpected amounts: amount=%s fee=%s", p.Amount, p.Fee)
	}
	if p.StoreID == nil || *p.StoreID != store {
		t.Fatalf("expected store %s, got %v", store, p.StoreID)
	}

	assertExpectations(t, mockPool)
}

func TestReconciliationRepositoryMissingRows(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectExec(q("DELETE FROM reconciliation_matches")).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mockPool.ExpectExec(q("UPDATE reconciliation_matches")).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewReconciliationRepository(mockPool)
	if err := repo.Delete(context.Background(), nil, "missing"); !errors.Is(err, domain.ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound on delete, got %v", err)
	}
	if err := repo.Update(context.Background(), nil, &domain.ReconciliationMatch{ID: "missing"}); !errors.Is(err, domain.ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound on update, got %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestReconciliationRepositoryCreateUnknownPayout(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectExec(q("INSERT INTO reconciliation_matches")).
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: constraintMatchPayout})

	err := NewReconciliationRepository(mockPool).Create(context.Background(), nil, &domain.ReconciliationMatch{ID: "m1"})
	if !errors.Is(err, domain.ErrPayoutNotFound) {
		t.Fatalf("expected ErrPayoutNotFound, got %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestExchangeRateRepositoryLatestMissing(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectQuery(q("FROM exchange_rates")).WillReturnError(pgx.ErrNoRows)

	rate, err := NewExchangeRateRepository(mockPool).Latest(context.Background(), nil, "EUR", "USD", time.Now())
	if err != nil || rate != nil {
		t.Fatalf("expected no rate and no error, got rate=%v err=%v", rate, err)
	}

	assertExpectations(t, mockPool)
}

func TestSettingsRepositoryGetEmpty(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectQuery(q("FROM settings WHERE id = 1")).WillReturnError(pgx.ErrNoRows)

	settings, err := NewSettingsRepository(mockPool).Get(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings == nil || settings.DefaultCashAccountID != nil {
		t.Fatalf("expected empty settings, got %+v", settings)
	}

	assertExpectations(t, mockPool)
}

func TestAuditRepositoryCreateAssignsID(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectExec(q("INSERT INTO audit_logs")).WillReturnResult(pgxmock.NewResult("INSERT", 1))

	log := &domain.AuditLog{UserID: "alice", Action: "account.create", AfterState: domain.JSON{"code": "6000"}}
	if err := NewAuditRepository(mockPool, fixedIDs{}).Create(context.Background(), nil, log); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log.ID != "generated-id" {
		t.Fatalf("expected generated id, got %q", log.ID)
	}

	assertExpectations(t, mockPool)
}
