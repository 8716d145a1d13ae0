package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/adapter/http/middleware"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
	"github.com/iho/gobooks/tests/testutil"
)

func TestIngestAndReconcile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	stack := testutil.NewStack(t, testDB, testutil.NewRedis(t))
	accounts := seededAccounts(t, stack)

	order := map[string]any{
		"externalId":    "gid-3001",
		"orderNumber":   "3001",
		"customerName":  "Ada",
		"totalPrice":    "110.00",
		"subtotalPrice": "100.00",
		"totalTax":      "10.00",
		"currency":      "USD",
		"createdAt":     "2025-03-01T10:00:00Z",
	}

	t.Run("order posts once", func(t *testing.T) {
		rec := stack.Do(t, http.MethodPost, "/api/v1/ingest/orders", order)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp dto.PostingResponse
		testutil.Decode(t, rec, &resp)
		if resp.Reference != usecase.ReferencePrefixOrder+"3001" || resp.Duplicate || resp.Entry == nil {
			t.Fatalf("unexpected posting %+v", resp)
		}

		rec = stack.Do(t, http.MethodPost, "/api/v1/ingest/orders", order)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for a redelivery, got %d: %s", rec.Code, rec.Body.String())
		}
		testutil.Decode(t, rec, &resp)
		if !resp.Duplicate {
			t.Fatal("expected the redelivery to be acknowledged as a duplicate")
		}

		cash, err := stack.Services.Balances.AccountBalance(ctx, accounts[domain.CodeCash].ID, time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("cash balance: %v", err)
		}
		if !cash.Balance.Equal(decimal.NewFromInt(110)) {
			t.Fatalf("expected cash 110, got %s", cash.Balance)
		}
	})

	t.Run("idempotency key replays the first answer", func(t *testing.T) {
		payout := map[string]any{
			"externalId": "po-1",
			"amount":     "110.00",
			"fee":        "3.50",
			"currency":   "USD",
			"createdAt":  "2025-03-03T10:00:00Z",
		}

		first := stack.Do(t, http.MethodPost, "/api/v1/ingest/payouts", payout, middleware.IdempotencyKeyHeader, "payout-po-1")
		if first.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
		}

		second := stack.Do(t, http.MethodPost, "/api/v1/ingest/payouts", payout, middleware.IdempotencyKeyHeader, "payout-po-1")
		if second.Code != http.StatusCreated {
			t.Fatalf("expected the replayed 201, got %d", second.Code)
		}
		if second.Header().Get(middleware.IdempotencyReplayHeader) != "true" {
			t.Fatal("expected the replay header")
		}
		if second.Body.String() != first.Body.String() {
			t.Fatalf("replayed body differs:\n%s\n%s", first.Body.String(), second.Body.String())
		}
	})

	t.Run("auto-match pairs the payout with the order", func(t *testing.T) {
		rec := stack.Do(t, http.MethodPost, "/api/v1/reconciliation/auto-match", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var result usecase.AutoMatchResult
		testutil.Decode(t, rec, &result)
		if result.MatchesCreated != 1 || result.TotalPayouts != 1 || result.TotalOrders != 1 {
			t.Fatalf("unexpected auto-match result %+v", result)
		}

		rec = stack.Do(t, http.MethodPost, "/api/v1/reconciliation/auto-match", nil)
		testutil.Decode(t, rec, &result)
		if result.MatchesCreated != 0 {
			t.Fatalf("expected a re-run to match nothing, got %+v", result)
		}
	})
}
