package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/tests/testutil"
)

func TestAccountLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	stack := testutil.NewStack(t, testDB, testutil.NewRedis(t))

	t.Run("seed the default chart twice", func(t *testing.T) {
		rec := stack.Do(t, http.MethodPost, "/api/v1/accounts/seed", nil)
		if rec.Code != http.StatusOK && rec.Code != http.StatusCreated {
			t.Fatalf("expected seed to succeed, got %d: %s", rec.Code, rec.Body.String())
		}

		rec = stack.Do(t, http.MethodPost, "/api/v1/accounts/seed", nil)
		if rec.Code >= http.StatusBadRequest {
			t.Fatalf("expected reseeding to be harmless, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	var created dto.AccountResponse

	t.Run("create account with valid data", func(t *testing.T) {
		rec := stack.Do(t, http.MethodPost, "/api/v1/accounts", map[string]any{
			"code": "1010",
			"name": "Petty Cash",
			"type": "ASSET",
			"role": "CASH",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		testutil.Decode(t, rec, &created)
		if created.Code != "1010" || !created.IsActive {
			t.Fatalf("unexpected account %+v", created)
		}
	})

	t.Run("duplicate code conflicts", func(t *testing.T) {
		rec := stack.Do(t, http.MethodPost, "/api/v1/accounts", map[string]any{
			"code": "1010",
			"name": "Another",
			"type": "ASSET",
		})
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("code is immutable", func(t *testing.T) {
		rec := stack.Do(t, http.MethodPatch, "/api/v1/accounts/"+created.ID, map[string]any{"code": "9999"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("deactivate and filter", func(t *testing.T) {
		rec := stack.Do(t, http.MethodPatch, "/api/v1/accounts/"+created.ID, map[string]any{"isActive": false})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		rec = stack.Do(t, http.MethodGet, "/api/v1/accounts?isActive=false", nil)
		var list dto.ListAccountsResponse
		testutil.Decode(t, rec, &list)
		if list.Total != 1 || list.Accounts[0].ID != created.ID {
			t.Fatalf("expected only the deactivated account, got %+v", list)
		}
	})

	t.Run("missing account is 404", func(t *testing.T) {
		rec := stack.Do(t, http.MethodGet, "/api/v1/accounts/"+testutil.GenerateID(), nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
