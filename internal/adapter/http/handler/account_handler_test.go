package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

type accountServiceStub struct {
	createFn func(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error)
	updateFn func(ctx context.Context, id string, input usecase.UpdateAccountInput) (*domain.Account, error)
	getFn    func(ctx context.Context, id string) (*domain.Account, error)
	listFn   func(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error)
	seedFn   func(ctx context.Context) (*usecase.SeedResult, error)
}

func (s *accountServiceStub) CreateAccount(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error) {
	return s.createFn(ctx, input)
}

func (s *accountServiceStub) UpdateAccount(ctx context.Context, id string, input usecase.UpdateAccountInput) (*domain.Account, error) {
	return s.updateFn(ctx, id, input)
}

func (s *accountServiceStub) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.getFn(ctx, id)
}

func (s *accountServiceStub) ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error) {
	return s.listFn(ctx, filter)
}

func (s *accountServiceStub) SeedDefaultChart(ctx context.Context) (*usecase.SeedResult, error) {
	return s.seedFn(ctx)
}

type balanceServiceStub struct {
	asOf   time.Time
	from   time.Time
	to     time.Time
	ranged bool
}

func (s *balanceServiceStub) AccountBalance(_ context.Context, id string, asOf time.Time) (*usecase.AccountBalance, error) {
	s.asOf = asOf
	return &usecase.AccountBalance{
		Account:       &domain.Account{ID: id, Type: domain.AccountTypeAsset},
		To:            asOf,
		Debit:         decimal.NewFromInt(100),
		Credit:        decimal.NewFromInt(40),
		Balance:       decimal.NewFromInt(60),
		NormalBalance: decimal.NewFromInt(60),
	}, nil
}

func (s *balanceServiceStub) AccountBalanceForRange(_ context.Context, id string, from, to time.Time) (*usecase.AccountBalance, error) {
	s.ranged = true
	s.from, s.to = from, to
	return &usecase.AccountBalance{
		Account: &domain.Account{ID: id, Type: domain.AccountTypeAsset},
		From:    &from,
		To:      to,
	}, nil
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestAccountHandler_Create_Success(t *testing.T) {
	var captured usecase.CreateAccountInput
	handler := NewAccountHandler(&accountServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error) {
			captured = input
			return &domain.Account{ID: "acc-1", Code: input.Code, Name: input.Name, Type: input.Type, IsActive: true}, nil
		},
	}, &balanceServiceStub{})

	body, _ := json.Marshal(dto.CreateAccountRequest{Code: "1000", Name: "Cash", Type: "ASSET", Role: "CASH"})
	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.Code != "1000" || captured.Type != domain.AccountTypeAsset || captured.Role != domain.AccountRoleCash {
		t.Fatalf("expected input to match request, got %+v", captured)
	}

	var resp dto.AccountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "acc-1" || !resp.IsActive {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestAccountHandler_Create_ValidationError(t *testing.T) {
	called := false
	handler := NewAccountHandler(&accountServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error) {
			called = true
			return nil, nil
		},
	}, &balanceServiceStub{})

	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString(`{"code":"1000","name":"Cash","type":"MONEY"}`))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if called {
		t.Fatal("service should not be called for an invalid body")
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, ok := resp.Fields["type"]; !ok {
		t.Fatalf("expected a type field error, got %+v", resp.Fields)
	}
}

func TestAccountHandler_Create_DuplicateCode(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error) {
			return nil, domain.ErrDuplicateAccountCode
		},
	}, &balanceServiceStub{})

	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString(`{"code":"1000","name":"Cash","type":"ASSET"}`))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestAccountHandler_Update(t *testing.T) {
	var capturedID string
	var captured usecase.UpdateAccountInput
	handler := NewAccountHandler(&accountServiceStub{
		updateFn: func(ctx context.Context, id string, input usecase.UpdateAccountInput) (*domain.Account, error) {
			capturedID, captured = id, input
			return &domain.Account{ID: id, Name: *input.Name}, nil
		},
	}, &balanceServiceStub{})

	req := httptest.NewRequest(http.MethodPatch, "/accounts/acc-1", bytes.NewBufferString(`{"name":"Petty cash","isActive":false}`))
	req = withURLParam(req, "id", "acc-1")
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if capturedID != "acc-1" {
		t.Fatalf("expected id acc-1, got %q", capturedID)
	}
	if captured.Code != nil || captured.IsActive == nil || *captured.IsActive {
		t.Fatalf("expected only name and isActive to be set, got %+v", captured)
	}
}

func TestAccountHandler_Get_NotFound(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.Account, error) {
			return nil, domain.ErrAccountNotFound
		},
	}, &balanceServiceStub{})

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/accounts/missing", nil), "id", "missing")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAccountHandler_List_Filters(t *testing.T) {
	var captured domain.AccountFilter
	handler := NewAccountHandler(&accountServiceStub{
		listFn: func(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error) {
			captured = filter
			return []*domain.Account{{ID: "a"}, {ID: "b"}}, nil
		},
	}, &balanceServiceStub{})

	req := httptest.NewRequest(http.MethodGet, "/accounts?type=EXPENSE&parentId=p1&isActive=true", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.Type == nil || *captured.Type != domain.AccountTypeExpense {
		t.Fatalf("expected EXPENSE filter, got %+v", captured.Type)
	}
	if captured.ParentID == nil || *captured.ParentID != "p1" {
		t.Fatalf("expected parent filter, got %+v", captured.ParentID)
	}
	if captured.IsActive == nil || !*captured.IsActive {
		t.Fatalf("expected isActive filter, got %+v", captured.IsActive)
	}

	var resp dto.ListAccountsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 2 || len(resp.Accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %+v", resp)
	}
}

func TestAccountHandler_List_InvalidType(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{}, &balanceServiceStub{})

	req := httptest.NewRequest(http.MethodGet, "/accounts?type=MONEY", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAccountHandler_Balance(t *testing.T) {
	stub := &balanceServiceStub{}
	handler := NewAccountHandler(&accountServiceStub{}, stub)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/accounts/acc-1/balance?asOf=2025-03-31", nil), "id", "acc-1")
	rec := httptest.NewRecorder()
	handler.Balance(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.ranged || !stub.asOf.Equal(time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected point-in-time balance at 2025-03-31, got range=%v asOf=%v", stub.ranged, stub.asOf)
	}

	var resp dto.AccountBalanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.NormalBalance.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected normal balance 60, got %s", resp.NormalBalance)
	}

	req = withURLParam(httptest.NewRequest(http.MethodGet, "/accounts/acc-1/balance?from=2025-01-01&to=2025-01-31", nil), "id", "acc-1")
	rec = httptest.NewRecorder()
	handler.Balance(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !stub.ranged || stub.from.Day() != 1 || stub.to.Day() != 31 {
		t.Fatalf("expected January range, got %v..%v", stub.from, stub.to)
	}
}

func TestAccountHandler_Balance_BadDate(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{}, &balanceServiceStub{})

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/accounts/acc-1/balance?asOf=31-03-2025", nil), "id", "acc-1")
	rec := httptest.NewRecorder()
	handler.Balance(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAccountHandler_Seed(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{
		seedFn: func(ctx context.Context) (*usecase.SeedResult, error) {
			return &usecase.SeedResult{Created: 20, Skipped: 3}, nil
		},
	}, &balanceServiceStub{})

	req := httptest.NewRequest(http.MethodPost, "/accounts/seed", nil)
	rec := httptest.NewRecorder()
	handler.Seed(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp usecase.SeedResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Created != 20 || resp.Skipped != 3 {
		t.Fatalf("unexpected seed result %+v", resp)
	}
}
