package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/usecase"
)

func TestHealthHandler_Readiness(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name   string
		checks map[string]Pinger
		status int
	}{
		{"all healthy", map[string]Pinger{"postgres": ok, "redis": ok}, http.StatusOK},
		{"optional redis absent", map[string]Pinger{"postgres": ok, "redis": nil}, http.StatusOK},
		{"no dependencies", nil, http.StatusOK},
		{"redis down", map[string]Pinger{"postgres": ok, "redis": down}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.checks).Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHealthHandler_Liveness(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(nil).Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

type ledgerServiceStub struct {
	result *usecase.ConsistencyResult
	err    error
}

func (s ledgerServiceStub) CheckConsistency(context.Context) (*usecase.ConsistencyResult, error) {
	return s.result, s.err
}

func TestLedgerHandler_CheckConsistency(t *testing.T) {
	balanced := &usecase.ConsistencyResult{
		TotalDebit:  decimal.NewFromInt(500),
		TotalCredit: decimal.NewFromInt(500),
		Consistent:  true,
	}
	off := &usecase.ConsistencyResult{
		TotalDebit:  decimal.NewFromInt(500),
		TotalCredit: decimal.NewFromInt(490),
		Difference:  decimal.NewFromInt(10),
	}

	tests := []struct {
		name       string
		stub       ledgerServiceStub
		status     int
		consistent bool
	}{
		{"consistent", ledgerServiceStub{result: balanced}, http.StatusOK, true},
		{"inconsistent", ledgerServiceStub{result: off, err: usecase.ErrInconsistentLedger}, http.StatusConflict, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewLedgerHandler(tt.stub).CheckConsistency(rec, httptest.NewRequest(http.MethodGet, "/ledger/consistency", nil))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			var resp dto.ConsistencyResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Consistent != tt.consistent {
				t.Fatalf("expected consistent=%v, got %v", tt.consistent, resp.Consistent)
			}
		})
	}

	rec := httptest.NewRecorder()
	NewLedgerHandler(ledgerServiceStub{err: errors.New("db down")}).CheckConsistency(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
