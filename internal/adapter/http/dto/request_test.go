package dto

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

func TestCreateAccountRequest_ToUseCaseInput(t *testing.T) {
	parent := "acc-parent"
	req := &CreateAccountRequest{Code: "1010", Name: "Petty Cash", Type: "ASSET", Role: "CASH", ParentID: &parent}

	got := req.ToUseCaseInput()
	if got.Code != "1010" || got.Type != domain.AccountTypeAsset || got.Role != domain.AccountRoleCash || got.ParentID != &parent {
		t.Fatalf("unexpected input: %+v", got)
	}
}

func TestUpdateAccountRequest_LeavesAbsentFieldsNil(t *testing.T) {
	var req UpdateAccountRequest
	if err := json.Unmarshal([]byte(`{"name":"Renamed","role":"TAX"}`), &req); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	got := req.ToUseCaseInput()
	if got.Name == nil || *got.Name != "Renamed" {
		t.Fatalf("expected name to be set, got %v", got.Name)
	}
	if got.Role == nil || *got.Role != domain.AccountRoleTax {
		t.Fatalf("expected role TAX, got %v", got.Role)
	}
	if got.Code != nil || got.Type != nil || got.IsActive != nil {
		t.Fatalf("expected absent fields to stay nil, got %+v", got)
	}
}

func TestCreateJournalEntryRequest_Decode(t *testing.T) {
	body := `{
		"description": "Office rent",
		"date": "2025-01-31",
		"reference": "RENT-JAN",
		"lines": [
			{"accountId": "exp", "debit": "1200.00"},
			{"accountId": "cash", "credit": 1200}
		]
	}`

	var req CreateJournalEntryRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if err := Validate(&req); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	got := req.ToUseCaseInput()
	if !got.Date.Equal(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", got.Date)
	}
	if len(got.Lines) != 2 || !got.Lines[0].Debit.Equal(decimal.NewFromInt(1200)) || !got.Lines[1].Credit.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("unexpected lines: %+v", got.Lines)
	}
	if got.SourceType != "manual" {
		t.Fatalf("expected manual source, got %q", got.SourceType)
	}
}

func TestValidateReportsJSONFieldPaths(t *testing.T) {
	tests := []struct {
		name   string
		req    any
		fields []string
	}{
		{
			name:   "missing account fields",
			req:    &CreateAccountRequest{Type: "BOGUS"},
			fields: []string{"code", "name", "type"},
		},
		{
			name:   "journal entry without date or lines",
			req:    &CreateJournalEntryRequest{},
			fields: []string{"date", "lines"},
		},
		{
			name:   "line without account",
			req:    &CreateJournalEntryRequest{Date: &Date{time.Now()}, Lines: []JournalLineRequest{{Debit: decimal.NewFromInt(1)}}},
			fields: []string{"lines[0].accountId"},
		},
		{
			name:   "budget month out of range",
			req:    &SetBudgetRequest{AccountID: "a", FiscalYear: 2025, Month: 13},
			fields: []string{"month"},
		},
		{
			name:   "bad email and currency",
			req:    &OrderPaidRequest{ExternalID: "o", OrderNumber: "1", CustomerEmail: "nope", Currency: "DOLLARS"},
			fields: []string{"customerEmail", "currency"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}

			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *domain.ValidationError, got %T", err)
			}
			for _, field := range tt.fields {
				if _, ok := verr.Fields[field]; !ok {
					t.Errorf("expected field %q in %v", field, verr.Fields)
				}
			}
		})
	}
}

func TestDateAcceptsBothLayouts(t *testing.T) {
	var req ReverseJournalEntryRequest
	if err := json.Unmarshal([]byte(`{"date":"2025-02-01T10:00:00Z"}`), &req); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got := req.ToUseCaseInput("je-1"); got.Date == nil || got.Date.Day() != 1 || got.ID != "je-1" {
		t.Fatalf("unexpected input %+v", got)
	}

	if err := json.Unmarshal([]byte(`{"date":"01/02/2025"}`), &req); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for bad date, got %v", err)
	}

	var empty ReverseJournalEntryRequest
	if got := empty.ToUseCaseInput("je-1"); got.Date != nil {
		t.Fatalf("expected nil date, got %v", got.Date)
	}
}

func TestUpsertStoreRequestDefaultsActive(t *testing.T) {
	req := &UpsertStoreRequest{Domain: "shop.example.com", Name: "Shop"}
	if !req.ToUseCaseInput().IsActive {
		t.Fatal("stores should default to active")
	}

	inactive := false
	req.IsActive = &inactive
	if req.ToUseCaseInput().IsActive {
		t.Fatal("explicit isActive=false should be kept")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	cash := "acc-cash"
	in := &Settings{DefaultCashAccountID: &cash}

	out := SettingsFromDomain(in.ToDomain())
	if out.DefaultCashAccountID == nil || *out.DefaultCashAccountID != cash || out.DefaultTaxAccountID != nil {
		t.Fatalf("unexpected settings %+v", out)
	}
	if SettingsFromDomain(nil) == nil {
		t.Fatal("nil settings should map to an empty object")
	}
}
