package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

type journalServiceStub struct {
	created  usecase.CreateJournalEntryInput
	reversed usecase.ReverseJournalEntryInput
	listed   usecase.ListJournalEntriesInput
	posted   string
	err      error
}

func (s *journalServiceStub) CreateJournalEntry(_ context.Context, input usecase.CreateJournalEntryInput) (*domain.JournalEntry, error) {
	s.created = input
	if s.err != nil {
		return nil, s.err
	}
	return &domain.JournalEntry{ID: "je-1", Reference: "JE-1", Date: input.Date, Lines: input.Lines}, nil
}

func (s *journalServiceStub) PostJournalEntry(_ context.Context, id string) (*domain.JournalEntry, error) {
	s.posted = id
	if s.err != nil {
		return nil, s.err
	}
	return &domain.JournalEntry{ID: id, IsPosted: true}, nil
}

func (s *journalServiceStub) ReverseJournalEntry(_ context.Context, input usecase.ReverseJournalEntryInput) (*domain.JournalEntry, error) {
	s.reversed = input
	if s.err != nil {
		return nil, s.err
	}
	return &domain.JournalEntry{ID: "je-2", ReversesID: &input.ID, IsPosted: true}, nil
}

func (s *journalServiceStub) GetJournalEntry(_ context.Context, id string) (*domain.JournalEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.JournalEntry{ID: id}, nil
}

func (s *journalServiceStub) ListJournalEntries(_ context.Context, input usecase.ListJournalEntriesInput) (*usecase.JournalEntryPage, error) {
	s.listed = input
	return &usecase.JournalEntryPage{
		Entries:    []*domain.JournalEntry{{ID: "je-1"}},
		Total:      1,
		Page:       input.Page,
		Limit:      input.Limit,
		TotalPages: 1,
	}, nil
}

func TestJournalHandler_Create(t *testing.T) {
	stub := &journalServiceStub{}
	handler := NewJournalHandler(stub)

	body := `{"description":"Rent","date":"2025-02-01","postImmediately":true,
		"lines":[{"accountId":"exp","debit":"1200"},{"accountId":"cash","credit":"1200"}]}`
	req := httptest.NewRequest(http.MethodPost, "/journal-entries", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !stub.created.PostImmediately || stub.created.SourceType != "manual" {
		t.Fatalf("unexpected input %+v", stub.created)
	}
	if len(stub.created.Lines) != 2 || !stub.created.Lines[0].Debit.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("lines not carried through: %+v", stub.created.Lines)
	}
	if !stub.created.Date.Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", stub.created.Date)
	}

	var resp dto.JournalEntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Date.Format(dto.DateLayout) != "2025-02-01" {
		t.Fatalf("expected date 2025-02-01, got %v", resp.Date)
	}
}

func TestJournalHandler_Create_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"missing lines", `{"date":"2025-02-01","lines":[]}`, nil, http.StatusBadRequest},
		{"missing date", `{"lines":[{"accountId":"a","debit":"1"}]}`, nil, http.StatusBadRequest},
		{"bad date", `{"date":"02/01/2025","lines":[{"accountId":"a","debit":"1"}]}`, nil, http.StatusBadRequest},
		{"unbalanced", `{"date":"2025-02-01","lines":[{"accountId":"a","debit":"1"}]}`, domain.ErrUnbalancedEntry, http.StatusBadRequest},
		{"unknown account", `{"date":"2025-02-01","lines":[{"accountId":"a","debit":"1"}]}`, domain.ErrAccountNotFound, http.StatusNotFound},
		{"duplicate reference", `{"date":"2025-02-01","lines":[{"accountId":"a","debit":"1"}]}`, domain.ErrDuplicateReference, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewJournalHandler(&journalServiceStub{err: tt.err})
			rec := httptest.NewRecorder()
			handler.Create(rec, httptest.NewRequest(http.MethodPost, "/journal-entries", bytes.NewBufferString(tt.body)))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestJournalHandler_List(t *testing.T) {
	stub := &journalServiceStub{}
	handler := NewJournalHandler(stub)

	req := httptest.NewRequest(http.MethodGet, "/journal-entries?page=2&limit=10&startDate=2025-01-01&endDate=2025-01-31&isPosted=true&storeId=s1", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	in := stub.listed
	if in.Page != 2 || in.Limit != 10 {
		t.Fatalf("expected page 2 limit 10, got %d/%d", in.Page, in.Limit)
	}
	if in.From == nil || in.To == nil || in.IsPosted == nil || !*in.IsPosted {
		t.Fatalf("filters not parsed: %+v", in)
	}
	if in.StoreID == nil || *in.StoreID != "s1" {
		t.Fatalf("expected store filter, got %v", in.StoreID)
	}

	var resp dto.JournalEntryPageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Pagination.Total != 1 || len(resp.Entries) != 1 {
		t.Fatalf("unexpected page %+v", resp)
	}
}

func TestJournalHandler_List_InvertedRange(t *testing.T) {
	handler := NewJournalHandler(&journalServiceStub{})
	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/journal-entries?startDate=2025-02-01&endDate=2025-01-01", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestJournalHandler_Post(t *testing.T) {
	stub := &journalServiceStub{}
	handler := NewJournalHandler(stub)

	rec := httptest.NewRecorder()
	handler.Post(rec, withURLParam(httptest.NewRequest(http.MethodPost, "/journal-entries/je-1/post", nil), "id", "je-1"))

	if rec.Code != http.StatusOK || stub.posted != "je-1" {
		t.Fatalf("expected je-1 posted with 200, got %d (%q)", rec.Code, stub.posted)
	}

	stub.err = domain.ErrAlreadyPosted
	rec = httptest.NewRecorder()
	handler.Post(rec, withURLParam(httptest.NewRequest(http.MethodPost, "/journal-entries/je-1/post", nil), "id", "je-1"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for an already posted entry, got %d", rec.Code)
	}
}

func TestJournalHandler_Reverse(t *testing.T) {
	stub := &journalServiceStub{}
	handler := NewJournalHandler(stub)

	rec := httptest.NewRecorder()
	handler.Reverse(rec, withURLParam(httptest.NewRequest(http.MethodPost, "/journal-entries/je-1/reverse", nil), "id", "je-1"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 without a body, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.reversed.ID != "je-1" || stub.reversed.Date != nil {
		t.Fatalf("unexpected input %+v", stub.reversed)
	}

	body := bytes.NewBufferString(`{"date":"2025-03-01","description":"Correction"}`)
	rec = httptest.NewRecorder()
	handler.Reverse(rec, withURLParam(httptest.NewRequest(http.MethodPost, "/journal-entries/je-1/reverse", body), "id", "je-1"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.reversed.Date == nil || stub.reversed.Description != "Correction" {
		t.Fatalf("body not carried through: %+v", stub.reversed)
	}

	stub.err = domain.ErrEntryNotPosted
	rec = httptest.NewRecorder()
	handler.Reverse(rec, withURLParam(httptest.NewRequest(http.MethodPost, "/journal-entries/je-1/reverse", nil), "id", "je-1"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a draft entry, got %d", rec.Code)
	}
}
