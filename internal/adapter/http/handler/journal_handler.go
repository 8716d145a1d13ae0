package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// JournalService defines the behavior needed by JournalHandler.
type JournalService interface {
	CreateJournalEntry(ctx context.Context, input usecase.CreateJournalEntryInput) (*domain.JournalEntry, error)
	PostJournalEntry(ctx context.Context, id string) (*domain.JournalEntry, error)
	ReverseJournalEntry(ctx context.Context, input usecase.ReverseJournalEntryInput) (*domain.JournalEntry, error)
	GetJournalEntry(ctx context.Context, id string) (*domain.JournalEntry, error)
	ListJournalEntries(ctx context.Context, input usecase.ListJournalEntriesInput) (*usecase.JournalEntryPage, error)
}

// JournalHandler handles journal entry HTTP requests.
type JournalHandler struct {
	journalUC JournalService
}

// NewJournalHandler creates a new JournalHandler.
func NewJournalHandler(journalUC JournalService) *JournalHandler {
	return &JournalHandler{journalUC: journalUC}
}

// Create records a manual journal entry, posting it when postImmediately is set.
func (h *JournalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateJournalEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.journalUC.CreateJournalEntry(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to create journal entry", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.JournalEntryFromDomain(entry))
}

// List returns a page of journal entries, newest first.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeDomainError(w, "invalid query", err)
		return
	}
	isPosted, err := parseBoolQuery(r, "isPosted")
	if err != nil {
		writeDomainError(w, "invalid query", err)
		return
	}

	page, err := h.journalUC.ListJournalEntries(r.Context(), usecase.ListJournalEntriesInput{
		From:     from,
		To:       to,
		IsPosted: isPosted,
		StoreID:  optionalQuery(r, "storeId"),
		Page:     parseIntQuery(r, "page", 1),
		Limit:    parseIntQuery(r, "limit", 50),
	})
	if err != nil {
		writeDomainError(w, "failed to list journal entries", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.JournalEntryPageFromUseCase(page))
}

// Get retrieves a journal entry with its lines.
func (h *JournalHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.journalUC.GetJournalEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get journal entry", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.JournalEntryFromDomain(entry))
}

// Post posts a draft entry.
func (h *JournalHandler) Post(w http.ResponseWriter, r *http.Request) {
	entry, err := h.journalUC.PostJournalEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to post journal entry", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.JournalEntryFromDomain(entry))
}

// Reverse posts the mirror image of a posted entry. The body is optional.
func (h *JournalHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	var req dto.ReverseJournalEntryRequest
	if r.ContentLength != 0 && r.Body != http.NoBody {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	entry, err := h.journalUC.ReverseJournalEntry(r.Context(), req.ToUseCaseInput(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "failed to reverse journal entry", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.JournalEntryFromDomain(entry))
}
