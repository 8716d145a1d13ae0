package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// ReconciliationService defines the behavior needed by ReconciliationHandler.
type ReconciliationService interface {
	AutoMatch(ctx context.Context, storeID *string) (*usecase.AutoMatchResult, error)
	CreateMatch(ctx context.Context, input usecase.CreateMatchInput) (*domain.ReconciliationMatch, error)
	UpdateMatch(ctx context.Context, id string, input usecase.UpdateMatchInput) (*domain.ReconciliationMatch, error)
	DeleteMatch(ctx context.Context, id string) error
	ListMatches(ctx context.Context, input usecase.ListMatchesInput) (*usecase.MatchPage, error)
	UnmatchedPayouts(ctx context.Context, storeID *string) ([]*domain.Payout, error)
	UnmatchedOrders(ctx context.Context, storeID *string) ([]*domain.Order, error)
	Summary(ctx context.Context, storeID *string) (*usecase.ReconciliationSummary, error)
}

// ReconciliationHandler serves /reconciliation.
type ReconciliationHandler struct {
	reconUC ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconUC ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconUC: reconUC}
}

// List returns a page of matches.
func (h *ReconciliationHandler) List(w http.ResponseWriter, r *http.Request) {
	isMatched, err := parseBoolQuery(r, "isMatched")
	if err != nil {
		writeDomainError(w, "invalid query", err)
		return
	}

	page, err := h.reconUC.ListMatches(r.Context(), usecase.ListMatchesInput{
		StoreID:   optionalQuery(r, "storeId"),
		IsMatched: isMatched,
		Page:      parseIntQuery(r, "page", 1),
		Limit:     parseIntQuery(r, "limit", 50),
	})
	if err != nil {
		writeDomainError(w, "failed to list matches", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MatchPageFromUseCase(page))
}

// Create records a manual match.
func (h *ReconciliationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateMatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	match, err := h.reconUC.CreateMatch(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to create match", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.MatchFromDomain(match))
}

// Update toggles a match or corrects its amount.
func (h *ReconciliationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateMatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	match, err := h.reconUC.UpdateMatch(r.Context(), chi.URLParam(r, "id"), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to update match", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MatchFromDomain(match))
}

// Delete removes a match.
func (h *ReconciliationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.reconUC.DeleteMatch(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "failed to delete match", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AutoMatch pairs unmatched payouts with unmatched orders.
func (h *ReconciliationHandler) AutoMatch(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconUC.AutoMatch(r.Context(), optionalQuery(r, "storeId"))
	if err != nil {
		writeDomainError(w, "failed to auto-match", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// UnmatchedPayouts lists payouts without a match.
func (h *ReconciliationHandler) UnmatchedPayouts(w http.ResponseWriter, r *http.Request) {
	payouts, err := h.reconUC.UnmatchedPayouts(r.Context(), optionalQuery(r, "storeId"))
	if err != nil {
		writeDomainError(w, "failed to list unmatched payouts", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"payouts": dto.PayoutsFromDomain(payouts)})
}

// UnmatchedOrders lists paid orders without a match.
func (h *ReconciliationHandler) UnmatchedOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.reconUC.UnmatchedOrders(r.Context(), optionalQuery(r, "storeId"))
	if err != nil {
		writeDomainError(w, "failed to list unmatched orders", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"orders": dto.OrdersFromDomain(orders)})
}

// Summary counts matched and unmatched activity.
func (h *ReconciliationHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reconUC.Summary(r.Context(), optionalQuery(r, "storeId"))
	if err != nil {
		writeDomainError(w, "failed to summarize reconciliation", err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
