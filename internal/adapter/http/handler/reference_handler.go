package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// ReferenceDataService maintains the master data reports read.
type ReferenceDataService interface {
	UpsertStore(ctx context.Context, input usecase.UpsertStoreInput) (*domain.Store, error)
	ListStores(ctx context.Context) ([]*domain.Store, error)
	CreateDocument(ctx context.Context, input usecase.CreateDocumentInput) (*domain.Document, error)
	ListDocuments(ctx context.Context, filter domain.DocumentFilter) ([]*domain.Document, error)
	CreateExchangeRate(ctx context.Context, input usecase.CreateExchangeRateInput) (*domain.ExchangeRate, error)
	SetBudget(ctx context.Context, input usecase.SetBudgetInput) (*domain.Budget, error)
	CreateInventoryItem(ctx context.Context, input usecase.CreateInventoryItemInput) (*domain.InventoryItem, error)
	RecordStockMovement(ctx context.Context, itemID string, movement domain.StockMovement) error
	CreateFixedAsset(ctx context.Context, input usecase.CreateFixedAssetInput) (*domain.FixedAsset, error)
	GetSettings(ctx context.Context) (*domain.Settings, error)
	SaveSettings(ctx context.Context, settings *domain.Settings) error
}

// ReferenceHandler serves stores, documents, rates, budgets, inventory,
// fixed assets and settings.
type ReferenceHandler struct {
	refUC ReferenceDataService
}

// NewReferenceHandler creates a new ReferenceHandler.
func NewReferenceHandler(refUC ReferenceDataService) *ReferenceHandler {
	return &ReferenceHandler{refUC: refUC}
}

// UpsertStore creates or updates a store by domain.
func (h *ReferenceHandler) UpsertStore(w http.ResponseWriter, r *http.Request) {
	var req dto.UpsertStoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	store, err := h.refUC.UpsertStore(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to save store", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StoreFromDomain(store))
}

// ListStores lists every store.
func (h *ReferenceHandler) ListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.refUC.ListStores(r.Context())
	if err != nil {
		writeDomainError(w, "failed to list stores", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"stores": dto.StoresFromDomain(stores)})
}

// CreateDocument records an invoice or bill.
func (h *ReferenceHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	doc, err := h.refUC.CreateDocument(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to create document", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.DocumentFromDomain(doc))
}

// ListDocuments lists documents filtered by kind, currency and openOnly.
func (h *ReferenceHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	var filter domain.DocumentFilter
	if kind := strings.ToUpper(r.URL.Query().Get("kind")); kind != "" {
		filter.Kind = domain.DocumentKind(kind)
		if filter.Kind != domain.DocumentKindInvoice && filter.Kind != domain.DocumentKindBill {
			writeDomainError(w, "invalid filter", domain.NewValidationError("kind", "must be INVOICE or BILL"))
			return
		}
	}
	openOnly, err := parseBoolQuery(r, "openOnly")
	if err != nil {
		writeDomainError(w, "invalid filter", err)
		return
	}
	filter.OpenOnly = openOnly != nil && *openOnly
	filter.Currency = optionalQuery(r, "currency")

	docs, err := h.refUC.ListDocuments(r.Context(), filter)
	if err != nil {
		writeDomainError(w, "failed to list documents", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"documents": dto.DocumentsFromDomain(docs)})
}

// CreateExchangeRate records a conversion rate.
func (h *ReferenceHandler) CreateExchangeRate(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateExchangeRateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rate, err := h.refUC.CreateExchangeRate(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to create exchange rate", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ExchangeRateFromDomain(rate))
}

// SetBudget sets the planned amount for an account and period.
func (h *ReferenceHandler) SetBudget(w http.ResponseWriter, r *http.Request) {
	var req dto.SetBudgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	budget, err := h.refUC.SetBudget(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to set budget", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BudgetFromDomain(budget))
}

// CreateInventoryItem registers a stock-keeping unit.
func (h *ReferenceHandler) CreateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateInventoryItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.refUC.CreateInventoryItem(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to create inventory item", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.InventoryItemFromDomain(item))
}

// RecordStockMovement records stock in or out of an item.
func (h *ReferenceHandler) RecordStockMovement(w http.ResponseWriter, r *http.Request) {
	var req dto.StockMovementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.refUC.RecordStockMovement(r.Context(), chi.URLParam(r, "id"), req.ToDomain()); err != nil {
		writeDomainError(w, "failed to record stock movement", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateFixedAsset registers a depreciable asset.
func (h *ReferenceHandler) CreateFixedAsset(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateFixedAssetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	asset, err := h.refUC.CreateFixedAsset(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to create fixed asset", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.FixedAssetFromDomain(asset))
}

// GetSettings returns the default-account settings.
func (h *ReferenceHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.refUC.GetSettings(r.Context())
	if err != nil {
		writeDomainError(w, "failed to load settings", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettingsFromDomain(settings))
}

// SaveSettings replaces the default-account settings.
func (h *ReferenceHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var req dto.Settings
	if !decodeJSON(w, r, &req) {
		return
	}

	settings := req.ToDomain()
	if err := h.refUC.SaveSettings(r.Context(), settings); err != nil {
		writeDomainError(w, "failed to save settings", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettingsFromDomain(settings))
}
