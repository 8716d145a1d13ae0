package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	CreateAccount(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error)
	UpdateAccount(ctx context.Context, id string, input usecase.UpdateAccountInput) (*domain.Account, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error)
	SeedDefaultChart(ctx context.Context) (*usecase.SeedResult, error)
}

// BalanceService computes single-account balances.
type BalanceService interface {
	AccountBalance(ctx context.Context, accountID string, asOf time.Time) (*usecase.AccountBalance, error)
	AccountBalanceForRange(ctx context.Context, accountID string, from, to time.Time) (*usecase.AccountBalance, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC AccountService
	balanceUC BalanceService
	now       func() time.Time
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService, balanceUC BalanceService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC, balanceUC: balanceUC, now: time.Now}
}

// Create creates a new account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accountUC.CreateAccount(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to create account", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Update applies a partial update to an account.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accountUC.UpdateAccount(r.Context(), chi.URLParam(r, "id"), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to update account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// Get retrieves an account by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	account, err := h.accountUC.GetAccount(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists accounts, optionally filtered by type, parent and status.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter domain.AccountFilter
	if t := r.URL.Query().Get("type"); t != "" {
		accountType := domain.AccountType(t)
		if !accountType.IsValid() {
			writeDomainError(w, "invalid filter", domain.NewValidationError("type", "unknown account type"))
			return
		}
		filter.Type = &accountType
	}
	filter.ParentID = optionalQuery(r, "parentId")

	isActive, err := parseBoolQuery(r, "isActive")
	if err != nil {
		writeDomainError(w, "invalid filter", err)
		return
	}
	filter.IsActive = isActive

	accounts, err := h.accountUC.ListAccounts(r.Context(), filter)
	if err != nil {
		writeDomainError(w, "failed to list accounts", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Total:    int64(len(accounts)),
	})
}

// Balance returns an account's balance as of a date (asOf) or over a range (from, to).
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	asOf, err := parseDateQuery(r, "asOf")
	if err != nil {
		writeDomainError(w, "invalid query", err)
		return
	}
	from, err := parseDateQuery(r, "from")
	if err != nil {
		writeDomainError(w, "invalid query", err)
		return
	}
	to, err := parseDateQuery(r, "to")
	if err != nil {
		writeDomainError(w, "invalid query", err)
		return
	}

	end := h.now()
	var balance *usecase.AccountBalance
	switch {
	case from != nil:
		if to != nil {
			end = *to
		}
		balance, err = h.balanceUC.AccountBalanceForRange(r.Context(), id, *from, end)
	default:
		if asOf != nil {
			end = *asOf
		} else if to != nil {
			end = *to
		}
		balance, err = h.balanceUC.AccountBalance(r.Context(), id, end)
	}
	if err != nil {
		writeDomainError(w, "failed to get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountBalanceFromUseCase(balance))
}

// Seed installs the default chart of accounts. Existing codes are skipped.
func (h *AccountHandler) Seed(w http.ResponseWriter, r *http.Request) {
	result, err := h.accountUC.SeedDefaultChart(r.Context())
	if err != nil {
		writeDomainError(w, "failed to seed accounts", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
