package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Role      string    `json:"role,omitempty"`
	ParentID  *string   `json:"parentId,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		Code:      a.Code,
		Name:      a.Name,
		Type:      string(a.Type),
		Role:      string(a.Role),
		ParentID:  a.ParentID,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	return mapAll(accounts, AccountFromDomain)
}

// ListAccountsResponse represents the account listing.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// AccountBalanceResponse is an account's balance as of a date or over a range.
type AccountBalanceResponse struct {
	Account       *AccountResponse `json:"account"`
	From          *Date            `json:"from,omitempty"`
	To            Date             `json:"to"`
	Debit         decimal.Decimal  `json:"debit"`
	Credit        decimal.Decimal  `json:"credit"`
	Balance       decimal.Decimal  `json:"balance"`
	NormalBalance decimal.Decimal  `json:"normalBalance"`
}

// AccountBalanceFromUseCase converts a use case balance to response.
func AccountBalanceFromUseCase(b *usecase.AccountBalance) *AccountBalanceResponse {
	resp := &AccountBalanceResponse{
		Account:       AccountFromDomain(b.Account),
		To:            Date{b.To},
		Debit:         b.Debit,
		Credit:        b.Credit,
		Balance:       b.Balance,
		NormalBalance: b.NormalBalance,
	}
	if b.From != nil {
		resp.From = &Date{*b.From}
	}
	return resp
}

// JournalLineResponse represents a journal line in API responses.
type JournalLineResponse struct {
	ID          string          `json:"id"`
	LineNo      int             `json:"lineNo"`
	AccountID   string          `json:"accountId"`
	AccountCode string          `json:"accountCode,omitempty"`
	AccountName string          `json:"accountName,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// JournalEntryResponse represents a journal entry in API responses.
type JournalEntryResponse struct {
	ID          string                 `json:"id"`
	Reference   string                 `json:"reference"`
	Description string                 `json:"description"`
	Date        Date                   `json:"date"`
	StoreID     *string                `json:"storeId,omitempty"`
	SourceType  string                 `json:"sourceType,omitempty"`
	SourceID    string                 `json:"sourceId,omitempty"`
	ReversesID  *string                `json:"reversesId,omitempty"`
	TotalDebit  decimal.Decimal        `json:"totalDebit"`
	TotalCredit decimal.Decimal        `json:"totalCredit"`
	IsPosted    bool                   `json:"isPosted"`
	PostedAt    *time.Time             `json:"postedAt,omitempty"`
	CreatedBy   string                 `json:"createdBy"`
	CreatedAt   time.Time              `json:"createdAt"`
	Lines       []*JournalLineResponse `json:"lines"`
}

// JournalEntryFromDomain converts domain entry to response.
func JournalEntryFromDomain(e *domain.JournalEntry) *JournalEntryResponse {
	lines := make([]*JournalLineResponse, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = &JournalLineResponse{
			ID:          l.ID,
			LineNo:      l.LineNo,
			AccountID:   l.AccountID,
			AccountCode: l.AccountCode,
			AccountName: l.AccountName,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		}
	}
	return &JournalEntryResponse{
		ID:          e.ID,
		Reference:   e.Reference,
		Description: e.Description,
		Date:        Date{e.Date},
		StoreID:     e.StoreID,
		SourceType:  e.SourceType,
		SourceID:    e.SourceID,
		ReversesID:  e.ReversesID,
		TotalDebit:  e.TotalDebit,
		TotalCredit: e.TotalCredit,
		IsPosted:    e.IsPosted,
		PostedAt:    e.PostedAt,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
		Lines:       lines,
	}
}

// Pagination describes a page of results.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// JournalEntryPageResponse is a page of journal entries.
type JournalEntryPageResponse struct {
	Entries    []*JournalEntryResponse `json:"entries"`
	Pagination Pagination              `json:"pagination"`
}

// JournalEntryPageFromUseCase converts a use case page to response.
func JournalEntryPageFromUseCase(p *usecase.JournalEntryPage) *JournalEntryPageResponse {
	return &JournalEntryPageResponse{
		Entries:    mapAll(p.Entries, JournalEntryFromDomain),
		Pagination: Pagination{Total: p.Total, Page: p.Page, Limit: p.Limit, TotalPages: p.TotalPages},
	}
}

// MatchResponse represents a reconciliation match in API responses.
type MatchResponse struct {
	ID        string          `json:"id"`
	PayoutID  string          `json:"payoutId"`
	OrderID   string          `json:"orderId"`
	AccountID string          `json:"accountId,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	IsMatched bool            `json:"isMatched"`
	MatchedAt *time.Time      `json:"matchedAt,omitempty"`
	Method    string          `json:"method"`
	CreatedBy string          `json:"createdBy"`
	CreatedAt time.Time       `json:"createdAt"`
}

// MatchFromDomain converts domain match to response.
func MatchFromDomain(m *domain.ReconciliationMatch) *MatchResponse {
	return &MatchResponse{
		ID:        m.ID,
		PayoutID:  m.PayoutID,
		OrderID:   m.OrderID,
		AccountID: m.AccountID,
		Amount:    m.Amount,
		IsMatched: m.IsMatched,
		MatchedAt: m.MatchedAt,
		Method:    string(m.Method),
		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt,
	}
}

// MatchPageResponse is a page of reconciliation matches.
type MatchPageResponse struct {
	Matches    []*MatchResponse `json:"matches"`
	Pagination Pagination       `json:"pagination"`
}

// MatchPageFromUseCase converts a use case page to response.
func MatchPageFromUseCase(p *usecase.MatchPage) *MatchPageResponse {
	return &MatchPageResponse{
		Matches:    mapAll(p.Matches, MatchFromDomain),
		Pagination: Pagination{Total: p.Total, Page: p.Page, Limit: p.Limit, TotalPages: p.TotalPages},
	}
}

// PayoutResponse represents a payout in API responses.
type PayoutResponse struct {
	ID         string          `json:"id"`
	ExternalID string          `json:"externalId"`
	StoreID    *string         `json:"storeId,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Fee        decimal.Decimal `json:"fee"`
	Currency   string          `json:"currency"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// PayoutFromDomain converts domain payout to response.
func PayoutFromDomain(p *domain.Payout) *PayoutResponse {
	return &PayoutResponse{
		ID:         p.ID,
		ExternalID: p.ExternalID,
		StoreID:    p.StoreID,
		Amount:     p.Amount,
		Fee:        p.Fee,
		Currency:   p.Currency,
		Status:     p.Status,
		CreatedAt:  p.CreatedAt,
	}
}

// PayoutsFromDomain converts domain payouts to responses.
func PayoutsFromDomain(payouts []*domain.Payout) []*PayoutResponse {
	return mapAll(payouts, PayoutFromDomain)
}

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID              string          `json:"id"`
	ExternalID      string          `json:"externalId"`
	StoreID         *string         `json:"storeId,omitempty"`
	OrderNumber     string          `json:"orderNumber"`
	Customer        string          `json:"customer"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	TotalTax        decimal.Decimal `json:"totalTax"`
	Currency        string          `json:"currency"`
	FinancialStatus string          `json:"financialStatus"`
	ProcessedAt     *time.Time      `json:"processedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// OrderFromDomain converts domain order to response.
func OrderFromDomain(o *domain.Order) *OrderResponse {
	return &OrderResponse{
		ID:              o.ID,
		ExternalID:      o.ExternalID,
		StoreID:         o.StoreID,
		OrderNumber:     o.OrderNumber,
		Customer:        o.Customer(),
		TotalPrice:      o.TotalPrice,
		TotalTax:        o.TotalTax,
		Currency:        o.Currency,
		FinancialStatus: o.FinancialStatus,
		ProcessedAt:     o.ProcessedAt,
		CreatedAt:       o.CreatedAt,
	}
}

// OrdersFromDomain converts domain orders to responses.
func OrdersFromDomain(orders []*domain.Order) []*OrderResponse {
	return mapAll(orders, OrderFromDomain)
}

// PostingResponse reports the outcome of an ingested commerce event.
type PostingResponse struct {
	Reference string                `json:"reference,omitempty"`
	Duplicate bool                  `json:"duplicate"`
	Queued    bool                  `json:"queued"`
	Entry     *JournalEntryResponse `json:"entry,omitempty"`
}

// PostingFromUseCase converts a posting result to response.
func PostingFromUseCase(r *usecase.PostingResult) *PostingResponse {
	resp := &PostingResponse{Reference: r.Reference, Duplicate: r.Duplicate}
	if r.Entry != nil {
		resp.Entry = JournalEntryFromDomain(r.Entry)
	}
	return resp
}

// StoreResponse represents a store in API responses.
type StoreResponse struct {
	ID        string    `json:"id"`
	Domain    string    `json:"domain"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// StoreFromDomain converts domain store to response.
func StoreFromDomain(s *domain.Store) *StoreResponse {
	return &StoreResponse{
		ID:        s.ID,
		Domain:    s.Domain,
		Name:      s.Name,
		Currency:  s.Currency,
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
	}
}

// StoresFromDomain converts domain stores to responses.
func StoresFromDomain(stores []*domain.Store) []*StoreResponse {
	return mapAll(stores, StoreFromDomain)
}

// DocumentResponse represents an invoice or bill in API responses.
type DocumentResponse struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	Number       string          `json:"number"`
	Counterparty string          `json:"counterparty"`
	Currency     string          `json:"currency"`
	Total        decimal.Decimal `json:"total"`
	Paid         decimal.Decimal `json:"paid"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	BookedRate   decimal.Decimal `json:"bookedRate"`
	IssueDate    Date            `json:"issueDate"`
	DueDate      Date            `json:"dueDate"`
	Status       string          `json:"status"`
}

// DocumentFromDomain converts domain document to response.
func DocumentFromDomain(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:           d.ID,
		Kind:         string(d.Kind),
		Number:       d.Number,
		Counterparty: d.Counterparty,
		Currency:     d.Currency,
		Total:        d.Total,
		Paid:         d.Paid,
		Outstanding:  d.Outstanding(),
		BookedRate:   d.BookedRate,
		IssueDate:    Date{d.IssueDate},
		DueDate:      Date{d.DueDate},
		Status:       d.Status,
	}
}

// DocumentsFromDomain converts domain documents to responses.
func DocumentsFromDomain(docs []*domain.Document) []*DocumentResponse {
	return mapAll(docs, DocumentFromDomain)
}

// ExchangeRateResponse represents a rate in API responses.
type ExchangeRateResponse struct {
	ID            string          `json:"id"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Rate          decimal.Decimal `json:"rate"`
	EffectiveDate Date            `json:"effectiveDate"`
}

// ExchangeRateFromDomain converts domain rate to response.
func ExchangeRateFromDomain(r *domain.ExchangeRate) *ExchangeRateResponse {
	return &ExchangeRateResponse{ID: r.ID, From: r.From, To: r.To, Rate: r.Rate, EffectiveDate: Date{r.EffectiveDate}}
}

// BudgetResponse represents a budget in API responses.
type BudgetResponse struct {
	ID         string          `json:"id"`
	AccountID  string          `json:"accountId"`
	FiscalYear int             `json:"fiscalYear"`
	Month      int             `json:"month"`
	Amount     decimal.Decimal `json:"amount"`
}

// BudgetFromDomain converts domain budget to response.
func BudgetFromDomain(b *domain.Budget) *BudgetResponse {
	return &BudgetResponse{ID: b.ID, AccountID: b.AccountID, FiscalYear: b.FiscalYear, Month: b.Month, Amount: b.Amount}
}

// InventoryItemResponse represents an inventory item in API responses.
type InventoryItemResponse struct {
	ID             string          `json:"id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Category       string          `json:"category,omitempty"`
	Method         string          `json:"method"`
	QuantityOnHand int64           `json:"quantityOnHand"`
	TotalValue     decimal.Decimal `json:"totalValue"`
}

// InventoryItemFromDomain converts domain item to response, valued at its method.
func InventoryItemFromDomain(item *domain.InventoryItem) *InventoryItemResponse {
	v := item.Value()
	return &InventoryItemResponse{
		ID:             item.ID,
		SKU:            item.SKU,
		Name:           item.Name,
		Category:       item.Category,
		Method:         string(item.Method),
		QuantityOnHand: v.QuantityOnHand,
		TotalValue:     v.TotalValue,
	}
}

// FixedAssetResponse represents a fixed asset in API responses.
type FixedAssetResponse struct {
	ID               string          `json:"id"`
	Number           string          `json:"number"`
	Name             string          `json:"name"`
	Category         string          `json:"category,omitempty"`
	PurchaseDate     Date            `json:"purchaseDate"`
	Cost             decimal.Decimal `json:"cost"`
	SalvageValue     decimal.Decimal `json:"salvageValue"`
	UsefulLifeMonths int             `json:"usefulLifeMonths"`
	DisposalDate     *Date           `json:"disposalDate,omitempty"`
}

// FixedAssetFromDomain converts domain asset to response.
func FixedAssetFromDomain(a *domain.FixedAsset) *FixedAssetResponse {
	resp := &FixedAssetResponse{
		ID:               a.ID,
		Number:           a.Number,
		Name:             a.Name,
		Category:         a.Category,
		PurchaseDate:     Date{a.PurchaseDate},
		Cost:             a.Cost,
		SalvageValue:     a.SalvageValue,
		UsefulLifeMonths: a.UsefulLifeMonths,
	}
	if a.DisposalDate != nil {
		resp.DisposalDate = &Date{*a.DisposalDate}
	}
	return resp
}

// ConsistencyResponse reports whether the posted ledger balances.
type ConsistencyResponse struct {
	TotalDebit  decimal.Decimal `json:"totalDebit"`
	TotalCredit decimal.Decimal `json:"totalCredit"`
	Difference  decimal.Decimal `json:"difference"`
	Consistent  bool            `json:"consistent"`
}

// ConsistencyFromUseCase converts a consistency result to response.
func ConsistencyFromUseCase(r *usecase.ConsistencyResult) *ConsistencyResponse {
	return &ConsistencyResponse{
		TotalDebit:  r.TotalDebit,
		TotalCredit: r.TotalCredit,
		Difference:  r.Difference,
		Consistent:  r.Consistent,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func mapAll[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}
