package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	Code     string  `json:"code"     validate:"required,max=20"`
	Name     string  `json:"name"     validate:"required,max=255"`
	Type     string  `json:"type"     validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE COST_OF_GOODS_SOLD"`
	Role     string  `json:"role"     validate:"omitempty,max=50"`
	ParentID *string `json:"parentId" validate:"omitempty,min=1"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		Code:     r.Code,
		Name:     r.Name,
		Type:     domain.AccountType(r.Type),
		Role:     domain.AccountRole(r.Role),
		ParentID: r.ParentID,
	}
}

// UpdateAccountRequest is a partial account update; absent fields are unchanged.
type UpdateAccountRequest struct {
	Code     *string `json:"code"     validate:"omitempty,max=20"`
	Name     *string `json:"name"     validate:"omitempty,min=1,max=255"`
	Type     *string `json:"type"     validate:"omitempty,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE COST_OF_GOODS_SOLD"`
	Role     *string `json:"role"     validate:"omitempty,max=50"`
	ParentID *string `json:"parentId"`
	IsActive *bool   `json:"isActive"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateAccountRequest) ToUseCaseInput() usecase.UpdateAccountInput {
	input := usecase.UpdateAccountInput{
		Code:     r.Code,
		Name:     r.Name,
		ParentID: r.ParentID,
		IsActive: r.IsActive,
	}
	if r.Type != nil {
		t := domain.AccountType(*r.Type)
		input.Type = &t
	}
	if r.Role != nil {
		role := domain.AccountRole(*r.Role)
		input.Role = &role
	}
	return input
}

// JournalLineRequest is one line of a journal entry. Exactly one of debit
// and credit must be positive; the ledger enforces that.
type JournalLineRequest struct {
	AccountID   string          `json:"accountId"   validate:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description" validate:"max=500"`
}

// CreateJournalEntryRequest represents a request to create a journal entry.
type CreateJournalEntryRequest struct {
	Description     string               `json:"description"     validate:"max=500"`
	Date            *Date                `json:"date"            validate:"required"`
	Lines           []JournalLineRequest `json:"lines"           validate:"required,min=1,dive"`
	PostImmediately bool                 `json:"postImmediately"`
	Reference       string               `json:"reference"       validate:"max=100"`
	StoreID         *string              `json:"storeId"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateJournalEntryRequest) ToUseCaseInput() usecase.CreateJournalEntryInput {
	lines := make([]domain.JournalLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = domain.JournalLine{
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		}
	}
	return usecase.CreateJournalEntryInput{
		Description:     r.Description,
		Date:            r.Date.Time,
		Lines:           lines,
		PostImmediately: r.PostImmediately,
		Reference:       r.Reference,
		StoreID:         r.StoreID,
		SourceType:      "manual",
	}
}

// ReverseJournalEntryRequest represents a request to reverse a posted entry.
type ReverseJournalEntryRequest struct {
	Date        *Date  `json:"date"`
	Description string `json:"description" validate:"max=500"`
}

// ToUseCaseInput converts to use case input.
func (r *ReverseJournalEntryRequest) ToUseCaseInput(id string) usecase.ReverseJournalEntryInput {
	return usecase.ReverseJournalEntryInput{ID: id, Date: r.Date.Ptr(), Description: r.Description}
}

// CreateMatchRequest represents a manual reconciliation match.
type CreateMatchRequest struct {
	PayoutID  string           `json:"payoutId"  validate:"required"`
	OrderID   string           `json:"orderId"   validate:"required"`
	AccountID string           `json:"accountId"`
	Amount    *decimal.Decimal `json:"amount"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateMatchRequest) ToUseCaseInput() usecase.CreateMatchInput {
	return usecase.CreateMatchInput{PayoutID: r.PayoutID, OrderID: r.OrderID, AccountID: r.AccountID, Amount: r.Amount}
}

// UpdateMatchRequest represents a partial match update.
type UpdateMatchRequest struct {
	IsMatched *bool            `json:"isMatched"`
	Amount    *decimal.Decimal `json:"amount"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateMatchRequest) ToUseCaseInput() usecase.UpdateMatchInput {
	return usecase.UpdateMatchInput{IsMatched: r.IsMatched, Amount: r.Amount}
}

// OrderPaidRequest is an ingested paid order.
type OrderPaidRequest struct {
	StoreID         *string         `json:"storeId"`
	ExternalID      string          `json:"externalId"      validate:"required,max=100"`
	OrderNumber     string          `json:"orderNumber"     validate:"required,max=50"`
	CustomerName    string          `json:"customerName"    validate:"max=255"`
	CustomerEmail   string          `json:"customerEmail"   validate:"omitempty,email"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	SubtotalPrice   decimal.Decimal `json:"subtotalPrice"`
	TotalTax        decimal.Decimal `json:"totalTax"`
	Currency        string          `json:"currency"        validate:"omitempty,len=3"`
	FinancialStatus string          `json:"financialStatus" validate:"max=50"`
	ProcessedAt     *time.Time      `json:"processedAt"`
	CreatedAt       *time.Time      `json:"createdAt"`
}

// ToUseCaseInput converts to use case input.
func (r *OrderPaidRequest) ToUseCaseInput() usecase.OrderPaidInput {
	return usecase.OrderPaidInput{
		StoreID:         r.StoreID,
		ExternalID:      r.ExternalID,
		OrderNumber:     r.OrderNumber,
		CustomerName:    r.CustomerName,
		CustomerEmail:   r.CustomerEmail,
		TotalPrice:      r.TotalPrice,
		SubtotalPrice:   r.SubtotalPrice,
		TotalTax:        r.TotalTax,
		Currency:        r.Currency,
		FinancialStatus: r.FinancialStatus,
		ProcessedAt:     r.ProcessedAt,
		CreatedAt:       timeOrZero(r.CreatedAt),
	}
}

// RefundRequest is an ingested refund.
type RefundRequest struct {
	StoreID    *string         `json:"storeId"`
	ExternalID string          `json:"externalId" validate:"required,max=100"`
	OrderID    string          `json:"orderId"    validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"   validate:"omitempty,len=3"`
	Reason     string          `json:"reason"     validate:"max=500"`
	CreatedAt  *time.Time      `json:"createdAt"`
}

// ToUseCaseInput converts to use case input.
func (r *RefundRequest) ToUseCaseInput() usecase.RefundInput {
	return usecase.RefundInput{
		StoreID:    r.StoreID,
		ExternalID: r.ExternalID,
		OrderID:    r.OrderID,
		Amount:     r.Amount,
		Currency:   r.Currency,
		Reason:     r.Reason,
		CreatedAt:  timeOrZero(r.CreatedAt),
	}
}

// PayoutRequest is an ingested payout.
type PayoutRequest struct {
	StoreID    *string         `json:"storeId"`
	ExternalID string          `json:"externalId" validate:"required,max=100"`
	Amount     decimal.Decimal `json:"amount"`
	Fee        decimal.Decimal `json:"fee"`
	Currency   string          `json:"currency"   validate:"omitempty,len=3"`
	Status     string          `json:"status"     validate:"max=50"`
	CreatedAt  *time.Time      `json:"createdAt"`
}

// ToUseCaseInput converts to use case input.
func (r *PayoutRequest) ToUseCaseInput() usecase.PayoutInput {
	return usecase.PayoutInput{
		StoreID:    r.StoreID,
		ExternalID: r.ExternalID,
		Amount:     r.Amount,
		Fee:        r.Fee,
		Currency:   r.Currency,
		Status:     r.Status,
		CreatedAt:  timeOrZero(r.CreatedAt),
	}
}

// COGSRequest is an ingested cost-of-goods-sold posting.
type COGSRequest struct {
	StoreID     *string         `json:"storeId"`
	OrderNumber string          `json:"orderNumber" validate:"required,max=50"`
	Amount      decimal.Decimal `json:"amount"`
	Date        *Date           `json:"date"`
}

// ToUseCaseInput converts to use case input.
func (r *COGSRequest) ToUseCaseInput() usecase.COGSInput {
	return usecase.COGSInput{
		StoreID:     r.StoreID,
		OrderNumber: r.OrderNumber,
		Amount:      r.Amount,
		Date:        r.Date.Or(time.Time{}),
	}
}

// UpsertStoreRequest creates or updates a store by domain.
type UpsertStoreRequest struct {
	Domain   string `json:"domain"   validate:"required,max=255"`
	Name     string `json:"name"     validate:"required,max=255"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
	IsActive *bool  `json:"isActive"`
}

// ToUseCaseInput converts to use case input.
func (r *UpsertStoreRequest) ToUseCaseInput() usecase.UpsertStoreInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return usecase.UpsertStoreInput{Domain: r.Domain, Name: r.Name, Currency: r.Currency, IsActive: active}
}

// CreateDocumentRequest records an invoice or bill.
type CreateDocumentRequest struct {
	Kind         string          `json:"kind"         validate:"required,oneof=INVOICE BILL"`
	Number       string          `json:"number"       validate:"required,max=50"`
	Counterparty string          `json:"counterparty" validate:"required,max=255"`
	Currency     string          `json:"currency"     validate:"omitempty,len=3"`
	Total        decimal.Decimal `json:"total"`
	Paid         decimal.Decimal `json:"paid"`
	BookedRate   decimal.Decimal `json:"bookedRate"`
	IssueDate    *Date           `json:"issueDate"    validate:"required"`
	DueDate      *Date           `json:"dueDate"      validate:"required"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateDocumentRequest) ToUseCaseInput() usecase.CreateDocumentInput {
	return usecase.CreateDocumentInput{
		Kind:         domain.DocumentKind(r.Kind),
		Number:       r.Number,
		Counterparty: r.Counterparty,
		Currency:     r.Currency,
		Total:        r.Total,
		Paid:         r.Paid,
		BookedRate:   r.BookedRate,
		IssueDate:    r.IssueDate.Time,
		DueDate:      r.DueDate.Time,
	}
}

// CreateExchangeRateRequest records a conversion rate.
type CreateExchangeRateRequest struct {
	From          string          `json:"from"          validate:"required,len=3"`
	To            string          `json:"to"            validate:"required,len=3"`
	Rate          decimal.Decimal `json:"rate"`
	EffectiveDate *Date           `json:"effectiveDate" validate:"required"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateExchangeRateRequest) ToUseCaseInput() usecase.CreateExchangeRateInput {
	return usecase.CreateExchangeRateInput{From: r.From, To: r.To, Rate: r.Rate, EffectiveDate: r.EffectiveDate.Time}
}

// SetBudgetRequest sets the planned amount for an account and period.
type SetBudgetRequest struct {
	AccountID  string          `json:"accountId"  validate:"required"`
	FiscalYear int             `json:"fiscalYear" validate:"required,min=1900,max=9999"`
	Month      int             `json:"month"      validate:"min=0,max=12"`
	Amount     decimal.Decimal `json:"amount"`
}

// ToUseCaseInput converts to use case input.
func (r *SetBudgetRequest) ToUseCaseInput() usecase.SetBudgetInput {
	return usecase.SetBudgetInput{AccountID: r.AccountID, FiscalYear: r.FiscalYear, Month: r.Month, Amount: r.Amount}
}

// CreateInventoryItemRequest registers a stock-keeping unit.
type CreateInventoryItemRequest struct {
	SKU      string `json:"sku"      validate:"required,max=100"`
	Name     string `json:"name"     validate:"required,max=255"`
	Category string `json:"category" validate:"max=100"`
	Method   string `json:"method"   validate:"omitempty,oneof=FIFO WEIGHTED_AVERAGE"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateInventoryItemRequest) ToUseCaseInput() usecase.CreateInventoryItemInput {
	return usecase.CreateInventoryItemInput{
		SKU:      r.SKU,
		Name:     r.Name,
		Category: r.Category,
		Method:   domain.ValuationMethod(r.Method),
	}
}

// StockMovementRequest records stock in or out of an item.
type StockMovementRequest struct {
	Type     string          `json:"type"     validate:"required,oneof=IN OUT"`
	Quantity int64           `json:"quantity" validate:"required,min=1"`
	UnitCost decimal.Decimal `json:"unitCost"`
	Date     *Date           `json:"date"     validate:"required"`
}

// ToDomain converts to a domain movement.
func (r *StockMovementRequest) ToDomain() domain.StockMovement {
	return domain.StockMovement{
		Type:     domain.MovementType(r.Type),
		Quantity: r.Quantity,
		UnitCost: r.UnitCost,
		Date:     r.Date.Time,
	}
}

// CreateFixedAssetRequest registers a depreciable asset.
type CreateFixedAssetRequest struct {
	Number           string          `json:"number"           validate:"required,max=50"`
	Name             string          `json:"name"             validate:"required,max=255"`
	Category         string          `json:"category"         validate:"max=100"`
	PurchaseDate     *Date           `json:"purchaseDate"     validate:"required"`
	Cost             decimal.Decimal `json:"cost"`
	SalvageValue     decimal.Decimal `json:"salvageValue"`
	UsefulLifeMonths int             `json:"usefulLifeMonths" validate:"required,min=1"`
	DisposalDate     *Date           `json:"disposalDate"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateFixedAssetRequest) ToUseCaseInput() usecase.CreateFixedAssetInput {
	return usecase.CreateFixedAssetInput{
		Number:           r.Number,
		Name:             r.Name,
		Category:         r.Category,
		PurchaseDate:     r.PurchaseDate.Time,
		Cost:             r.Cost,
		SalvageValue:     r.SalvageValue,
		UsefulLifeMonths: r.UsefulLifeMonths,
		DisposalDate:     r.DisposalDate.Ptr(),
	}
}

// Settings is the default-account configuration, used for both reads and writes.
type Settings struct {
	DefaultCashAccountID        *string `json:"defaultCashAccountId"`
	DefaultSalesAccountID       *string `json:"defaultSalesAccountId"`
	DefaultTaxAccountID         *string `json:"defaultTaxAccountId"`
	DefaultFeeAccountID         *string `json:"defaultFeeAccountId"`
	DefaultFeesPayableAccountID *string `json:"defaultFeesPayableAccountId"`
	DefaultCOGSAccountID        *string `json:"defaultCogsAccountId"`
	DefaultInventoryAccountID   *string `json:"defaultInventoryAccountId"`
	DefaultARAccountID          *string `json:"defaultArAccountId"`
	DefaultAPAccountID          *string `json:"defaultApAccountId"`
}

// ToDomain converts to domain settings.
func (s *Settings) ToDomain() *domain.Settings {
	return &domain.Settings{
		DefaultCashAccountID:        s.DefaultCashAccountID,
		DefaultSalesAccountID:       s.DefaultSalesAccountID,
		DefaultTaxAccountID:         s.DefaultTaxAccountID,
		DefaultFeeAccountID:         s.DefaultFeeAccountID,
		DefaultFeesPayableAccountID: s.DefaultFeesPayableAccountID,
		DefaultCOGSAccountID:        s.DefaultCOGSAccountID,
		DefaultInventoryAccountID:   s.DefaultInventoryAccountID,
		DefaultARAccountID:          s.DefaultARAccountID,
		DefaultAPAccountID:          s.DefaultAPAccountID,
	}
}

// SettingsFromDomain converts domain settings to the wire shape.
func SettingsFromDomain(s *domain.Settings) *Settings {
	if s == nil {
		return &Settings{}
	}
	return &Settings{
		DefaultCashAccountID:        s.DefaultCashAccountID,
		DefaultSalesAccountID:       s.DefaultSalesAccountID,
		DefaultTaxAccountID:         s.DefaultTaxAccountID,
		DefaultFeeAccountID:         s.DefaultFeeAccountID,
		DefaultFeesPayableAccountID: s.DefaultFeesPayableAccountID,
		DefaultCOGSAccountID:        s.DefaultCOGSAccountID,
		DefaultInventoryAccountID:   s.DefaultInventoryAccountID,
		DefaultARAccountID:          s.DefaultARAccountID,
		DefaultAPAccountID:          s.DefaultAPAccountID,
	}
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
