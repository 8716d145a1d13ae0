package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// ReferenceDataUseCase maintains the records reports read besides the ledger:
// stores, invoices and bills, exchange rates, budgets, inventory, fixed assets
// and posting defaults.
type ReferenceDataUseCase struct {
	stores      StoreRepository
	accounts    AccountRepository
	documents   DocumentRepository
	rates       ExchangeRateRepository
	budgets     BudgetRepository
	inventory   InventoryRepository
	fixedAssets FixedAssetRepository
	settings    SettingsRepository
	cache       ReportCache
	idGen       IDGenerator
	logger      zerolog.Logger
}

// ReferenceDataDeps groups the ports the reference data use case needs.
type ReferenceDataDeps struct {
	Stores      StoreRepository
	Accounts    AccountRepository
	Documents   DocumentRepository
	Rates       ExchangeRateRepository
	Budgets     BudgetRepository
	Inventory   InventoryRepository
	FixedAssets FixedAssetRepository
	Settings    SettingsRepository
	Cache       ReportCache
	IDGen       IDGenerator
	Logger      zerolog.Logger
}

// NewReferenceDataUseCase creates a new ReferenceDataUseCase. Cache may be nil.
func NewReferenceDataUseCase(deps ReferenceDataDeps) *ReferenceDataUseCase {
	return &ReferenceDataUseCase{
		stores:      deps.Stores,
		accounts:    deps.Accounts,
		documents:   deps.Documents,
		rates:       deps.Rates,
		budgets:     deps.Budgets,
		inventory:   deps.Inventory,
		fixedAssets: deps.FixedAssets,
		settings:    deps.Settings,
		cache:       deps.Cache,
		idGen:       deps.IDGen,
		logger:      deps.Logger.With().Str("component", "reference_data").Logger(),
	}
}

// changed drops cached reports after a write that can alter them. A cache
// failure is logged, not returned; the write itself has succeeded.
func (uc *ReferenceDataUseCase) changed(ctx context.Context, what string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Invalidate(ctx); err != nil {
		uc.logger.Warn().Err(err).Str("changed", what).Msg("failed to invalidate report cache")
	}
}

// UpsertStoreInput represents a store to register.
type UpsertStoreInput struct {
	ID       string
	Domain   string
	Name     string
	Currency string
	IsActive bool
}

// UpsertStore creates or updates a store by ID.
func (uc *ReferenceDataUseCase) UpsertStore(ctx context.Context, input UpsertStoreInput) (*domain.Store, error) {
	verr := &domain.ValidationError{}
	requireText(verr, "domain", input.Domain)
	requireText(verr, "name", input.Name)
	currency := defaultCurrency(input.Currency)
	if err := domain.ValidateCurrency(currency); err != nil {
		verr.Add("currency", "must be an ISO 4217 code")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	store := &domain.Store{
		ID:        input.ID,
		Domain:    strings.TrimSpace(input.Domain),
		Name:      strings.TrimSpace(input.Name),
		Currency:  currency,
		IsActive:  input.IsActive,
		CreatedAt: time.Now().UTC(),
	}
	if store.ID == "" {
		store.ID = uc.idGen.Generate()
	}
	if err := uc.stores.Upsert(ctx, nil, store); err != nil {
		return nil, err
	}
	uc.changed(ctx, "store")
	return store, nil
}

// ListStores returns every store.
func (uc *ReferenceDataUseCase) ListStores(ctx context.Context) ([]*domain.Store, error) {
	return uc.stores.List(ctx, nil)
}

// CreateDocumentInput represents an invoice or bill.
type CreateDocumentInput struct {
	Kind         domain.DocumentKind
	Number       string
	Counterparty string
	Currency     string
	Total        decimal.Decimal
	Paid         decimal.Decimal
	BookedRate   decimal.Decimal
	IssueDate    time.Time
	DueDate      time.Time
}

// CreateDocument records an invoice or bill. A zero booked rate means 1.
func (uc *ReferenceDataUseCase) CreateDocument(ctx context.Context, input CreateDocumentInput) (*domain.Document, error) {
	verr := &domain.ValidationError{}
	if input.Kind != domain.DocumentKindInvoice && input.Kind != domain.DocumentKindBill {
		verr.Add("kind", "must be INVOICE or BILL")
	}
	requireText(verr, "number", input.Number)
	requireText(verr, "counterparty", input.Counterparty)
	requirePositive(verr, "total", input.Total)
	if input.Paid.IsNegative() || input.Paid.GreaterThan(input.Total) {
		verr.Add("paid", "must be between zero and total")
	}
	if input.BookedRate.IsNegative() {
		verr.Add("bookedRate", "must not be negative")
	}
	if input.DueDate.IsZero() {
		verr.Add("dueDate", "is required")
	}
	currency := defaultCurrency(input.Currency)
	if err := domain.ValidateCurrency(currency); err != nil {
		verr.Add("currency", "must be an ISO 4217 code")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:           uc.idGen.Generate(),
		Kind:         input.Kind,
		Number:       strings.TrimSpace(input.Number),
		Counterparty: strings.TrimSpace(input.Counterparty),
		Currency:     currency,
		Total:        input.Total,
		Paid:         input.Paid,
		BookedRate:   input.BookedRate,
		IssueDate:    input.IssueDate,
		DueDate:      input.DueDate,
		Status:       "OPEN",
		CreatedAt:    now,
	}
	if doc.BookedRate.IsZero() {
		doc.BookedRate = decimal.NewFromInt(1)
	}
	if doc.IssueDate.IsZero() {
		doc.IssueDate = now
	}
	if !doc.IsOpen() {
		doc.Status = "PAID"
	}

	if err := uc.documents.Create(ctx, nil, doc); err != nil {
		return nil, err
	}
	uc.changed(ctx, "document")
	return doc, nil
}

// ListDocuments returns documents matching filter.
func (uc *ReferenceDataUseCase) ListDocuments(ctx context.Context, filter domain.DocumentFilter) ([]*domain.Document, error) {
	return uc.documents.List(ctx, nil, filter)
}

// CreateExchangeRateInput represents a rate quote.
type CreateExchangeRateInput struct {
	From          string
	To            string
	Rate          decimal.Decimal
	EffectiveDate time.Time
}

// CreateExchangeRate records a conversion rate from one currency to another.
func (uc *ReferenceDataUseCase) CreateExchangeRate(ctx context.Context, input CreateExchangeRateInput) (*domain.ExchangeRate, error) {
	verr := &domain.ValidationError{}
	from := defaultCurrency(input.From)
	to := defaultCurrency(input.To)
	if err := domain.ValidateCurrency(from); err != nil {
		verr.Add("from", "must be an ISO 4217 code")
	}
	if err := domain.ValidateCurrency(to); err != nil {
		verr.Add("to", "must be an ISO 4217 code")
	}
	if from == to {
		verr.Add("to", "must differ from from")
	}
	requirePositive(verr, "rate", input.Rate)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	rate := &domain.ExchangeRate{
		ID:            uc.idGen.Generate(),
		From:          from,
		To:            to,
		Rate:          input.Rate,
		EffectiveDate: orNow(input.EffectiveDate),
	}
	if err := uc.rates.Create(ctx, nil, rate); err != nil {
		return nil, err
	}
	uc.changed(ctx, "exchange_rate")
	return rate, nil
}

// SetBudgetInput represents a planned amount for an account.
type SetBudgetInput struct {
	AccountID  string
	FiscalYear int
	Month      int
	Amount     decimal.Decimal
}

// SetBudget creates or replaces the budget for an account and period.
func (uc *ReferenceDataUseCase) SetBudget(ctx context.Context, input SetBudgetInput) (*domain.Budget, error) {
	verr := &domain.ValidationError{}
	requireText(verr, "accountId", input.AccountID)
	if input.FiscalYear < 1900 || input.FiscalYear > 9999 {
		verr.Add("fiscalYear", "must be a four-digit year")
	}
	if input.Month < 0 || input.Month > 12 {
		verr.Add("month", "must be between 0 and 12")
	}
	if input.Amount.IsNegative() {
		verr.Add("amount", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if _, err := uc.accounts.GetByID(ctx, nil, input.AccountID); err != nil {
		return nil, err
	}

	budget := &domain.Budget{
		ID:         uc.idGen.Generate(),
		AccountID:  input.AccountID,
		FiscalYear: input.FiscalYear,
		Month:      input.Month,
		Amount:     input.Amount,
	}
	if err := uc.budgets.Upsert(ctx, nil, budget); err != nil {
		return nil, err
	}
	uc.changed(ctx, "budget")
	return budget, nil
}

// CreateInventoryItemInput represents a stock-keeping unit.
type CreateInventoryItemInput struct {
	SKU      string
	Name     string
	Category string
	Method   domain.ValuationMethod
}

// CreateInventoryItem registers a stock item. The method defaults to FIFO.
func (uc *ReferenceDataUseCase) CreateInventoryItem(ctx context.Context, input CreateInventoryItemInput) (*domain.InventoryItem, error) {
	verr := &domain.ValidationError{}
	requireText(verr, "sku", input.SKU)
	requireText(verr, "name", input.Name)
	method := input.Method
	switch method {
	case "":
		method = domain.ValuationFIFO
	case domain.ValuationFIFO, domain.ValuationWeightedAverage:
	default:
		verr.Add("method", "must be FIFO or WEIGHTED_AVERAGE")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	item := &domain.InventoryItem{
		ID:       uc.idGen.Generate(),
		SKU:      strings.TrimSpace(input.SKU),
		Name:     strings.TrimSpace(input.Name),
		Category: strings.TrimSpace(input.Category),
		Method:   method,
	}
	if item.Category == "" {
		item.Category = "Uncategorized"
	}
	if err := uc.inventory.CreateItem(ctx, nil, item); err != nil {
		return nil, err
	}
	uc.changed(ctx, "inventory")
	return item, nil
}

// RecordStockMovement appends a receipt or issue to an item's history.
func (uc *ReferenceDataUseCase) RecordStockMovement(ctx context.Context, itemID string, movement domain.StockMovement) error {
	verr := &domain.ValidationError{}
	requireText(verr, "itemId", itemID)
	if movement.Type != domain.MovementIn && movement.Type != domain.MovementOut {
		verr.Add("type", "must be IN or OUT")
	}
	if movement.Quantity <= 0 {
		verr.Add("quantity", "must be greater than zero")
	}
	if movement.Type == domain.MovementIn && movement.UnitCost.IsNegative() {
		verr.Add("unitCost", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	movement.Date = orNow(movement.Date)
	if err := uc.inventory.AddMovement(ctx, nil, itemID, movement); err != nil {
		return err
	}
	uc.changed(ctx, "inventory")
	return nil
}

// CreateFixedAssetInput represents a capitalized purchase.
type CreateFixedAssetInput struct {
	Number           string
	Name             string
	Category         string
	PurchaseDate     time.Time
	Cost             decimal.Decimal
	SalvageValue     decimal.Decimal
	UsefulLifeMonths int
	DisposalDate     *time.Time
}

// CreateFixedAsset adds an asset to the register.
func (uc *ReferenceDataUseCase) CreateFixedAsset(ctx context.Context, input CreateFixedAssetInput) (*domain.FixedAsset, error) {
	verr := &domain.ValidationError{}
	requireText(verr, "number", input.Number)
	requireText(verr, "name", input.Name)
	requirePositive(verr, "cost", input.Cost)
	if input.SalvageValue.IsNegative() || input.SalvageValue.GreaterThan(input.Cost) {
		verr.Add("salvageValue", "must be between zero and cost")
	}
	if input.UsefulLifeMonths <= 0 {
		verr.Add("usefulLifeMonths", "must be greater than zero")
	}
	if input.PurchaseDate.IsZero() {
		verr.Add("purchaseDate", "is required")
	}
	if input.DisposalDate != nil && input.DisposalDate.Before(input.PurchaseDate) {
		verr.Add("disposalDate", "must not be before purchaseDate")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	asset := &domain.FixedAsset{
		ID:               uc.idGen.Generate(),
		Number:           strings.TrimSpace(input.Number),
		Name:             strings.TrimSpace(input.Name),
		Category:         strings.TrimSpace(input.Category),
		PurchaseDate:     input.PurchaseDate,
		Cost:             input.Cost,
		SalvageValue:     input.SalvageValue,
		UsefulLifeMonths: input.UsefulLifeMonths,
		DisposalDate:     input.DisposalDate,
	}
	if err := uc.fixedAssets.Create(ctx, nil, asset); err != nil {
		return nil, err
	}
	uc.changed(ctx, "fixed_asset")
	return asset, nil
}

// GetSettings returns the posting defaults.
func (uc *ReferenceDataUseCase) GetSettings(ctx context.Context) (*domain.Settings, error) {
	return uc.settings.Get(ctx, nil)
}

// SaveSettings stores posting defaults after checking every referenced account exists.
func (uc *ReferenceDataUseCase) SaveSettings(ctx context.Context, settings *domain.Settings) error {
	refs := map[string]*string{
		"defaultCashAccountId":        settings.DefaultCashAccountID,
		"defaultSalesAccountId":       settings.DefaultSalesAccountID,
		"defaultTaxAccountId":         settings.DefaultTaxAccountID,
		"defaultFeeAccountId":         settings.DefaultFeeAccountID,
		"defaultFeesPayableAccountId": settings.DefaultFeesPayableAccountID,
		"defaultCogsAccountId":        settings.DefaultCOGSAccountID,
		"defaultInventoryAccountId":   settings.DefaultInventoryAccountID,
		"defaultArAccountId":          settings.DefaultARAccountID,
		"defaultApAccountId":          settings.DefaultAPAccountID,
	}

	verr := &domain.ValidationError{}
	for field, id := range refs {
		if id == nil || *id == "" {
			continue
		}
		if _, err := uc.accounts.GetByID(ctx, nil, *id); err != nil {
			verr.Add(field, "references an unknown account")
		}
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	return uc.settings.Save(ctx, nil, settings)
}

func defaultCurrency(currency string) string {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if c == "" {
		return DefaultReportCurrency
	}
	return c
}
