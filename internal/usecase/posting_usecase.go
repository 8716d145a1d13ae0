package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/metrics"
)

// Reference prefixes for automatic postings.
const (
	ReferencePrefixOrder  = "ORD-"
	ReferencePrefixRefund = "REF-"
	ReferencePrefixFee    = "FEE-"
	ReferencePrefixCOGS   = "COGS-"
)

// Commerce event names, used for metrics and queue task types.
const (
	CommerceEventOrderPaid = "order.paid"
	CommerceEventRefund    = "refund.created"
	CommerceEventPayout    = "payout.created"
	CommerceEventCOGS      = "cogs.recorded"
)

// PostingUseCase turns commerce events into posted journal entries.
type PostingUseCase struct {
	txManager  TransactionManager
	journal    *JournalUseCase
	accounts   accountResolver
	stores     StoreRepository
	orderRepo  OrderRepository
	refundRepo RefundRepository
	payoutRepo PayoutRepository
	idGen      IDGenerator
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// PostingDeps groups the ports the posting use case needs.
type PostingDeps struct {
	TxManager TransactionManager
	Journal   *JournalUseCase
	Accounts  AccountRepository
	Settings  SettingsRepository
	Stores    StoreRepository
	Orders    OrderRepository
	Refunds   RefundRepository
	Payouts   PayoutRepository
	IDGen     IDGenerator
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
}

// NewPostingUseCase creates a new PostingUseCase.
func NewPostingUseCase(deps PostingDeps) *PostingUseCase {
	return &PostingUseCase{
		txManager:  deps.TxManager,
		journal:    deps.Journal,
		accounts:   accountResolver{accountRepo: deps.Accounts, settingsRepo: deps.Settings},
		stores:     deps.Stores,
		orderRepo:  deps.Orders,
		refundRepo: deps.Refunds,
		payoutRepo: deps.Payouts,
		idGen:      deps.IDGen,
		logger:     deps.Logger.With().Str("component", "posting").Logger(),
		metrics:    deps.Metrics,
	}
}

// OrderPaidInput is a paid commerce order.
type OrderPaidInput struct {
	StoreID         *string         `json:"storeId,omitempty"`
	ExternalID      string          `json:"externalId"`
	OrderNumber     string          `json:"orderNumber"`
	CustomerName    string          `json:"customerName,omitempty"`
	CustomerEmail   string          `json:"customerEmail,omitempty"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	SubtotalPrice   decimal.Decimal `json:"subtotalPrice"`
	TotalTax        decimal.Decimal `json:"totalTax"`
	Currency        string          `json:"currency"`
	FinancialStatus string          `json:"financialStatus"`
	ProcessedAt     *time.Time      `json:"processedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// RefundInput is money returned to a customer.
type RefundInput struct {
	StoreID    *string         `json:"storeId,omitempty"`
	ExternalID string          `json:"externalId"`
	OrderID    string          `json:"orderId"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Reason     string          `json:"reason,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// PayoutInput is a platform settlement.
type PayoutInput struct {
	StoreID    *string         `json:"storeId,omitempty"`
	ExternalID string          `json:"externalId"`
	Amount     decimal.Decimal `json:"amount"`
	Fee        decimal.Decimal `json:"fee"`
	Currency   string          `json:"currency"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// COGSInput records the cost of goods shipped for an order.
type COGSInput struct {
	StoreID     *string         `json:"storeId,omitempty"`
	OrderNumber string          `json:"orderNumber"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
}

// PostingResult reports what a commerce event produced. Entry is nil when
// the event needed no posting, such as a payout without a fee or an unpaid order.
type PostingResult struct {
	Reference string
	Entry     *domain.JournalEntry
	Duplicate bool
}

// RecordOrderPaid upserts the order and posts cash against sales and tax.
// Orders that are not paid are stored without a posting.
func (uc *PostingUseCase) RecordOrderPaid(ctx context.Context, input OrderPaidInput) (*PostingResult, error) {
	verr := &domain.ValidationError{}
	requireText(verr, "externalId", input.ExternalID)
	requireText(verr, "orderNumber", input.OrderNumber)
	requirePositive(verr, "totalPrice", input.TotalPrice)
	if input.TotalTax.IsNegative() {
		verr.Add("totalTax", "must not be negative")
	} else if input.TotalTax.GreaterThanOrEqual(input.TotalPrice) {
		verr.Add("totalTax", "must be less than totalPrice")
	}
	if err := verr.OrNil(); err != nil {
		return nil, uc.outcome(CommerceEventOrderPaid, nil, err)
	}

	order := &domain.Order{
		ID:              uc.idGen.Generate(),
		ExternalID:      input.ExternalID,
		StoreID:         input.StoreID,
		OrderNumber:     input.OrderNumber,
		CustomerName:    input.CustomerName,
		CustomerEmail:   input.CustomerEmail,
		TotalPrice:      input.TotalPrice,
		SubtotalPrice:   input.SubtotalPrice,
		TotalTax:        input.TotalTax,
		Currency:        strings.ToUpper(input.Currency),
		FinancialStatus: input.FinancialStatus,
		ProcessedAt:     input.ProcessedAt,
		CreatedAt:       orNow(input.CreatedAt),
	}
	if order.FinancialStatus == "" {
		order.FinancialStatus = domain.FinancialStatusPaid
	}

	result, err := uc.post(ctx, input.StoreID, orderReference(ReferencePrefixOrder, input.StoreID, input.OrderNumber),
		func(ctx context.Context, tx Transaction) error {
			return uc.orderRepo.Upsert(ctx, tx, order)
		},
		func(ctx context.Context, tx Transaction, s *domain.Settings) (*domain.JournalEntry, error) {
			if !order.IsPaid() {
				return nil, nil
			}
			cash, err := uc.accounts.resolve(ctx, tx, s, cashRule)
			if err != nil {
				return nil, err
			}
			sales, err := uc.accounts.resolve(ctx, tx, s, salesRule)
			if err != nil {
				return nil, err
			}

			lines := []domain.JournalLine{
				debitLine(cash.ID, order.TotalPrice, "Payment received"),
				creditLine(sales.ID, order.TotalPrice.Sub(order.TotalTax), "Sales revenue"),
			}
			if order.TotalTax.IsPositive() {
				tax, err := uc.accounts.resolve(ctx, tx, s, taxRule)
				if err != nil {
					return nil, err
				}
				lines = append(lines, creditLine(tax.ID, order.TotalTax, "Sales tax collected"))
			}

			return &domain.JournalEntry{
				Description: "Order " + order.OrderNumber,
				Date:        order.EffectiveDate(),
				StoreID:     order.StoreID,
				SourceType:  domain.SourceTypeOrder,
				SourceID:    order.ID,
				Lines:       lines,
			}, nil
		})
	return result, uc.outcome(CommerceEventOrderPaid, result, err)
}

// RecordRefund upserts the refund and posts sales against cash.
func (uc *PostingUseCase) RecordRefund(ctx context.Context, input RefundInput) (*PostingResult, error) {
	verr := &domain.ValidationError{}
	requireText(verr, "externalId", input.ExternalID)
	requireText(verr, "orderId", input.OrderID)
	requirePositive(verr, "amount", input.Amount)
	if err := verr.OrNil(); err != nil {
		return nil, uc.outcome(CommerceEventRefund, nil, err)
	}

	refund := &domain.Refund{
		ID:         uc.idGen.Generate(),
		ExternalID: input.ExternalID,
		OrderID:    input.OrderID,
		StoreID:    input.StoreID,
		Amount:     input.Amount,
		Currency:   strings.ToUpper(input.Currency),
		Reason:     input.Reason,
		CreatedAt:  orNow(input.CreatedAt),
	}

	result, err := uc.post(ctx, input.StoreID, ReferencePrefixRefund+input.ExternalID,
		func(ctx context.Context, tx Transaction) error {
			return uc.refundRepo.Upsert(ctx, tx, refund)
		},
		func(ctx context.Context, tx Transaction, s *domain.Settings) (*domain.JournalEntry, error) {
			sales, err := uc.accounts.resolve(ctx, tx, s, salesRule)
			if err != nil {
				return nil, err
			}
			cash, err := uc.accounts.resolve(ctx, tx, s, cashRule)
			if err != nil {
				return nil, err
			}
			return &domain.JournalEntry{
				Description: "Refund " + refund.ExternalID,
				Date:        refund.CreatedAt,
				StoreID:     refund.StoreID,
				SourceType:  domain.SourceTypeRefund,
				SourceID:    refund.ID,
				Lines: []domain.JournalLine{
					debitLine(sales.ID, refund.Amount, "Sales returned"),
					creditLine(cash.ID, refund.Amount, "Refund paid"),
				},
			}, nil
		})
	return result, uc.outcome(CommerceEventRefund, result, err)
}

// RecordPayout upserts the payout and, when it carries a fee, posts the fee
// expense against fees payable.
func (uc *PostingUseCase) RecordPayout(ctx context.Context, input PayoutInput) (*PostingResult, error) {
	verr := &domain.ValidationError{}
	requireText(verr, "externalId", input.ExternalID)
	requirePositive(verr, "amount", input.Amount)
	if input.Fee.IsNegative() {
		verr.Add("fee", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return nil, uc.outcome(CommerceEventPayout, nil, err)
	}

	payout := &domain.Payout{
		ID:         uc.idGen.Generate(),
		ExternalID: input.ExternalID,
		StoreID:    input.StoreID,
		Amount:     input.Amount,
		Fee:        input.Fee,
		Currency:   strings.ToUpper(input.Currency),
		Status:     input.Status,
		CreatedAt:  orNow(input.CreatedAt),
	}

	result, err := uc.post(ctx, input.StoreID, ReferencePrefixFee+input.ExternalID,
		func(ctx context.Context, tx Transaction) error {
			return uc.payoutRepo.Upsert(ctx, tx, payout)
		},
		func(ctx context.Context, tx Transaction, s *domain.Settings) (*domain.JournalEntry, error) {
			if !payout.Fee.IsPositive() {
				return nil, nil
			}
			fees, err := uc.accounts.resolve(ctx, tx, s, feesRule)
			if err != nil {
				return nil, err
			}
			payable, err := uc.accounts.resolve(ctx, tx, s, feesPayableRule)
			if err != nil {
				return nil, err
			}
			return &domain.JournalEntry{
				Description: "Payout fee " + payout.ExternalID,
				Date:        payout.CreatedAt,
				StoreID:     payout.StoreID,
				SourceType:  domain.SourceTypePayout,
				SourceID:    payout.ID,
				Lines: []domain.JournalLine{
					debitLine(fees.ID, payout.Fee, "Platform fee"),
					creditLine(payable.ID, payout.Fee, "Fee payable"),
				},
			}, nil
		})
	return result, uc.outcome(CommerceEventPayout, result, err)
}

// RecordCOGS posts cost of goods sold against inventory.
func (uc *PostingUseCase) RecordCOGS(ctx context.Context, input COGSInput) (*PostingResult, error) {
	verr := &domain.ValidationError{}
	requireText(verr, "orderNumber", input.OrderNumber)
	requirePositive(verr, "amount", input.Amount)
	if err := verr.OrNil(); err != nil {
		return nil, uc.outcome(CommerceEventCOGS, nil, err)
	}

	result, err := uc.post(ctx, input.StoreID, orderReference(ReferencePrefixCOGS, input.StoreID, input.OrderNumber), nil,
		func(ctx context.Context, tx Transaction, s *domain.Settings) (*domain.JournalEntry, error) {
			cogs, err := uc.accounts.resolve(ctx, tx, s, cogsRule)
			if err != nil {
				return nil, err
			}
			inventory, err := uc.accounts.resolve(ctx, tx, s, inventoryRule)
			if err != nil {
				return nil, err
			}
			return &domain.JournalEntry{
				Description: "Cost of goods sold for order " + input.OrderNumber,
				Date:        orNow(input.Date),
				StoreID:     input.StoreID,
				SourceType:  domain.SourceTypeCOGS,
				SourceID:    input.OrderNumber,
				Lines: []domain.JournalLine{
					debitLine(cogs.ID, input.Amount, "Cost of goods sold"),
					creditLine(inventory.ID, input.Amount, "Inventory relieved"),
				},
			}, nil
		})
	return result, uc.outcome(CommerceEventCOGS, result, err)
}

type upsertFunc func(ctx context.Context, tx Transaction) error

type entryFunc func(ctx context.Context, tx Transaction, settings *domain.Settings) (*domain.JournalEntry, error)

// post runs one commerce event in a single transaction: the store check, the
// record upsert, the idempotency check by reference and the posted entry. An entry already
// carrying the reference acknowledges the event without a second posting.
// orderReference keys order-derived entries. Order numbers are unique only
// within a store, so a store-scoped order carries its store ID.
func orderReference(prefix string, storeID *string, orderNumber string) string {
	if storeID == nil || *storeID == "" {
		return prefix + orderNumber
	}
	return prefix + *storeID + "-" + orderNumber
}

func (uc *PostingUseCase) post(ctx context.Context, storeID *string, reference string, upsert upsertFunc, build entryFunc) (*PostingResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if storeID != nil && uc.stores != nil {
		if _, err := uc.stores.GetByID(txCtx, tx, *storeID); err != nil {
			return nil, err
		}
	}

	if upsert != nil {
		if err := upsert(txCtx, tx); err != nil {
			return nil, err
		}
	}

	result := &PostingResult{Reference: reference}

	existing, err := uc.journal.journalRepo.GetByReference(txCtx, tx, reference)
	switch {
	case err == nil:
		result.Entry = existing
		result.Duplicate = true
		return result, tx.Commit(txCtx)
	case !errors.Is(err, domain.ErrJournalEntryNotFound):
		return nil, err
	}

	settings, err := uc.accounts.settings(txCtx, tx)
	if err != nil {
		return nil, err
	}

	entry, err := build(txCtx, tx, settings)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return result, tx.Commit(txCtx)
	}

	now := time.Now().UTC()
	entry.ID = uc.idGen.Generate()
	entry.Reference = reference
	entry.CreatedBy = domain.ActorFromContext(ctx)
	entry.CreatedAt = now
	entry.UpdatedAt = now

	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if err := uc.journal.resolveAccounts(txCtx, tx, entry, true); err != nil {
		return nil, err
	}
	if err := uc.journal.createInTx(txCtx, tx, entry, true); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	uc.journal.observeCreated(entry)
	result.Entry = entry
	return result, nil
}

// outcome logs and counts an event's result and passes err through.
func (uc *PostingUseCase) outcome(event string, result *PostingResult, err error) error {
	label := "posted"
	switch {
	case errors.Is(err, domain.ErrDuplicateReference):
		label = "duplicate"
	case errors.Is(err, domain.ErrValidation):
		label = "invalid"
	case err != nil:
		label = "failed"
	case result.Duplicate:
		label = "duplicate"
	case result.Entry == nil:
		label = "recorded"
	}

	if uc.metrics != nil {
		uc.metrics.CommerceEvents.WithLabelValues(event, label).Inc()
	}

	logEvent := uc.logger.Info()
	if err != nil {
		logEvent = uc.logger.Warn().Err(err)
	}
	if result != nil {
		logEvent = logEvent.Str("reference", result.Reference)
	}
	logEvent.Str("event", event).Str("outcome", label).Msg("commerce event processed")

	return err
}

func debitLine(accountID string, amount decimal.Decimal, description string) domain.JournalLine {
	return domain.JournalLine{AccountID: accountID, Debit: amount, Credit: decimal.Zero, Description: description}
}

func creditLine(accountID string, amount decimal.Decimal, description string) domain.JournalLine {
	return domain.JournalLine{AccountID: accountID, Debit: decimal.Zero, Credit: amount, Description: description}
}

func requireText(verr *domain.ValidationError, field, value string) {
	if strings.TrimSpace(value) == "" {
		verr.Add(field, "is required")
	}
}

func requirePositive(verr *domain.ValidationError, field string, value decimal.Decimal) {
	if !value.IsPositive() {
		verr.Add(field, "must be greater than zero")
	}
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
