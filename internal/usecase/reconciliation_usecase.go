package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/metrics"
)

// ReconciliationUseCase matches commerce payouts to the orders they settle.
type ReconciliationUseCase struct {
	txManager  TransactionManager
	matchRepo  ReconciliationRepository
	payoutRepo PayoutRepository
	orderRepo  OrderRepository
	accounts   accountResolver
	retrier    Retrier
	idGen      IDGenerator
	rec        recorder
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// ReconciliationDeps groups the ports the reconciliation use case needs.
type ReconciliationDeps struct {
	TxManager TransactionManager
	Matches   ReconciliationRepository
	Payouts   PayoutRepository
	Orders    OrderRepository
	Accounts  AccountRepository
	Settings  SettingsRepository
	Outbox    OutboxRepository
	Audit     AuditRepository
	Retrier   Retrier
	IDGen     IDGenerator
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
}

// NewReconciliationUseCase creates a new ReconciliationUseCase. Retrier may be nil.
func NewReconciliationUseCase(deps ReconciliationDeps) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		txManager:  deps.TxManager,
		matchRepo:  deps.Matches,
		payoutRepo: deps.Payouts,
		orderRepo:  deps.Orders,
		accounts:   accountResolver{accountRepo: deps.Accounts, settingsRepo: deps.Settings},
		retrier:    deps.Retrier,
		idGen:      deps.IDGen,
		rec:        recorder{outboxRepo: deps.Outbox, auditRepo: deps.Audit, idGen: deps.IDGen, metrics: deps.Metrics},
		logger:     deps.Logger.With().Str("component", "reconciliation").Logger(),
		metrics:    deps.Metrics,
	}
}

// AutoMatchResult summarizes one auto-match run.
type AutoMatchResult struct {
	MatchesCreated int `json:"matchesCreated"`
	TotalPayouts   int `json:"totalPayouts"`
	TotalOrders    int `json:"totalOrders"`
	Skipped        int `json:"skipped"`
}

// AutoMatch pairs unmatched payouts with unmatched orders.
//
// Matching is greedy: payouts are visited oldest first and each takes the
// first remaining order within a cent and under seven days of it. This is
// not a globally optimal assignment; an early payout can take an order a
// later payout fit better. The run is one serializable transaction retried
// on serialization failures, and re-running it is safe because matched
// payouts and orders are excluded.
func (uc *ReconciliationUseCase) AutoMatch(ctx context.Context, storeID *string) (*AutoMatchResult, error) {
	var result *AutoMatchResult
	run := func() error {
		r, err := uc.autoMatchOnce(ctx, storeID)
		if err != nil {
			return err
		}
		result = r
		return nil
	}

	var err error
	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, run)
	} else {
		err = run()
	}
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.AutoMatchRuns.Inc()
		uc.metrics.AutoMatchMatches.Add(float64(result.MatchesCreated))
		uc.metrics.AutoMatchSkipped.Add(float64(result.Skipped))
	}

	uc.logger.Info().
		Int("matches_created", result.MatchesCreated).
		Int("payouts", result.TotalPayouts).
		Int("orders", result.TotalOrders).
		Int("skipped", result.Skipped).
		Msg("auto-match completed")

	return result, nil
}

func (uc *ReconciliationUseCase) autoMatchOnce(ctx context.Context, storeID *string) (*AutoMatchResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.BeginSerializable(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	payouts, err := uc.payoutRepo.ListUnmatched(txCtx, tx, storeID)
	if err != nil {
		return nil, err
	}
	orders, err := uc.orderRepo.ListUnmatched(txCtx, tx, storeID)
	if err != nil {
		return nil, err
	}

	result := &AutoMatchResult{TotalPayouts: len(payouts), TotalOrders: len(orders)}

	cash, err := uc.cashAccount(txCtx, tx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	taken := make([]bool, len(orders))
	created := make([]*domain.ReconciliationMatch, 0)

	for _, p := range payouts {
		for i, o := range orders {
			if taken[i] || !domain.IsMatchCandidate(p, o) {
				continue
			}
			taken[i] = true

			if cash == nil {
				result.Skipped++
				uc.logger.Warn().
					Str("payout_id", p.ID).
					Str("order_id", o.ID).
					Msg("skipping match: no cash account resolvable")
				break
			}

			matchedAt := now
			match := &domain.ReconciliationMatch{
				ID:        uc.idGen.Generate(),
				PayoutID:  p.ID,
				OrderID:   o.ID,
				AccountID: cash.ID,
				Amount:    p.Amount,
				IsMatched: true,
				MatchedAt: &matchedAt,
				Method:    domain.MatchMethodAuto,
				CreatedBy: domain.ActorFromContext(ctx),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := uc.matchRepo.Create(txCtx, tx, match); err != nil {
				return nil, err
			}
			created = append(created, match)
			break
		}
	}
	result.MatchesCreated = len(created)

	if len(created) > 0 {
		if err := uc.rec.event(txCtx, tx, domain.AggregateTypeMatch, created[0].ID, domain.EventTypeMatchChanged,
			domain.MatchChangedEvent{Action: "auto_match"}); err != nil {
			return nil, err
		}
		if err := uc.rec.audit(txCtx, tx, domain.AuditActionAutoMatch, domain.ResourceTypeMatch, created[0].ID, nil, result); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}
	return result, nil
}

// cashAccount returns nil when no cash account can be resolved.
func (uc *ReconciliationUseCase) cashAccount(ctx context.Context, tx Transaction) (*domain.Account, error) {
	settings, err := uc.accounts.settings(ctx, tx)
	if err != nil {
		return nil, err
	}
	account, err := uc.accounts.resolve(ctx, tx, settings, cashRule)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, nil
	}
	return account, err
}

// CreateMatchInput represents input for a manual match.
type CreateMatchInput struct {
	PayoutID  string
	OrderID   string
	AccountID string
	Amount    *decimal.Decimal
}

// CreateMatch records a manual payout/order match. Amount defaults to the payout amount.
func (uc *ReconciliationUseCase) CreateMatch(ctx context.Context, input CreateMatchInput) (*domain.ReconciliationMatch, error) {
	verr := &domain.ValidationError{}
	if input.PayoutID == "" {
		verr.Add("payoutId", "is required")
	}
	if input.OrderID == "" {
		verr.Add("orderId", "is required")
	}
	if input.AccountID == "" {
		verr.Add("accountId", "is required")
	}
	if input.Amount != nil && input.Amount.IsNegative() {
		verr.Add("amount", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	payout, err := uc.payoutRepo.GetByID(txCtx, tx, input.PayoutID)
	if err != nil {
		return nil, err
	}
	if _, err := uc.orderRepo.GetByID(txCtx, tx, input.OrderID); err != nil {
		return nil, err
	}
	if _, err := uc.accounts.accountRepo.GetByID(txCtx, tx, input.AccountID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	amount := payout.Amount
	if input.Amount != nil {
		amount = *input.Amount
	}

	match := &domain.ReconciliationMatch{
		ID:        uc.idGen.Generate(),
		PayoutID:  input.PayoutID,
		OrderID:   input.OrderID,
		AccountID: input.AccountID,
		Amount:    amount,
		IsMatched: true,
		MatchedAt: &now,
		Method:    domain.MatchMethodManual,
		CreatedBy: domain.ActorFromContext(ctx),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.matchRepo.Create(txCtx, tx, match); err != nil {
		return nil, err
	}

	if err := uc.changed(txCtx, tx, match, "create"); err != nil {
		return nil, err
	}
	if err := uc.rec.audit(txCtx, tx, domain.AuditActionMatchCreate, domain.ResourceTypeMatch, match.ID, nil, match); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}
	return match, nil
}

// UpdateMatchInput represents a partial match update.
type UpdateMatchInput struct {
	IsMatched *bool
	Amount    *decimal.Decimal
}

// UpdateMatch toggles a match or corrects its amount. Marking a match as
// matched stamps MatchedAt; unmatching clears it.
func (uc *ReconciliationUseCase) UpdateMatch(ctx context.Context, id string, input UpdateMatchInput) (*domain.ReconciliationMatch, error) {
	if input.Amount != nil && input.Amount.IsNegative() {
		return nil, domain.NewValidationError("amount", "must not be negative")
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	match, err := uc.matchRepo.GetByID(txCtx, tx, id)
	if err != nil {
		return nil, err
	}
	before := *match

	now := time.Now().UTC()
	if input.IsMatched != nil && *input.IsMatched != match.IsMatched {
		match.IsMatched = *input.IsMatched
		if match.IsMatched {
			match.MatchedAt = &now
		} else {
			match.MatchedAt = nil
		}
	}
	if input.Amount != nil {
		match.Amount = *input.Amount
	}
	match.UpdatedAt = now

	if err := uc.matchRepo.Update(txCtx, tx, match); err != nil {
		return nil, err
	}
	if err := uc.changed(txCtx, tx, match, "update"); err != nil {
		return nil, err
	}
	if err := uc.rec.audit(txCtx, tx, domain.AuditActionMatchUpdate, domain.ResourceTypeMatch, match.ID, &before, match); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}
	return match, nil
}

// DeleteMatch removes a match, returning its payout and order to the unmatched pool.
func (uc *ReconciliationUseCase) DeleteMatch(ctx context.Context, id string) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	match, err := uc.matchRepo.GetByID(txCtx, tx, id)
	if err != nil {
		return err
	}
	if err := uc.matchRepo.Delete(txCtx, tx, id); err != nil {
		return err
	}
	if err := uc.changed(txCtx, tx, match, "delete"); err != nil {
		return err
	}
	if err := uc.rec.audit(txCtx, tx, domain.AuditActionMatchDelete, domain.ResourceTypeMatch, id, match, nil); err != nil {
		return err
	}

	return tx.Commit(txCtx)
}

func (uc *ReconciliationUseCase) changed(ctx context.Context, tx Transaction, match *domain.ReconciliationMatch, action string) error {
	return uc.rec.event(ctx, tx, domain.AggregateTypeMatch, match.ID, domain.EventTypeMatchChanged, domain.MatchChangedEvent{
		MatchID:  match.ID,
		PayoutID: match.PayoutID,
		OrderID:  match.OrderID,
		Action:   action,
	})
}

// ListMatchesInput represents input for listing matches.
type ListMatchesInput struct {
	StoreID   *string
	IsMatched *bool
	Page      int
	Limit     int
}

// MatchPage is a page of matches.
type MatchPage struct {
	Matches    []*domain.ReconciliationMatch
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// ListMatches returns a page of matches, newest first.
func (uc *ReconciliationUseCase) ListMatches(ctx context.Context, input ListMatchesInput) (*MatchPage, error) {
	page, limit, offset := domain.ValidatePage(input.Page, input.Limit)

	matches, total, err := uc.matchRepo.List(ctx, nil, domain.MatchFilter{
		StoreID:   input.StoreID,
		IsMatched: input.IsMatched,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, err
	}

	return &MatchPage{
		Matches:    matches,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: domain.TotalPages(total, limit),
	}, nil
}

// UnmatchedPayouts lists payouts that no match references.
func (uc *ReconciliationUseCase) UnmatchedPayouts(ctx context.Context, storeID *string) ([]*domain.Payout, error) {
	return uc.payoutRepo.ListUnmatched(ctx, nil, storeID)
}

// UnmatchedOrders lists orders that no match references.
func (uc *ReconciliationUseCase) UnmatchedOrders(ctx context.Context, storeID *string) ([]*domain.Order, error) {
	return uc.orderRepo.ListUnmatched(ctx, nil, storeID)
}

// ReconciliationSummary counts matched and unmatched activity.
type ReconciliationSummary struct {
	MatchedCount           int64           `json:"matchedCount"`
	MatchedAmount          decimal.Decimal `json:"matchedAmount"`
	UnmatchedPayouts       int             `json:"unmatchedPayouts"`
	UnmatchedPayoutsAmount decimal.Decimal `json:"unmatchedPayoutsAmount"`
	UnmatchedOrders        int             `json:"unmatchedOrders"`
	UnmatchedOrdersAmount  decimal.Decimal `json:"unmatchedOrdersAmount"`
}

// Summary counts matches and the payouts and orders still waiting for one.
func (uc *ReconciliationUseCase) Summary(ctx context.Context, storeID *string) (*ReconciliationSummary, error) {
	tx, err := uc.txManager.BeginSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	matched := true
	matches, total, err := uc.matchRepo.List(ctx, tx, domain.MatchFilter{StoreID: storeID, IsMatched: &matched})
	if err != nil {
		return nil, err
	}
	payouts, err := uc.payoutRepo.ListUnmatched(ctx, tx, storeID)
	if err != nil {
		return nil, err
	}
	orders, err := uc.orderRepo.ListUnmatched(ctx, tx, storeID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s := &ReconciliationSummary{
		MatchedCount:     total,
		UnmatchedPayouts: len(payouts),
		UnmatchedOrders:  len(orders),
	}
	for _, m := range matches {
		s.MatchedAmount = s.MatchedAmount.Add(m.Amount)
	}
	for _, p := range payouts {
		s.UnmatchedPayoutsAmount = s.UnmatchedPayoutsAmount.Add(p.Amount)
	}
	for _, o := range orders {
		s.UnmatchedOrdersAmount = s.UnmatchedOrdersAmount.Add(o.TotalPrice)
	}
	return s, nil
}
