package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/postgres/generated"
	"github.com/iho/gobooks/internal/usecase"
)

// StoreRepository implements usecase.StoreRepository.
type StoreRepository struct {
	db generated.DBTX
}

// NewStoreRepository creates a new StoreRepository.
func NewStoreRepository(db generated.DBTX) *StoreRepository {
	return &StoreRepository{db: db}
}

const storeColumns = `id, domain, name, currency, is_active, created_at`

// Upsert inserts a store or updates the one with the same domain.
func (r *StoreRepository) Upsert(ctx context.Context, tx usecase.Transaction, store *domain.Store) error {
	query := `
		INSERT INTO stores (` + storeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (domain) DO UPDATE
		SET name = EXCLUDED.name, currency = EXCLUDED.currency, is_active = EXCLUDED.is_active
		RETURNING id, created_at
	`

	return conn(r.db, tx).QueryRow(ctx, query,
		store.ID,
		store.Domain,
		store.Name,
		store.Currency,
		store.IsActive,
		store.CreatedAt,
	).Scan(&store.ID, &store.CreatedAt)
}

// GetByID retrieves a store by ID.
func (r *StoreRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Store, error) {
	rows, err := conn(r.db, tx).Query(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}

	store, err := pgx.CollectExactlyOneRow(rows, scanStore)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrStoreNotFound
	}

	return store, err
}

// List returns every store ordered by name.
func (r *StoreRepository) List(ctx context.Context, tx usecase.Transaction) ([]*domain.Store, error) {
	rows, err := conn(r.db, tx).Query(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY name`)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanStore)
}

func scanStore(row pgx.CollectableRow) (*domain.Store, error) {
	var s domain.Store
	err := row.Scan(&s.ID, &s.Domain, &s.Name, &s.Currency, &s.IsActive, &s.CreatedAt)
	return &s, err
}

// OrderRepository implements usecase.OrderRepository.
type OrderRepository struct {
	db generated.DBTX
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db generated.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, external_id, store_id, order_number, customer_name, customer_email,
	total_price, subtotal_price, total_tax, currency, financial_status, processed_at, created_at`

// Upsert inserts an order or refreshes the one with the same external ID.
func (r *OrderRepository) Upsert(ctx context.Context, tx usecase.Transaction, order *domain.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (external_id) DO UPDATE
		SET store_id = EXCLUDED.store_id,
		    order_number = EXCLUDED.order_number,
		    customer_name = EXCLUDED.customer_name,
		    customer_email = EXCLUDED.customer_email,
		    total_price = EXCLUDED.total_price,
		    subtotal_price = EXCLUDED.subtotal_price,
		    total_tax = EXCLUDED.total_tax,
		    currency = EXCLUDED.currency,
		    financial_status = EXCLUDED.financial_status,
		    processed_at = EXCLUDED.processed_at
		RETURNING id, created_at
	`

	return conn(r.db, tx).QueryRow(ctx, query,
		order.ID,
		order.ExternalID,
		order.StoreID,
		order.OrderNumber,
		order.CustomerName,
		order.CustomerEmail,
		decimalToNumeric(order.TotalPrice),
		decimalToNumeric(order.SubtotalPrice),
		decimalToNumeric(order.TotalTax),
		order.Currency,
		order.FinancialStatus,
		order.ProcessedAt,
		order.CreatedAt,
	).Scan(&order.ID, &order.CreatedAt)
}

// GetByID retrieves an order by ID.
func (r *OrderRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Order, error) {
	rows, err := conn(r.db, tx).Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}

	order, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}

	return order, err
}

// List returns orders whose effective date falls in the filter window.
func (r *OrderRepository) List(ctx context.Context, tx usecase.Transaction, cf domain.CommerceFilter) ([]*domain.Order, error) {
	var f filter
	if cf.StoreID != nil {
		f.add("store_id = ?", *cf.StoreID)
	}
	if cf.From != nil {
		f.add("COALESCE(processed_at, created_at) >= ?", *cf.From)
	}
	if cf.To != nil {
		f.add("COALESCE(processed_at, created_at) <= ?", *cf.To)
	}

	query := `SELECT ` + orderColumns + ` FROM orders` + f.where() + ` ORDER BY COALESCE(processed_at, created_at)`

	rows, err := conn(r.db, tx).Query(ctx, query, f.args...)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanOrder)
}

// ListUnmatched returns orders that no reconciliation match references.
func (r *OrderRepository) ListUnmatched(ctx context.Context, tx usecase.Transaction, storeID *string) ([]*domain.Order, error) {
	f := filter{conds: []string{"NOT EXISTS (SELECT 1 FROM reconciliation_matches m WHERE m.order_id = o.id)"}}
	if storeID != nil {
		f.add("o.store_id = ?", *storeID)
	}

	query := `SELECT ` + orderColumns + ` FROM orders o` + f.where() + ` ORDER BY o.created_at`

	rows, err := conn(r.db, tx).Query(ctx, query, f.args...)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanOrder)
}

func scanOrder(row pgx.CollectableRow) (*domain.Order, error) {
	var (
		o                          domain.Order
		total, subtotal, taxAmount pgtype.Numeric
	)

	err := row.Scan(
		&o.ID,
		&o.ExternalID,
		&o.StoreID,
		&o.OrderNumber,
		&o.CustomerName,
		&o.CustomerEmail,
		&total,
		&subtotal,
		&taxAmount,
		&o.Currency,
		&o.FinancialStatus,
		&o.ProcessedAt,
		&o.CreatedAt,
	)
	o.TotalPrice = numericToDecimal(total)
	o.SubtotalPrice = numericToDecimal(subtotal)
	o.TotalTax = numericToDecimal(taxAmount)

	return &o, err
}

// RefundRepository implements usecase.RefundRepository.
type RefundRepository struct {
	db generated.DBTX
}

// NewRefundRepository creates a new RefundRepository.
func NewRefundRepository(db generated.DBTX) *RefundRepository {
	return &RefundRepository{db: db}
}

const refundColumns = `id, external_id, order_id, store_id, amount, currency, reason, created_at`

// Upsert inserts a refund or refreshes the one with the same external ID.
func (r *RefundRepository) Upsert(ctx context.Context, tx usecase.Transaction, refund *domain.Refund) error {
	query := `
		INSERT INTO refunds (` + refundColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (external_id) DO UPDATE
		SET amount = EXCLUDED.amount, currency = EXCLUDED.currency, reason = EXCLUDED.reason
		RETURNING id, created_at
	`

	return conn(r.db, tx).QueryRow(ctx, query,
		refund.ID,
		refund.ExternalID,
		refund.OrderID,
		refund.StoreID,
		decimalToNumeric(refund.Amount),
		refund.Currency,
		refund.Reason,
		refund.CreatedAt,
	).Scan(&refund.ID, &refund.CreatedAt)
}

// List returns refunds created in the filter window, oldest first.
func (r *RefundRepository) List(ctx context.Context, tx usecase.Transaction, cf domain.CommerceFilter) ([]*domain.Refund, error) {
	var f filter
	if cf.StoreID != nil {
		f.add("store_id = ?", *cf.StoreID)
	}
	if cf.From != nil {
		f.add("created_at >= ?", *cf.From)
	}
	if cf.To != nil {
		f.add("created_at <= ?", *cf.To)
	}

	rows, err := conn(r.db, tx).Query(ctx, `SELECT `+refundColumns+` FROM refunds`+f.where()+` ORDER BY created_at`, f.args...)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Refund, error) {
		var (
			rf     domain.Refund
			amount pgtype.Numeric
		)
		err := row.Scan(&rf.ID, &rf.ExternalID, &rf.OrderID, &rf.StoreID, &amount, &rf.Currency, &rf.Reason, &rf.CreatedAt)
		rf.Amount = numericToDecimal(amount)
		return &rf, err
	})
}

// PayoutRepository implements usecase.PayoutRepository.
type PayoutRepository struct {
	db generated.DBTX
}

// NewPayoutRepository creates a new PayoutRepository.
func NewPayoutRepository(db generated.DBTX) *PayoutRepository {
	return &PayoutRepository{db: db}
}

const payoutColumns = `id, external_id, store_id, amount, fee, currency, status, created_at`

// Upsert inserts a payout or refreshes the one with the same external ID.
func (r *PayoutRepository) Upsert(ctx context.Context, tx usecase.Transaction, payout *domain.Payout) error {
	query := `
		INSERT INTO payouts (` + payoutColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (external_id) DO UPDATE
		SET amount = EXCLUDED.amount, fee = EXCLUDED.fee, currency = EXCLUDED.currency, status = EXCLUDED.status
		RETURNING id, created_at
	`

	return conn(r.db, tx).QueryRow(ctx, query,
		payout.ID,
		payout.ExternalID,
		payout.StoreID,
		decimalToNumeric(payout.Amount),
		decimalToNumeric(payout.Fee),
		payout.Currency,
		payout.Status,
		payout.CreatedAt,
	).Scan(&payout.ID, &payout.CreatedAt)
}

// GetByID retrieves a payout by ID.
func (r *PayoutRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Payout, error) {
	rows, err := conn(r.db, tx).Query(ctx, `SELECT `+payoutColumns+` FROM payouts WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}

	payout, err := pgx.CollectExactlyOneRow(rows, scanPayout)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPayoutNotFound
	}

	return payout, err
}

// ListUnmatched returns payouts that no reconciliation match references.
func (r *PayoutRepository) ListUnmatched(ctx context.Context, tx usecase.Transaction, storeID *string) ([]*domain.Payout, error) {
	f := filter{conds: []string{"NOT EXISTS (SELECT 1 FROM reconciliation_matches m WHERE m.payout_id = p.id)"}}
	if storeID != nil {
		f.add("p.store_id = ?", *storeID)
	}

	rows, err := conn(r.db, tx).Query(ctx, `SELECT `+payoutColumns+` FROM payouts p`+f.where()+` ORDER BY p.created_at`, f.args...)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanPayout)
}

func scanPayout(row pgx.CollectableRow) (*domain.Payout, error) {
	var (
		p           domain.Payout
		amount, fee pgtype.Numeric
	)
	err := row.Scan(&p.ID, &p.ExternalID, &p.StoreID, &amount, &fee, &p.Currency, &p.Status, &p.CreatedAt)
	p.Amount = numericToDecimal(amount)
	p.Fee = numericToDecimal(fee)
	return &p, err
}
