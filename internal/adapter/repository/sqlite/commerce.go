package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// StoreRepository implements usecase.StoreRepository.
type StoreRepository struct {
	s *Store
}

const storeColumns = `id, domain, name, currency, is_active, created_at`

func scanStore(row scanner) (*domain.Store, error) {
	var st domain.Store
	if err := row.Scan(&st.ID, &st.Domain, &st.Name, &st.Currency, &st.IsActive, timeCol{&st.CreatedAt}); err != nil {
		return nil, err
	}
	return &st, nil
}

// Upsert inserts a store or refreshes the one with the same domain, keeping its ID.
func (r *StoreRepository) Upsert(ctx context.Context, tx usecase.Transaction, store *domain.Store) error {
	return r.s.write(tx).QueryRowContext(ctx,
		`INSERT INTO stores (`+storeColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (domain) DO UPDATE
		SET name = excluded.name, currency = excluded.currency, is_active = excluded.is_active
		RETURNING id, created_at`,
		store.ID, store.Domain, store.Name, store.Currency, boolToInt(store.IsActive), ts(store.CreatedAt),
	).Scan(&store.ID, timeCol{&store.CreatedAt})
}

func (r *StoreRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Store, error) {
	st, err := scanStore(r.s.read(tx).QueryRowContext(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrStoreNotFound
	}
	return st, err
}

func (r *StoreRepository) List(ctx context.Context, tx usecase.Transaction) ([]*domain.Store, error) {
	rows, err := r.s.read(tx).QueryContext(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stores := []*domain.Store{}
	for rows.Next() {
		st, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, st)
	}
	return stores, rows.Err()
}

// OrderRepository implements usecase.OrderRepository.
type OrderRepository struct {
	s *Store
}

const orderColumns = `id, external_id, store_id, order_number, customer_name, customer_email,
	total_price, subtotal_price, total_tax, currency, financial_status, processed_at, created_at`

func scanOrder(row scanner) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.ExternalID, nullTextCol{&o.StoreID}, &o.OrderNumber, &o.CustomerName,
		&o.CustomerEmail, &o.TotalPrice, &o.SubtotalPrice, &o.TotalTax, &o.Currency,
		&o.FinancialStatus, nullTimeCol{&o.ProcessedAt}, timeCol{&o.CreatedAt})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) query(ctx context.Context, tx usecase.Transaction, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.s.read(tx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Upsert inserts an order or refreshes the one with the same external ID.
func (r *OrderRepository) Upsert(ctx context.Context, tx usecase.Transaction, order *domain.Order) error {
	return r.s.write(tx).QueryRowContext(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE
		SET store_id = excluded.store_id,
		    order_number = excluded.order_number,
		    customer_name = excluded.customer_name,
		    customer_email = excluded.customer_email,
		    total_price = excluded.total_price,
		    subtotal_price = excluded.subtotal_price,
		    total_tax = excluded.total_tax,
		    currency = excluded.currency,
		    financial_status = excluded.financial_status,
		    processed_at = excluded.processed_at
		RETURNING id, created_at`,
		order.ID, order.ExternalID, nullable(order.StoreID), order.OrderNumber, order.CustomerName,
		order.CustomerEmail, order.TotalPrice.String(), order.SubtotalPrice.String(), order.TotalTax.String(),
		order.Currency, order.FinancialStatus, nullableTS(order.ProcessedAt), ts(order.CreatedAt),
	).Scan(&order.ID, timeCol{&order.CreatedAt})
}

func (r *OrderRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Order, error) {
	o, err := scanOrder(r.s.read(tx).QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	return o, err
}

// List returns orders by effective date: processing time, else creation time.
func (r *OrderRepository) List(ctx context.Context, tx usecase.Transaction, cf domain.CommerceFilter) ([]*domain.Order, error) {
	var f filter
	if cf.StoreID != nil {
		f.add("store_id = ?", *cf.StoreID)
	}
	if cf.From != nil {
		f.add("COALESCE(processed_at, created_at) >= ?", ts(*cf.From))
	}
	if cf.To != nil {
		f.add("COALESCE(processed_at, created_at) <= ?", ts(*cf.To))
	}
	return r.query(ctx, tx,
		`SELECT `+orderColumns+` FROM orders`+f.where()+` ORDER BY COALESCE(processed_at, created_at), rowid`, f.args...)
}

func (r *OrderRepository) ListUnmatched(ctx context.Context, tx usecase.Transaction, storeID *string) ([]*domain.Order, error) {
	var f filter
	f.add("NOT EXISTS (SELECT 1 FROM reconciliation_matches m WHERE m.order_id = orders.id)")
	if storeID != nil {
		f.add("store_id = ?", *storeID)
	}
	return r.query(ctx, tx, `SELECT `+orderColumns+` FROM orders`+f.where()+` ORDER BY created_at, rowid`, f.args...)
}

// RefundRepository implements usecase.RefundRepository.
type RefundRepository struct {
	s *Store
}

const refundColumns = `id, external_id, order_id, store_id, amount, currency, reason, created_at`

func (r *RefundRepository) Upsert(ctx context.Context, tx usecase.Transaction, refund *domain.Refund) error {
	return r.s.write(tx).QueryRowContext(ctx,
		`INSERT INTO refunds (`+refundColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE
		SET amount = excluded.amount, currency = excluded.currency, reason = excluded.reason
		RETURNING id, created_at`,
		refund.ID, refund.ExternalID, refund.OrderID, nullable(refund.StoreID), refund.Amount.String(),
		refund.Currency, refund.Reason, ts(refund.CreatedAt),
	).Scan(&refund.ID, timeCol{&refund.CreatedAt})
}

func (r *RefundRepository) List(ctx context.Context, tx usecase.Transaction, cf domain.CommerceFilter) ([]*domain.Refund, error) {
	var f filter
	if cf.StoreID != nil {
		f.add("store_id = ?", *cf.StoreID)
	}
	if cf.From != nil {
		f.add("created_at >= ?", ts(*cf.From))
	}
	if cf.To != nil {
		f.add("created_at <= ?", ts(*cf.To))
	}

	rows, err := r.s.read(tx).QueryContext(ctx,
		`SELECT `+refundColumns+` FROM refunds`+f.where()+` ORDER BY created_at, rowid`, f.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refunds := []*domain.Refund{}
	for rows.Next() {
		var rf domain.Refund
		if err := rows.Scan(&rf.ID, &rf.ExternalID, &rf.OrderID, nullTextCol{&rf.StoreID}, &rf.Amount,
			&rf.Currency, &rf.Reason, timeCol{&rf.CreatedAt}); err != nil {
			return nil, err
		}
		refunds = append(refunds, &rf)
	}
	return refunds, rows.Err()
}

// PayoutRepository implements usecase.PayoutRepository.
type PayoutRepository struct {
	s *Store
}

const payoutColumns = `id, external_id, store_id, amount, fee, currency, status, created_at`

func scanPayout(row scanner) (*domain.Payout, error) {
	var p domain.Payout
	err := row.Scan(&p.ID, &p.ExternalID, nullTextCol{&p.StoreID}, &p.Amount, &p.Fee,
		&p.Currency, &p.Status, timeCol{&p.CreatedAt})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PayoutRepository) Upsert(ctx context.Context, tx usecase.Transaction, payout *domain.Payout) error {
	return r.s.write(tx).QueryRowContext(ctx,
		`INSERT INTO payouts (`+payoutColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE
		SET amount = excluded.amount, fee = excluded.fee, currency = excluded.currency, status = excluded.status
		RETURNING id, created_at`,
		payout.ID, payout.ExternalID, nullable(payout.StoreID), payout.Amount.String(), payout.Fee.String(),
		payout.Currency, payout.Status, ts(payout.CreatedAt),
	).Scan(&payout.ID, timeCol{&payout.CreatedAt})
}

func (r *PayoutRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Payout, error) {
	p, err := scanPayout(r.s.read(tx).QueryRowContext(ctx, `SELECT `+payoutColumns+` FROM payouts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPayoutNotFound
	}
	return p, err
}

func (r *PayoutRepository) ListUnmatched(ctx context.Context, tx usecase.Transaction, storeID *string) ([]*domain.Payout, error) {
	var f filter
	f.add("NOT EXISTS (SELECT 1 FROM reconciliation_matches m WHERE m.payout_id = payouts.id)")
	if storeID != nil {
		f.add("store_id = ?", *storeID)
	}

	rows, err := r.s.read(tx).QueryContext(ctx,
		`SELECT `+payoutColumns+` FROM payouts`+f.where()+` ORDER BY created_at, rowid`, f.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payouts := []*domain.Payout{}
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}

// ReconciliationRepository implements usecase.ReconciliationRepository.
type ReconciliationRepository struct {
	s *Store
}

const matchColumns = `m.id, m.payout_id, m.order_id, m.account_id, m.amount, m.is_matched, m.matched_at,
	m.method, m.created_by, m.created_at, m.updated_at`

func scanMatch(row scanner) (*domain.ReconciliationMatch, error) {
	var m domain.ReconciliationMatch
	err := row.Scan(&m.ID, &m.PayoutID, &m.OrderID, &m.AccountID, &m.Amount, &m.IsMatched,
		nullTimeCol{&m.MatchedAt}, &m.Method, &m.CreatedBy, timeCol{&m.CreatedAt}, timeCol{&m.UpdatedAt})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func exists(ctx context.Context, q querier, table, id string) (bool, error) {
	var ok bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = ?)`, id).Scan(&ok)
	return ok, err
}

// Create stores a match between an existing payout and order.
func (r *ReconciliationRepository) Create(ctx context.Context, tx usecase.Transaction, match *domain.ReconciliationMatch) error {
	return r.s.atomic(ctx, tx, func(q querier) error {
		if ok, err := exists(ctx, q, "payouts", match.PayoutID); err != nil {
			return err
		} else if !ok {
			return domain.ErrPayoutNotFound
		}
		if ok, err := exists(ctx, q, "orders", match.OrderID); err != nil {
			return err
		} else if !ok {
			return domain.ErrOrderNotFound
		}

		_, err := q.ExecContext(ctx,
			`INSERT INTO reconciliation_matches (id, payout_id, order_id, account_id, amount, is_matched, matched_at,
				method, created_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			match.ID, match.PayoutID, match.OrderID, match.AccountID, match.Amount.String(),
			boolToInt(match.IsMatched), nullableTS(match.MatchedAt), string(match.Method), match.CreatedBy,
			ts(match.CreatedAt), ts(match.UpdatedAt))
		return err
	})
}

func (r *ReconciliationRepository) Update(ctx context.Context, tx usecase.Transaction, match *domain.ReconciliationMatch) error {
	res, err := r.s.write(tx).ExecContext(ctx,
		`UPDATE reconciliation_matches
		SET account_id = ?, amount = ?, is_matched = ?, matched_at = ?, method = ?, updated_at = ?
		WHERE id = ?`,
		match.AccountID, match.Amount.String(), boolToInt(match.IsMatched), nullableTS(match.MatchedAt),
		string(match.Method), ts(match.UpdatedAt), match.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrMatchNotFound
	}
	return nil
}

func (r *ReconciliationRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	res, err := r.s.write(tx).ExecContext(ctx, `DELETE FROM reconciliation_matches WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrMatchNotFound
	}
	return nil
}

func (r *ReconciliationRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.ReconciliationMatch, error) {
	m, err := scanMatch(r.s.read(tx).QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM reconciliation_matches m WHERE m.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMatchNotFound
	}
	return m, err
}

// List returns matches newest first. A store filter applies to the payout's store.
func (r *ReconciliationRepository) List(ctx context.Context, tx usecase.Transaction, mf domain.MatchFilter) ([]*domain.ReconciliationMatch, int64, error) {
	from := ` FROM reconciliation_matches m`
	var f filter
	if mf.StoreID != nil {
		from += ` JOIN payouts p ON p.id = m.payout_id`
		f.add("p.store_id = ?", *mf.StoreID)
	}
	if mf.IsMatched != nil {
		f.add("m.is_matched = ?", boolToInt(*mf.IsMatched))
	}

	q := r.s.read(tx)
	var total int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*)`+from+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+matchColumns+from+f.where()+` ORDER BY m.created_at DESC, m.rowid DESC`+page(mf.Limit, mf.Offset),
		f.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	matches := []*domain.ReconciliationMatch{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, 0, err
		}
		matches = append(matches, m)
	}
	return matches, total, rows.Err()
}
