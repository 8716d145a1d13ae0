package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// DocumentRepository implements usecase.DocumentRepository.
type DocumentRepository struct {
	s *Store
}

const documentColumns = `id, kind, number, counterparty, currency, total, paid, booked_rate,
	issue_date, due_date, status, created_at`

func (r *DocumentRepository) Create(ctx context.Context, tx usecase.Transaction, doc *domain.Document) error {
	_, err := r.s.write(tx).ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, string(doc.Kind), doc.Number, doc.Counterparty, doc.Currency, doc.Total.String(),
		doc.Paid.String(), doc.BookedRate.String(), ts(doc.IssueDate), ts(doc.DueDate), doc.Status, ts(doc.CreatedAt))
	return err
}

// List returns documents by due date. OpenOnly compares decimals, so it is applied after the scan.
func (r *DocumentRepository) List(ctx context.Context, tx usecase.Transaction, df domain.DocumentFilter) ([]*domain.Document, error) {
	var f filter
	if df.Kind != "" {
		f.add("kind = ?", string(df.Kind))
	}
	if df.Currency != nil {
		f.add("currency = ?", *df.Currency)
	}

	rows, err := r.s.read(tx).QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents`+f.where()+` ORDER BY due_date, number`, f.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []*domain.Document{}
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.Kind, &d.Number, &d.Counterparty, &d.Currency, &d.Total, &d.Paid,
			&d.BookedRate, timeCol{&d.IssueDate}, timeCol{&d.DueDate}, &d.Status, timeCol{&d.CreatedAt}); err != nil {
			return nil, err
		}
		if df.OpenOnly && !d.IsOpen() {
			continue
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

// ExchangeRateRepository implements usecase.ExchangeRateRepository.
type ExchangeRateRepository struct {
	s *Store
}

func (r *ExchangeRateRepository) Create(ctx context.Context, tx usecase.Transaction, rate *domain.ExchangeRate) error {
	_, err := r.s.write(tx).ExecContext(ctx,
		`INSERT INTO exchange_rates (id, from_currency, to_currency, rate, effective_date) VALUES (?, ?, ?, ?, ?)`,
		rate.ID, rate.From, rate.To, rate.Rate.String(), ts(rate.EffectiveDate))
	return err
}

// Latest returns the newest rate effective on or before asOf, or nil. The
// latest inserted row wins a tie on date.
func (r *ExchangeRateRepository) Latest(ctx context.Context, tx usecase.Transaction, from, to string, asOf time.Time) (*domain.ExchangeRate, error) {
	var rate domain.ExchangeRate
	err := r.s.read(tx).QueryRowContext(ctx,
		`SELECT id, from_currency, to_currency, rate, effective_date FROM exchange_rates
		WHERE from_currency = ? AND to_currency = ? AND effective_date <= ?
		ORDER BY effective_date DESC, rowid DESC LIMIT 1`,
		from, to, ts(asOf),
	).Scan(&rate.ID, &rate.From, &rate.To, &rate.Rate, timeCol{&rate.EffectiveDate})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

// BudgetRepository implements usecase.BudgetRepository.
type BudgetRepository struct {
	s *Store
}

// Upsert replaces the amount of an existing account/year/month budget and keeps its ID.
func (r *BudgetRepository) Upsert(ctx context.Context, tx usecase.Transaction, budget *domain.Budget) error {
	return r.s.write(tx).QueryRowContext(ctx,
		`INSERT INTO budgets (id, account_id, fiscal_year, month, amount) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (account_id, fiscal_year, month) DO UPDATE SET amount = excluded.amount
		RETURNING id`,
		budget.ID, budget.AccountID, budget.FiscalYear, budget.Month, budget.Amount.String(),
	).Scan(&budget.ID)
}

func (r *BudgetRepository) List(ctx context.Context, tx usecase.Transaction, fiscalYear, month int) ([]*domain.Budget, error) {
	var f filter
	f.add("fiscal_year = ?", fiscalYear)
	if month != 0 {
		f.add("month = ?", month)
	}

	rows, err := r.s.read(tx).QueryContext(ctx,
		`SELECT id, account_id, fiscal_year, month, amount FROM budgets`+f.where()+` ORDER BY account_id, month`, f.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	budgets := []*domain.Budget{}
	for rows.Next() {
		var b domain.Budget
		if err := rows.Scan(&b.ID, &b.AccountID, &b.FiscalYear, &b.Month, &b.Amount); err != nil {
			return nil, err
		}
		budgets = append(budgets, &b)
	}
	return budgets, rows.Err()
}

// InventoryRepository implements usecase.InventoryRepository.
type InventoryRepository struct {
	s *Store
}

func insertMovement(ctx context.Context, q querier, itemID string, m domain.StockMovement) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO stock_movements (item_id, type, quantity, unit_cost, date) VALUES (?, ?, ?, ?, ?)`,
		itemID, string(m.Type), m.Quantity, m.UnitCost.String(), ts(m.Date))
	return err
}

// CreateItem stores the item with any opening movements.
func (r *InventoryRepository) CreateItem(ctx context.Context, tx usecase.Transaction, item *domain.InventoryItem) error {
	return r.s.atomic(ctx, tx, func(q querier) error {
		_, err := q.ExecContext(ctx,
			`INSERT INTO inventory_items (id, sku, name, category, method) VALUES (?, ?, ?, ?, ?)`,
			item.ID, item.SKU, item.Name, item.Category, string(item.Method))
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed: inventory_items.sku") {
				return fmt.Errorf("%w: sku %s already exists", domain.ErrValidation, item.SKU)
			}
			return err
		}
		for _, m := range item.Movements {
			if err := insertMovement(ctx, q, item.ID, m); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *InventoryRepository) AddMovement(ctx context.Context, tx usecase.Transaction, itemID string, movement domain.StockMovement) error {
	return r.s.atomic(ctx, tx, func(q querier) error {
		ok, err := exists(ctx, q, "inventory_items", itemID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInventoryItemNotFound
		}
		return insertMovement(ctx, q, itemID, movement)
	})
}

// List returns items by SKU with movements oldest first.
func (r *InventoryRepository) List(ctx context.Context, tx usecase.Transaction) ([]*domain.InventoryItem, error) {
	q := r.s.read(tx)

	rows, err := q.QueryContext(ctx, `SELECT id, sku, name, category, method FROM inventory_items ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	items := []*domain.InventoryItem{}
	byID := make(map[string]*domain.InventoryItem)
	for rows.Next() {
		var item domain.InventoryItem
		if err := rows.Scan(&item.ID, &item.SKU, &item.Name, &item.Category, &item.Method); err != nil {
			rows.Close()
			return nil, err
		}
		items = append(items, &item)
		byID[item.ID] = &item
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.QueryContext(ctx, `SELECT item_id, type, quantity, unit_cost, date FROM stock_movements ORDER BY item_id, date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			itemID string
			m      domain.StockMovement
		)
		if err := rows.Scan(&itemID, &m.Type, &m.Quantity, &m.UnitCost, timeCol{&m.Date}); err != nil {
			return nil, err
		}
		if item, ok := byID[itemID]; ok {
			item.Movements = append(item.Movements, m)
		}
	}
	return items, rows.Err()
}

// FixedAssetRepository implements usecase.FixedAssetRepository.
type FixedAssetRepository struct {
	s *Store
}

func (r *FixedAssetRepository) Create(ctx context.Context, tx usecase.Transaction, asset *domain.FixedAsset) error {
	_, err := r.s.write(tx).ExecContext(ctx,
		`INSERT INTO fixed_assets (id, number, name, category, purchase_date, cost, salvage_value, useful_life_months, disposal_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		asset.ID, asset.Number, asset.Name, asset.Category, ts(asset.PurchaseDate), asset.Cost.String(),
		asset.SalvageValue.String(), asset.UsefulLifeMonths, nullableTS(asset.DisposalDate))
	return err
}

func (r *FixedAssetRepository) List(ctx context.Context, tx usecase.Transaction) ([]*domain.FixedAsset, error) {
	rows, err := r.s.read(tx).QueryContext(ctx,
		`SELECT id, number, name, category, purchase_date, cost, salvage_value, useful_life_months, disposal_date
		FROM fixed_assets ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assets := []*domain.FixedAsset{}
	for rows.Next() {
		var a domain.FixedAsset
		if err := rows.Scan(&a.ID, &a.Number, &a.Name, &a.Category, timeCol{&a.PurchaseDate}, &a.Cost,
			&a.SalvageValue, &a.UsefulLifeMonths, nullTimeCol{&a.DisposalDate}); err != nil {
			return nil, err
		}
		assets = append(assets, &a)
	}
	return assets, rows.Err()
}

// SettingsRepository implements usecase.SettingsRepository.
type SettingsRepository struct {
	s *Store
}

// Get returns the saved settings, or empty settings before the first Save.
func (r *SettingsRepository) Get(ctx context.Context, tx usecase.Transaction) (*domain.Settings, error) {
	var st domain.Settings
	err := r.s.read(tx).QueryRowContext(ctx,
		`SELECT default_cash_account_id, default_sales_account_id, default_tax_account_id,
			default_fee_account_id, default_fees_payable_account_id, default_cogs_account_id,
			default_inventory_account_id, default_ar_account_id, default_ap_account_id
		FROM settings WHERE id = 1`,
	).Scan(nullTextCol{&st.DefaultCashAccountID}, nullTextCol{&st.DefaultSalesAccountID},
		nullTextCol{&st.DefaultTaxAccountID}, nullTextCol{&st.DefaultFeeAccountID},
		nullTextCol{&st.DefaultFeesPayableAccountID}, nullTextCol{&st.DefaultCOGSAccountID},
		nullTextCol{&st.DefaultInventoryAccountID}, nullTextCol{&st.DefaultARAccountID},
		nullTextCol{&st.DefaultAPAccountID})
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.Settings{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *SettingsRepository) Save(ctx context.Context, tx usecase.Transaction, st *domain.Settings) error {
	_, err := r.s.write(tx).ExecContext(ctx,
		`INSERT INTO settings (id, default_cash_account_id, default_sales_account_id, default_tax_account_id,
			default_fee_account_id, default_fees_payable_account_id, default_cogs_account_id,
			default_inventory_account_id, default_ar_account_id, default_ap_account_id)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			default_cash_account_id = excluded.default_cash_account_id,
			default_sales_account_id = excluded.default_sales_account_id,
			default_tax_account_id = excluded.default_tax_account_id,
			default_fee_account_id = excluded.default_fee_account_id,
			default_fees_payable_account_id = excluded.default_fees_payable_account_id,
			default_cogs_account_id = excluded.default_cogs_account_id,
			default_inventory_account_id = excluded.default_inventory_account_id,
			default_ar_account_id = excluded.default_ar_account_id,
			default_ap_account_id = excluded.default_ap_account_id`,
		nullable(st.DefaultCashAccountID), nullable(st.DefaultSalesAccountID), nullable(st.DefaultTaxAccountID),
		nullable(st.DefaultFeeAccountID), nullable(st.DefaultFeesPayableAccountID), nullable(st.DefaultCOGSAccountID),
		nullable(st.DefaultInventoryAccountID), nullable(st.DefaultARAccountID), nullable(st.DefaultAPAccountID))
	return err
}

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	s *Store
}

func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	_, err = r.s.write(tx).ExecContext(ctx,
		`INSERT INTO outbox_events (id, aggregate_id, aggregate_type, event_type, payload, created_at, published_at, published)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.AggregateID, event.AggregateType, event.EventType, string(payload),
		ts(event.CreatedAt), nullableTS(event.PublishedAt), boolToInt(event.Published))
	return err
}

// GetUnpublished returns pending events oldest first.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	rows, err := r.s.reader.QueryContext(ctx,
		`SELECT id, aggregate_id, aggregate_type, event_type, payload, created_at, published_at, published
		FROM outbox_events WHERE published = 0 ORDER BY created_at, rowid`+page(limit, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*domain.OutboxEvent{}
	for rows.Next() {
		var (
			e       domain.OutboxEvent
			payload string
		)
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &payload,
			timeCol{&e.CreatedAt}, nullTimeCol{&e.PublishedAt}, &e.Published); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(payload), &e.Payload)
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	_, err := r.s.writer.ExecContext(ctx,
		`UPDATE outbox_events SET published = 1, published_at = ? WHERE id = ?`, ts(publishedAt), id)
	return err
}

func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	_, err := r.s.writer.ExecContext(ctx,
		`DELETE FROM outbox_events WHERE published = 1 AND published_at < ?`, ts(before))
	return err
}

// AuditRepository implements usecase.AuditRepository.
type AuditRepository struct {
	s *Store
}

func marshalState(state domain.JSON) (any, error) {
	if state == nil {
		return nil, nil
	}
	b, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *AuditRepository) Create(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	before, err := marshalState(log.BeforeState)
	if err != nil {
		return fmt.Errorf("marshal before state: %w", err)
	}
	after, err := marshalState(log.AfterState)
	if err != nil {
		return fmt.Errorf("marshal after state: %w", err)
	}

	_, err = r.s.write(tx).ExecContext(ctx,
		`INSERT INTO audit_logs (id, user_id, action, resource_type, resource_id, request_id,
			before_state, after_state, status, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.UserID, log.Action, log.ResourceType, log.ResourceID, log.RequestID,
		before, after, log.Status, log.ErrorMessage, ts(log.CreatedAt))
	return err
}

// List returns matching logs newest first.
func (r *AuditRepository) List(ctx context.Context, tx usecase.Transaction, af domain.AuditFilter) ([]*domain.AuditLog, error) {
	var f filter
	if af.UserID != "" {
		f.add("user_id = ?", af.UserID)
	}
	if af.Action != "" {
		f.add("action = ?", af.Action)
	}
	if af.ResourceType != "" {
		f.add("resource_type = ?", af.ResourceType)
	}
	if af.ResourceID != "" {
		f.add("resource_id = ?", af.ResourceID)
	}
	if af.StartDate != nil {
		f.add("created_at >= ?", ts(*af.StartDate))
	}
	if af.EndDate != nil {
		f.add("created_at <= ?", ts(*af.EndDate))
	}

	rows, err := r.s.read(tx).QueryContext(ctx,
		`SELECT id, user_id, action, resource_type, resource_id, request_id, before_state, after_state,
			status, error_message, created_at
		FROM audit_logs`+f.where()+` ORDER BY created_at DESC, rowid DESC`+page(af.Limit, af.Offset), f.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*domain.AuditLog{}
	for rows.Next() {
		var (
			l             domain.AuditLog
			before, after *string
		)
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.ResourceType, &l.ResourceID, &l.RequestID,
			nullTextCol{&before}, nullTextCol{&after}, &l.Status, &l.ErrorMessage, timeCol{&l.CreatedAt}); err != nil {
			return nil, err
		}
		if before != nil {
			_ = json.Unmarshal([]byte(*before), &l.BeforeState)
		}
		if after != nil {
			_ = json.Unmarshal([]byte(*after), &l.AfterState)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
