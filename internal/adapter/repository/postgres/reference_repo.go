package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/postgres/generated"
	"github.com/iho/gobooks/internal/usecase"
)

// DocumentRepository implements usecase.DocumentRepository.
type DocumentRepository struct {
	db generated.DBTX
}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(db generated.DBTX) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, kind, number, counterparty, currency, total, paid, booked_rate, issue_date, due_date, status, created_at`

// Create stores an invoice or bill.
func (r *DocumentRepository) Create(ctx context.Context, tx usecase.Transaction, doc *domain.Document) error {
	query := `INSERT INTO documents (` + documentColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := conn(r.db, tx).Exec(ctx, query,
		doc.ID,
		string(doc.Kind),
		doc.Number,
		doc.Counterparty,
		doc.Currency,
		decimalToNumeric(doc.Total),
		decimalToNumeric(doc.Paid),
		decimalToNumeric(doc.BookedRate),
		doc.IssueDate,
		doc.DueDate,
		doc.Status,
		doc.CreatedAt,
	)

	return err
}

// List returns documents ordered by due date, then number.
func (r *DocumentRepository) List(ctx context.Context, tx usecase.Transaction, df domain.DocumentFilter) ([]*domain.Document, error) {
	var f filter
	if df.Kind != "" {
		f.add("kind = ?", string(df.Kind))
	}
	if df.OpenOnly {
		f.conds = append(f.conds, "total > paid")
	}
	if df.Currency != nil {
		f.add("currency = ?", *df.Currency)
	}

	rows, err := conn(r.db, tx).Query(ctx, `SELECT `+documentColumns+` FROM documents`+f.where()+` ORDER BY due_date, number`, f.args...)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Document, error) {
		var (
			d                 domain.Document
			kind              string
			total, paid, rate pgtype.Numeric
		)
		err := row.Scan(&d.ID, &kind, &d.Number, &d.Counterparty, &d.Currency, &total, &paid, &rate,
			&d.IssueDate, &d.DueDate, &d.Status, &d.CreatedAt)
		d.Kind = domain.DocumentKind(kind)
		d.Total = numericToDecimal(total)
		d.Paid = numericToDecimal(paid)
		d.BookedRate = numericToDecimal(rate)
		return &d, err
	})
}

// ExchangeRateRepository implements usecase.ExchangeRateRepository.
type ExchangeRateRepository struct {
	db generated.DBTX
}

// NewExchangeRateRepository creates a new ExchangeRateRepository.
func NewExchangeRateRepository(db generated.DBTX) *ExchangeRateRepository {
	return &ExchangeRateRepository{db: db}
}

// Create stores a rate.
func (r *ExchangeRateRepository) Create(ctx context.Context, tx usecase.Transaction, rate *domain.ExchangeRate) error {
	query := `
		INSERT INTO exchange_rates (id, from_currency, to_currency, rate, effective_date)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := conn(r.db, tx).Exec(ctx, query, rate.ID, rate.From, rate.To, decimalToNumeric(rate.Rate), rate.EffectiveDate)
	return err
}

// Latest returns the newest rate effective on or before asOf, or nil.
func (r *ExchangeRateRepository) Latest(ctx context.Context, tx usecase.Transaction, from, to string, asOf time.Time) (*domain.ExchangeRate, error) {
	query := `
		SELECT id, from_currency, to_currency, rate, effective_date
		FROM exchange_rates
		WHERE from_currency = $1 AND to_currency = $2 AND effective_date <= $3
		ORDER BY effective_date DESC
		LIMIT 1
	`

	var (
		er   domain.ExchangeRate
		rate pgtype.Numeric
	)
	err := conn(r.db, tx).QueryRow(ctx, query, from, to, asOf).Scan(&er.ID, &er.From, &er.To, &rate, &er.EffectiveDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	er.Rate = numericToDecimal(rate)
	return &er, nil
}

// BudgetRepository implements usecase.BudgetRepository.
type BudgetRepository struct {
	db generated.DBTX
}

// NewBudgetRepository creates a new BudgetRepository.
func NewBudgetRepository(db generated.DBTX) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// Upsert stores a budget, replacing the amount of an existing account/year/month row.
func (r *BudgetRepository) Upsert(ctx context.Context, tx usecase.Transaction, budget *domain.Budget) error {
	query := `
		INSERT INTO budgets (id, account_id, fiscal_year, month, amount)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id, fiscal_year, month) DO UPDATE SET amount = EXCLUDED.amount
		RETURNING id
	`

	return conn(r.db, tx).QueryRow(ctx, query,
		budget.ID,
		budget.AccountID,
		budget.FiscalYear,
		budget.Month,
		decimalToNumeric(budget.Amount),
	).Scan(&budget.ID)
}

// List returns budgets for a year; month 0 returns every month.
func (r *BudgetRepository) List(ctx context.Context, tx usecase.Transaction, fiscalYear, month int) ([]*domain.Budget, error) {
	var f filter
	f.add("fiscal_year = ?", fiscalYear)
	if month != 0 {
		f.add("month = ?", month)
	}

	rows, err := conn(r.db, tx).Query(ctx,
		`SELECT id, account_id, fiscal_year, month, amount FROM budgets`+f.where()+` ORDER BY account_id, month`, f.args...)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Budget, error) {
		var (
			b      domain.Budget
			amount pgtype.Numeric
		)
		err := row.Scan(&b.ID, &b.AccountID, &b.FiscalYear, &b.Month, &amount)
		b.Amount = numericToDecimal(amount)
		return &b, err
	})
}

// InventoryRepository implements usecase.InventoryRepository.
type InventoryRepository struct {
	db generated.DBTX
}

// NewInventoryRepository creates a new InventoryRepository.
func NewInventoryRepository(db generated.DBTX) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// CreateItem stores an item and any movements it carries.
func (r *InventoryRepository) CreateItem(ctx context.Context, tx usecase.Transaction, item *domain.InventoryItem) error {
	db := conn(r.db, tx)

	_, err := db.Exec(ctx,
		`INSERT INTO inventory_items (id, sku, name, category, method) VALUES ($1, $2, $3, $4, $5)`,
		item.ID, item.SKU, item.Name, item.Category, string(item.Method))
	if err != nil {
		return mapConstraintError(err)
	}

	for _, m := range item.Movements {
		if err := r.AddMovement(ctx, tx, item.ID, m); err != nil {
			return err
		}
	}

	return nil
}

// AddMovement appends a stock movement to an item.
func (r *InventoryRepository) AddMovement(ctx context.Context, tx usecase.Transaction, itemID string, movement domain.StockMovement) error {
	_, err := conn(r.db, tx).Exec(ctx,
		`INSERT INTO stock_movements (item_id, type, quantity, unit_cost, date) VALUES ($1, $2, $3, $4, $5)`,
		itemID, string(movement.Type), movement.Quantity, decimalToNumeric(movement.UnitCost), movement.Date)

	return mapConstraintError(err)
}

// List returns every item ordered by SKU with its movements in date order.
func (r *InventoryRepository) List(ctx context.Context, tx usecase.Transaction) ([]*domain.InventoryItem, error) {
	db := conn(r.db, tx)

	rows, err := db.Query(ctx, `SELECT id, sku, name, category, method FROM inventory_items ORDER BY sku`)
	if err != nil {
		return nil, err
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.InventoryItem, error) {
		var (
			item   domain.InventoryItem
			method string
		)
		err := row.Scan(&item.ID, &item.SKU, &item.Name, &item.Category, &method)
		item.Method = domain.ValuationMethod(method)
		return &item, err
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.InventoryItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	rows, err = db.Query(ctx, `SELECT item_id, type, quantity, unit_cost, date FROM stock_movements ORDER BY item_id, date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			itemID, kind string
			m            domain.StockMovement
			cost         pgtype.Numeric
		)
		if err := rows.Scan(&itemID, &kind, &m.Quantity, &cost, &m.Date); err != nil {
			return nil, err
		}
		m.Type = domain.MovementType(kind)
		m.UnitCost = numericToDecimal(cost)

		if item, ok := byID[itemID]; ok {
			item.Movements = append(item.Movements, m)
		}
	}

	return items, rows.Err()
}

// FixedAssetRepository implements usecase.FixedAssetRepository.
type FixedAssetRepository struct {
	db generated.DBTX
}

// NewFixedAssetRepository creates a new FixedAssetRepository.
func NewFixedAssetRepository(db generated.DBTX) *FixedAssetRepository {
	return &FixedAssetRepository{db: db}
}

const assetColumns = `id, number, name, category, purchase_date, cost, salvage_value, useful_life_months, disposal_date`

// Create stores an asset.
func (r *FixedAssetRepository) Create(ctx context.Context, tx usecase.Transaction, asset *domain.FixedAsset) error {
	_, err := conn(r.db, tx).Exec(ctx,
		`INSERT INTO fixed_assets (`+assetColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		asset.ID,
		asset.Number,
		asset.Name,
		asset.Category,
		asset.PurchaseDate,
		decimalToNumeric(asset.Cost),
		decimalToNumeric(asset.SalvageValue),
		asset.UsefulLifeMonths,
		asset.DisposalDate,
	)

	return err
}

// List returns every asset ordered by number.
func (r *FixedAssetRepository) List(ctx context.Context, tx usecase.Transaction) ([]*domain.FixedAsset, error) {
	rows, err := conn(r.db, tx).Query(ctx, `SELECT `+assetColumns+` FROM fixed_assets ORDER BY number`)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.FixedAsset, error) {
		var (
			a             domain.FixedAsset
			cost, salvage pgtype.Numeric
		)
		err := row.Scan(&a.ID, &a.Number, &a.Name, &a.Category, &a.PurchaseDate, &cost, &salvage,
			&a.UsefulLifeMonths, &a.DisposalDate)
		a.Cost = numericToDecimal(cost)
		a.SalvageValue = numericToDecimal(salvage)
		return &a, err
	})
}

// SettingsRepository implements usecase.SettingsRepository.
type SettingsRepository struct {
	db generated.DBTX
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(db generated.DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

const settingsColumns = `default_cash_account_id, default_sales_account_id, default_tax_account_id,
	default_fee_account_id, default_fees_payable_account_id, default_cogs_account_id,
	default_inventory_account_id, default_ar_account_id, default_ap_account_id`

// Get returns the saved settings, or empty settings when none exist.
func (r *SettingsRepository) Get(ctx context.Context, tx usecase.Transaction) (*domain.Settings, error) {
	var s domain.Settings
	err := conn(r.db, tx).QueryRow(ctx, `SELECT `+settingsColumns+` FROM settings WHERE id = 1`).Scan(
		&s.DefaultCashAccountID,
		&s.DefaultSalesAccountID,
		&s.DefaultTaxAccountID,
		&s.DefaultFeeAccountID,
		&s.DefaultFeesPayableAccountID,
		&s.DefaultCOGSAccountID,
		&s.DefaultInventoryAccountID,
		&s.DefaultARAccountID,
		&s.DefaultAPAccountID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.Settings{}, nil
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// Save replaces the settings row.
func (r *SettingsRepository) Save(ctx context.Context, tx usecase.Transaction, s *domain.Settings) error {
	query := `
		INSERT INTO settings (id, ` + settingsColumns + `)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
		    default_cash_account_id = EXCLUDED.default_cash_account_id,
		    default_sales_account_id = EXCLUDED.default_sales_account_id,
		    default_tax_account_id = EXCLUDED.default_tax_account_id,
		    default_fee_account_id = EXCLUDED.default_fee_account_id,
		    default_fees_payable_account_id = EXCLUDED.default_fees_payable_account_id,
		    default_cogs_account_id = EXCLUDED.default_cogs_account_id,
		    default_inventory_account_id = EXCLUDED.default_inventory_account_id,
		    default_ar_account_id = EXCLUDED.default_ar_account_id,
		    default_ap_account_id = EXCLUDED.default_ap_account_id
	`

	_, err := conn(r.db, tx).Exec(ctx, query,
		s.DefaultCashAccountID,
		s.DefaultSalesAccountID,
		s.DefaultTaxAccountID,
		s.DefaultFeeAccountID,
		s.DefaultFeesPayableAccountID,
		s.DefaultCOGSAccountID,
		s.DefaultInventoryAccountID,
		s.DefaultARAccountID,
		s.DefaultAPAccountID,
	)

	return err
}
