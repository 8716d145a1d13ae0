package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var version int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version < 1 {
		if err := migrateV1(ctx, tx); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}

	return tx.Commit()
}

// migrateV1 mirrors migrations/000001_init_schema.up.sql. Amounts are TEXT
// decimals and times are TEXT in timeLayout; both are summed and compared in Go
// or as fixed-width strings, never as SQLite numbers.
func migrateV1(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE accounts (
			id          TEXT PRIMARY KEY,
			code        TEXT NOT NULL UNIQUE,
			name        TEXT NOT NULL,
			type        TEXT NOT NULL CHECK (type IN ('ASSET','LIABILITY','EQUITY','REVENUE','EXPENSE','COST_OF_GOODS_SOLD')),
			role        TEXT NOT NULL DEFAULT '',
			parent_id   TEXT,
			is_active   INTEGER NOT NULL DEFAULT 1,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		)`,
		`CREATE INDEX idx_accounts_type ON accounts (type)`,

		`CREATE TABLE stores (
			id          TEXT PRIMARY KEY,
			domain      TEXT NOT NULL UNIQUE,
			name        TEXT NOT NULL,
			currency    TEXT NOT NULL,
			is_active   INTEGER NOT NULL DEFAULT 1,
			created_at  TEXT NOT NULL
		)`,

		`CREATE TABLE journal_entries (
			id            TEXT PRIMARY KEY,
			reference     TEXT NOT NULL UNIQUE,
			description   TEXT NOT NULL,
			date          TEXT NOT NULL,
			store_id      TEXT,
			source_type   TEXT NOT NULL DEFAULT '',
			source_id     TEXT NOT NULL DEFAULT '',
			reverses_id   TEXT,
			total_debit   TEXT NOT NULL,
			total_credit  TEXT NOT NULL,
			is_posted     INTEGER NOT NULL DEFAULT 0,
			posted_at     TEXT,
			created_by    TEXT NOT NULL,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		)`,
		`CREATE UNIQUE INDEX uq_journal_entries_reverses ON journal_entries (reverses_id) WHERE reverses_id IS NOT NULL`,
		`CREATE INDEX idx_journal_entries_posted_date ON journal_entries (is_posted, date)`,

		`CREATE TABLE journal_lines (
			id                TEXT PRIMARY KEY,
			journal_entry_id  TEXT NOT NULL REFERENCES journal_entries (id) ON DELETE CASCADE,
			account_id        TEXT NOT NULL REFERENCES accounts (id),
			line_no           INTEGER NOT NULL,
			debit             TEXT NOT NULL,
			credit            TEXT NOT NULL,
			description       TEXT NOT NULL DEFAULT '',
			UNIQUE (journal_entry_id, line_no)
		)`,
		`CREATE INDEX idx_journal_lines_account ON journal_lines (account_id)`,

		`CREATE TABLE orders (
			id                TEXT PRIMARY KEY,
			external_id       TEXT NOT NULL UNIQUE,
			store_id          TEXT,
			order_number      TEXT NOT NULL,
			customer_name     TEXT NOT NULL DEFAULT '',
			customer_email    TEXT NOT NULL DEFAULT '',
			total_price       TEXT NOT NULL,
			subtotal_price    TEXT NOT NULL,
			total_tax         TEXT NOT NULL,
			currency          TEXT NOT NULL,
			financial_status  TEXT NOT NULL,
			processed_at      TEXT,
			created_at        TEXT NOT NULL
		)`,
		`CREATE INDEX idx_orders_effective ON orders (COALESCE(processed_at, created_at))`,

		`CREATE TABLE refunds (
			id           TEXT PRIMARY KEY,
			external_id  TEXT NOT NULL UNIQUE,
			order_id     TEXT NOT NULL,
			store_id     TEXT,
			amount       TEXT NOT NULL,
			currency     TEXT NOT NULL,
			reason       TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL
		)`,

		`CREATE TABLE payouts (
			id           TEXT PRIMARY KEY,
			external_id  TEXT NOT NULL UNIQUE,
			store_id     TEXT,
			amount       TEXT NOT NULL,
			fee          TEXT NOT NULL,
			currency     TEXT NOT NULL,
			status       TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL
		)`,

		`CREATE TABLE reconciliation_matches (
			id          TEXT PRIMARY KEY,
			payout_id   TEXT NOT NULL REFERENCES payouts (id),
			order_id    TEXT NOT NULL REFERENCES orders (id),
			account_id  TEXT NOT NULL,
			amount      TEXT NOT NULL,
			is_matched  INTEGER NOT NULL DEFAULT 1,
			matched_at  TEXT,
			method      TEXT NOT NULL,
			created_by  TEXT NOT NULL,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		)`,
		`CREATE INDEX idx_matches_payout ON reconciliation_matches (payout_id)`,
		`CREATE INDEX idx_matches_order ON reconciliation_matches (order_id)`,

		`CREATE TABLE documents (
			id            TEXT PRIMARY KEY,
			kind          TEXT NOT NULL CHECK (kind IN ('INVOICE','BILL')),
			number        TEXT NOT NULL,
			counterparty  TEXT NOT NULL,
			currency      TEXT NOT NULL,
			total         TEXT NOT NULL,
			paid          TEXT NOT NULL,
			booked_rate   TEXT NOT NULL,
			issue_date    TEXT NOT NULL,
			due_date      TEXT NOT NULL,
			status        TEXT NOT NULL,
			created_at    TEXT NOT NULL
		)`,

		`CREATE TABLE exchange_rates (
			id              TEXT PRIMARY KEY,
			from_currency   TEXT NOT NULL,
			to_currency     TEXT NOT NULL,
			rate            TEXT NOT NULL,
			effective_date  TEXT NOT NULL
		)`,
		`CREATE INDEX idx_exchange_rates_pair ON exchange_rates (from_currency, to_currency, effective_date DESC)`,

		`CREATE TABLE budgets (
			id           TEXT PRIMARY KEY,
			account_id   TEXT NOT NULL,
			fiscal_year  INTEGER NOT NULL,
			month        INTEGER NOT NULL CHECK (month BETWEEN 0 AND 12),
			amount       TEXT NOT NULL,
			UNIQUE (account_id, fiscal_year, month)
		)`,

		`CREATE TABLE inventory_items (
			id        TEXT PRIMARY KEY,
			sku       TEXT NOT NULL UNIQUE,
			name      TEXT NOT NULL,
			category  TEXT NOT NULL DEFAULT '',
			method    TEXT NOT NULL
		)`,

		`CREATE TABLE stock_movements (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id    TEXT NOT NULL REFERENCES inventory_items (id) ON DELETE CASCADE,
			type       TEXT NOT NULL CHECK (type IN ('IN','OUT')),
			quantity   INTEGER NOT NULL,
			unit_cost  TEXT NOT NULL,
			date       TEXT NOT NULL
		)`,
		`CREATE INDEX idx_stock_movements_item ON stock_movements (item_id, date, id)`,

		`CREATE TABLE fixed_assets (
			id                  TEXT PRIMARY KEY,
			number              TEXT NOT NULL,
			name                TEXT NOT NULL,
			category            TEXT NOT NULL DEFAULT '',
			purchase_date       TEXT NOT NULL,
			cost                TEXT NOT NULL,
			salvage_value       TEXT NOT NULL,
			useful_life_months  INTEGER NOT NULL,
			disposal_date       TEXT
		)`,

		`CREATE TABLE settings (
			id                               INTEGER PRIMARY KEY CHECK (id = 1),
			default_cash_account_id          TEXT,
			default_sales_account_id         TEXT,
			default_tax_account_id           TEXT,
			default_fee_account_id           TEXT,
			default_fees_payable_account_id  TEXT,
			default_cogs_account_id          TEXT,
			default_inventory_account_id     TEXT,
			default_ar_account_id            TEXT,
			default_ap_account_id            TEXT
		)`,

		`CREATE TABLE outbox_events (
			id              TEXT PRIMARY KEY,
			aggregate_id    TEXT NOT NULL,
			aggregate_type  TEXT NOT NULL,
			event_type      TEXT NOT NULL,
			payload         TEXT NOT NULL,
			created_at      TEXT NOT NULL,
			published_at    TEXT,
			published       INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX idx_outbox_unpublished ON outbox_events (created_at) WHERE published = 0`,

		`CREATE TABLE audit_logs (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL,
			action         TEXT NOT NULL,
			resource_type  TEXT NOT NULL,
			resource_id    TEXT NOT NULL,
			request_id     TEXT NOT NULL DEFAULT '',
			before_state   TEXT,
			after_state    TEXT,
			status         TEXT NOT NULL,
			error_message  TEXT NOT NULL DEFAULT '',
			created_at     TEXT NOT NULL
		)`,
		`CREATE INDEX idx_audit_logs_created ON audit_logs (created_at DESC)`,

		`INSERT INTO schema_version (version) VALUES (1)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
