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

// ReconciliationRepository implements usecase.ReconciliationRepository.
type ReconciliationRepository struct {
	db generated.DBTX
}

// NewReconciliationRepository creates a new ReconciliationRepository.
func NewReconciliationRepository(db generated.DBTX) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

const matchColumns = `id, payout_id, order_id, account_id, amount, is_matched, matched_at, method, created_by, created_at, updated_at`

// Create stores a new match.
func (r *ReconciliationRepository) Create(ctx context.Context, tx usecase.Transaction, match *domain.ReconciliationMatch) error {
	query := `
		INSERT INTO reconciliation_matches (` + matchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := conn(r.db, tx).Exec(ctx, query,
		match.ID,
		match.PayoutID,
		match.OrderID,
		match.AccountID,
		decimalToNumeric(match.Amount),
		match.IsMatched,
		match.MatchedAt,
		string(match.Method),
		match.CreatedBy,
		match.CreatedAt,
		match.UpdatedAt,
	)

	return mapConstraintError(err)
}

// Update saves the mutable fields of a match.
func (r *ReconciliationRepository) Update(ctx context.Context, tx usecase.Transaction, match *domain.ReconciliationMatch) error {
	query := `
		UPDATE reconciliation_matches
		SET account_id = $2, amount = $3, is_matched = $4, matched_at = $5, updated_at = $6
		WHERE id = $1
	`

	tag, err := conn(r.db, tx).Exec(ctx, query,
		match.ID,
		match.AccountID,
		decimalToNumeric(match.Amount),
		match.IsMatched,
		match.MatchedAt,
		match.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrMatchNotFound
	}

	return nil
}

// Delete removes a match.
func (r *ReconciliationRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	tag, err := conn(r.db, tx).Exec(ctx, `DELETE FROM reconciliation_matches WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrMatchNotFound
	}

	return nil
}

// GetByID retrieves a match by ID.
func (r *ReconciliationRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.ReconciliationMatch, error) {
	rows, err := conn(r.db, tx).Query(ctx, `SELECT `+matchColumns+` FROM reconciliation_matches WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}

	match, err := pgx.CollectExactlyOneRow(rows, scanMatch)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMatchNotFound
	}

	return match, err
}

// List returns a page of matches, newest first, and the unpaged total.
func (r *ReconciliationRepository) List(ctx context.Context, tx usecase.Transaction, mf domain.MatchFilter) ([]*domain.ReconciliationMatch, int64, error) {
	var f filter
	if mf.IsMatched != nil {
		f.add("m.is_matched = ?", *mf.IsMatched)
	}
	if mf.StoreID != nil {
		f.add("p.store_id = ?", *mf.StoreID)
	}

	from := ` FROM reconciliation_matches m JOIN payouts p ON p.id = m.payout_id` + f.where()
	db := conn(r.db, tx)

	var total int64
	if err := db.QueryRow(ctx, `SELECT COUNT(*)`+from, f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT m.id, m.payout_id, m.order_id, m.account_id, m.amount, m.is_matched, m.matched_at,
		m.method, m.created_by, m.created_at, m.updated_at` + from + ` ORDER BY m.created_at DESC`
	query += f.page(mf.Limit, mf.Offset)

	rows, err := db.Query(ctx, query, f.args...)
	if err != nil {
		return nil, 0, err
	}

	matches, err := pgx.CollectRows(rows, scanMatch)
	if err != nil {
		return nil, 0, err
	}

	return matches, total, nil
}

func scanMatch(row pgx.CollectableRow) (*domain.ReconciliationMatch, error) {
	var (
		m      domain.ReconciliationMatch
		amount pgtype.Numeric
		method string
	)

	err := row.Scan(
		&m.ID,
		&m.PayoutID,
		&m.OrderID,
		&m.AccountID,
		&amount,
		&m.IsMatched,
		&m.MatchedAt,
		&method,
		&m.CreatedBy,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	m.Amount = numericToDecimal(amount)
	m.Method = domain.MatchMethod(method)

	return &m, err
}
