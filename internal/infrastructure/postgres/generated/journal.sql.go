
package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const checkLedgerConsistency = `-- name: CheckLedgerConsistency :one
SELECT
    COALESCE(SUM(l.debit), 0)::NUMERIC AS total_debit,
    COALESCE(SUM(l.credit), 0)::NUMERIC AS total_credit
FROM journal_lines l
JOIN journal_entries e ON e.id = l.journal_entry_id
WHERE e.is_posted
`

type CheckLedgerConsistencyRow struct {
	TotalDebit  pgtype.Numeric `json:"total_debit"`
	TotalCredit pgtype.Numeric `json:"total_credit"`
}

func (q *Queries) CheckLedgerConsistency(ctx context.Context) (CheckLedgerConsistencyRow, error) {
	row := q.db.QueryRow(ctx, checkLedgerConsistency)
	var i CheckLedgerConsistencyRow
	err := row.Scan(&i.TotalDebit, &i.TotalCredit)
	return i, err
}

const countJournalEntries = `-- name: CountJournalEntries :one
SELECT COUNT(*) FROM journal_entries
WHERE ($1::timestamptz IS NULL OR date >= $1)
  AND ($2::timestamptz IS NULL OR date <= $2)
  AND ($3::boolean IS NULL OR is_posted = $3)
  AND ($4::text IS NULL OR store_id = $4)
`

type CountJournalEntriesParams struct {
	FromDate pgtype.Timestamptz `json:"from_date"`
	ToDate   pgtype.Timestamptz `json:"to_date"`
	IsPosted pgtype.Bool        `json:"is_posted"`
	StoreID  pgtype.Text        `json:"store_id"`
}

func (q *Queries) CountJournalEntries(ctx context.Context, arg CountJournalEntriesParams) (int64, error) {
	row := q.db.QueryRow(ctx, countJournalEntries,
		arg.FromDate,
		arg.ToDate,
		arg.IsPosted,
		arg.StoreID,
	)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createJournalEntry = `-- name: CreateJournalEntry :exec
INSERT INTO journal_entries (
    id, reference, description, date, store_id, source_type, source_id, reverses_id,
    total_debit, total_credit, is_posted, posted_at, created_by, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
`

type CreateJournalEntryParams struct {
	ID          string             `json:"id"`
	Reference   string             `json:"reference"`
	Description string             `json:"description"`
	Date        pgtype.Timestamptz `json:"date"`
	StoreID     pgtype.Text        `json:"store_id"`
	SourceType  string             `json:"source_type"`
	SourceID    string             `json:"source_id"`
	ReversesID  pgtype.Text        `json:"reverses_id"`
	TotalDebit  pgtype.Numeric     `json:"total_debit"`
	TotalCredit pgtype.Numeric     `json:"total_credit"`
	IsPosted    bool               `json:"is_posted"`
	PostedAt    pgtype.Timestamptz `json:"posted_at"`
	CreatedBy   string             `json:"created_by"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) CreateJournalEntry(ctx context.Context, arg CreateJournalEntryParams) error {
	_, err := q.db.Exec(ctx, createJournalEntry,
		arg.ID,
		arg.Reference,
		arg.Description,
		arg.Date,
		arg.StoreID,
		arg.SourceType,
		arg.SourceID,
		arg.ReversesID,
		arg.TotalDebit,
		arg.TotalCredit,
		arg.IsPosted,
		arg.PostedAt,
		arg.CreatedBy,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const createJournalLine = `-- name: CreateJournalLine :exec
INSERT INTO journal_lines (id, journal_entry_id, account_id, line_no, debit, credit, description)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type CreateJournalLineParams struct {
	ID             string         `json:"id"`
	JournalEntryID string         `json:"journal_entry_id"`
	AccountID      string         `json:"account_id"`
	LineNo         int32          `json:"line_no"`
	Debit          pgtype.Numeric `json:"debit"`
	Credit         pgtype.Numeric `json:"credit"`
	Description    string         `json:"description"`
}

func (q *Queries) CreateJournalLine(ctx context.Context, arg CreateJournalLineParams) error {
	_, err := q.db.Exec(ctx, createJournalLine,
		arg.ID,
		arg.JournalEntryID,
		arg.AccountID,
		arg.LineNo,
		arg.Debit,
		arg.Credit,
		arg.Description,
	)
	return err
}

const getJournalEntryByID = `-- name: GetJournalEntryByID :one
SELECT id, reference, description, date, store_id, source_type, source_id, reverses_id, total_debit, total_credit, is_posted, posted_at, created_by, created_at, updated_at FROM journal_entries WHERE id = $1
`

func (q *Queries) GetJournalEntryByID(ctx context.Context, id string) (JournalEntry, error) {
	row := q.db.QueryRow(ctx, getJournalEntryByID, id)
	var i JournalEntry
	err := row.Scan(
		&i.ID,
		&i.Reference,
		&i.Description,
		&i.Date,
		&i.StoreID,
		&i.SourceType,
		&i.SourceID,
		&i.ReversesID,
		&i.TotalDebit,
		&i.TotalCredit,
		&i.IsPosted,
		&i.PostedAt,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getJournalEntryByReference = `-- name: GetJournalEntryByReference :one
SELECT id, reference, description, date, store_id, source_type, source_id, reverses_id, total_debit, total_credit, is_posted, posted_at, created_by, created_at, updated_at FROM journal_entries WHERE reference = $1
`

func (q *Queries) GetJournalEntryByReference(ctx context.Context, reference string) (JournalEntry, error) {
	row := q.db.QueryRow(ctx, getJournalEntryByReference, reference)
	var i JournalEntry
	err := row.Scan(
		&i.ID,
		&i.Reference,
		&i.Description,
		&i.Date,
		&i.StoreID,
		&i.SourceType,
		&i.SourceID,
		&i.ReversesID,
		&i.TotalDebit,
		&i.TotalCredit,
		&i.IsPosted,
		&i.PostedAt,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getJournalLinesByEntries = `-- name: GetJournalLinesByEntries :many
SELECT l.id, l.journal_entry_id, l.account_id, l.line_no, l.debit, l.credit, l.description,
       a.code AS account_code, a.name AS account_name, a.type AS account_type
FROM journal_lines l
JOIN accounts a ON a.id = l.account_id
WHERE l.journal_entry_id = ANY($1::text[])
ORDER BY l.journal_entry_id, l.line_no
`

type GetJournalLinesByEntriesRow struct {
	ID             string         `json:"id"`
	JournalEntryID string         `json:"journal_entry_id"`
	AccountID      string         `json:"account_id"`
	LineNo         int32          `json:"line_no"`
	Debit          pgtype.Numeric `json:"debit"`
	Credit         pgtype.Numeric `json:"credit"`
	Description    string         `json:"description"`
	AccountCode    string         `json:"account_code"`
	AccountName    string         `json:"account_name"`
	AccountType    string         `json:"account_type"`
}

func (q *Queries) GetJournalLinesByEntries(ctx context.Context, entryIds []string) ([]GetJournalLinesByEntriesRow, error) {
	rows, err := q.db.Query(ctx, getJournalLinesByEntries, entryIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetJournalLinesByEntriesRow{}
	for rows.Next() {
		var i GetJournalLinesByEntriesRow
		if err := rows.Scan(
			&i.ID,
			&i.JournalEntryID,
			&i.AccountID,
			&i.LineNo,
			&i.Debit,
			&i.Credit,
			&i.Description,
			&i.AccountCode,
			&i.AccountName,
			&i.AccountType,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const hasReversal = `-- name: HasReversal :one
SELECT EXISTS (SELECT 1 FROM journal_entries WHERE reverses_id = $1)
`

func (q *Queries) HasReversal(ctx context.Context, reversesID pgtype.Text) (bool, error) {
	row := q.db.QueryRow(ctx, hasReversal, reversesID)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const listJournalEntries = `-- name: ListJournalEntries :many
SELECT id, reference, description, date, store_id, source_type, source_id, reverses_id, total_debit, total_credit, is_posted, posted_at, created_by, created_at, updated_at FROM journal_entries
WHERE ($1::timestamptz IS NULL OR date >= $1)
  AND ($2::timestamptz IS NULL OR date <= $2)
  AND ($3::boolean IS NULL OR is_posted = $3)
  AND ($4::text IS NULL OR store_id = $4)
ORDER BY date DESC, created_at DESC
LIMIT $5 OFFSET $6
`

type ListJournalEntriesParams struct {
	FromDate pgtype.Timestamptz `json:"from_date"`
	ToDate   pgtype.Timestamptz `json:"to_date"`
	IsPosted pgtype.Bool        `json:"is_posted"`
	StoreID  pgtype.Text        `json:"store_id"`
	Limit    int32              `json:"limit"`
	Offset   int32              `json:"offset"`
}

func (q *Queries) ListJournalEntries(ctx context.Context, arg ListJournalEntriesParams) ([]JournalEntry, error) {
	rows, err := q.db.Query(ctx, listJournalEntries,
		arg.FromDate,
		arg.ToDate,
		arg.IsPosted,
		arg.StoreID,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []JournalEntry{}
	for rows.Next() {
		var i JournalEntry
		if err := rows.Scan(
			&i.ID,
			&i.Reference,
			&i.Description,
			&i.Date,
			&i.StoreID,
			&i.SourceType,
			&i.SourceID,
			&i.ReversesID,
			&i.TotalDebit,
			&i.TotalCredit,
			&i.IsPosted,
			&i.PostedAt,
			&i.CreatedBy,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markJournalEntryPosted = `-- name: MarkJournalEntryPosted :execrows
UPDATE journal_entries
SET is_posted = TRUE, posted_at = $2, updated_at = $2
WHERE id = $1 AND NOT is_posted
`

type MarkJournalEntryPostedParams struct {
	ID       string             `json:"id"`
	PostedAt pgtype.Timestamptz `json:"posted_at"`
}

func (q *Queries) MarkJournalEntryPosted(ctx context.Context, arg MarkJournalEntryPostedParams) (int64, error) {
	result, err := q.db.Exec(ctx, markJournalEntryPosted, arg.ID, arg.PostedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const sumPostedByAccount = `-- name: SumPostedByAccount :many
SELECT l.account_id,
       COALESCE(SUM(l.debit), 0)::NUMERIC AS debit,
       COALESCE(SUM(l.credit), 0)::NUMERIC AS credit
FROM journal_lines l
JOIN journal_entries e ON e.id = l.journal_entry_id
WHERE e.is_posted
  AND e.date <= $1
  AND ($2::timestamptz IS NULL OR e.date >= $2)
  AND ($3::text IS NULL OR e.store_id = $3)
  AND (cardinality($4::text[]) = 0 OR l.account_id = ANY($4::text[]))
GROUP BY l.account_id
`

type SumPostedByAccountParams struct {
	ToDate     pgtype.Timestamptz `json:"to_date"`
	FromDate   pgtype.Timestamptz `json:"from_date"`
	StoreID    pgtype.Text        `json:"store_id"`
	AccountIds []string           `json:"account_ids"`
}

type SumPostedByAccountRow struct {
	AccountID string         `json:"account_id"`
	Debit     pgtype.Numeric `json:"debit"`
	Credit    pgtype.Numeric `json:"credit"`
}

func (q *Queries) SumPostedByAccount(ctx context.Context, arg SumPostedByAccountParams) ([]SumPostedByAccountRow, error) {
	rows, err := q.db.Query(ctx, sumPostedByAccount,
		arg.ToDate,
		arg.FromDate,
		arg.StoreID,
		arg.AccountIds,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SumPostedByAccountRow{}
	for rows.Next() {
		var i SumPostedByAccountRow
		if err := rows.Scan(&i.AccountID, &i.Debit, &i.Credit); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
