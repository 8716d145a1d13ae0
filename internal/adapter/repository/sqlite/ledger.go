package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

type scanner interface {
	Scan(dest ...any) error
}

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	s *Store
}

const accountColumns = `id, code, name, type, role, parent_id, is_active, created_at, updated_at`

func scanAccount(row scanner) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Role, nullTextCol{&a.ParentID},
		&a.IsActive, timeCol{&a.CreatedAt}, timeCol{&a.UpdatedAt})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	_, err := r.s.write(tx).ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID, account.Code, account.Name, string(account.Type), string(account.Role),
		nullable(account.ParentID), boolToInt(account.IsActive), ts(account.CreatedAt), ts(account.UpdatedAt))
	return mapConstraintError(err)
}

func (r *AccountRepository) Update(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	res, err := r.s.write(tx).ExecContext(ctx,
		`UPDATE accounts SET code = ?, name = ?, type = ?, role = ?, parent_id = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		account.Code, account.Name, string(account.Type), string(account.Role),
		nullable(account.ParentID), boolToInt(account.IsActive), ts(account.UpdatedAt), account.ID)
	if err != nil {
		return mapConstraintError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) getOne(ctx context.Context, tx usecase.Transaction, where string, arg any) (*domain.Account, error) {
	row := r.s.read(tx).QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, arg)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	return a, err
}

func (r *AccountRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	return r.getOne(ctx, tx, "id = ?", id)
}

func (r *AccountRepository) GetByCode(ctx context.Context, tx usecase.Transaction, code string) (*domain.Account, error) {
	return r.getOne(ctx, tx, "code = ?", code)
}

func (r *AccountRepository) GetByIDs(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	if len(ids) == 0 {
		return []*domain.Account{}, nil
	}
	var f filter
	f.in("id", ids)
	return r.query(ctx, tx, f)
}

func (r *AccountRepository) List(ctx context.Context, tx usecase.Transaction, af domain.AccountFilter) ([]*domain.Account, error) {
	var f filter
	if af.Type != nil {
		f.add("type = ?", string(*af.Type))
	}
	if af.ParentID != nil {
		f.add("parent_id = ?", *af.ParentID)
	}
	if af.IsActive != nil {
		f.add("is_active = ?", boolToInt(*af.IsActive))
	}
	return r.query(ctx, tx, f)
}

func (r *AccountRepository) query(ctx context.Context, tx usecase.Transaction, f filter) ([]*domain.Account, error) {
	rows, err := r.s.read(tx).QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts`+f.where()+` ORDER BY code`, f.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []*domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// JournalRepository implements usecase.JournalRepository.
type JournalRepository struct {
	s *Store
}

const entryColumns = `id, reference, description, date, store_id, source_type, source_id, reverses_id,
	total_debit, total_credit, is_posted, posted_at, created_by, created_at, updated_at`

func scanEntry(row scanner) (*domain.JournalEntry, error) {
	var e domain.JournalEntry
	err := row.Scan(&e.ID, &e.Reference, &e.Description, timeCol{&e.Date}, nullTextCol{&e.StoreID},
		&e.SourceType, &e.SourceID, nullTextCol{&e.ReversesID}, &e.TotalDebit, &e.TotalCredit,
		&e.IsPosted, nullTimeCol{&e.PostedAt}, &e.CreatedBy, timeCol{&e.CreatedAt}, timeCol{&e.UpdatedAt})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create stores the entry and its lines atomically. Every line account must exist.
func (r *JournalRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	return r.s.atomic(ctx, tx, func(q querier) error {
		if err := requireAccounts(ctx, q, entry.AccountIDs()); err != nil {
			return err
		}

		_, err := q.ExecContext(ctx,
			`INSERT INTO journal_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.ID, entry.Reference, entry.Description, ts(entry.Date), nullable(entry.StoreID),
			entry.SourceType, entry.SourceID, nullable(entry.ReversesID),
			entry.TotalDebit.String(), entry.TotalCredit.String(), boolToInt(entry.IsPosted),
			nullableTS(entry.PostedAt), entry.CreatedBy, ts(entry.CreatedAt), ts(entry.UpdatedAt))
		if err != nil {
			return mapConstraintError(err)
		}

		for _, line := range entry.Lines {
			_, err := q.ExecContext(ctx,
				`INSERT INTO journal_lines (id, journal_entry_id, account_id, line_no, debit, credit, description)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				line.ID, entry.ID, line.AccountID, line.LineNo, line.Debit.String(), line.Credit.String(), line.Description)
			if err != nil {
				return mapConstraintError(err)
			}
		}
		return nil
	})
}

func requireAccounts(ctx context.Context, q querier, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	var f filter
	f.in("id", ids)
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`+f.where(), f.args...).Scan(&n); err != nil {
		return err
	}
	if n != len(ids) {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *JournalRepository) getOne(ctx context.Context, tx usecase.Transaction, where string, arg any) (*domain.JournalEntry, error) {
	q := r.s.read(tx)
	e, err := scanEntry(q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrJournalEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := attachLines(ctx, q, []*domain.JournalEntry{e}); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *JournalRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.JournalEntry, error) {
	return r.getOne(ctx, tx, "id = ?", id)
}

func (r *JournalRepository) GetByReference(ctx context.Context, tx usecase.Transaction, reference string) (*domain.JournalEntry, error) {
	return r.getOne(ctx, tx, "reference = ?", reference)
}

// MarkPosted flips a draft to posted and reports whether it did.
func (r *JournalRepository) MarkPosted(ctx context.Context, tx usecase.Transaction, id string, postedAt time.Time) (bool, error) {
	res, err := r.s.write(tx).ExecContext(ctx,
		`UPDATE journal_entries SET is_posted = 1, posted_at = ?, updated_at = ? WHERE id = ? AND is_posted = 0`,
		ts(postedAt), ts(postedAt), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *JournalRepository) HasReversal(ctx context.Context, tx usecase.Transaction, id string) (bool, error) {
	var exists bool
	err := r.s.read(tx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM journal_entries WHERE reverses_id = ?)`, id).Scan(&exists)
	return exists, err
}

func (r *JournalRepository) List(ctx context.Context, tx usecase.Transaction, jf domain.JournalFilter) ([]*domain.JournalEntry, int64, error) {
	var f filter
	if jf.From != nil {
		f.add("date >= ?", ts(*jf.From))
	}
	if jf.To != nil {
		f.add("date <= ?", ts(*jf.To))
	}
	if jf.IsPosted != nil {
		f.add("is_posted = ?", boolToInt(*jf.IsPosted))
	}
	if jf.StoreID != nil {
		f.add("store_id = ?", *jf.StoreID)
	}

	q := r.s.read(tx)
	var total int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM journal_entries`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM journal_entries`+f.where()+
			` ORDER BY date DESC, created_at DESC`+page(jf.Limit, jf.Offset), f.args...)
	if err != nil {
		return nil, 0, err
	}
	entries := []*domain.JournalEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := attachLines(ctx, q, entries); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// attachLines loads the lines of entries with their account details resolved.
func attachLines(ctx context.Context, q querier, entries []*domain.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	byID := make(map[string]*domain.JournalEntry, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
		ids = append(ids, e.ID)
	}

	var f filter
	f.in("l.journal_entry_id", ids)
	rows, err := q.QueryContext(ctx,
		`SELECT l.id, l.journal_entry_id, l.account_id, l.line_no, l.debit, l.credit, l.description, a.code, a.name, a.type
		FROM journal_lines l JOIN accounts a ON a.id = l.account_id`+f.where()+`
		ORDER BY l.journal_entry_id, l.line_no`, f.args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.JournalLine
		if err := rows.Scan(&l.ID, &l.JournalEntryID, &l.AccountID, &l.LineNo, &l.Debit, &l.Credit,
			&l.Description, &l.AccountCode, &l.AccountName, &l.AccountType); err != nil {
			return err
		}
		e := byID[l.JournalEntryID]
		e.Lines = append(e.Lines, l)
	}
	return rows.Err()
}

// BalanceRepository implements usecase.BalanceRepository.
type BalanceRepository struct {
	s *Store
}

// SumByAccount folds posted lines per account. Amounts are added as decimals in Go.
func (r *BalanceRepository) SumByAccount(ctx context.Context, tx usecase.Transaction, bf domain.BalanceFilter) (domain.Balances, error) {
	var f filter
	f.add("e.is_posted = 1")
	f.add("e.date <= ?", ts(bf.To))
	if bf.From != nil {
		f.add("e.date >= ?", ts(*bf.From))
	}
	if bf.StoreID != nil {
		f.add("e.store_id = ?", *bf.StoreID)
	}
	if len(bf.AccountIDs) > 0 {
		f.in("l.account_id", bf.AccountIDs)
	}

	rows, err := r.s.read(tx).QueryContext(ctx,
		`SELECT l.account_id, l.debit, l.credit
		FROM journal_lines l JOIN journal_entries e ON e.id = l.journal_entry_id`+f.where(), f.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := make(domain.Balances)
	for rows.Next() {
		var accountID string
		var debit, credit decimal.Decimal
		if err := rows.Scan(&accountID, &debit, &credit); err != nil {
			return nil, err
		}
		balances[accountID] = balances.Get(accountID).Add(debit, credit)
	}
	return balances, rows.Err()
}

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	s *Store
}

func (r *LedgerRepository) CheckConsistency(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	rows, err := r.s.reader.QueryContext(ctx,
		`SELECT l.debit, l.credit
		FROM journal_lines l JOIN journal_entries e ON e.id = l.journal_entry_id
		WHERE e.is_posted = 1`)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	defer rows.Close()

	debit, credit := decimal.Zero, decimal.Zero
	for rows.Next() {
		var d, c decimal.Decimal
		if err := rows.Scan(&d, &c); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		debit = debit.Add(d)
		credit = credit.Add(c)
	}
	return debit, credit, rows.Err()
}
