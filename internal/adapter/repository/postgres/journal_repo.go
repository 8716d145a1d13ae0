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

// JournalRepository implements usecase.JournalRepository.
type JournalRepository struct {
	db generated.DBTX
}

// NewJournalRepository creates a new JournalRepository.
func NewJournalRepository(db generated.DBTX) *JournalRepository {
	return &JournalRepository{db: db}
}

// Create stores the entry header and its lines. Callers pass a transaction
// so the header never lands without its lines.
func (r *JournalRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	q := generated.New(conn(r.db, tx))

	err := q.CreateJournalEntry(ctx, generated.CreateJournalEntryParams{
		ID:          entry.ID,
		Reference:   entry.Reference,
		Description: entry.Description,
		Date:        timeToPgTimestamptz(entry.Date),
		StoreID:     optionalText(entry.StoreID),
		SourceType:  entry.SourceType,
		SourceID:    entry.SourceID,
		ReversesID:  optionalText(entry.ReversesID),
		TotalDebit:  decimalToNumeric(entry.TotalDebit),
		TotalCredit: decimalToNumeric(entry.TotalCredit),
		IsPosted:    entry.IsPosted,
		PostedAt:    optionalTimestamptz(entry.PostedAt),
		CreatedBy:   entry.CreatedBy,
		CreatedAt:   timeToPgTimestamptz(entry.CreatedAt),
		UpdatedAt:   timeToPgTimestamptz(entry.UpdatedAt),
	})
	if err != nil {
		return mapConstraintError(err)
	}

	for _, line := range entry.Lines {
		err := q.CreateJournalLine(ctx, generated.CreateJournalLineParams{
			ID:             line.ID,
			JournalEntryID: entry.ID,
			AccountID:      line.AccountID,
			LineNo:         int32(line.LineNo),
			Debit:          decimalToNumeric(line.Debit),
			Credit:         decimalToNumeric(line.Credit),
			Description:    line.Description,
		})
		if err != nil {
			return mapConstraintError(err)
		}
	}

	return nil
}

// GetByID retrieves an entry with its lines.
func (r *JournalRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.JournalEntry, error) {
	q := generated.New(conn(r.db, tx))

	row, err := q.GetJournalEntryByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJournalEntryNotFound
		}
		return nil, err
	}

	return r.withLines(ctx, q, row)
}

// GetByReference retrieves an entry with its lines by reference.
func (r *JournalRepository) GetByReference(ctx context.Context, tx usecase.Transaction, reference string) (*domain.JournalEntry, error) {
	q := generated.New(conn(r.db, tx))

	row, err := q.GetJournalEntryByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJournalEntryNotFound
		}
		return nil, err
	}

	return r.withLines(ctx, q, row)
}

// MarkPosted flips an unposted entry to posted.
func (r *JournalRepository) MarkPosted(ctx context.Context, tx usecase.Transaction, id string, postedAt time.Time) (bool, error) {
	n, err := generated.New(conn(r.db, tx)).MarkJournalEntryPosted(ctx, generated.MarkJournalEntryPostedParams{
		ID:       id,
		PostedAt: timeToPgTimestamptz(postedAt),
	})
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

// HasReversal reports whether some entry already reverses id.
func (r *JournalRepository) HasReversal(ctx context.Context, tx usecase.Transaction, id string) (bool, error) {
	return generated.New(conn(r.db, tx)).HasReversal(ctx, pgtype.Text{String: id, Valid: true})
}

// List returns a page of entries with their lines and the unpaged total.
func (r *JournalRepository) List(ctx context.Context, tx usecase.Transaction, filter domain.JournalFilter) ([]*domain.JournalEntry, int64, error) {
	q := generated.New(conn(r.db, tx))

	from := optionalTimestamptz(filter.From)
	to := optionalTimestamptz(filter.To)
	posted := optionalBool(filter.IsPosted)
	store := optionalText(filter.StoreID)

	total, err := q.CountJournalEntries(ctx, generated.CountJournalEntriesParams{
		FromDate: from,
		ToDate:   to,
		IsPosted: posted,
		StoreID:  store,
	})
	if err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = int(total)
	}

	rows, err := q.ListJournalEntries(ctx, generated.ListJournalEntriesParams{
		FromDate: from,
		ToDate:   to,
		IsPosted: posted,
		StoreID:  store,
		Limit:    int32(limit),
		Offset:   int32(filter.Offset),
	})
	if err != nil {
		return nil, 0, err
	}

	entries, err := r.attachLines(ctx, q, rows)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *JournalRepository) withLines(ctx context.Context, q *generated.Queries, row generated.JournalEntry) (*domain.JournalEntry, error) {
	entries, err := r.attachLines(ctx, q, []generated.JournalEntry{row})
	if err != nil {
		return nil, err
	}
	return entries[0], nil
}

func (r *JournalRepository) attachLines(ctx context.Context, q *generated.Queries, rows []generated.JournalEntry) ([]*domain.JournalEntry, error) {
	entries := make([]*domain.JournalEntry, 0, len(rows))
	byID := make(map[string]*domain.JournalEntry, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		e := rowToJournalEntry(row)
		entries = append(entries, e)
		byID[e.ID] = e
		ids = append(ids, e.ID)
	}

	if len(ids) == 0 {
		return entries, nil
	}

	lines, err := q.GetJournalLinesByEntries(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, l := range lines {
		e := byID[l.JournalEntryID]
		e.Lines = append(e.Lines, domain.JournalLine{
			ID:             l.ID,
			JournalEntryID: l.JournalEntryID,
			AccountID:      l.AccountID,
			LineNo:         int(l.LineNo),
			Debit:          numericToDecimal(l.Debit),
			Credit:         numericToDecimal(l.Credit),
			Description:    l.Description,
			AccountCode:    l.AccountCode,
			AccountName:    l.AccountName,
			AccountType:    domain.AccountType(l.AccountType),
		})
	}

	return entries, nil
}

func rowToJournalEntry(row generated.JournalEntry) *domain.JournalEntry {
	return &domain.JournalEntry{
		ID:          row.ID,
		Reference:   row.Reference,
		Description: row.Description,
		Date:        row.Date.Time,
		StoreID:     textPtr(row.StoreID),
		SourceType:  row.SourceType,
		SourceID:    row.SourceID,
		ReversesID:  textPtr(row.ReversesID),
		TotalDebit:  numericToDecimal(row.TotalDebit),
		TotalCredit: numericToDecimal(row.TotalCredit),
		IsPosted:    row.IsPosted,
		PostedAt:    timestamptzPtr(row.PostedAt),
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}
