package postgres

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"

	constraintAccountCode      = "accounts_code_key"
	constraintJournalReference = "journal_entries_reference_key"
	constraintJournalReverses  = "uq_journal_entries_reverses"
	constraintLineAccount      = "journal_lines_account_id_fkey"
	constraintInventorySKU     = "inventory_items_sku_key"
	constraintMovementItem     = "stock_movements_item_id_fkey"
	constraintMatchPayout      = "reconciliation_matches_payout_id_fkey"
	constraintMatchOrder       = "reconciliation_matches_order_id_fkey"
)

// mapConstraintError translates known constraint violations into domain errors.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgErrUniqueViolation:
		switch pgErr.ConstraintName {
		case constraintAccountCode:
			return domain.ErrDuplicateAccountCode
		case constraintJournalReference:
			return domain.ErrDuplicateReference
		case constraintJournalReverses:
			return domain.ErrAlreadyReversed
		case constraintInventorySKU:
			return domain.NewValidationError("sku", "already exists")
		}
	case pgErrForeignKeyViolation:
		switch pgErr.ConstraintName {
		case constraintLineAccount:
			return domain.ErrAccountNotFound
		case constraintMovementItem:
			return domain.ErrInventoryItemNotFound
		case constraintMatchPayout:
			return domain.ErrPayoutNotFound
		case constraintMatchOrder:
			return domain.ErrOrderNotFound
		}
	}

	return err
}

// Type conversion helpers.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return timeToPgTimestamptz(*t)
}

func timestamptzPtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func optionalText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	v := t.String
	return &v
}

func optionalBool(b *bool) pgtype.Bool {
	if b == nil {
		return pgtype.Bool{}
	}
	return pgtype.Bool{Bool: *b, Valid: true}
}

// filter accumulates WHERE conditions with positional arguments.
type filter struct {
	conds []string
	args  []any
}

// add appends a condition whose single placeholder is written as ?.
func (f *filter) add(cond string, arg any) {
	f.args = append(f.args, arg)
	f.conds = append(f.conds, strings.Replace(cond, "?", fmt.Sprintf("$%d", len(f.args)), 1))
}

func (f *filter) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

// page appends LIMIT and OFFSET when limit is positive.
func (f *filter) page(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	f.args = append(f.args, limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(f.args)-1, len(f.args))
}
