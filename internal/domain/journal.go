package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits a line amount may carry.
const MoneyScale = 2

// MinJournalLines is the smallest number of lines a journal entry may have.
const MinJournalLines = 2

// JournalEntry is a dated, double-entry transaction made of balanced lines.
type JournalEntry struct {
	ID          string
	Reference   string
	Description string
	Date        time.Time
	StoreID     *string
	SourceType  string
	SourceID    string
	ReversesID  *string
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	IsPosted    bool
	PostedAt    *time.Time
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Lines       []JournalLine
}

// JournalLine is one side of a journal entry against a single account.
type JournalLine struct {
	ID             string
	JournalEntryID string
	AccountID      string
	LineNo         int
	Debit          decimal.Decimal
	Credit         decimal.Decimal
	Description    string

	// Resolved on reads; not persisted with the line.
	AccountCode string
	AccountName string
	AccountType AccountType
}

// Amount returns the non-zero side of the line, positive for debits.
func (l JournalLine) Amount() decimal.Decimal {
	return l.Debit.Sub(l.Credit)
}

// ComputeTotals sums the lines into TotalDebit and TotalCredit.
func (e *JournalEntry) ComputeTotals() {
	debit, credit := decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	e.TotalDebit = debit
	e.TotalCredit = credit
}

// Validate checks the entry's shape and its double-entry balance.
// Shape problems come back as a ValidationError; an out-of-balance entry
// returns ErrUnbalancedEntry.
func (e *JournalEntry) Validate() error {
	verr := &ValidationError{}

	if strings.TrimSpace(e.Description) == "" {
		verr.Add("description", "is required")
	}
	if e.Date.IsZero() {
		verr.Add("date", "is required")
	}
	if len(e.Lines) < MinJournalLines {
		verr.Add("lines", fmt.Sprintf("at least %d lines are required", MinJournalLines))
	}

	for i, l := range e.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if strings.TrimSpace(l.AccountID) == "" {
			verr.Add(field+".accountId", "is required")
		}
		if l.Debit.IsNegative() {
			verr.Add(field+".debit", "must not be negative")
		}
		if l.Credit.IsNegative() {
			verr.Add(field+".credit", "must not be negative")
		}
		if l.Debit.IsPositive() && l.Credit.IsPositive() {
			verr.Add(field, "must carry either a debit or a credit, not both")
		}
		if l.Debit.IsZero() && l.Credit.IsZero() {
			verr.Add(field, "must carry a non-zero debit or credit")
		}
		if !fitsMoneyScale(l.Debit) {
			verr.Add(field+".debit", fmt.Sprintf("must have at most %d decimal places", MoneyScale))
		}
		if !fitsMoneyScale(l.Credit) {
			verr.Add(field+".credit", fmt.Sprintf("must have at most %d decimal places", MoneyScale))
		}
	}

	if err := verr.OrNil(); err != nil {
		return err
	}

	e.ComputeTotals()
	if !e.TotalDebit.Equal(e.TotalCredit) {
		return fmt.Errorf("%w: debits %s, credits %s",
			ErrUnbalancedEntry, e.TotalDebit.StringFixed(2), e.TotalCredit.StringFixed(2))
	}

	return nil
}

func fitsMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}

// AccountIDs returns the distinct account IDs referenced by the lines.
func (e *JournalEntry) AccountIDs() []string {
	seen := make(map[string]bool, len(e.Lines))
	ids := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		if !seen[l.AccountID] {
			seen[l.AccountID] = true
			ids = append(ids, l.AccountID)
		}
	}
	return ids
}

// Reversal builds an unsaved mirror entry that swaps every debit and credit.
func (e *JournalEntry) Reversal(date time.Time, description string) *JournalEntry {
	if description == "" {
		description = "Reversal of " + e.Reference
	}
	originalID := e.ID
	rev := &JournalEntry{
		Reference:   "REV-" + e.Reference,
		Description: description,
		Date:        date,
		StoreID:     e.StoreID,
		SourceType:  SourceTypeReversal,
		SourceID:    e.ID,
		ReversesID:  &originalID,
		Lines:       make([]JournalLine, len(e.Lines)),
	}
	for i, l := range e.Lines {
		rev.Lines[i] = JournalLine{
			AccountID:   l.AccountID,
			LineNo:      i + 1,
			Debit:       l.Credit,
			Credit:      l.Debit,
			Description: l.Description,
		}
	}
	return rev
}

// Source types recorded on journal entries produced by posting rules.
const (
	SourceTypeManual   = "MANUAL"
	SourceTypeOrder    = "ORDER"
	SourceTypeRefund   = "REFUND"
	SourceTypePayout   = "PAYOUT"
	SourceTypeCOGS     = "COGS"
	SourceTypeReversal = "REVERSAL"
)

// JournalFilter narrows journal listings.
type JournalFilter struct {
	From     *time.Time
	To       *time.Time
	IsPosted *bool
	StoreID  *string
	Limit    int
	Offset   int
}
