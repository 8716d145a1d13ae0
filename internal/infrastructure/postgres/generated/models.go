
package generated

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Account struct {
	ID        string             `json:"id"`
	Code      string             `json:"code"`
	Name      string             `json:"name"`
	Type      string             `json:"type"`
	Role      string             `json:"role"`
	ParentID  pgtype.Text        `json:"parent_id"`
	IsActive  bool               `json:"is_active"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

type JournalEntry struct {
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

type JournalLine struct {
	ID             string         `json:"id"`
	JournalEntryID string         `json:"journal_entry_id"`
	AccountID      string         `json:"account_id"`
	LineNo         int32          `json:"line_no"`
	Debit          pgtype.Numeric `json:"debit"`
	Credit         pgtype.Numeric `json:"credit"`
	Description    string         `json:"description"`
}

type OutboxEvent struct {
	ID            string             `json:"id"`
	AggregateID   string             `json:"aggregate_id"`
	AggregateType string             `json:"aggregate_type"`
	EventType     string             `json:"event_type"`
	Payload       []byte             `json:"payload"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	PublishedAt   pgtype.Timestamptz `json:"published_at"`
	Published     bool               `json:"published"`
}
