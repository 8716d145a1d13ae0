package domain

import "time"

// Event types
const (
	EventTypeJournalCreated  = "journal.created"
	EventTypeJournalPosted   = "journal.posted"
	EventTypeJournalReversed = "journal.reversed"
	EventTypeAccountCreated  = "account.created"
	EventTypeAccountUpdated  = "account.updated"
	EventTypeMatchChanged    = "reconciliation.changed"
)

// Aggregate types
const (
	AggregateTypeJournalEntry = "journal_entry"
	AggregateTypeAccount      = "account"
	AggregateTypeMatch        = "reconciliation_match"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// AffectsReports reports whether the event can change any report output.
func (e *OutboxEvent) AffectsReports() bool {
	switch e.EventType {
	case EventTypeJournalPosted, EventTypeJournalReversed, EventTypeAccountCreated,
		EventTypeAccountUpdated, EventTypeMatchChanged:
		return true
	default:
		return false
	}
}

// JournalPostedEvent payload
type JournalPostedEvent struct {
	JournalEntryID string `json:"journal_entry_id"`
	Reference      string `json:"reference"`
	Date           string `json:"date"`
	TotalDebit     string `json:"total_debit"`
	TotalCredit    string `json:"total_credit"`
}

// JournalCreatedEvent payload
type JournalCreatedEvent struct {
	JournalEntryID string `json:"journal_entry_id"`
	Reference      string `json:"reference"`
	Date           string `json:"date"`
	LineCount      int    `json:"line_count"`
}

// JournalReversedEvent payload
type JournalReversedEvent struct {
	ReversalEntryID string `json:"reversal_entry_id"`
	OriginalEntryID string `json:"original_entry_id"`
}

// AccountChangedEvent payload
type AccountChangedEvent struct {
	AccountID string `json:"account_id"`
	Code      string `json:"code"`
	Type      string `json:"type"`
}

// MatchChangedEvent payload
type MatchChangedEvent struct {
	MatchID  string `json:"match_id,omitempty"`
	PayoutID string `json:"payout_id,omitempty"`
	OrderID  string `json:"order_id,omitempty"`
	Action   string `json:"action"`
}

// NewOutboxEvent builds an unpublished event with a struct payload flattened to a map.
func NewOutboxEvent(id, aggregateType, aggregateID, eventType string, payload any, at time.Time) *OutboxEvent {
	return &OutboxEvent{
		ID:            id,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       MarshalState(payload),
		CreatedAt:     at,
	}
}
