package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/metrics"
)

// JournalUseCase handles journal entry business logic.
type JournalUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	journalRepo JournalRepository
	idGen       IDGenerator
	refGen      ReferenceGenerator
	rec         recorder
	metrics     *metrics.Metrics
}

// NewJournalUseCase creates a new JournalUseCase.
func NewJournalUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	journalRepo JournalRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	refGen ReferenceGenerator,
	metrics *metrics.Metrics,
) *JournalUseCase {
	return &JournalUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		journalRepo: journalRepo,
		idGen:       idGen,
		refGen:      refGen,
		rec:         recorder{outboxRepo: outboxRepo, auditRepo: auditRepo, idGen: idGen, metrics: metrics},
		metrics:     metrics,
	}
}

// CreateJournalEntryInput represents input for creating a journal entry.
type CreateJournalEntryInput struct {
	Description     string
	Date            time.Time
	Lines           []domain.JournalLine
	PostImmediately bool
	Reference       string
	StoreID         *string
	SourceType      string
	SourceID        string
}

// CreateJournalEntry validates and stores a journal entry, optionally posting it.
// Every check runs before the first write; the entry, its lines, the outbox
// event and the audit log commit together or not at all.
func (uc *JournalUseCase) CreateJournalEntry(ctx context.Context, input CreateJournalEntryInput) (*domain.JournalEntry, error) {
	now := time.Now().UTC()

	entry := &domain.JournalEntry{
		ID:          uc.idGen.Generate(),
		Reference:   strings.TrimSpace(input.Reference),
		Description: strings.TrimSpace(input.Description),
		Date:        input.Date,
		StoreID:     input.StoreID,
		SourceType:  input.SourceType,
		SourceID:    input.SourceID,
		CreatedBy:   domain.ActorFromContext(ctx),
		CreatedAt:   now,
		UpdatedAt:   now,
		Lines:       make([]domain.JournalLine, len(input.Lines)),
	}
	if entry.SourceType == "" {
		entry.SourceType = domain.SourceTypeManual
	}
	copy(entry.Lines, input.Lines)

	if err := entry.Validate(); err != nil {
		uc.reject(err)
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.resolveAccounts(txCtx, tx, entry, true); err != nil {
		uc.reject(err)
		return nil, err
	}

	if err := uc.createInTx(txCtx, tx, entry, input.PostImmediately); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	uc.observeCreated(entry)

	return entry, nil
}

// createInTx assigns identity to the lines and writes the entry with its
// outbox event and audit log. The entry must already be validated.
func (uc *JournalUseCase) createInTx(ctx context.Context, tx Transaction, entry *domain.JournalEntry, post bool) error {
	if entry.Reference == "" {
		entry.Reference = uc.refGen.Generate(ReferencePrefixJournal)
	}
	for i := range entry.Lines {
		entry.Lines[i].ID = uc.idGen.Generate()
		entry.Lines[i].JournalEntryID = entry.ID
		entry.Lines[i].LineNo = i + 1
	}
	if post {
		postedAt := entry.CreatedAt
		entry.IsPosted = true
		entry.PostedAt = &postedAt
	}

	if err := uc.journalRepo.Create(ctx, tx, entry); err != nil {
		return err
	}

	eventType := domain.EventTypeJournalCreated
	var payload any = domain.JournalCreatedEvent{
		JournalEntryID: entry.ID,
		Reference:      entry.Reference,
		Date:           entry.Date.Format(time.DateOnly),
		LineCount:      len(entry.Lines),
	}
	if entry.IsPosted {
		eventType = domain.EventTypeJournalPosted
		payload = postedPayload(entry)
	}
	if err := uc.rec.event(ctx, tx, domain.AggregateTypeJournalEntry, entry.ID, eventType, payload); err != nil {
		return err
	}

	return uc.rec.audit(ctx, tx, domain.AuditActionJournalCreate, domain.ResourceTypeJournalEntry, entry.ID, nil, entry)
}

// resolveAccounts checks that every referenced account exists, and is active
// when requireActive is set, and copies account details onto the lines.
// Reversals pass false so entries on since-deactivated accounts stay correctable.
func (uc *JournalUseCase) resolveAccounts(ctx context.Context, tx Transaction, entry *domain.JournalEntry, requireActive bool) error {
	ids := entry.AccountIDs()
	accounts, err := uc.accountRepo.GetByIDs(ctx, tx, ids)
	if err != nil {
		return err
	}

	byID := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	for i := range entry.Lines {
		line := &entry.Lines[i]
		account, ok := byID[line.AccountID]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, line.AccountID)
		}
		if requireActive && !account.IsActive {
			return fmt.Errorf("%w: %s", domain.ErrInactiveAccount, account.Code)
		}
		line.AccountCode = account.Code
		line.AccountName = account.Name
		line.AccountType = account.Type
	}

	return nil
}

// PostJournalEntry marks a draft entry as posted. Exactly one of several
// concurrent callers succeeds; the rest get domain.ErrAlreadyPosted.
func (uc *JournalUseCase) PostJournalEntry(ctx context.Context, id string) (*domain.JournalEntry, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	postedAt := time.Now().UTC()
	updated, err := uc.journalRepo.MarkPosted(txCtx, tx, id, postedAt)
	if err != nil {
		return nil, err
	}

	if !updated {
		if _, err := uc.journalRepo.GetByID(txCtx, tx, id); err != nil {
			return nil, err
		}
		return nil, domain.ErrAlreadyPosted
	}

	entry, err := uc.journalRepo.GetByID(txCtx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := uc.rec.event(txCtx, tx, domain.AggregateTypeJournalEntry, entry.ID, domain.EventTypeJournalPosted, postedPayload(entry)); err != nil {
		return nil, err
	}

	if err := uc.rec.audit(txCtx, tx, domain.AuditActionJournalPost, domain.ResourceTypeJournalEntry, entry.ID,
		map[string]any{"isPosted": false}, map[string]any{"isPosted": true, "postedAt": postedAt}); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.JournalEntriesPosted.Inc()
	}

	return entry, nil
}

// ReverseJournalEntryInput represents input for reversing a posted entry.
type ReverseJournalEntryInput struct {
	ID          string
	Date        *time.Time
	Description string
}

// ReverseJournalEntry creates and posts the mirror image of a posted entry.
func (uc *JournalUseCase) ReverseJournalEntry(ctx context.Context, input ReverseJournalEntryInput) (*domain.JournalEntry, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	original, err := uc.journalRepo.GetByID(txCtx, tx, input.ID)
	if err != nil {
		return nil, err
	}
	if !original.IsPosted {
		return nil, domain.ErrEntryNotPosted
	}

	reversed, err := uc.journalRepo.HasReversal(txCtx, tx, original.ID)
	if err != nil {
		return nil, err
	}
	if reversed {
		return nil, domain.ErrAlreadyReversed
	}

	now := time.Now().UTC()
	date := now
	if input.Date != nil {
		date = *input.Date
	}

	reversal := original.Reversal(date, strings.TrimSpace(input.Description))
	reversal.ID = uc.idGen.Generate()
	reversal.CreatedBy = domain.ActorFromContext(ctx)
	reversal.CreatedAt = now
	reversal.UpdatedAt = now

	if err := reversal.Validate(); err != nil {
		return nil, err
	}
	if err := uc.resolveAccounts(txCtx, tx, reversal, false); err != nil {
		return nil, err
	}

	if err := uc.createInTx(txCtx, tx, reversal, true); err != nil {
		return nil, err
	}

	err = uc.rec.event(txCtx, tx, domain.AggregateTypeJournalEntry, original.ID, domain.EventTypeJournalReversed,
		domain.JournalReversedEvent{ReversalEntryID: reversal.ID, OriginalEntryID: original.ID})
	if err != nil {
		return nil, err
	}

	if err := uc.rec.audit(txCtx, tx, domain.AuditActionJournalReverse, domain.ResourceTypeJournalEntry, original.ID,
		nil, map[string]any{"reversalId": reversal.ID, "reference": reversal.Reference}); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	uc.observeCreated(reversal)
	if uc.metrics != nil {
		uc.metrics.JournalEntriesReversed.Inc()
	}

	return reversal, nil
}

// GetJournalEntry returns an entry with its lines and their account details.
func (uc *JournalUseCase) GetJournalEntry(ctx context.Context, id string) (*domain.JournalEntry, error) {
	return uc.journalRepo.GetByID(ctx, nil, id)
}

// GetByReference returns the entry carrying reference.
func (uc *JournalUseCase) GetByReference(ctx context.Context, reference string) (*domain.JournalEntry, error) {
	return uc.journalRepo.GetByReference(ctx, nil, reference)
}

// ListJournalEntriesInput represents input for listing journal entries.
type ListJournalEntriesInput struct {
	From     *time.Time
	To       *time.Time
	IsPosted *bool
	StoreID  *string
	Page     int
	Limit    int
}

// JournalEntryPage is one page of journal entries.
type JournalEntryPage struct {
	Entries    []*domain.JournalEntry
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// ListJournalEntries lists entries newest first with pagination.
func (uc *JournalUseCase) ListJournalEntries(ctx context.Context, input ListJournalEntriesInput) (*JournalEntryPage, error) {
	page, limit, offset := domain.ValidatePage(input.Page, input.Limit)

	filter := domain.JournalFilter{
		IsPosted: input.IsPosted,
		StoreID:  input.StoreID,
		Limit:    limit,
		Offset:   offset,
	}
	if input.From != nil {
		from := domain.StartOfDay(*input.From)
		filter.From = &from
	}
	if input.To != nil {
		to := domain.EndOfDay(*input.To)
		filter.To = &to
	}

	entries, total, err := uc.journalRepo.List(ctx, nil, filter)
	if err != nil {
		return nil, err
	}

	return &JournalEntryPage{
		Entries:    entries,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: domain.TotalPages(total, limit),
	}, nil
}

func (uc *JournalUseCase) observeCreated(entry *domain.JournalEntry) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.JournalEntriesCreated.Inc()
	if entry.IsPosted {
		uc.metrics.JournalEntriesPosted.Inc()
	}
	amount, _ := entry.TotalDebit.Float64()
	uc.metrics.JournalEntryAmount.Observe(amount)
}

func (uc *JournalUseCase) reject(err error) {
	if uc.metrics == nil {
		return
	}
	reason := "invalid"
	switch {
	case errors.Is(err, domain.ErrUnbalancedEntry):
		reason = "unbalanced"
	case errors.Is(err, domain.ErrAccountNotFound):
		reason = "account_not_found"
	case errors.Is(err, domain.ErrInactiveAccount):
		reason = "inactive_account"
	}
	uc.metrics.JournalEntriesRejected.WithLabelValues(reason).Inc()
}

func postedPayload(entry *domain.JournalEntry) domain.JournalPostedEvent {
	return domain.JournalPostedEvent{
		JournalEntryID: entry.ID,
		Reference:      entry.Reference,
		Date:           entry.Date.Format(time.DateOnly),
		TotalDebit:     entry.TotalDebit.StringFixed(2),
		TotalCredit:    entry.TotalCredit.StringFixed(2),
	}
}
