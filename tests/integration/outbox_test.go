package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/eventpublisher"
	"github.com/iho/gobooks/internal/usecase"
	"github.com/iho/gobooks/tests/testutil"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []*domain.OutboxEvent
}

func (p *capturePublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestOutboxRelay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	stack := testutil.NewStack(t, testDB, testutil.NewRedis(t))
	accounts := seededAccounts(t, stack)

	entry, err := stack.Services.Journal.CreateJournalEntry(ctx, usecase.CreateJournalEntryInput{
		Description:     "opening balance",
		Date:            time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		PostImmediately: true,
		Lines: []domain.JournalLine{
			{AccountID: accounts[domain.CodeCash].ID, Debit: decimal.NewFromInt(250)},
			{AccountID: accounts[domain.CodeRetainedEarnings].ID, Credit: decimal.NewFromInt(250)},
		},
	})
	if err != nil {
		t.Fatalf("failed to create entry: %v", err)
	}

	events, err := stack.Ports.Outbox.GetUnpublished(ctx, 100)
	if err != nil {
		t.Fatalf("failed to get unpublished events: %v", err)
	}

	var posted *domain.OutboxEvent
	for _, event := range events {
		if event.EventType == domain.EventTypeJournalPosted && event.AggregateID == entry.ID {
			posted = event
		}
	}
	if posted == nil {
		t.Fatal("journal posted event not found in outbox")
	}
	if posted.AggregateType != domain.AggregateTypeJournalEntry {
		t.Errorf("expected aggregate type %s, got %s", domain.AggregateTypeJournalEntry, posted.AggregateType)
	}

	capture := &capturePublisher{}
	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: stack.Ports.Outbox,
		Publisher:  eventpublisher.FanOut{eventpublisher.NewCacheInvalidator(stack.Cache), capture},
		Interval:   50 * time.Millisecond,
	})

	runCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	go func() { _ = publisher.Start(runCtx) }()

	deadline := time.Now().Add(2 * time.Second)
	for capture.count() < len(events) && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	cancel()

	if capture.count() < len(events) {
		t.Fatalf("expected %d events relayed, got %d", len(events), capture.count())
	}

	remaining, err := stack.Ports.Outbox.GetUnpublished(ctx, 100)
	if err != nil {
		t.Fatalf("failed to get unpublished events: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected every event to be marked published, %d left", len(remaining))
	}
}
