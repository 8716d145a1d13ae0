package usecase

import (
	"context"
	"time"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/metrics"
)

// recorder writes audit logs and outbox events inside a caller's transaction.
type recorder struct {
	outboxRepo OutboxRepository
	auditRepo  AuditRepository
	idGen      IDGenerator
	metrics    *metrics.Metrics
}

func (r recorder) event(ctx context.Context, tx Transaction, aggregateType, aggregateID, eventType string, payload any) error {
	if r.outboxRepo == nil {
		return nil
	}
	event := domain.NewOutboxEvent(r.idGen.Generate(), aggregateType, aggregateID, eventType, payload, time.Now().UTC())
	return r.outboxRepo.Create(ctx, tx, event)
}

func (r recorder) audit(ctx context.Context, tx Transaction, action domain.AuditAction, resourceType, resourceID string, before, after any) error {
	if r.auditRepo == nil {
		return nil
	}

	log := &domain.AuditLog{
		ID:           r.idGen.Generate(),
		UserID:       domain.ActorFromContext(ctx),
		Action:       string(action),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    domain.RequestIDFromContext(ctx),
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    time.Now().UTC(),
	}
	if before != nil {
		log.BeforeState = domain.MarshalState(before)
	}
	if after != nil {
		log.AfterState = domain.MarshalState(after)
	}

	if err := r.auditRepo.Create(ctx, tx, log); err != nil {
		return err
	}

	if r.metrics != nil {
		r.metrics.AuditLogsCreated.WithLabelValues(string(action), log.Status).Inc()
	}

	return nil
}
