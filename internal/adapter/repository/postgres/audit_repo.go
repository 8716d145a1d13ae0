package postgres

import (
	"context"
	"encoding/json"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/postgres/generated"
	"github.com/iho/gobooks/internal/usecase"
)

// AuditRepository implements audit log persistence
type AuditRepository struct {
	db    generated.DBTX
	idGen usecase.IDGenerator
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db generated.DBTX, idGen usecase.IDGenerator) *AuditRepository {
	return &AuditRepository{db: db, idGen: idGen}
}

// Create inserts a new audit log entry
func (r *AuditRepository) Create(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	if log.ID == "" {
		log.ID = r.idGen.Generate()
	}

	var beforeStateJSON, afterStateJSON []byte
	var err error

	if log.BeforeState != nil {
		beforeStateJSON, err = json.Marshal(log.BeforeState)
		if err != nil {
			return err
		}
	}

	if log.AfterState != nil {
		afterStateJSON, err = json.Marshal(log.AfterState)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO audit_logs (
			id, user_id, action, resource_type, resource_id, request_id,
			before_state, after_state, status, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = conn(r.db, tx).Exec(ctx, query,
		log.ID,
		log.UserID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		log.RequestID,
		beforeStateJSON,
		afterStateJSON,
		log.Status,
		log.ErrorMessage,
		log.CreatedAt,
	)

	return err
}

// List retrieves audit logs with filtering, newest first
func (r *AuditRepository) List(ctx context.Context, tx usecase.Transaction, af domain.AuditFilter) ([]*domain.AuditLog, error) {
	var f filter
	if af.UserID != "" {
		f.add("user_id = ?", af.UserID)
	}
	if af.Action != "" {
		f.add("action = ?", af.Action)
	}
	if af.ResourceType != "" {
		f.add("resource_type = ?", af.ResourceType)
	}
	if af.ResourceID != "" {
		f.add("resource_id = ?", af.ResourceID)
	}
	if af.StartDate != nil {
		f.add("created_at >= ?", *af.StartDate)
	}
	if af.EndDate != nil {
		f.add("created_at <= ?", *af.EndDate)
	}

	query := `
		SELECT id, user_id, action, resource_type, resource_id, request_id,
		       before_state, after_state, status, error_message, created_at
		FROM audit_logs` + f.where() + ` ORDER BY created_at DESC`
	query += f.page(af.Limit, af.Offset)

	rows, err := conn(r.db, tx).Query(ctx, query, f.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		var log domain.AuditLog
		var beforeStateJSON, afterStateJSON []byte

		err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.Action,
			&log.ResourceType,
			&log.ResourceID,
			&log.RequestID,
			&beforeStateJSON,
			&afterStateJSON,
			&log.Status,
			&log.ErrorMessage,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if beforeStateJSON != nil {
			_ = json.Unmarshal(beforeStateJSON, &log.BeforeState)
		}

		if afterStateJSON != nil {
			_ = json.Unmarshal(afterStateJSON, &log.AfterState)
		}

		logs = append(logs, &log)
	}

	return logs, rows.Err()
}
