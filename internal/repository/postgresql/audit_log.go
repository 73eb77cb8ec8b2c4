package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/audit"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/database"
)

type auditLogRepository struct {
	db *database.DB
}

func NewAuditLogRepository(db *database.DB) audit.AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Create implements audit.AuditLogRepository.
func (r *auditLogRepository) Create(ctx context.Context, log audit.AuditLog) (audit.AuditLog, error) {
	q := GetQuerier(ctx, r.db)

	var details []byte
	if log.Details != nil {
		var err error
		if details, err = json.Marshal(log.Details); err != nil {
			return audit.AuditLog{}, fmt.Errorf("failed to marshal audit details: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (actor_id, actor_name, action, target_type, target_id, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	if err := q.QueryRow(ctx, query,
		log.ActorID, log.ActorName, log.Action, log.TargetType, log.TargetID, details,
	).Scan(&log.ID, &log.CreatedAt); err != nil {
		return audit.AuditLog{}, fmt.Errorf("failed to create audit log: %w", err)
	}

	return log, nil
}

// ListByTarget returns the trail for one target, oldest first.
func (r *auditLogRepository) ListByTarget(ctx context.Context, targetType, targetID string) ([]audit.AuditLog, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, actor_id, actor_name, action, target_type, target_id, details, created_at
		FROM audit_logs
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at ASC
	`

	rows, err := q.Query(ctx, query, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	logs := []audit.AuditLog{}
	for rows.Next() {
		var l audit.AuditLog
		var details []byte
		if err := rows.Scan(&l.ID, &l.ActorID, &l.ActorName, &l.Action, &l.TargetType, &l.TargetID, &details, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		if details != nil {
			if err := json.Unmarshal(details, &l.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit details: %w", err)
			}
		}
		logs = append(logs, l)
	}

	return logs, rows.Err()
}
