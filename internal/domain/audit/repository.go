package audit

import "context"

type AuditLogRepository interface {
	Create(ctx context.Context, log AuditLog) (AuditLog, error)
	ListByTarget(ctx context.Context, targetType, targetID string) ([]AuditLog, error)
}
