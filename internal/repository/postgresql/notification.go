package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/notification"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type notificationRepository struct {
	db *database.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB) notification.Repository {
	return &notificationRepository{db: db}
}

const notificationColumns = `
	id, recipient_id, sender_id, title, message, severity, category, priority,
	action_required, data, is_read, read_at, created_at
`

const insertNotification = `
	INSERT INTO notifications (
		id, recipient_id, sender_id, title, message, severity, category, priority,
		action_required, data, is_read, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

func notificationArgs(n *notification.Notification) ([]interface{}, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.Priority == "" {
		n.Priority = notification.PriorityMedium
	}

	var dataJSON []byte
	if n.Data != nil {
		var err error
		if dataJSON, err = json.Marshal(n.Data); err != nil {
			return nil, fmt.Errorf("failed to marshal notification data: %w", err)
		}
	}

	return []interface{}{
		n.ID,
		n.RecipientID,
		n.SenderID,
		n.Title,
		n.Message,
		string(n.Severity),
		string(n.Category),
		string(n.Priority),
		n.ActionRequired,
		dataJSON,
		n.IsRead,
		n.CreatedAt,
	}, nil
}

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var n notification.Notification
	var dataJSON []byte
	var severity, category, priority string

	if err := row.Scan(
		&n.ID,
		&n.RecipientID,
		&n.SenderID,
		&n.Title,
		&n.Message,
		&severity,
		&category,
		&priority,
		&n.ActionRequired,
		&dataJSON,
		&n.IsRead,
		&n.ReadAt,
		&n.CreatedAt,
	); err != nil {
		return nil, err
	}

	n.Severity = notification.Severity(severity)
	n.Category = notification.Category(category)
	n.Priority = notification.Priority(priority)
	if dataJSON != nil {
		if err := json.Unmarshal(dataJSON, &n.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification data: %w", err)
		}
	}

	return &n, nil
}

// Create creates a new notification
func (r *notificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	q := GetQuerier(ctx, r.db)

	args, err := notificationArgs(n)
	if err != nil {
		return err
	}

	if _, err := q.Exec(ctx, insertNotification, args...); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// CreateBatch queues one insert per notification and sends them in a single round trip
func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []*notification.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	return WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		batch := &pgx.Batch{}
		for _, n := range notifications {
			args, err := notificationArgs(n)
			if err != nil {
				return err
			}
			batch.Queue(insertNotification, args...)
		}

		results := q.SendBatch(ctx, batch)
		for range notifications {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("failed to batch create notifications: %w", err)
			}
		}

		return results.Close()
	})
}

// GetByID retrieves a notification by ID
func (r *notificationRepository) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	n, err := scanNotification(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notification.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return n, nil
}

// List retrieves one page of a recipient's notifications
func (r *notificationRepository) List(ctx context.Context, recipientID string, filter notification.ListFilter) ([]*notification.Notification, int64, error) {
	q := GetQuerier(ctx, r.db)

	var where whereBuilder
	where.add("recipient_id = $%d", recipientID)
	if filter.UnreadOnly {
		where.add("is_read = $%d", false)
	}
	if filter.Severity != nil {
		where.add("severity = $%d", string(*filter.Severity))
	}
	if filter.Category != nil {
		where.add("category = $%d", string(*filter.Category))
	}
	if filter.ActionRequired != nil {
		where.add("action_required = $%d", *filter.ActionRequired)
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM notifications"+where.sql(), where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	args := append(where.args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := fmt.Sprintf(`SELECT %s FROM notifications%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, notificationColumns, where.sql(), len(args)-1, len(args))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*notification.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	return notifications, total, nil
}

// CountUnread counts unread notifications and the subset still awaiting action
func (r *notificationRepository) CountUnread(ctx context.Context, recipientID string) (int, int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE action_required)
		FROM notifications
		WHERE recipient_id = $1 AND is_read = false
	`
	var unread, actionRequired int
	if err := q.QueryRow(ctx, query, recipientID).Scan(&unread, &actionRequired); err != nil {
		return 0, 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return unread, actionRequired, nil
}

// MarkAsRead marks specific notifications as read
func (r *notificationRepository) MarkAsRead(ctx context.Context, ids []string, userID string) error {
	if len(ids) == 0 {
		return nil
	}

	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE notifications
		SET is_read = true, read_at = $1
		WHERE recipient_id = $2 AND id = ANY($3::uuid[]) AND is_read = false
	`

	if _, err := q.Exec(ctx, query, time.Now(), userID, ids); err != nil {
		return fmt.Errorf("failed to mark notifications as read: %w", err)
	}

	return nil
}

// MarkAllAsRead marks every unread notification of a recipient as read
func (r *notificationRepository) MarkAllAsRead(ctx context.Context, recipientID string, category *notification.Category) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE notifications
		SET is_read = true, read_at = $1
		WHERE recipient_id = $2 AND is_read = false
		  AND ($3::text IS NULL OR category = $3)
	`

	var cat *string
	if category != nil {
		c := string(*category)
		cat = &c
	}

	if _, err := q.Exec(ctx, query, time.Now(), recipientID, cat); err != nil {
		return fmt.Errorf("failed to mark all notifications as read: %w", err)
	}

	return nil
}

// Delete deletes a notification
func (r *notificationRepository) Delete(ctx context.Context, id string, userID string) error {
	q := GetQuerier(ctx, r.db)

	query := `DELETE FROM notifications WHERE id = $1 AND recipient_id = $2`
	result, err := q.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	if result.RowsAffected() == 0 {
		return notification.ErrNotificationNotFound
	}

	return nil
}
