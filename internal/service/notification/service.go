package notification

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/auth"
	"github.com/cmlabs-hris/leave-portal-go/internal/domain/notification"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/sse"
	"github.com/cmlabs-hris/leave-portal-go/internal/pkg/validator"
	"github.com/google/uuid"
)

const eventNotification = "notification"

// Config holds notification service configuration
type Config struct {
	BatchSize     int           // default: 100
	FlushInterval time.Duration // default: 5 seconds
	WorkerCount   int           // default: 2
	QueueSize     int           // default: 1000
}

type service struct {
	repo    notification.Repository
	hub     *sse.Hub
	config  Config
	metrics *metrics.Metrics

	queue    chan notification.CreateNotificationRequest
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewNotificationService creates a new notification service with background workers
func NewNotificationService(repo notification.Repository, hub *sse.Hub, cfg Config, m *metrics.Metrics) notification.Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}

	s := &service{
		repo:    repo,
		hub:     hub,
		config:  cfg,
		metrics: m,
		queue:   make(chan notification.CreateNotificationRequest, cfg.QueueSize),
		stopCh:  make(chan struct{}),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	slog.Info("notification service started",
		"workers", cfg.WorkerCount,
		"batch_size", cfg.BatchSize,
		"flush_interval", cfg.FlushInterval,
	)

	return s
}

func newEntity(req notification.CreateNotificationRequest) *notification.Notification {
	n := req.ToEntity()
	n.ID = uuid.New().String()
	n.CreatedAt = time.Now()
	if n.Priority == "" {
		n.Priority = notification.PriorityMedium
	}
	return n
}

// worker is the background worker that processes notification queue
func (s *service) worker(id int) {
	defer s.wg.Done()

	batch := make([]notification.CreateNotificationRequest, 0, s.config.BatchSize)
	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		notifications := make([]*notification.Notification, len(batch))
		for i, req := range batch {
			notifications[i] = newEntity(req)
		}
		batch = batch[:0]

		if err := s.repo.CreateBatch(ctx, notifications); err != nil {
			slog.Error("notification batch insert failed", "worker", id, "count", len(notifications), "error", err)
			s.metrics.NotificationFailed("batch")
			return
		}

		s.metrics.NotificationsPersisted(len(notifications))
		for _, n := range notifications {
			s.publish(n)
		}
	}

	for {
		select {
		case req := <-s.queue:
			batch = append(batch, req)
			if len(batch) >= s.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.stopCh:
			for {
				select {
				case req := <-s.queue:
					batch = append(batch, req)
					if len(batch) >= s.config.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

func (s *service) publish(n *notification.Notification) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(n.RecipientID, sse.Event{
		UserID: n.RecipientID,
		Event:  eventNotification,
		Data:   n.ToResponse(),
	})
}

// QueueNotification queues a notification for async processing. When the
// queue is full the notification is written synchronously.
func (s *service) QueueNotification(ctx context.Context, req notification.CreateNotificationRequest) error {
	if !req.Severity.IsValid() {
		return notification.ErrInvalidSeverity
	}

	select {
	case <-s.stopCh:
		return notification.ErrServiceStopped
	default:
	}

	select {
	case s.queue <- req:
		s.metrics.NotificationQueued()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return s.directInsert(ctx, req)
	}
}

// directInsert inserts a notification directly when queue is full
func (s *service) directInsert(ctx context.Context, req notification.CreateNotificationRequest) error {
	n := newEntity(req)

	if err := s.repo.Create(ctx, n); err != nil {
		s.metrics.NotificationFailed("direct")
		return err
	}

	s.metrics.NotificationsPersisted(1)
	s.publish(n)
	return nil
}

// List returns one page of the actor's notifications, newest first
func (s *service) List(ctx context.Context, actor auth.Actor, filter notification.ListFilter) (*notification.NotificationListResponse, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	notifications, total, err := s.repo.List(ctx, actor.ID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	responses := make([]notification.NotificationResponse, len(notifications))
	for i, n := range notifications {
		responses[i] = n.ToResponse()
	}

	return &notification.NotificationListResponse{
		Notifications: responses,
		TotalCount:    total,
		Page:          filter.Page,
		Limit:         filter.Limit,
		TotalPages:    int(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}

func (s *service) UnreadCount(ctx context.Context, actor auth.Actor) (notification.UnreadCountResponse, error) {
	unread, actionRequired, err := s.repo.CountUnread(ctx, actor.ID)
	if err != nil {
		return notification.UnreadCountResponse{}, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return notification.UnreadCountResponse{UnreadCount: unread, ActionRequired: actionRequired}, nil
}

func (s *service) MarkAsRead(ctx context.Context, actor auth.Actor, req notification.MarkAsReadRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return s.repo.MarkAsRead(ctx, req.NotificationIDs, actor.ID)
}

func (s *service) MarkAllAsRead(ctx context.Context, actor auth.Actor, category *notification.Category) error {
	if category != nil && !category.IsValid() {
		return validator.ValidationErrors{{Field: "category", Message: "unknown notification category"}}
	}
	return s.repo.MarkAllAsRead(ctx, actor.ID, category)
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, notificationID string) error {
	return s.repo.Delete(ctx, notificationID, actor.ID)
}

// Subscribe creates an SSE subscription for a user
func (s *service) Subscribe(ctx context.Context, userID string) (<-chan notification.SSEEvent, func()) {
	ch, cleanup := s.hub.Subscribe(userID)

	out := make(chan notification.SSEEvent, 10)

	go func() {
		defer close(out)
		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				resp, ok := event.Data.(notification.NotificationResponse)
				if !ok {
					continue
				}
				select {
				case out <- notification.SSEEvent{Event: event.Event, Data: resp}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cleanup
}

// Stop flushes queued notifications and waits for the workers to exit
func (s *service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		slog.Info("notification service stopped")
	})
}
