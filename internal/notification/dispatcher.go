package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type DispatcherConfig struct {
	BufferSize  int
	SendTimeout time.Duration
}

// Dispatcher resolves the recipient's device token, queues the message and
// publishes it from a single background worker.
type Dispatcher struct {
	users     UserLookup
	publisher Publisher
	cfg       DispatcherConfig
	log       *zap.Logger
	metrics   *metrics.Collector

	mu     sync.RWMutex
	closed bool
	queue  chan Message
	done   chan struct{}
}

var _ Gateway = (*Dispatcher)(nil)

func NewDispatcher(users UserLookup, publisher Publisher, cfg DispatcherConfig, log *zap.Logger, m *metrics.Collector) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 5 * time.Second
	}

	d := &Dispatcher{
		users:     users,
		publisher: publisher,
		cfg:       cfg,
		log:       log.Named("notify"),
		metrics:   m,
		queue:     make(chan Message, cfg.BufferSize),
		done:      make(chan struct{}),
	}
	go d.worker()
	return d
}

// Notify enqueues n for delivery. Users without a device token are skipped
// silently.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) error {
	u, err := d.users.GetByID(ctx, n.UserID)
	if err != nil {
		d.metrics.NotificationsTotal.WithLabelValues(metrics.NotificationFailed).Inc()
		return fmt.Errorf("resolving recipient: %w", err)
	}
	if u.DeviceToken == "" {
		d.metrics.NotificationsTotal.WithLabelValues(metrics.NotificationNoAddress).Inc()
		d.log.Debug("recipient has no device token", zap.String("user_id", n.UserID.String()))
		return nil
	}

	msg := Message{
		ID:          uuid.New(),
		UserID:      n.UserID,
		DeviceToken: u.DeviceToken,
		Title:       n.Title,
		Body:        n.Body,
		Data:        n.Data,
		CreatedAt:   time.Now().UTC(),
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.queue <- msg:
		return nil
	default:
		d.metrics.NotificationsTotal.WithLabelValues(metrics.NotificationDropped).Inc()
		d.log.Warn("notification queue full, dropping message",
			zap.String("user_id", n.UserID.String()),
			zap.String("title", n.Title),
		)
		return ErrQueueFull
	}
}

// Shutdown stops accepting messages and drains the queue until ctx ends.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
	case <-ctx.Done():
		d.log.Warn("notification dispatcher shutdown timed out; pending messages lost")
		return ctx.Err()
	}
	return d.publisher.Close()
}

func (d *Dispatcher) worker() {
	defer close(d.done)
	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
		err := d.publisher.Publish(ctx, msg)
		cancel()

		if err != nil {
			d.metrics.NotificationsTotal.WithLabelValues(metrics.NotificationFailed).Inc()
			d.log.Warn("failed to publish notification",
				zap.String("message_id", msg.ID.String()),
				zap.String("user_id", msg.UserID.String()),
				zap.Error(err),
			)
			continue
		}
		d.metrics.NotificationsTotal.WithLabelValues(metrics.NotificationSent).Inc()
	}
}
