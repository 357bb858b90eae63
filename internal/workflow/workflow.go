// Package workflow binds the appointment, prescription and stock lifecycles.
//
// Writes that span entities run inside one store transaction: issuing a
// prescription completes its appointment, and dispensing a prescription
// deducts every medicine line from the pharmacy's stock. Patients are
// notified after commit, and only when a status actually changed.
package workflow

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/notification"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/store"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/pkg/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/workflow"

// Auditor records who changed what. AuditService satisfies it.
type Auditor interface {
	Record(ctx context.Context, actor domain.Actor, action domain.AuditAction, resourceType string, resourceID uuid.UUID, changes any)
}

type Coordinator struct {
	store   store.Store
	gateway notification.Gateway
	audit   Auditor
	metrics *metrics.Collector
	log     *zap.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

type Option func(*Coordinator)

// WithClock overrides the time source used for completion and dispense stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func New(s store.Store, gateway notification.Gateway, audit Auditor, m *metrics.Collector, log *zap.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   s,
		gateway: gateway,
		audit:   audit,
		metrics: m,
		log:     log.Named("workflow"),
		tracer:  otel.Tracer(tracerName),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// notify is fire-and-forget: a failure is logged and never returned.
func (c *Coordinator) notify(ctx context.Context, n notification.Notification) {
	if err := c.gateway.Notify(ctx, n); err != nil {
		c.log.Warn("notification not delivered",
			zap.String("user_id", n.UserID.String()),
			zap.String("title", n.Title),
			zap.Error(err),
		)
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
