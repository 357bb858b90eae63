package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/pkg/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuditService struct {
	repo    domain.AuditRepository
	log     *zap.Logger
	metrics *metrics.Collector
	entries chan *domain.AuditLog
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

const auditBufferSize = 10_000

func NewAuditService(repo domain.AuditRepository, log *zap.Logger, m *metrics.Collector) *AuditService {
	svc := &AuditService{
		repo:    repo,
		log:     log.Named("audit"),
		metrics: m,
		entries: make(chan *domain.AuditLog, auditBufferSize),
		done:    make(chan struct{}),
	}
	go svc.worker()
	return svc
}

// Record enqueues an audit entry for async persistence.
// If the buffer is full, the entry is dropped and a warning is emitted.
func (s *AuditService) Record(ctx context.Context, actor domain.Actor, action domain.AuditAction, resourceType string, resourceID uuid.UUID, changes any) {
	al := &domain.AuditLog{
		UserID:       actor.UserID,
		UserRole:     actor.Role,
		IPAddress:    actor.IP,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID.String(),
		RequestID:    requestid.From(ctx),
		Changes:      "{}",
	}
	if changes != nil {
		if raw, err := json.Marshal(changes); err == nil {
			al.Changes = string(raw)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	select {
	case s.entries <- al:
	default:
		s.metrics.AuditBufferDropped.Inc()
		s.log.Warn("audit log buffer full, dropping entry",
			zap.String("action", string(action)),
			zap.String("resource", resourceType),
		)
	}
}

func (s *AuditService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.entries)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-ctx.Done():
		s.log.Warn("audit service shutdown timed out; some entries may be lost")
	}
}

func (s *AuditService) worker() {
	defer close(s.done)
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Create(ctx, entry); err != nil {
			s.log.Error("failed to persist audit log", zap.Error(err))
		} else {
			s.metrics.AuditEntriesTotal.Inc()
		}
		cancel()
	}
}
