package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubUsers map[uuid.UUID]*domain.User

func (s stubUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

type recordingPublisher struct {
	mu      sync.Mutex
	msgs    []Message
	err     error
	started chan struct{}
	release chan struct{}
}

func (p *recordingPublisher) Publish(_ context.Context, msg Message) error {
	if p.started != nil {
		p.started <- struct{}{}
		<-p.release
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.msgs...)
}

func TestDispatcher_DeliversToDeviceToken(t *testing.T) {
	patient := &domain.User{ID: uuid.New(), DeviceToken: "device-abc"}
	pub := &recordingPublisher{}
	m := metrics.NewCollector("test")
	d := NewDispatcher(stubUsers{patient.ID: patient}, pub, DispatcherConfig{BufferSize: 4}, zaptest.NewLogger(t), m)

	err := d.Notify(context.Background(), Notification{
		UserID: patient.ID,
		Title:  TitleMedicinesReady,
		Body:   MedicinesReadyBody("City Pharmacy"),
	})
	require.NoError(t, err)
	require.NoError(t, d.Shutdown(context.Background()))

	msgs := pub.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "device-abc", msgs[0].DeviceToken)
	assert.Equal(t, "Your prescription from City Pharmacy is ready for pickup.", msgs[0].Body)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues(metrics.NotificationSent)))
}

func TestDispatcher_SkipsUsersWithoutToken(t *testing.T) {
	patient := &domain.User{ID: uuid.New()}
	pub := &recordingPublisher{}
	m := metrics.NewCollector("test")
	d := NewDispatcher(stubUsers{patient.ID: patient}, pub, DispatcherConfig{}, zaptest.NewLogger(t), m)

	require.NoError(t, d.Notify(context.Background(), Notification{UserID: patient.ID, Title: "x"}))
	require.NoError(t, d.Shutdown(context.Background()))

	assert.Empty(t, pub.messages())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues(metrics.NotificationNoAddress)))
}

func TestDispatcher_UnknownRecipient(t *testing.T) {
	d := NewDispatcher(stubUsers{}, &recordingPublisher{}, DispatcherConfig{}, zaptest.NewLogger(t), metrics.NewCollector("test"))
	defer d.Shutdown(context.Background())

	err := d.Notify(context.Background(), Notification{UserID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestDispatcher_PublishFailureIsCounted(t *testing.T) {
	patient := &domain.User{ID: uuid.New(), DeviceToken: "t"}
	pub := &recordingPublisher{err: errors.New("broker down")}
	m := metrics.NewCollector("test")
	d := NewDispatcher(stubUsers{patient.ID: patient}, pub, DispatcherConfig{}, zaptest.NewLogger(t), m)

	require.NoError(t, d.Notify(context.Background(), Notification{UserID: patient.ID}))
	require.NoError(t, d.Shutdown(context.Background()))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues(metrics.NotificationFailed)))
}

func TestDispatcher_QueueFull(t *testing.T) {
	patient := &domain.User{ID: uuid.New(), DeviceToken: "t"}
	pub := &recordingPublisher{started: make(chan struct{}, 1), release: make(chan struct{})}
	m := metrics.NewCollector("test")
	d := NewDispatcher(stubUsers{patient.ID: patient}, pub, DispatcherConfig{BufferSize: 1}, zaptest.NewLogger(t), m)

	ctx := context.Background()
	n := Notification{UserID: patient.ID}

	// First message parks the worker inside Publish.
	require.NoError(t, d.Notify(ctx, n))
	<-pub.started

	require.NoError(t, d.Notify(ctx, n))
	assert.ErrorIs(t, d.Notify(ctx, n), ErrQueueFull)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues(metrics.NotificationDropped)))

	// started has room for the second message's signal.
	close(pub.release)
	require.NoError(t, d.Shutdown(ctx))
	assert.Len(t, pub.messages(), 2)
}

func TestDispatcher_RejectsAfterShutdown(t *testing.T) {
	patient := &domain.User{ID: uuid.New(), DeviceToken: "t"}
	d := NewDispatcher(stubUsers{patient.ID: patient}, &recordingPublisher{}, DispatcherConfig{}, zaptest.NewLogger(t), metrics.NewCollector("test"))
	require.NoError(t, d.Shutdown(context.Background()))

	assert.ErrorIs(t, d.Notify(context.Background(), Notification{UserID: patient.ID}), ErrClosed)
}

func TestBreakerPublisher_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &recordingPublisher{err: errors.New("broker down")}
	p := NewBreakerPublisher(inner, BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute}, zaptest.NewLogger(t))

	ctx := context.Background()
	assert.Error(t, p.Publish(ctx, Message{}))
	assert.Error(t, p.Publish(ctx, Message{}))

	err := p.Publish(ctx, Message{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Len(t, inner.messages(), 2, "open breaker must not reach the publisher")
}
