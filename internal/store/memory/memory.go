// Package memory is a map-backed store used for local runs and tests.
// Transactions are serialized and rolled back by restoring a snapshot. An
// open transaction holds the store exclusively: calls made outside it wait
// until it commits or rolls back, so a rollback never discards their writes.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/pharmacy"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/stock"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/store"
	"github.com/google/uuid"
)

type dataset struct {
	users         map[uuid.UUID]domain.User
	appointments  map[uuid.UUID]appointment.Appointment
	prescriptions map[uuid.UUID]prescription.Prescription
	stock         map[uuid.UUID]stock.Item
	pharmacies    map[uuid.UUID]pharmacy.Pharmacy
	audit         []domain.AuditLog
}

func newDataset() *dataset {
	return &dataset{
		users:         make(map[uuid.UUID]domain.User),
		appointments:  make(map[uuid.UUID]appointment.Appointment),
		prescriptions: make(map[uuid.UUID]prescription.Prescription),
		stock:         make(map[uuid.UUID]stock.Item),
		pharmacies:    make(map[uuid.UUID]pharmacy.Pharmacy),
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.users {
		v.LinkedPharmacies = slices.Clone(v.LinkedPharmacies)
		c.users[k] = v
	}
	for k, v := range d.appointments {
		c.appointments[k] = v
	}
	for k, v := range d.prescriptions {
		v.Medicines = slices.Clone(v.Medicines)
		c.prescriptions[k] = v
	}
	for k, v := range d.stock {
		c.stock[k] = v
	}
	for k, v := range d.pharmacies {
		c.pharmacies[k] = v
	}
	c.audit = slices.Clone(d.audit)
	return c
}

type Store struct {
	gate sync.RWMutex // held exclusively by WithinTx
	mu   sync.RWMutex
	data *dataset
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{data: newDataset()}
}

func (s *Store) Repos() store.Repositories {
	return s.repos(conn{s: s})
}

func (s *Store) repos(c conn) store.Repositories {
	return store.Repositories{
		Users:         &userRepo{c},
		Audit:         &auditRepo{c},
		Appointments:  &appointmentRepo{c},
		Prescriptions: &prescriptionRepo{c},
		Stock:         &stockRepo{c},
		Pharmacies:    &pharmacyRepo{c},
	}
}

// WithinTx must not call Repos from fn; only the repositories it is handed
// are usable while the transaction is open.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos store.Repositories) error) error {
	s.gate.Lock()
	defer s.gate.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(ctx, s.repos(conn{s: s, inTx: true})); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// AuditEntries returns a copy of the persisted audit trail.
func (s *Store) AuditEntries() []domain.AuditLog {
	s.gate.RLock()
	defer s.gate.RUnlock()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data.audit)
}

// conn is what every repository goes through. Outside a transaction it
// shares the gate, which makes it wait for an open WithinTx.
type conn struct {
	s    *Store
	inTx bool
}

func (c conn) enter() func() {
	if c.inTx {
		return func() {}
	}
	c.s.gate.RLock()
	return c.s.gate.RUnlock
}

func (c conn) read(fn func(d *dataset)) {
	defer c.enter()()
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	fn(c.s.data)
}

func (c conn) write(fn func(d *dataset) error) error {
	defer c.enter()()
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return fn(c.s.data)
}

func stamp(id *uuid.UUID, created, updated *time.Time) {
	now := time.Now().UTC()
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

func touch(updated *time.Time) {
	*updated = time.Now().UTC()
}

// sortByCreated orders newest first, falling back to id for stability.
func sortByCreated[T any](items []*T, created func(*T) time.Time, id func(*T) uuid.UUID) {
	slices.SortFunc(items, func(a, b *T) int {
		if c := created(b).Compare(created(a)); c != 0 {
			return c
		}
		ida, idb := id(a), id(b)
		return slices.Compare(ida[:], idb[:])
	})
}
