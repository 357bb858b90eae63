// Package store bundles the repositories behind one transaction boundary so
// the workflow can commit cross-entity writes together.
package store

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/pharmacy"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/stock"
)

type Repositories struct {
	Users         domain.UserRepository
	Audit         domain.AuditRepository
	Appointments  appointment.Repository
	Prescriptions prescription.Repository
	Stock         stock.Repository
	Pharmacies    pharmacy.Repository
}

type Transactor interface {
	// WithinTx runs fn against repositories bound to a single transaction.
	// A non-nil error from fn rolls every write back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

type Store interface {
	Transactor
	Repos() Repositories
	Ping(ctx context.Context) error
	Close() error
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)
