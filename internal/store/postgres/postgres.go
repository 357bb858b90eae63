// Package postgres implements the store on PostgreSQL through gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/store"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Repos() store.Repositories {
	return reposFor(s.db)
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos store.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, reposFor(tx))
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func reposFor(db *gorm.DB) store.Repositories {
	return store.Repositories{
		Users:         &userRepo{db: db},
		Audit:         &auditRepo{db: db},
		Appointments:  &appointmentRepo{db: db},
		Prescriptions: &prescriptionRepo{db: db},
		Stock:         &stockRepo{db: db},
		Pharmacies:    &pharmacyRepo{db: db},
	}
}

// translate maps driver errors onto domain sentinels. notFound and conflict
// may be nil when the call cannot produce them.
func translate(err error, notFound, conflict error) error {
	if err == nil {
		return nil
	}
	if notFound != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	var pgErr *pgconn.PgError
	if conflict != nil && errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return conflict
	}
	return err
}

func notDeleted(db *gorm.DB) *gorm.DB {
	return db.Where("deleted_at IS NULL")
}
