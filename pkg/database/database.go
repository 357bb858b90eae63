package database

import (
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/config"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/pharmacy"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/stock"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// zapWriter routes gorm's slow-query and error lines into zap.
type zapWriter struct {
	log *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...any) {
	w.log.Warnf(format, args...)
}

func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.New(zapWriter{log: log.Named("gorm").Sugar()}, gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		// Off when running behind a transaction-mode pooler.
		PrepareStmt: cfg.PrepareStatements,
		NowFunc:     func() time.Time { return time.Now().UTC() },
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: cfg.DSN(),
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	for _, schema := range []string{"auth", "audit", "clinical", "pharmacy"} {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	models := []any{
		&domain.User{},
		&domain.AuditLog{},
		&appointment.Appointment{},
		&prescription.Prescription{},
		&pharmacy.Pharmacy{},
		&stock.Item{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db, log); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

func createIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		name  string
		query string
	}{
		{
			// Rows written before medicine_key existed. New rows get the key
			// from stock.NormalizeName.
			name:  "backfill_stock_items_medicine_key",
			query: `UPDATE pharmacy.stock_items SET medicine_key = lower(btrim(medicine_name)) WHERE medicine_key = ''`,
		},
		{
			name:  "drop_uq_stock_items_pharmacy_name",
			query: `DROP INDEX IF EXISTS pharmacy.uq_stock_items_pharmacy_name`,
		},
		{
			// One stock row per normalized medicine name per pharmacy.
			name:  "uq_stock_items_pharmacy_key",
			query: `CREATE UNIQUE INDEX IF NOT EXISTS uq_stock_items_pharmacy_key ON pharmacy.stock_items (pharmacy_id, medicine_key)`,
		},
		{
			name:  "idx_appointments_doctor_day",
			query: `CREATE INDEX IF NOT EXISTS idx_appointments_doctor_day ON clinical.appointments (doctor_id, appointment_date, status) WHERE deleted_at IS NULL`,
		},
		{
			name:  "idx_prescriptions_pharmacy_status",
			query: `CREATE INDEX IF NOT EXISTS idx_prescriptions_pharmacy_status ON clinical.prescriptions (pharmacy_id, status) WHERE deleted_at IS NULL`,
		},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			return fmt.Errorf("%s: %w", idx.name, err)
		}
		log.Debug("index ensured", zap.String("index", idx.name))
	}

	return nil
}
