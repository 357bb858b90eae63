package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	notFound := errors.New("missing")
	conflict := errors.New("taken")
	dup := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "uq_stock_items_pharmacy_key"}
	fkey := &pgconn.PgError{Code: "23503"}
	other := errors.New("connection reset")

	tests := []struct {
		name     string
		err      error
		notFound error
		conflict error
		want     error
	}{
		{name: "nil", err: nil, notFound: notFound, conflict: conflict, want: nil},
		{name: "record not found", err: gorm.ErrRecordNotFound, notFound: notFound, want: notFound},
		{name: "wrapped record not found", err: fmt.Errorf("first: %w", gorm.ErrRecordNotFound), notFound: notFound, want: notFound},
		{name: "not found without mapping", err: gorm.ErrRecordNotFound, conflict: conflict, want: gorm.ErrRecordNotFound},
		{name: "unique violation", err: dup, conflict: conflict, want: conflict},
		{name: "wrapped unique violation", err: fmt.Errorf("insert: %w", dup), conflict: conflict, want: conflict},
		{name: "unique violation without mapping", err: dup, notFound: notFound, want: dup},
		{name: "other pg error", err: fkey, notFound: notFound, conflict: conflict, want: fkey},
		{name: "other error", err: other, notFound: notFound, conflict: conflict, want: other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.err, tt.notFound, tt.conflict)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestTranslate_DomainSentinels(t *testing.T) {
	dup := &pgconn.PgError{Code: uniqueViolation}
	assert.ErrorIs(t, translate(dup, nil, stock.ErrItemExists), stock.ErrItemExists)
	assert.ErrorIs(t, translate(dup, nil, domain.ErrUserExists), domain.ErrUserExists)
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound, domain.ErrUserNotFound, nil), domain.ErrUserNotFound)
}

func TestDeductRow_Deduction(t *testing.T) {
	row := deductRow{MedicineName: "Paracetamol", QtyBefore: 3, QtyAfter: 0}

	d := row.deduction("paracetamol ", 5, true)
	assert.True(t, d.Tracked)
	assert.Equal(t, "Paracetamol", d.MedicineName, "stored spelling wins")
	assert.Equal(t, 5, d.Requested)
	assert.Equal(t, 3, d.Before)
	assert.Equal(t, 0, d.After)
	assert.True(t, d.Clamped())

	miss := deductRow{}.deduction("Unobtainium", 2, false)
	assert.False(t, miss.Tracked)
	assert.Equal(t, "Unobtainium", miss.MedicineName)
	assert.Equal(t, 2, miss.Requested)
	assert.False(t, miss.Clamped())
}

// dryRun builds SQL with the postgres dialect without a server.
func dryRun(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=sehatsetu dbname=sehatsetu sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func TestPartialUpdate_WritesOnlyPresentColumns(t *testing.T) {
	db := dryRun(t)
	id := uuid.New()
	price := 2.5

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return partialUpdate(tx, &stock.Item{}, id, stock.UpdateItemCommand{Price: &price})
	})
	assert.Contains(t, sql, `"price"=2.5`)
	assert.Contains(t, sql, id.String())
	assert.Contains(t, sql, "RETURNING")
	assert.NotContains(t, sql, `"quantity"`)
	assert.NotContains(t, sql, `"medicine_name"`)

	name := " Cetirizine "
	sql = db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return partialUpdate(tx, &stock.Item{}, id, stock.UpdateItemCommand{MedicineName: &name})
	})
	assert.Contains(t, sql, `"medicine_name"='Cetirizine'`)
	assert.Contains(t, sql, `"medicine_key"='cetirizine'`)
	assert.NotContains(t, sql, `"quantity"`)
}

func TestByMedicine_UsesNormalizedKey(t *testing.T) {
	db := dryRun(t)
	pharmacyID := uuid.New()

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var items []stock.Item
		return byMedicine(tx, pharmacyID, "  PARACETAMOL ").Find(&items)
	})
	assert.Contains(t, sql, "medicine_key = 'paracetamol'")
	assert.Contains(t, sql, pharmacyID.String())
	assert.NotContains(t, sql, "lower(")
}

func TestDeductSQL_MatchesOnKey(t *testing.T) {
	assert.Contains(t, deductSQL, "medicine_key = ?")
	assert.Contains(t, deductSQL, "GREATEST(s.quantity - ?, 0)")
	assert.Contains(t, deductSQL, "FOR UPDATE")
}
