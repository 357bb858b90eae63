package postgres

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/pharmacy"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/stock"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type stockRepo struct {
	db *gorm.DB
}

func (r *stockRepo) Create(ctx context.Context, i *stock.Item) error {
	i.SetName(i.MedicineName)
	err := r.db.WithContext(ctx).Create(i).Error
	return translate(err, nil, stock.ErrItemExists)
}

func (r *stockRepo) GetByID(ctx context.Context, id uuid.UUID) (*stock.Item, error) {
	var i stock.Item
	if err := r.db.WithContext(ctx).First(&i, "id = ?", id).Error; err != nil {
		return nil, translate(err, stock.ErrItemNotFound, nil)
	}
	return &i, nil
}

func (r *stockRepo) FindByName(ctx context.Context, pharmacyID uuid.UUID, name string) (*stock.Item, error) {
	var i stock.Item
	err := byMedicine(r.db.WithContext(ctx), pharmacyID, name).First(&i).Error
	if err != nil {
		return nil, translate(err, stock.ErrItemNotFound, nil)
	}
	return &i, nil
}

func (r *stockRepo) Update(ctx context.Context, id uuid.UUID, cmd stock.UpdateItemCommand) (*stock.Item, error) {
	if cmd.Empty() {
		return r.GetByID(ctx, id)
	}

	var item stock.Item
	res := partialUpdate(r.db.WithContext(ctx), &item, id, cmd)
	if res.Error != nil {
		return nil, translate(res.Error, nil, stock.ErrItemExists)
	}
	if res.RowsAffected == 0 {
		return nil, stock.ErrItemNotFound
	}
	return &item, nil
}

func byMedicine(db *gorm.DB, pharmacyID uuid.UUID, name string) *gorm.DB {
	return db.Where("pharmacy_id = ? AND medicine_key = ?", pharmacyID, stock.NormalizeName(name))
}

// partialUpdate sets only the columns present in cmd and scans the row back
// into dest.
func partialUpdate(db *gorm.DB, dest *stock.Item, id uuid.UUID, cmd stock.UpdateItemCommand) *gorm.DB {
	return db.Model(dest).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(cmd.Columns())
}

func (r *stockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&stock.Item{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return stock.ErrItemNotFound
	}
	return nil
}

func (r *stockRepo) ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID) ([]*stock.Item, error) {
	var items []*stock.Item
	err := r.db.WithContext(ctx).
		Where("pharmacy_id = ?", pharmacyID).
		Order("medicine_key ASC").
		Find(&items).Error
	return items, err
}

func (r *stockRepo) CountByPharmacy(ctx context.Context, pharmacyID uuid.UUID, outOfStockOnly bool) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&stock.Item{}).Where("pharmacy_id = ?", pharmacyID)
	if outOfStockOnly {
		tx = tx.Where("quantity <= 0")
	}
	var n int64
	err := tx.Count(&n).Error
	return n, err
}

// deductSQL locks the matched row and applies the clamped decrement in one
// statement, returning the quantity on both sides of the write.
const deductSQL = `
WITH target AS (
	SELECT id, quantity
	FROM pharmacy.stock_items
	WHERE pharmacy_id = ? AND medicine_key = ?
	FOR UPDATE
)
UPDATE pharmacy.stock_items AS s
SET quantity = GREATEST(s.quantity - ?, 0),
    updated_at = NOW()
FROM target
WHERE s.id = target.id
RETURNING s.medicine_name, target.quantity AS qty_before, s.quantity AS qty_after`

type deductRow struct {
	MedicineName string
	QtyBefore    int
	QtyAfter     int
}

func (r *stockRepo) Deduct(ctx context.Context, pharmacyID uuid.UUID, name string, amount int) (stock.Deduction, error) {
	if amount < 0 {
		return stock.Deduction{}, stock.ErrNegativeAmount
	}

	var row deductRow
	res := r.db.WithContext(ctx).Raw(deductSQL, pharmacyID, stock.NormalizeName(name), amount).Scan(&row)
	if res.Error != nil {
		return stock.Deduction{}, res.Error
	}
	return row.deduction(name, amount, res.RowsAffected > 0), nil
}

func (row deductRow) deduction(requestedName string, amount int, matched bool) stock.Deduction {
	d := stock.Deduction{MedicineName: requestedName, Requested: amount}
	if !matched {
		return d
	}
	d.Tracked = true
	d.MedicineName = row.MedicineName
	d.Before = row.QtyBefore
	d.After = row.QtyAfter
	return d
}

type pharmacyRepo struct {
	db *gorm.DB
}

func (r *pharmacyRepo) Create(ctx context.Context, p *pharmacy.Pharmacy) error {
	err := r.db.WithContext(ctx).Create(p).Error
	return translate(err, nil, pharmacy.ErrProfileExists)
}

func (r *pharmacyRepo) GetByID(ctx context.Context, id uuid.UUID) (*pharmacy.Pharmacy, error) {
	var p pharmacy.Pharmacy
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err, pharmacy.ErrProfileNotFound, nil)
	}
	return &p, nil
}

func (r *pharmacyRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*pharmacy.Pharmacy, error) {
	var p pharmacy.Pharmacy
	if err := r.db.WithContext(ctx).First(&p, "owner_id = ?", ownerID).Error; err != nil {
		return nil, translate(err, pharmacy.ErrProfileNotFound, nil)
	}
	return &p, nil
}

func (r *pharmacyRepo) Update(ctx context.Context, p *pharmacy.Pharmacy) error {
	res := r.db.WithContext(ctx).
		Model(&pharmacy.Pharmacy{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"name":          p.Name,
			"address":       p.Address,
			"phone":         p.Phone,
			"working_hours": p.WorkingHours,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pharmacy.ErrProfileNotFound
	}
	return nil
}

func (r *pharmacyRepo) List(ctx context.Context) ([]*pharmacy.Pharmacy, error) {
	var out []*pharmacy.Pharmacy
	err := r.db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}
