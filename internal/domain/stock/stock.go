package stock

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Item is a pharmacy's tracked quantity of one named medicine. The pair
// (PharmacyID, MedicineKey) is unique.
type Item struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	PharmacyID   uuid.UUID  `gorm:"column:pharmacy_id;type:uuid;not null;index" json:"pharmacy_id"`
	MedicineName string     `gorm:"column:medicine_name;type:varchar(255);not null" json:"medicine_name"`
	MedicineKey  string     `gorm:"column:medicine_key;type:varchar(255);not null;default:''" json:"-"`
	Quantity     int        `gorm:"column:quantity;not null;default:0;check:quantity >= 0" json:"quantity"`
	Price        float64    `gorm:"column:price;type:numeric(12,2);default:0" json:"price"`
	ExpiryDate   *time.Time `gorm:"column:expiry_date" json:"expiry_date,omitempty"`
}

func (Item) TableName() string {
	return "pharmacy.stock_items"
}

func (i *Item) InStock() bool {
	return i.Quantity > 0
}

// NormalizeName is the single matching rule for medicine names. Both store
// drivers persist and query the result as MedicineKey.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SetName trims name and keeps MedicineKey in step with it.
func (i *Item) SetName(name string) {
	i.MedicineName = strings.TrimSpace(name)
	i.MedicineKey = NormalizeName(name)
}

// ClampedDeduct is the ledger rule: quantities never go below zero.
func ClampedDeduct(quantity, amount int) int {
	if amount >= quantity {
		return 0
	}
	return quantity - amount
}

type AddItemCommand struct {
	PharmacyID   uuid.UUID
	MedicineName string
	Quantity     int
	Price        float64
	ExpiryDate   *time.Time
}

// UpdateItemCommand is a partial update; nil fields keep their stored value
// and zero values are applied as given.
type UpdateItemCommand struct {
	MedicineName *string
	Quantity     *int
	Price        *float64
	ExpiryDate   *time.Time
}

func (c *UpdateItemCommand) Empty() bool {
	return c.MedicineName == nil && c.Quantity == nil && c.Price == nil && c.ExpiryDate == nil
}

// Apply copies the present fields onto i.
func (c *UpdateItemCommand) Apply(i *Item) {
	if c.MedicineName != nil {
		i.SetName(*c.MedicineName)
	}
	if c.Quantity != nil {
		i.Quantity = *c.Quantity
	}
	if c.Price != nil {
		i.Price = *c.Price
	}
	if c.ExpiryDate != nil {
		i.ExpiryDate = c.ExpiryDate
	}
}

// Columns maps the present fields onto their column names.
func (c *UpdateItemCommand) Columns() map[string]any {
	cols := make(map[string]any, 5)
	if c.MedicineName != nil {
		cols["medicine_name"] = strings.TrimSpace(*c.MedicineName)
		cols["medicine_key"] = NormalizeName(*c.MedicineName)
	}
	if c.Quantity != nil {
		cols["quantity"] = *c.Quantity
	}
	if c.Price != nil {
		cols["price"] = *c.Price
	}
	if c.ExpiryDate != nil {
		cols["expiry_date"] = *c.ExpiryDate
	}
	return cols
}

// Deduction reports the outcome of one ledger deduction.
type Deduction struct {
	MedicineName string
	Requested    int
	Before       int
	After        int
	Tracked      bool
}

func (d Deduction) Clamped() bool {
	return d.Tracked && d.Before < d.Requested
}

type PharmacyStats struct {
	TotalMedicines       int64 `json:"total_medicines"`
	PendingPrescriptions int64 `json:"pending_prescriptions"`
	OutOfStock           int64 `json:"out_of_stock"`
}
