package pharmacy

import (
	"time"

	"github.com/google/uuid"
)

// Pharmacy is the profile a pharmacy user manages. Stock items and
// prescriptions reference the profile id, not the user id.
type Pharmacy struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	OwnerID      uuid.UUID `gorm:"column:owner_id;type:uuid;not null;uniqueIndex" json:"owner_id"`
	Name         string    `gorm:"column:name;type:varchar(200);not null" json:"name"`
	Address      string    `gorm:"column:address;type:text;not null" json:"address"`
	Phone        string    `gorm:"column:phone;type:varchar(20);not null" json:"phone"`
	WorkingHours string    `gorm:"column:working_hours;type:varchar(120)" json:"working_hours,omitempty"`
}

func (Pharmacy) TableName() string {
	return "pharmacy.pharmacies"
}

type CreatePharmacyCommand struct {
	OwnerID      uuid.UUID
	Name         string
	Address      string
	Phone        string
	WorkingHours string
}

type UpdatePharmacyCommand struct {
	Name         *string
	Address      *string
	Phone        *string
	WorkingHours *string
}

func (c *UpdatePharmacyCommand) Apply(p *Pharmacy) {
	if c.Name != nil {
		p.Name = *c.Name
	}
	if c.Address != nil {
		p.Address = *c.Address
	}
	if c.Phone != nil {
		p.Phone = *c.Phone
	}
	if c.WorkingHours != nil {
		p.WorkingHours = *c.WorkingHours
	}
}

// Summary is the public directory entry.
type Summary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
