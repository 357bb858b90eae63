package domain

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

var bloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

func ValidBloodGroup(g string) bool {
	return slices.Contains(bloodGroups, g)
}

// SyncUserCommand carries what a client sends on first login. Subject and
// Email always come from the verified token.
type SyncUserCommand struct {
	Subject        string
	Email          string
	Name           string
	Role           Role
	Specialization string
	DeviceToken    string
}

// UpdateProfileCommand is a partial update; nil fields keep their stored
// value. Which fields a caller may send depends on their role.
type UpdateProfileCommand struct {
	Name             *string
	Phone            *string
	Address          *string
	Gender           *string
	BloodGroup       *string
	DateOfBirth      *time.Time
	Specialization   *string
	LinkedPharmacies *[]uuid.UUID
}

func (c *UpdateProfileCommand) Empty() bool {
	return c.Name == nil && c.Phone == nil && c.Address == nil && c.Gender == nil &&
		c.BloodGroup == nil && c.DateOfBirth == nil && c.Specialization == nil && c.LinkedPharmacies == nil
}

func (c *UpdateProfileCommand) Apply(u *User) {
	setTrimmed(&u.Name, c.Name)
	setTrimmed(&u.Phone, c.Phone)
	setTrimmed(&u.Address, c.Address)
	setTrimmed(&u.Gender, c.Gender)
	setTrimmed(&u.BloodGroup, c.BloodGroup)
	setTrimmed(&u.Specialization, c.Specialization)
	if c.DateOfBirth != nil {
		dob := *c.DateOfBirth
		u.DateOfBirth = &dob
	}
	if c.LinkedPharmacies != nil {
		u.LinkedPharmacies = slices.Clone(*c.LinkedPharmacies)
	}
}

// Columns maps the present fields onto their column names. Linked pharmacies
// are encoded here because map updates skip the field serializer.
func (c *UpdateProfileCommand) Columns() (map[string]any, error) {
	cols := make(map[string]any, 8)
	putTrimmed(cols, "name", c.Name)
	putTrimmed(cols, "phone", c.Phone)
	putTrimmed(cols, "address", c.Address)
	putTrimmed(cols, "gender", c.Gender)
	putTrimmed(cols, "blood_group", c.BloodGroup)
	putTrimmed(cols, "specialization", c.Specialization)
	if c.DateOfBirth != nil {
		cols["date_of_birth"] = *c.DateOfBirth
	}
	if c.LinkedPharmacies != nil {
		raw, err := json.Marshal(*c.LinkedPharmacies)
		if err != nil {
			return nil, err
		}
		cols["linked_pharmacies"] = string(raw)
	}
	return cols, nil
}

func setTrimmed(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func putTrimmed(cols map[string]any, column string, v *string) {
	if v != nil {
		cols[column] = strings.TrimSpace(*v)
	}
}
