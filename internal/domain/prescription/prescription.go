package prescription

import (
	"time"

	"github.com/google/uuid"
)

// State transitions possibilities:
//
//	pending → ready_for_pickup → dispensed
//	pending → dispensed
//
// Re-saving the current status is allowed (pharmacy notes updates); moving
// backwards is not.
type PrescriptionStatus string

const (
	StatusPending        PrescriptionStatus = "pending"
	StatusReadyForPickup PrescriptionStatus = "ready_for_pickup"
	StatusDispensed      PrescriptionStatus = "dispensed"
)

func (s PrescriptionStatus) IsValid() bool {
	_, ok := statusOrder[s]
	return ok
}

var statusOrder = map[PrescriptionStatus]int{
	StatusPending:        0,
	StatusReadyForPickup: 1,
	StatusDispensed:      2,
}

const DefaultQuantity = 1

// Medicine is a single line of a prescription.
type Medicine struct {
	Name     string `json:"name"`
	Dosage   string `json:"dosage"`   // e.g. "1 tablet 3 times a day"
	Duration string `json:"duration"` // e.g. "7 days"
	Quantity int    `json:"quantity"` // units to dispense
}

// DispenseQuantity is the amount the stock ledger deducts for the line.
func (m Medicine) DispenseQuantity() int {
	if m.Quantity <= 0 {
		return DefaultQuantity
	}
	return m.Quantity
}

type Prescription struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"-"`

	AppointmentID uuid.UUID `gorm:"column:appointment_id;type:uuid;not null;uniqueIndex" json:"appointment_id"`
	PatientID     uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	DoctorID      uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index" json:"doctor_id"`
	PharmacyID    uuid.UUID `gorm:"column:pharmacy_id;type:uuid;not null;index" json:"pharmacy_id"`

	Medicines []Medicine `gorm:"column:medicines;type:jsonb;serializer:json;not null" json:"medicines"`

	Notes         string `gorm:"column:notes;type:text" json:"notes,omitempty"`
	PharmacyNotes string `gorm:"column:pharmacy_notes;type:text" json:"pharmacy_notes,omitempty"`

	Status      PrescriptionStatus `gorm:"column:status;type:varchar(30);not null;default:'pending';index" json:"status"`
	DispensedAt *time.Time         `gorm:"column:dispensed_at" json:"dispensed_at,omitempty"`
}

func (Prescription) TableName() string {
	return "clinical.prescriptions"
}

func (p *Prescription) CanTransitionTo(next PrescriptionStatus) bool {
	if !next.IsValid() {
		return false
	}
	return statusOrder[next] >= statusOrder[p.Status]
}

// Transition records the status a prescription moved between.
type Transition struct {
	From PrescriptionStatus
	To   PrescriptionStatus
}

func (t Transition) Changed() bool {
	return t.From != t.To
}

// EntersDispensed is true only for the first move into dispensed. Stock is
// deducted exactly when this holds.
func (t Transition) EntersDispensed() bool {
	return t.To == StatusDispensed && t.From != StatusDispensed
}

// ApplyStatus moves the prescription to next and applies notes when present.
func (p *Prescription) ApplyStatus(next PrescriptionStatus, pharmacyNotes *string, at time.Time) (Transition, error) {
	if !next.IsValid() {
		return Transition{}, ErrInvalidStatus
	}
	if !p.CanTransitionTo(next) {
		return Transition{}, ErrInvalidStatusTransition
	}

	t := Transition{From: p.Status, To: next}
	p.Status = next
	if t.EntersDispensed() {
		p.DispensedAt = &at
	}
	if pharmacyNotes != nil {
		p.PharmacyNotes = *pharmacyNotes
	}
	return t, nil
}

type CreatePrescriptionCommand struct {
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	PharmacyID    uuid.UUID
	Medicines     []Medicine
	Notes         string
}

type UpdateStatusCommand struct {
	Status        PrescriptionStatus
	PharmacyNotes *string
}

type ListPrescriptionsQuery struct {
	PatientID  *uuid.UUID
	DoctorID   *uuid.UUID
	PharmacyID *uuid.UUID
	Status     *PrescriptionStatus
}

// MedicineView is a medicine line annotated with the stock availability at
// the prescription's pharmacy. It is never persisted.
type MedicineView struct {
	Medicine
	IsAvailable bool `json:"is_available"`
}

type View struct {
	*Prescription
	Medicines []MedicineView `json:"medicines"`
}
