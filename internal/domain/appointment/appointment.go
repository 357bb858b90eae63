package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Status transitions as driven by the workflow:
//
//	pending → accepted | rejected
//	accepted → completed (prescription issued) | canceled
//
// The doctor-facing status write is deliberately permissive; see CanDoctorSet.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusAccepted  AppointmentStatus = "accepted"
	StatusRejected  AppointmentStatus = "rejected"
	StatusCompleted AppointmentStatus = "completed"
	StatusCanceled  AppointmentStatus = "canceled"
)

func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusCompleted || s == StatusCanceled
}

// CanDoctorSet reports whether a doctor may write s directly. Completion is
// only reachable by issuing a prescription.
func (s AppointmentStatus) CanDoctorSet() bool {
	return s.IsValid() && s != StatusCompleted
}

type Appointment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"-"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	DoctorID  uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index" json:"doctor_id"`

	AppointmentDate time.Time         `gorm:"column:appointment_date;not null;index" json:"appointment_date"`
	AppointmentTime string            `gorm:"column:appointment_time;type:varchar(20);not null" json:"appointment_time"` // e.g. "10:30 AM"
	Reason          string            `gorm:"column:reason;type:text;not null" json:"reason"`
	Status          AppointmentStatus `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`

	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (Appointment) TableName() string {
	return "clinical.appointments"
}

func (a *Appointment) IsOwnedBy(doctorID uuid.UUID) bool {
	return a.DoctorID == doctorID
}

// SetStatus applies a doctor decision. It does not consult a transition table.
func (a *Appointment) SetStatus(status AppointmentStatus) error {
	if !status.CanDoctorSet() {
		return ErrStatusNotSettable
	}
	a.Status = status
	return nil
}

// Complete marks the consultation finished. Only prescription issuance calls it.
func (a *Appointment) Complete(at time.Time) {
	a.Status = StatusCompleted
	a.CompletedAt = &at
}

// CreateAppointmentCommand is a patient's booking request; the patient is
// the caller.
type CreateAppointmentCommand struct {
	DoctorID        uuid.UUID
	AppointmentDate time.Time
	AppointmentTime string
	Reason          string
}

type ListAppointmentsQuery struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *AppointmentStatus
	DateFrom  *time.Time
	DateTo    *time.Time
}

// DoctorStats backs the doctor dashboard.
type DoctorStats struct {
	TodaysAppointments   int64 `json:"todays_appointments"`
	PendingRequests      int64 `json:"pending_requests"`
	AcceptedAppointments int64 `json:"accepted_appointments"`
}
