package prescription

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create returns ErrPrescriptionExists when the appointment already has one.
	Create(ctx context.Context, p *Prescription) error

	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)

	// GetByIDForUpdate locks the row for the rest of the surrounding transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Prescription, error)

	ExistsForAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error)

	// UpdateStatus persists Status, PharmacyNotes and DispensedAt.
	UpdateStatus(ctx context.Context, p *Prescription) error

	List(ctx context.Context, q *ListPrescriptionsQuery) ([]*Prescription, error)
	Count(ctx context.Context, q *ListPrescriptionsQuery) (int64, error)
}
