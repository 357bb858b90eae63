package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error

	// GetByID returns ErrAppointmentNotFound if the appointment does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	List(ctx context.Context, q *ListAppointmentsQuery) ([]*Appointment, error)

	// UpdateStatus persists Status and CompletedAt of a.
	UpdateStatus(ctx context.Context, a *Appointment) error

	CountByDoctor(ctx context.Context, doctorID uuid.UUID, status *AppointmentStatus, from, to *time.Time) (int64, error)
}
