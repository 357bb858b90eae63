package workflow

import (
	"context"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/notification"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DecideAppointment applies a doctor's status write. Only the appointment's
// own doctor may write it, and completion is reserved for IssuePrescription.
func (c *Coordinator) DecideAppointment(ctx context.Context, actor domain.Actor, id uuid.UUID, status appointment.AppointmentStatus) (*appointment.Appointment, error) {
	ctx, span := c.tracer.Start(ctx, "workflow.DecideAppointment", trace.WithAttributes(
		attribute.String("appointment.id", id.String()),
		attribute.String("appointment.status", string(status)),
	))
	defer span.End()

	if actor.Role != domain.RoleDoctor {
		return nil, fail(span, domain.ErrForbidden)
	}

	repos := c.store.Repos()
	a, err := repos.Appointments.GetByID(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}
	if !a.IsOwnedBy(actor.UserID) {
		return nil, fail(span, domain.ErrUnauthorized)
	}

	prev := a.Status
	if err := a.SetStatus(status); err != nil {
		return nil, fail(span, err)
	}
	if err := repos.Appointments.UpdateStatus(ctx, a); err != nil {
		return nil, fail(span, fmt.Errorf("updating appointment status: %w", err))
	}

	c.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	c.audit.Record(ctx, actor, domain.ActionUpdate, "appointment", a.ID, map[string]any{
		"from": prev,
		"to":   a.Status,
	})
	c.log.Info("appointment status updated",
		zap.String("appointment_id", a.ID.String()),
		zap.String("from", string(prev)),
		zap.String("to", string(a.Status)),
	)

	if prev != a.Status {
		c.notifyAppointment(ctx, actor, a)
	}
	return a, nil
}

func (c *Coordinator) notifyAppointment(ctx context.Context, doctor domain.Actor, a *appointment.Appointment) {
	data := map[string]string{
		"type":           "appointment",
		"appointment_id": a.ID.String(),
		"status":         string(a.Status),
	}

	switch a.Status {
	case appointment.StatusAccepted:
		c.notify(ctx, notification.Notification{
			UserID: a.PatientID,
			Title:  notification.TitleAppointmentConfirmed,
			Body:   notification.AppointmentConfirmedBody(doctor.Name, a.AppointmentDate.Format("02 Jan 2006"), a.AppointmentTime),
			Data:   data,
		})
	case appointment.StatusRejected:
		c.notify(ctx, notification.Notification{
			UserID: a.PatientID,
			Title:  notification.TitleAppointmentDeclined,
			Body:   notification.AppointmentDeclinedBody(doctor.Name),
			Data:   data,
		})
	}
}
