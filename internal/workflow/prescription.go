package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/pharmacy"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/stock"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/notification"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/store"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/pkg/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// IssuePrescription creates the prescription for a consultation and marks
// the appointment completed in the same transaction.
//
// Checks run in this order: request shape, an existing prescription for the
// appointment, the appointment itself, then ownership.
func (c *Coordinator) IssuePrescription(ctx context.Context, actor domain.Actor, cmd prescription.CreatePrescriptionCommand) (*prescription.Prescription, error) {
	ctx, span := c.tracer.Start(ctx, "workflow.IssuePrescription", trace.WithAttributes(
		attribute.String("appointment.id", cmd.AppointmentID.String()),
		attribute.Int("prescription.lines", len(cmd.Medicines)),
	))
	defer span.End()

	if actor.Role != domain.RoleDoctor {
		return nil, fail(span, domain.ErrForbidden)
	}
	if err := validateIssue(&cmd); err != nil {
		return nil, fail(span, err)
	}

	repos := c.store.Repos()
	exists, err := repos.Prescriptions.ExistsForAppointment(ctx, cmd.AppointmentID)
	if err != nil {
		return nil, fail(span, fmt.Errorf("checking existing prescription: %w", err))
	}
	if exists {
		return nil, fail(span, prescription.ErrPrescriptionExists)
	}

	a, err := repos.Appointments.GetByID(ctx, cmd.AppointmentID)
	if err != nil {
		return nil, fail(span, err)
	}
	if !a.IsOwnedBy(actor.UserID) {
		return nil, fail(span, domain.ErrUnauthorized)
	}
	if a.PatientID != cmd.PatientID {
		return nil, fail(span, &domain.ValidationError{Fields: []string{"patientId does not match the appointment"}})
	}
	if _, err := repos.Pharmacies.GetByID(ctx, cmd.PharmacyID); err != nil {
		return nil, fail(span, err)
	}

	p := &prescription.Prescription{
		AppointmentID: cmd.AppointmentID,
		PatientID:     cmd.PatientID,
		DoctorID:      actor.UserID,
		PharmacyID:    cmd.PharmacyID,
		Medicines:     normalizeMedicines(cmd.Medicines),
		Notes:         strings.TrimSpace(cmd.Notes),
		Status:        prescription.StatusPending,
	}

	err = c.store.WithinTx(ctx, func(ctx context.Context, r store.Repositories) error {
		if err := r.Prescriptions.Create(ctx, p); err != nil {
			return err
		}
		appt, err := r.Appointments.GetByID(ctx, cmd.AppointmentID)
		if err != nil {
			return err
		}
		appt.Complete(c.now())
		if err := r.Appointments.UpdateStatus(ctx, appt); err != nil {
			return fmt.Errorf("completing appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fail(span, err)
	}

	c.metrics.PrescriptionsIssued.Inc()
	c.metrics.AppointmentsTotal.WithLabelValues("completed").Inc()
	c.audit.Record(ctx, actor, domain.ActionCreate, "prescription", p.ID, map[string]any{
		"appointment_id": p.AppointmentID,
		"pharmacy_id":    p.PharmacyID,
		"lines":          len(p.Medicines),
	})
	c.log.Info("prescription issued",
		zap.String("prescription_id", p.ID.String()),
		zap.String("appointment_id", p.AppointmentID.String()),
	)

	return p, nil
}

func validateIssue(cmd *prescription.CreatePrescriptionCommand) error {
	var problems domain.Problems
	problems.Add(cmd.AppointmentID == uuid.Nil, "appointmentId is required")
	problems.Add(cmd.PatientID == uuid.Nil, "patientId is required")
	problems.Add(cmd.PharmacyID == uuid.Nil, "pharmacyId is required")
	problems.Add(len(cmd.Medicines) == 0, "medicines must not be empty")
	for i, m := range cmd.Medicines {
		problems.Add(strings.TrimSpace(m.Name) == "", fmt.Sprintf("medicines[%d].name is required", i))
		problems.Add(strings.TrimSpace(m.Dosage) == "", fmt.Sprintf("medicines[%d].dosage is required", i))
		problems.Add(strings.TrimSpace(m.Duration) == "", fmt.Sprintf("medicines[%d].duration is required", i))
		problems.Add(m.Quantity < 0, fmt.Sprintf("medicines[%d].quantity must not be negative", i))
	}
	return problems.Err()
}

func normalizeMedicines(in []prescription.Medicine) []prescription.Medicine {
	out := make([]prescription.Medicine, len(in))
	for i, m := range in {
		out[i] = prescription.Medicine{
			Name:     strings.TrimSpace(m.Name),
			Dosage:   strings.TrimSpace(m.Dosage),
			Duration: strings.TrimSpace(m.Duration),
			Quantity: m.DispenseQuantity(),
		}
	}
	return out
}

// UpdatePrescriptionStatus applies a pharmacy's status write. The first move
// into dispensed deducts every line from stock while the prescription row is
// locked, so concurrent dispenses cannot both deduct.
func (c *Coordinator) UpdatePrescriptionStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, cmd prescription.UpdateStatusCommand) (*prescription.Prescription, error) {
	ctx, span := c.tracer.Start(ctx, "workflow.UpdatePrescriptionStatus", trace.WithAttributes(
		attribute.String("prescription.id", id.String()),
		attribute.String("prescription.status", string(cmd.Status)),
	))
	defer span.End()

	if actor.Role != domain.RolePharmacy {
		return nil, fail(span, domain.ErrForbidden)
	}
	if !cmd.Status.IsValid() {
		return nil, fail(span, prescription.ErrInvalidStatus)
	}

	profile, err := c.store.Repos().Pharmacies.GetByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, fail(span, err)
	}

	var (
		updated    *prescription.Prescription
		transition prescription.Transition
		deductions []stock.Deduction
	)
	err = c.store.WithinTx(ctx, func(ctx context.Context, r store.Repositories) error {
		p, err := r.Prescriptions.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.PharmacyID != profile.ID {
			return domain.ErrUnauthorized
		}

		t, err := p.ApplyStatus(cmd.Status, cmd.PharmacyNotes, c.now())
		if err != nil {
			return err
		}
		if err := r.Prescriptions.UpdateStatus(ctx, p); err != nil {
			return fmt.Errorf("updating prescription status: %w", err)
		}

		if t.EntersDispensed() {
			for _, m := range p.Medicines {
				d, err := r.Stock.Deduct(ctx, p.PharmacyID, m.Name, m.DispenseQuantity())
				if err != nil {
					return fmt.Errorf("deducting %q: %w", m.Name, err)
				}
				deductions = append(deductions, d)
			}
		}

		updated, transition = p, t
		return nil
	})
	if err != nil {
		return nil, fail(span, err)
	}

	span.SetAttributes(attribute.Int("stock.deductions", len(deductions)))
	c.recordDeductions(updated, deductions)
	c.audit.Record(ctx, actor, domain.ActionUpdate, "prescription", updated.ID, map[string]any{
		"from": transition.From,
		"to":   transition.To,
	})

	if transition.Changed() {
		c.metrics.PrescriptionStatus.WithLabelValues(string(transition.To)).Inc()
		c.log.Info("prescription status updated",
			zap.String("prescription_id", updated.ID.String()),
			zap.String("from", string(transition.From)),
			zap.String("to", string(transition.To)),
		)
		c.notifyPrescription(ctx, updated, profile, transition)
	}

	return updated, nil
}

func (c *Coordinator) recordDeductions(p *prescription.Prescription, deductions []stock.Deduction) {
	for _, d := range deductions {
		switch {
		case !d.Tracked:
			c.metrics.StockDeductionsTotal.WithLabelValues(metrics.DeductionUntracked).Inc()
			c.log.Info("dispensed medicine not tracked in stock",
				zap.String("prescription_id", p.ID.String()),
				zap.String("medicine", d.MedicineName),
			)
		case d.Clamped():
			c.metrics.StockDeductionsTotal.WithLabelValues(metrics.DeductionClamped).Inc()
			c.log.Warn("stock ran short while dispensing",
				zap.String("prescription_id", p.ID.String()),
				zap.String("medicine", d.MedicineName),
				zap.Int("requested", d.Requested),
				zap.Int("on_hand", d.Before),
			)
		default:
			c.metrics.StockDeductionsTotal.WithLabelValues(metrics.DeductionApplied).Inc()
		}
	}
}

func (c *Coordinator) notifyPrescription(ctx context.Context, p *prescription.Prescription, profile *pharmacy.Pharmacy, t prescription.Transition) {
	data := map[string]string{
		"type":            "prescription",
		"prescription_id": p.ID.String(),
		"status":          string(t.To),
	}

	switch t.To {
	case prescription.StatusReadyForPickup:
		c.notify(ctx, notification.Notification{
			UserID: p.PatientID,
			Title:  notification.TitleMedicinesReady,
			Body:   notification.MedicinesReadyBody(profile.Name),
			Data:   data,
		})
	case prescription.StatusDispensed:
		c.notify(ctx, notification.Notification{
			UserID: p.PatientID,
			Title:  notification.TitleMedicinesDispensed,
			Body:   notification.BodyMedicinesDispensed,
			Data:   data,
		})
	}
}
