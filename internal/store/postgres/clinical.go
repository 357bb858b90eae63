package postgres

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/prescription"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type appointmentRepo struct {
	db *gorm.DB
}

func (r *appointmentRepo) Create(ctx context.Context, a *appointment.Appointment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *appointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := r.db.WithContext(ctx).Scopes(notDeleted).First(&a, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, appointment.ErrAppointmentNotFound, nil)
	}
	return &a, nil
}

func (r *appointmentRepo) List(ctx context.Context, q *appointment.ListAppointmentsQuery) ([]*appointment.Appointment, error) {
	tx := r.db.WithContext(ctx).Model(&appointment.Appointment{}).Scopes(notDeleted)
	if q.PatientID != nil {
		tx = tx.Where("patient_id = ?", *q.PatientID)
	}
	if q.DoctorID != nil {
		tx = tx.Where("doctor_id = ?", *q.DoctorID)
	}
	tx = filterAppointments(tx, q.Status, q.DateFrom, q.DateTo)

	var out []*appointment.Appointment
	err := tx.Order("created_at DESC, id").Find(&out).Error
	return out, err
}

func (r *appointmentRepo) UpdateStatus(ctx context.Context, a *appointment.Appointment) error {
	res := r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Scopes(notDeleted).
		Where("id = ?", a.ID).
		Updates(map[string]any{
			"status":       a.Status,
			"completed_at": a.CompletedAt,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}

func (r *appointmentRepo) CountByDoctor(ctx context.Context, doctorID uuid.UUID, status *appointment.AppointmentStatus, from, to *time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Scopes(notDeleted).
		Where("doctor_id = ?", doctorID)
	tx = filterAppointments(tx, status, from, to)

	var n int64
	err := tx.Count(&n).Error
	return n, err
}

func filterAppointments(tx *gorm.DB, status *appointment.AppointmentStatus, from, to *time.Time) *gorm.DB {
	if status != nil {
		tx = tx.Where("status = ?", *status)
	}
	if from != nil {
		tx = tx.Where("appointment_date >= ?", *from)
	}
	if to != nil {
		tx = tx.Where("appointment_date < ?", *to)
	}
	return tx
}

type prescriptionRepo struct {
	db *gorm.DB
}

func (r *prescriptionRepo) Create(ctx context.Context, p *prescription.Prescription) error {
	err := r.db.WithContext(ctx).Create(p).Error
	return translate(err, nil, prescription.ErrPrescriptionExists)
}

func (r *prescriptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *prescriptionRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *prescriptionRepo) get(tx *gorm.DB, id uuid.UUID) (*prescription.Prescription, error) {
	var p prescription.Prescription
	if err := tx.Scopes(notDeleted).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err, prescription.ErrPrescriptionNotFound, nil)
	}
	return &p, nil
}

func (r *prescriptionRepo) ExistsForAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&prescription.Prescription{}).
		Scopes(notDeleted).
		Where("appointment_id = ?", appointmentID).
		Count(&n).Error
	return n > 0, err
}

func (r *prescriptionRepo) UpdateStatus(ctx context.Context, p *prescription.Prescription) error {
	res := r.db.WithContext(ctx).
		Model(&prescription.Prescription{}).
		Scopes(notDeleted).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"status":         p.Status,
			"pharmacy_notes": p.PharmacyNotes,
			"dispensed_at":   p.DispensedAt,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return prescription.ErrPrescriptionNotFound
	}
	return nil
}

func (r *prescriptionRepo) List(ctx context.Context, q *prescription.ListPrescriptionsQuery) ([]*prescription.Prescription, error) {
	var out []*prescription.Prescription
	err := r.filter(ctx, q).Order("created_at DESC, id").Find(&out).Error
	return out, err
}

func (r *prescriptionRepo) Count(ctx context.Context, q *prescription.ListPrescriptionsQuery) (int64, error) {
	var n int64
	err := r.filter(ctx, q).Count(&n).Error
	return n, err
}

func (r *prescriptionRepo) filter(ctx context.Context, q *prescription.ListPrescriptionsQuery) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&prescription.Prescription{}).Scopes(notDeleted)
	if q.PatientID != nil {
		tx = tx.Where("patient_id = ?", *q.PatientID)
	}
	if q.DoctorID != nil {
		tx = tx.Where("doctor_id = ?", *q.DoctorID)
	}
	if q.PharmacyID != nil {
		tx = tx.Where("pharmacy_id = ?", *q.PharmacyID)
	}
	if q.Status != nil {
		tx = tx.Where("status = ?", *q.Status)
	}
	return tx
}
