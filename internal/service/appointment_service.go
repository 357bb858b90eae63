package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/store"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/workflow"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AppointmentService struct {
	repos    store.Repositories
	workflow *workflow.Coordinator
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger
	now      func() time.Time
}

func NewAppointmentService(
	repos store.Repositories,
	wf *workflow.Coordinator,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
) *AppointmentService {
	return &AppointmentService{
		repos:    repos,
		workflow: wf,
		auditSvc: auditSvc,
		metrics:  m,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Book creates a pending appointment for the calling patient.
func (s *AppointmentService) Book(ctx context.Context, actor domain.Actor, cmd *appointment.CreateAppointmentCommand) (*appointment.Appointment, error) {
	if actor.Role != domain.RolePatient {
		return nil, domain.ErrForbidden
	}

	var problems domain.Problems
	problems.Add(cmd.DoctorID == uuid.Nil, "doctorId is required")
	problems.Add(cmd.AppointmentDate.IsZero(), "appointmentDate is required")
	problems.Add(strings.TrimSpace(cmd.AppointmentTime) == "", "appointmentTime is required")
	problems.Add(strings.TrimSpace(cmd.Reason) == "", "reason is required")
	if err := problems.Err(); err != nil {
		return nil, err
	}

	doctor, err := s.repos.Users.GetByID(ctx, cmd.DoctorID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrDoctorNotFound
		}
		return nil, fmt.Errorf("verifying doctor: %w", err)
	}
	if doctor.Role != domain.RoleDoctor {
		return nil, domain.ErrDoctorNotFound
	}

	a := &appointment.Appointment{
		PatientID:       actor.UserID,
		DoctorID:        doctor.ID,
		AppointmentDate: cmd.AppointmentDate,
		AppointmentTime: strings.TrimSpace(cmd.AppointmentTime),
		Reason:          strings.TrimSpace(cmd.Reason),
		Status:          appointment.StatusPending,
	}
	if err := s.repos.Appointments.Create(ctx, a); err != nil {
		s.log.Error("failed to create appointment", zap.Error(err))
		return nil, fmt.Errorf("creating appointment: %w", err)
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	s.auditSvc.Record(ctx, actor, domain.ActionCreate, "appointment", a.ID, map[string]any{"doctor_id": a.DoctorID})

	return a, nil
}

// SetStatus is the doctor's accept / reject / cancel write.
func (s *AppointmentService) SetStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, status appointment.AppointmentStatus) (*appointment.Appointment, error) {
	return s.workflow.DecideAppointment(ctx, actor, id, status)
}

func (s *AppointmentService) ListForPatient(ctx context.Context, actor domain.Actor) ([]*AppointmentDetail, error) {
	if actor.Role != domain.RolePatient {
		return nil, domain.ErrForbidden
	}
	items, err := s.repos.Appointments.List(ctx, &appointment.ListAppointmentsQuery{PatientID: &actor.UserID})
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}
	return s.populate(ctx, items, false, true)
}

func (s *AppointmentService) ListForDoctor(ctx context.Context, actor domain.Actor, status *appointment.AppointmentStatus) ([]*AppointmentDetail, error) {
	if actor.Role != domain.RoleDoctor {
		return nil, domain.ErrForbidden
	}
	if status != nil && !status.IsValid() {
		return nil, appointment.ErrInvalidStatus
	}
	items, err := s.repos.Appointments.List(ctx, &appointment.ListAppointmentsQuery{DoctorID: &actor.UserID, Status: status})
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}
	return s.populate(ctx, items, true, false)
}

// AcceptedPatients lists the doctor's accepted appointments with patient
// details, the doctor's work queue for prescribing.
func (s *AppointmentService) AcceptedPatients(ctx context.Context, actor domain.Actor) ([]*AppointmentDetail, error) {
	accepted := appointment.StatusAccepted
	return s.ListForDoctor(ctx, actor, &accepted)
}

func (s *AppointmentService) DoctorStats(ctx context.Context, actor domain.Actor) (*appointment.DoctorStats, error) {
	if actor.Role != domain.RoleDoctor {
		return nil, domain.ErrForbidden
	}

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)
	pending := appointment.StatusPending
	accepted := appointment.StatusAccepted

	var (
		stats appointment.DoctorStats
		err   error
	)
	if stats.TodaysAppointments, err = s.repos.Appointments.CountByDoctor(ctx, actor.UserID, nil, &dayStart, &dayEnd); err != nil {
		return nil, fmt.Errorf("counting today's appointments: %w", err)
	}
	if stats.PendingRequests, err = s.repos.Appointments.CountByDoctor(ctx, actor.UserID, &pending, nil, nil); err != nil {
		return nil, fmt.Errorf("counting pending requests: %w", err)
	}
	if stats.AcceptedAppointments, err = s.repos.Appointments.CountByDoctor(ctx, actor.UserID, &accepted, nil, nil); err != nil {
		return nil, fmt.Errorf("counting accepted appointments: %w", err)
	}
	return &stats, nil
}

func (s *AppointmentService) populate(ctx context.Context, items []*appointment.Appointment, withPatient, withDoctor bool) ([]*AppointmentDetail, error) {
	users := newUserCache(s.repos.Users)
	out := make([]*AppointmentDetail, 0, len(items))
	for _, a := range items {
		d := &AppointmentDetail{Appointment: a}
		if withPatient {
			u, err := users.get(ctx, a.PatientID)
			if err != nil {
				return nil, err
			}
			d.Patient = summarize(u)
		}
		if withDoctor {
			u, err := users.get(ctx, a.DoctorID)
			if err != nil {
				return nil, err
			}
			d.Doctor = summarize(u)
		}
		out = append(out, d)
	}
	return out, nil
}
