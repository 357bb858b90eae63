package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/pharmacy"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/stock"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/store"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PrescriptionService struct {
	repos    store.Repositories
	workflow *workflow.Coordinator
	log      *zap.Logger
}

func NewPrescriptionService(repos store.Repositories, wf *workflow.Coordinator, log *zap.Logger) *PrescriptionService {
	return &PrescriptionService{repos: repos, workflow: wf, log: log}
}

func (s *PrescriptionService) Create(ctx context.Context, actor domain.Actor, cmd prescription.CreatePrescriptionCommand) (*prescription.Prescription, error) {
	return s.workflow.IssuePrescription(ctx, actor, cmd)
}

func (s *PrescriptionService) UpdateStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, cmd prescription.UpdateStatusCommand) (*prescription.Prescription, error) {
	return s.workflow.UpdatePrescriptionStatus(ctx, actor, id, cmd)
}

// ListForPatient returns the caller's prescriptions with each medicine line
// marked available when the prescription's pharmacy has it on the shelf.
func (s *PrescriptionService) ListForPatient(ctx context.Context, actor domain.Actor) ([]*PrescriptionDetail, error) {
	if actor.Role != domain.RolePatient {
		return nil, domain.ErrForbidden
	}
	items, err := s.repos.Prescriptions.List(ctx, &prescription.ListPrescriptionsQuery{PatientID: &actor.UserID})
	if err != nil {
		return nil, fmt.Errorf("listing prescriptions: %w", err)
	}

	shelves := newShelfCache(s.repos)
	pharmacies := make(map[uuid.UUID]*pharmacy.Summary)
	users := newUserCache(s.repos.Users)

	out := make([]*PrescriptionDetail, 0, len(items))
	for _, p := range items {
		view, err := shelves.annotate(ctx, p)
		if err != nil {
			return nil, err
		}
		doctor, err := users.get(ctx, p.DoctorID)
		if err != nil {
			return nil, err
		}
		ph, ok := pharmacies[p.PharmacyID]
		if !ok {
			ph, err = s.pharmacySummary(ctx, p.PharmacyID)
			if err != nil {
				return nil, err
			}
			pharmacies[p.PharmacyID] = ph
		}
		out = append(out, &PrescriptionDetail{View: view, Doctor: summarize(doctor), Pharmacy: ph})
	}
	return out, nil
}

// Incoming lists prescriptions routed to the caller's pharmacy.
func (s *PrescriptionService) Incoming(ctx context.Context, actor domain.Actor, status *prescription.PrescriptionStatus) ([]*PrescriptionDetail, error) {
	if actor.Role != domain.RolePharmacy {
		return nil, domain.ErrForbidden
	}
	if status != nil && !status.IsValid() {
		return nil, prescription.ErrInvalidStatus
	}
	profile, err := s.repos.Pharmacies.GetByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	items, err := s.repos.Prescriptions.List(ctx, &prescription.ListPrescriptionsQuery{PharmacyID: &profile.ID, Status: status})
	if err != nil {
		return nil, fmt.Errorf("listing prescriptions: %w", err)
	}

	shelves := newShelfCache(s.repos)
	users := newUserCache(s.repos.Users)
	out := make([]*PrescriptionDetail, 0, len(items))
	for _, p := range items {
		view, err := shelves.annotate(ctx, p)
		if err != nil {
			return nil, err
		}
		patient, err := users.get(ctx, p.PatientID)
		if err != nil {
			return nil, err
		}
		doctor, err := users.get(ctx, p.DoctorID)
		if err != nil {
			return nil, err
		}
		out = append(out, &PrescriptionDetail{View: view, Patient: summarize(patient), Doctor: summarize(doctor)})
	}
	return out, nil
}

// Document assembles the rendering input for one of the caller's
// prescriptions.
func (s *PrescriptionService) Document(ctx context.Context, actor domain.Actor, id uuid.UUID) (*PrescriptionDocument, error) {
	if actor.Role != domain.RolePatient {
		return nil, domain.ErrForbidden
	}
	p, err := s.repos.Prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.PatientID != actor.UserID {
		return nil, domain.ErrUnauthorized
	}

	view, err := newShelfCache(s.repos).annotate(ctx, p)
	if err != nil {
		return nil, err
	}
	users := newUserCache(s.repos.Users)
	patient, err := users.get(ctx, p.PatientID)
	if err != nil {
		return nil, err
	}
	doctor, err := users.get(ctx, p.DoctorID)
	if err != nil {
		return nil, err
	}
	profile, err := s.repos.Pharmacies.GetByID(ctx, p.PharmacyID)
	if err != nil && !errors.Is(err, pharmacy.ErrProfileNotFound) {
		return nil, err
	}

	return &PrescriptionDocument{
		Prescription: view,
		Patient:      summarize(patient),
		Doctor:       summarize(doctor),
		Pharmacy:     profile,
	}, nil
}

func (s *PrescriptionService) pharmacySummary(ctx context.Context, id uuid.UUID) (*pharmacy.Summary, error) {
	p, err := s.repos.Pharmacies.GetByID(ctx, id)
	if errors.Is(err, pharmacy.ErrProfileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pharmacy.Summary{ID: p.ID, Name: p.Name}, nil
}

// shelfCache loads each pharmacy's in-stock names once per request.
type shelfCache struct {
	repos   store.Repositories
	inStock map[uuid.UUID]map[string]bool
}

func newShelfCache(repos store.Repositories) *shelfCache {
	return &shelfCache{repos: repos, inStock: make(map[uuid.UUID]map[string]bool)}
}

func (c *shelfCache) annotate(ctx context.Context, p *prescription.Prescription) (*prescription.View, error) {
	shelf, ok := c.inStock[p.PharmacyID]
	if !ok {
		items, err := c.repos.Stock.ListByPharmacy(ctx, p.PharmacyID)
		if err != nil {
			return nil, fmt.Errorf("loading stock: %w", err)
		}
		shelf = make(map[string]bool, len(items))
		for _, it := range items {
			if it.InStock() {
				shelf[it.MedicineKey] = true
			}
		}
		c.inStock[p.PharmacyID] = shelf
	}

	view := &prescription.View{Prescription: p, Medicines: make([]prescription.MedicineView, len(p.Medicines))}
	for i, m := range p.Medicines {
		view.Medicines[i] = prescription.MedicineView{Medicine: m, IsAvailable: shelf[stock.NormalizeName(m.Name)]}
	}
	return view, nil
}
