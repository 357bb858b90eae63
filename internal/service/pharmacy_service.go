package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/pharmacy"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/store"
	"go.uber.org/zap"
)

type PharmacyService struct {
	repos    store.Repositories
	auditSvc *AuditService
	log      *zap.Logger
}

func NewPharmacyService(repos store.Repositories, auditSvc *AuditService, log *zap.Logger) *PharmacyService {
	return &PharmacyService{repos: repos, auditSvc: auditSvc, log: log}
}

func (s *PharmacyService) CreateProfile(ctx context.Context, actor domain.Actor, cmd pharmacy.CreatePharmacyCommand) (*pharmacy.Pharmacy, error) {
	if actor.Role != domain.RolePharmacy {
		return nil, domain.ErrForbidden
	}

	p := &pharmacy.Pharmacy{
		OwnerID:      actor.UserID,
		Name:         strings.TrimSpace(cmd.Name),
		Address:      strings.TrimSpace(cmd.Address),
		Phone:        strings.TrimSpace(cmd.Phone),
		WorkingHours: strings.TrimSpace(cmd.WorkingHours),
	}
	if err := validateProfile(p); err != nil {
		return nil, err
	}

	if err := s.repos.Pharmacies.Create(ctx, p); err != nil {
		if errors.Is(err, pharmacy.ErrProfileExists) {
			return nil, err
		}
		return nil, fmt.Errorf("creating pharmacy profile: %w", err)
	}

	s.auditSvc.Record(ctx, actor, domain.ActionCreate, "pharmacy", p.ID, map[string]any{"name": p.Name})
	return p, nil
}

func (s *PharmacyService) Profile(ctx context.Context, actor domain.Actor) (*pharmacy.Pharmacy, error) {
	if actor.Role != domain.RolePharmacy {
		return nil, domain.ErrForbidden
	}
	return s.repos.Pharmacies.GetByOwner(ctx, actor.UserID)
}

// HasProfile drives the onboarding redirect in the pharmacy app.
func (s *PharmacyService) HasProfile(ctx context.Context, actor domain.Actor) (bool, error) {
	_, err := s.Profile(ctx, actor)
	if errors.Is(err, pharmacy.ErrProfileNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *PharmacyService) UpdateProfile(ctx context.Context, actor domain.Actor, cmd pharmacy.UpdatePharmacyCommand) (*pharmacy.Pharmacy, error) {
	p, err := s.Profile(ctx, actor)
	if err != nil {
		return nil, err
	}

	cmd.Apply(p)
	p.Name = strings.TrimSpace(p.Name)
	p.Address = strings.TrimSpace(p.Address)
	p.Phone = strings.TrimSpace(p.Phone)
	if err := validateProfile(p); err != nil {
		return nil, err
	}

	if err := s.repos.Pharmacies.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("updating pharmacy profile: %w", err)
	}

	s.auditSvc.Record(ctx, actor, domain.ActionUpdate, "pharmacy", p.ID, map[string]any{"name": p.Name})
	return p, nil
}

// Directory lists every pharmacy a doctor can route a prescription to.
func (s *PharmacyService) Directory(ctx context.Context) ([]pharmacy.Summary, error) {
	all, err := s.repos.Pharmacies.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pharmacies: %w", err)
	}
	out := make([]pharmacy.Summary, 0, len(all))
	for _, p := range all {
		out = append(out, pharmacy.Summary{ID: p.ID, Name: p.Name})
	}
	return out, nil
}

func validateProfile(p *pharmacy.Pharmacy) error {
	var problems domain.Problems
	problems.Add(p.Name == "", "name is required")
	problems.Add(p.Address == "", "address is required")
	problems.Add(p.Phone == "", "phone is required")
	return problems.Err()
}
