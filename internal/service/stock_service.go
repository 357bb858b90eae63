package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/pharmacy"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/stock"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type StockService struct {
	repos    store.Repositories
	auditSvc *AuditService
	log      *zap.Logger
}

func NewStockService(repos store.Repositories, auditSvc *AuditService, log *zap.Logger) *StockService {
	return &StockService{repos: repos, auditSvc: auditSvc, log: log}
}

func (s *StockService) AddItem(ctx context.Context, actor domain.Actor, cmd stock.AddItemCommand) (*stock.Item, error) {
	profile, err := s.ownProfile(ctx, actor)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(cmd.MedicineName)
	var problems domain.Problems
	problems.Add(name == "", "medicineName is required")
	problems.Add(cmd.Quantity < 0, "quantity must not be negative")
	problems.Add(cmd.Price < 0, "price must not be negative")
	if err := problems.Err(); err != nil {
		return nil, err
	}

	item := &stock.Item{
		PharmacyID:   profile.ID,
		MedicineName: name,
		Quantity:     cmd.Quantity,
		Price:        cmd.Price,
		ExpiryDate:   cmd.ExpiryDate,
	}
	if err := s.repos.Stock.Create(ctx, item); err != nil {
		if errors.Is(err, stock.ErrItemExists) {
			return nil, err
		}
		return nil, fmt.Errorf("adding stock item: %w", err)
	}

	s.auditSvc.Record(ctx, actor, domain.ActionCreate, "stock_item", item.ID, map[string]any{
		"medicine_name": item.MedicineName,
		"quantity":      item.Quantity,
	})
	return item, nil
}

// UpdateItem writes only the fields present in cmd. Quantity is never
// rewritten from the loaded row, so it cannot undo a concurrent dispense.
func (s *StockService) UpdateItem(ctx context.Context, actor domain.Actor, id uuid.UUID, cmd stock.UpdateItemCommand) (*stock.Item, error) {
	if _, err := s.ownedItem(ctx, actor, id); err != nil {
		return nil, err
	}

	var problems domain.Problems
	problems.Add(cmd.MedicineName != nil && strings.TrimSpace(*cmd.MedicineName) == "", "medicineName must not be empty")
	problems.Add(cmd.Quantity != nil && *cmd.Quantity < 0, "quantity must not be negative")
	problems.Add(cmd.Price != nil && *cmd.Price < 0, "price must not be negative")
	if err := problems.Err(); err != nil {
		return nil, err
	}

	item, err := s.repos.Stock.Update(ctx, id, cmd)
	if err != nil {
		if errors.Is(err, stock.ErrItemExists) || errors.Is(err, stock.ErrItemNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("updating stock item: %w", err)
	}

	s.auditSvc.Record(ctx, actor, domain.ActionUpdate, "stock_item", item.ID, cmd.Columns())
	return item, nil
}

func (s *StockService) DeleteItem(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	item, err := s.ownedItem(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repos.Stock.Delete(ctx, item.ID); err != nil {
		return err
	}
	s.auditSvc.Record(ctx, actor, domain.ActionDelete, "stock_item", item.ID, map[string]any{"medicine_name": item.MedicineName})
	return nil
}

// ListOwn returns the caller's inventory.
func (s *StockService) ListOwn(ctx context.Context, actor domain.Actor) ([]*stock.Item, error) {
	profile, err := s.ownProfile(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.repos.Stock.ListByPharmacy(ctx, profile.ID)
}

// ListForPharmacy lets a doctor check a pharmacy's shelf before prescribing.
func (s *StockService) ListForPharmacy(ctx context.Context, actor domain.Actor, pharmacyID uuid.UUID) ([]*stock.Item, error) {
	if actor.Role != domain.RoleDoctor {
		return nil, domain.ErrForbidden
	}
	if _, err := s.repos.Pharmacies.GetByID(ctx, pharmacyID); err != nil {
		return nil, err
	}
	return s.repos.Stock.ListByPharmacy(ctx, pharmacyID)
}

func (s *StockService) PharmacyStats(ctx context.Context, actor domain.Actor) (*stock.PharmacyStats, error) {
	profile, err := s.ownProfile(ctx, actor)
	if err != nil {
		return nil, err
	}

	pending := prescription.StatusPending
	var stats stock.PharmacyStats
	if stats.TotalMedicines, err = s.repos.Stock.CountByPharmacy(ctx, profile.ID, false); err != nil {
		return nil, fmt.Errorf("counting stock: %w", err)
	}
	if stats.OutOfStock, err = s.repos.Stock.CountByPharmacy(ctx, profile.ID, true); err != nil {
		return nil, fmt.Errorf("counting out of stock: %w", err)
	}
	if stats.PendingPrescriptions, err = s.repos.Prescriptions.Count(ctx, &prescription.ListPrescriptionsQuery{
		PharmacyID: &profile.ID,
		Status:     &pending,
	}); err != nil {
		return nil, fmt.Errorf("counting pending prescriptions: %w", err)
	}
	return &stats, nil
}

func (s *StockService) ownProfile(ctx context.Context, actor domain.Actor) (*pharmacy.Pharmacy, error) {
	if actor.Role != domain.RolePharmacy {
		return nil, domain.ErrForbidden
	}
	return s.repos.Pharmacies.GetByOwner(ctx, actor.UserID)
}

func (s *StockService) ownedItem(ctx context.Context, actor domain.Actor, id uuid.UUID) (*stock.Item, error) {
	profile, err := s.ownProfile(ctx, actor)
	if err != nil {
		return nil, err
	}
	item, err := s.repos.Stock.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.PharmacyID != profile.ID {
		return nil, domain.ErrUnauthorized
	}
	return item, nil
}
