package stock

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create sets MedicineKey from MedicineName and returns ErrItemExists
	// when the key is already taken in the pharmacy.
	Create(ctx context.Context, i *Item) error

	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)

	// FindByName matches NormalizeName(name) against MedicineKey within a
	// pharmacy. Returns ErrItemNotFound when nothing matches.
	FindByName(ctx context.Context, pharmacyID uuid.UUID, name string) (*Item, error)

	// Update writes only the fields present in cmd and returns the stored
	// item, so a concurrent Deduct is never overwritten by a stale read.
	Update(ctx context.Context, id uuid.UUID, cmd UpdateItemCommand) (*Item, error)

	Delete(ctx context.Context, id uuid.UUID) error
	ListByPharmacy(ctx context.Context, pharmacyID uuid.UUID) ([]*Item, error)
	CountByPharmacy(ctx context.Context, pharmacyID uuid.UUID, outOfStockOnly bool) (int64, error)

	// Deduct atomically sets quantity = max(0, quantity - amount) on the
	// matching item. A missing item yields Tracked=false and no error.
	Deduct(ctx context.Context, pharmacyID uuid.UUID, name string, amount int) (Deduction, error)
}
