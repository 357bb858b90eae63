package pharmacy

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create returns ErrProfileExists if the owner already has a profile.
	Create(ctx context.Context, p *Pharmacy) error
	GetByID(ctx context.Context, id uuid.UUID) (*Pharmacy, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*Pharmacy, error)
	Update(ctx context.Context, p *Pharmacy) error
	List(ctx context.Context) ([]*Pharmacy, error)
}
