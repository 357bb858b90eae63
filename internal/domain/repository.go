package domain

import (
	"context"

	"github.com/google/uuid"
)

type UserRepository interface {
	// Create returns ErrUserExists when the subject or email is taken.
	Create(ctx context.Context, u *User) error

	// GetByID returns ErrUserNotFound if no user has the id.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetBySubject resolves the identity-provider subject carried in a token.
	GetBySubject(ctx context.Context, subject string) (*User, error)

	ListByRole(ctx context.Context, role Role) ([]*User, error)
	UpdatePresence(ctx context.Context, id uuid.UUID, presence PresenceStatus) error

	// UpdateDeviceToken replaces the push token; an empty token clears it.
	UpdateDeviceToken(ctx context.Context, id uuid.UUID, token string) error

	// UpdateProfile writes only the fields present in cmd and returns the
	// stored user.
	UpdateProfile(ctx context.Context, id uuid.UUID, cmd UpdateProfileCommand) (*User, error)
}

type AuditRepository interface {
	Create(ctx context.Context, entry *AuditLog) error
}
