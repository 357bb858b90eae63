package postgres

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepo struct {
	db *gorm.DB
}

func (r *userRepo) Create(ctx context.Context, u *domain.User) error {
	return translate(r.db.WithContext(ctx).Create(u).Error, nil, domain.ErrUserExists)
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Scopes(notDeleted).First(&u, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, domain.ErrUserNotFound, nil)
	}
	return &u, nil
}

func (r *userRepo) GetBySubject(ctx context.Context, subject string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Scopes(notDeleted).First(&u, "auth_subject = ?", subject).Error
	if err != nil {
		return nil, translate(err, domain.ErrUserNotFound, nil)
	}
	return &u, nil
}

func (r *userRepo) ListByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	var users []*domain.User
	err := r.db.WithContext(ctx).
		Scopes(notDeleted).
		Where("role = ?", role).
		Order("name ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepo) UpdatePresence(ctx context.Context, id uuid.UUID, presence domain.PresenceStatus) error {
	res := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Scopes(notDeleted).
		Where("id = ?", id).
		Update("presence", presence)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepo) UpdateDeviceToken(ctx context.Context, id uuid.UUID, token string) error {
	res := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Scopes(notDeleted).
		Where("id = ?", id).
		Update("device_token", token)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, id uuid.UUID, cmd domain.UpdateProfileCommand) (*domain.User, error) {
	if cmd.Empty() {
		return r.GetByID(ctx, id)
	}
	cols, err := cmd.Columns()
	if err != nil {
		return nil, err
	}

	res := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Scopes(notDeleted).
		Where("id = ?", id).
		Updates(cols)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

type auditRepo struct {
	db *gorm.DB
}

func (r *auditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
