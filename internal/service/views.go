package service

import (
	"context"
	"errors"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/pharmacy"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/prescription"
	"github.com/google/uuid"
)

// UserSummary is the public part of a user attached to list responses.
type UserSummary struct {
	ID             uuid.UUID             `json:"id"`
	Name           string                `json:"name"`
	Email          string                `json:"email,omitempty"`
	Phone          string                `json:"phone,omitempty"`
	Specialization string                `json:"specialization,omitempty"`
	Presence       domain.PresenceStatus `json:"presence,omitempty"`
}

func summarize(u *domain.User) *UserSummary {
	if u == nil {
		return nil
	}
	s := &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
	if u.Role == domain.RoleDoctor {
		s.Specialization = u.Specialization
		s.Presence = u.Presence
	}
	return s
}

// DoctorProfile is a doctor's own profile with the pharmacies they send
// prescriptions to.
type DoctorProfile struct {
	*domain.User
	Pharmacies []pharmacy.Summary `json:"pharmacies"`
}

type AppointmentDetail struct {
	*appointment.Appointment
	Patient *UserSummary `json:"patient,omitempty"`
	Doctor  *UserSummary `json:"doctor,omitempty"`
}

// PrescriptionDocument is everything an external renderer needs to lay out
// a prescription.
type PrescriptionDocument struct {
	Prescription *prescription.View `json:"prescription"`
	Patient      *UserSummary       `json:"patient"`
	Doctor       *UserSummary       `json:"doctor"`
	Pharmacy     *pharmacy.Pharmacy `json:"pharmacy"`
}

type PrescriptionDetail struct {
	*prescription.View
	Patient  *UserSummary      `json:"patient,omitempty"`
	Doctor   *UserSummary      `json:"doctor,omitempty"`
	Pharmacy *pharmacy.Summary `json:"pharmacy,omitempty"`
}

// userCache avoids refetching the same user while populating a list.
type userCache struct {
	repo  domain.UserRepository
	users map[uuid.UUID]*domain.User
}

func newUserCache(repo domain.UserRepository) *userCache {
	return &userCache{repo: repo, users: make(map[uuid.UUID]*domain.User)}
}

// get returns nil for users that no longer resolve.
func (c *userCache) get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if u, ok := c.users[id]; ok {
		return u, nil
	}
	u, err := c.repo.GetByID(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	c.users[id] = u
	return u, nil
}
