package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/pharmacy"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService struct {
	repos    store.Repositories
	auditSvc *AuditService
	log      *zap.Logger
}

func NewUserService(repos store.Repositories, auditSvc *AuditService, log *zap.Logger) *UserService {
	return &UserService{repos: repos, auditSvc: auditSvc, log: log}
}

// Resolve maps a token subject onto the stored user.
func (s *UserService) Resolve(ctx context.Context, claims *domain.Claims) (*domain.User, error) {
	u, err := s.repos.Users.GetBySubject(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.repos.Users.GetByID(ctx, id)
}

// Doctors is the directory patients pick a doctor from.
func (s *UserService) Doctors(ctx context.Context) ([]*UserSummary, error) {
	doctors, err := s.repos.Users.ListByRole(ctx, domain.RoleDoctor)
	if err != nil {
		return nil, fmt.Errorf("listing doctors: %w", err)
	}
	out := make([]*UserSummary, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, summarize(d))
	}
	return out, nil
}

// SetPresence toggles a doctor between online and offline.
func (s *UserService) SetPresence(ctx context.Context, actor domain.Actor, presence domain.PresenceStatus) error {
	if actor.Role != domain.RoleDoctor {
		return domain.ErrForbidden
	}
	if !presence.IsValid() {
		return &domain.ValidationError{Fields: []string{"status must be online or offline"}}
	}
	if err := s.repos.Users.UpdatePresence(ctx, actor.UserID, presence); err != nil {
		return fmt.Errorf("updating presence: %w", err)
	}
	s.auditSvc.Record(ctx, actor, domain.ActionUpdate, "user", actor.UserID, map[string]any{"presence": presence})
	return nil
}

const maxDeviceTokenLen = 512

// Sync returns the user a verified token names, registering them on first
// login. created reports whether a row was inserted. An existing user only
// has their device token refreshed.
func (s *UserService) Sync(ctx context.Context, cmd domain.SyncUserCommand, ip string) (*domain.User, bool, error) {
	token := strings.TrimSpace(cmd.DeviceToken)
	if len(token) > maxDeviceTokenLen {
		return nil, false, &domain.ValidationError{Fields: []string{"deviceToken is too long"}}
	}

	u, err := s.repos.Users.GetBySubject(ctx, cmd.Subject)
	if err == nil {
		return s.refreshDeviceToken(ctx, u, token, ip)
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, false, fmt.Errorf("looking up subject: %w", err)
	}

	var problems domain.Problems
	problems.Add(strings.TrimSpace(cmd.Name) == "", "name is required for a new user")
	problems.Add(!cmd.Role.IsValid(), "role must be patient, doctor or pharmacy")
	problems.Add(strings.TrimSpace(cmd.Email) == "", "token carries no email")
	if err := problems.Err(); err != nil {
		return nil, false, err
	}

	u = &domain.User{
		AuthSubject: cmd.Subject,
		Email:       strings.TrimSpace(cmd.Email),
		Name:        strings.TrimSpace(cmd.Name),
		Role:        cmd.Role,
		DeviceToken: token,
	}
	if cmd.Role == domain.RoleDoctor {
		u.Specialization = strings.TrimSpace(cmd.Specialization)
	}
	if err := s.repos.Users.Create(ctx, u); err != nil {
		if !errors.Is(err, domain.ErrUserExists) {
			return nil, false, fmt.Errorf("registering user: %w", err)
		}
		// A concurrent first login for the same subject got there first.
		existing, getErr := s.repos.Users.GetBySubject(ctx, cmd.Subject)
		if getErr != nil {
			return nil, false, err
		}
		return s.refreshDeviceToken(ctx, existing, token, ip)
	}

	s.auditSvc.Record(ctx, u.Actor(ip), domain.ActionCreate, "user", u.ID, map[string]any{"role": u.Role})
	s.log.Info("user registered", zap.String("user_id", u.ID.String()), zap.String("role", string(u.Role)))
	return u, true, nil
}

func (s *UserService) refreshDeviceToken(ctx context.Context, u *domain.User, token, ip string) (*domain.User, bool, error) {
	if token == "" || token == u.DeviceToken {
		return u, false, nil
	}
	if err := s.repos.Users.UpdateDeviceToken(ctx, u.ID, token); err != nil {
		return nil, false, fmt.Errorf("updating device token: %w", err)
	}
	u.DeviceToken = token
	s.auditSvc.Record(ctx, u.Actor(ip), domain.ActionUpdate, "user", u.ID, map[string]any{"device_token": "updated"})
	return u, false, nil
}

// UpdateDeviceToken stores the push token notifications are sent to. An
// empty token clears it.
func (s *UserService) UpdateDeviceToken(ctx context.Context, actor domain.Actor, token string) error {
	token = strings.TrimSpace(token)
	if len(token) > maxDeviceTokenLen {
		return &domain.ValidationError{Fields: []string{"deviceToken is too long"}}
	}
	if err := s.repos.Users.UpdateDeviceToken(ctx, actor.UserID, token); err != nil {
		return fmt.Errorf("updating device token: %w", err)
	}

	change := "updated"
	if token == "" {
		change = "cleared"
	}
	s.auditSvc.Record(ctx, actor, domain.ActionUpdate, "user", actor.UserID, map[string]any{"device_token": change})
	return nil
}

func (s *UserService) DoctorProfile(ctx context.Context, actor domain.Actor) (*DoctorProfile, error) {
	if actor.Role != domain.RoleDoctor {
		return nil, domain.ErrForbidden
	}
	u, err := s.repos.Users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return s.doctorProfile(ctx, u)
}

// UpdateDoctorProfile changes name, phone, specialization and the linked
// pharmacies. Every linked pharmacy must exist.
func (s *UserService) UpdateDoctorProfile(ctx context.Context, actor domain.Actor, cmd domain.UpdateProfileCommand) (*DoctorProfile, error) {
	if actor.Role != domain.RoleDoctor {
		return nil, domain.ErrForbidden
	}

	var problems domain.Problems
	problems.Add(cmd.Address != nil || cmd.Gender != nil || cmd.BloodGroup != nil || cmd.DateOfBirth != nil,
		"only name, phone, specialization and linkedPharmacies can be changed")
	checkContact(&problems, &cmd)
	if cmd.LinkedPharmacies != nil {
		ids := uniqueIDs(*cmd.LinkedPharmacies)
		problems.Add(slices.Contains(ids, uuid.Nil), "linkedPharmacies must not contain empty ids")
		cmd.LinkedPharmacies = &ids
	}
	if err := problems.Err(); err != nil {
		return nil, err
	}

	if cmd.LinkedPharmacies != nil {
		for _, id := range *cmd.LinkedPharmacies {
			if _, err := s.repos.Pharmacies.GetByID(ctx, id); err != nil {
				return nil, err
			}
		}
	}

	u, err := s.updateProfile(ctx, actor, cmd)
	if err != nil {
		return nil, err
	}
	return s.doctorProfile(ctx, u)
}

// UpdatePatientProfile changes the patient's contact and health details.
func (s *UserService) UpdatePatientProfile(ctx context.Context, actor domain.Actor, cmd domain.UpdateProfileCommand) (*domain.User, error) {
	if actor.Role != domain.RolePatient {
		return nil, domain.ErrForbidden
	}

	var problems domain.Problems
	problems.Add(cmd.Specialization != nil || cmd.LinkedPharmacies != nil,
		"only name, phone, address, gender, bloodGroup and dateOfBirth can be changed")
	checkContact(&problems, &cmd)
	if cmd.BloodGroup != nil {
		g := strings.ToUpper(strings.TrimSpace(*cmd.BloodGroup))
		problems.Add(g != "" && !domain.ValidBloodGroup(g), "bloodGroup must be one of A+, A-, B+, B-, AB+, AB-, O+, O-")
		cmd.BloodGroup = &g
	}
	problems.Add(cmd.DateOfBirth != nil && cmd.DateOfBirth.After(time.Now()), "dateOfBirth must not be in the future")
	if err := problems.Err(); err != nil {
		return nil, err
	}

	return s.updateProfile(ctx, actor, cmd)
}

func (s *UserService) updateProfile(ctx context.Context, actor domain.Actor, cmd domain.UpdateProfileCommand) (*domain.User, error) {
	u, err := s.repos.Users.UpdateProfile(ctx, actor.UserID, cmd)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	if !cmd.Empty() {
		// Field names only; profile values are personal data.
		cols, _ := cmd.Columns()
		s.auditSvc.Record(ctx, actor, domain.ActionUpdate, "user", actor.UserID, map[string]any{
			"fields": slices.Sorted(maps.Keys(cols)),
		})
	}
	return u, nil
}

func (s *UserService) doctorProfile(ctx context.Context, u *domain.User) (*DoctorProfile, error) {
	out := &DoctorProfile{User: u, Pharmacies: make([]pharmacy.Summary, 0, len(u.LinkedPharmacies))}
	for _, id := range u.LinkedPharmacies {
		p, err := s.repos.Pharmacies.GetByID(ctx, id)
		if errors.Is(err, pharmacy.ErrProfileNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading linked pharmacy: %w", err)
		}
		out.Pharmacies = append(out.Pharmacies, pharmacy.Summary{ID: p.ID, Name: p.Name})
	}
	return out, nil
}

func checkContact(problems *domain.Problems, cmd *domain.UpdateProfileCommand) {
	problems.Add(cmd.Name != nil && strings.TrimSpace(*cmd.Name) == "", "name must not be empty")
	problems.Add(cmd.Phone != nil && len(strings.TrimSpace(*cmd.Phone)) > 20, "phone must be at most 20 characters")
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
