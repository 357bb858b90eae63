package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/pharmacy"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/stock"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/notification"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/store/memory"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/workflow"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/pkg/requestid"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type suite struct {
	store         *memory.Store
	audit         *AuditService
	users         *UserService
	appointments  *AppointmentService
	prescriptions *PrescriptionService
	stock         *StockService
	pharmacies    *PharmacyService

	patient  domain.Actor
	doctor   domain.Actor
	pharmUsr domain.Actor
}

func newSuite(t *testing.T) *suite {
	t.Helper()
	log := zaptest.NewLogger(t)
	m := metrics.NewCollector("test")
	st := memory.New()
	repos := st.Repos()

	audit := NewAuditService(repos.Audit, log, m)
	t.Cleanup(func() { audit.Shutdown(context.Background()) })

	wf := workflow.New(st, notification.Discard{}, audit, m, log)
	s := &suite{
		store:         st,
		audit:         audit,
		users:         NewUserService(repos, audit, log),
		appointments:  NewAppointmentService(repos, wf, audit, m, log),
		prescriptions: NewPrescriptionService(repos, wf, log),
		stock:         NewStockService(repos, audit, log),
		pharmacies:    NewPharmacyService(repos, audit, log),
	}
	s.patient = s.user(t, "asha", domain.RolePatient)
	s.doctor = s.user(t, "dr-rao", domain.RoleDoctor)
	s.pharmUsr = s.user(t, "citycare", domain.RolePharmacy)
	return s
}

func (s *suite) user(t *testing.T, name string, role domain.Role) domain.Actor {
	t.Helper()
	u := &domain.User{AuthSubject: "sub-" + name, Email: name + "@example.com", Name: name, Role: role}
	require.NoError(t, s.store.Repos().Users.Create(context.Background(), u))
	return u.Actor("10.0.0.1")
}

func (s *suite) profile(t *testing.T) *pharmacy.Pharmacy {
	t.Helper()
	p, err := s.pharmacies.CreateProfile(context.Background(), s.pharmUsr, pharmacy.CreatePharmacyCommand{
		Name: "CityCare", Address: "MG Road", Phone: "080-1234",
	})
	require.NoError(t, err)
	return p
}

func (s *suite) book(t *testing.T) *appointment.Appointment {
	t.Helper()
	a, err := s.appointments.Book(context.Background(), s.patient, &appointment.CreateAppointmentCommand{
		DoctorID:        s.doctor.UserID,
		AppointmentDate: time.Now().UTC(),
		AppointmentTime: "10:30 AM",
		Reason:          "fever",
	})
	require.NoError(t, err)
	return a
}

func TestBook(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	a := s.book(t)
	assert.Equal(t, appointment.StatusPending, a.Status)
	assert.Equal(t, s.patient.UserID, a.PatientID)

	t.Run("missing fields", func(t *testing.T) {
		_, err := s.appointments.Book(ctx, s.patient, &appointment.CreateAppointmentCommand{})
		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Len(t, vErr.Fields, 4)
	})

	t.Run("unknown doctor", func(t *testing.T) {
		_, err := s.appointments.Book(ctx, s.patient, &appointment.CreateAppointmentCommand{
			DoctorID: uuid.New(), AppointmentDate: time.Now(), AppointmentTime: "9 AM", Reason: "x",
		})
		assert.ErrorIs(t, err, domain.ErrDoctorNotFound)
	})

	t.Run("user who is not a doctor", func(t *testing.T) {
		_, err := s.appointments.Book(ctx, s.patient, &appointment.CreateAppointmentCommand{
			DoctorID: s.pharmUsr.UserID, AppointmentDate: time.Now(), AppointmentTime: "9 AM", Reason: "x",
		})
		assert.ErrorIs(t, err, domain.ErrDoctorNotFound)
	})

	t.Run("doctor cannot book", func(t *testing.T) {
		_, err := s.appointments.Book(ctx, s.doctor, &appointment.CreateAppointmentCommand{})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestAppointmentLists(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	a := s.book(t)
	_ = s.book(t)

	_, err := s.appointments.SetStatus(ctx, s.doctor, a.ID, appointment.StatusAccepted)
	require.NoError(t, err)

	mine, err := s.appointments.ListForPatient(ctx, s.patient)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.NotNil(t, mine[0].Doctor)
	assert.Equal(t, "dr-rao", mine[0].Doctor.Name)
	assert.Nil(t, mine[0].Patient)

	accepted, err := s.appointments.AcceptedPatients(ctx, s.doctor)
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, a.ID, accepted[0].ID)
	require.NotNil(t, accepted[0].Patient)
	assert.Equal(t, "asha", accepted[0].Patient.Name)

	bogus := appointment.AppointmentStatus("later")
	_, err = s.appointments.ListForDoctor(ctx, s.doctor, &bogus)
	assert.ErrorIs(t, err, appointment.ErrInvalidStatus)

	stats, err := s.appointments.DoctorStats(ctx, s.doctor)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TodaysAppointments)
	assert.Equal(t, int64(1), stats.PendingRequests)
	assert.Equal(t, int64(1), stats.AcceptedAppointments)
}

func TestPrescriptionsForPatient_MarkAvailability(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	profile := s.profile(t)

	_, err := s.stock.AddItem(ctx, s.pharmUsr, stock.AddItemCommand{MedicineName: "Paracetamol", Quantity: 5})
	require.NoError(t, err)
	_, err = s.stock.AddItem(ctx, s.pharmUsr, stock.AddItemCommand{MedicineName: "Ibuprofen", Quantity: 0})
	require.NoError(t, err)

	a := s.book(t)
	_, err = s.appointments.SetStatus(ctx, s.doctor, a.ID, appointment.StatusAccepted)
	require.NoError(t, err)

	p, err := s.prescriptions.Create(ctx, s.doctor, prescription.CreatePrescriptionCommand{
		AppointmentID: a.ID,
		PatientID:     s.patient.UserID,
		PharmacyID:    profile.ID,
		Medicines: []prescription.Medicine{
			{Name: "paracetamol", Dosage: "1 tablet", Duration: "3 days", Quantity: 2},
			{Name: "Ibuprofen", Dosage: "1 tablet", Duration: "3 days"},
			{Name: "Cetirizine", Dosage: "1 tablet", Duration: "3 days"},
		},
	})
	require.NoError(t, err)

	list, err := s.prescriptions.ListForPatient(ctx, s.patient)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got := list[0]
	assert.Equal(t, p.ID, got.ID)
	require.Len(t, got.Medicines, 3)
	assert.True(t, got.Medicines[0].IsAvailable)
	assert.False(t, got.Medicines[1].IsAvailable, "zero quantity is not available")
	assert.False(t, got.Medicines[2].IsAvailable, "untracked is not available")
	require.NotNil(t, got.Pharmacy)
	assert.Equal(t, "CityCare", got.Pharmacy.Name)

	incoming, err := s.prescriptions.Incoming(ctx, s.pharmUsr, nil)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "asha", incoming[0].Patient.Name)

	doc, err := s.prescriptions.Document(ctx, s.patient, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "dr-rao", doc.Doctor.Name)
	assert.Equal(t, profile.ID, doc.Pharmacy.ID)

	stranger := s.user(t, "ravi", domain.RolePatient)
	_, err = s.prescriptions.Document(ctx, stranger, p.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	stats, err := s.stock.PharmacyStats(ctx, s.pharmUsr)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalMedicines)
	assert.Equal(t, int64(1), stats.OutOfStock)
	assert.Equal(t, int64(1), stats.PendingPrescriptions)
}

func TestStock_DuplicateNameIsConflict(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	s.profile(t)

	_, err := s.stock.AddItem(ctx, s.pharmUsr, stock.AddItemCommand{MedicineName: "Paracetamol", Quantity: 5})
	require.NoError(t, err)

	_, err = s.stock.AddItem(ctx, s.pharmUsr, stock.AddItemCommand{MedicineName: "paracetamol", Quantity: 9})
	assert.ErrorIs(t, err, stock.ErrItemExists)

	items, err := s.stock.ListOwn(ctx, s.pharmUsr)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestStock_Ownership(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	s.profile(t)

	item, err := s.stock.AddItem(ctx, s.pharmUsr, stock.AddItemCommand{MedicineName: "Paracetamol", Quantity: 5})
	require.NoError(t, err)

	other := s.user(t, "medplus", domain.RolePharmacy)
	_, err = s.pharmacies.CreateProfile(ctx, other, pharmacy.CreatePharmacyCommand{Name: "MedPlus", Address: "x", Phone: "y"})
	require.NoError(t, err)

	qty := 0
	_, err = s.stock.UpdateItem(ctx, other, item.ID, stock.UpdateItemCommand{Quantity: &qty})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.ErrorIs(t, s.stock.DeleteItem(ctx, other, item.ID), domain.ErrUnauthorized)

	updated, err := s.stock.UpdateItem(ctx, s.pharmUsr, item.ID, stock.UpdateItemCommand{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Quantity, "zero is applied, not ignored")

	neg := -1
	_, err = s.stock.UpdateItem(ctx, s.pharmUsr, item.ID, stock.UpdateItemCommand{Quantity: &neg})
	var vErr *domain.ValidationError
	assert.ErrorAs(t, err, &vErr)

	require.NoError(t, s.stock.DeleteItem(ctx, s.pharmUsr, item.ID))
	_, err = s.stock.UpdateItem(ctx, s.pharmUsr, item.ID, stock.UpdateItemCommand{Quantity: &qty})
	assert.ErrorIs(t, err, stock.ErrItemNotFound)
}

func TestStock_DoctorViewsPharmacyShelf(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	profile := s.profile(t)
	_, err := s.stock.AddItem(ctx, s.pharmUsr, stock.AddItemCommand{MedicineName: "Paracetamol", Quantity: 5})
	require.NoError(t, err)

	items, err := s.stock.ListForPharmacy(ctx, s.doctor, profile.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = s.stock.ListForPharmacy(ctx, s.patient, profile.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = s.stock.ListForPharmacy(ctx, s.doctor, uuid.New())
	assert.ErrorIs(t, err, pharmacy.ErrProfileNotFound)
}

func TestStock_UpdateKeepsConcurrentDeduction(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	profile := s.profile(t)

	item, err := s.stock.AddItem(ctx, s.pharmUsr, stock.AddItemCommand{MedicineName: "Paracetamol", Quantity: 10, Price: 2})
	require.NoError(t, err)

	// A dispense lands between the pharmacist opening the item and saving a
	// price change.
	_, err = s.store.Repos().Stock.Deduct(ctx, profile.ID, "paracetamol", 4)
	require.NoError(t, err)

	price := 2.5
	updated, err := s.stock.UpdateItem(ctx, s.pharmUsr, item.ID, stock.UpdateItemCommand{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 6, updated.Quantity)
	assert.Equal(t, 2.5, updated.Price)
	assert.Equal(t, "Paracetamol", updated.MedicineName)

	empty := "  "
	_, err = s.stock.UpdateItem(ctx, s.pharmUsr, item.ID, stock.UpdateItemCommand{MedicineName: &empty})
	var vErr *domain.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestStock_RenameClashIsConflict(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	s.profile(t)

	_, err := s.stock.AddItem(ctx, s.pharmUsr, stock.AddItemCommand{MedicineName: "Paracetamol", Quantity: 5})
	require.NoError(t, err)
	ibu, err := s.stock.AddItem(ctx, s.pharmUsr, stock.AddItemCommand{MedicineName: "Ibuprofen", Quantity: 3})
	require.NoError(t, err)

	name := " PARACETAMOL"
	_, err = s.stock.UpdateItem(ctx, s.pharmUsr, ibu.ID, stock.UpdateItemCommand{MedicineName: &name})
	assert.ErrorIs(t, err, stock.ErrItemExists)

	name = "Ibuprofen 400"
	renamed, err := s.stock.UpdateItem(ctx, s.pharmUsr, ibu.ID, stock.UpdateItemCommand{MedicineName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ibuprofen 400", renamed.MedicineName)
	assert.Equal(t, 3, renamed.Quantity)
}

func TestPharmacyProfile(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	has, err := s.pharmacies.HasProfile(ctx, s.pharmUsr)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = s.stock.ListOwn(ctx, s.pharmUsr)
	assert.ErrorIs(t, err, pharmacy.ErrProfileNotFound)

	_, err = s.pharmacies.CreateProfile(ctx, s.pharmUsr, pharmacy.CreatePharmacyCommand{Name: "CityCare"})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.ElementsMatch(t, []string{"address is required", "phone is required"}, vErr.Fields)

	s.profile(t)
	_, err = s.pharmacies.CreateProfile(ctx, s.pharmUsr, pharmacy.CreatePharmacyCommand{Name: "Again", Address: "a", Phone: "p"})
	assert.ErrorIs(t, err, pharmacy.ErrProfileExists)

	hours := "9am-9pm"
	updated, err := s.pharmacies.UpdateProfile(ctx, s.pharmUsr, pharmacy.UpdatePharmacyCommand{WorkingHours: &hours})
	require.NoError(t, err)
	assert.Equal(t, hours, updated.WorkingHours)
	assert.Equal(t, "CityCare", updated.Name)

	dir, err := s.pharmacies.Directory(ctx)
	require.NoError(t, err)
	require.Len(t, dir, 1)
	assert.Equal(t, "CityCare", dir[0].Name)

	_, err = s.pharmacies.CreateProfile(ctx, s.doctor, pharmacy.CreatePharmacyCommand{Name: "x", Address: "y", Phone: "z"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUsers(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	u, err := s.users.Resolve(ctx, &domain.Claims{Subject: "sub-dr-rao"})
	require.NoError(t, err)
	assert.Equal(t, s.doctor.UserID, u.ID)

	_, err = s.users.Resolve(ctx, &domain.Claims{Subject: "nobody"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	require.NoError(t, s.users.SetPresence(ctx, s.doctor, domain.PresenceOnline))
	doctors, err := s.users.Doctors(ctx)
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, domain.PresenceOnline, doctors[0].Presence)

	var vErr *domain.ValidationError
	assert.ErrorAs(t, s.users.SetPresence(ctx, s.doctor, "away"), &vErr)
	assert.ErrorIs(t, s.users.SetPresence(ctx, s.patient, domain.PresenceOnline), domain.ErrForbidden)
}

func TestSync(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	cmd := domain.SyncUserCommand{Subject: "sub-meera", Email: "meera@example.com", Role: domain.RolePatient}
	_, _, err := s.users.Sync(ctx, cmd, "10.0.0.2")
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)

	cmd.Name = "Meera"
	cmd.DeviceToken = "fcm-1"
	u, created, err := s.users.Sync(ctx, cmd, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "fcm-1", u.DeviceToken)

	again, created, err := s.users.Sync(ctx, domain.SyncUserCommand{Subject: "sub-meera", DeviceToken: "fcm-2"}, "10.0.0.2")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, again.ID)

	stored, err := s.store.Repos().Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "fcm-2", stored.DeviceToken)
	assert.Equal(t, "Meera", stored.Name, "an existing user keeps their profile")

	_, _, err = s.users.Sync(ctx, domain.SyncUserCommand{Subject: "sub-other", Email: "meera@example.com", Name: "X", Role: domain.RolePatient}, "")
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestSync_ConcurrentFirstLogin(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	cmd := domain.SyncUserCommand{Subject: "sub-kiran", Email: "kiran@example.com", Name: "Kiran", Role: domain.RolePatient}

	const callers = 6
	type result struct {
		id      uuid.UUID
		created bool
		err     error
	}
	results := make(chan result, callers)
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, created, err := s.users.Sync(ctx, cmd, "")
			if err != nil {
				results <- result{err: err}
				return
			}
			results <- result{id: u.ID, created: created}
		}()
	}
	wg.Wait()
	close(results)

	var createdCount int
	ids := map[uuid.UUID]bool{}
	for r := range results {
		require.NoError(t, r.err)
		ids[r.id] = true
		if r.created {
			createdCount++
		}
	}
	assert.Equal(t, 1, createdCount)
	assert.Len(t, ids, 1)
}

type capturePublisher struct {
	mu   sync.Mutex
	msgs []notification.Message
}

func (p *capturePublisher) Publish(_ context.Context, msg notification.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func TestUpdateDeviceToken_ReachesNotifications(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	require.NoError(t, s.users.UpdateDeviceToken(ctx, s.patient, "  fcm-asha  "))

	pub := &capturePublisher{}
	d := notification.NewDispatcher(s.store.Repos().Users, pub, notification.DispatcherConfig{BufferSize: 2}, zaptest.NewLogger(t), metrics.NewCollector("test"))
	require.NoError(t, d.Notify(ctx, notification.Notification{
		UserID: s.patient.UserID,
		Title:  notification.TitleMedicinesDispensed,
		Body:   notification.BodyMedicinesDispensed,
	}))
	require.NoError(t, d.Shutdown(ctx))

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "fcm-asha", pub.msgs[0].DeviceToken)

	long := strings.Repeat("x", 513)
	var vErr *domain.ValidationError
	assert.ErrorAs(t, s.users.UpdateDeviceToken(ctx, s.patient, long), &vErr)
}

func TestUpdatePatientProfile_RoleFields(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	specialty := "Cardiology"
	_, err := s.users.UpdatePatientProfile(ctx, s.patient, domain.UpdateProfileCommand{Specialization: &specialty})
	var vErr *domain.ValidationError
	assert.ErrorAs(t, err, &vErr)

	gender := "female"
	_, err = s.users.UpdateDoctorProfile(ctx, s.doctor, domain.UpdateProfileCommand{Gender: &gender})
	assert.ErrorAs(t, err, &vErr)

	empty := domain.UpdateProfileCommand{}
	u, err := s.users.UpdatePatientProfile(ctx, s.patient, empty)
	require.NoError(t, err)
	assert.Equal(t, "asha", u.Name)
}

func TestAuditTrail(t *testing.T) {
	s := newSuite(t)
	ctx := requestid.With(context.Background(), "req-42")
	s.profile(t)

	item, err := s.stock.AddItem(ctx, s.pharmUsr, stock.AddItemCommand{MedicineName: "Paracetamol", Quantity: 5})
	require.NoError(t, err)

	s.audit.Shutdown(context.Background())

	var found *domain.AuditLog
	for _, e := range s.store.AuditEntries() {
		if e.ResourceID == item.ID.String() {
			found = &e
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, domain.ActionCreate, found.Action)
	assert.Equal(t, "stock_item", found.ResourceType)
	assert.Equal(t, "req-42", found.RequestID)
	assert.Equal(t, s.pharmUsr.UserID, found.UserID)
	assert.JSONEq(t, `{"medicine_name":"Paracetamol","quantity":5}`, found.Changes)

	// Entries after shutdown are dropped, not panicking on a closed channel.
	s.audit.Record(ctx, s.pharmUsr, domain.ActionRead, "stock_item", item.ID, nil)
}
