package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/pharmacy"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/stock"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStock_NameIsUniquePerPharmacyIgnoringCase(t *testing.T) {
	ctx := context.Background()
	repo := New().Repos().Stock
	pharmacyID := uuid.New()

	first := &stock.Item{PharmacyID: pharmacyID, MedicineName: "Paracetamol", Quantity: 5}
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, &stock.Item{PharmacyID: pharmacyID, MedicineName: "  PARACETAMOL ", Quantity: 1})
	assert.ErrorIs(t, err, stock.ErrItemExists)

	// Same name at another pharmacy is fine.
	require.NoError(t, repo.Create(ctx, &stock.Item{PharmacyID: uuid.New(), MedicineName: "paracetamol"}))

	items, err := repo.ListByPharmacy(ctx, pharmacyID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	second := &stock.Item{PharmacyID: pharmacyID, MedicineName: "Ibuprofen"}
	require.NoError(t, repo.Create(ctx, second))
	rename := "paracetamol"
	_, err = repo.Update(ctx, second.ID, stock.UpdateItemCommand{MedicineName: &rename})
	assert.ErrorIs(t, err, stock.ErrItemExists)

	found, err := repo.FindByName(ctx, pharmacyID, "PARACETAMOL")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestStock_NamesMatchOnNormalizedKey(t *testing.T) {
	ctx := context.Background()
	repo := New().Repos().Stock
	pharmacyID := uuid.New()

	item := &stock.Item{PharmacyID: pharmacyID, MedicineName: " Ibuprofène ", Quantity: 4}
	require.NoError(t, repo.Create(ctx, item))
	assert.Equal(t, "Ibuprofène", item.MedicineName)
	assert.Equal(t, stock.NormalizeName("IBUPROFÈNE"), item.MedicineKey)

	found, err := repo.FindByName(ctx, pharmacyID, "IBUPROFÈNE\t")
	require.NoError(t, err)
	assert.Equal(t, item.ID, found.ID)

	d, err := repo.Deduct(ctx, pharmacyID, "ibuprofène", 1)
	require.NoError(t, err)
	assert.True(t, d.Tracked)
	assert.Equal(t, 3, d.After)
}

func TestStock_UpdateWritesOnlyPresentFields(t *testing.T) {
	ctx := context.Background()
	repo := New().Repos().Stock
	pharmacyID := uuid.New()

	item := &stock.Item{PharmacyID: pharmacyID, MedicineName: "Paracetamol", Quantity: 10, Price: 2}
	require.NoError(t, repo.Create(ctx, item))

	loaded, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, 10, loaded.Quantity)

	_, err = repo.Deduct(ctx, pharmacyID, "paracetamol", 4)
	require.NoError(t, err)

	price := 3.75
	updated, err := repo.Update(ctx, loaded.ID, stock.UpdateItemCommand{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 6, updated.Quantity)
	assert.Equal(t, 3.75, updated.Price)

	stored, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, stored.Quantity)

	same, err := repo.Update(ctx, item.ID, stock.UpdateItemCommand{})
	require.NoError(t, err)
	assert.Equal(t, stored.UpdatedAt, same.UpdatedAt, "an empty update writes nothing")

	_, err = repo.Update(ctx, uuid.New(), stock.UpdateItemCommand{Price: &price})
	assert.ErrorIs(t, err, stock.ErrItemNotFound)
}

func TestStock_DeductClampsAtZero(t *testing.T) {
	ctx := context.Background()
	repo := New().Repos().Stock
	pharmacyID := uuid.New()
	require.NoError(t, repo.Create(ctx, &stock.Item{PharmacyID: pharmacyID, MedicineName: "Amoxicillin", Quantity: 3}))

	tests := []struct {
		amount     int
		wantBefore int
		wantAfter  int
		clamped    bool
	}{
		{amount: 2, wantBefore: 3, wantAfter: 1},
		{amount: 5, wantBefore: 1, wantAfter: 0, clamped: true},
		{amount: 1, wantBefore: 0, wantAfter: 0, clamped: true},
		{amount: 0, wantBefore: 0, wantAfter: 0},
	}
	for _, tt := range tests {
		d, err := repo.Deduct(ctx, pharmacyID, "amoxicillin", tt.amount)
		require.NoError(t, err)
		assert.True(t, d.Tracked)
		assert.Equal(t, "Amoxicillin", d.MedicineName)
		assert.Equal(t, tt.wantBefore, d.Before)
		assert.Equal(t, tt.wantAfter, d.After)
		assert.Equal(t, tt.clamped, d.Clamped())
	}

	_, err := repo.Deduct(ctx, pharmacyID, "amoxicillin", -1)
	assert.ErrorIs(t, err, stock.ErrNegativeAmount)
}

func TestStock_DeductUntracked(t *testing.T) {
	d, err := New().Repos().Stock.Deduct(context.Background(), uuid.New(), "Unobtainium", 2)
	require.NoError(t, err)
	assert.False(t, d.Tracked)
	assert.False(t, d.Clamped())
}

func TestPrescription_OnePerAppointment(t *testing.T) {
	ctx := context.Background()
	repo := New().Repos().Prescriptions
	apptID := uuid.New()

	meds := []prescription.Medicine{{Name: "Paracetamol", Quantity: 1}}
	p := &prescription.Prescription{AppointmentID: apptID, Medicines: meds, Status: prescription.StatusPending}
	require.NoError(t, repo.Create(ctx, p))

	err := repo.Create(ctx, &prescription.Prescription{AppointmentID: apptID, Status: prescription.StatusPending})
	assert.ErrorIs(t, err, prescription.ErrPrescriptionExists)

	// Stored copies are isolated from the caller's slice.
	meds[0].Name = "mutated"
	stored, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol", stored.Medicines[0].Name)

	exists, err := repo.ExistsForAppointment(ctx, apptID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPharmacy_OneProfilePerOwner(t *testing.T) {
	ctx := context.Background()
	repo := New().Repos().Pharmacies
	owner := uuid.New()

	require.NoError(t, repo.Create(ctx, &pharmacy.Pharmacy{OwnerID: owner, Name: "A"}))
	assert.ErrorIs(t, repo.Create(ctx, &pharmacy.Pharmacy{OwnerID: owner, Name: "B"}), pharmacy.ErrProfileExists)

	_, err := repo.GetByOwner(ctx, uuid.New())
	assert.ErrorIs(t, err, pharmacy.ErrProfileNotFound)
}

func TestUsers_LookupBySubject(t *testing.T) {
	ctx := context.Background()
	repo := New().Repos().Users

	u := &domain.User{AuthSubject: "idp|123", Email: "a@example.com", Name: "A", Role: domain.RoleDoctor}
	require.NoError(t, repo.Create(ctx, u))
	assert.Equal(t, domain.PresenceOffline, u.Presence)

	got, err := repo.GetBySubject(ctx, "idp|123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetBySubject(ctx, "idp|999")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	require.NoError(t, repo.UpdatePresence(ctx, u.ID, domain.PresenceOnline))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PresenceOnline, got.Presence)
}

func TestUsers_SubjectAndEmailAreUnique(t *testing.T) {
	ctx := context.Background()
	repo := New().Repos().Users

	require.NoError(t, repo.Create(ctx, &domain.User{AuthSubject: "idp|1", Email: "a@example.com", Role: domain.RolePatient}))
	assert.ErrorIs(t, repo.Create(ctx, &domain.User{AuthSubject: "idp|1", Email: "b@example.com"}), domain.ErrUserExists)
	assert.ErrorIs(t, repo.Create(ctx, &domain.User{AuthSubject: "idp|2", Email: "a@example.com"}), domain.ErrUserExists)
}

func TestUsers_DeviceTokenAndProfile(t *testing.T) {
	ctx := context.Background()
	repo := New().Repos().Users

	u := &domain.User{AuthSubject: "idp|7", Email: "d@example.com", Name: "Dr. Rao", Role: domain.RoleDoctor, Phone: "080-1"}
	require.NoError(t, repo.Create(ctx, u))

	require.NoError(t, repo.UpdateDeviceToken(ctx, u.ID, "fcm-7"))
	assert.ErrorIs(t, repo.UpdateDeviceToken(ctx, uuid.New(), "x"), domain.ErrUserNotFound)

	specialty := " Cardiology "
	linked := []uuid.UUID{uuid.New()}
	got, err := repo.UpdateProfile(ctx, u.ID, domain.UpdateProfileCommand{Specialization: &specialty, LinkedPharmacies: &linked})
	require.NoError(t, err)
	assert.Equal(t, "Cardiology", got.Specialization)
	assert.Equal(t, "Dr. Rao", got.Name)
	assert.Equal(t, "080-1", got.Phone)
	assert.Equal(t, "fcm-7", got.DeviceToken, "profile updates leave the device token alone")
	assert.Equal(t, linked, got.LinkedPharmacies)

	// The stored list is not shared with the caller.
	linked[0] = uuid.Nil
	stored, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, stored.LinkedPharmacies[0])

	_, err = repo.UpdateProfile(ctx, uuid.New(), domain.UpdateProfileCommand{Specialization: &specialty})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestWithinTx_RollsBackEveryWrite(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := &appointment.Appointment{PatientID: uuid.New(), DoctorID: uuid.New(), Status: appointment.StatusAccepted}
	require.NoError(t, s.Repos().Appointments.Create(ctx, a))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, r store.Repositories) error {
		require.NoError(t, r.Prescriptions.Create(ctx, &prescription.Prescription{AppointmentID: a.ID}))
		appt, err := r.Appointments.GetByID(ctx, a.ID)
		require.NoError(t, err)
		appt.Status = appointment.StatusCompleted
		require.NoError(t, r.Appointments.UpdateStatus(ctx, appt))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	exists, err := s.Repos().Prescriptions.ExistsForAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := s.Repos().Appointments.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusAccepted, got.Status)
}

func TestWithinTx_RollbackKeepsWritesMadeOutsideIt(t *testing.T) {
	ctx := context.Background()
	s := New()
	pharmacyID := uuid.New()

	entered := make(chan struct{})
	release := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- s.WithinTx(ctx, func(ctx context.Context, r store.Repositories) error {
			if err := r.Stock.Create(ctx, &stock.Item{PharmacyID: pharmacyID, MedicineName: "Cetirizine"}); err != nil {
				return err
			}
			close(entered)
			<-release
			return errors.New("dispense failed")
		})
	}()
	<-entered

	written := make(chan error, 1)
	go func() {
		written <- s.Repos().Stock.Create(ctx, &stock.Item{PharmacyID: pharmacyID, MedicineName: "Paracetamol", Quantity: 5})
	}()

	select {
	case <-written:
		t.Fatal("write finished while a transaction was open")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.Error(t, <-txDone)
	require.NoError(t, <-written)

	items, err := s.Repos().Stock.ListByPharmacy(ctx, pharmacyID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Paracetamol", items[0].MedicineName)
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := New()
	apptID := uuid.New()

	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, r store.Repositories) error {
		return r.Prescriptions.Create(ctx, &prescription.Prescription{AppointmentID: apptID})
	}))

	exists, err := s.Repos().Prescriptions.ExistsForAppointment(ctx, apptID)
	require.NoError(t, err)
	assert.True(t, exists)
}
