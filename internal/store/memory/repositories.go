package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/pharmacy"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/stock"
	"github.com/google/uuid"
)

// ── users ───────────────────────────────────────────────────────────────

type userRepo struct{ conn }

func (r *userRepo) Create(_ context.Context, u *domain.User) error {
	return r.write(func(d *dataset) error {
		for _, existing := range d.users {
			if existing.AuthSubject == u.AuthSubject || existing.Email == u.Email {
				return domain.ErrUserExists
			}
		}
		stamp(&u.ID, &u.CreatedAt, &u.UpdatedAt)
		if u.Presence == "" {
			u.Presence = domain.PresenceOffline
		}
		d.users[u.ID] = *u
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	var (
		u  domain.User
		ok bool
	)
	r.read(func(d *dataset) { u, ok = d.users[id] })
	if !ok || u.DeletedAt != nil {
		return nil, domain.ErrUserNotFound
	}
	u.LinkedPharmacies = slices.Clone(u.LinkedPharmacies)
	return &u, nil
}

func (r *userRepo) GetBySubject(_ context.Context, subject string) (*domain.User, error) {
	var found *domain.User
	r.read(func(d *dataset) {
		for _, u := range d.users {
			if u.AuthSubject == subject && u.DeletedAt == nil {
				u.LinkedPharmacies = slices.Clone(u.LinkedPharmacies)
				found = &u
				return
			}
		}
	})
	if found == nil {
		return nil, domain.ErrUserNotFound
	}
	return found, nil
}

func (r *userRepo) ListByRole(_ context.Context, role domain.Role) ([]*domain.User, error) {
	var out []*domain.User
	r.read(func(d *dataset) {
		for _, u := range d.users {
			if u.Role == role && u.DeletedAt == nil {
				out = append(out, &u)
			}
		}
	})
	slices.SortFunc(out, func(a, b *domain.User) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (r *userRepo) UpdatePresence(_ context.Context, id uuid.UUID, presence domain.PresenceStatus) error {
	return r.write(func(d *dataset) error {
		u, ok := d.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		u.Presence = presence
		touch(&u.UpdatedAt)
		d.users[id] = u
		return nil
	})
}

func (r *userRepo) UpdateDeviceToken(_ context.Context, id uuid.UUID, token string) error {
	return r.write(func(d *dataset) error {
		u, ok := d.users[id]
		if !ok || u.DeletedAt != nil {
			return domain.ErrUserNotFound
		}
		u.DeviceToken = token
		touch(&u.UpdatedAt)
		d.users[id] = u
		return nil
	})
}

func (r *userRepo) UpdateProfile(_ context.Context, id uuid.UUID, cmd domain.UpdateProfileCommand) (*domain.User, error) {
	var out domain.User
	err := r.write(func(d *dataset) error {
		u, ok := d.users[id]
		if !ok || u.DeletedAt != nil {
			return domain.ErrUserNotFound
		}
		if !cmd.Empty() {
			cmd.Apply(&u)
			touch(&u.UpdatedAt)
			d.users[id] = u
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.LinkedPharmacies = slices.Clone(out.LinkedPharmacies)
	return &out, nil
}

// ── audit ───────────────────────────────────────────────────────────────

type auditRepo struct{ conn }

func (r *auditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	return r.write(func(d *dataset) error {
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		entry.OccurredAt = time.Now().UTC()
		d.audit = append(d.audit, *entry)
		return nil
	})
}

// ── appointments ────────────────────────────────────────────────────────

type appointmentRepo struct{ conn }

func (r *appointmentRepo) Create(_ context.Context, a *appointment.Appointment) error {
	return r.write(func(d *dataset) error {
		stamp(&a.ID, &a.CreatedAt, &a.UpdatedAt)
		d.appointments[a.ID] = *a
		return nil
	})
}

func (r *appointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var (
		a  appointment.Appointment
		ok bool
	)
	r.read(func(d *dataset) { a, ok = d.appointments[id] })
	if !ok || a.DeletedAt != nil {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *appointmentRepo) List(_ context.Context, q *appointment.ListAppointmentsQuery) ([]*appointment.Appointment, error) {
	var out []*appointment.Appointment
	r.read(func(d *dataset) {
		for _, a := range d.appointments {
			if matchAppointment(&a, q.PatientID, q.DoctorID, q.Status, q.DateFrom, q.DateTo) {
				out = append(out, &a)
			}
		}
	})
	sortByCreated(out,
		func(a *appointment.Appointment) time.Time { return a.CreatedAt },
		func(a *appointment.Appointment) uuid.UUID { return a.ID })
	return out, nil
}

func (r *appointmentRepo) UpdateStatus(_ context.Context, a *appointment.Appointment) error {
	return r.write(func(d *dataset) error {
		stored, ok := d.appointments[a.ID]
		if !ok {
			return appointment.ErrAppointmentNotFound
		}
		stored.Status = a.Status
		stored.CompletedAt = a.CompletedAt
		touch(&stored.UpdatedAt)
		a.UpdatedAt = stored.UpdatedAt
		d.appointments[a.ID] = stored
		return nil
	})
}

func (r *appointmentRepo) CountByDoctor(_ context.Context, doctorID uuid.UUID, status *appointment.AppointmentStatus, from, to *time.Time) (int64, error) {
	var n int64
	r.read(func(d *dataset) {
		for _, a := range d.appointments {
			if matchAppointment(&a, nil, &doctorID, status, from, to) {
				n++
			}
		}
	})
	return n, nil
}

func matchAppointment(a *appointment.Appointment, patientID, doctorID *uuid.UUID, status *appointment.AppointmentStatus, from, to *time.Time) bool {
	switch {
	case a.DeletedAt != nil:
		return false
	case patientID != nil && a.PatientID != *patientID:
		return false
	case doctorID != nil && a.DoctorID != *doctorID:
		return false
	case status != nil && a.Status != *status:
		return false
	case from != nil && a.AppointmentDate.Before(*from):
		return false
	case to != nil && !a.AppointmentDate.Before(*to):
		return false
	}
	return true
}

// ── prescriptions ───────────────────────────────────────────────────────

type prescriptionRepo struct{ conn }

func (r *prescriptionRepo) Create(_ context.Context, p *prescription.Prescription) error {
	return r.write(func(d *dataset) error {
		for _, existing := range d.prescriptions {
			if existing.AppointmentID == p.AppointmentID {
				return prescription.ErrPrescriptionExists
			}
		}
		stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		stored := *p
		stored.Medicines = slices.Clone(p.Medicines)
		d.prescriptions[p.ID] = stored
		return nil
	})
}

func (r *prescriptionRepo) GetByID(_ context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	var (
		p  prescription.Prescription
		ok bool
	)
	r.read(func(d *dataset) { p, ok = d.prescriptions[id] })
	if !ok || p.DeletedAt != nil {
		return nil, prescription.ErrPrescriptionNotFound
	}
	p.Medicines = slices.Clone(p.Medicines)
	return &p, nil
}

// GetByIDForUpdate relies on WithinTx holding the store exclusively.
func (r *prescriptionRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	return r.GetByID(ctx, id)
}

func (r *prescriptionRepo) ExistsForAppointment(_ context.Context, appointmentID uuid.UUID) (bool, error) {
	var found bool
	r.read(func(d *dataset) {
		for _, p := range d.prescriptions {
			if p.AppointmentID == appointmentID && p.DeletedAt == nil {
				found = true
				return
			}
		}
	})
	return found, nil
}

func (r *prescriptionRepo) UpdateStatus(_ context.Context, p *prescription.Prescription) error {
	return r.write(func(d *dataset) error {
		stored, ok := d.prescriptions[p.ID]
		if !ok {
			return prescription.ErrPrescriptionNotFound
		}
		stored.Status = p.Status
		stored.PharmacyNotes = p.PharmacyNotes
		stored.DispensedAt = p.DispensedAt
		touch(&stored.UpdatedAt)
		p.UpdatedAt = stored.UpdatedAt
		d.prescriptions[p.ID] = stored
		return nil
	})
}

func (r *prescriptionRepo) List(_ context.Context, q *prescription.ListPrescriptionsQuery) ([]*prescription.Prescription, error) {
	var out []*prescription.Prescription
	r.read(func(d *dataset) {
		for _, p := range d.prescriptions {
			if matchPrescription(&p, q) {
				p.Medicines = slices.Clone(p.Medicines)
				out = append(out, &p)
			}
		}
	})
	sortByCreated(out,
		func(p *prescription.Prescription) time.Time { return p.CreatedAt },
		func(p *prescription.Prescription) uuid.UUID { return p.ID })
	return out, nil
}

func (r *prescriptionRepo) Count(_ context.Context, q *prescription.ListPrescriptionsQuery) (int64, error) {
	var n int64
	r.read(func(d *dataset) {
		for _, p := range d.prescriptions {
			if matchPrescription(&p, q) {
				n++
			}
		}
	})
	return n, nil
}

func matchPrescription(p *prescription.Prescription, q *prescription.ListPrescriptionsQuery) bool {
	switch {
	case p.DeletedAt != nil:
		return false
	case q.PatientID != nil && p.PatientID != *q.PatientID:
		return false
	case q.DoctorID != nil && p.DoctorID != *q.DoctorID:
		return false
	case q.PharmacyID != nil && p.PharmacyID != *q.PharmacyID:
		return false
	case q.Status != nil && p.Status != *q.Status:
		return false
	}
	return true
}

// ── stock ───────────────────────────────────────────────────────────────

type stockRepo struct{ conn }

func (r *stockRepo) Create(_ context.Context, i *stock.Item) error {
	i.SetName(i.MedicineName)
	return r.write(func(d *dataset) error {
		if findStock(d, i.PharmacyID, i.MedicineKey, uuid.Nil) != nil {
			return stock.ErrItemExists
		}
		stamp(&i.ID, &i.CreatedAt, &i.UpdatedAt)
		d.stock[i.ID] = *i
		return nil
	})
}

func (r *stockRepo) GetByID(_ context.Context, id uuid.UUID) (*stock.Item, error) {
	var (
		i  stock.Item
		ok bool
	)
	r.read(func(d *dataset) { i, ok = d.stock[id] })
	if !ok {
		return nil, stock.ErrItemNotFound
	}
	return &i, nil
}

func (r *stockRepo) FindByName(_ context.Context, pharmacyID uuid.UUID, name string) (*stock.Item, error) {
	var found *stock.Item
	r.read(func(d *dataset) { found = findStock(d, pharmacyID, stock.NormalizeName(name), uuid.Nil) })
	if found == nil {
		return nil, stock.ErrItemNotFound
	}
	return found, nil
}

func (r *stockRepo) Update(_ context.Context, id uuid.UUID, cmd stock.UpdateItemCommand) (*stock.Item, error) {
	var out stock.Item
	err := r.write(func(d *dataset) error {
		item, ok := d.stock[id]
		if !ok {
			return stock.ErrItemNotFound
		}
		if cmd.Empty() {
			out = item
			return nil
		}
		cmd.Apply(&item)
		if findStock(d, item.PharmacyID, item.MedicineKey, item.ID) != nil {
			return stock.ErrItemExists
		}
		touch(&item.UpdatedAt)
		d.stock[id] = item
		out = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *stockRepo) Delete(_ context.Context, id uuid.UUID) error {
	return r.write(func(d *dataset) error {
		if _, ok := d.stock[id]; !ok {
			return stock.ErrItemNotFound
		}
		delete(d.stock, id)
		return nil
	})
}

func (r *stockRepo) ListByPharmacy(_ context.Context, pharmacyID uuid.UUID) ([]*stock.Item, error) {
	var out []*stock.Item
	r.read(func(d *dataset) {
		for _, i := range d.stock {
			if i.PharmacyID == pharmacyID {
				out = append(out, &i)
			}
		}
	})
	slices.SortFunc(out, func(a, b *stock.Item) int {
		return strings.Compare(a.MedicineKey, b.MedicineKey)
	})
	return out, nil
}

func (r *stockRepo) CountByPharmacy(_ context.Context, pharmacyID uuid.UUID, outOfStockOnly bool) (int64, error) {
	var n int64
	r.read(func(d *dataset) {
		for _, i := range d.stock {
			if i.PharmacyID != pharmacyID {
				continue
			}
			if outOfStockOnly && i.Quantity > 0 {
				continue
			}
			n++
		}
	})
	return n, nil
}

func (r *stockRepo) Deduct(_ context.Context, pharmacyID uuid.UUID, name string, amount int) (stock.Deduction, error) {
	if amount < 0 {
		return stock.Deduction{}, stock.ErrNegativeAmount
	}
	res := stock.Deduction{MedicineName: name, Requested: amount}
	err := r.write(func(d *dataset) error {
		item := findStock(d, pharmacyID, stock.NormalizeName(name), uuid.Nil)
		if item == nil {
			return nil
		}
		res.Tracked = true
		res.MedicineName = item.MedicineName
		res.Before = item.Quantity
		item.Quantity = stock.ClampedDeduct(item.Quantity, amount)
		res.After = item.Quantity
		touch(&item.UpdatedAt)
		d.stock[item.ID] = *item
		return nil
	})
	return res, err
}

func findStock(d *dataset, pharmacyID uuid.UUID, key string, exclude uuid.UUID) *stock.Item {
	for _, i := range d.stock {
		if i.ID == exclude || i.PharmacyID != pharmacyID {
			continue
		}
		if i.MedicineKey == key {
			return &i
		}
	}
	return nil
}

// ── pharmacies ──────────────────────────────────────────────────────────

type pharmacyRepo struct{ conn }

func (r *pharmacyRepo) Create(_ context.Context, p *pharmacy.Pharmacy) error {
	return r.write(func(d *dataset) error {
		for _, existing := range d.pharmacies {
			if existing.OwnerID == p.OwnerID {
				return pharmacy.ErrProfileExists
			}
		}
		stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		d.pharmacies[p.ID] = *p
		return nil
	})
}

func (r *pharmacyRepo) GetByID(_ context.Context, id uuid.UUID) (*pharmacy.Pharmacy, error) {
	var (
		p  pharmacy.Pharmacy
		ok bool
	)
	r.read(func(d *dataset) { p, ok = d.pharmacies[id] })
	if !ok {
		return nil, pharmacy.ErrProfileNotFound
	}
	return &p, nil
}

func (r *pharmacyRepo) GetByOwner(_ context.Context, ownerID uuid.UUID) (*pharmacy.Pharmacy, error) {
	var found *pharmacy.Pharmacy
	r.read(func(d *dataset) {
		for _, p := range d.pharmacies {
			if p.OwnerID == ownerID {
				found = &p
				return
			}
		}
	})
	if found == nil {
		return nil, pharmacy.ErrProfileNotFound
	}
	return found, nil
}

func (r *pharmacyRepo) Update(_ context.Context, p *pharmacy.Pharmacy) error {
	return r.write(func(d *dataset) error {
		if _, ok := d.pharmacies[p.ID]; !ok {
			return pharmacy.ErrProfileNotFound
		}
		touch(&p.UpdatedAt)
		d.pharmacies[p.ID] = *p
		return nil
	})
}

func (r *pharmacyRepo) List(_ context.Context) ([]*pharmacy.Pharmacy, error) {
	var out []*pharmacy.Pharmacy
	r.read(func(d *dataset) {
		for _, p := range d.pharmacies {
			out = append(out, &p)
		}
	})
	slices.SortFunc(out, func(a, b *pharmacy.Pharmacy) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}
