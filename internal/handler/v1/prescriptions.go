package v1

import (
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type medicineRequest struct {
	Name     string `json:"name"`
	Dosage   string `json:"dosage"`
	Duration string `json:"duration"`
	Quantity int    `json:"quantity"`
}

type createPrescriptionRequest struct {
	AppointmentID uuid.UUID         `json:"appointmentId"`
	PatientID     uuid.UUID         `json:"patientId"`
	PharmacyID    uuid.UUID         `json:"pharmacyId"`
	Medicines     []medicineRequest `json:"medicines"`
	Notes         string            `json:"notes"`
}

func (h *Handler) CreatePrescription(c *gin.Context) {
	var req createPrescriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := prescription.CreatePrescriptionCommand{
		AppointmentID: req.AppointmentID,
		PatientID:     req.PatientID,
		PharmacyID:    req.PharmacyID,
		Notes:         req.Notes,
		Medicines:     make([]prescription.Medicine, 0, len(req.Medicines)),
	}
	for _, m := range req.Medicines {
		cmd.Medicines = append(cmd.Medicines, prescription.Medicine(m))
	}

	p, err := h.svc.Prescriptions.Create(c.Request.Context(), middleware.Actor(c), cmd)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondCreated(c, p)
}

func (h *Handler) ListPatientPrescriptions(c *gin.Context) {
	items, err := h.svc.Prescriptions.ListForPatient(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, items)
}

func (h *Handler) PrescriptionDocument(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	doc, err := h.svc.Prescriptions.Document(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, doc)
}

// ListIncomingPrescriptions accepts an optional ?status= filter.
func (h *Handler) ListIncomingPrescriptions(c *gin.Context) {
	var status *prescription.PrescriptionStatus
	if raw := c.Query("status"); raw != "" {
		s := prescription.PrescriptionStatus(raw)
		status = &s
	}

	items, err := h.svc.Prescriptions.Incoming(c.Request.Context(), middleware.Actor(c), status)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, items)
}

type prescriptionStatusRequest struct {
	Status        prescription.PrescriptionStatus `json:"status"`
	PharmacyNotes *string                         `json:"pharmacyNotes"`
}

func (h *Handler) UpdatePrescriptionStatus(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req prescriptionStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.svc.Prescriptions.UpdateStatus(c.Request.Context(), middleware.Actor(c), id, prescription.UpdateStatusCommand{
		Status:        req.Status,
		PharmacyNotes: req.PharmacyNotes,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}
