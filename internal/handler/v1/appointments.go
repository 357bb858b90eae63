package v1

import (
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type bookAppointmentRequest struct {
	DoctorID        uuid.UUID `json:"doctorId"`
	AppointmentDate string    `json:"appointmentDate"`
	AppointmentTime string    `json:"appointmentTime"`
	Reason          string    `json:"reason"`
}

func (h *Handler) BookAppointment(c *gin.Context) {
	var req bookAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &appointment.CreateAppointmentCommand{
		DoctorID:        req.DoctorID,
		AppointmentTime: req.AppointmentTime,
		Reason:          req.Reason,
	}
	// An empty date is left zero so the service reports it as missing.
	if req.AppointmentDate != "" {
		date, err := parseDate(req.AppointmentDate)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid appointmentDate: use YYYY-MM-DD or RFC 3339")
			return
		}
		cmd.AppointmentDate = date
	}

	a, err := h.svc.Appointments.Book(c.Request.Context(), middleware.Actor(c), cmd)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondCreated(c, a)
}

func (h *Handler) ListPatientAppointments(c *gin.Context) {
	items, err := h.svc.Appointments.ListForPatient(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, items)
}

// ListDoctorAppointments accepts an optional ?status= filter.
func (h *Handler) ListDoctorAppointments(c *gin.Context) {
	var status *appointment.AppointmentStatus
	if raw := c.Query("status"); raw != "" {
		s := appointment.AppointmentStatus(raw)
		status = &s
	}

	items, err := h.svc.Appointments.ListForDoctor(c.Request.Context(), middleware.Actor(c), status)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, items)
}

type appointmentStatusRequest struct {
	Status appointment.AppointmentStatus `json:"status"`
}

func (h *Handler) SetAppointmentStatus(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req appointmentStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.svc.Appointments.SetStatus(c.Request.Context(), middleware.Actor(c), id, req.Status)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *Handler) ListAcceptedPatients(c *gin.Context) {
	items, err := h.svc.Appointments.AcceptedPatients(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, items)
}

func (h *Handler) DoctorStats(c *gin.Context) {
	stats, err := h.svc.Appointments.DoctorStats(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, stats)
}
