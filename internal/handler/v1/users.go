package v1

import (
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Handler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}
	respondOK(c, user)
}

func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.svc.Users.Doctors(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, doctors)
}

type presenceRequest struct {
	Status domain.PresenceStatus `json:"status"`
}

func (h *Handler) SetPresence(c *gin.Context) {
	var req presenceRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.Users.SetPresence(c.Request.Context(), middleware.Actor(c), req.Status); err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"status": req.Status})
}

type syncRequest struct {
	Name           string      `json:"name"`
	Role           domain.Role `json:"role"`
	Specialization string      `json:"specialization"`
	DeviceToken    string      `json:"deviceToken"`
}

// SyncUser registers the token's subject on first login and otherwise
// returns the stored user. GET carries no body and never registers.
func (h *Handler) SyncUser(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		respondError(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req syncRequest
	if c.Request.Method != http.MethodGet && c.Request.ContentLength != 0 {
		if !bindJSON(c, &req) {
			return
		}
	}
	role := claims.Role
	if role == "" {
		role = req.Role
	}
	if req.Role != "" && req.Role != role {
		respondError(c, http.StatusBadRequest, "role does not match the token")
		return
	}

	user, created, err := h.svc.Users.Sync(c.Request.Context(), domain.SyncUserCommand{
		Subject:        claims.Subject,
		Email:          claims.Email,
		Name:           req.Name,
		Role:           role,
		Specialization: req.Specialization,
		DeviceToken:    req.DeviceToken,
	}, c.ClientIP())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	if created {
		respondCreated(c, user)
		return
	}
	respondOK(c, user)
}

type deviceTokenRequest struct {
	DeviceToken *string `json:"deviceToken"`
}

func (h *Handler) UpdateDeviceToken(c *gin.Context) {
	var req deviceTokenRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.DeviceToken == nil {
		respondError(c, http.StatusBadRequest, "deviceToken is required")
		return
	}
	if err := h.svc.Users.UpdateDeviceToken(c.Request.Context(), middleware.Actor(c), *req.DeviceToken); err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondMessage(c, "device token updated")
}

func (h *Handler) GetDoctorProfile(c *gin.Context) {
	profile, err := h.svc.Users.DoctorProfile(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, profile)
}

type doctorProfileRequest struct {
	Name             *string      `json:"name"`
	Phone            *string      `json:"phone"`
	Specialization   *string      `json:"specialization"`
	LinkedPharmacies *[]uuid.UUID `json:"linkedPharmacies"`
}

func (h *Handler) UpdateDoctorProfile(c *gin.Context) {
	var req doctorProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := h.svc.Users.UpdateDoctorProfile(c.Request.Context(), middleware.Actor(c), domain.UpdateProfileCommand{
		Name:             req.Name,
		Phone:            req.Phone,
		Specialization:   req.Specialization,
		LinkedPharmacies: req.LinkedPharmacies,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, profile)
}

type patientProfileRequest struct {
	Name        *string `json:"name"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	Gender      *string `json:"gender"`
	BloodGroup  *string `json:"bloodGroup"`
	DateOfBirth *string `json:"dateOfBirth"`
}

func (h *Handler) UpdatePatientProfile(c *gin.Context) {
	var req patientProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	dob, err := parseOptionalDate(req.DateOfBirth)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid dateOfBirth: use YYYY-MM-DD or RFC 3339")
		return
	}

	user, err := h.svc.Users.UpdatePatientProfile(c.Request.Context(), middleware.Actor(c), domain.UpdateProfileCommand{
		Name:        req.Name,
		Phone:       req.Phone,
		Address:     req.Address,
		Gender:      req.Gender,
		BloodGroup:  req.BloodGroup,
		DateOfBirth: dob,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, user)
}
