// Package v1 holds the gin handlers for the /api/v1 surface. Handlers only
// translate HTTP to service calls; authorization lives in the services.
package v1

import (
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/service"
	"go.uber.org/zap"
)

type Services struct {
	Users         *service.UserService
	Appointments  *service.AppointmentService
	Prescriptions *service.PrescriptionService
	Stock         *service.StockService
	Pharmacies    *service.PharmacyService
}

type Handler struct {
	svc          Services
	log          *zap.Logger
	exposeErrors bool
}

// NewHandler builds the handler set. exposeErrors adds the underlying error
// text to 500 responses and is only enabled in development.
func NewHandler(svc Services, log *zap.Logger, exposeErrors bool) *Handler {
	return &Handler{svc: svc, log: log, exposeErrors: exposeErrors}
}
