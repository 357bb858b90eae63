package server

import (
	"context"
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/config"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	v1 "github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterDeps struct {
	Config  *config.Config
	Handler *v1.Handler
	Tokens  middleware.TokenValidator
	Users   middleware.UserResolver
	Metrics *metrics.Collector
	Health  Pinger
	Log     *zap.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	if !d.Config.App.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(d.Log, d.Config.App.IsDevelopment()),
		middleware.Logger(d.Log),
		middleware.Tracing(d.Config.App.Name),
		middleware.Metrics(d.Metrics),
		middleware.SecurityHeaders(),
		middleware.CORS(d.Config.CORS),
	)

	r.GET("/healthz", healthz(d.Health))
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	h := d.Handler
	limit := middleware.RateLimit(d.Config.RateLimit, d.Metrics)

	sync := r.Group("/api/v1/auth", limit, middleware.VerifyToken(d.Tokens))
	{
		sync.GET("/sync", h.SyncUser)
		sync.POST("/sync", h.SyncUser)
	}

	api := r.Group("/api/v1", limit, middleware.Authenticate(d.Tokens, d.Users, d.Log))

	api.GET("/users/me", h.Me)
	api.PUT("/users/me/device-token", h.UpdateDeviceToken)
	api.GET("/pharmacy/all", h.PharmacyDirectory)

	patient := api.Group("/patient", middleware.RequireRole(domain.RolePatient))
	{
		patient.PUT("/profile", h.UpdatePatientProfile)
		patient.GET("/doctors", h.ListDoctors)
		patient.POST("/appointments", h.BookAppointment)
		patient.GET("/appointments", h.ListPatientAppointments)
		patient.GET("/prescriptions", h.ListPatientPrescriptions)
		patient.GET("/prescriptions/:id/document", h.PrescriptionDocument)
	}

	doctor := api.Group("/doctor", middleware.RequireRole(domain.RoleDoctor))
	{
		doctor.GET("/profile", h.GetDoctorProfile)
		doctor.PUT("/profile", h.UpdateDoctorProfile)
		doctor.GET("/appointments", h.ListDoctorAppointments)
		doctor.PUT("/appointments/:id", h.SetAppointmentStatus)
		doctor.GET("/patients", h.ListAcceptedPatients)
		doctor.POST("/prescriptions", h.CreatePrescription)
		doctor.GET("/stats", h.DoctorStats)
		doctor.PUT("/status", h.SetPresence)
		doctor.GET("/pharmacy/:id/stock", h.ListPharmacyStock)
	}

	pharm := api.Group("/pharmacy", middleware.RequireRole(domain.RolePharmacy))
	{
		pharm.GET("/profile", h.GetPharmacyProfile)
		pharm.POST("/profile", h.CreatePharmacyProfile)
		pharm.PUT("/profile", h.UpdatePharmacyProfile)
		pharm.GET("/profile/status", h.PharmacyProfileStatus)
		pharm.GET("/stock", h.ListOwnStock)
		pharm.POST("/stock", h.AddStockItem)
		pharm.PUT("/stock/:id", h.UpdateStockItem)
		pharm.DELETE("/stock/:id", h.DeleteStockItem)
		pharm.GET("/prescriptions", h.ListIncomingPrescriptions)
		pharm.PUT("/prescriptions/:id", h.UpdatePrescriptionStatus)
		pharm.GET("/stats", h.PharmacyStats)
	}

	return r
}

func healthz(p Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if p != nil {
			if err := p.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "store": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
