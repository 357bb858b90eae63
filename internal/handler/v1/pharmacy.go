package v1

import (
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/pharmacy"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/stock"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/middleware"
	"github.com/gin-gonic/gin"
)

type pharmacyProfileRequest struct {
	Name         *string `json:"name"`
	Address      *string `json:"address"`
	Phone        *string `json:"phone"`
	WorkingHours *string `json:"workingHours"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *Handler) CreatePharmacyProfile(c *gin.Context) {
	var req pharmacyProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.svc.Pharmacies.CreateProfile(c.Request.Context(), middleware.Actor(c), pharmacy.CreatePharmacyCommand{
		Name:         deref(req.Name),
		Address:      deref(req.Address),
		Phone:        deref(req.Phone),
		WorkingHours: deref(req.WorkingHours),
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondCreated(c, p)
}

func (h *Handler) GetPharmacyProfile(c *gin.Context) {
	p, err := h.svc.Pharmacies.Profile(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

func (h *Handler) UpdatePharmacyProfile(c *gin.Context) {
	var req pharmacyProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.svc.Pharmacies.UpdateProfile(c.Request.Context(), middleware.Actor(c), pharmacy.UpdatePharmacyCommand{
		Name:         req.Name,
		Address:      req.Address,
		Phone:        req.Phone,
		WorkingHours: req.WorkingHours,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

func (h *Handler) PharmacyProfileStatus(c *gin.Context) {
	has, err := h.svc.Pharmacies.HasProfile(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"has_profile": has})
}

func (h *Handler) PharmacyDirectory(c *gin.Context) {
	all, err := h.svc.Pharmacies.Directory(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, all)
}

func (h *Handler) PharmacyStats(c *gin.Context) {
	stats, err := h.svc.Stock.PharmacyStats(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, stats)
}

type stockItemRequest struct {
	MedicineName *string  `json:"medicineName"`
	Quantity     *int     `json:"quantity"`
	Price        *float64 `json:"price"`
	ExpiryDate   *string  `json:"expiryDate"`
}

func (r *stockItemRequest) expiry(c *gin.Context) (*time.Time, bool) {
	t, err := parseOptionalDate(r.ExpiryDate)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid expiryDate: use YYYY-MM-DD or RFC 3339")
		return nil, false
	}
	return t, true
}

func (h *Handler) ListOwnStock(c *gin.Context) {
	items, err := h.svc.Stock.ListOwn(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, items)
}

func (h *Handler) AddStockItem(c *gin.Context) {
	var req stockItemRequest
	if !bindJSON(c, &req) {
		return
	}
	expiry, ok := req.expiry(c)
	if !ok {
		return
	}

	cmd := stock.AddItemCommand{MedicineName: deref(req.MedicineName), ExpiryDate: expiry}
	if req.Quantity != nil {
		cmd.Quantity = *req.Quantity
	}
	if req.Price != nil {
		cmd.Price = *req.Price
	}

	item, err := h.svc.Stock.AddItem(c.Request.Context(), middleware.Actor(c), cmd)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondCreated(c, item)
}

func (h *Handler) UpdateStockItem(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req stockItemRequest
	if !bindJSON(c, &req) {
		return
	}
	expiry, ok := req.expiry(c)
	if !ok {
		return
	}

	item, err := h.svc.Stock.UpdateItem(c.Request.Context(), middleware.Actor(c), id, stock.UpdateItemCommand{
		MedicineName: req.MedicineName,
		Quantity:     req.Quantity,
		Price:        req.Price,
		ExpiryDate:   expiry,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, item)
}

func (h *Handler) DeleteStockItem(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Stock.DeleteItem(c.Request.Context(), middleware.Actor(c), id); err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondMessage(c, "stock item deleted")
}

// ListPharmacyStock is the doctor's view of another pharmacy's shelf.
func (h *Handler) ListPharmacyStock(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	items, err := h.svc.Stock.ListForPharmacy(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, items)
}
