package handlers

import (
	"net/http"
	"strconv"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/services"
	"github.com/ArowuTest/storefront-coins/pkg/errutil"
	"github.com/gin-gonic/gin"
)

// PickupHandler handles pickup point lookups and administration
type PickupHandler struct {
	pickup *services.PickupService
}

// NewPickupHandler creates a new PickupHandler
func NewPickupHandler(pickup *services.PickupService) *PickupHandler {
	return &PickupHandler{pickup: pickup}
}

// Nearest handles GET /pickup-points/nearest?lat=&lon=
func (h *PickupHandler) Nearest(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		fail(c, errutil.ValidationFailed("lat and lon query parameters must be numbers",
			errutil.WithDetails(errutil.Detail{Field: "lat", Message: "lat and lon are required"})))
		return
	}

	result, err := h.pickup.Nearest(c.Request.Context(), lat, lon)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Create handles POST /admin/pickup-points
func (h *PickupHandler) Create(c *gin.Context) {
	var req models.CreatePickupPointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err))
		return
	}

	point, err := h.pickup.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, point)
}

// List handles GET /admin/pickup-points
func (h *PickupHandler) List(c *gin.Context) {
	points, err := h.pickup.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pickupPoints": points})
}

// Delete handles DELETE /admin/pickup-points/:id
func (h *PickupHandler) Delete(c *gin.Context) {
	if err := h.pickup.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
