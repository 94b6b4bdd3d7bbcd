package handlers

import (
	"fmt"
	"net/http"

	"github.com/ArowuTest/storefront-coins/internal/middleware"
	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/services"
	"github.com/gin-gonic/gin"
)

// RedeemHandler handles code redemption and the admin code console
type RedeemHandler struct {
	redemption *services.RedemptionService
}

// NewRedeemHandler creates a new RedeemHandler
func NewRedeemHandler(redemption *services.RedemptionService) *RedeemHandler {
	return &RedeemHandler{redemption: redemption}
}

// Redeem handles POST /redeem
func (h *RedeemHandler) Redeem(c *gin.Context) {
	var req models.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err))
		return
	}

	result, err := h.redemption.Redeem(c.Request.Context(), req.Code, middleware.Email(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    redeemMessage(result),
		"redemption": result,
	})
}

func redeemMessage(r *models.RedemptionResult) string {
	if r.Type == models.CodeTypeDiscount {
		return fmt.Sprintf("%d%% discount applied", r.Value)
	}
	return fmt.Sprintf("%d coins added to your wallet", r.Value)
}

// CreateCode handles POST /admin/redeem-codes
func (h *RedeemHandler) CreateCode(c *gin.Context) {
	var req models.CreateRedeemCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err))
		return
	}

	code, err := h.redemption.CreateCode(c.Request.Context(), req, middleware.Email(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, code)
}

// ListCodes handles GET /admin/redeem-codes
func (h *RedeemHandler) ListCodes(c *gin.Context) {
	page, limit := pagination(c)
	codes, err := h.redemption.ListCodes(c.Request.Context(), page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"codes": codes, "page": page, "limit": limit})
}

// GetCode handles GET /admin/redeem-codes/:code
func (h *RedeemHandler) GetCode(c *gin.Context) {
	code, err := h.redemption.GetCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, code)
}

// DeactivateCode handles POST /admin/redeem-codes/:code/deactivate
func (h *RedeemHandler) DeactivateCode(c *gin.Context) {
	code, err := h.redemption.DeactivateCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, code)
}

// ListRedemptions handles GET /admin/redeem-codes/:code/redemptions
func (h *RedeemHandler) ListRedemptions(c *gin.Context) {
	redemptions, err := h.redemption.ListRedemptions(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"redemptions": redemptions})
}
