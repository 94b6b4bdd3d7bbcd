package handlers

import (
	"errors"
	"net/http"

	"github.com/ArowuTest/storefront-coins/internal/middleware"
	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/services"
	"github.com/ArowuTest/storefront-coins/pkg/errutil"
	"github.com/gin-gonic/gin"
)

// RewardHandler handles reward notifications
type RewardHandler struct {
	rewards *services.RewardService
}

// NewRewardHandler creates a new RewardHandler
func NewRewardHandler(rewards *services.RewardService) *RewardHandler {
	return &RewardHandler{rewards: rewards}
}

// List handles GET /rewards
func (h *RewardHandler) List(c *gin.Context) {
	rewards, err := h.rewards.ListForCustomer(c.Request.Context(), middleware.Email(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}

// MarkRead handles PATCH /rewards/:id/read
func (h *RewardHandler) MarkRead(c *gin.Context) {
	if err := h.rewards.MarkRead(c.Request.Context(), middleware.Email(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Send handles POST /admin/rewards. A fan-out that reached only some customers answers 207
// with the counts, so the admin can retry with the same dispatchId.
func (h *RewardHandler) Send(c *gin.Context) {
	var req models.SendRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err))
		return
	}

	result, err := h.rewards.Send(c.Request.Context(), req.Target, req.RewardPayload)
	var base errutil.BaseError
	if err != nil && result != nil && errors.As(err, &base) && base.Code == errutil.StatusPartialDelivery {
		c.JSON(base.Code.HTTPStatus(), gin.H{
			"result": result,
			"error":  gin.H{"code": base.Code, "message": base.Message},
		})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"result": result})
}
