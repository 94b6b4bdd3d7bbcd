package handlers

import (
	"net/http"

	"github.com/ArowuTest/storefront-coins/internal/middleware"
	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/services"
	"github.com/gin-gonic/gin"
)

// ReviewHandler handles product reviews
type ReviewHandler struct {
	reviews *services.ReviewService
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Create handles POST /products/:productId/reviews
func (h *ReviewHandler) Create(c *gin.Context) {
	var req models.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err))
		return
	}

	review, err := h.reviews.Create(c.Request.Context(), c.Param("productId"), middleware.Email(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// Summary handles GET /products/:productId/reviews
func (h *ReviewHandler) Summary(c *gin.Context) {
	summary, err := h.reviews.Summary(c.Request.Context(), c.Param("productId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
