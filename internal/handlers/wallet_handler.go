package handlers

import (
	"net/http"
	"strings"

	"github.com/ArowuTest/storefront-coins/internal/middleware"
	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/services"
	"github.com/gin-gonic/gin"
)

// WalletHandler handles the customer's coin wallet
type WalletHandler struct {
	ledger *services.LedgerService
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(ledger *services.LedgerService) *WalletHandler {
	return &WalletHandler{ledger: ledger}
}

// Get handles GET /wallet
func (h *WalletHandler) Get(c *gin.Context) {
	wallet, err := h.ledger.Wallet(c.Request.Context(), middleware.Email(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

// Topup handles POST /wallet/topup
func (h *WalletHandler) Topup(c *gin.Context) {
	var req models.TopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err))
		return
	}

	result, err := h.ledger.Credit(c.Request.Context(), models.LedgerRequest{
		Email:          middleware.Email(c),
		Coins:          *req.Coins,
		Amount:         req.Amount,
		Description:    strings.TrimSpace(req.Description),
		PaymentMethod:  strings.TrimSpace(req.PaymentMethod),
		Source:         models.SourceWallet,
		IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(ledgerStatus(result), result)
}

// Spend handles POST /wallet/spend
func (h *WalletHandler) Spend(c *gin.Context) {
	var req models.SpendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err))
		return
	}

	result, err := h.ledger.Debit(c.Request.Context(), models.LedgerRequest{
		Email:          middleware.Email(c),
		Coins:          *req.Coins,
		Description:    strings.TrimSpace(req.Description),
		Source:         models.SourceWallet,
		IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(ledgerStatus(result), result)
}

// ledgerStatus is 201 for a new transaction and 200 for a replay.
func ledgerStatus(result *models.LedgerResult) int {
	if result.Replayed {
		return http.StatusOK
	}
	return http.StatusCreated
}
