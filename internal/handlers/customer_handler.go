package handlers

import (
	"net/http"
	"strings"

	"github.com/ArowuTest/storefront-coins/internal/middleware"
	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/services"
	"github.com/gin-gonic/gin"
)

// CustomerHandler serves the customer's own profile and the admin customer views.
type CustomerHandler struct {
	customers *services.CustomerService
	ledger    *services.LedgerService
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customers *services.CustomerService, ledger *services.LedgerService) *CustomerHandler {
	return &CustomerHandler{customers: customers, ledger: ledger}
}

// Me handles GET /me
func (h *CustomerHandler) Me(c *gin.Context) {
	customer, err := h.customers.Get(c.Request.Context(), middleware.Email(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// SaveProfile handles PUT /me
func (h *CustomerHandler) SaveProfile(c *gin.Context) {
	var req models.CustomerProfile
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err))
		return
	}

	customer, err := h.customers.SaveProfile(c.Request.Context(), middleware.Email(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// List handles GET /admin/customers
func (h *CustomerHandler) List(c *gin.Context) {
	page, limit := pagination(c)
	customers, total, err := h.customers.List(c.Request.Context(), page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": customers, "total": total, "page": page, "limit": limit})
}

// Get handles GET /admin/customers/:email
func (h *CustomerHandler) Get(c *gin.Context) {
	customer, err := h.customers.Get(c.Request.Context(), c.Param("email"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// Credit handles POST /admin/customers/:email/credit
func (h *CustomerHandler) Credit(c *gin.Context) {
	h.adjust(c, models.TransactionCredit)
}

// Debit handles POST /admin/customers/:email/debit
func (h *CustomerHandler) Debit(c *gin.Context) {
	h.adjust(c, models.TransactionDebit)
}

func (h *CustomerHandler) adjust(c *gin.Context, t models.TransactionType) {
	var req models.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err))
		return
	}

	result, err := h.ledger.Apply(c.Request.Context(), models.LedgerRequest{
		Email:          c.Param("email"),
		Type:           t,
		Coins:          *req.Coins,
		Description:    strings.TrimSpace(req.Description),
		Source:         models.SourceAdmin,
		Reference:      middleware.Email(c),
		IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(ledgerStatus(result), result)
}

// Reconcile handles GET /admin/customers/:email/reconcile
func (h *CustomerHandler) Reconcile(c *gin.Context) {
	rec, err := h.ledger.Reconcile(c.Request.Context(), c.Param("email"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Transactions handles GET /admin/customers/:email/transactions
func (h *CustomerHandler) Transactions(c *gin.Context) {
	txs, err := h.ledger.History(c.Request.Context(), c.Param("email"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}
