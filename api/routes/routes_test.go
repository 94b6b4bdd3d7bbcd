package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/config"
	"github.com/ArowuTest/storefront-coins/internal/handlers"
	"github.com/ArowuTest/storefront-coins/internal/repositories/memory"
	"github.com/ArowuTest/storefront-coins/internal/services"
	"github.com/ArowuTest/storefront-coins/pkg/jwt"
	"github.com/ArowuTest/storefront-coins/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	internalKey   = "internal-test-key"
	adminEmail    = "admin@shop.test"
	adminPassword = "correct horse"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
	mem    *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		AppEnv:    "test",
		Server:    config.ServerConfig{AllowedOrigins: []string{"*"}},
		Auth:      config.AuthConfig{InternalKey: internalKey},
		RateLimit: config.RateLimitConfig{RedeemPerSecond: 1000, RedeemBurst: 1000},
	}

	mem := memory.New()
	store := mem.Repositories()
	log := zaptest.NewLogger(t)
	m := metrics.New()
	tokens := jwt.NewTokenService("test-secret", time.Hour)

	customers := services.NewCustomerService(store.Customers, log)
	auth := services.NewAuthService(store.AdminUsers, customers, tokens, log)
	ledger := services.NewLedgerService(store, services.LedgerOptions{}, log, m)
	redemption := services.NewRedemptionService(store, ledger, log, m)
	rewards := services.NewRewardService(store, ledger, log, m)
	pickup := services.NewPickupService(store.PickupPoints, nil, services.PickupOptions{ThresholdKm: 1}, log, m)
	reviews := services.NewReviewService(store.Reviews, store.Customers)
	require.NoError(t, auth.EnsureAdmin(context.Background(), adminEmail, adminPassword))

	router := SetupRouter(cfg, HandlerDependencies{
		AuthHandler:     handlers.NewAuthHandler(auth),
		CustomerHandler: handlers.NewCustomerHandler(customers, ledger),
		WalletHandler:   handlers.NewWalletHandler(ledger),
		RedeemHandler:   handlers.NewRedeemHandler(redemption),
		RewardHandler:   handlers.NewRewardHandler(rewards),
		PickupHandler:   handlers.NewPickupHandler(pickup),
		ReviewHandler:   handlers.NewReviewHandler(reviews),
		HealthHandler:   handlers.NewHealthHandler(store.Pinger, log),
		Tokens:          tokens,
		Metrics:         m,
		Logger:          log,
	})
	return &testServer{t: t, router: router, mem: mem}
}

func (s *testServer) do(method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) customerToken(email string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/auth/customer", "", gin.H{"email": email, "name": "Test Customer"}, "X-Internal-Key", internalKey)
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return decode[struct{ Token string }](s.t, w).Token
}

func (s *testServer) adminToken() string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/admin/login", "", gin.H{"email": adminEmail, "password": adminPassword})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return decode[struct{ Token string }](s.t, w).Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field string `json:"field"`
		} `json:"details"`
	} `json:"error"`
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[apiError](t, w).Error.Code
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","store":"up"}`, w.Body.String())

	w = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestHealthReportsStoreOutage(t *testing.T) {
	s := newTestServer(t)
	s.mem.SetFault(func(string) error { return errors.New("down") })

	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCustomerLoginRequiresInternalKey(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/v1/auth/customer", "", gin.H{"email": "alice@example.com"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/customer", "", gin.H{"email": "not-an-email"}, "X-Internal-Key", internalKey)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, w))
}

func TestWalletFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.customerToken("alice@example.com")

	w := s.do(http.MethodPost, "/api/v1/wallet/topup", token,
		gin.H{"coins": 100, "amount": "9.99", "paymentMethod": "card"}, "Idempotency-Key", "topup-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[struct {
		Transaction struct{ ID string }
		CoinBalance int64
		Replayed    bool
	}](t, w)
	assert.Equal(t, int64(100), first.CoinBalance)

	w = s.do(http.MethodPost, "/api/v1/wallet/topup", token,
		gin.H{"coins": 100, "amount": "9.99", "paymentMethod": "card"}, "Idempotency-Key", "topup-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	replay := decode[struct {
		Transaction struct{ ID string }
		CoinBalance int64
		Replayed    bool
	}](t, w)
	assert.True(t, replay.Replayed)
	assert.Equal(t, first.Transaction.ID, replay.Transaction.ID)
	assert.Equal(t, int64(100), replay.CoinBalance)

	w = s.do(http.MethodPost, "/api/v1/wallet/spend", token, gin.H{"coins": 500, "description": "Checkout"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INSUFFICIENT_COINS", errorCode(t, w))

	w = s.do(http.MethodPost, "/api/v1/wallet/spend", token, gin.H{"coins": 40, "description": "Checkout"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/wallet", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	wallet := decode[struct {
		CoinBalance  int64
		Transactions []struct{ Type string }
	}](t, w)
	assert.Equal(t, int64(60), wallet.CoinBalance)
	require.Len(t, wallet.Transactions, 2)
	assert.Equal(t, "debit", wallet.Transactions[0].Type)
}

func TestWalletValidation(t *testing.T) {
	s := newTestServer(t)
	token := s.customerToken("alice@example.com")

	w := s.do(http.MethodPost, "/api/v1/wallet/topup", token, gin.H{"paymentMethod": "card"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[apiError](t, w)
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	require.NotEmpty(t, body.Error.Details)
	assert.Equal(t, "coins", body.Error.Details[0].Field)

	w = s.do(http.MethodPost, "/api/v1/wallet/topup", token, gin.H{"coins": 0, "paymentMethod": "card"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/wallet", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRedeemFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()
	customer := s.customerToken("alice@example.com")

	w := s.do(http.MethodPost, "/api/v1/admin/redeem-codes", admin,
		gin.H{"code": "welcome100", "type": "coins", "value": 100, "title": "Welcome", "usageLimit": 10})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/redeem", customer, gin.H{"code": "WELCOME100"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[struct {
		Success bool
		Message string
	}](t, w)
	assert.True(t, res.Success)
	assert.Equal(t, "100 coins added to your wallet", res.Message)

	w = s.do(http.MethodPost, "/api/v1/redeem", customer, gin.H{"code": "WELCOME100"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_REDEEMED", errorCode(t, w))

	w = s.do(http.MethodPost, "/api/v1/redeem", customer, gin.H{"code": "NOPE"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CODE_NOT_FOUND", errorCode(t, w))

	w = s.do(http.MethodGet, "/api/v1/admin/redeem-codes/welcome100/redemptions", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[struct{ Redemptions []interface{} }](t, w).Redemptions, 1)

	w = s.do(http.MethodPost, "/api/v1/admin/redeem-codes", admin,
		gin.H{"code": "HALF", "type": "discount", "value": 50, "title": "Half off", "usageLimit": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(http.MethodPost, "/api/v1/redeem", customer, gin.H{"code": "half"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "50% discount applied", decode[struct{ Message string }](t, w).Message)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	s := newTestServer(t)
	customer := s.customerToken("alice@example.com")

	w := s.do(http.MethodGet, "/api/v1/admin/customers", customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/v1/admin/login", "", gin.H{"email": adminEmail, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminCustomerLedger(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()
	s.customerToken("bob@example.com")

	w := s.do(http.MethodPost, "/api/v1/admin/customers/bob@example.com/credit", admin, gin.H{"coins": 25, "description": "Goodwill"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/admin/customers/bob@example.com/debit", admin, gin.H{"coins": 30, "description": "Correction"})
	assert.Equal(t, "INSUFFICIENT_COINS", errorCode(t, w))

	w = s.do(http.MethodGet, "/api/v1/admin/customers/bob@example.com/reconcile", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode[struct {
		CoinBalance   int64
		LedgerBalance int64
		Consistent    bool
	}](t, w)
	assert.True(t, rec.Consistent)
	assert.Equal(t, int64(25), rec.CoinBalance)

	w = s.do(http.MethodGet, "/api/v1/admin/customers/bob@example.com/transactions", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"source":"admin"`)

	w = s.do(http.MethodGet, "/api/v1/admin/customers?page=1&limit=10", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[struct{ Total int64 }](t, w).Total)
}

func TestRewardDispatch(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()

	w := s.do(http.MethodPost, "/api/v1/admin/rewards", admin, gin.H{"target": "all", "type": "notification", "title": "Hello"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "NO_CUSTOMERS", errorCode(t, w))

	alice := s.customerToken("alice@example.com")
	s.customerToken("bob@example.com")
	s.customerToken("carol@example.com")

	w = s.do(http.MethodPost, "/api/v1/admin/rewards", admin,
		gin.H{"target": "all", "type": "coins", "value": 10, "title": "Bonus", "dispatchId": "bonus-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/rewards", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Rewards []struct {
			ID     string
			IsRead bool
		}
	}](t, w)
	require.Len(t, list.Rewards, 1)

	w = s.do(http.MethodPatch, "/api/v1/rewards/"+list.Rewards[0].ID+"/read", alice, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	var calls int
	s.mem.SetFault(func(op string) error {
		if op != "rewards.CreateMany.insert" {
			return nil
		}
		calls++
		if calls > 1 {
			return errors.New("write concern timeout")
		}
		return nil
	})
	w = s.do(http.MethodPost, "/api/v1/admin/rewards", admin,
		gin.H{"target": "all", "type": "notification", "title": "News", "dispatchId": "news-1"})
	require.Equal(t, http.StatusMultiStatus, w.Code, w.Body.String())
	partial := decode[struct {
		Result struct{ Written, Failed int }
		Error  struct{ Code string }
	}](t, w)
	assert.Equal(t, 1, partial.Result.Written)
	assert.Equal(t, 2, partial.Result.Failed)
	assert.Equal(t, "PARTIAL_DELIVERY", partial.Error.Code)
}

func TestPickupAndReviews(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()
	customer := s.customerToken("alice@example.com")

	w := s.do(http.MethodPost, "/api/v1/admin/pickup-points", admin, gin.H{"name": "Mall", "latitude": 6.45, "longitude": 3.4})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/pickup-points/nearest?lat=6.4501&lon=3.4001", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[struct{ CanDeliver bool }](t, w).CanDeliver)

	w = s.do(http.MethodGet, "/api/v1/pickup-points/nearest?lat=north", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/products/sku-1/reviews", customer, gin.H{"rating": 4, "comment": "Nice"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(http.MethodPost, "/api/v1/products/sku-1/reviews", customer, gin.H{"rating": 5})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, "/api/v1/products/sku-1/reviews", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[struct {
		Count         int
		AverageRating float64
	}](t, w)
	assert.Equal(t, 1, summary.Count)
	assert.Equal(t, 4.0, summary.AverageRating)
	assert.False(t, strings.Contains(w.Body.String(), "alice@example.com"))
}
