package routes

import (
	"github.com/ArowuTest/storefront-coins/internal/config"
	"github.com/ArowuTest/storefront-coins/internal/handlers"
	"github.com/ArowuTest/storefront-coins/internal/middleware"
	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HandlerDependencies bundles everything the router mounts
type HandlerDependencies struct {
	AuthHandler     *handlers.AuthHandler
	CustomerHandler *handlers.CustomerHandler
	WalletHandler   *handlers.WalletHandler
	RedeemHandler   *handlers.RedeemHandler
	RewardHandler   *handlers.RewardHandler
	PickupHandler   *handlers.PickupHandler
	ReviewHandler   *handlers.ReviewHandler
	HealthHandler   *handlers.HealthHandler
	Tokens          middleware.TokenParser
	Metrics         *metrics.Collector
	Logger          *zap.Logger
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(deps.Logger))
	router.Use(middleware.MetricsMiddleware(deps.Metrics))
	router.Use(middleware.ErrorMiddleware(deps.Logger))

	router.GET("/health", deps.HealthHandler.Health)
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	// Login and redeem share one limiter: both are guessable by brute force.
	limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RedeemPerSecond), cfg.RateLimit.RedeemBurst)
	limited := middleware.RateLimitMiddleware(limiter)
	authenticated := middleware.JWTAuthMiddleware(deps.Tokens)

	// Public routes
	public := router.Group("/api/v1")
	{
		public.POST("/auth/customer", middleware.InternalKeyMiddleware(cfg.Auth.InternalKey), deps.AuthHandler.CustomerLogin)
		public.POST("/admin/login", limited, deps.AuthHandler.AdminLogin)
		public.GET("/products/:productId/reviews", deps.ReviewHandler.Summary)
		public.GET("/pickup-points/nearest", deps.PickupHandler.Nearest)
	}

	// Customer routes
	customer := router.Group("/api/v1")
	customer.Use(authenticated, middleware.RequireRole(models.RoleCustomer))
	{
		customer.GET("/me", deps.CustomerHandler.Me)
		customer.PUT("/me", deps.CustomerHandler.SaveProfile)

		wallet := customer.Group("/wallet")
		{
			wallet.GET("", deps.WalletHandler.Get)
			wallet.POST("/topup", deps.WalletHandler.Topup)
			wallet.POST("/spend", deps.WalletHandler.Spend)
		}

		customer.POST("/redeem", limited, deps.RedeemHandler.Redeem)

		customer.GET("/rewards", deps.RewardHandler.List)
		customer.PATCH("/rewards/:id/read", deps.RewardHandler.MarkRead)

		customer.POST("/products/:productId/reviews", deps.ReviewHandler.Create)
	}

	// Admin routes
	admin := router.Group("/api/v1/admin")
	admin.Use(authenticated, middleware.RequireRole(models.RoleAdmin))
	{
		customers := admin.Group("/customers")
		{
			customers.GET("", deps.CustomerHandler.List)
			customers.GET("/:email", deps.CustomerHandler.Get)
			customers.POST("/:email/credit", deps.CustomerHandler.Credit)
			customers.POST("/:email/debit", deps.CustomerHandler.Debit)
			customers.GET("/:email/reconcile", deps.CustomerHandler.Reconcile)
			customers.GET("/:email/transactions", deps.CustomerHandler.Transactions)
		}

		codes := admin.Group("/redeem-codes")
		{
			codes.GET("", deps.RedeemHandler.ListCodes)
			codes.POST("", deps.RedeemHandler.CreateCode)
			codes.GET("/:code", deps.RedeemHandler.GetCode)
			codes.POST("/:code/deactivate", deps.RedeemHandler.DeactivateCode)
			codes.GET("/:code/redemptions", deps.RedeemHandler.ListRedemptions)
		}

		admin.POST("/rewards", deps.RewardHandler.Send)

		pickup := admin.Group("/pickup-points")
		{
			pickup.GET("", deps.PickupHandler.List)
			pickup.POST("", deps.PickupHandler.Create)
			pickup.DELETE("/:id", deps.PickupHandler.Delete)
		}
	}

	return router
}
