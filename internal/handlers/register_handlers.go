package handlers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/shopkosh/coin_wallet_service/cmd/docs"
	portssvc "github.com/shopkosh/coin_wallet_service/internal/core/ports/services"
	"github.com/shopkosh/coin_wallet_service/internal/middleware"
	"github.com/shopkosh/coin_wallet_service/internal/platform/config"
)

// RegisterRoutes sets up all application routes, injecting dependencies
// using interfaces.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	limiterInstance *limiter.Limiter,
) {
	registerValidators()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Service-Key", "X-Cron-Secret"},
		AllowCredentials: true,
	}))

	// Health check and metrics are unauthenticated.
	r.GET("/health", GetHome)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupWalletRoutes(r, cfg, services, limiterInstance)
	setupCronRoutes(r, cfg, services)
	setupSwaggerRoutes(r, cfg)
}

// setupWalletRoutes configures the /api/v1 wallet surface. Customer-facing
// endpoints authenticate with the storefront JWT; order-service hooks use
// the internal service key.
func setupWalletRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	limiterInstance *limiter.Limiter,
) {
	walletHandler := NewWalletHandler(services.Wallet)

	v1 := r.Group("/api/v1")
	if limiterInstance != nil {
		v1.Use(middleware.RateLimit(limiterInstance))
	}

	customer := v1.Group("/wallet", middleware.CustomerAuthMiddleware(cfg.JWTSecret))
	{
		customer.GET("", middleware.OperationMetrics("snapshot"), walletHandler.GetWalletSnapshot)
		customer.POST("/spend", middleware.OperationMetrics("spend"), walletHandler.SpendCoins)
	}

	internal := v1.Group("/wallet", middleware.ServiceKeyMiddleware(cfg.ServiceAPIKey))
	{
		internal.POST("/earn", middleware.OperationMetrics("earn"), walletHandler.EarnCoins)
		internal.POST("/reverse", middleware.OperationMetrics("reverse"), walletHandler.ReverseEarned)
		internal.POST("/adjustments", middleware.OperationMetrics("adjust"), walletHandler.CreditAdjustment)
	}
}

// setupCronRoutes configures the scheduled expiry trigger, gated by the
// cron shared secret.
func setupCronRoutes(r *gin.Engine, cfg *config.Config, services *portssvc.ServiceContainer) {
	walletHandler := NewWalletHandler(services.Wallet)

	cron := r.Group("/internal/cron", middleware.CronSecretMiddleware(cfg.CronSecret))
	cron.POST("/expire-coins", middleware.OperationMetrics("expire"), walletHandler.RunExpiry)
}

// setupSwaggerRoutes configures the swagger documentation routes.
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
