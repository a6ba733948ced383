// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"salesdesk/internal/domain/audit"
	"salesdesk/internal/domain/auth"
	"salesdesk/internal/domain/installments"
	"salesdesk/internal/domain/reports"
	"salesdesk/internal/domain/revalidate"
	"salesdesk/internal/domain/sales"
	"salesdesk/internal/domain/stock"
	"salesdesk/internal/infrastructure/http/v1/handlers"
	"salesdesk/internal/infrastructure/http/v1/middleware"
	"salesdesk/internal/infrastructure/storage/postgres"
	"salesdesk/internal/infrastructure/storage/postgres/installment_repo"
	"salesdesk/internal/infrastructure/storage/postgres/report_repo"
	"salesdesk/internal/infrastructure/storage/postgres/sale_repo"
	"salesdesk/internal/infrastructure/storage/postgres/stock_repo"
	"salesdesk/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (health checks + repositories).
	Pool *postgres.Pool

	// TxManager coordinates transactions for all services.
	TxManager *postgres.TxManager

	// Logger for request logging.
	Logger *logger.Logger

	// JWTValidator for token validation.
	JWTValidator middleware.JWTValidator

	// AuthService for the login endpoint.
	AuthService *auth.Service

	// Signals publishes view-invalidation paths after mutations.
	// Nil disables publishing.
	Signals revalidate.Invalidator

	// Auditor records sale lifecycle actions. Nil disables recording.
	Auditor audit.Recorder

	// AuditSink additionally serves the audit history endpoint when set.
	AuditSink *postgres.AuditSink
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Repositories and services share the single TxManager.
	saleRepo := sale_repo.NewSaleRepo(cfg.TxManager)
	stockRepo := stock_repo.NewStockRepo(cfg.TxManager)
	installmentRepo := installment_repo.NewInstallmentRepo(cfg.TxManager)
	reportRepo := report_repo.NewReportRepo(cfg.TxManager)

	stockService := stock.NewService(stockRepo, cfg.TxManager, cfg.Signals, cfg.Auditor)
	installmentService := installments.NewService(installmentRepo, saleRepo, cfg.TxManager, cfg.Signals, cfg.Auditor)
	saleService := sales.NewService(saleRepo, stockService, installmentService, cfg.TxManager, cfg.Signals, cfg.Auditor)
	reportService := reports.NewService(reportRepo)

	baseHandler := handlers.NewBaseHandler()
	saleHandler := handlers.NewSaleHandler(baseHandler, saleService)
	installmentHandler := handlers.NewInstallmentHandler(baseHandler, installmentService)
	stockHandler := handlers.NewStockHandler(baseHandler, stockService)
	reportsHandler := handlers.NewReportsHandler(baseHandler, reportService)

	// API v1
	v1 := router.Group("/api/v1")
	{
		// Public auth endpoint
		if cfg.AuthService != nil {
			authHandler := handlers.NewAuthHandler(baseHandler, cfg.AuthService)
			v1.POST("/auth/login", authHandler.Login)
		}

		// Protected endpoints
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		salesGroup := protected.Group("/sales")
		{
			salesGroup.POST("", saleHandler.Create)
			salesGroup.GET("", saleHandler.List)
			salesGroup.GET("/:id", saleHandler.Get)
			salesGroup.POST("/:id/cancel", saleHandler.Cancel)
			salesGroup.POST("/:id/refund", saleHandler.Refund)
			salesGroup.PATCH("/:id/status", saleHandler.UpdateStatus)

			salesGroup.GET("/:id/installments", installmentHandler.List)
			salesGroup.POST("/:id/installments/:seq/pay", installmentHandler.Pay)
			salesGroup.POST("/:id/installments/detect-overdue", installmentHandler.DetectOverdue)

			if cfg.AuditSink != nil {
				auditHandler := handlers.NewAuditHandler(baseHandler, cfg.AuditSink)
				salesGroup.GET("/:id/audit", auditHandler.SaleHistory)
			}
		}

		inventoryGroup := protected.Group("/inventory")
		{
			inventoryGroup.GET("", stockHandler.List)
			inventoryGroup.GET("/:code", stockHandler.Get)
			inventoryGroup.GET("/:code/movements", stockHandler.Movements)
			inventoryGroup.POST("/:code/adjust", stockHandler.Adjust)
		}

		reportsGroup := protected.Group("/reports")
		{
			reportsGroup.GET("/sales", reportsHandler.SalesRegister)
			reportsGroup.GET("/sales/export", reportsHandler.ExportSalesRegister)
		}
	}

	return router
}
