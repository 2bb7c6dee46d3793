// Package server assembles the HTTP router: middleware, swagger, health and
// the /api/v1 routes.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"cashplan/internal/events"
	"cashplan/internal/handlers"
	"cashplan/internal/invoices"
	"cashplan/internal/middleware"
	"cashplan/internal/services"

	_ "cashplan/internal/docs" // swagger docs
)

// Options configures the router's cross-cutting middleware.
type Options struct {
	CORSAllowedOrigins []string
	// RateLimit is a ulule formatted rate such as "300-M". Empty disables limiting.
	RateLimit      string
	PipelineAPIKey string
}

// Services bundles every service the API exposes.
type Services struct {
	Category    services.CategoryServicer
	PlannedItem services.PlannedItemServicer
	Recurring   services.RecurringItemServicer
	Budget      services.BudgetServicer
	Report      services.ReportServicer
	Audit       services.AuditServicer
}

// NewServices builds the gorm-backed services over one database handle.
func NewServices(db *gorm.DB, feed invoices.Feed, publisher events.Publisher) *Services {
	return &Services{
		Category:    services.NewCategoryService(db),
		PlannedItem: services.NewPlannedItemService(db),
		Recurring:   services.NewRecurringService(db, publisher),
		Budget:      services.NewBudgetService(db),
		Report:      services.NewReportService(db, feed),
		Audit:       services.NewAuditService(db),
	}
}

// NewRouter wires middleware and routes for svc.
func NewRouter(opts Options, svc *Services) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(cors.New(corsConfig(opts.CORSAllowedOrigins)))

	if opts.RateLimit != "" {
		limiter, err := middleware.NewIPLimiter(opts.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("invalid rate limit %q: %w", opts.RateLimit, err)
		}
		router.Use(middleware.RateLimit(limiter))
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	registerRoutes(router.Group("/api/v1"), opts, svc)
	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", handlers.ActorHeader, middleware.PipelineKeyHeader, middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func registerRoutes(v1 *gin.RouterGroup, opts Options, svc *Services) {
	categoryHandler := handlers.NewCategoryHandler(svc.Category, svc.Audit)
	plannedItemHandler := handlers.NewPlannedItemHandler(svc.PlannedItem, svc.Audit)
	recurringHandler := handlers.NewRecurringHandler(svc.Recurring, svc.Audit)
	budgetHandler := handlers.NewBudgetHandler(svc.Budget, svc.Audit)
	reportHandler := handlers.NewReportHandler(svc.Report, svc.Audit)
	auditHandler := handlers.NewAuditHandler(svc.Audit)

	categories := v1.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)
	categories.PUT("/:id/parent", categoryHandler.MoveCategory)
	categories.PUT("/:id/type", categoryHandler.ChangeCategoryType)
	categories.GET("/:id/path", categoryHandler.GetCategoryPath)
	categories.GET("/:id/descendants", categoryHandler.GetDescendants)
	categories.GET("/:id/ancestors", categoryHandler.GetAncestors)

	plannedItems := v1.Group("/planned-items")
	plannedItems.POST("", plannedItemHandler.CreatePlannedItem)
	plannedItems.GET("", plannedItemHandler.GetPlannedItems)
	plannedItems.GET("/:id", plannedItemHandler.GetPlannedItem)
	plannedItems.PUT("/:id", plannedItemHandler.UpdatePlannedItem)
	plannedItems.DELETE("/:id", plannedItemHandler.DeletePlannedItem)
	plannedItems.POST("/:id/pay", plannedItemHandler.MarkPaid)
	plannedItems.POST("/:id/cancel", plannedItemHandler.CancelPlannedItem)
	plannedItems.POST("/:id/reset", plannedItemHandler.ResetPlannedItem)

	recurring := v1.Group("/recurring-items")
	recurring.POST("", recurringHandler.CreateRecurringItem)
	recurring.GET("", recurringHandler.GetRecurringItems)
	recurring.GET("/:id", recurringHandler.GetRecurringItem)
	recurring.PUT("/:id", recurringHandler.UpdateRecurringItem)
	recurring.DELETE("/:id", recurringHandler.DeleteRecurringItem)
	recurring.GET("/:id/next-date", recurringHandler.GetNextDate)
	recurring.POST("/:id/generate", recurringHandler.GenerateNow)
	recurring.POST("/:id/suspend", recurringHandler.SuspendRecurringItem)
	recurring.POST("/:id/activate", recurringHandler.ActivateRecurringItem)
	recurring.POST("/:id/expire", recurringHandler.ExpireRecurringItem)

	budgets := v1.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.POST("/recompute", budgetHandler.RecomputeBudgets)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)
	budgets.GET("/:id/progress", budgetHandler.GetBudgetProgress)
	budgets.POST("/:id/confirm", budgetHandler.ConfirmBudget)
	budgets.POST("/:id/close", budgetHandler.CloseBudget)
	budgets.POST("/:id/reopen", budgetHandler.ReopenBudget)
	budgets.POST("/:id/draft", budgetHandler.SetBudgetToDraft)

	reports := v1.Group("/reports")
	reports.POST("/overview", reportHandler.CreateOverview)
	reports.GET("/overview/:id", reportHandler.GetOverview)
	reports.POST("/overview/:id/load", reportHandler.LoadOverview)
	reports.POST("/forecast", reportHandler.CreateForecast)
	reports.GET("/forecast/:id", reportHandler.GetForecast)
	reports.POST("/forecast/:id/load", reportHandler.LoadForecast)
	reports.POST("/budget-analysis", reportHandler.CreateBudgetAnalysis)
	reports.GET("/budget-analysis/:id", reportHandler.GetBudgetAnalysis)
	reports.POST("/budget-analysis/:id/load", reportHandler.LoadBudgetAnalysis)

	v1.GET("/audit-logs", auditHandler.GetAuditLogs)

	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(opts.PipelineAPIKey))
	pipeline.POST("/sweep", recurringHandler.Sweep)
}
