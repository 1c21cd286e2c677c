// Package server assembles services, handlers and middleware into the HTTP router.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"trustledger/internal/config"
	_ "trustledger/internal/docs" // Import swagger docs
	"trustledger/internal/events"
	"trustledger/internal/handlers"
	"trustledger/internal/middleware"
	"trustledger/internal/models"
	"trustledger/internal/services"
	"trustledger/internal/storage"
)

// Dependencies are the stateful components the router is built on.
type Dependencies struct {
	DB        *gorm.DB
	Documents storage.DocumentStore
	Custodian services.KeyCustodian
	Publisher events.Publisher
	// UploadDir is served under /uploads when documents are stored locally.
	UploadDir string
}

// NewRouter wires every service and handler and registers the routes.
func NewRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	db := deps.DB

	// Services
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db, deps.Publisher)
	budgetService := services.NewBudgetService(db)
	departmentService := services.NewDepartmentService(db)
	projectService := services.NewProjectService(db)
	vendorService := services.NewVendorService(db)
	transactionService := services.NewTransactionService(db)
	attestationService := services.NewAttestationService(db, deps.Documents, deps.Custodian, cfg.MaxUploadBytes)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)
	departmentHandler := handlers.NewDepartmentHandler(departmentService, auditService)
	projectHandler := handlers.NewProjectHandler(projectService, auditService)
	vendorHandler := handlers.NewVendorHandler(vendorService, auditService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, attestationService, auditService, cfg.MaxUploadBytes)
	auditHandler := handlers.NewAuditHandler(auditService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.Metrics())
	router.Use(middleware.ErrorHandler())
	router.Use(cors(cfg.CORSOrigin))
	router.MaxMultipartMemory = cfg.MaxUploadBytes + 1<<20

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if deps.UploadDir != "" {
		router.Static(storage.LocalURLPrefix, deps.UploadDir)
	}

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)
	protected.POST("/auth/logout", authHandler.Logout)

	admin := middleware.RequireRole(models.RoleAdmin)
	auditors := middleware.RequireRole(models.RoleAdmin, models.RoleAuditor)

	protected.PUT("/users/:id/role", admin, authHandler.UpdateRole)

	budgets := protected.Group("/budgets")
	budgets.POST("", admin, budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", admin, budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", admin, budgetHandler.DeleteBudget)

	departments := protected.Group("/departments")
	departments.POST("", admin, departmentHandler.CreateDepartment)
	departments.GET("", departmentHandler.GetDepartments)
	departments.GET("/:id", departmentHandler.GetDepartment)
	departments.PUT("/:id", admin, departmentHandler.UpdateDepartment)
	departments.DELETE("/:id", admin, departmentHandler.DeleteDepartment)

	projects := protected.Group("/projects")
	projects.POST("", admin, projectHandler.CreateProject)
	projects.GET("", projectHandler.GetProjects)
	projects.GET("/:id", projectHandler.GetProject)
	projects.PUT("/:id", admin, projectHandler.UpdateProject)
	projects.DELETE("/:id", admin, projectHandler.DeleteProject)

	vendors := protected.Group("/vendors")
	vendors.POST("", admin, vendorHandler.CreateVendor)
	vendors.GET("", vendorHandler.GetVendors)
	vendors.GET("/:id", vendorHandler.GetVendor)
	vendors.PUT("/:id", admin, vendorHandler.UpdateVendor)
	vendors.DELETE("/:id", admin, vendorHandler.DeleteVendor)

	transactions := protected.Group("/transactions")
	transactions.POST("", admin, transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id", admin, transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", admin, transactionHandler.DeleteTransaction)
	transactions.POST("/:id/invoice", admin, transactionHandler.UploadInvoice)
	transactions.GET("/:id/verify", transactionHandler.VerifyDocument)
	transactions.POST("/:id/sign", admin, transactionHandler.SignTransaction)
	transactions.GET("/:id/verify-signature", transactionHandler.VerifySignature)

	audit := protected.Group("/audit", auditors)
	audit.GET("", auditHandler.GetAuditRecords)
	audit.GET("/entity/:entityId", auditHandler.GetEntityAuditRecords)
	audit.GET("/:id/verify", auditHandler.VerifyAuditRecord)

	return router
}

// cors allows the configured frontend origin.
func cors(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
