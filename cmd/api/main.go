package main

import (
	"fmt"
	"os"

	"trustledger/internal/config"
	"trustledger/internal/database"
	"trustledger/internal/events"
	"trustledger/internal/integrity"
	"trustledger/internal/keystore"
	"trustledger/internal/logger"
	"trustledger/internal/metrics"
	"trustledger/internal/server"
	"trustledger/internal/storage"
	"trustledger/internal/validator"
)

// @title           TrustLedger API
// @version         1.0
// @description     TrustLedger records public spending with sealed invoices, signed transactions and a tamper-evident audit trail.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(appConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()
	metrics.MustRegister()

	deps := server.Dependencies{DB: dbManager.DB()}

	// Document storage
	switch appConfig.DocumentStore {
	case "cloudinary":
		store, err := storage.NewCloudinaryStore(appConfig.CloudinaryURL, appConfig.CloudinaryDir)
		if err != nil {
			return fmt.Errorf("failed to create cloudinary store: %w", err)
		}
		deps.Documents = store
	default:
		store, err := storage.NewLocalStore(appConfig.UploadDir)
		if err != nil {
			return fmt.Errorf("failed to create upload dir: %w", err)
		}
		deps.Documents = store
		deps.UploadDir = store.Dir()
	}

	deps.Custodian = keystore.NewCustodian(
		keystore.NewGormStore(deps.DB),
		keystore.WithKeyBits(appConfig.SigningKeyBits),
		keystore.WithConcurrency(appConfig.KeygenConcurrency),
		keystore.WithTimeout(appConfig.KeygenTimeout),
	)

	deps.Publisher = events.NewPublisher(appConfig, integrity.TimestampLayout)
	defer func() {
		if err := deps.Publisher.Close(); err != nil {
			log.Warnf("audit publisher close error: %v", err)
		}
	}()

	router := server.NewRouter(appConfig, deps)

	log.Infof("Starting TrustLedger server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
