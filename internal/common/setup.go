package common

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"strings"

	"promo-sales-go/internal/catalog"
	"promo-sales-go/internal/database"
	"promo-sales-go/internal/ingest"
	"promo-sales-go/internal/metrics"
	"promo-sales-go/internal/models"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Catalog   *catalog.Catalog
	Metrics   *metrics.Recorder
	Engine    *ingest.Engine
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the database, loads the product catalog and wires
// the ingestion engine.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	products, err := LoadCatalog(cfg.Ingest.ProductsFile)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	recorder := metrics.NewRecorder()

	return &Services{
		DbService: dbService,
		Catalog:   products,
		Metrics:   recorder,
		Engine:    ingest.NewEngine(dbService, products, cfg.Ingest.Location, recorder),
	}, nil
}

// InitializeDatabaseOnly initializes just the database service
// Useful for read-only operations like listing uploads
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

// LoadCatalog reads the product catalog. A missing file yields an empty
// catalog so uploads keep product names as written.
func LoadCatalog(productsFile string) (*catalog.Catalog, error) {
	products, err := catalog.Load(productsFile)
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Warn("Product catalog not found, numeric product codes will not be translated",
			zap.String("file", productsFile))
		return catalog.New(nil)
	}
	if err != nil {
		return nil, err
	}

	zap.L().Info("Loaded product catalog",
		zap.String("file", productsFile),
		zap.Int("products", products.Len()))
	return products, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
