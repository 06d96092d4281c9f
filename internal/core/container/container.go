package container

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/novozhilovsergeydisk/tool-system/internal/catalog"
	"github.com/novozhilovsergeydisk/tool-system/internal/core/config"
	"github.com/novozhilovsergeydisk/tool-system/internal/dashboard"
	"github.com/novozhilovsergeydisk/tool-system/internal/fleet"
	"github.com/novozhilovsergeydisk/tool-system/internal/history"
	"github.com/novozhilovsergeydisk/tool-system/internal/integrations/googlesheets"
	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/consumables"
	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/kits"
	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/ledger"
	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/movements"
	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/placement"
	"github.com/novozhilovsergeydisk/tool-system/internal/inventory/tools"
	"github.com/novozhilovsergeydisk/tool-system/internal/locations"
	"github.com/novozhilovsergeydisk/tool-system/internal/middleware"
	"github.com/novozhilovsergeydisk/tool-system/internal/rate_limiter"
	"github.com/novozhilovsergeydisk/tool-system/internal/repository"
	"github.com/novozhilovsergeydisk/tool-system/internal/users"
	"github.com/novozhilovsergeydisk/tool-system/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const Version = "1.0.0"

type RouteRegistrar interface {
	RegisterRoutes(router *gin.RouterGroup)
}

type Container struct {
	Repository   *repository.Repository
	Ledger       *ledger.Ledger
	Users        security.ActorLoader
	LoginLimiter *rate_limiter.RateLimiter
	LoginHandler *security.LoginHandler
	Health       *middleware.HealthCheck
	Handlers     []RouteRegistrar
}

func NewAppContainer(ctx context.Context, cfg *config.Config, db *sql.DB, logger *zap.Logger) (*Container, error) {
	repo := repository.NewRepository(db)

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return nil, err
	}
	movementLedger := ledger.New(ledger.NewRepository(repo), publisher, logger)

	userRepo := users.NewRepository(repo)
	locationRepo := locations.NewLocationRepository(repo)
	nomenclatureRepo := catalog.NewRepository(repo)
	toolRepo := tools.NewRepository(repo)
	balanceRepo := consumables.NewRepository(repo)
	kitRepo := kits.NewRepository(repo)
	carRepo := fleet.NewRepository(repo)

	if _, err := locationRepo.GetWarehouse(ctx, cfg.DefaultWarehouseID); err != nil {
		return nil, fmt.Errorf("default warehouse %d is not available: %w", cfg.DefaultWarehouseID, err)
	}

	relocator := placement.NewRelocator(toolRepo, balanceRepo, kitRepo, movementLedger)

	movementService := movements.NewService(movements.Dependencies{
		Transactor:         repo,
		Tools:              toolRepo,
		Balances:           balanceRepo,
		Kits:               kitRepo,
		Relocator:          relocator,
		Ledger:             movementLedger,
		Users:              userRepo,
		Warehouses:         locationRepo,
		Catalog:            nomenclatureRepo,
		Cars:               carRepo,
		DefaultWarehouseID: cfg.DefaultWarehouseID,
	})
	kitService := kits.NewService(kits.Dependencies{
		Transactor: repo,
		Kits:       kitRepo,
		Tools:      toolRepo,
		Balances:   balanceRepo,
		Relocator:  relocator,
		Ledger:     movementLedger,
		Users:      userRepo,
		Warehouses: locationRepo,
	})
	fleetService := fleet.NewService(fleet.Dependencies{
		Transactor:         repo,
		Cars:               carRepo,
		Tools:              toolRepo,
		Balances:           balanceRepo,
		Relocator:          relocator,
		Ledger:             movementLedger,
		Users:              userRepo,
		DefaultWarehouseID: cfg.DefaultWarehouseID,
	})

	sheets, err := newSheetsExporter(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	historyService := history.NewService(movementLedger, sheets, logger)

	dashboardService := dashboard.NewService(
		dashboard.NewRepository(repo),
		fleetService,
		dashboard.NewCache(ctx, cfg.RedisAddress, logger),
		cfg.DashboardCacheTTL,
		logger,
	)

	limiter := rate_limiter.NewRateLimiter(10, 5*time.Minute)

	return &Container{
		Repository:   repo,
		Ledger:       movementLedger,
		Users:        userRepo,
		LoginLimiter: limiter,
		LoginHandler: security.NewLoginHandler(userRepo, limiter, logger),
		Health:       middleware.NewHealthCheck(db, Version),
		Handlers: []RouteRegistrar{
			catalog.NewHandler(catalog.NewService(nomenclatureRepo)),
			locations.NewLocationHandler(locations.NewLocationService(locationRepo, toolRepo, balanceRepo, cfg.DefaultWarehouseID)),
			users.NewHandler(users.NewService(userRepo, locationRepo, cfg.DefaultWarehouseID)),
			movements.NewHandler(movementService),
			kits.NewHandler(kitService),
			fleet.NewHandler(fleetService),
			history.NewHandler(historyService),
			dashboard.NewHandler(dashboardService),
		},
	}, nil
}

func newPublisher(cfg *config.Config, logger *zap.Logger) (ledger.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("Kafka brokers not configured, movements are not published")
		return ledger.NopPublisher{}, nil
	}

	publisher, err := ledger.NewKafkaPublisher(ledger.KafkaConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
		Acks:    cfg.KafkaAcks,
		Retries: cfg.KafkaRetries,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}
	logger.Info("Publishing movements to Kafka",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
	)
	return publisher, nil
}

// newSheetsExporter returns a nil interface when no spreadsheet is configured.
func newSheetsExporter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (history.SheetsExporter, error) {
	sheetsConfig := googlesheets.Config{
		CredentialsJSON: cfg.SheetsCredentialsJSON,
		CredentialsFile: cfg.SheetsCredentialsFile,
		SpreadsheetID:   cfg.SheetsSpreadsheetID,
		Range:           cfg.SheetsRange,
	}
	if !sheetsConfig.Enabled() {
		return nil, nil
	}

	exporter, err := googlesheets.NewExporter(ctx, sheetsConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up Google Sheets export: %w", err)
	}
	return exporter, nil
}

func (c *Container) Close() error {
	return c.Ledger.Close()
}
