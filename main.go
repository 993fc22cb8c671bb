package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/mssp-stack/portal-backend/audit"
	"github.com/mssp-stack/portal-backend/config"
	"github.com/mssp-stack/portal-backend/consumer"
	"github.com/mssp-stack/portal-backend/database"
	"github.com/mssp-stack/portal-backend/handlers"
	"github.com/mssp-stack/portal-backend/middleware"
	"github.com/mssp-stack/portal-backend/models"
	"github.com/mssp-stack/portal-backend/monitoring"
	"github.com/mssp-stack/portal-backend/redis"
	"github.com/mssp-stack/portal-backend/registry"
	"github.com/mssp-stack/portal-backend/relationship"
	"github.com/mssp-stack/portal-backend/services"
	"github.com/mssp-stack/portal-backend/utils"
)

func main() {
	// Load .env file if it exists (optional - fails silently if not found)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	slog.SetDefault(logger)

	slog.Info("Starting Portal Backend initialization")

	// Audit enum vocabulary, overridable per deployment
	enums, err := config.LoadEnums(os.Getenv("AUDIT_ENUMS_PATH"))
	if err != nil {
		slog.Warn("Failed to load audit enum config, using defaults", "error", err)
		enums = config.GetDefaultEnums()
	}
	models.SetEnumConfig(enums)

	shutdownMetrics, err := monitoring.Setup(context.Background(), monitoring.Config{
		ServiceName: "portal-backend",
	})
	if err != nil {
		slog.Error("Failed to set up telemetry", "error", err)
		os.Exit(1)
	}

	dbConfig := database.NewDatabaseConfig()
	gormDB, err := database.ConnectGormDB(dbConfig)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	// SQLite starts empty on every boot; postgres schemas are managed by ops
	// unless RUN_MIGRATION is set
	if dbConfig.Type == database.TypeSQLite || os.Getenv("RUN_MIGRATION") == "true" {
		if err := database.Migrate(gormDB); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	reg := registry.NewRegistry(gormDB)
	engine := relationship.NewEngine(gormDB, reg)
	auditService := audit.NewService(gormDB)
	clientService := services.NewClientService(gormDB)
	contractService := services.NewContractService(gormDB)

	// All /api/v1/... routes go on this mux
	apiMux := http.NewServeMux()
	handlers.NewEntityHandler(reg, engine).SetupEntityRoutes(apiMux)
	handlers.NewClientHandler(clientService).SetupClientRoutes(apiMux)
	handlers.NewContractHandler(contractService).SetupContractRoutes(apiMux)
	handlers.NewAuditHandler(auditService).SetupAuditRoutes(apiMux)

	// Middleware chain for API traffic: CORS -> panic recovery -> metrics ->
	// request logging -> actor context
	requestContext := middleware.NewRequestContext(auditService)
	apiHandler := middleware.NewCORSMiddleware()(
		utils.PanicRecoveryMiddleware(
			monitoring.HTTPMetricsMiddleware(
				middleware.LoggingMiddleware(
					requestContext.Middleware(apiMux),
				),
			),
		),
	)

	topLevelMux := http.NewServeMux()
	handlers.NewHealthHandler(gormDB, "portal-backend").SetupHealthRoutes(topLevelMux)
	topLevelMux.Handle("/metrics", monitoring.Handler())
	topLevelMux.Handle("/api/v1/", apiHandler)

	// Security events arriving from the rest of the MSSP stack are consumed
	// off a Redis stream when one is configured.
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	if redisCfg := redis.LoadConfigFromEnv(); redisCfg != nil {
		redisClient, err := redis.NewClient(redisCfg)
		if err != nil {
			slog.Error("Failed to connect to Redis, stream consumer disabled", "error", err)
		} else {
			defer redisClient.Close()
			streamConsumer, err := consumer.NewStreamConsumer(redisClient, consumer.NewSecurityEventProcessor(auditService))
			if err != nil {
				slog.Error("Failed to initialize stream consumer", "error", err)
			} else {
				go streamConsumer.Start(consumerCtx)
			}
		}
	} else {
		slog.Info("REDIS_ADDR not set, security event stream consumer disabled")
	}

	server := utils.CreateServer(utils.DefaultServerConfig(), topLevelMux)
	if err := utils.StartServerWithGracefulShutdown(server, "portal-backend"); err != nil {
		os.Exit(1)
	}

	stopConsumer()

	if sqlDB, err := gormDB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownMetrics(shutdownCtx); err != nil {
		slog.Error("Failed to flush telemetry", "error", err)
	}

	slog.Info("Portal Backend exited")
}
