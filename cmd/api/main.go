package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/flowboard/backend/internal/api/handlers"
	"github.com/flowboard/backend/internal/flow"
	graphdb "github.com/flowboard/backend/internal/graph/neo4j"
	"github.com/flowboard/backend/internal/ingestion"
	"github.com/flowboard/backend/internal/metrics"
	"github.com/flowboard/backend/internal/middleware/ratelimit"
	"github.com/flowboard/backend/internal/middleware/security"
	"github.com/flowboard/backend/internal/middleware/validation"
	"github.com/flowboard/backend/internal/providers"
	"github.com/flowboard/backend/internal/risk"
	"github.com/flowboard/backend/internal/storage/sqlite"
	"github.com/flowboard/backend/internal/testapi"
	"github.com/flowboard/backend/pkg/config"
	appLogger "github.com/flowboard/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting flow risk dashboard API server")

	metrics.Init()

	graph, err := flow.Load(cfg.FlowGraph.Path)
	if err != nil {
		appLogger.Fatal("Failed to load flow graph", zap.Error(err))
	}

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var graphClient *graphdb.Client
	if cfg.Neo4j.Enabled {
		graphClient, err = graphdb.NewClient(
			cfg.Neo4j.URI,
			cfg.Neo4j.Username,
			cfg.Neo4j.Password,
			cfg.Neo4j.Database,
		)
		if err != nil {
			appLogger.Fatal("Failed to create Neo4j client", zap.Error(err))
		}
		defer graphClient.Close(context.Background())

		if err := graphClient.SyncGraph(context.Background(), graph); err != nil {
			appLogger.Warn("Failed to sync flow graph to neo4j", zap.Error(err))
		}
	}

	statsCache, err := testapi.NewCache(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		appLogger.Warn("Redis unavailable, test stats caching disabled", zap.Error(err))
		statsCache = nil
	} else {
		defer statsCache.Close()
	}

	testClient := testapi.NewClient(
		cfg.TestAPI.BaseURL,
		cfg.TestAPI.APIKey,
		time.Duration(cfg.TestAPI.TimeoutSec)*time.Second,
		statsCache,
		time.Duration(cfg.TestAPI.CacheTTL)*time.Second,
	)

	bugStore := providers.NewBugStore(sqliteClient)
	aggregator := risk.NewAggregator(bugStore, testClient, appLogger.GetLogger())
	processor := ingestion.NewProcessor(sqliteClient)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(func(c *fiber.Ctx) error {
		err := c.Next()
		metrics.RequestTotal.WithLabelValues(c.Path(), strconv.Itoa(c.Response().StatusCode())).Inc()
		return err
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Client-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		MaxImportSize: cfg.Server.BodyLimit,
		Logger:        appLogger.GetLogger(),
	}))

	riskHandler := handlers.NewRiskHandler(graph, aggregator)
	flowHandler := handlers.NewFlowHandler(graph, graphClient)
	bugHandler := handlers.NewBugHandler(sqliteClient, processor)
	wsHandler := handlers.NewWebSocketHandler(graph, aggregator)

	api := app.Group("/api/v1")

	api.Get("/flow", flowHandler.HandleGraph)
	api.Get("/flow/screens/:id", flowHandler.HandleScreen)
	api.Get("/flow/screens/:id/neighbors", flowHandler.HandleNeighbors)
	api.Get("/flow/paths", flowHandler.HandlePaths)

	api.Get("/risk/overview", riskHandler.HandleOverview)
	api.Get("/risk/screens/:id", riskHandler.HandleScreen)
	api.Get("/risk/features/:key", riskHandler.HandleFeature)

	api.Get("/bugs", bugHandler.HandleList)
	api.Get("/bugs/summary", bugHandler.HandleSummary)
	api.Post("/bugs/import", bugHandler.HandleImport)

	api.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
