package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"

	"github.com/unlistedhub/unlisted-backend/config"
	"github.com/unlistedhub/unlisted-backend/database"
	"github.com/unlistedhub/unlisted-backend/handlers"
	"github.com/unlistedhub/unlisted-backend/jobs"
	"github.com/unlistedhub/unlisted-backend/services"
	"github.com/unlistedhub/unlisted-backend/shared"
)

func main() {
	cfg := config.LoadConfig()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if err := database.Connect(cfg.DatabaseURL); err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate("database/schema.sql"); err != nil {
		logrus.Warnf("Database migration failed: %v", err)
	}

	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		logrus.Fatalf("Failed to load sources: %v", err)
	}

	listingService := services.NewListingService(database.DB)
	registry := services.NewExtractorRegistry(
		services.NewUnlistedZoneExtractor(),
		services.NewUnlistedArenaExtractor(),
	)
	coordinator := services.NewCoordinator(listingService, cfg.FetchTimeout)
	httpFetcher := shared.NewHTTPPageFetcher(cfg.FetchTimeout, cfg.RequestsPerSecond)
	renderedFetcher := shared.NewRenderedPageFetcher(0)
	discovery := services.NewLinkDiscovery()

	ingestJob := jobs.NewIngestJob(coordinator, registry, sources, httpFetcher, renderedFetcher, discovery)
	go ingestJob.Run()
	if err := ingestJob.Start(cfg.IngestCron); err != nil {
		logrus.Fatalf("Failed to schedule ingestion job: %v", err)
	}
	defer ingestJob.Stop()

	app := fiber.New(fiber.Config{
		AppName: "Unlisted Shares Backend",
	})
	app.Use(logger.New())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	listingHandler := handlers.NewListingHandler(listingService)
	adminHandler := handlers.NewAdminHandler(ingestJob)

	api := app.Group("/api")
	api.Get("/unlisted", listingHandler.GetListings)
	api.Get("/latest", listingHandler.GetLatestListings)
	api.Get("/search", listingHandler.SearchListings)

	// TODO: Add auth middleware before exposing this beyond internal use.
	admin := api.Group("/admin")
	admin.Post("/ingest", adminHandler.TriggerIngest)

	logrus.WithField("port", cfg.ServerPort).Info("Starting server")
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logrus.Fatalf("Server failed to start: %v", err)
	}
}
