package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"repo-sync/core/loader"
	"repo-sync/core/logger"
	"repo-sync/core/middleware/auth"
	"repo-sync/core/middleware/rayid"

	"repo-sync/feature/integrity"
	"repo-sync/feature/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "repo-sync/docs/swagger"
)

// @title Repo Sync API
// @version 1.0
// @description API for declaring repository URLs and reconciling repository records.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the repo sync server",
	Long:  `Starts the HTTP server, the reconciliation scheduler and all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Configuration, logger, database, providers
		rt, err := bootstrap(true)
		if err != nil {
			log.Fatalf("Failed to initialize: %v", err)
		}
		defer rt.close()
		logg := rt.logger
		zap.ReplaceGlobals(logg)

		// 2. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
		})

		// 3. Initialize Feature Loader
		mgr := loader.NewManager(logg)

		// Register Features
		mgr.Register(integrity.NewFeature(rt.objects, rt.cfg.Storage.Bucket, logg, rt.db, rt.registry, rt.cfg.Providers.Enabled))
		mgr.Register(repository.NewFeature(rt.service))

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Logging Middleware (Custom to use Zap + RayID)
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 2.5 Swagger Documentation (Public)
		app.Get("/swagger/*", swagger.HandlerDefault)

		// 3. Auth (Protect API)
		app.Use(auth.New(auth.Config{ApiKey: rt.cfg.Server.ApiKey}))

		// 4. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 5. Scheduled reconciliation
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		schedulerDone := make(chan struct{})
		go func() {
			defer close(schedulerDone)
			rt.service.Run(ctx, rt.cfg.Reconcile.Interval)
		}()

		// 6. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", rt.cfg.Server.Port))
			if err := app.Listen(rt.cfg.Server.Address()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 7. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()

		// In-flight writes complete; no new fetch or write starts
		cancel()
		<-schedulerDone
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
