package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repost-manager/core/config"
	"repost-manager/core/database"
	"repost-manager/core/loader"
	"repost-manager/core/logger"
	"repost-manager/core/middleware/auth"
	"repost-manager/core/middleware/rayid"
	"repost-manager/core/relay"
	"repost-manager/feature/repost"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the repost manager server",
	Long:  `Starts the HTTP server, seeds the local cache, and syncs reposts from the relays.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to the local cache database
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Failed to connect to local cache database", zap.Error(err))
		}
		if err := repost.Migrate(db); err != nil {
			logg.Fatal("Failed to migrate local cache", zap.Error(err))
		}
		logg = logg.With(zap.String("pubkey", cfg.Server.Pubkey))
		logg.Info("Connected to local cache database")

		// 4. Relay gateway and reconciliation engine
		signer := relay.NewLocalSigner(cfg.Server.Pubkey, cfg.Server.Secret)
		gateway := relay.NewClient(cfg.Relay, signer, logg)
		store := repost.NewGormStore(db, cfg.Server.Pubkey)
		engine := repost.NewEngine(store, gateway, repost.Config{
			Pubkey:     cfg.Server.Pubkey,
			FetchLimit: cfg.Server.FetchLimit,
		}, logg)
		defer engine.Close()

		// The server runs for one authenticated local session.
		authCh := make(chan bool, 1)
		authCh <- true
		engine.WatchAuth(authCh)

		// 5. Kick off the initial two-phase sync in the background so
		// the server serves Phase A data immediately.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			result, err := engine.SyncUserReposts(ctx)
			if err != nil {
				logg.Warn("Initial repost sync failed", zap.Error(err))
				return
			}
			logg.Info("Initial repost sync complete", zap.Int("records", len(result.OrderedRefs)))
		}()

		// 6. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We log our own startup message
		})

		// Middleware: ray ids first so everything is traceable.
		app.Use(rayid.New())
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
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 7. Load Features
		mgr := loader.NewManager()
		mgr.Register(repost.NewFeature(engine, logg))
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 8. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 9. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		return app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
