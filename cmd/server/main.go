package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/georgeshao/canned-status/internal/api"
	"github.com/georgeshao/canned-status/internal/config"
	"github.com/georgeshao/canned-status/internal/dispatcher"
	"github.com/georgeshao/canned-status/internal/journal"
	"github.com/georgeshao/canned-status/internal/journal/pebbledb"
	"github.com/georgeshao/canned-status/internal/journal/sqlite"
)

func main() {
	if err := run(); err != nil {
		log.Errorf("Server exited: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log.SetLevel(cfg.LogLevel)

	d := dispatcher.New(log.DefaultLogger())

	// Initialize journal
	var store journal.Store
	var writer *journal.Writer
	if cfg.Journal.Enabled() {
		store, err = openJournal(cfg.Journal)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Errorf("Failed to close journal: %v", err)
			}
		}()
		writer = journal.NewWriter(store, cfg.Journal.WriterConfig())
		log.Infof("Journal enabled (%s at %s)", cfg.Journal.Backend, cfg.Journal.Path)
	}

	app := fiber.New(api.AppConfig())

	// Middleware
	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,HEAD",
	}))

	api.SetupRoutes(app, d, store, writer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("Starting server at %s", config.ListenAddr)
		if err := app.Listen(config.ListenAddr); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down server...")
		err := app.Shutdown()
		// In-flight handlers are done, nothing else will be enqueued.
		if writer != nil {
			writer.Close()
		}
		return err
	})

	if writer != nil {
		g.Go(func() error {
			return writer.Run(context.Background())
		})
	}

	return g.Wait()
}

func openJournal(cfg config.JournalConfig) (journal.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		store, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite journal: %w", err)
		}
		return store, nil
	case config.BackendPebble:
		store, err := pebbledb.New(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize pebble journal: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported journal backend: %s", cfg.Backend)
	}
}
