/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the order revision engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse environment config
  2. Parse command-line flags (flags override env)
  3. Build the root logger
  4. Initialize SQLite store
  5. Load or seed the workflow configuration
  6. Connect the event publisher (NATS when configured, log otherwise)
  7. Create the revision service and API handler
  8. Start the reminder scheduler and HTTP server with graceful shutdown

CONFIGURATION:
  Environment (or .env file):
    PORT               HTTP server port (default: 8080)
    DATABASE_URL       SQLite database path (default: revisions.db)
    LOG_LEVEL          zerolog level: debug, info, warn, error (default: info)
    NATS_URL           NATS server URL; empty disables NATS publishing
    REMINDER_INTERVAL  Reminder sweep interval (default: 15m)

  Flags (override environment when set):
    -port    HTTP server port
    -db      SQLite database path, ":memory:" for in-memory

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the reminder scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/revisions.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Publish events to NATS
  NATS_URL=nats://localhost:4222 ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/warp/revision-engine/api"
	"github.com/warp/revision-engine/factory"
	"github.com/warp/revision-engine/orders"
	"github.com/warp/revision-engine/revision"
	"github.com/warp/revision-engine/store/sqlite"
)

// Config is the environment-driven configuration.
type Config struct {
	Port             int           `env:"PORT" envDefault:"8080"`
	DatabaseURL      string        `env:"DATABASE_URL" envDefault:"revisions.db"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	NATSURL          string        `env:"NATS_URL"`
	ReminderInterval time.Duration `env:"REMINDER_INTERVAL" envDefault:"15m"`
}

func main() {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse environment: %v\n", err)
		os.Exit(1)
	}

	// Flags override environment when set
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DatabaseURL, "SQLite database path")
	flag.Parse()

	log := newLogger(cfg.LogLevel)

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	// Load the stored workflow config, seeding a default on first run
	workflow, err := loadWorkflow(store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load workflow configuration")
	}

	// Event publisher: NATS when configured, structured log otherwise
	pub, cleanup := newPublisher(cfg.NATSURL, log)
	defer cleanup()

	// Revision service
	svc := revision.NewService(store, *workflow,
		revision.WithLogger(log),
		revision.WithPublisher(pub),
	)

	// API handler and router
	handler := api.NewHandler(store, svc, log)
	router := api.NewRouter(handler)

	// Reminder scheduler
	scheduler := api.NewReminderScheduler(store, pub, log)
	scheduler.CheckInterval = cfg.ReminderInterval
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", *port).Str("db", *dbPath).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// newLogger builds the root console logger at the configured level.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}

// loadWorkflow reads the stored default workflow, seeding the standard
// two-level config on an empty database.
func loadWorkflow(store *sqlite.Store, log zerolog.Logger) (*revision.WorkflowConfig, error) {
	ctx := context.Background()
	f := factory.NewWorkflowFactory()

	configJSON, err := store.GetWorkflow(ctx, "purchase-standard")
	if err != nil {
		return nil, err
	}
	if configJSON == "" {
		configJSON = orders.TwoLevelWorkflowJSON("purchase-standard",
			"u-dana", "Dana Kim", "u-sam", "Sam Ortiz", 500, 10)
		if err := store.SaveWorkflow(ctx, "purchase-standard", configJSON); err != nil {
			return nil, err
		}
		log.Info().Msg("seeded default workflow configuration")
	}

	return f.ParseWorkflow(configJSON)
}

// newPublisher connects to NATS when a URL is configured. Connection
// failures fall back to the log publisher; events are best-effort.
func newPublisher(natsURL string, log zerolog.Logger) (revision.Publisher, func()) {
	if natsURL == "" {
		return revision.NewLogPublisher(log), func() {}
	}

	conn, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		log.Warn().Err(err).Str("url", natsURL).
			Msg("NATS connect failed, falling back to log publisher")
		return revision.NewLogPublisher(log), func() {}
	}

	log.Info().Str("url", natsURL).Msg("publishing events to NATS")
	return revision.NewNATSPublisher(conn, "revisions"), func() { conn.Close() }
}
