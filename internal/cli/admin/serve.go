package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/veldt-labs/corpora/internal/api/handlers"
	"github.com/veldt-labs/corpora/internal/config"
	"github.com/veldt-labs/corpora/internal/database"
	"github.com/veldt-labs/corpora/internal/domain"
	"github.com/veldt-labs/corpora/internal/ingest"
	"github.com/veldt-labs/corpora/internal/openai"
	"github.com/veldt-labs/corpora/internal/repository"
	"github.com/veldt-labs/corpora/internal/server"
	"github.com/veldt-labs/corpora/internal/service"
	"github.com/veldt-labs/corpora/internal/storage"
	"github.com/veldt-labs/corpora/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the corpora API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if CORPORA_SENTRY_DSN is set
	if cfg.SentryDSN != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	groupRepo := repository.NewGroupRepository(pool)
	snapshotRepo := repository.NewSnapshotRepository(pool)
	vectorRepo := repository.NewVectorRepository(pool)

	if !cfg.HasS3() {
		return fmt.Errorf("S3 configuration required: set CORPORA_S3_ENDPOINT, CORPORA_S3_ACCESS_KEY_ID and CORPORA_S3_SECRET_ACCESS_KEY")
	}
	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		UsePathStyle:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("embedding configuration required: set CORPORA_OPENAI_API_KEY")
	}
	embeddingClient := openai.NewClient(cfg.OpenAIAPIKey)

	pipeline := ingest.NewPipeline(
		s3Client,
		embeddingClient,
		vectorRepo,
		&sourceStatusRecorder{snapshots: snapshotRepo},
		ingest.Config{
			Workers:       cfg.IngestWorkers,
			BatchSize:     cfg.EmbedBatchSize,
			MaxRetries:    cfg.IngestMaxRetries,
			RetryBackoff:  cfg.IngestRetryBackoff,
			SourceTimeout: cfg.IngestSourceTimeout,
		},
	)

	registry := service.NewGroupRegistry(groupRepo)
	snapshotMgr := service.NewSnapshotManager(groupRepo, snapshotRepo, pipeline)
	queryEngine := service.NewQueryEngine(groupRepo, snapshotRepo, embeddingClient, vectorRepo)

	routerCfg := server.RouterConfig{
		GroupHandler:    handlers.NewGroupHandler(registry),
		SnapshotHandler: handlers.NewSnapshotHandler(snapshotMgr),
		QueryHandler:    handlers.NewQueryHandler(queryEngine),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Let in-flight ingestions finish recording their outcomes before the
	// database pool closes.
	pipeline.Wait()

	log.Println("server exited")
	return nil
}

type sourceStatusRecorder struct {
	snapshots *repository.SnapshotRepository
}

func (r *sourceStatusRecorder) RecordSourceStatus(ctx context.Context, snapshotID, sourceID string, status domain.SourceStatus) error {
	return r.snapshots.UpdateSourceStatus(ctx, snapshotID, sourceID, status)
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	upToDate := err == migrate.ErrNoChange

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	msg, err := migrationOutcome(version, dirty, err == migrate.ErrNilVersion, upToDate)
	if err != nil {
		return err
	}
	log.Println(msg)
	return nil
}

// migrationOutcome describes the post-migration database state. nilVersion
// means no migration has ever been applied; upToDate means Up found nothing
// new to apply.
func migrationOutcome(version uint, dirty, nilVersion, upToDate bool) (string, error) {
	switch {
	case nilVersion:
		return "migrations: database is up to date (no migrations applied)", nil
	case dirty:
		return "", fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	case upToDate:
		return fmt.Sprintf("migrations: database is up to date (version %d)", version), nil
	default:
		return fmt.Sprintf("migrations: applied successfully (version %d)", version), nil
	}
}
