package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/Boris-Bot69/fitness-ios/internal/blob"
	"github.com/Boris-Bot69/fitness-ios/internal/config"
	"github.com/Boris-Bot69/fitness-ios/internal/dbmigrate"
	"github.com/Boris-Bot69/fitness-ios/internal/events"
	"github.com/Boris-Bot69/fitness-ios/internal/httpserver"
	"github.com/Boris-Bot69/fitness-ios/internal/storage"
	"github.com/Boris-Bot69/fitness-ios/internal/storage/memory"
	"github.com/Boris-Bot69/fitness-ios/internal/storage/postgres"
)

func main() {
	cfg := config.Load()

	printStartupBanner(cfg)
	validateProductionConfig(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	if cfg.RunMigrationsOnStartup {
		target, err := dbmigrate.SelectTarget(cfg, true)
		if err != nil {
			log.Fatalf("FATAL startup migrations: %v", err)
		}

		log.Printf("startup migrations: command=up using=%s", target.Source)
		if err := dbmigrate.Run(ctx, "up", target.URL); err != nil {
			log.Fatalf("FATAL startup migrations failed: %v", err)
		}
		log.Printf("startup migrations: completed")
	}

	store := initStorage(ctx, cfg)
	deps := httpserver.Deps{Logger: logger}

	archive, err := blob.OpenArchive(ctx, cfg.Blob, log.Default())
	if err != nil {
		log.Fatalf("FATAL blob: %v", err)
	}
	deps.Archive = archive

	if cfg.Kafka.Enabled() {
		deps.Publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.WorkoutTopic)
		defer deps.Publisher.Close()
		log.Printf("INFO events: publishing to topic=%s brokers=%s", cfg.Kafka.WorkoutTopic, strings.Join(cfg.Kafka.Brokers, ","))
	}

	server := httpserver.New(cfg, store, deps)
	defer server.Close()

	if err := server.Start(ctx); err != nil {
		log.Fatal(err)
	}
}

// initStorage подключается к Postgres или использует in-memory хранилище.
// Outside local env a configured but unreachable database is fatal.
func initStorage(ctx context.Context, cfg *config.Config) storage.Storage {
	if cfg.DatabaseURL == "" {
		log.Println("INFO storage: DATABASE_URL not set, using in-memory storage")
		return memory.New()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pg, err := postgres.New(connectCtx, cfg.DatabaseURL)
	if err != nil {
		if cfg.Env != "local" {
			log.Fatalf("FATAL storage: postgres connection failed: %v", err)
		}
		log.Printf("WARN storage: postgres connection failed (%v), falling back to in-memory storage", err)
		return memory.New()
	}

	log.Println("INFO storage: using postgres")
	return pg
}

// printStartupBanner logs a one-time summary of the resolved configuration.
// Secrets are only reported as "set" / "not set".
func printStartupBanner(cfg *config.Config) {
	log.Println("========== Workouts API ==========")
	log.Printf("  env              = %s", cfg.Env)
	log.Printf("  port             = %d", cfg.Port)
	log.Printf("  log_level        = %s", cfg.LogLevel)

	log.Println("---- database ----")
	log.Printf("  runtime_url      = %s", describeDBURL(cfg.DatabaseURL, cfg.DatabaseURLPooled))
	log.Printf("  direct           = %s", setOrNot(cfg.DatabaseURLDirect))
	log.Printf("  migrations_on_startup = %t", cfg.RunMigrationsOnStartup)

	log.Println("---- auth ----")
	log.Printf("  auth_mode        = %s", cfg.AuthMode)
	log.Printf("  auth_required    = %t", cfg.AuthRequired)
	log.Printf("  jwt_secret       = %s", secretStatus(cfg.JWTSecret, "change_me"))

	log.Println("---- pipeline ----")
	log.Printf("  sample_period_s  = %g", cfg.Pipeline.SamplePeriodSeconds)
	log.Printf("  max_sample_rate  = %d", cfg.Pipeline.MaxSampleRateSeconds)
	log.Printf("  max_body_bytes   = %d", cfg.Pipeline.MaxBodyBytes)
	log.Printf("  distance_unit_m  = %g", cfg.Pipeline.DistanceUnitMeters)

	log.Println("---- blob ----")
	log.Printf("  blob_mode        = %s", cfg.Blob.Mode)
	if cfg.Blob.Mode != config.BlobModeLocal {
		log.Printf("  s3: %s", cfg.Blob.S3.DiagnosticsSummary())
	}

	log.Println("---- events ----")
	if cfg.Kafka.Enabled() {
		log.Printf("  kafka_topic      = %s", cfg.Kafka.WorkoutTopic)
	} else {
		log.Printf("  kafka            = disabled")
	}
	log.Println("==================================")
}

// validateProductionConfig performs fatal checks that only matter in non-local envs.
func validateProductionConfig(cfg *config.Config) {
	isProd := cfg.Env == "production" || cfg.Env == "prod" || cfg.Env == "staging"

	if cfg.Blob.Mode == config.BlobModeS3 {
		if missing := cfg.Blob.S3.MissingRequired(); len(missing) > 0 {
			log.Fatalf("FATAL blob: BLOB_MODE is 's3' but S3 config is incomplete, missing: %s", strings.Join(missing, ", "))
		}
	}

	if isProd && cfg.AuthMode == config.AuthModeDev {
		log.Fatalf("FATAL auth: AUTH_MODE=dev is not allowed in %s", cfg.Env)
	}

	if isProd && cfg.AuthRequired && cfg.JWTSecret == "change_me" {
		log.Fatalf("FATAL auth: JWT_SECRET must not be 'change_me' in %s with AUTH_REQUIRED=1", cfg.Env)
	}

	if isProd && cfg.DatabaseURL == "" {
		log.Fatalf("FATAL db: no DATABASE_URL configured in %s", cfg.Env)
	}
}

func setOrNot(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not set"
	}
	return "set"
}

func secretStatus(v, insecureDefault string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "not set"
	}
	if v == insecureDefault {
		return fmt.Sprintf("set (DEFAULT, insecure '%s')", insecureDefault)
	}
	return "set (custom)"
}

func describeDBURL(runtime, pooled string) string {
	if runtime == "" {
		return "not set (will use in-memory storage)"
	}
	if pooled != "" && runtime == pooled {
		return "set (via DATABASE_URL_POOLED)"
	}
	return "set"
}
