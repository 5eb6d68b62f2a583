// API Studio Core - authentication and project access service
//
// This is the main entry point for the API Studio backend. It serves:
//   - Account registration, login and logout with server-side sessions
//   - Session listing and revocation
//   - An append-only audit trail of authentication events
//   - Projects with per-project owner/developer/viewer roles
//
// For configuration, see: configs/config.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/DanialSobri/api-studio/internal/api"
	"github.com/DanialSobri/api-studio/internal/audit"
	"github.com/DanialSobri/api-studio/internal/auth"
	"github.com/DanialSobri/api-studio/internal/infrastructure/config"
	"github.com/DanialSobri/api-studio/internal/infrastructure/database"
	"github.com/DanialSobri/api-studio/internal/infrastructure/influxdb"
	"github.com/DanialSobri/api-studio/internal/infrastructure/logging"
	"github.com/DanialSobri/api-studio/internal/infrastructure/mqtt"
	"github.com/DanialSobri/api-studio/internal/infrastructure/ratelimit"
	"github.com/DanialSobri/api-studio/internal/project"
	"github.com/DanialSobri/api-studio/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear start-up sequence
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting API Studio Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	probes := []api.HealthProbe{{Name: "database", Check: db.HealthCheck}}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		probes = append(probes, api.HealthProbe{Name: "mqtt", Check: mqttClient.HealthCheck})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		probes = append(probes, api.HealthProbe{Name: "influxdb", Check: influxClient.HealthCheck})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	// Redis (optional, backs the login rate limiter)
	var limiter api.LoginLimiter
	rdb, err := ratelimit.Connect(ctx, cfg.Redis)
	switch {
	case errors.Is(err, ratelimit.ErrDisabled):
		log.Info("Redis disabled, login rate limiting off")
	case err != nil:
		return fmt.Errorf("connecting to Redis: %w", err)
	default:
		defer func() {
			log.Info("closing Redis connection")
			if closeErr := rdb.Close(); closeErr != nil {
				log.Error("error closing Redis", "error", closeErr)
			}
		}()
		probes = append(probes, api.HealthProbe{Name: "redis", Check: redisProbe(rdb)})
		if cfg.Security.RateLimit.Enabled {
			limiter = ratelimit.NewLimiter(rdb, "login", cfg.Security.RateLimit.LoginAttempts, cfg.GetRateLimitWindow())
		}
		log.Info("Redis connected",
			"addr", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			"rate_limit", cfg.Security.RateLimit.Enabled,
		)
	}

	// Audit trail and its sinks
	auditRepo := audit.NewSQLiteRepository(db.DB)
	auditLog := audit.NewLog(auditRepo, log.Logger)
	if mqttClient != nil {
		auditLog.AddSink(audit.NewMQTTSink(mqttClient, log.Logger))
	}
	if influxClient != nil {
		auditLog.AddSink(audit.NewInfluxSink(influxClient))
	}

	// Authentication
	users := auth.NewUserRepository(db.DB)
	sessions := auth.NewSessionManager(auth.NewSessionRepository(db.DB), log.Logger)
	sessions.SetNotifier(auditLog)
	hasher := auth.NewPasswordHasher(cfg.Security.Password)

	authenticator, err := auth.NewAuthenticator(auth.AuthenticatorDeps{
		Users:    users,
		Sessions: sessions,
		Hasher:   hasher,
		Tokens:   auth.NewTokenCodec(cfg.Security.JWT.Secret),
		Audit:    auditLog,
		TokenTTL: cfg.GetAccessTokenTTL(),
		Logger:   log.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating authenticator: %w", err)
	}

	if _, err := auth.SeedAdmin(ctx, users, hasher, cfg.Security.Admin.Email, log.Logger); err != nil {
		return fmt.Errorf("seeding admin account: %w", err)
	}

	// API server
	apiServer, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Logger:    log,
		Auth:      authenticator,
		AuditRepo: auditRepo,
		AuditLog:  auditLog,
		Projects:  project.NewSQLiteDirectory(db.DB),
		Limiter:   limiter,
		DB:        db.DB,
		Probes:    probes,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred closes run in reverse order:
	// API server, Redis, InfluxDB, MQTT, database.

	log.Info("API Studio Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses APISTUDIO_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("APISTUDIO_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// redisProbe adapts a Redis PING to a health probe.
func redisProbe(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}
