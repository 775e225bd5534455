package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/peskas/gateway/internal/artifact"
	"github.com/peskas/gateway/internal/audit"
	"github.com/peskas/gateway/internal/config"
	"github.com/peskas/gateway/internal/policy"
	"github.com/peskas/gateway/internal/query"
	"github.com/peskas/gateway/internal/schema"
	"github.com/peskas/gateway/internal/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("GATEWAY_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("GATEWAY_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Load the API key policy snapshot. Immutable for the process lifetime;
	// a policy change requires a restart.
	snapshot, err := policy.LoadFile(cfg.Keys.Path)
	if err != nil {
		return err
	}
	log.Info().Int("keys", snapshot.Len()).Str("path", cfg.Keys.Path).Msg("loaded API key registry")

	// Static dataset catalog.
	registry := schema.Default()

	// Audit pipeline: Postgres for the durable trail, Redis for live fanout,
	// structured log as the fallback when neither is configured.
	var writers []audit.Writer
	if cfg.Audit.PostgresDSN != "" {
		pgWriter, pgErr := audit.NewPostgresWriter(ctx, cfg.Audit.PostgresDSN)
		if pgErr != nil {
			return pgErr
		}
		defer pgWriter.Close()
		writers = append(writers, pgWriter)
	}
	if cfg.Audit.RedisAddr != "" {
		redisWriter, redisErr := audit.NewRedisWriter(ctx,
			cfg.Audit.RedisAddr, cfg.Audit.RedisPassword, cfg.Audit.RedisDB, cfg.Audit.RedisChannel)
		if redisErr != nil {
			return redisErr
		}
		defer redisWriter.Close()
		writers = append(writers, redisWriter)
	}
	if len(writers) == 0 {
		writers = append(writers, audit.LogWriter{})
	}
	sink := audit.NewDispatcher(cfg.Audit.BufferSize, writers...)

	// Remote artifact store and local cache. The resolver probe-writes the
	// cache directory so an unwritable scratch root fails here, not on the
	// first request.
	store, err := artifact.NewS3Store(ctx, artifact.S3Options{
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
	})
	if err != nil {
		return err
	}

	resolver, err := artifact.NewResolver(store, cfg.Cache.Dir, cfg.Cache.DownloadRetries)
	if err != nil {
		return err
	}

	// Analytical engine.
	engine, err := query.NewEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	evaluator := policy.NewEvaluator(sink, cfg.Query.MaxLimit)

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := server.New(ctx, cfg, registry, snapshot, evaluator, resolver, engine, sink)

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("bucket", cfg.Storage.Bucket).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	// Flush buffered audit events before exit.
	if auditErr := sink.Close(shutdownCtx); auditErr != nil {
		log.Warn().Err(auditErr).Msg("audit dispatcher did not drain in time")
	}

	log.Info().Msg("stopped")
	return nil
}
