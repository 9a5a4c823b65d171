package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/dosahub/backend-pos/internal/config"
	"github.com/dosahub/backend-pos/internal/lock"
	"github.com/dosahub/backend-pos/internal/obs"
	"github.com/dosahub/backend-pos/internal/printer"
	"github.com/dosahub/backend-pos/internal/queue"
	"github.com/dosahub/backend-pos/internal/resilience"
)

// The worker drains the print queue: it leases queued receipt and KOT jobs
// and delivers them to the thermal printer bridge, retrying with backoff and
// dead-lettering jobs the bridge never accepts.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "pos"), nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	printClient := &printer.Client{
		BridgeURL: cfg.PrinterBridgeURL,
		HTTP: &resilience.HTTPClient{
			Client:      &http.Client{},
			Breaker:     resilience.NewBreaker(5, cfg.PrinterBreakerOpenMs).WithTarget("printer-bridge", &logger),
			BaseBackoff: cfg.QueueRetryBase,
			MaxAttempts: cfg.PrinterMaxAttempts,
			Jitter:      0.2,
			Timeout:     cfg.PrinterTimeout,
		},
	}

	// One lock per ticket kind: concurrent workers must not interleave
	// output on the same physical printer.
	printerLock := lock.Locker{R: redisClient, RetryBackoff: 100 * time.Millisecond}

	printWorker := queue.Worker{
		R:                 redisClient,
		Prefix:            cfg.QueuePrefix,
		Kind:              printer.TaskKind,
		Concurrency:       1,
		VisibilityTimeout: cfg.QueueVisibilityTimeout,
		RetryBase:         cfg.QueueRetryBase,
		RetryJitter:       0.2,
		Handler: func(jobCtx context.Context, task queue.Task) error {
			job, err := printer.DecodeJob(task.Payload)
			if err != nil {
				// Undecodable payloads would fail forever; drop them.
				logger.Error().Err(err).Msg("drop malformed print job")
				return nil
			}
			return printerLock.WithLock(jobCtx, "printer:"+job.Kind, cfg.PrinterTimeout, func(lockCtx context.Context) error {
				start := time.Now()
				err := printClient.Print(lockCtx, job.Kind, job.Ticket)
				result := "ok"
				if err != nil {
					result = "error"
				}
				obs.PrintAttemptLatency.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
				obs.PrintJobsTotal.WithLabelValues(job.Kind, result).Inc()
				if err != nil {
					logger.Warn().Err(err).Str("order", job.OrderNumber).Str("kind", job.Kind).Msg("print attempt failed")
					return err
				}
				logger.Info().Str("order", job.OrderNumber).Str("kind", job.Kind).Msg("ticket printed")
				return nil
			})
		},
		OnDeadLetter: func(_ context.Context, task queue.Task) {
			obs.PrintDLQTotal.Inc()
			job, err := printer.DecodeJob(task.Payload)
			if err != nil {
				logger.Error().Err(err).Msg("dead-lettered print job is malformed")
				return
			}
			logger.Error().Str("order", job.OrderNumber).Str("kind", job.Kind).Msg("print job dead-lettered")
		},
	}

	logger.Info().Str("queue", cfg.QueuePrefix).Msg("print worker starting")
	if err := printWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker stopped with error")
	} else {
		logger.Info().Msg("worker shutdown complete")
	}
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
