package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/dosahub/backend-pos/internal/checkout"
	"github.com/dosahub/backend-pos/internal/common"
	"github.com/dosahub/backend-pos/internal/config"
	"github.com/dosahub/backend-pos/internal/coupon"
	"github.com/dosahub/backend-pos/internal/events"
	"github.com/dosahub/backend-pos/internal/health"
	"github.com/dosahub/backend-pos/internal/obs"
	"github.com/dosahub/backend-pos/internal/order"
	"github.com/dosahub/backend-pos/internal/printer"
	"github.com/dosahub/backend-pos/internal/queue"
	"github.com/dosahub/backend-pos/internal/ratelimit"
	"github.com/dosahub/backend-pos/internal/resilience"
	"github.com/dosahub/backend-pos/internal/security"
	"github.com/dosahub/backend-pos/internal/tax"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "pos")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "pos-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if envBool("DB_MIGRATE_ON_START", true) {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "pos-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	policy, err := tax.FromConfig(cfg.TaxMode, cfg.TaxNames, cfg.TaxRatesBps)
	if err != nil {
		logger.Fatal().Err(err).Msg("build tax policy")
	}
	taxBase, err := tax.ParseBase(cfg.TaxBase)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse tax base")
	}

	catalog := &coupon.CachedCatalog{
		Next:   coupon.PGCatalog{Pool: pool},
		Client: redisClient,
		TTL:    cfg.CouponCacheTTL,
	}

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

	bus := &events.Bus{Notifiers: []events.Notifier{
		eventLogNotifier(logger),
		eventMetricsNotifier(),
	}}

	svc := &checkout.Service{
		Sessions: checkout.NewSessionStore(cfg.SessionTTL),
		Catalog:  catalog,
		Policy:   policy,
		Base:     taxBase,
		Orders:   order.Store{Pool: pool},
		Prints: printer.QueueSink{Enq: queue.Enqueuer{
			R:      redisClient,
			Prefix: cfg.QueuePrefix,
		}},
		Events: bus,
		Logger: logger,
	}
	handler := &checkout.Handler{Svc: svc, Printer: printClient, Validate: validator.New()}

	couponGuard := ratelimit.Guard{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "ratelimit:coupon:"},
		Window:  cfg.CouponRateWindow,
		Max:     cfg.CouponRateMax,
		Logger:  logger,
	}
	idem := common.Idem{R: redisClient, TTL: 24 * time.Hour}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{
		Enable:     envBool("SECURE_HEADERS", true),
		EnableHSTS: envBool("SECURE_HSTS", false),
	}.Middleware)
	r.Use(security.BodyLimit{Max: 64 << 10}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/v1", func(v chi.Router) {
		v.Route("/checkout/sessions", func(s chi.Router) {
			s.Post("/", handler.CreateSession)
			s.Route("/{sessionId}", func(sess chi.Router) {
				sess.Get("/", handler.GetQuote)
				sess.Post("/items", handler.AddItem)
				sess.Patch("/items/{itemId}", handler.ChangeQuantity)
				sess.Delete("/items/{itemId}", handler.RemoveItem)
				sess.With(couponGuard.Protect).Post("/coupon", handler.ApplyCoupon)
				sess.Delete("/coupon", handler.RemoveCoupon)
				sess.With(idem.Middleware).Post("/finalize", handler.Finalize)
				sess.Post("/finalize/retry", handler.RetrySink)
			})
		})
		v.Post("/printers/test", handler.TestPrint)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	health.SetReady(false)
	logger.Info().Msg("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func runMigrations(databaseURL string) error {
	m, err := migrate.New(envOrDefault("DB_MIGRATIONS_URL", "file://migrations"), databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func eventLogNotifier(logger zerolog.Logger) events.Notifier {
	return events.NotifierFunc(func(_ context.Context, ev events.Event) error {
		logger.Info().
			Str("topic", ev.Topic).
			Str("subject", ev.Subject).
			Interface("payload", ev.Payload).
			Time("occurred_at", ev.OccurredAt).
			Msg("domain_event")
		return nil
	})
}

func eventMetricsNotifier() events.Notifier {
	return events.NotifierFunc(func(_ context.Context, ev events.Event) error {
		switch ev.Topic {
		case events.TopicOrderFinalized:
			payload, _ := ev.Payload.(map[string]any)
			method, _ := payload["paymentMethod"].(string)
			if method == "" {
				method = "unknown"
			}
			obs.OrdersFinalizedTotal.WithLabelValues(method).Inc()
			if total, ok := payload["total"].(int64); ok && total > 0 {
				obs.OrderValueTotal.Add(float64(total))
			}
		case events.TopicCouponRejected:
			obs.CouponAttemptsTotal.WithLabelValues("rejected").Inc()
		}
		return nil
	})
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user == "" || pass == "" {
			http.NotFound(w, r)
			return
		}
		gotUser, gotPass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(gotUser), []byte(user)) != 1 ||
			subtle.ConstantTimeCompare([]byte(gotPass), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="pprof"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
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

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil && parsed > 0 {
			return time.Duration(parsed) * time.Millisecond
		}
	}
	return time.Duration(fallback) * time.Millisecond
}
