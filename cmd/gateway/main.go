package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"mandi/pkg/audit"
	"mandi/pkg/auth"
	"mandi/pkg/directory"
	"mandi/pkg/gate"
	"mandi/pkg/hardening"
	"mandi/pkg/httpx"
	"mandi/pkg/metrics"
	"mandi/pkg/orgevents"
	"mandi/pkg/ratelimit"
	"mandi/pkg/roles"
	"mandi/pkg/session"
	"mandi/pkg/store"
	"mandi/pkg/stream"
	"mandi/pkg/telemetry"
)

type Server struct {
	Accounts     directory.AccountReader
	Regions      *roles.Table
	Chain        *gate.Chain
	Sessions     *session.Registry
	Audit        auditStore
	AuditPermits bool
	Metrics      *metrics.Registry
	Events       *stream.Hub
	Verifier     *auth.Verifier
}

type auditStore interface {
	Append(ctx context.Context, rec audit.Record) error
	HashUID(uid string) string
}

type gatewayDB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type gatewayDBCloser interface {
	gatewayDB
	Close()
}

type initTelemetryFunc func(ctx context.Context, service string) (func(context.Context) error, error)
type openDBFunc func(ctx context.Context) (gatewayDBCloser, error)
type openRedisFunc func(ctx context.Context) (*redis.Client, error)
type listenFunc func(server *http.Server) error

// Testable variables for main()
var (
	logFatalf     = log.Fatalf
	initTelemetry = telemetry.Init
	openDBFn      = func(ctx context.Context) (gatewayDBCloser, error) { return store.NewPostgresPool(ctx) }
	openRedisFn   = store.NewRedis
	listenFn      = func(server *http.Server) error { return server.ListenAndServe() }
)

func main() {
	if err := runGateway(initTelemetry, openDBFn, openRedisFn, listenFn); err != nil {
		logFatalf("gateway: %v", err)
	}
}

func runGateway(initTel initTelemetryFunc, openDB openDBFunc, openRedis openRedisFunc, listen listenFunc) error {
	ctx := context.Background()
	shutdown, err := initTel(ctx, "gateway")
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	projectID := strings.TrimSpace(env("PROJECT_ID", ""))
	if projectID == "" {
		return errors.New("PROJECT_ID is required")
	}
	if err := hardening.ValidateProduction(hardening.Options{
		Service:            "gateway",
		Environment:        env("ENVIRONMENT", env("APP_ENV", "")),
		StrictProdSecurity: env("STRICT_PROD_SECURITY", "true"),
		DatabaseRequireTLS: env("DATABASE_REQUIRE_TLS", ""),
		RedisAddr:          env("REDIS_ADDR", ""),
		RedisRequireTLS:    env("REDIS_REQUIRE_TLS", ""),
		CORSAllowedOrigins: env("CORS_ALLOWED_ORIGINS", ""),
		ProjectID:          projectID,
	}); err != nil {
		return err
	}

	pool, err := openDB(ctx)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	redisClient, err := openRedis(ctx)
	if err != nil {
		log.Printf("redis unavailable, falling back to in-memory cache/limits: %v", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	cache := store.NewCache(ctx, redisClient)

	issuerHost := env("ISSUER_HOST", auth.DefaultIssuerHost)
	jwksURL := env("JWKS_URL", "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com")
	httpClient := telemetry.InstrumentClient(&http.Client{Timeout: time.Millisecond * time.Duration(envInt("UPSTREAM_TIMEOUT_MS", 5000))})
	verifier := auth.NewVerifier(projectID, auth.NewKeySet(jwksURL, httpClient))
	verifier.IssuerHost = issuerHost

	dir := &directory.Postgres{DB: pool}
	approvalTTL := time.Second * time.Duration(envInt("APPROVAL_CACHE_TTL_SEC", 60))
	approval := gate.NewApprovalGate(dir, cache, approvalTTL)
	premium := &gate.PremiumGate{
		Registry:       gate.DefaultFeatures(),
		PreviewEnabled: env("PREVIEW_FEATURES_ENABLED", "true") == "true",
	}

	s := &Server{
		Accounts:     dir,
		Regions:      roles.DefaultTable(),
		Chain:        &gate.Chain{Approval: approval, Premium: premium},
		Sessions:     session.NewRegistry(time.Minute * time.Duration(envInt("SESSION_TTL_MIN", 720))),
		Audit:        &audit.Writer{DB: pool, HashSalt: []byte(env("AUDIT_HASH_SALT", ""))},
		AuditPermits: env("AUDIT_PERMITS", "false") == "true",
		Metrics:      metrics.NewRegistry(),
		Events:       stream.NewHub(),
		Verifier:     verifier,
	}

	var failureLimiter ratelimit.Limiter
	if env("RATE_LIMIT_ENABLED", "true") == "true" {
		window := time.Second * time.Duration(envInt("RATE_LIMIT_WINDOW_SEC", 60))
		if redisClient != nil {
			failureLimiter = ratelimit.NewRedis(redisClient, window)
		} else {
			failureLimiter = ratelimit.NewInMemory(window)
		}
	}

	if brokers := strings.Split(env("KAFKA_BROKERS", ""), ","); strings.TrimSpace(brokers[0]) != "" {
		consumer, err := orgevents.NewKafkaConsumer(orgevents.KafkaConfig{
			Brokers: brokers,
			Topic:   env("KAFKA_TOPIC", "org.verification.changed"),
			GroupID: env("KAFKA_GROUP_ID", "mandi-gateway"),
		})
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		defer consumer.Close()
		go orgevents.Run(ctx, consumer, approval)
	}
	go s.sweepSessionsLoop(ctx, time.Minute*time.Duration(envInt("SESSION_SWEEP_MIN", 15)))

	r := chi.NewRouter()
	r.Use(httpx.CORSMiddleware(httpx.ParseOrigins(env("CORS_ALLOWED_ORIGINS", ""))))
	r.Use(httpx.SecurityHeadersMiddleware)
	r.Use(httpx.BodyLimitMiddleware(int64(envInt("HTTP_MAX_BODY_BYTES", 1<<20))))
	r.Use(s.metricsMiddleware)
	r.Use(telemetry.HTTPMiddleware("gateway"))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, 200, map[string]string{"status": "ok", "service": "gateway"})
	})

	authRouter := chi.NewRouter()
	authOpts := []auth.MiddlewareOption{auth.WithFailureHook(s.Metrics.IncAuthFailure)}
	if failureLimiter != nil {
		authOpts = append(authOpts, auth.WithFailureLimiter(failureLimiter, envInt("RATE_LIMIT_AUTH_FAILURES", 30)))
	}
	authRouter.Use(auth.Middleware(verifier, authOpts...))
	authRouter.Get("/v1/me", s.handleMe)
	authRouter.Get("/v1/regions/{region_id}/access", s.handleRegionAccess)
	authRouter.Post("/v1/premium/continue", s.handlePremiumContinue)
	authRouter.Post("/v1/premium/dismiss", s.handlePremiumDismiss)
	authRouter.Get("/v1/stream", s.withRoles(s.streamDecisions, roles.Admin, roles.Superadmin))
	authRouter.Get("/metrics", s.withRoles(s.Metrics.Handler(), roles.Admin, roles.Superadmin))
	authRouter.Get("/metrics/prometheus", s.withRoles(s.Metrics.PrometheusHandler(), roles.Admin, roles.Superadmin))
	r.Mount("/", authRouter)

	addr := env("ADDR", ":8080")
	log.Printf("gateway listening on %s", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: envDurationSec("HTTP_READ_HEADER_TIMEOUT_SEC", 5),
		ReadTimeout:       envDurationSec("HTTP_READ_TIMEOUT_SEC", 15),
		WriteTimeout:      envDurationSec("HTTP_WRITE_TIMEOUT_SEC", 30),
		IdleTimeout:       envDurationSec("HTTP_IDLE_TIMEOUT_SEC", 120),
	}
	if listen == nil {
		return errors.New("listen function required")
	}
	return listen(server)
}

func (s *Server) sweepSessionsLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sessions.Sweep()
		}
	}
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.Metrics.Observe(r.URL.Path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func env(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return parsed
}

func envDurationSec(name string, def int) time.Duration {
	return time.Second * time.Duration(envInt(name, def))
}
