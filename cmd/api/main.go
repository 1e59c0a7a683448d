package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/hamropasal/backend-storefront/internal/assistant"
	"github.com/hamropasal/backend-storefront/internal/auth"
	"github.com/hamropasal/backend-storefront/internal/checkout"
	"github.com/hamropasal/backend-storefront/internal/common"
	"github.com/hamropasal/backend-storefront/internal/config"
	"github.com/hamropasal/backend-storefront/internal/coupon"
	"github.com/hamropasal/backend-storefront/internal/events"
	"github.com/hamropasal/backend-storefront/internal/health"
	"github.com/hamropasal/backend-storefront/internal/obs"
	"github.com/hamropasal/backend-storefront/internal/order"
	"github.com/hamropasal/backend-storefront/internal/payment"
	"github.com/hamropasal/backend-storefront/internal/ratelimit"
	"github.com/hamropasal/backend-storefront/internal/resilience"
	"github.com/hamropasal/backend-storefront/internal/security"
)

const serviceName = "storefront-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	obs.MustRegisterDomainMetrics("storefront", nil)
	resilience.Register(prometheus.DefaultRegisterer)

	if cfg.TracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName: serviceName,
			Endpoint:    cfg.TracingEndpoint,
			Environment: cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
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
	poolConfig.ConnConfig.RuntimeParams["application_name"] = serviceName

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
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	})
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	cardGateway, err := payment.NewStripe(cfg.StripeSecretKey, cfg.ClientURL, cfg.Currency)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise card gateway")
	}
	redirectGateway := payment.Esewa{
		Secret:      cfg.EsewaSecretKey,
		ProductCode: cfg.EsewaProductCode,
		SuccessURL:  cfg.ClientURL + "/purchase-success",
		FailureURL:  cfg.ClientURL + "/purchase-cancel",
	}

	orderStore := order.NewStore(pool)
	couponStore := coupon.NewStore(pool)

	bus := &events.Bus{
		Store:     events.NewStore(pool),
		Notifiers: []events.Notifier{&coupon.RewardEnqueuer{Client: taskClient}},
	}

	checkoutSvc := &checkout.Service{
		Card:            cardGateway,
		Redirect:        redirectGateway,
		Orders:          orderStore,
		Coupons:         couponStore,
		Bus:             bus,
		RewardThreshold: cfg.RewardThreshold,
		Log:             logger,
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc, Validate: validator.New()}
	orderHandler := &order.Handler{Store: orderStore}

	chatModel := &assistant.Gemini{
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{Timeout: 30 * time.Second},
			Breaker:     resilience.NewBreaker(5, 30*time.Second).WithTarget("gemini"),
			BaseBackoff: 200 * time.Millisecond,
			MaxAttempts: 2,
			Jitter:      0.2,
		},
		BaseURL: cfg.GeminiBaseURL,
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
	}
	chatHandler := &assistant.Handler{Model: chatModel, Log: logger}

	chatLimiter, err := ratelimit.NewRedisLimiter(redisClient, cfg.ChatRateLimit, cfg.ChatRateWindow)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}
	chatLimit := ratelimit.Handler{Limiter: chatLimiter, Log: logger}

	authMiddleware := auth.Middleware{Secret: []byte(cfg.JWTSecret)}
	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	httpMetrics := obs.NewHTTPMetrics("storefront", obs.ParseBucketsCSV(cfg.MetricsBuckets), nil)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true}.Middleware)
	r.Use(security.BodyLimit{Max: 1 << 20}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	healthHandler := health.Handler{Checker: readinessChecker{db: pool, redis: redisClient}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.With(authMiddleware.Authenticate, chatLimit.Middleware).Post("/chat", chatHandler.Chat)

	r.Route("/payments", func(p chi.Router) {
		p.Use(authMiddleware.RequireAuth)
		p.Group(func(g chi.Router) {
			g.Use(idem.Middleware)
			g.Post("/create-checkout-session", checkoutHandler.CreateCheckoutSession)
			g.Post("/esewa-checkout", checkoutHandler.EsewaCheckout)
		})
		p.Post("/checkout-success", checkoutHandler.CheckoutSuccess)
		p.Post("/esewa-payment-verification", checkoutHandler.EsewaPaymentVerification)
	})

	r.With(authMiddleware.RequireAuth).Get("/orders", orderHandler.List)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
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
