package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"otpgate/internal/abuse/handler"
	abusemetrics "otpgate/internal/abuse/metrics"
	abuseservice "otpgate/internal/abuse/service"
	abusememory "otpgate/internal/abuse/store/memory"
	abusepostgres "otpgate/internal/abuse/store/postgres"
	abuseredis "otpgate/internal/abuse/store/redisstore"
	"otpgate/internal/abuse/workers/cleanup"
	"otpgate/internal/audit"
	identityservice "otpgate/internal/identity/service"
	identitymemory "otpgate/internal/identity/store/memory"
	identitypostgres "otpgate/internal/identity/store/postgres"
	"otpgate/internal/otp/authority/local"
	"otpgate/internal/otp/authority/local/sender/logsender"
	codememory "otpgate/internal/otp/authority/local/store/memory"
	codepostgres "otpgate/internal/otp/authority/local/store/postgres"
	"otpgate/internal/otp/guard"
	guardmetrics "otpgate/internal/otp/guard/metrics"
	"otpgate/internal/otp/guard/tracer"
	"otpgate/internal/platform/config"
	"otpgate/internal/platform/database"
	"otpgate/internal/platform/health"
	"otpgate/internal/platform/kafka/producer"
	"otpgate/internal/platform/logger"
	platformmetrics "otpgate/internal/platform/metrics"
	platformredis "otpgate/internal/platform/redis"
	httptransport "otpgate/internal/transport/http"
	verificationmetrics "otpgate/internal/verification/metrics"
	verificationservice "otpgate/internal/verification/service"
	verificationmemory "otpgate/internal/verification/store/memory"
	verificationpostgres "otpgate/internal/verification/store/postgres"
	verificationredis "otpgate/internal/verification/store/redisstore"
)

const poolStatsInterval = 15 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Guard logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	log.Info("initializing otpgate",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	if err := run(cfg, log); err != nil {
		log.Error("otpgate exited with error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		return err
	}
	defer pool.Close() //nolint:errcheck // shutdown path

	rdb, err := platformredis.New(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close() //nolint:errcheck // shutdown path
	}

	// Store selection: redis wins for the hot counters, then postgres,
	// then the in-memory stores for development.
	var (
		rateStore    abuseservice.Store
		attemptStore verificationservice.Store
	)
	switch {
	case rdb != nil:
		rateStore = abuseredis.New(rdb.Client)
		attemptStore = verificationredis.New(rdb.Client)
		log.Info("using redis counter stores", "addr", cfg.RedisAddr)
	case pool != nil:
		rateStore = abusepostgres.New(pool.DB())
		attemptStore = verificationpostgres.New(pool.DB())
		log.Info("using postgres counter stores")
	default:
		rateStore = abusememory.New()
		attemptStore = verificationmemory.New()
		log.Warn("using in-memory counter stores, limits reset on restart")
	}

	var (
		identityStore identityservice.Store
		codeStore     local.CodeStore
	)
	if pool != nil {
		identityStore = identitypostgres.New(pool.DB())
		codeStore = codepostgres.New(pool.DB())
	} else {
		identityStore = identitymemory.New()
		codeStore = codememory.New()
	}

	abuseMetrics := abusemetrics.New()
	abuseService, err := abuseservice.New(rateStore,
		abuseservice.WithLogger(log),
		abuseservice.WithMetrics(abuseMetrics),
	)
	if err != nil {
		return err
	}

	ledger, err := verificationservice.New(attemptStore, cfg.Guard.AttemptTTL,
		verificationservice.WithLogger(log),
		verificationservice.WithMetrics(verificationmetrics.New()),
	)
	if err != nil {
		return err
	}

	identities, err := identityservice.New(identityStore)
	if err != nil {
		return err
	}

	otpAuthority, err := local.New(codeStore, logsender.New(log), local.WithLogger(log))
	if err != nil {
		return err
	}

	auditPublisher, kafkaProducer, err := buildAuditPublisher(cfg, log)
	if err != nil {
		return err
	}
	if kafkaProducer != nil {
		defer kafkaProducer.Close() //nolint:errcheck // shutdown path
	}

	flowMetrics := guardmetrics.New()
	flowTracer := tracer.NewOTel()
	engineOpts := []guard.Option{
		guard.WithLogger(log),
		guard.WithMetrics(flowMetrics),
		guard.WithTracer(flowTracer),
		guard.WithAuditPublisher(auditPublisher),
	}

	flows := []struct {
		policy      guard.FlowPolicy
		verifiedKey string
	}{
		{guard.SignInPolicy(cfg.Guard), "signedIn"},
		{guard.SignUpPolicy(cfg.Guard), "verified"},
		{guard.ForgetPasswordPolicy(cfg.Guard), "verified"},
	}

	otpHandler := httptransport.NewOtpHandler(log)
	for _, f := range flows {
		engine, err := guard.New(f.policy, abuseService, ledger, identities, otpAuthority, engineOpts...)
		if err != nil {
			return err
		}
		otpHandler.AddFlow(f.policy.Flow, engine, f.verifiedKey)
	}

	adminHandler := handler.New(abuseService, log, handler.WithAuditPublisher(auditPublisher))

	healthHandler := health.New(cfg.Environment)
	if pool != nil {
		healthHandler.RegisterCheck("database", healthCheck(pool.Health))
	}
	if rdb != nil {
		healthHandler.RegisterCheck("redis", healthCheck(rdb.Health))
	}
	if kafkaProducer != nil {
		healthHandler.RegisterCheck("kafka", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if !kafkaProducer.Healthy(checkCtx) {
				return errors.New("kafka unreachable")
			}
			return nil
		})
	}

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Config:  &cfg,
		Logger:  log,
		Metrics: platformmetrics.New(),
		Health:  healthHandler,
		Otp:     otpHandler,
		Admin:   adminHandler,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	cleanupWorker := cleanup.New(rateStore,
		cleanup.WithLogger(log),
		cleanup.WithInterval(cfg.CleanupInterval),
		cleanup.WithMetrics(abuseMetrics),
		cleanup.WithAttemptStore(attemptStore),
		cleanup.WithCodeStore(codeStore),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		if err := cleanupWorker.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if rdb != nil {
		g.Go(func() error {
			ticker := time.NewTicker(poolStatsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					rdb.RecordPoolStats()
				case <-gctx.Done():
					return nil
				}
			}
		})
	}

	return g.Wait()
}

func buildAuditPublisher(cfg config.Server, log *slog.Logger) (audit.Publisher, *producer.Producer, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return audit.NewLogPublisher(log), nil, nil
	}

	prod, err := producer.New(producer.Config{
		Brokers:         cfg.KafkaBrokers,
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	publisher, err := audit.NewKafkaPublisher(prod, cfg.AuditTopic, log)
	if err != nil {
		prod.Close() //nolint:errcheck // cleanup on init failure
		return nil, nil, err
	}

	log.Info("audit events published to kafka", "topic", cfg.AuditTopic)
	return publisher, prod, nil
}

// healthCheck adapts a context-taking probe to the readiness handler's
// check signature.
func healthCheck(probe func(context.Context) error) health.CheckFunc {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return probe(ctx)
	}
}
