// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
package main

import (
	"context"
	"crypto/ed25519"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"gatekeeper/internal/audit"
	auditstore "gatekeeper/internal/audit/store"
	"gatekeeper/internal/credential"
	"gatekeeper/internal/issuer"
	"gatekeeper/internal/platform/config"
	"gatekeeper/internal/platform/database"
	"gatekeeper/internal/platform/health"
	"gatekeeper/internal/platform/httpserver"
	"gatekeeper/internal/platform/kafka/producer"
	"gatekeeper/internal/platform/logger"
	platformredis "gatekeeper/internal/platform/redis"
	"gatekeeper/internal/throttle"
	throttlestore "gatekeeper/internal/throttle/store"
	ticketmetrics "gatekeeper/internal/ticket/metrics"
	ticketstore "gatekeeper/internal/ticket/store"
	httptransport "gatekeeper/internal/transport/http"
	"gatekeeper/internal/validator"
	"gatekeeper/internal/validator/tracer"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing gatekeeper",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"gate_scan_limit", cfg.GateScanLimit,
	)

	if err := run(cfg, log); err != nil {
		log.Error("gatekeeper exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	healthHandler := health.New(cfg.Environment)

	// Durable stores. Without DATABASE_URL everything runs in memory, which
	// is only suitable for development.
	pool, err := database.New(cfg.Database)
	if err != nil {
		return err
	}
	var tickets ticketstore.Store
	var auditSink audit.Sink
	if pool != nil {
		defer pool.Close() //nolint:errcheck // shutdown path
		tickets = ticketstore.NewPostgres(pool.DB())
		auditSink = auditstore.NewPostgres(pool.DB())
		healthHandler.RegisterCheck("database", func() error { return pool.Health(context.Background()) })
	} else {
		log.Warn("DATABASE_URL not set, using in-memory ledger")
		tickets = ticketstore.NewInMemory()
		auditSink = auditstore.NewInMemory()
	}

	// Scan throttle counters.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	var counters throttlestore.CounterStore
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck // shutdown path
		counters = throttlestore.NewRedis(redisClient.Client)
		healthHandler.RegisterCheck("redis", func() error { return redisClient.Health(context.Background()) })
	} else {
		log.Warn("REDIS_URL not set, gate throttle counts in process memory")
		counters = throttlestore.NewInMemory()
	}

	// Audit pipeline. Events always land in the durable sink; the Kafka
	// stream is best-effort fan-out for downstream consumers.
	var auditProducer audit.ProducerPort
	if cfg.Kafka.Brokers != "" {
		kafkaProducer, err := producer.New(cfg.Kafka, log)
		if err != nil {
			return err
		}
		defer kafkaProducer.Close() //nolint:errcheck // shutdown path
		healthHandler.RegisterCheck("kafka", func() error {
			if !kafkaProducer.Healthy(context.Background()) {
				return errors.New("kafka unreachable")
			}
			return nil
		})
		auditProducer = kafkaProducer
	} else {
		log.Warn("KAFKA_BROKERS not set, audit events stay local")
		auditProducer = producer.NewNoopProducer(log)
	}
	auditPublisher := audit.NewPublisher(auditSink, log,
		audit.WithProducer(auditProducer, cfg.Kafka.AuditTopic),
		audit.WithAsyncBuffer(256),
	)
	defer auditPublisher.Close()

	signer, verifier, err := loadKeys(cfg, log)
	if err != nil {
		return err
	}

	metrics := ticketmetrics.New()
	issuerSvc := issuer.New(tickets, signer,
		issuer.WithLogger(log),
		issuer.WithAuditPublisher(auditPublisher),
		issuer.WithMetrics(metrics),
	)
	validatorOpts := []validator.Option{
		validator.WithLogger(log),
		validator.WithAuditPublisher(auditPublisher),
		validator.WithMetrics(metrics),
	}
	if cfg.TracingEnabled {
		validatorOpts = append(validatorOpts, validator.WithTracer(tracer.NewOTel()))
	}
	validatorSvc := validator.New(tickets, verifier, validatorOpts...)
	throttleSvc := throttle.New(counters, cfg.GateScanLimit,
		throttle.WithLogger(log),
		throttle.WithAuditPublisher(auditPublisher),
	)

	handler := httptransport.NewHandler(issuerSvc, validatorSvc, log,
		httptransport.WithThrottle(throttleSvc),
	)
	router := httptransport.NewRouter(handler, healthHandler, log)
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

// loadKeys builds the issuer's signer and the validator's verifier from
// configured PEM material, or mints a throwaway development pair when none
// is provided. Credentials issued with a throwaway key die with the process.
func loadKeys(cfg config.Server, log *slog.Logger) (*credential.Signer, *credential.Verifier, error) {
	if cfg.SigningKeyPEM == "" && cfg.VerifyKeyPEM == "" {
		log.Warn("no signing key configured, generating a throwaway development keypair")
		pair, err := credential.GenerateKeyPair(cfg.KeyVersion)
		if err != nil {
			return nil, nil, err
		}
		return credential.NewSigner(pair.Private, pair.Version),
			credential.NewVerifierForKey(pair.Public, pair.Version), nil
	}

	private, err := credential.ParsePrivateKeyPEM([]byte(cfg.SigningKeyPEM))
	if err != nil {
		return nil, nil, err
	}
	public := private.Public().(ed25519.PublicKey)
	if cfg.VerifyKeyPEM != "" {
		public, err = credential.ParsePublicKeyPEM([]byte(cfg.VerifyKeyPEM))
		if err != nil {
			return nil, nil, err
		}
	}
	return credential.NewSigner(private, cfg.KeyVersion),
		credential.NewVerifierForKey(public, cfg.KeyVersion), nil
}
