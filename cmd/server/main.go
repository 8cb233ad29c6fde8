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

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"hookwarden/internal/audit"
	"hookwarden/internal/badge"
	jwttoken "hookwarden/internal/jwt_token"
	"hookwarden/internal/platform/config"
	"hookwarden/internal/platform/httpserver"
	"hookwarden/internal/platform/kafka/consumer"
	"hookwarden/internal/platform/kafka/producer"
	"hookwarden/internal/platform/logger"
	platformredis "hookwarden/internal/platform/redis"
	"hookwarden/internal/probe"
	"hookwarden/internal/registry/facts"
	"hookwarden/internal/registry/handler"
	"hookwarden/internal/registry/metrics"
	"hookwarden/internal/registry/service"
	"hookwarden/internal/registry/store"
)

const (
	factsPartitions    = 3
	auditInboxSize     = 256
	auditConsumerGroup = "hookwarden-audit"
	badgeConsumerGroup = "hookwarden-badge"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores. Postgres when configured, in-memory otherwise.
	var registryStore store.Implementation = store.NewInMemory()
	var auditStore audit.Store = audit.NewMemoryStore()
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := store.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("failed to ensure registry schema", "error", err)
			os.Exit(1)
		}
		registryStore = pg

		auditPg, err := audit.OpenPostgres(cfg.PostgresURL)
		if err != nil {
			log.Error("failed to open audit store", "error", err)
			os.Exit(1)
		}
		defer auditPg.Close()
		if err := auditPg.EnsureSchema(ctx); err != nil {
			log.Error("failed to ensure audit schema", "error", err)
			os.Exit(1)
		}
		auditStore = auditPg
	}

	// Facts flow out through Kafka when brokers are configured; otherwise the
	// workflow runs without downstream consumers.
	var sink facts.Sink = facts.Discard{}
	var factsProducer *producer.Producer
	if len(cfg.KafkaBrokers) > 0 {
		if err := producer.EnsureTopic(ctx, cfg.KafkaBrokers, cfg.FactsTopic, factsPartitions); err != nil {
			log.Error("failed to ensure facts topic", "error", err)
			os.Exit(1)
		}
		var err error
		factsProducer, err = producer.New(cfg.KafkaBrokers, producer.WithLogger(log))
		if err != nil {
			log.Error("failed to create kafka producer", "error", err)
			os.Exit(1)
		}
		defer factsProducer.Close()
		sink = facts.NewKafkaSink(factsProducer, cfg.FactsTopic)
	}

	var badgeCache badge.ApprovalCache = badge.NopCache{}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		badgeCache = badge.NewRedisCache(redisClient, cfg.BadgeTTL)
	}

	// The permissive prober accepts any program; deployments integrate a real
	// program inspector behind the probe.Prober interface.
	registrySvc := service.New(registryStore, probe.Permissive{},
		service.WithLogger(log),
		service.WithFactSink(sink),
		service.WithMetrics(metrics.New()),
	)

	badgeSvc := badge.New(badge.NewMemoryCatalog(), registrySvc,
		badge.WithCache(badgeCache),
		badge.WithFactSink(sink),
		badge.WithLogger(log),
		badge.WithMetrics(badge.NewMetrics()),
	)

	// Audit events queue through a worker so trail persistence stays off the
	// fact consumer's commit path.
	auditInbox := make(chan audit.Event, auditInboxSize)
	auditWorker := audit.NewWorker(auditStore, auditInbox)
	auditTrail := audit.NewQueuedPublisher(auditInbox)

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Route("/api/v1", func(r chi.Router) {
		badge.NewHandler(badgeSvc, log, tokens).Register(r)
		handler.New(registrySvc, log, tokens).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting hookwarden", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	group.Go(func() error {
		if err := auditWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if len(cfg.KafkaBrokers) > 0 {
		group.Go(func() error {
			return runConsumer(ctx, cfg, badgeConsumerGroup, badge.NewFactHandler(badgeSvc, log), log)
		})
		group.Go(func() error {
			return runConsumer(ctx, cfg, auditConsumerGroup, audit.NewFactHandler(auditTrail, log), log)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("hookwarden stopped")
}

func runConsumer(ctx context.Context, cfg config.Config, group string, h consumer.Handler, log *slog.Logger) error {
	c, err := consumer.New(cfg.KafkaBrokers, group, []string{cfg.FactsTopic}, h, log)
	if err != nil {
		return err
	}
	log.Info("starting fact consumer", "group", group, "topic", cfg.FactsTopic)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
