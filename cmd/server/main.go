// Command server runs the bordereau claims validation engine: it wires the
// stores, the check pipeline, the audit trail, and the HTTP surface, then
// blocks until shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bordero/internal/aggregate"
	auditHandler "bordero/internal/audit/handler"
	"bordero/internal/auth"
	"bordero/internal/checks/discrepancy"
	"bordero/internal/checks/duplicate"
	"bordero/internal/checks/eligibility"
	"bordero/internal/checks/exclusion"
	"bordero/internal/checks/risk"
	"bordero/internal/checks/treatylimit"
	claimsHandler "bordero/internal/claims/handler"
	"bordero/internal/engine"
	httpapi "bordero/internal/http"
	"bordero/internal/normalizer"
	"bordero/internal/platform/config"
	"bordero/internal/platform/httpserver"
	"bordero/internal/platform/kafka"
	"bordero/internal/platform/logger"
	"bordero/internal/platform/metrics"
	"bordero/internal/platform/postgres"
	platformredis "bordero/internal/platform/redis"
	"bordero/internal/refdata"
	reviewHandler "bordero/internal/review/handler"
	"bordero/internal/sics"
	"bordero/internal/verdict"
	"bordero/pkg/domain"
	audit "bordero/pkg/platform/audit"
	auditconsumer "bordero/pkg/platform/audit/consumer"
	"bordero/pkg/platform/audit/publisher"
	auditmem "bordero/pkg/platform/audit/store/memory"
	auditpg "bordero/pkg/platform/audit/store/postgres"
	auditworker "bordero/pkg/platform/audit/worker"
	"bordero/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Stores: Postgres when configured, in-memory for development.
	var (
		auditStore   audit.Store
		verdictStore verdict.Store
		aggStore     aggregate.Store
		txRunner     tx.Runner = tx.Passthrough{}
	)
	if cfg.Postgres.URL != "" {
		db, err := postgres.OpenSQL(ctx, cfg.Postgres)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pool, err := postgres.OpenPool(ctx, cfg.Postgres)
		if err != nil {
			log.Error("open pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		// Without a Kafka relay nothing would materialize audit_events, so
		// the store mirrors its outbox writes straight into the read table.
		auditOpts := []auditpg.Option{}
		if len(cfg.Kafka.Brokers) == 0 {
			log.Info("no kafka brokers configured, mirroring audit events in postgres")
			auditOpts = append(auditOpts, auditpg.WithMirroredEvents())
		}
		auditStore = auditpg.New(db, auditOpts...)
		verdictStore = verdict.NewPostgresStore(db)
		aggStore = aggregate.NewPostgresStore(pool)
		txRunner = tx.NewSQLRunner(db)

		// The Kafka relay only makes sense with the durable outbox behind it.
		if len(cfg.Kafka.Brokers) > 0 {
			producer, err := kafka.NewProducer(cfg.Kafka)
			if err != nil {
				log.Error("connect kafka producer", "error", err)
				os.Exit(1)
			}
			defer producer.Close()
			if err := kafka.EnsureAuditTopic(ctx, producer, cfg.Kafka); err != nil {
				log.Error("ensure audit topic", "error", err)
				os.Exit(1)
			}

			relay := auditworker.NewRelay(db, producer, cfg.Kafka.AuditTopic, log)
			go func() {
				if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("audit relay stopped", "error", err)
				}
			}()

			consumerClient, err := kafka.NewConsumer(cfg.Kafka)
			if err != nil {
				log.Error("connect kafka consumer", "error", err)
				os.Exit(1)
			}
			defer consumerClient.Close()

			cons := auditconsumer.New(consumerClient, auditStore, log)
			go func() {
				if err := cons.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("audit consumer stopped", "error", err)
				}
			}()
		}
	} else {
		log.Warn("no postgres url configured, using in-memory stores")
		auditStore = auditmem.NewInMemoryStore()
		verdictStore = verdict.NewInMemoryStore()
		aggStore = aggregate.NewInMemoryStore()
	}

	// Duplicate history: Redis when configured, in-memory otherwise.
	var history duplicate.HistoryStore
	if cfg.Redis.URL != "" {
		client, err := platformredis.New(cfg.Redis)
		if err != nil {
			log.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		history = duplicate.NewRedisHistoryStore(client.Client, cfg.Checks.DuplicateRetention)
	} else {
		history = duplicate.NewInMemoryHistoryStore(cfg.Checks.DuplicateRetention)
	}

	// Reference data file drops.
	treaties := refdata.NewInMemoryTreatyStore()
	if cfg.RefData.TreatyFile != "" {
		slips, err := refdata.LoadTreatySlips(cfg.RefData.TreatyFile)
		if err != nil {
			log.Error("load treaty slips", "error", err)
			os.Exit(1)
		}
		treaties.Replace(slips)
		log.Info("treaty slips loaded", "count", len(slips))
	}
	statements := refdata.NewInMemoryStatementStore()
	if cfg.RefData.StatementFile != "" {
		lines, err := refdata.LoadStatementLines(cfg.RefData.StatementFile)
		if err != nil {
			log.Error("load statement lines", "error", err)
			os.Exit(1)
		}
		statements.Replace(lines)
		log.Info("statement lines loaded", "count", len(lines))
	}

	// Pipeline milestones are best-effort and ride a bounded buffer; verdict
	// transitions write synchronously so they can share the save transaction.
	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(1024),
		publisher.WithLogger(log),
	)
	defer auditPublisher.Close()
	trailPublisher := publisher.NewPublisher(auditStore,
		publisher.WithLogger(log),
	)

	poster := sics.NewClient(cfg.SICS.BaseURL, log,
		sics.WithMaxRetries(cfg.SICS.MaxRetries),
		sics.WithHTTPClient(&http.Client{Timeout: cfg.SICS.Timeout}),
	)
	if cfg.SICS.BaseURL == "" {
		log.Warn("no posting service url configured, approvals will fail over to review")
	}

	verdicts := verdict.NewService(verdictStore, trailPublisher, poster,
		verdict.WithStraightThrough(cfg.Checks.StraightThrough),
		verdict.WithTxRunner(txRunner),
		verdict.WithLogger(log),
	)

	checks := engine.Checkers{
		Discrepancy: discrepancy.New(statements, discrepancy.Tolerance{
			AbsoluteFloorMinor: cfg.Checks.DiscrepancyAbsMinor,
			RelativePct:        cfg.Checks.DiscrepancyPct,
		}, log),
		Exclusion:   exclusion.New(),
		Eligibility: eligibility.New(),
		TreatyLimit: treatylimit.New(),
		Duplicate:   duplicate.New(history, cfg.Checks.DuplicateRetention, log),
		Risk: risk.New(domain.Money{
			MinorUnits: cfg.Checks.RiskCeilingMinor,
			Currency:   cfg.Checks.RiskCurrency,
		}, cfg.Checks.RiskThreshold, log),
	}

	eng := engine.NewService(
		normalizer.New(cfg.Checks.ConfidenceThreshold),
		aggregate.NewAggregator(aggStore, log),
		treaties,
		checks,
		verdicts,
		auditPublisher,
		engine.WithLogger(log),
		engine.WithMetrics(m),
	)

	jwtService := auth.NewJWTService(cfg.Server.JWTSigningKey, "bordero", "bordero-api")

	router := httpapi.NewRouter(httpapi.Deps{
		Claims:       claimsHandler.New(eng, verdicts, cfg.Checks.Workers, log),
		Review:       reviewHandler.New(verdicts, log, m),
		Audit:        auditHandler.New(auditStore, log),
		JWTValidator: auth.NewJWTServiceAdapter(jwtService),
		Logger:       log,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	go func() {
		log.Info("server listening", "addr", cfg.Server.Addr,
			"straight_through", cfg.Checks.StraightThrough)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
