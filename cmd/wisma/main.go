package main

import (
	"context"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"wisma/internal/adapters"
	"wisma/internal/amqp"
	"wisma/internal/auth"
	"wisma/internal/backend"
	"wisma/internal/cache"
	"wisma/internal/cli"
	"wisma/internal/config"
	"wisma/internal/events"
	apphttp "wisma/internal/http"
	"wisma/internal/log"
	"wisma/internal/middleware/ratelimit"
	"wisma/internal/services"
	"wisma/internal/worker"
)

const cacheSweepInterval = time.Minute

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp)
	logger.Info("Starting wisma", log.FieldOperation, log.OpStartup, "backend", cfg.DataBackend, "sessions", cfg.SessionStore)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		cli.Fatal(logger, "Server stopped with error", err)
	}
	logger.Info("Shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	factory := backend.NewFactory(logger)
	b, err := factory.CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err)
		}
	}()

	publisher, closePublisher, err := newPublisher(ctx, cfg, bcfg, factory, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	deps := services.Deps{
		Store:     b.Store,
		Hub:       events.NewHub(),
		Publisher: publisher,
		Logger:    logger,
		Location:  loc,
	}
	flows := services.NewCashFlowService(deps)
	stays := services.NewStayService(deps, flows)

	sessions := auth.NewManager(
		auth.NewIdentityVerifier(cfg.IDPSecret, cfg.IDPIssuer, cfg.IDPAudience),
		b.Sessions, cfg.SessionSecret, logger)

	outbox := services.NewOutboxProcessor(b.Store, flows, services.OutboxProcessorConfig{
		PollInterval: cfg.SyncInterval,
		BatchSize:    cfg.SyncBatchSize,
		MaxRetries:   cfg.OutboxMaxRetries,
	}, logger)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:         net.JoinHostPort("", cfg.Port),
		CookieSecure: cfg.CookieSecure,
		RateLimit:    ratelimit.DefaultConfig(),
	}, apphttp.Deps{
		Stays:    stays,
		Flows:    flows,
		Sessions: sessions,
		Outbox:   outbox,
		Logger:   logger,
		Ready:    b.Store.Ping,
	})

	caches := cache.NewManager(logger)
	caches.Register(flows.RollupCache())
	caches.Register(srv.Limiter())
	for _, c := range b.Cleaners {
		caches.Register(c)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return outbox.Run(gctx) })
	g.Go(func() error { return caches.Run(gctx, cacheSweepInterval) })
	return g.Wait()
}

// newPublisher returns the broker client when AMQP is configured. Without
// a broker but with a spreadsheet, ledger rows are exported inline.
func newPublisher(ctx context.Context, cfg *config.Config, bcfg backend.Config, factory *backend.DefaultFactory, logger *log.Logger) (services.LedgerPublisher, func(), error) {
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without export", log.FieldError, err)
			return nil, func() {}, nil
		}
		logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		return client, func() { _ = client.Close() }, nil
	}

	if !cfg.SheetsEnabled() {
		return nil, func() {}, nil
	}
	sink, err := factory.CreateExportSink(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("No broker configured, exporting ledger rows inline", "sink", sink.Kind)
	return adapters.NewInlinePublisher(worker.NewExportWorker(sink.Writer, logger), logger), func() {}, nil
}
