package main

import (
	"context"
	"errors"

	"wisma/internal/amqp"
	"wisma/internal/backend"
	"wisma/internal/cli"
	"wisma/internal/config"
	"wisma/internal/log"
	"wisma/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)
	logger.Info("Starting wisma-worker", log.FieldOperation, log.OpStartup)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		cli.Fatal(logger, "Worker stopped with error", err)
	}
	logger.Info("Worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required for the export worker")
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	sink, err := backend.NewFactory(logger).CreateExportSink(ctx, bcfg)
	if err != nil {
		return err
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	export := worker.NewExportWorker(sink.Writer, logger)
	logger.Info("Consuming ledger events", "queue", cfg.AMQPQueue, "sink", sink.Kind)

	err = client.ConsumeLedgerEvents(ctx, export.HandleLedgerEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
