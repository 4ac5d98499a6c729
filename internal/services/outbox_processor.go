package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wisma/internal/log"
	"wisma/internal/storage"
)

// OutboxProcessorConfig holds configuration for the outbox processor
type OutboxProcessorConfig struct {
	// PollInterval is how often to check for pending items (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of items to replay per poll (default: 10)
	BatchSize int

	// MaxRetries is the number of attempts before an item is marked failed (default: 5)
	MaxRetries int

	// CleanupInterval is how often completed items are purged (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how old completed items must be before purge (default: 24h)
	CleanupAge time.Duration
}

func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		PollInterval:    30 * time.Second,
		BatchSize:       10,
		MaxRetries:      5,
		CleanupInterval: time.Hour,
		CleanupAge:      24 * time.Hour,
	}
}

// OutboxApplier replays one queued flow delta.
type OutboxApplier interface {
	ApplyOutboxItem(ctx context.Context, item storage.OutboxItem) error
}

// OutboxProcessor drains the flow outbox. Delivery is at least once: an
// item applied just before a crash is applied again on restart.
type OutboxProcessor struct {
	store   storage.OutboxStore
	applier OutboxApplier
	config  OutboxProcessorConfig
	logger  *log.Logger
	events  *log.StructuredLogger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewOutboxProcessor(store storage.OutboxStore, applier OutboxApplier, config OutboxProcessorConfig, logger *log.Logger) *OutboxProcessor {
	defaults := DefaultOutboxProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if config.CleanupAge <= 0 {
		config.CleanupAge = defaults.CleanupAge
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &OutboxProcessor{
		store:   store,
		applier: applier,
		config:  config,
		logger:  logger.WithComponent(log.ComponentOutbox),
		events:  log.NewStructuredLogger(logger),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *OutboxProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("outbox processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	// Items left in processing by a crash go back to pending.
	if n, err := p.store.ResetStaleOutbox(ctx); err != nil {
		p.logger.WarnContext(ctx, "Failed to reset stale outbox items", "error", err)
	} else if n > 0 {
		p.logger.InfoContext(ctx, "Reset stale outbox items", "count", n)
	}

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Outbox processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop signals the loop and waits for the in-flight batch.
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Outbox processor stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Outbox processor stop timed out")
		return ctx.Err()
	}
}

// Run starts the processor and blocks until ctx ends, for use under an
// errgroup.
func (p *OutboxProcessor) Run(ctx context.Context) error {
	if err := p.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return p.Stop(stopCtx)
}

func (p *OutboxProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *OutboxProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	p.ProcessBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.ProcessBatch(ctx)
		case <-cleanupTicker.C:
			p.cleanupCompleted(ctx)
		}
	}
}

// ProcessBatch replays up to BatchSize pending items and returns how many
// were applied.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) int {
	items, err := p.store.PendingOutbox(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to load pending outbox items", "error", err)
		return 0
	}
	if len(items) == 0 {
		return 0
	}

	p.logger.DebugContext(ctx, "Processing outbox batch", "count", len(items))

	applied := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return applied
		}

		if err := p.store.MarkOutboxProcessing(ctx, item.ID); err != nil {
			p.logger.ErrorContext(ctx, "Failed to mark outbox item as processing",
				log.FieldOutboxID, item.ID, "error", err)
			continue
		}

		if err := p.applier.ApplyOutboxItem(ctx, item); err != nil {
			p.handleFailure(ctx, item, err)
			continue
		}

		if err := p.store.MarkOutboxCompleted(ctx, item.ID); err != nil {
			p.logger.ErrorContext(ctx, "Failed to mark outbox item complete",
				log.FieldOutboxID, item.ID, "error", err)
		}
		applied++
	}
	return applied
}

func (p *OutboxProcessor) handleFailure(ctx context.Context, item storage.OutboxItem, applyErr error) {
	attempt := item.Attempts + 1
	p.logger.WarnContext(ctx, "Outbox replay failed",
		log.FieldOutboxID, item.ID,
		log.FieldAttempts, attempt,
		"error", applyErr)

	if attempt >= p.config.MaxRetries {
		if err := p.store.MarkOutboxFailed(ctx, item.ID, applyErr.Error()); err != nil {
			p.logger.ErrorContext(ctx, "Failed to mark outbox item as failed",
				log.FieldOutboxID, item.ID, "error", err)
		}
		fields := log.NewFields().WithFlow(item.Date.String(), int64(item.Income), int64(item.Expense))
		fields[log.FieldOutboxID] = item.ID
		fields[log.FieldAttempts] = attempt
		p.events.LogError(ctx, "Outbox item failed permanently after max retries", applyErr, log.ComponentOutbox, log.OpFlow, fields)
		return
	}

	if err := p.store.RetryOutboxLater(ctx, item.ID, applyErr.Error()); err != nil {
		p.logger.ErrorContext(ctx, "Failed to schedule outbox retry",
			log.FieldOutboxID, item.ID, "error", err)
	}
}

func (p *OutboxProcessor) cleanupCompleted(ctx context.Context) {
	n, err := p.store.CleanupOutbox(ctx, p.config.CleanupAge)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to clean up completed outbox items", "error", err)
		return
	}
	if n > 0 {
		p.logger.DebugContext(ctx, "Cleaned up completed outbox items", "count", n)
	}
}

func (p *OutboxProcessor) Stats(ctx context.Context) (storage.OutboxStats, error) {
	return p.store.OutboxStats(ctx)
}

// RetryFailed returns every failed item to pending.
func (p *OutboxProcessor) RetryFailed(ctx context.Context) (int64, error) {
	return p.store.RetryFailedOutbox(ctx)
}
