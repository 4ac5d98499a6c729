// Package adapters bridges service ports to in-process implementations.
package adapters

import (
	"context"

	"wisma/internal/amqp"
	"wisma/internal/log"
)

// LedgerEventHandler consumes one ledger event, as the export worker does.
type LedgerEventHandler interface {
	HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// InlinePublisher satisfies the services' publisher port by handing events
// straight to a handler. The server uses it when no broker is configured
// but an export sink is, so rows are still written.
type InlinePublisher struct {
	handler LedgerEventHandler
	logger  *log.Logger
}

func NewInlinePublisher(handler LedgerEventHandler, logger *log.Logger) *InlinePublisher {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &InlinePublisher{handler: handler, logger: logger.WithComponent(log.ComponentWorker)}
}

// PublishLedgerEvent validates ev and runs the handler synchronously.
func (p *InlinePublisher) PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if err := p.handler.HandleLedgerEvent(ctx, ev); err != nil {
		p.logger.WarnContext(ctx, "Inline export failed",
			"type", ev.Type,
			"entity_id", ev.EntityID,
			log.FieldError, err)
		return err
	}
	return nil
}
