// Package services holds the ledger use cases. Each mutation validates with
// the pure functions in core, commits through a storage port, then notifies
// the change feed and the ledger event bus.
package services

import (
	"context"
	"time"

	"wisma/internal/amqp"
	"wisma/internal/core"
	"wisma/internal/events"
	"wisma/internal/log"
	"wisma/internal/storage"
)

// LedgerPublisher ships committed mutations to the export pipeline.
type LedgerPublisher interface {
	PublishLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error
}

// Deps are the collaborators shared by the services. Publisher may be nil
// when no event bus is configured.
type Deps struct {
	Store     storage.Store
	Hub       *events.Hub
	Publisher LedgerPublisher
	Logger    *log.Logger
	Location  *time.Location
	Now       func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Hub == nil {
		d.Hub = events.NewHub()
	}
	if d.Logger == nil {
		d.Logger = log.New(log.DefaultConfig())
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

func (d Deps) today() core.Date {
	return core.DateOf(d.Now(), d.Location)
}

// notify tells local observers and the event bus that topic changed. Bus
// failures are logged and swallowed: the mutation is already committed.
func (d Deps) notify(ctx context.Context, topic events.Topic, id string, event *amqp.LedgerEvent) {
	d.Hub.Publish(events.Event{Topic: topic, Kind: string(event.Type), ID: id})
	d.publishBus(ctx, event)
}

func (d Deps) publishBus(ctx context.Context, event *amqp.LedgerEvent) {
	if d.Publisher == nil {
		return
	}
	if err := d.Publisher.PublishLedgerEvent(ctx, event); err != nil {
		d.Logger.WithComponent(log.ComponentAMQP).WarnContext(ctx, "Failed to publish ledger event",
			"type", event.Type,
			"entity_id", event.EntityID,
			"error", err)
	}
}
