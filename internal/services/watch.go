package services

import (
	"context"
	"sync"

	"wisma/internal/events"
	"wisma/internal/log"
)

// watch subscribes to topic and calls fn with a fresh snapshot now and
// after every change. Changes that arrive while a reload is running are
// coalesced into one reload. The returned cancel is idempotent and ending
// ctx has the same effect.
func watch[T any](ctx context.Context, hub *events.Hub, logger *log.Logger, topic events.Topic, load func(context.Context) ([]T, error), fn func([]T)) (func(), error) {
	changed := make(chan struct{}, 1)
	sub := hub.Subscribe(topic, func(events.Event) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	snapshot, err := load(ctx)
	if err != nil {
		sub.Unsubscribe()
		return nil, err
	}
	fn(snapshot)

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			sub.Unsubscribe()
			close(done)
		})
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case <-changed:
				snapshot, err := load(ctx)
				if err != nil {
					logger.WarnContext(ctx, "Failed to reload snapshot", "topic", topic, "error", err)
					continue
				}
				select {
				case <-done:
					return
				default:
				}
				fn(snapshot)
			}
		}
	}()

	return cancel, nil
}
