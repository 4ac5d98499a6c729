package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wisma/internal/amqp"
	"wisma/internal/core"
	"wisma/internal/events"
	"wisma/internal/log"
	"wisma/internal/storage/memory"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

// flakyStore fails flow writes while failFlows is set. afterRangeRead,
// when set, runs once after FlowsBetween has read its rows.
type flakyStore struct {
	*memory.Store
	failFlows      atomic.Bool
	afterRangeRead func()
}

func (f *flakyStore) FlowsBetween(ctx context.Context, start, end core.Date) ([]core.DateFlow, error) {
	flows, err := f.Store.FlowsBetween(ctx, start, end)
	if hook := f.afterRangeRead; hook != nil {
		f.afterRangeRead = nil
		hook()
	}
	return flows, err
}

func (f *flakyStore) RecordFlow(ctx context.Context, date core.Date, income, expense core.Money) (core.DateFlow, error) {
	if f.failFlows.Load() {
		return core.DateFlow{}, core.Persistence("record flow", errors.New("disk I/O error"))
	}
	return f.Store.RecordFlow(ctx, date, income, expense)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, e *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	store *flakyStore
	hub   *events.Hub
	pub   *recordingPublisher
	logs  *bytes.Buffer
	now   time.Time
	flows *CashFlowService
	stays *StayService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: &flakyStore{Store: memory.New()},
		hub:   events.NewHub(),
		pub:   &recordingPublisher{},
		logs:  &bytes.Buffer{},
		now:   testNow,
	}
	deps := Deps{
		Store:     f.store,
		Hub:       f.hub,
		Publisher: f.pub,
		Logger:    log.New(log.Config{Output: f.logs}),
		Location:  time.UTC,
		Now:       func() time.Time { return f.now },
	}
	f.flows = NewCashFlowService(deps)
	f.stays = NewStayService(deps, f.flows)
	return f
}

func (f *fixture) checkIn(t *testing.T, room int, in, out core.Date) core.Stay {
	t.Helper()
	s, err := f.stays.CheckIn(context.Background(), core.CheckInRequest{
		RoomNumber:   room,
		GuestName:    "sari",
		CheckInDate:  in,
		CheckOutDate: out,
	})
	if err != nil {
		t.Fatalf("CheckIn(%d): %v", room, err)
	}
	return s
}
