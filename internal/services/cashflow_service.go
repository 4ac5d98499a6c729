package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"wisma/internal/amqp"
	"wisma/internal/cache"
	"wisma/internal/core"
	"wisma/internal/events"
	"wisma/internal/log"
	"wisma/internal/storage"
)

const (
	rollupCacheSize = 64
	rollupCacheTTL  = 5 * time.Minute
)

// NewExpense is the input for CreateExpense.
type NewExpense struct {
	Title    string
	Amount   core.Money
	Date     core.Date
	Category core.Category
}

type CashFlowService struct {
	deps    Deps
	logger  *log.Logger
	events  *log.StructuredLogger
	rollups *cache.LRUCache[core.Rollup]

	// rollupGen counts flow changes. A rollup read under an older
	// generation is returned but never cached.
	rollupMu  sync.Mutex
	rollupGen uint64
}

func NewCashFlowService(deps Deps) *CashFlowService {
	deps = deps.withDefaults()
	s := &CashFlowService{
		deps:    deps,
		logger:  deps.Logger.WithComponent(log.ComponentCashFlow),
		events:  log.NewStructuredLogger(deps.Logger),
		rollups: cache.NewLRUCache[core.Rollup](rollupCacheSize, rollupCacheTTL),
	}
	deps.Hub.Subscribe(events.TopicFlows, func(events.Event) { s.invalidateRollups() })
	return s
}

func (s *CashFlowService) invalidateRollups() {
	s.rollupMu.Lock()
	defer s.rollupMu.Unlock()
	s.rollupGen++
	s.rollups.Purge()
}

func (s *CashFlowService) rollupGeneration() uint64 {
	s.rollupMu.Lock()
	defer s.rollupMu.Unlock()
	return s.rollupGen
}

// cacheRollup stores r unless flows changed since gen was taken.
func (s *CashFlowService) cacheRollup(key string, gen uint64, r core.Rollup) {
	s.rollupMu.Lock()
	defer s.rollupMu.Unlock()
	if s.rollupGen == gen {
		s.rollups.Set(key, r)
	}
}

// RollupCache exposes the period cache so the owner can sweep it.
func (s *CashFlowService) RollupCache() *cache.LRUCache[core.Rollup] {
	return s.rollups
}

func (s *CashFlowService) Today() core.Date {
	return s.deps.today()
}

// RecordFlow adds income and expense to date's flow. When the store
// rejects the write the delta goes to the outbox and the returned flow
// carries only the delta with PendingSync set.
func (s *CashFlowService) RecordFlow(ctx context.Context, date core.Date, income, expense core.Money) (core.DateFlow, error) {
	flow, err := s.recordFlow(ctx, date, income, expense)
	if err != nil {
		return flow, err
	}

	ev := amqp.NewLedgerEvent(amqp.EventFlowRecorded, date.String())
	ev.Date = date.String()
	ev.Income, ev.Expense = int64(income), int64(expense)
	ev.Description = "Manual entry"
	s.deps.publishBus(ctx, ev)
	return flow, nil
}

func (s *CashFlowService) recordFlow(ctx context.Context, date core.Date, income, expense core.Money) (core.DateFlow, error) {
	if err := date.Validate(); err != nil {
		return core.DateFlow{}, err
	}
	if err := core.ValidateFlowDelta(income, expense); err != nil {
		return core.DateFlow{}, err
	}

	flow, err := s.deps.Store.RecordFlow(ctx, date, income, expense)
	if err == nil {
		s.events.LogFlowRecorded(ctx, date.String(), int64(income), int64(expense), false)
		s.deps.Hub.Publish(events.Event{Topic: events.TopicFlows, Kind: string(amqp.EventFlowRecorded), ID: flow.ID})
		return flow, nil
	}
	if !core.IsPersistence(err) {
		return core.DateFlow{}, err
	}

	item, qerr := s.deps.Store.EnqueueFlow(ctx, date, income, expense, err.Error())
	if qerr != nil {
		s.logger.ErrorContext(ctx, "Failed to enqueue flow after store failure",
			append(log.NewFields().WithFlow(date.String(), int64(income), int64(expense)).ToSlice(),
				"store_error", err, "queue_error", qerr)...)
		return core.DateFlow{}, err
	}

	s.logger.WarnContext(ctx, "Flow queued for retry",
		append(log.NewFields().
			WithFlow(date.String(), int64(income), int64(expense)).
			WithError(err).ToSlice(),
			log.FieldOutboxID, item.ID)...)
	s.events.LogFlowRecorded(ctx, date.String(), int64(income), int64(expense), true)

	return core.DateFlow{Date: date, Amount: income, NegAmount: expense, PendingSync: true}, nil
}

// recordSecondary records the cash-flow side of a mutation whose primary
// write already committed. Failures are logged, never returned.
func (s *CashFlowService) recordSecondary(ctx context.Context, date core.Date, income, expense core.Money) core.DateFlow {
	flow, err := s.recordFlow(ctx, date, income, expense)
	if err != nil {
		s.logger.ErrorContext(ctx, "Cash flow not recorded",
			log.NewFields().
				WithFlow(date.String(), int64(income), int64(expense)).
				WithError(err).
				WithOperation(log.OpFlow).ToSlice()...)
	}
	return flow
}

// ApplyOutboxItem replays a queued delta against the store.
func (s *CashFlowService) ApplyOutboxItem(ctx context.Context, item storage.OutboxItem) error {
	flow, err := s.deps.Store.RecordFlow(ctx, item.Date, item.Income, item.Expense)
	if err != nil {
		return fmt.Errorf("replay outbox item %d: %w", item.ID, err)
	}
	s.events.LogFlowRecorded(ctx, item.Date.String(), int64(item.Income), int64(item.Expense), false)
	s.deps.Hub.Publish(events.Event{Topic: events.TopicFlows, Kind: string(amqp.EventFlowRecorded), ID: flow.ID})
	return nil
}

// ListFlows returns every flow by date ascending.
func (s *CashFlowService) ListFlows(ctx context.Context) ([]core.DateFlow, error) {
	return s.deps.Store.ListFlows(ctx)
}

// Wallet totals every recorded flow.
func (s *CashFlowService) Wallet(ctx context.Context) (core.Summary, error) {
	flows, err := s.deps.Store.ListFlows(ctx)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(flows), nil
}

// Rollup builds the period view offset periods back from today.
func (s *CashFlowService) Rollup(ctx context.Context, period core.Period, offset int) (core.Rollup, error) {
	today := s.deps.today()
	start, end, err := core.PeriodBounds(period, offset, today)
	if err != nil {
		return core.Rollup{}, err
	}

	key := fmt.Sprintf("%s:%d:%s", period, offset, today)
	if r, ok := s.rollups.Get(key); ok {
		return r, nil
	}

	gen := s.rollupGeneration()
	flows, err := s.deps.Store.FlowsBetween(ctx, start, end)
	if err != nil {
		return core.Rollup{}, err
	}
	r, err := core.BuildRollup(flows, period, offset, today)
	if err != nil {
		return core.Rollup{}, err
	}
	s.cacheRollup(key, gen, r)

	s.logger.DebugContext(ctx, "Rollup computed",
		log.FieldPeriod, period,
		log.FieldOffset, offset,
		"flows", len(r.Flows))
	return r, nil
}

// CreateExpense stores a new expense and books it as an expense flow on
// its date.
func (s *CashFlowService) CreateExpense(ctx context.Context, in NewExpense) (core.Expense, error) {
	e := core.Expense{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(in.Title),
		Amount:    in.Amount,
		Date:      in.Date,
		Category:  in.Category,
		CreatedAt: s.deps.Now().UTC(),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	if err := s.deps.Store.CreateExpense(ctx, e); err != nil {
		return core.Expense{}, core.Persistence("create expense", err)
	}

	s.logger.InfoContext(ctx, "Expense created",
		log.NewFields().
			WithExpense(e.ID, string(e.Category), int64(e.Amount)).
			WithOperation(log.OpCreate).ToSlice()...)

	s.recordSecondary(ctx, e.Date, 0, e.Amount)

	ev := amqp.NewLedgerEvent(amqp.EventExpenseCreated, e.ID)
	ev.Date = e.Date.String()
	ev.Expense = int64(e.Amount)
	ev.Description = fmt.Sprintf("%s (%s)", e.Title, e.Category)
	s.deps.notify(ctx, events.TopicExpenses, e.ID, ev)

	return e, nil
}

// DeleteExpense removes the expense record. The flow it contributed to is
// left as recorded.
func (s *CashFlowService) DeleteExpense(ctx context.Context, id string) error {
	e, err := s.deps.Store.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if err := s.deps.Store.DeleteExpense(ctx, id); err != nil {
		return core.Persistence("delete expense", err)
	}

	s.logger.InfoContext(ctx, "Expense deleted",
		log.NewFields().
			WithExpense(e.ID, string(e.Category), int64(e.Amount)).
			WithOperation(log.OpDelete).ToSlice()...)

	ev := amqp.NewLedgerEvent(amqp.EventExpenseDeleted, e.ID)
	ev.Date = e.Date.String()
	ev.Description = e.Title
	s.deps.notify(ctx, events.TopicExpenses, e.ID, ev)
	return nil
}

// ListExpenses returns every expense by date descending.
func (s *CashFlowService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return s.deps.Store.ListExpenses(ctx)
}

func (s *CashFlowService) ExpensesInRange(ctx context.Context, start, end core.Date) ([]core.Expense, error) {
	if end.IsBefore(start) {
		return nil, &core.ValidationError{Err: core.ErrInvalidDate, Msg: "End date must not be before start date"}
	}
	return s.deps.Store.ExpensesBetween(ctx, start, end)
}

func (s *CashFlowService) ExpensesByCategory(ctx context.Context) ([]core.CategoryTotal, error) {
	expenses, err := s.deps.Store.ListExpenses(ctx)
	if err != nil {
		return nil, err
	}
	return core.ExpensesByCategory(expenses), nil
}

// WatchFlows streams the date-ascending flow list.
func (s *CashFlowService) WatchFlows(ctx context.Context, fn func([]core.DateFlow)) (func(), error) {
	return watch(ctx, s.deps.Hub, s.logger, events.TopicFlows, s.ListFlows, fn)
}

// WatchExpenses streams the date-descending expense list.
func (s *CashFlowService) WatchExpenses(ctx context.Context, fn func([]core.Expense)) (func(), error) {
	return watch(ctx, s.deps.Hub, s.logger, events.TopicExpenses, s.ListExpenses, fn)
}
