// Package memory is an in-process storage.Store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"wisma/internal/core"
	"wisma/internal/storage"
)

type Store struct {
	mu       sync.Mutex
	stays    map[string]core.Stay
	flows    map[string]core.DateFlow // keyed by day
	expenses map[string]core.Expense
	outbox   []storage.OutboxItem
	nextID   int64
	now      func() time.Time
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		stays:    make(map[string]core.Stay),
		flows:    make(map[string]core.DateFlow),
		expenses: make(map[string]core.Expense),
		now:      time.Now,
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
}

// Stays

func (s *Store) CreateStay(_ context.Context, st core.Stay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.stays {
		if existing.RoomNumber == st.RoomNumber && existing.Active() {
			return core.RoomOccupied(st.RoomNumber)
		}
	}
	if _, ok := s.stays[st.ID]; ok {
		return core.Persistence("create stay", fmt.Errorf("duplicate id %s", st.ID))
	}
	s.stays[st.ID] = st
	return nil
}

func (s *Store) GetStay(_ context.Context, id string) (core.Stay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stays[id]
	if !ok {
		return core.Stay{}, notFound("stay", id)
	}
	return st, nil
}

func (s *Store) ListStays(context.Context) ([]core.Stay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedStays(func(core.Stay) bool { return true }), nil
}

func (s *Store) ActiveStays(context.Context) ([]core.Stay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedStays(core.Stay.Active), nil
}

func (s *Store) sortedStays(keep func(core.Stay) bool) []core.Stay {
	out := make([]core.Stay, 0, len(s.stays))
	for _, st := range s.stays {
		if keep(st) {
			out = append(out, st)
		}
	}
	// Map order is random; break created-at ties by id for a stable order.
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// updateOpen applies fn to an open stay under the lock.
func (s *Store) updateOpen(id string, fn func(*core.Stay)) (core.Stay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stays[id]
	if !ok || !st.Active() {
		return core.Stay{}, notFound("stay", id)
	}
	fn(&st)
	s.stays[id] = st
	return st, nil
}

func (s *Store) ApplyPayment(_ context.Context, id string, lastDayPaid core.Date, amount core.Money, status core.Status) (core.Stay, error) {
	return s.updateOpen(id, func(st *core.Stay) {
		st.LastDayPaid = lastDayPaid
		st.TotalPayment += amount
		st.Status = status
	})
}

func (s *Store) UpdateCheckOutDate(_ context.Context, id string, checkOut core.Date, status core.Status) (core.Stay, error) {
	return s.updateOpen(id, func(st *core.Stay) {
		st.CheckOutDate = checkOut
		st.Status = status
	})
}

func (s *Store) SetStayStatus(_ context.Context, id string, status core.Status) (core.Stay, error) {
	return s.updateOpen(id, func(st *core.Stay) {
		st.Status = status
	})
}

// Flows

func (s *Store) RecordFlow(_ context.Context, date core.Date, income, expense core.Money) (core.DateFlow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := date.String()
	f, ok := s.flows[key]
	if !ok {
		f = core.DateFlow{ID: uuid.NewString(), Date: date}
	}
	f = core.MergeFlow(f, income, expense)
	s.flows[key] = f
	return f, nil
}

func (s *Store) ListFlows(context.Context) ([]core.DateFlow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.DateFlow, 0, len(s.flows))
	for _, f := range s.flows {
		out = append(out, f)
	}
	core.SortFlowsByDate(out)
	return out, nil
}

func (s *Store) FlowsBetween(ctx context.Context, start, end core.Date) ([]core.DateFlow, error) {
	all, _ := s.ListFlows(ctx)
	out := all[:0]
	for _, f := range all {
		if !f.Date.IsBefore(start) && !f.Date.IsAfter(end) {
			out = append(out, f)
		}
	}
	return out, nil
}

// Expenses

func (s *Store) CreateExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[e.ID]; ok {
		return core.Persistence("create expense", fmt.Errorf("duplicate id %s", e.ID))
	}
	s.expenses[e.ID] = e
	return nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, notFound("expense", id)
	}
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return notFound("expense", id)
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) ListExpenses(context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		out = append(out, e)
	}
	core.SortExpensesByDate(out)
	return out, nil
}

func (s *Store) ExpensesBetween(ctx context.Context, start, end core.Date) ([]core.Expense, error) {
	all, _ := s.ListExpenses(ctx)
	out := all[:0]
	for _, e := range all {
		if !e.Date.IsBefore(start) && !e.Date.IsAfter(end) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Outbox

func (s *Store) EnqueueFlow(_ context.Context, date core.Date, income, expense core.Money, reason string) (storage.OutboxItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := s.now().UTC()
	item := storage.OutboxItem{
		ID:        s.nextID,
		Date:      date,
		Income:    income,
		Expense:   expense,
		Status:    storage.OutboxPending,
		LastError: reason,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.outbox = append(s.outbox, item)
	return item, nil
}

func (s *Store) PendingOutbox(_ context.Context, limit int) ([]storage.OutboxItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.OutboxItem
	for _, item := range s.outbox {
		if len(out) >= limit {
			break
		}
		if item.Status == storage.OutboxPending {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *Store) updateOutbox(id int64, fn func(*storage.OutboxItem)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].ID == id {
			fn(&s.outbox[i])
			s.outbox[i].UpdatedAt = s.now().UTC()
			return nil
		}
	}
	return notFound("outbox item", fmt.Sprint(id))
}

func (s *Store) MarkOutboxProcessing(_ context.Context, id int64) error {
	return s.updateOutbox(id, func(item *storage.OutboxItem) {
		item.Status = storage.OutboxProcessing
		item.LastError = ""
	})
}

func (s *Store) MarkOutboxCompleted(_ context.Context, id int64) error {
	return s.updateOutbox(id, func(item *storage.OutboxItem) {
		item.Status = storage.OutboxCompleted
		item.LastError = ""
	})
}

func (s *Store) MarkOutboxFailed(_ context.Context, id int64, reason string) error {
	return s.updateOutbox(id, func(item *storage.OutboxItem) {
		item.Status = storage.OutboxFailed
		item.Attempts++
		item.LastError = reason
	})
}

func (s *Store) RetryOutboxLater(_ context.Context, id int64, reason string) error {
	return s.updateOutbox(id, func(item *storage.OutboxItem) {
		item.Status = storage.OutboxPending
		item.Attempts++
		item.LastError = reason
	})
}

func (s *Store) ResetStaleOutbox(context.Context) (int64, error) {
	return s.transition(storage.OutboxProcessing, func(item *storage.OutboxItem) {
		item.Status = storage.OutboxPending
	}), nil
}

func (s *Store) RetryFailedOutbox(context.Context) (int64, error) {
	return s.transition(storage.OutboxFailed, func(item *storage.OutboxItem) {
		item.Status = storage.OutboxPending
		item.Attempts = 0
	}), nil
}

func (s *Store) transition(from storage.OutboxStatus, fn func(*storage.OutboxItem)) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := s.now().UTC()
	for i := range s.outbox {
		if s.outbox[i].Status == from {
			fn(&s.outbox[i])
			s.outbox[i].UpdatedAt = now
			n++
		}
	}
	return n
}

func (s *Store) CleanupOutbox(_ context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-olderThan)
	kept := s.outbox[:0]
	var removed int64
	for _, item := range s.outbox {
		if item.Status == storage.OutboxCompleted && item.UpdatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	s.outbox = kept
	return removed, nil
}

func (s *Store) OutboxStats(context.Context) (storage.OutboxStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st storage.OutboxStats
	for _, item := range s.outbox {
		switch item.Status {
		case storage.OutboxPending:
			st.Pending++
		case storage.OutboxProcessing:
			st.Processing++
		case storage.OutboxCompleted:
			st.Completed++
		case storage.OutboxFailed:
			st.Failed++
		}
	}
	return st, nil
}
