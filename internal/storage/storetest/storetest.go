// Package storetest holds the behaviour every storage.Store must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"wisma/internal/core"
	"wisma/internal/storage"
)

// Run exercises newStore against the storage contract. Each subtest gets a
// fresh store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("stays", func(t *testing.T) { testStays(t, newStore(t)) })
	t.Run("concurrent payments", func(t *testing.T) { testConcurrentPayments(t, newStore(t)) })
	t.Run("flows", func(t *testing.T) { testFlows(t, newStore(t)) })
	t.Run("expenses", func(t *testing.T) { testExpenses(t, newStore(t)) })
	t.Run("outbox", func(t *testing.T) { testOutbox(t, newStore(t)) })
}

var base = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func stay(id string, room int, created time.Time) core.Stay {
	in := core.NewDate(2024, 1, 1)
	return core.Stay{
		ID:           id,
		RoomNumber:   room,
		GuestName:    "GUEST " + id,
		Status:       core.StatusCheckedIn,
		CheckInDate:  in,
		CheckOutDate: in.AddDays(4),
		LastDayPaid:  in,
		CreatedAt:    created,
	}
}

func testStays(t *testing.T, store storage.Store) {
	ctx := context.Background()

	if err := store.CreateStay(ctx, stay("a", 105, base)); err != nil {
		t.Fatalf("CreateStay: %v", err)
	}
	if err := store.CreateStay(ctx, stay("b", 106, base.Add(time.Minute))); err != nil {
		t.Fatalf("CreateStay: %v", err)
	}

	err := store.CreateStay(ctx, stay("c", 105, base.Add(2*time.Minute)))
	if !errors.Is(err, core.ErrRoomOccupied) || !core.IsValidation(err) {
		t.Fatalf("second open stay in room 105: %v", err)
	}

	if _, err := store.GetStay(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetStay(missing) = %v", err)
	}

	got, err := store.GetStay(ctx, "a")
	if err != nil {
		t.Fatalf("GetStay: %v", err)
	}
	if got.RoomNumber != 105 || !got.CheckOutDate.IsSame(core.NewDate(2024, 1, 5)) || !got.CreatedAt.Equal(base) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	list, err := store.ListStays(ctx)
	if err != nil {
		t.Fatalf("ListStays: %v", err)
	}
	if len(list) != 2 || list[0].ID != "b" || list[1].ID != "a" {
		t.Fatalf("ListStays should be newest first: %+v", list)
	}

	paid, err := store.ApplyPayment(ctx, "a", core.NewDate(2024, 1, 3), 400000, core.StatusPartiallyPaid)
	if err != nil {
		t.Fatalf("ApplyPayment: %v", err)
	}
	if paid.TotalPayment != 400000 || paid.Status != core.StatusPartiallyPaid || !paid.LastDayPaid.IsSame(core.NewDate(2024, 1, 3)) {
		t.Fatalf("after payment: %+v", paid)
	}

	ext, err := store.UpdateCheckOutDate(ctx, "a", core.NewDate(2024, 1, 8), core.StatusPartiallyPaid)
	if err != nil || !ext.CheckOutDate.IsSame(core.NewDate(2024, 1, 8)) {
		t.Fatalf("UpdateCheckOutDate: %+v %v", ext, err)
	}

	out, err := store.SetStayStatus(ctx, "a", core.StatusCheckedOut)
	if err != nil || out.Status != core.StatusCheckedOut {
		t.Fatalf("SetStayStatus: %+v %v", out, err)
	}

	// Checked-out stays are frozen and free their room.
	if _, err := store.ApplyPayment(ctx, "a", core.NewDate(2024, 1, 4), 1, core.StatusPaid); err == nil {
		t.Fatalf("payment on checked-out stay should fail")
	}
	if err := store.CreateStay(ctx, stay("c", 105, base.Add(3*time.Minute))); err != nil {
		t.Fatalf("room freed by checkout: %v", err)
	}

	active, err := store.ActiveStays(ctx)
	if err != nil {
		t.Fatalf("ActiveStays: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("ActiveStays = %d, want 2", len(active))
	}
	for _, s := range active {
		if s.ID == "a" {
			t.Fatalf("checked-out stay listed as active")
		}
	}
}

func testConcurrentPayments(t *testing.T, store storage.Store) {
	ctx := context.Background()
	if err := store.CreateStay(ctx, stay("p", 201, base)); err != nil {
		t.Fatalf("CreateStay: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.ApplyPayment(ctx, "p", core.NewDate(2024, 1, 2), 1000, core.StatusPartiallyPaid); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("ApplyPayment: %v", err)
	}

	got, err := store.GetStay(ctx, "p")
	if err != nil {
		t.Fatalf("GetStay: %v", err)
	}
	if got.TotalPayment != workers*1000 {
		t.Fatalf("TotalPayment = %d, want %d (lost update)", got.TotalPayment, workers*1000)
	}
}

func testFlows(t *testing.T, store storage.Store) {
	ctx := context.Background()
	day := core.NewDate(2024, 3, 1)

	first, err := store.RecordFlow(ctx, day, 100000, 0)
	if err != nil {
		t.Fatalf("RecordFlow: %v", err)
	}
	merged, err := store.RecordFlow(ctx, day, 0, 30000)
	if err != nil {
		t.Fatalf("RecordFlow: %v", err)
	}
	if merged.ID != first.ID || merged.Amount != 100000 || merged.NegAmount != 30000 {
		t.Fatalf("merge mismatch: first=%+v merged=%+v", first, merged)
	}

	if _, err := store.RecordFlow(ctx, core.NewDate(2024, 2, 10), 5, 0); err != nil {
		t.Fatalf("RecordFlow: %v", err)
	}
	if _, err := store.RecordFlow(ctx, core.NewDate(2024, 3, 20), 7, 0); err != nil {
		t.Fatalf("RecordFlow: %v", err)
	}

	flows, err := store.ListFlows(ctx)
	if err != nil {
		t.Fatalf("ListFlows: %v", err)
	}
	if len(flows) != 3 {
		t.Fatalf("expected one flow per day, got %d", len(flows))
	}
	for i := 1; i < len(flows); i++ {
		if flows[i].Date.IsBefore(flows[i-1].Date) {
			t.Fatalf("flows not ascending: %+v", flows)
		}
	}

	march, err := store.FlowsBetween(ctx, core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31))
	if err != nil {
		t.Fatalf("FlowsBetween: %v", err)
	}
	if len(march) != 2 || !march[0].Date.IsSame(day) {
		t.Fatalf("FlowsBetween = %+v", march)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.RecordFlow(ctx, core.NewDate(2024, 4, 1), 10, 1); err != nil {
				t.Errorf("concurrent RecordFlow: %v", err)
			}
		}()
	}
	wg.Wait()
	april, err := store.FlowsBetween(ctx, core.NewDate(2024, 4, 1), core.NewDate(2024, 4, 1))
	if err != nil || len(april) != 1 || april[0].Amount != 100 || april[0].NegAmount != 10 {
		t.Fatalf("concurrent merge = %+v %v", april, err)
	}
}

func testExpenses(t *testing.T, store storage.Store) {
	ctx := context.Background()
	mk := func(id string, day int, created time.Duration) core.Expense {
		return core.Expense{
			ID:        id,
			Title:     "expense " + id,
			Amount:    1000,
			Date:      core.NewDate(2024, 5, day),
			Category:  core.CategoryWater,
			CreatedAt: base.Add(created),
		}
	}
	for _, e := range []core.Expense{mk("old", 1, 0), mk("new", 9, time.Second), mk("new-later", 9, 2*time.Second)} {
		if err := store.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense: %v", err)
		}
	}

	list, err := store.ListExpenses(ctx)
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	want := []string{"new-later", "new", "old"}
	if len(list) != len(want) {
		t.Fatalf("ListExpenses = %+v", list)
	}
	for i, id := range want {
		if list[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, list[i].ID, id)
		}
	}

	inRange, err := store.ExpensesBetween(ctx, core.NewDate(2024, 5, 2), core.NewDate(2024, 5, 31))
	if err != nil || len(inRange) != 2 {
		t.Fatalf("ExpensesBetween = %+v %v", inRange, err)
	}

	got, err := store.GetExpense(ctx, "old")
	if err != nil || got.Category != core.CategoryWater || got.Amount != 1000 {
		t.Fatalf("GetExpense = %+v %v", got, err)
	}

	if err := store.DeleteExpense(ctx, "old"); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	if err := store.DeleteExpense(ctx, "old"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete = %v", err)
	}
	if _, err := store.GetExpense(ctx, "old"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetExpense after delete = %v", err)
	}
}

func testOutbox(t *testing.T, store storage.Store) {
	ctx := context.Background()
	day := core.NewDate(2024, 6, 1)

	var ids []int64
	for i := 0; i < 3; i++ {
		item, err := store.EnqueueFlow(ctx, day, core.Money(100*(i+1)), 0, fmt.Sprintf("offline %d", i))
		if err != nil {
			t.Fatalf("EnqueueFlow: %v", err)
		}
		if item.Status != storage.OutboxPending || item.Attempts != 0 {
			t.Fatalf("new item = %+v", item)
		}
		ids = append(ids, item.ID)
	}

	pending, err := store.PendingOutbox(ctx, 2)
	if err != nil {
		t.Fatalf("PendingOutbox: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != ids[0] || pending[0].Income != 100 {
		t.Fatalf("PendingOutbox = %+v", pending)
	}

	if err := store.MarkOutboxProcessing(ctx, ids[0]); err != nil {
		t.Fatalf("MarkOutboxProcessing: %v", err)
	}
	if err := store.MarkOutboxCompleted(ctx, ids[0]); err != nil {
		t.Fatalf("MarkOutboxCompleted: %v", err)
	}
	if err := store.RetryOutboxLater(ctx, ids[1], "still offline"); err != nil {
		t.Fatalf("RetryOutboxLater: %v", err)
	}
	if err := store.MarkOutboxFailed(ctx, ids[2], "gave up"); err != nil {
		t.Fatalf("MarkOutboxFailed: %v", err)
	}

	stats, err := store.OutboxStats(ctx)
	if err != nil {
		t.Fatalf("OutboxStats: %v", err)
	}
	if stats != (storage.OutboxStats{Pending: 1, Completed: 1, Failed: 1}) {
		t.Fatalf("stats = %+v", stats)
	}

	pending, _ = store.PendingOutbox(ctx, 10)
	if len(pending) != 1 || pending[0].Attempts != 1 || pending[0].LastError != "still offline" {
		t.Fatalf("retried item = %+v", pending)
	}

	if err := store.MarkOutboxProcessing(ctx, ids[1]); err != nil {
		t.Fatalf("MarkOutboxProcessing: %v", err)
	}
	if n, err := store.ResetStaleOutbox(ctx); err != nil || n != 1 {
		t.Fatalf("ResetStaleOutbox = %d, %v", n, err)
	}
	if n, err := store.RetryFailedOutbox(ctx); err != nil || n != 1 {
		t.Fatalf("RetryFailedOutbox = %d, %v", n, err)
	}
	if n, err := store.CleanupOutbox(ctx, -time.Hour); err != nil || n != 1 {
		t.Fatalf("CleanupOutbox = %d, %v", n, err)
	}

	stats, _ = store.OutboxStats(ctx)
	if stats.Pending != 2 || stats.Completed != 0 || stats.Total() != 2 {
		t.Fatalf("final stats = %+v", stats)
	}
}
