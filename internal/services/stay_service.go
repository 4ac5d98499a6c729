package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"wisma/internal/amqp"
	"wisma/internal/core"
	"wisma/internal/events"
	"wisma/internal/log"
)

// PaymentResult is a committed payment and the flow it booked.
type PaymentResult struct {
	Stay   core.Stay     `json:"stay"`
	Days   int           `json:"days"`
	Amount core.Money    `json:"amount"`
	Flow   core.DateFlow `json:"flow"`
}

// StayView is a stay with its derived billing figures.
type StayView struct {
	core.Stay
	Outstanding    core.Money `json:"outstanding"`
	PaymentSummary string     `json:"paymentSummary"`
}

// Quote is the amount due to pay through a date.
type Quote struct {
	StayID      string     `json:"stayId"`
	PaidThrough core.Date  `json:"paidThrough"`
	Days        int        `json:"days"`
	Amount      core.Money `json:"amount"`
}

// StayService runs the room ledger. Mutations are serialized in-process;
// money columns are additionally protected by the store's atomic
// increments.
type StayService struct {
	deps   Deps
	flows  *CashFlowService
	logger *log.Logger
	events *log.StructuredLogger
	mu     sync.Mutex
}

func NewStayService(deps Deps, flows *CashFlowService) *StayService {
	deps = deps.withDefaults()
	return &StayService{
		deps:   deps,
		flows:  flows,
		logger: deps.Logger.WithComponent(log.ComponentStay),
		events: log.NewStructuredLogger(deps.Logger),
	}
}

func View(s core.Stay) StayView {
	return StayView{
		Stay:           s,
		Outstanding:    core.OutstandingBalance(s),
		PaymentSummary: core.PaymentSummary(s),
	}
}

// CheckIn opens a new stay.
func (s *StayService) CheckIn(ctx context.Context, req core.CheckInRequest) (core.Stay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.deps.Store.ActiveStays(ctx)
	if err != nil {
		return core.Stay{}, err
	}
	stay, err := core.NewCheckIn(req, active, s.deps.Now())
	if err != nil {
		return core.Stay{}, err
	}
	stay.ID = uuid.NewString()

	// The store enforces one open stay per room as well.
	if err := s.deps.Store.CreateStay(ctx, stay); err != nil {
		return core.Stay{}, core.Persistence("create stay", err)
	}

	s.events.LogStayChanged(ctx, log.OpCheckIn, stay.ID, stay.RoomNumber, string(stay.Status))

	ev := amqp.NewLedgerEvent(amqp.EventCheckIn, stay.ID)
	ev.Room = stay.RoomNumber
	ev.Date = stay.CheckInDate.String()
	ev.Description = fmt.Sprintf("Check-in %s, room %d", stay.GuestName, stay.RoomNumber)
	s.deps.notify(ctx, events.TopicStays, stay.ID, ev)
	return stay, nil
}

func (s *StayService) Get(ctx context.Context, id string) (core.Stay, error) {
	return s.deps.Store.GetStay(ctx, id)
}

// List returns stays newest first, only open ones when activeOnly is set.
func (s *StayService) List(ctx context.Context, activeOnly bool) ([]core.Stay, error) {
	if activeOnly {
		stays, err := s.deps.Store.ActiveStays(ctx)
		if err != nil {
			return nil, err
		}
		core.SortStaysByCreated(stays)
		return stays, nil
	}
	return s.deps.Store.ListStays(ctx)
}

// Quote prices a payment through paidThrough without recording it.
func (s *StayService) Quote(ctx context.Context, id string, paidThrough core.Date) (Quote, error) {
	stay, err := s.deps.Store.GetStay(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	if err := paidThrough.Validate(); err != nil {
		return Quote{}, err
	}
	days, amount := core.PaymentQuote(stay, paidThrough)
	return Quote{StayID: id, PaidThrough: paidThrough, Days: days, Amount: amount}, nil
}

// RecordPayment moves the stay's paid-through date to paidThrough. A zero
// amount charges the quoted price. The income is booked on today's flow;
// a failure there is logged and does not fail the payment.
func (s *StayService) RecordPayment(ctx context.Context, id string, paidThrough core.Date, amount core.Money) (PaymentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stay, err := s.deps.Store.GetStay(ctx, id)
	if err != nil {
		return PaymentResult{}, err
	}

	days, due := core.PaymentQuote(stay, paidThrough)
	if amount == 0 {
		amount = due
	}
	next, err := core.RecordPayment(stay, paidThrough, amount)
	if err != nil {
		return PaymentResult{}, err
	}

	updated, err := s.deps.Store.ApplyPayment(ctx, id, next.LastDayPaid, amount, next.Status)
	if err != nil {
		return PaymentResult{}, core.Persistence("record payment", err)
	}

	s.events.LogStayChanged(ctx, log.OpPayment, updated.ID, updated.RoomNumber, string(updated.Status))

	result := PaymentResult{Stay: updated, Days: days, Amount: amount}
	if s.flows != nil {
		result.Flow = s.flows.recordSecondary(ctx, s.deps.today(), amount, 0)
	}

	ev := amqp.NewLedgerEvent(amqp.EventPayment, updated.ID)
	ev.Room = updated.RoomNumber
	ev.Date = s.deps.today().String()
	ev.Income = int64(amount)
	ev.Description = fmt.Sprintf("Room %d %s, %d days", updated.RoomNumber, updated.GuestName, days)
	s.deps.notify(ctx, events.TopicStays, updated.ID, ev)

	return result, nil
}

// ExtendStay moves the check-out date later.
func (s *StayService) ExtendStay(ctx context.Context, id string, newCheckOut core.Date) (core.Stay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stay, err := s.deps.Store.GetStay(ctx, id)
	if err != nil {
		return core.Stay{}, err
	}
	next, err := core.ExtendStay(stay, newCheckOut)
	if err != nil {
		return core.Stay{}, err
	}

	updated, err := s.deps.Store.UpdateCheckOutDate(ctx, id, next.CheckOutDate, next.Status)
	if err != nil {
		return core.Stay{}, core.Persistence("extend stay", err)
	}

	s.events.LogStayChanged(ctx, log.OpExtend, updated.ID, updated.RoomNumber, string(updated.Status))

	ev := amqp.NewLedgerEvent(amqp.EventExtend, updated.ID)
	ev.Room = updated.RoomNumber
	ev.Date = updated.CheckOutDate.String()
	s.deps.notify(ctx, events.TopicStays, updated.ID, ev)
	return updated, nil
}

// CheckOut closes a fully paid stay and frees its room.
func (s *StayService) CheckOut(ctx context.Context, id string) (core.Stay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stay, err := s.deps.Store.GetStay(ctx, id)
	if err != nil {
		return core.Stay{}, err
	}
	if _, err := core.CheckOut(stay); err != nil {
		return core.Stay{}, err
	}

	updated, err := s.deps.Store.SetStayStatus(ctx, id, core.StatusCheckedOut)
	if err != nil {
		return core.Stay{}, core.Persistence("check out", err)
	}

	s.events.LogStayChanged(ctx, log.OpCheckOut, updated.ID, updated.RoomNumber, string(updated.Status))

	ev := amqp.NewLedgerEvent(amqp.EventCheckOut, updated.ID)
	ev.Room = updated.RoomNumber
	ev.Date = s.deps.today().String()
	s.deps.notify(ctx, events.TopicStays, updated.ID, ev)
	return updated, nil
}

// Occupancy summarizes the open stays as of today.
func (s *StayService) Occupancy(ctx context.Context) (core.Occupancy, error) {
	active, err := s.deps.Store.ActiveStays(ctx)
	if err != nil {
		return core.Occupancy{}, err
	}
	return core.OccupancyFor(active, s.deps.today()), nil
}

// Rooms lists every room with its open stay, if any.
func (s *StayService) Rooms(ctx context.Context) ([]core.RoomSlot, error) {
	active, err := s.deps.Store.ActiveStays(ctx)
	if err != nil {
		return nil, err
	}
	return core.RoomBoard(active), nil
}

// Watch streams the full stay list, newest first.
func (s *StayService) Watch(ctx context.Context, fn func([]core.Stay)) (func(), error) {
	load := func(ctx context.Context) ([]core.Stay, error) { return s.List(ctx, false) }
	return watch(ctx, s.deps.Hub, s.logger, events.TopicStays, load, fn)
}
