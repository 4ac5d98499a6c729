package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names a committed ledger mutation.
type EventType string

const (
	EventCheckIn        EventType = "stay.checked_in"
	EventPayment        EventType = "stay.payment"
	EventExtend         EventType = "stay.extended"
	EventCheckOut       EventType = "stay.checked_out"
	EventFlowRecorded   EventType = "flow.recorded"
	EventExpenseCreated EventType = "expense.created"
	EventExpenseDeleted EventType = "expense.deleted"
)

// LedgerEvent is published after every committed ledger mutation. Income
// and Expense carry the cash-flow delta the mutation caused, if any.
type LedgerEvent struct {
	Type        EventType `json:"type"`
	EntityID    string    `json:"entityId"`
	Room        int       `json:"room,omitempty"`
	Date        string    `json:"date,omitempty"`
	Income      int64     `json:"income"`
	Expense     int64     `json:"expense"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewLedgerEvent(typ EventType, entityID string) *LedgerEvent {
	return &LedgerEvent{
		Type:      typ,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}

// AffectsCashFlow reports whether the event moved money.
func (e *LedgerEvent) AffectsCashFlow() bool {
	return e.Income != 0 || e.Expense != 0
}

func (e *LedgerEvent) Validate() error {
	if e.Type == "" {
		return fmt.Errorf("ledger event: missing type")
	}
	if e.EntityID == "" {
		return fmt.Errorf("ledger event %s: missing entity id", e.Type)
	}
	if e.Income < 0 || e.Expense < 0 {
		return fmt.Errorf("ledger event %s: negative amounts", e.Type)
	}
	return nil
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
