package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names what happened to a transaction.
type EventType string

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionDeleted EventType = "transaction.deleted"
)

func (t EventType) Valid() bool {
	return t == EventTransactionCreated || t == EventTransactionDeleted
}

// TransactionEvent is a lightweight notification carrying only the transaction
// ID; consumers load the row from storage when they need it.
type TransactionEvent struct {
	EventID       uuid.UUID `json:"event_id"`
	Type          EventType `json:"type"`
	TransactionID int64     `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionEvent stamps a fresh event ID and the current time.
func NewTransactionEvent(t EventType, transactionID int64) *TransactionEvent {
	return &TransactionEvent{
		EventID:       uuid.New(),
		Type:          t,
		TransactionID: transactionID,
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and checks an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var evt TransactionEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	if !evt.Type.Valid() {
		return nil, fmt.Errorf("unknown event type %q", evt.Type)
	}
	if evt.TransactionID <= 0 {
		return nil, fmt.Errorf("invalid transaction id %d", evt.TransactionID)
	}
	return &evt, nil
}
