package amqp

import (
	"encoding/json"
	"time"
)

const (
	EventExpenseCreated = "expense.created"
	EventExpenseUpdated = "expense.updated"
)

// ExpenseEvent notifies downstream consumers that an expense was written.
// It carries only the id and the schema version stamped on the write;
// consumers fetch the full record themselves.
type ExpenseEvent struct {
	Event         string    `json:"event"`
	ID            string    `json:"id"`
	SchemaVersion string    `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewExpenseEvent(event, id, schemaVersion string) *ExpenseEvent {
	return &ExpenseEvent{
		Event:         event,
		ID:            id,
		SchemaVersion: schemaVersion,
		Timestamp:     time.Now().UTC(),
	}
}

func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
