package amqp

import (
	"encoding/json"
	"time"

	"bilancio/internal/ports"
)

// EventMessage is the wire form of a transaction event. Consumers fetch the
// full transaction by id when they need more.
type EventMessage struct {
	Type          string    `json:"type"`
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	RuleID        string    `json:"rule_id,omitempty"`
	Month         string    `json:"month"`
	Kind          string    `json:"kind,omitempty"`
	AmountCents   int64     `json:"amount_cents"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewEventMessage(ev ports.TransactionEvent) *EventMessage {
	ts := ev.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return &EventMessage{
		Type:          ev.Type,
		TransactionID: ev.TransactionID,
		UserID:        ev.UserID,
		RuleID:        ev.RuleID,
		Month:         ev.Month.String(),
		Kind:          string(ev.Kind),
		AmountCents:   ev.AmountCents,
		Timestamp:     ts.UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
