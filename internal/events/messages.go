package events

import (
	"encoding/json"
	"time"
)

// Event kinds carried on the engine's outbound stream. The notification
// collaborator consumes all of them; the export worker acts only on
// KindSummaryUpdated.
const (
	KindFulfillmentRecorded = "fulfillment.recorded"
	KindFulfillmentUndone   = "fulfillment.undone"
	KindLifecycleExpired    = "lifecycle.expired"
	KindLifecycleDeleted    = "lifecycle.deleted"
	KindOverdueDetected     = "overdue.detected"
	KindSummaryUpdated      = "summary.updated"
)

// Message is the envelope for every engine event. Payload fields are
// sparse; consumers read the ones their kind defines.
type Message struct {
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	// Fulfillment and overdue events
	Source       string `json:"source,omitempty"`
	ObligationID int64  `json:"obligation_id,omitempty"`
	Name         string `json:"name,omitempty"`
	AmountCents  int64  `json:"amount_cents,omitempty"`
	Date         string `json:"date,omitempty"`

	// Lifecycle events
	Names []string `json:"names,omitempty"`

	// Month-scoped events
	Month int `json:"month,omitempty"`
	Year  int `json:"year,omitempty"`
}

func NewMessage(kind string) *Message {
	return &Message{Kind: kind, Timestamp: time.Now()}
}

func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
