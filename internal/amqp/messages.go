package amqp

import (
	"encoding/json"
	"time"

	"fintrack/internal/store"
)

// PersistEventMessage announces the outcome of a collection write. It carries
// no collection data; consumers read the collection from the key-value store.
type PersistEventMessage struct {
	Key       string       `json:"key"`
	Revision  uint64       `json:"revision"`
	Status    store.Status `json:"status"`
	Error     string       `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewPersistEventMessage converts a store event to its wire form.
func NewPersistEventMessage(ev store.PersistEvent) *PersistEventMessage {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &PersistEventMessage{
		Key:       ev.Key,
		Revision:  ev.Revision,
		Status:    ev.Status,
		Error:     ev.Error(),
		Timestamp: ts.UTC(),
	}
}

// Succeeded reports whether the write reached the store.
func (m *PersistEventMessage) Succeeded() bool {
	return m.Status == store.StatusSucceeded
}

// ToJSON converts the message to JSON bytes
func (m *PersistEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PersistEventMessageFromJSON parses a message and rejects ones without a key.
func PersistEventMessageFromJSON(data []byte) (*PersistEventMessage, error) {
	var msg PersistEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Key == "" {
		return nil, ErrMissingKey
	}
	return &msg, nil
}
