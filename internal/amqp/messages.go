package amqp

import (
	"encoding/json"
	"time"
)

// Change operations carried on the bus.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpSave   = "save" // wholesale reflection save
)

// ChangeMessage announces one mutation in a user's namespace. It is
// deliberately lightweight: consumers fetch the current collection from the
// document store rather than trusting stale payloads.
type ChangeMessage struct {
	UserID     string    `json:"user_id"`
	Collection string    `json:"collection"`
	Op         string    `json:"op"`
	DocID      string    `json:"doc_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewChangeMessage stamps a change announcement with the current instant.
func NewChangeMessage(userID, collection, op, docID string) *ChangeMessage {
	return &ChangeMessage{
		UserID:     userID,
		Collection: collection,
		Op:         op,
		DocID:      docID,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON creates a message from JSON bytes.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
