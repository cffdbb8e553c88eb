package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Op is the kind of change a message announces.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// ChangeMessage announces that one record was committed to the store.
// It carries only the record id; consumers read the record itself from the store.
type ChangeMessage struct {
	MessageID  string    `json:"message_id"`
	Collection string    `json:"collection"`
	Op         Op        `json:"op"`
	RecordID   int64     `json:"record_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewChangeMessage creates a message with a fresh id
func NewChangeMessage(collection string, op Op, recordID int64) *ChangeMessage {
	return &ChangeMessage{
		MessageID:  uuid.NewString(),
		Collection: collection,
		Op:         op,
		RecordID:   recordID,
		Timestamp:  time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (m *ChangeMessage) Validate() error {
	switch m.Op {
	case OpCreated, OpUpdated, OpDeleted:
	default:
		return fmt.Errorf("unknown op %q", m.Op)
	}
	if m.Collection == "" {
		return fmt.Errorf("missing collection")
	}
	if m.RecordID <= 0 {
		return fmt.Errorf("invalid record id %d", m.RecordID)
	}
	return nil
}

// ChangeMessageFromJSON decodes and validates a message body.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
