package amqp

import (
	"encoding/json"
	"time"
)

// FillupSyncMessage is a lightweight message for exporting a fillup. It
// carries only the ID and version, the worker fetches the full record from
// the database.
type FillupSyncMessage struct {
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Deleted   bool      `json:"deleted,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewFillupSyncMessage creates a sync message with just ID and version
func NewFillupSyncMessage(id, version int64) *FillupSyncMessage {
	return &FillupSyncMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// NewFillupDeleteMessage creates a message asking the worker to remove the
// exported row for a deleted fillup.
func NewFillupDeleteMessage(id int64) *FillupSyncMessage {
	return &FillupSyncMessage{
		ID:        id,
		Deleted:   true,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *FillupSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func FillupSyncMessageFromJSON(data []byte) (*FillupSyncMessage, error) {
	var msg FillupSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
