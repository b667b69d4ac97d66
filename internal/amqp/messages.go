package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EntrySyncMessage asks the worker to export one fuel entry to the
// spreadsheet. The worker loads the entry itself.
type EntrySyncMessage struct {
	ID        int64     `json:"id"`
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntrySyncMessage(id int64) *EntrySyncMessage {
	return &EntrySyncMessage{
		ID:        id,
		MessageID: uuid.NewString(),
		Timestamp: time.Now().UTC(),
	}
}

func (m *EntrySyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntrySyncMessageFromJSON(data []byte) (*EntrySyncMessage, error) {
	var msg EntrySyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
