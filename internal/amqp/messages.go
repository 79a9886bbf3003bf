package amqp

import (
	"encoding/json"
	"time"
)

// ActivitySyncMessage asks the export worker to push one notification
// row to the activity sheet. It carries only the id; the worker fetches
// the full row from the database.
type ActivitySyncMessage struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewActivitySyncMessage(id int64) *ActivitySyncMessage {
	return &ActivitySyncMessage{
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *ActivitySyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ActivitySyncMessageFromJSON(data []byte) (*ActivitySyncMessage, error) {
	var msg ActivitySyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
