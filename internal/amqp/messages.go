package amqp

import (
	"encoding/json"
	"time"
)

// StateSyncMessage tells the worker that a user's local snapshot changed.
// It carries no document: the worker reads the latest snapshot itself, so
// redelivered or reordered messages converge on the same result.
type StateSyncMessage struct {
	UserID    string    `json:"user_id"`
	UpdatedAt time.Time `json:"updated_at"`
	Timestamp time.Time `json:"timestamp"`
}

func NewStateSyncMessage(userID string, updatedAt time.Time) *StateSyncMessage {
	return &StateSyncMessage{
		UserID:    userID,
		UpdatedAt: updatedAt,
		Timestamp: time.Now(),
	}
}

func (m *StateSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func StateSyncMessageFromJSON(data []byte) (*StateSyncMessage, error) {
	var msg StateSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
