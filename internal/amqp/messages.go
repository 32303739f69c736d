package amqp

import (
	"encoding/json"
	"time"
)

// SyncRequestMessage asks the worker to drain the local sync queue.
// It carries only the run context; the worker reads the queued
// transactions from the database itself.
type SyncRequestMessage struct {
	RunID     string    `json:"runId"`
	Queued    int       `json:"queued"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSyncRequestMessage(runID string, queued int) *SyncRequestMessage {
	return &SyncRequestMessage{
		RunID:     runID,
		Queued:    queued,
		Timestamp: time.Now(),
	}
}

func (m *SyncRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SyncRequestMessageFromJSON(data []byte) (*SyncRequestMessage, error) {
	var msg SyncRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
