package amqp

import (
	"testing"
	"time"
)

func TestSyncRequestMessageRoundTrip(t *testing.T) {
	msg := NewSyncRequestMessage("run-1", 7)
	if msg.Timestamp.IsZero() {
		t.Fatal("timestamp should be set")
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := SyncRequestMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.RunID != "run-1" || got.Queued != 7 {
		t.Fatalf("message = %+v", got)
	}
	if got.Timestamp.Sub(msg.Timestamp) > time.Second {
		t.Fatalf("timestamp drifted: %v vs %v", got.Timestamp, msg.Timestamp)
	}
}

func TestSyncRequestMessageFromInvalidJSON(t *testing.T) {
	if _, err := SyncRequestMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}
