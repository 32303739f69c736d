// Package sms defines the message source boundary. The core treats the
// host's inbox as an opaque, finite batch-read capability rather than an
// always-available stream: a read pass can be restarted at any time and
// re-reading the same messages is harmless downstream.
package sms

import (
	"context"
	"time"
)

// Message is one raw notification as supplied by the host message
// source: free text plus metadata. ID may be empty when the source
// cannot supply a stable identifier.
type Message struct {
	ID         string
	Sender     string
	Body       string
	ReceivedAt time.Time
}

// Source reads a finite batch of raw messages. max is a hint for the
// largest batch the caller wants; implementations may return fewer.
type Source interface {
	Read(ctx context.Context, max int) ([]Message, error)
}

// SliceSource serves messages from memory. It backs tests and any host
// integration that hands over an already-materialized batch.
type SliceSource struct {
	Messages []Message
}

func (s *SliceSource) Read(ctx context.Context, max int) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if max <= 0 || max >= len(s.Messages) {
		out := make([]Message, len(s.Messages))
		copy(out, s.Messages)
		return out, nil
	}
	out := make([]Message, max)
	copy(out, s.Messages[:max])
	return out, nil
}
