package sms

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"
)

// FileSource reads messages from a JSON Lines inbox file, one message
// per line. A missing file is an empty inbox, not an error; malformed
// lines are skipped. The file is re-read on every pass, so dropping new
// exports into it between runs is enough to get them ingested.
type FileSource struct {
	Path string
}

type fileMessage struct {
	ID         string `json:"id"`
	Sender     string `json:"sender"`
	Body       string `json:"body"`
	ReceivedAt string `json:"receivedAt"`
}

func (s *FileSource) Read(ctx context.Context, max int) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if max > 0 && len(out) >= max {
			break
		}
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var fm fileMessage
		if err := json.Unmarshal(raw, &fm); err != nil {
			slog.Warn("Skipping malformed inbox line", "path", s.Path, "line", line, "error", err)
			continue
		}
		msg := Message{ID: fm.ID, Sender: fm.Sender, Body: fm.Body}
		if fm.ReceivedAt != "" {
			if ts, err := time.Parse(time.RFC3339, fm.ReceivedAt); err == nil {
				msg.ReceivedAt = ts
			} else {
				slog.Warn("Skipping inbox line with bad timestamp", "path", s.Path, "line", line, "error", err)
				continue
			}
		}
		out = append(out, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
