package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"captioncraft/client"
)

func TestActivityFeedRecord(t *testing.T) {
	f := NewActivityFeed(80, 5)
	f.Record(client.Event{
		Method:     "POST",
		URL:        "http://localhost:8000/api/caption",
		StatusCode: 200,
		Latency:    1500 * time.Millisecond,
		BytesSent:  2048,
	})

	if len(f.Messages) != 1 {
		t.Fatalf("messages = %d", len(f.Messages))
	}
	msg := f.Messages[0]
	if msg.Type != MsgTypeResponse {
		t.Errorf("type = %s", msg.Type)
	}
	if msg.Title != "POST /api/caption -> 200" {
		t.Errorf("title = %q", msg.Title)
	}
	if msg.Detail != "2.0 kB sent" {
		t.Errorf("detail = %q", msg.Detail)
	}
	if !strings.Contains(f.Render(), "1.5s") {
		t.Error("render should include latency")
	}
}

func TestActivityFeedRecordError(t *testing.T) {
	f := NewActivityFeed(80, 5)
	f.Record(client.Event{Method: "POST", URL: "http://localhost:8000/api/caption", Err: errors.New("connection refused")})

	msg := f.Messages[0]
	if msg.Type != MsgTypeError || msg.Err != "connection refused" {
		t.Errorf("msg = %+v", msg)
	}
	if strings.Contains(msg.Title, "->") {
		t.Error("no status code without a response")
	}
}

func TestActivityFeedTrims(t *testing.T) {
	f := NewActivityFeed(80, 5)
	f.MaxMessages = 3
	for i := 0; i < 5; i++ {
		f.AddStatus(string(rune('a' + i)))
	}
	if len(f.Messages) != 3 || f.Messages[0].Title != "c" {
		t.Errorf("messages = %+v", f.Messages)
	}

	f.Clear()
	if !strings.Contains(f.Render(), "No activity yet") {
		t.Error("empty feed placeholder missing")
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"a much longer line", 10, "a much ..."},
		{"line\nbreak", 20, "line break"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
