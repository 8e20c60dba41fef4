package socket

import (
	"testing"
	"time"

	"github.com/driftchat/driftchat-go/internal/event"
)

func TestParseFrameSingleEvent(t *testing.T) {
	events, err := parseFrame([]byte(`{"type": "typing.start", "created_at": "2026-03-01T10:00:00Z"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(events) != 1 || events[0].EventType() != event.TypeTypingStart {
		t.Fatalf("got %d events", len(events))
	}
}

func TestParseFrameArray(t *testing.T) {
	events, err := parseFrame([]byte(`  [
		{"type": "typing.start", "created_at": "2026-03-01T10:00:00Z"},
		{"type": "typing.stop", "created_at": "2026-03-01T10:00:01Z"}
	]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events", len(events))
	}
}

func TestParseFrameWrapper(t *testing.T) {
	events, err := parseFrame([]byte(`{"events": [
		{"type": "typing.start", "created_at": "2026-03-01T10:00:00Z"}
	]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(events) != 1 || events[0].EventType() != event.TypeTypingStart {
		t.Fatalf("wrapper not unpacked: %d events", len(events))
	}
}

func TestParseFrameUnknownTypePasses(t *testing.T) {
	events, err := parseFrame([]byte(`{"type": "poll.vote_cast", "created_at": "2026-03-01T10:00:00Z"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	if _, ok := events[0].(*event.Unknown); !ok {
		t.Fatalf("got %T, want *event.Unknown", events[0])
	}
}

func TestParseFrameGarbage(t *testing.T) {
	if _, err := parseFrame([]byte(`{{{`)); err == nil {
		t.Fatal("expected error")
	}
}

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	b := initialBackoff
	var seen []time.Duration
	for i := 0; i < 8; i++ {
		seen = append(seen, b)
		b = nextBackoff(b)
	}
	if seen[0] != time.Second || seen[1] != 2*time.Second || seen[2] != 4*time.Second {
		t.Fatalf("early backoff: %v", seen[:3])
	}
	if seen[7] != maxBackoff {
		t.Fatalf("backoff did not cap: %v", seen[7])
	}
}
