package event

import (
	"testing"
	"time"
)

func TestParseKnownType(t *testing.T) {
	data := []byte(`{
		"type": "message.new",
		"created_at": "2026-03-01T10:00:00Z",
		"cid": "messaging:general",
		"message": {"id": "m1", "text": "hello"},
		"user": {"id": "alice"}
	}`)

	ev, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	msg, ok := ev.(*NewMessage)
	if !ok {
		t.Fatalf("got %T, want *NewMessage", ev)
	}
	if msg.Cid() != "messaging:general" {
		t.Fatalf("cid %q", msg.Cid())
	}
	if msg.Message == nil || msg.Message.Text != "hello" {
		t.Fatalf("message payload: %+v", msg.Message)
	}
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if !msg.EventCreatedAt().Equal(want) {
		t.Fatalf("created at %v", msg.EventCreatedAt())
	}
}

func TestParseUnknownTypeDoesNotFail(t *testing.T) {
	data := []byte(`{"type": "message.reminder_due", "created_at": "2026-03-01T10:00:00Z"}`)

	ev, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	unk, ok := ev.(*Unknown)
	if !ok {
		t.Fatalf("got %T, want *Unknown", ev)
	}
	if unk.EventType() != "message.reminder_due" {
		t.Fatalf("type %q", unk.EventType())
	}
	if len(unk.Raw) == 0 {
		t.Fatal("raw payload not retained")
	}
}

func TestParseMalformedHeader(t *testing.T) {
	if _, err := Parse([]byte(`{"type": 42}`)); err == nil {
		t.Fatal("expected error for non-string type")
	}
}

func TestParseBatchShapes(t *testing.T) {
	array := []byte(`[
		{"type": "typing.start", "created_at": "2026-03-01T10:00:00Z"},
		{"type": "typing.stop", "created_at": "2026-03-01T10:00:01Z"}
	]`)
	wrapped := []byte(`{"events": [
		{"type": "typing.start", "created_at": "2026-03-01T10:00:00Z"},
		{"type": "typing.stop", "created_at": "2026-03-01T10:00:01Z"}
	]}`)

	for _, data := range [][]byte{array, wrapped} {
		events, err := ParseBatch(data)
		if err != nil {
			t.Fatalf("parse batch: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("got %d events", len(events))
		}
		if events[0].EventType() != TypeTypingStart || events[1].EventType() != TypeTypingStop {
			t.Fatalf("wrong types: %s, %s", events[0].EventType(), events[1].EventType())
		}
	}
}

func TestParseBatchRejectsGarbage(t *testing.T) {
	if _, err := ParseBatch([]byte(`"not a batch"`)); err == nil {
		t.Fatal("expected error")
	}
}

func TestSortStableKeepsArrivalOrderOnTies(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := &TypingStart{Base: Base{Type: TypeTypingStart, CreatedAt: ts.Add(time.Second)}}
	b := &TypingStop{Base: Base{Type: TypeTypingStop, CreatedAt: ts}}
	c := &TypingStart{Base: Base{Type: TypeTypingStart, CreatedAt: ts}}

	sorted := SortStable([]Event{a, b, c})
	if sorted[0] != Event(b) || sorted[1] != Event(c) || sorted[2] != Event(a) {
		t.Fatalf("wrong order: %s %s %s", sorted[0].EventType(), sorted[1].EventType(), sorted[2].EventType())
	}
}

func TestSortStableDoesNotMutateInput(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	in := []Event{
		&TypingStart{Base: Base{Type: TypeTypingStart, CreatedAt: ts.Add(time.Second)}},
		&TypingStop{Base: Base{Type: TypeTypingStop, CreatedAt: ts}},
	}
	SortStable(in)
	if in[0].EventType() != TypeTypingStart {
		t.Fatal("input slice reordered")
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	for _, typ := range RegisteredTypes() {
		ev := New(typ)
		if ev == nil {
			t.Fatalf("New(%s) returned nil", typ)
		}
		if ev.EventType() != "" && ev.EventType() != typ {
			t.Fatalf("New(%s) carries type %s", typ, ev.EventType())
		}
	}
	if New("no.such.event") != nil {
		t.Fatal("unregistered type should yield nil")
	}
}
