package domain

import (
	"testing"
	"time"
)

func TestMessageCounterpart(t *testing.T) {
	msg := Message{ID: "m1", SenderID: "1", RecipientID: "2"}

	if got := msg.Counterpart("1"); got != "2" {
		t.Fatalf("expected 2, got %q", got)
	}
	if got := msg.Counterpart("2"); got != "1" {
		t.Fatalf("expected 1, got %q", got)
	}
	if got := msg.Counterpart("3"); got != "" {
		t.Fatalf("expected empty counterpart for outsider, got %q", got)
	}
}

func TestMessageHasParticipant(t *testing.T) {
	msg := Message{SenderID: "1", RecipientID: "2"}
	if !msg.HasParticipant("1") || !msg.HasParticipant("2") {
		t.Fatalf("expected both ids to be participants")
	}
	if msg.HasParticipant("") || msg.HasParticipant("3") {
		t.Fatalf("expected empty and outsider ids to be rejected")
	}
}

func TestMessageBeforeCursor(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	a := Message{ID: "01A", CreatedAt: at}
	b := Message{ID: "01B", CreatedAt: at}

	if !a.Before(b.Cursor()) {
		t.Fatalf("expected same-timestamp message with lower id to come first")
	}
	if b.Before(b.Cursor()) {
		t.Fatalf("cursor must be exclusive")
	}
	if a.Before(HistoryCursor{CreatedAt: at}) {
		t.Fatalf("expected empty cursor id to exclude the cursor timestamp")
	}
	if !a.Before(HistoryCursor{CreatedAt: at.Add(time.Millisecond)}) {
		t.Fatalf("expected older message to come first")
	}
}
