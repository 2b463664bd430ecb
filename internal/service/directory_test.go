package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"alanis-relay/internal/domain"
)

func TestConnectionDirectory_RecordBroadcastsToOthersOnce(t *testing.T) {
	users := newFakeUserRepo("1", "2", "3")
	hub := newFakeHub("h1", "h2", "h3")
	dir := NewConnectionDirectory(zap.NewNop(), users, hub)

	dir.RecordConnection(context.Background(), "1", "h1")

	if got := users.handle("1"); got != "h1" {
		t.Fatalf("expected directory[1]=h1, got %q", got)
	}
	if len(hub.to("h1")) != 0 {
		t.Fatalf("expected no presence event to the triggering handle")
	}
	for _, h := range []string{"h2", "h3"} {
		got := hub.to(h)
		if len(got) != 1 || got[0].event != domain.EventUserOnline || got[0].args[0] != "1" {
			t.Fatalf("expected exactly one user:+ to %s, got %+v", h, got)
		}
	}
}

func TestConnectionDirectory_ClearBroadcastsOffline(t *testing.T) {
	users := newFakeUserRepo("1")
	hub := newFakeHub("h1", "h2")
	dir := NewConnectionDirectory(zap.NewNop(), users, hub)
	dir.RecordConnection(context.Background(), "1", "h1")
	hub.reset()

	if !dir.ClearConnection(context.Background(), "1", "h1") {
		t.Fatalf("expected user to go offline")
	}
	if got := users.handle("1"); got != "" {
		t.Fatalf("expected empty handle, got %q", got)
	}
	got := hub.to("h2")
	if len(got) != 1 || got[0].event != domain.EventUserGone || got[0].args[0] != "1" {
		t.Fatalf("expected exactly one user:- to h2, got %+v", got)
	}
	if len(hub.to("h1")) != 0 {
		t.Fatalf("expected no presence event to the disconnecting handle")
	}
}

func TestConnectionDirectory_StaleDisconnectKeepsNewerHandle(t *testing.T) {
	users := newFakeUserRepo("U")
	hub := newFakeHub("h1", "h2", "other")
	dir := NewConnectionDirectory(zap.NewNop(), users, hub)

	dir.RecordConnection(context.Background(), "U", "h1")
	dir.RecordConnection(context.Background(), "U", "h2")
	hub.reset()

	if dir.ClearConnection(context.Background(), "U", "h1") {
		t.Fatalf("expected stale disconnect to be ignored")
	}
	if got := users.handle("U"); got != "h2" {
		t.Fatalf("expected directory[U]=h2, got %q", got)
	}
	if hub.count(domain.EventUserGone) != 0 {
		t.Fatalf("expected no offline broadcast while h2 is live")
	}
	if got := dir.Lookup(context.Background(), "U"); got != "h2" {
		t.Fatalf("expected lookup h2, got %q", got)
	}
}

func TestConnectionDirectory_WriteFailureStillBroadcasts(t *testing.T) {
	users := newFakeUserRepo("1")
	users.setErr = errors.New("db down")
	users.clearErr = errors.New("db down")
	hub := newFakeHub("h1", "h2")
	dir := NewConnectionDirectory(zap.NewNop(), users, hub)

	dir.RecordConnection(context.Background(), "1", "h1")
	if hub.count(domain.EventUserOnline) != 1 {
		t.Fatalf("expected online broadcast despite write failure")
	}
	if !dir.ClearConnection(context.Background(), "1", "h1") {
		t.Fatalf("expected clear to report offline on write failure")
	}
	if hub.count(domain.EventUserGone) != 1 {
		t.Fatalf("expected offline broadcast despite write failure")
	}
}

func TestConnectionDirectory_Lookup(t *testing.T) {
	users := newFakeUserRepo("1", "2")
	dir := NewConnectionDirectory(zap.NewNop(), users, newFakeHub())
	dir.RecordConnection(context.Background(), "1", "h1")

	if got := dir.Lookup(context.Background(), "1"); got != "h1" {
		t.Fatalf("expected h1, got %q", got)
	}
	if got := dir.Lookup(context.Background(), "2"); got != "" {
		t.Fatalf("expected offline user to be empty, got %q", got)
	}
	if got := dir.Lookup(context.Background(), "unknown"); got != "" {
		t.Fatalf("expected unknown user to be empty, got %q", got)
	}

	users.getErr = errors.New("db down")
	if got := dir.Lookup(context.Background(), "1"); got != "" {
		t.Fatalf("expected read failure to be empty, got %q", got)
	}
}

func TestConnectionDirectory_IgnoresEmptyIdentity(t *testing.T) {
	users := newFakeUserRepo("1")
	hub := newFakeHub("h1", "h2")
	dir := NewConnectionDirectory(zap.NewNop(), users, hub)

	dir.RecordConnection(context.Background(), " ", "h1")
	dir.RecordConnection(context.Background(), "1", "")
	if dir.ClearConnection(context.Background(), "", "h1") {
		t.Fatalf("expected empty user id to be ignored")
	}
	if len(hub.deliveries) != 0 {
		t.Fatalf("expected no broadcasts, got %+v", hub.deliveries)
	}
}
