package repo

import (
	"context"
	"testing"
)

func TestMemoryAccountGetOrCreateIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	a, err := m.AccountGetOrCreate(ctx, "alice", "hash1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.AccountGetOrCreate(ctx, "alice", "hash2")
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != b.ID {
		t.Fatalf("expected the same row on repeated get-or-create")
	}
	if b.PasswordHash != "hash1" {
		t.Fatalf("expected get-or-create to return the original row, got hash %q", b.PasswordHash)
	}
}

func TestMemoryAccountGetOrCreateRejectsEmptyUsername(t *testing.T) {
	m := NewMemory()
	if _, err := m.AccountGetOrCreate(context.Background(), "", "hash"); err == nil {
		t.Fatalf("expected error for empty username")
	}
}

func TestMemoryChannelGetOrCreateIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	a, err := m.ChannelGetOrCreate(ctx, "#general", "welcome", [16]byte{}, [16]byte{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.ChannelGetOrCreate(ctx, "#general", "different topic", [16]byte{}, [16]byte{})
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != b.ID || b.Topic != "welcome" {
		t.Fatalf("expected get-or-create to return the original row")
	}
}

func TestMemoryInsertMessagesAccumulate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.InsertMessage(ctx, EventMessage{ID: "1", Text: "hi"}); err != nil {
		t.Fatal(err)
	}
	if err := m.InsertMessages(ctx, []EventMessage{{ID: "2", Text: "there"}, {ID: "3", Text: "!"}}); err != nil {
		t.Fatal(err)
	}
	if len(m.messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(m.messages))
	}
}

func TestMemoryLoadChannelMembers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	acct, err := m.AccountGetOrCreate(ctx, "alice", "hash")
	if err != nil {
		t.Fatal(err)
	}
	ch, err := m.ChannelGetOrCreate(ctx, "#general", "", [16]byte{}, [16]byte{})
	if err != nil {
		t.Fatal(err)
	}
	m.members[ch.ID] = append(m.members[ch.ID], acct.ID)

	rows, err := m.LoadChannelMembers(ctx, ch.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Username != "alice" {
		t.Fatalf("LoadChannelMembers() = %v", rows)
	}
}
