package model

import "testing"

type recordingSender struct {
	lines  [][]byte
	closed bool
}

func (s *recordingSender) Send(line []byte) { s.lines = append(s.lines, line) }
func (s *recordingSender) Close()           { s.closed = true }

func TestAccountPrefixAnonymous(t *testing.T) {
	a := NewAnonymousAccount("alice")
	a.SetHost("example.net")
	if got, want := a.Prefix(), "alice!user@example.net"; got != want {
		t.Fatalf("Prefix() = %q, want %q", got, want)
	}
}

func TestAccountPrefixRegistered(t *testing.T) {
	a := NewAnonymousAccount("alice")
	a.SetUsername("alice")
	a.SetHost("example.net")
	if got, want := a.Prefix(), "alice!alice@example.net"; got != want {
		t.Fatalf("Prefix() = %q, want %q", got, want)
	}
}

func TestAccountConnectionLifecycle(t *testing.T) {
	a := NewAnonymousAccount("alice")
	c1 := NewConnection("127.0.0.1:1", &recordingSender{})
	c2 := NewConnection("127.0.0.1:2", &recordingSender{})
	a.AddConnection(c1)
	a.AddConnection(c2)
	if !a.HasConnections() {
		t.Fatalf("expected connections")
	}
	if remaining := a.RemoveConnection(c1); remaining != 1 {
		t.Fatalf("remaining = %d, want 1", remaining)
	}
	if remaining := a.RemoveConnection(c2); remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}
	if a.HasConnections() {
		t.Fatalf("expected no connections left")
	}
}

func TestAccountMerge(t *testing.T) {
	from := NewAnonymousAccount("anon")
	into := NewAnonymousAccount("real")
	into.SetUsername("real")

	c := NewConnection("127.0.0.1:1", &recordingSender{})
	from.AddConnection(c)
	c.SetAccount(from)

	into.Merge(from)

	if from.HasConnections() {
		t.Fatalf("expected source account to lose its connections")
	}
	if !into.HasConnections() {
		t.Fatalf("expected destination account to gain the connection")
	}
	if c.Account() != into {
		t.Fatalf("expected Merge to repoint the connection at the destination account")
	}
}

func TestAccountMetadata(t *testing.T) {
	a := NewAnonymousAccount("alice")
	if _, ok := a.Metadata("color"); ok {
		t.Fatalf("expected no metadata set")
	}
	a.SetMetadata("color", "blue")
	if v, ok := a.Metadata("color"); !ok || v != "blue" {
		t.Fatalf("Metadata() = %q, %v, want blue, true", v, ok)
	}
	a.DeleteMetadata("color")
	if _, ok := a.Metadata("color"); ok {
		t.Fatalf("expected metadata to be gone after delete")
	}
}

func TestChannelMembership(t *testing.T) {
	ch := NewChannel("#general")
	a := NewAnonymousAccount("alice")
	b := NewAnonymousAccount("bob")

	if !ch.AddMember(a) {
		t.Fatalf("expected first add to succeed")
	}
	if ch.AddMember(a) {
		t.Fatalf("expected duplicate add to report false")
	}
	ch.AddMember(b)
	if !ch.Has(a) || !ch.Has(b) {
		t.Fatalf("expected both members present")
	}
	if remaining := ch.RemoveMember(a); remaining != 1 {
		t.Fatalf("remaining = %d, want 1", remaining)
	}
	if ch.Empty() {
		t.Fatalf("expected channel to still have bob")
	}
	ch.RemoveMember(b)
	if !ch.Empty() {
		t.Fatalf("expected channel to be empty")
	}
}

func TestChannelRenamePreservesID(t *testing.T) {
	ch := NewChannel("#general")
	id := ch.ID()
	ch.Rename("#chatter")
	if ch.ID() != id {
		t.Fatalf("expected rename to preserve identity")
	}
	if ch.Name() != "#chatter" {
		t.Fatalf("Name() = %q, want #chatter", ch.Name())
	}
	if ch.FoldedName() != "#chatter" {
		t.Fatalf("FoldedName() = %q, want #chatter", ch.FoldedName())
	}
}

func TestChannelModeStringIncludesArgs(t *testing.T) {
	ch := NewChannel("#locked")
	ch.SetMode(ModeKey, true)
	ch.SetKey("hunter2")
	ch.SetMode(ModeLimit, true)
	ch.SetLimit(10)

	letters, args := ch.ModeString(true)
	if letters != "+kl" {
		t.Fatalf("letters = %q, want +kl", letters)
	}
	if len(args) != 2 || args[0] != "hunter2" || args[1] != "10" {
		t.Fatalf("args = %v, want [hunter2 10]", args)
	}
}

func TestChannelBanList(t *testing.T) {
	ch := NewChannel("#general")
	ch.AddBan("*!*@bad.example")
	bans := ch.BanList()
	if len(bans) != 1 || bans[0] != "*!*@bad.example" {
		t.Fatalf("BanList() = %v", bans)
	}
	ch.RemoveBan("*!*@bad.example")
	if len(ch.BanList()) != 0 {
		t.Fatalf("expected ban removed")
	}
}

func TestConnectionSeenMemberMirror(t *testing.T) {
	c := NewConnection("127.0.0.1:1", &recordingSender{})
	a := NewAnonymousAccount("alice")

	if c.HasSeenMember("#general", a) {
		t.Fatalf("expected not seen yet")
	}
	c.MarkSeenMember("#general", a)
	if !c.HasSeenMember("#general", a) {
		t.Fatalf("expected seen after marking")
	}
	c.ForgetChannel("#general")
	if c.HasSeenMember("#general", a) {
		t.Fatalf("expected forgotten after ForgetChannel")
	}
}

func TestConnectionCapNegotiation(t *testing.T) {
	c := NewConnection("127.0.0.1:1", &recordingSender{})
	if c.HasCap("multi-prefix") {
		t.Fatalf("expected no caps by default")
	}
	c.SetCap("multi-prefix", true)
	if !c.HasCap("multi-prefix") {
		t.Fatalf("expected cap set")
	}
	c.SetCap("multi-prefix", false)
	if c.HasCap("multi-prefix") {
		t.Fatalf("expected cap cleared")
	}
}

func TestConnectionUserModeToggle(t *testing.T) {
	c := NewConnection("127.0.0.1:1", &recordingSender{})
	if !c.SetUserMode(UserInvisible, true) {
		t.Fatalf("expected first set to report changed")
	}
	if c.SetUserMode(UserInvisible, true) {
		t.Fatalf("expected redundant set to report unchanged")
	}
	if c.UserModes()&UserInvisible == 0 {
		t.Fatalf("expected UserInvisible set")
	}
}

func TestConnectionSendDelegatesToSender(t *testing.T) {
	sender := &recordingSender{}
	c := NewConnection("127.0.0.1:1", sender)
	c.Send([]byte("PING :x"))
	if len(sender.lines) != 1 || string(sender.lines[0]) != "PING :x" {
		t.Fatalf("sender did not receive the line")
	}
	c.Close()
	if !sender.closed {
		t.Fatalf("expected sender closed")
	}
}
