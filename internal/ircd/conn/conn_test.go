package conn

import (
	"strings"
	"testing"

	"github.com/kroketio/chatripper-ircd/internal/ircd/auth"
	"github.com/kroketio/chatripper-ircd/internal/ircd/events"
	"github.com/kroketio/chatripper-ircd/internal/ircd/ircline"
	"github.com/kroketio/chatripper-ircd/internal/ircd/model"
	"github.com/kroketio/chatripper-ircd/internal/ircd/registry"
)

// recordingSender captures every line sent to it, the way a real
// transport would hand them to the socket's write goroutine.
type recordingSender struct {
	lines [][]byte
}

func (s *recordingSender) Send(line []byte) { s.lines = append(s.lines, append([]byte(nil), line...)) }
func (s *recordingSender) Close()           {}

func (s *recordingSender) commands() []string {
	out := make([]string, 0, len(s.lines))
	for _, l := range s.lines {
		msg, _ := ircline.Parse(l)
		out = append(out, msg.Command)
	}
	return out
}

func (s *recordingSender) hasCommand(cmd string) bool {
	for _, c := range s.commands() {
		if c == cmd {
			return true
		}
	}
	return false
}

func (s *recordingSender) lastLine() string {
	if len(s.lines) == 0 {
		return ""
	}
	return string(s.lines[len(s.lines)-1])
}

func newTestRuntime() *Runtime {
	return &Runtime{
		Registry: registry.New(),
		Bus:      events.NewBus(),
		Hasher:   auth.NewBcrypt(),
		Config: &Config{
			ServerName: "irc.test",
			Network:    "TestNet",
			MaxNick:    32,
		},
	}
}

func newTestConn(rt *Runtime) (*Conn, *recordingSender) {
	sender := &recordingSender{}
	c := New(rt, "127.0.0.1:4000", sender)
	return c, sender
}

func registerConn(t *testing.T, c *Conn, nick string) {
	t.Helper()
	c.HandleLine([]byte("NICK " + nick))
	c.HandleLine([]byte("USER " + nick + " 0 * :" + nick + " Realname"))
	if c.state != StateReady {
		t.Fatalf("expected StateReady after NICK+USER, got %v", c.state)
	}
}

func TestRegistrationFinalizesAfterNickAndUser(t *testing.T) {
	rt := newTestRuntime()
	c, sender := newTestConn(rt)

	registerConn(t, c, "alice")

	if !sender.hasCommand(ircline.RPL_WELCOME) {
		t.Fatalf("expected RPL_WELCOME among replies, got %v", sender.commands())
	}
	if !sender.hasCommand(ircline.ERR_NOMOTD) {
		t.Fatalf("expected ERR_NOMOTD since no MOTD is configured, got %v", sender.commands())
	}
}

func TestRegistrationWaitsForCapEnd(t *testing.T) {
	rt := newTestRuntime()
	c, sender := newTestConn(rt)

	c.HandleLine([]byte("CAP LS 302"))
	c.HandleLine([]byte("NICK alice"))
	c.HandleLine([]byte("USER alice 0 * :Alice"))
	if c.state != StateGreet {
		t.Fatalf("expected registration to stay pending while CAP negotiation is open")
	}
	if sender.hasCommand(ircline.RPL_WELCOME) {
		t.Fatalf("did not expect welcome before CAP END")
	}

	c.HandleLine([]byte("CAP END"))
	if c.state != StateReady {
		t.Fatalf("expected StateReady once CAP END lands with NICK+USER already set")
	}
}

func TestNickCollisionDuringRegistration(t *testing.T) {
	rt := newTestRuntime()
	first, _ := newTestConn(rt)
	registerConn(t, first, "alice")

	second, sender := newTestConn(rt)
	second.HandleLine([]byte("NICK alice"))
	second.HandleLine([]byte("USER alice 0 * :Alice"))

	if !sender.hasCommand(ircline.ERR_NICKNAMEINUSE) {
		t.Fatalf("expected ERR_NICKNAMEINUSE, got %v", sender.commands())
	}
}

func TestSASLPlainWrongPasswordFails(t *testing.T) {
	rt := newTestRuntime()
	hash, err := rt.Hasher.Hash("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	acct := registerAccountWithPassword(rt, "alice", hash)
	_ = acct

	c, sender := newTestConn(rt)
	c.HandleLine([]byte("AUTHENTICATE PLAIN"))
	blob := saslBlob("alice", "alice", "wrong password")
	c.HandleLine([]byte("AUTHENTICATE " + blob))

	if !sender.hasCommand(ircline.ERR_SASLFAIL) {
		t.Fatalf("expected ERR_SASLFAIL, got %v", sender.commands())
	}
}

func TestSASLPlainCorrectPasswordSucceeds(t *testing.T) {
	rt := newTestRuntime()
	hash, err := rt.Hasher.Hash("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	registerAccountWithPassword(rt, "alice", hash)

	c, sender := newTestConn(rt)
	c.HandleLine([]byte("AUTHENTICATE PLAIN"))
	blob := saslBlob("alice", "alice", "hunter2")
	c.HandleLine([]byte("AUTHENTICATE " + blob))

	if !sender.hasCommand(ircline.RPL_SASLSUCCESS) {
		t.Fatalf("expected RPL_SASLSUCCESS, got %v", sender.commands())
	}
}

func TestJoinFanOutRespectsSeenMirror(t *testing.T) {
	rt := newTestRuntime()
	alice, aliceSender := newTestConn(rt)
	registerConn(t, alice, "alice")
	bob, bobSender := newTestConn(rt)
	registerConn(t, bob, "bob")

	alice.HandleLine([]byte("JOIN #general"))
	aliceJoinsBefore := len(aliceSender.lines)

	bobSender.lines = nil
	bob.HandleLine([]byte("JOIN #general"))

	if !bobSender.hasCommand(ircline.JOIN) {
		t.Fatalf("expected bob to see his own JOIN echo, got %v", bobSender.commands())
	}
	foundJoinForBob := false
	for _, l := range aliceSender.lines[aliceJoinsBefore:] {
		msg, _ := ircline.Parse(l)
		if msg.Command == ircline.JOIN && strings.Contains(msg.Prefix, "bob") {
			foundJoinForBob = true
		}
	}
	if !foundJoinForBob {
		t.Fatalf("expected alice to observe bob's JOIN fan-out")
	}

	// Bob joining again should not re-trigger a broadcast to Alice.
	aliceBefore := len(aliceSender.lines)
	bob.HandleLine([]byte("JOIN #general"))
	for _, l := range aliceSender.lines[aliceBefore:] {
		msg, _ := ircline.Parse(l)
		if msg.Command == ircline.JOIN {
			t.Fatalf("did not expect a second JOIN broadcast for an already-seen member")
		}
	}
}

func TestPrivmsgChannelFanOut(t *testing.T) {
	rt := newTestRuntime()
	alice, aliceSender := newTestConn(rt)
	registerConn(t, alice, "alice")
	bob, bobSender := newTestConn(rt)
	registerConn(t, bob, "bob")

	alice.HandleLine([]byte("JOIN #general"))
	bob.HandleLine([]byte("JOIN #general"))

	aliceSender.lines = nil
	bobSender.lines = nil
	alice.HandleLine([]byte("PRIVMSG #general :hello there"))

	if !bobSender.hasCommand(ircline.PRIVMSG) {
		t.Fatalf("expected bob to receive the PRIVMSG, got %v", bobSender.commands())
	}
	if aliceSender.hasCommand(ircline.PRIVMSG) {
		t.Fatalf("did not expect alice to receive an echo without echo-message")
	}
}

func TestPrivmsgEchoMessageCap(t *testing.T) {
	rt := newTestRuntime()
	alice, aliceSender := newTestConn(rt)
	alice.HandleLine([]byte("CAP REQ :echo-message"))
	registerConn(t, alice, "alice")
	bob, _ := newTestConn(rt)
	registerConn(t, bob, "bob")

	alice.HandleLine([]byte("JOIN #general"))
	bob.HandleLine([]byte("JOIN #general"))

	aliceSender.lines = nil
	alice.HandleLine([]byte("PRIVMSG #general :hello there"))

	if !aliceSender.hasCommand(ircline.PRIVMSG) {
		t.Fatalf("expected echo back to alice with echo-message negotiated")
	}
}

func TestChannelModeKeyRequiresCorrectKey(t *testing.T) {
	rt := newTestRuntime()
	alice, _ := newTestConn(rt)
	registerConn(t, alice, "alice")
	alice.HandleLine([]byte("JOIN #locked"))
	alice.HandleLine([]byte("MODE #locked +k hunter2"))

	bob, bobSender := newTestConn(rt)
	registerConn(t, bob, "bob")
	bob.HandleLine([]byte("JOIN #locked wrongkey"))

	if !bobSender.hasCommand(ircline.ERR_BADCHANNELKEY) {
		t.Fatalf("expected ERR_BADCHANNELKEY, got %v", bobSender.commands())
	}
}

func TestUnknownModeLetterDoesNotAbortRestOfString(t *testing.T) {
	rt := newTestRuntime()
	alice, aliceSender := newTestConn(rt)
	registerConn(t, alice, "alice")
	alice.HandleLine([]byte("JOIN #general"))

	aliceSender.lines = nil
	alice.HandleLine([]byte("MODE #general +zt"))

	if !aliceSender.hasCommand(ircline.ERR_UNKNOWNMODE) {
		t.Fatalf("expected ERR_UNKNOWNMODE for the bad letter, got %v", aliceSender.commands())
	}
	sawModeChange := false
	for _, l := range aliceSender.lines {
		msg, _ := ircline.Parse(l)
		if msg.Command == ircline.MODE {
			sawModeChange = true
		}
	}
	if !sawModeChange {
		t.Fatalf("expected the valid +t to still apply and broadcast")
	}
}

func TestPartClearsSeenMirrorAndBroadcasts(t *testing.T) {
	rt := newTestRuntime()
	alice, _ := newTestConn(rt)
	registerConn(t, alice, "alice")
	bob, bobSender := newTestConn(rt)
	registerConn(t, bob, "bob")

	alice.HandleLine([]byte("JOIN #general"))
	bob.HandleLine([]byte("JOIN #general"))

	bobSender.lines = nil
	alice.HandleLine([]byte("PART #general :bye"))

	if !bobSender.hasCommand(ircline.PART) {
		t.Fatalf("expected bob to observe alice's PART, got %v", bobSender.commands())
	}
	if alice.mc.HasSeenMember("#general", bob.mc.Account()) {
		t.Fatalf("expected PART to clear alice's seen-member mirror for #general")
	}
}

// registerAccountWithPassword inserts a pre-registered account directly
// into the registry, the way a loaded-at-startup account from the
// repository would already exist before any connection binds to it.
func registerAccountWithPassword(rt *Runtime, username, passwordHash string) *model.Account {
	acct := newAccountForTest(username, passwordHash)
	rt.Registry.InsertAccount(acct)
	return acct
}
