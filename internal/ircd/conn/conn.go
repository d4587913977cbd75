package conn

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kroketio/chatripper-ircd/internal/ircd/events"
	"github.com/kroketio/chatripper-ircd/internal/ircd/ircline"
	"github.com/kroketio/chatripper-ircd/internal/ircd/model"
)

// Conn is the per-socket IRC state machine. It owns no socket itself;
// the transport feeds it lines via HandleLine and receives outbound
// lines through model.Connection's Sender.
type Conn struct {
	rt *Runtime
	mc *model.Connection

	mu         sync.Mutex
	state      State
	setupTasks SetupTask
	capPending bool
	capDone302 bool // client negotiated CAP 302 (extended ISUPPORT-in-CAP)

	username string // from USER, pending finalisation
	realname string
	passGiven string

	saslUser     string // bound username once SASL PLAIN succeeds
	boundAccount *model.Account // account SASL bound us to, consumed by tryFinalize

	lastActivity int64 // unix nanos, atomic
	pingSent     int32 // 0/1 atomic: have we sent an unanswered PING
}

// New creates a Conn bound to a freshly accepted transport connection.
func New(rt *Runtime, remote string, sender model.Sender) *Conn {
	mc := model.NewConnection(remote, sender)
	c := &Conn{rt: rt, mc: mc}
	c.touch()
	return c
}

// ModelConnection exposes the underlying entity, for the worker/server
// packages that need to register it with the runtime or close it.
func (c *Conn) ModelConnection() *model.Connection { return c.mc }

func (c *Conn) touch() {
	atomic.StoreInt64(&c.lastActivity, time.Now().UnixNano())
	atomic.StoreInt32(&c.pingSent, 0)
}

// IdleFor reports how long it has been since the last line was
// received from this connection.
func (c *Conn) IdleFor() time.Duration {
	last := atomic.LoadInt64(&c.lastActivity)
	return time.Since(time.Unix(0, last))
}

// AwaitingPong reports whether a keepalive PING is outstanding.
func (c *Conn) AwaitingPong() bool {
	return atomic.LoadInt32(&c.pingSent) == 1
}

// SendPing emits a keepalive PING and marks one as outstanding.
func (c *Conn) SendPing() {
	atomic.StoreInt32(&c.pingSent, 1)
	c.send(ircline.Message{Command: ircline.PING, Params: []string{c.rt.Config.ServerName}, Trailing: true})
}

func (c *Conn) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateClosing
}

// HandleLine parses and dispatches one line of input. It is safe to
// call concurrently only insofar as the transport guarantees at most
// one call in flight at a time per Conn (spec §3: one reader goroutine
// per connection).
func (c *Conn) HandleLine(raw []byte) {
	c.touch()
	if c.isClosing() {
		return
	}

	if c.rt.Bus.HasHandler(events.KindRawMessage) {
		ev := &events.RawMessageEvent{Raw: string(raw), RemoteIP: c.mc.Remote()}
		c.rt.Bus.Dispatch(events.KindRawMessage, ev)
		if ev.Cancelled() {
			return
		}
	}

	msg, err := ircline.Parse(raw)
	if err != nil || msg.Command == "" {
		return
	}

	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	if state == StateGreet {
		c.dispatchRegister(msg)
		return
	}
	c.dispatchReady(msg)
}

func (c *Conn) send(msg ircline.Message) {
	c.mc.Send(msg.Bytes())
}

// numeric sends a server numeric reply addressed to this connection's
// current display nick (or "*" before one is assigned).
func (c *Conn) numeric(code string, params ...string) {
	nick := c.mc.Nick()
	if nick == "" {
		nick = "*"
	}
	full := append([]string{nick}, params...)
	c.send(ircline.Reply(c.rt.Config.ServerName, code, full...))
}

// quit finalises connection teardown: dispatches PART-equivalent
// cleanup for every channel still joined, detaches from the account,
// and closes the transport (spec §4.3 teardown, §9 teardown order).
func (c *Conn) quit(reason string) {
	c.mu.Lock()
	if c.state == StateClosing {
		c.mu.Unlock()
		return
	}
	c.state = StateClosing
	c.mu.Unlock()

	acct := c.mc.Account()
	if acct != nil {
		quitMsg := ircline.Message{Prefix: acct.Prefix(), Command: "QUIT", Params: []string{reason}, Trailing: true}
		notified := map[*model.Connection]bool{c.mc: true}
		for _, ch := range acct.Channels() {
			for _, m := range ch.Members() {
				if m == acct {
					continue
				}
				for _, conn := range m.Connections() {
					if !notified[conn] {
						notified[conn] = true
						conn.Send(quitMsg.Bytes())
					}
				}
			}
		}
		for _, ch := range acct.Channels() {
			c.leaveChannel(acct, ch, reason, false)
		}
		if remaining := acct.RemoveConnection(c.mc); remaining == 0 && acct.IsAnonymous() {
			c.rt.Registry.RemoveAccount(acct)
		}
	}
	c.send(ircline.Message{Command: ircline.ERROR, Params: []string{reason}, Trailing: true})
	c.rt.logger("ircd/conn").Printf("disconnect %s: %s", c.mc.Remote(), reason)
	c.mc.Close()
}

