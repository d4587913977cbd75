package model

import (
	"sync"

	"github.com/gofrs/uuid"
)

// UserMode is a single bit of per-connection user state (spec §6).
type UserMode uint16

const (
	UserInvisible UserMode = 1 << iota
	UserCloak
	UserBlockUnregisteredPM
	UserBot
	UserDeaf
	UserRegistered
	UserCallerID
	UserHideChannels
	UserBlockCTCP
	UserSecure
	UserOper
	UserLocalOper
	UserWallops
	UserSnotices
	UserProtected
	UserService
)

// UserModeLetters maps each mode bit to its wire letter (spec §6).
var UserModeLetters = []struct {
	Mode   UserMode
	Letter byte
}{
	{UserInvisible, 'i'},
	{UserCloak, 'x'},
	{UserBlockUnregisteredPM, 'R'},
	{UserBot, 'B'},
	{UserDeaf, 'd'},
	{UserRegistered, 'r'},
	{UserCallerID, 'g'},
	{UserHideChannels, 'p'},
	{UserBlockCTCP, 'T'},
	{UserSecure, 'z'},
	{UserOper, 'o'},
	{UserLocalOper, 'O'},
	{UserWallops, 'w'},
	{UserSnotices, 's'},
	{UserProtected, 'a'},
	{UserService, 'S'},
}

// Sender abstracts the transport-level write path so model does not
// depend on net.Conn or gorilla/websocket (spec §3: "A connection
// exclusively owns its socket and its outbound buffer" — the owning
// transport implements Sender).
type Sender interface {
	// Send enqueues one already-serialised line (without CRLF) for
	// delivery. Implementations must be safe to call from any
	// goroutine; they never block the caller on socket I/O (spec
	// §5 "No state-machine step performs blocking I/O while holding
	// an entity's write lock").
	Send(line []byte)
	// Close closes the underlying transport.
	Close()
}

// Connection is the live per-socket entity (spec §3).
type Connection struct {
	id     uuid.UUID
	remote string
	out    Sender

	mu        sync.RWMutex
	caps      map[string]bool
	userModes UserMode
	account   *Account
	nick      string // tentative nick before finalisation

	// seen mirrors which (channel, account) pairs this specific
	// connection has already observed a JOIN for (spec §4.3 JOIN
	// step 5 "has not already seen this account in this channel").
	seen map[string]map[uuid.UUID]bool
}

// NewConnection creates a Connection bound to a transport Sender.
func NewConnection(remote string, out Sender) *Connection {
	return &Connection{
		id:     mustUUID(),
		remote: remote,
		out:    out,
		caps:   make(map[string]bool),
		seen:   make(map[string]map[uuid.UUID]bool),
	}
}

func (c *Connection) ID() uuid.UUID   { return c.id }
func (c *Connection) Remote() string  { return c.remote }
func (c *Connection) Send(line []byte) { c.out.Send(line) }
func (c *Connection) Close()          { c.out.Close() }

func (c *Connection) Account() *Account {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.account
}

func (c *Connection) SetAccount(a *Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.account = a
}

// Nick returns the connection's nick: the account's nick once bound,
// otherwise the tentative pre-registration nick.
func (c *Connection) Nick() string {
	c.mu.RLock()
	acct := c.account
	nick := c.nick
	c.mu.RUnlock()
	if acct != nil {
		return acct.Nick()
	}
	return nick
}

func (c *Connection) SetTentativeNick(nick string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nick = nick
}

// HasCap reports whether a capability was negotiated.
func (c *Connection) HasCap(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.caps[name]
}

func (c *Connection) SetCap(name string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on {
		c.caps[name] = true
	} else {
		delete(c.caps, name)
	}
}

// Caps returns the set of negotiated capability names.
func (c *Connection) Caps() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.caps))
	for k := range c.caps {
		out = append(out, k)
	}
	return out
}

func (c *Connection) UserModes() UserMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userModes
}

func (c *Connection) SetUserMode(m UserMode, on bool) (changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	had := c.userModes&m != 0
	if had == on {
		return false
	}
	if on {
		c.userModes |= m
	} else {
		c.userModes &^= m
	}
	return true
}

// HasSeenMember reports whether this connection has already observed
// account as a member of the channel with the given folded name.
func (c *Connection) HasSeenMember(foldedChannel string, account *Account) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.seen[foldedChannel][account.ID()]
}

// MarkSeenMember records that this connection has now observed
// account's membership in foldedChannel.
func (c *Connection) MarkSeenMember(foldedChannel string, account *Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.seen[foldedChannel]
	if m == nil {
		m = make(map[uuid.UUID]bool)
		c.seen[foldedChannel] = m
	}
	m[account.ID()] = true
}

// ForgetChannel clears the per-connection mirror for a channel (called
// on PART, spec §9 open question #2: cleared regardless of whether
// other connections of the same account remain in the channel).
func (c *Connection) ForgetChannel(foldedChannel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.seen, foldedChannel)
}
