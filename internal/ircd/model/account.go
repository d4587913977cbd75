// Package model defines the live entities shared between the registry,
// the connection state machine, and the extension bus: accounts,
// channels, nicks, connections, servers, roles and permissions (spec §3).
package model

import (
	"sync"
	"time"

	"github.com/gofrs/uuid"
)

// DefaultHost is used for connections that do not carry a resolved
// display host.
const DefaultHost = "unknown"

// Account is the persistent identity behind one or more live
// connections. An Account with an empty Username is anonymous: it
// exists only in memory and is destroyed once its last connection
// closes (spec §3).
type Account struct {
	id      uuid.UUID
	created time.Time

	mu           sync.RWMutex
	username     string // unique, case-sensitive; empty if anonymous
	passwordHash string
	nick         string // case-preserved; folded form is the registry index key
	host         string
	metadata     map[string]string

	connections []*Connection
	channels    map[string]*Channel // keyed by folded channel name
}

// NewAnonymousAccount creates a fresh in-memory account with a random
// id and no persisted username.
func NewAnonymousAccount(nick string) *Account {
	return &Account{
		id:       mustUUID(),
		created:  timeNow(),
		nick:     nick,
		host:     DefaultHost,
		channels: make(map[string]*Channel),
	}
}

// NewAccountFromRow builds an Account from a persisted repository row.
func NewAccountFromRow(id uuid.UUID, username, passwordHash string, created time.Time) *Account {
	return &Account{
		id:           id,
		created:      created,
		username:     username,
		passwordHash: passwordHash,
		host:         DefaultHost,
		channels:     make(map[string]*Channel),
	}
}

func mustUUID() uuid.UUID {
	id, err := uuid.NewV4()
	if err != nil {
		// entropy failure is not something the protocol core can
		// recover from meaningfully.
		panic(err)
	}
	return id
}

// timeNow is a package-level indirection so tests can stub time
// without pulling in a clock abstraction the teacher doesn't use.
var timeNow = time.Now

// ID returns the account's immutable identity.
func (a *Account) ID() uuid.UUID { return a.id }

// CreatedAt returns the account's creation timestamp.
func (a *Account) CreatedAt() time.Time { return a.created }

// Username returns the persisted username, or "" if anonymous.
func (a *Account) Username() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.username
}

// IsAnonymous reports whether the account has no persisted username.
func (a *Account) IsAnonymous() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.username == ""
}

// SetUsername sets the account's persisted username; an empty name
// makes the account anonymous.
func (a *Account) SetUsername(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.username = name
}

// PasswordHash returns the stored password hash.
func (a *Account) PasswordHash() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.passwordHash
}

// SetPasswordHash updates the stored password hash.
func (a *Account) SetPasswordHash(hash string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.passwordHash = hash
}

// Nick returns the account's current display nick.
func (a *Account) Nick() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.nick
}

// SetNick updates the account's display nick. Callers are responsible
// for rebinding the registry's folded-nick index first.
func (a *Account) SetNick(nick string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nick = nick
}

// Host returns the display host advertised in prefixes.
func (a *Account) Host() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.host == "" {
		return DefaultHost
	}
	return a.host
}

// SetHost updates the display host.
func (a *Account) SetHost(host string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.host = host
}

// Prefix returns the nick!user@host source string used ahead of
// relayed commands.
func (a *Account) Prefix() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	user := a.username
	if user == "" {
		user = "user"
	}
	host := a.host
	if host == "" {
		host = DefaultHost
	}
	return a.nick + "!" + user + "@" + host
}

// Connections returns a snapshot of the account's live connections.
func (a *Account) Connections() []*Connection {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Connection, len(a.connections))
	copy(out, a.connections)
	return out
}

// AddConnection attaches a connection to the account.
func (a *Account) AddConnection(c *Connection) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connections = append(a.connections, c)
}

// RemoveConnection detaches a connection and reports how many
// connections remain.
func (a *Account) RemoveConnection(c *Connection) (remaining int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, cc := range a.connections {
		if cc == c {
			a.connections = append(a.connections[:i], a.connections[i+1:]...)
			break
		}
	}
	return len(a.connections)
}

// HasConnections reports whether the account has any live connections.
func (a *Account) HasConnections() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.connections) > 0
}

// Channels returns a snapshot of the channels this account is a
// member of, keyed by folded name.
func (a *Account) Channels() map[string]*Channel {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]*Channel, len(a.channels))
	for k, v := range a.channels {
		out[k] = v
	}
	return out
}

// AddChannel records channel membership.
func (a *Account) AddChannel(ch *Channel) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.channels[ch.FoldedName()] = ch
}

// RemoveChannel drops channel membership.
func (a *Account) RemoveChannel(ch *Channel) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.channels, ch.FoldedName())
}

// InChannel reports whether the account is a member of ch.
func (a *Account) InChannel(ch *Channel) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.channels[ch.FoldedName()]
	return ok
}

// Metadata returns the value for key and whether it was set (spec
// SPEC_FULL.md supplemented feature, grounded on core/metadata.{h,cpp}).
func (a *Account) Metadata(key string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.metadata[key]
	return v, ok
}

// SetMetadata sets a metadata key/value pair.
func (a *Account) SetMetadata(key, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.metadata == nil {
		a.metadata = make(map[string]string)
	}
	a.metadata[key] = value
}

// DeleteMetadata removes a metadata key.
func (a *Account) DeleteMetadata(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.metadata, key)
}

// Merge transfers connections from an anonymous account into the
// receiver and points each moved connection at the receiver (spec §4.2
// merge_accounts). Channel membership is not transferred. from must
// have no persisted username; the caller enforces this.
func (a *Account) Merge(from *Account) {
	from.mu.Lock()
	conns := from.connections
	from.connections = nil
	from.mu.Unlock()

	a.mu.Lock()
	a.connections = append(a.connections, conns...)
	a.mu.Unlock()

	for _, c := range conns {
		c.SetAccount(a)
	}
}
