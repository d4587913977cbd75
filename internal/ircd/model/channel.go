package model

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"github.com/kroketio/chatripper-ircd/internal/ircd/ircline"
)

// ChannelMode is a single bit of channel state (spec §6 "Mode letters").
type ChannelMode uint16

const (
	ModeInviteOnly ChannelMode = 1 << iota
	ModeModerated
	ModeNoExternal
	ModeQuiet
	ModeSecret
	ModeTopicProtected
	ModeBan
	ModeKey
	ModeLimit
)

// ChannelModeLetters maps each mode bit to its wire letter, in the
// order ModeString renders them (spec §6).
var ChannelModeLetters = []struct {
	Mode   ChannelMode
	Letter byte
}{
	{ModeInviteOnly, 'i'},
	{ModeModerated, 'm'},
	{ModeNoExternal, 'n'},
	{ModeQuiet, 'q'},
	{ModeSecret, 's'},
	{ModeTopicProtected, 't'},
	{ModeBan, 'b'},
	{ModeKey, 'k'},
	{ModeLimit, 'l'},
}

// ChannelModeByLetter is the inverse of ChannelModeLetters.
var ChannelModeByLetter = func() map[byte]ChannelMode {
	m := make(map[byte]ChannelMode, len(ChannelModeLetters))
	for _, e := range ChannelModeLetters {
		m[e.Letter] = e.Mode
	}
	return m
}()

// Channel is a named multicast room (spec §3).
type Channel struct {
	id      uuid.UUID
	created time.Time

	mu         sync.RWMutex
	name       string // display case
	foldedName string
	topic      string
	key        string
	limit      int
	modes      ChannelMode
	members    []*Account // ordered member set
	bans       map[string]struct{}
	owner      *Account
	serverID   uuid.UUID
}

// NewChannel creates an anonymous, empty channel.
func NewChannel(name string) *Channel {
	return &Channel{
		id:         mustUUID(),
		created:    timeNow(),
		name:       name,
		foldedName: ircline.CaseFold(name),
		bans:       make(map[string]struct{}),
	}
}

// NewChannelFromRow builds a Channel from a persisted repository row.
func NewChannelFromRow(id uuid.UUID, name, topic string, owner *Account, created time.Time) *Channel {
	ch := NewChannel(name)
	ch.id = id
	ch.topic = topic
	ch.owner = owner
	ch.created = created
	return ch
}

func (c *Channel) ID() uuid.UUID { return c.id }

// Name returns the display-case channel name.
func (c *Channel) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// FoldedName returns the case-folded lookup key; it never changes
// except via Rename.
func (c *Channel) FoldedName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.foldedName
}

// Rename atomically rewrites the channel's display and folded name.
// Registry index rewriting is the caller's responsibility (the
// registry holds the write lock across both, per SPEC_FULL.md's open
// question decision #3).
func (c *Channel) Rename(newName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = newName
	c.foldedName = ircline.CaseFold(newName)
}

func (c *Channel) Topic() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topic
}

func (c *Channel) SetTopic(t string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topic = t
}

func (c *Channel) Key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key
}

func (c *Channel) SetKey(k string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = k
}

func (c *Channel) Limit() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.limit
}

func (c *Channel) SetLimit(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limit = n
}

func (c *Channel) Owner() *Account {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owner
}

func (c *Channel) SetOwner(a *Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owner = a
}

// Modes returns the set of applied channel mode bits.
func (c *Channel) Modes() ChannelMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.modes
}

// SetMode flips a single mode bit and reports whether it changed.
func (c *Channel) SetMode(m ChannelMode, on bool) (changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	had := c.modes&m != 0
	if had == on {
		return false
	}
	if on {
		c.modes |= m
	} else {
		c.modes &^= m
	}
	return true
}

func (c *Channel) HasMode(m ChannelMode) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.modes&m != 0
}

// Members returns a snapshot of the member set, suitable for iterating
// after the lock is released (spec §9 "take a snapshot ... release,
// then iterate").
func (c *Channel) Members() []*Account {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Account, len(c.members))
	copy(out, c.members)
	return out
}

// Has reports whether account is currently a member.
func (c *Channel) Has(account *Account) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.members {
		if m == account {
			return true
		}
	}
	return false
}

// AddMember appends account to the member set if not already present,
// reporting whether it was added.
func (c *Channel) AddMember(account *Account) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.members {
		if m == account {
			return false
		}
	}
	c.members = append(c.members, account)
	return true
}

// RemoveMember removes account from the member set, reporting the
// remaining member count.
func (c *Channel) RemoveMember(account *Account) (remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, m := range c.members {
		if m == account {
			c.members = append(c.members[:i], c.members[i+1:]...)
			break
		}
	}
	return len(c.members)
}

// Empty reports whether the channel currently has no members.
func (c *Channel) Empty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.members) == 0
}

func (c *Channel) AddBan(mask string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bans[mask] = struct{}{}
}

func (c *Channel) RemoveBan(mask string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bans, mask)
}

func (c *Channel) BanList() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.bans))
	for m := range c.bans {
		out = append(out, m)
	}
	return out
}

// ModeString renders the currently-set mode letters, in canonical
// order, prefixed with '+'. Key and limit-bearing modes append their
// argument when includeArgs is true (spec §4.3 channel MODE query).
func (c *Channel) ModeString(includeArgs bool) (letters string, args []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b := []byte{'+'}
	for _, e := range ChannelModeLetters {
		if c.modes&e.Mode != 0 {
			b = append(b, e.Letter)
		}
	}
	letters = string(b)
	if includeArgs {
		if c.modes&ModeKey != 0 && c.key != "" {
			args = append(args, c.key)
		}
		if c.modes&ModeLimit != 0 && c.limit > 0 {
			args = append(args, strconv.Itoa(c.limit))
		}
	}
	return letters, args
}
