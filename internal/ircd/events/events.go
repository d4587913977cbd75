// Package events implements the extension bus (spec §4.4): a
// process-wide, synchronous dispatch table keyed by a finite event
// kind enumeration. Handlers may mutate or cancel the event object;
// dispatch never performs I/O and must not be called while holding an
// entity lock (spec §5 "no state-machine step performs blocking I/O
// while holding an entity's write lock" — handlers are trusted to
// honour the same rule).
//
// Event kinds are modelled as a tagged sum: one flat, versioned struct
// per kind (spec §9 design note "Reflection-based data-carrying
// between core and extensions"), grounded on core/qtypes.h's
// QEventBase hierarchy.
package events

import (
	"github.com/gofrs/uuid"

	"github.com/kroketio/chatripper-ircd/internal/ircd/model"
)

// Kind identifies one of the finite observation points the bus
// dispatches at.
type Kind int

const (
	KindAuthSASLPlain Kind = iota
	KindChannelMessage
	KindPrivateMessage
	KindChannelJoin
	KindChannelPart
	KindRawMessage
	KindPeerMaxConnections
	KindNickChange
	KindChannelRename
	KindTagMessage
)

// Base carries the fields common to every event: a reason recorded
// for logging on internal faults (spec §7) and a cancellation flag a
// handler may set to abort the originating operation.
type Base struct {
	Reason    string
	cancelled bool
}

// Cancel marks the event as cancelled.
func (b *Base) Cancel(reason string) {
	b.cancelled = true
	b.Reason = reason
}

// Cancelled reports whether a handler cancelled the event.
func (b *Base) Cancelled() bool { return b.cancelled }

// Event is implemented by every per-kind event struct.
type Event interface {
	Cancelled() bool
}

// ChannelJoinEvent is dispatched before a JOIN takes effect.
type ChannelJoinEvent struct {
	Base
	Channel    *model.Channel
	Account    *model.Account
	Password   string
	FromSystem bool // true for finalisation auto-join replay
}

// ChannelPartEvent is dispatched before a PART takes effect.
type ChannelPartEvent struct {
	Base
	Channel    *model.Channel
	Account    *model.Account
	Message    string
	FromSystem bool
}

// NickChangeEvent is dispatched before a nick rebind takes effect.
type NickChangeEvent struct {
	Base
	Account    *model.Account
	OldNick    string
	NewNick    string
	FromServer bool
}

// MessageEvent is dispatched for PRIVMSG/NOTICE delivery, both
// channel- and private-routed.
type MessageEvent struct {
	Base
	ID         string
	ConnID     uuid.UUID
	Tags       map[string]string
	Nick       string
	Host       string
	Text       string
	User       string
	Targets    []string
	Raw        string
	Account    *model.Account
	Dest       *model.Account // set for private-routed messages
	Channel    *model.Channel // set for channel-routed messages
	FromSystem bool
	TagMsg     bool
}

// MessageTagsEvent is dispatched for bare TAGMSG frames.
type MessageTagsEvent struct {
	Base
	Account    *model.Account
	Tags       map[string]string
	Line       string
	FromSystem bool
}

// AuthEvent is dispatched during SASL PLAIN authentication, giving a
// handler the chance to authenticate against an external source
// instead of the stored password hash.
type AuthEvent struct {
	Base
	Username   string
	Password   string
	RemoteIP   string
	FromSystem bool
}

// RawMessageEvent is dispatched for every raw line received, before
// command dispatch.
type RawMessageEvent struct {
	Base
	Raw      string
	RemoteIP string
}

// PeerMaxConnectionsEvent is dispatched when the acceptor rejects a
// connection for exceeding the per-IP cap (spec §4.5 step 2).
type PeerMaxConnectionsEvent struct {
	Base
	Connections int
	IP          string
}

// ChannelRenameEvent is dispatched before a RENAME takes effect.
type ChannelRenameEvent struct {
	Base
	Channel *model.Channel
	Account *model.Account
	OldName string
	NewName string
	Message string
}

// Handler observes (and may mutate or cancel) an event.
type Handler func(Event)

// Bus is the process-wide dispatch table. The zero value is ready to
// use (no handlers registered for any kind).
type Bus struct {
	handlers map[Kind][]Handler
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind][]Handler)}
}

// On registers an additional handler for kind. Registration is
// additive; handlers run in registration order.
func (b *Bus) On(kind Kind, h Handler) {
	if b.handlers == nil {
		b.handlers = make(map[Kind][]Handler)
	}
	b.handlers[kind] = append(b.handlers[kind], h)
}

// Dispatch synchronously invokes every handler registered for kind,
// on the caller's goroutine, in registration order. If no handler is
// registered, Dispatch is a no-op (map lookup cost only). The caller
// inspects ev.Cancelled() after Dispatch returns to decide whether to
// abort the originating operation.
func (b *Bus) Dispatch(kind Kind, ev Event) {
	for _, h := range b.handlers[kind] {
		h(ev)
		if ev.Cancelled() {
			return
		}
	}
}

// HasHandler reports whether any handler is registered for kind
// (mirrors the original's hasEventHandler check, used to avoid
// constructing an event object when nothing observes it).
func (b *Bus) HasHandler(kind Kind) bool {
	return len(b.handlers[kind]) > 0
}
