// Package conn implements the per-connection IRC state machine (spec
// §4.3): registration (CAP/NICK/USER/PASS/AUTHENTICATE), ready-state
// command handlers, and outbound numeric replies. One Conn exists per
// socket, regardless of which transport (TCP or WebSocket) owns it.
package conn

import (
	"time"

	"github.com/kroketio/chatripper-ircd/internal/ircd/auth"
	"github.com/kroketio/chatripper-ircd/internal/ircd/events"
	"github.com/kroketio/chatripper-ircd/internal/ircd/ircdlog"
	"github.com/kroketio/chatripper-ircd/internal/ircd/registry"
)

// Capabilities is the exact set of IRCv3 capability tokens advertised
// on CAP LS (spec §6).
var Capabilities = []string{
	"message-tags",
	"multi-prefix",
	"extended-join",
	"chghost",
	"account-tag",
	"account-notify",
	"echo-message",
	"znc.in/self-message",
	"sasl",
	"draft/channel-rename",
	"extended-isupport",
	"soju.im/FILEHOST",
	"draft/metadata",
	"draft/metadata-2",
}

// Config carries server-wide settings a Conn needs but does not own.
type Config struct {
	ServerName string
	Network    string
	Password   string // server password; empty means none required
	MOTD       []string
	MaxNick    int
	IdleTimeout time.Duration
}

// ISUPPORT returns the 005 token list (spec §6), with the NETWORK
// value taken from c.Network.
func (c *Config) ISUPPORT() []string {
	return []string{
		"CASEMAPPING=ascii",
		"CHANTYPES=#",
		"CHANNELLEN=64",
		"NICKLEN=32",
		"PREFIX=(qaohv)~&@%+",
		"STATUSMSG=~&@%+",
		"TOPICLEN=390",
		"MAXTARGETS=4",
		"MAXLIST=beI:60",
		"CHANMODES=Ibe,k,fl,CEMRUimnstu",
		"NETWORK=" + c.Network,
		"UTF8MAPPING=rfc8265",
		"EXTBAN=,m",
		"BOT=B",
		"EXCEPTS",
		"INVEX",
		"SAFELIST",
		"UTF8ONLY",
		"WHOX",
	}
}

// Runtime bundles the shared collaborators every Conn needs: the
// registry, the extension bus, server config, and the password
// hasher. It is constructed once at startup and passed to every
// worker (spec §9 design note: "package as a single 'runtime context'
// value... avoid true globals").
type Runtime struct {
	Registry *registry.Registry
	Bus      *events.Bus
	Config   *Config
	Hasher   auth.Hasher
	Log      *ircdlog.Logger
}

// logger returns rt.Log tagged for component, or a throwaway default
// logger if the caller built a Runtime without one (tests mostly).
func (rt *Runtime) logger(component string) *ircdlog.Logger {
	if rt.Log == nil {
		return ircdlog.Default().With(component)
	}
	return rt.Log.With(component)
}
