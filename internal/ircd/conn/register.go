package conn

import (
	"encoding/base64"
	"strings"

	"github.com/kroketio/chatripper-ircd/internal/ircd/events"
	"github.com/kroketio/chatripper-ircd/internal/ircd/ircline"
	"github.com/kroketio/chatripper-ircd/internal/ircd/model"
	"github.com/kroketio/chatripper-ircd/internal/ircd/registry"
)

func (c *Conn) dispatchRegister(msg ircline.Message) {
	switch msg.Command {
	case ircline.CAP:
		c.handleCAP(msg)
	case ircline.PASS:
		c.handlePASS(msg)
	case ircline.NICK:
		c.handleNICKRegister(msg)
	case ircline.USER:
		c.handleUSER(msg)
	case ircline.AUTHENTICATE:
		c.handleAuthenticate(msg)
	case ircline.PING:
		c.send(ircline.Reply(c.rt.Config.ServerName, ircline.PONG, msg.Params...))
	case ircline.QUIT:
		c.quit("Client quit")
	default:
		c.numeric(ircline.ERR_NOTREGISTERED, "You have not registered")
	}
}

func (c *Conn) handleCAP(msg ircline.Message) {
	if len(msg.Params) == 0 {
		return
	}
	sub := strings.ToUpper(msg.Params[0])
	nick := c.mc.Nick()
	if nick == "" {
		nick = "*"
	}
	switch sub {
	case "LS":
		c.mu.Lock()
		c.capPending = true
		if len(msg.Params) >= 2 && msg.Params[1] == "302" {
			c.capDone302 = true
		}
		c.mu.Unlock()
		c.send(ircline.Reply(c.rt.Config.ServerName, ircline.CAP, nick, "LS", strings.Join(Capabilities, " ")))
	case "LIST":
		c.send(ircline.Reply(c.rt.Config.ServerName, ircline.CAP, nick, "LIST", strings.Join(c.mc.Caps(), " ")))
	case "REQ":
		if len(msg.Params) < 2 {
			return
		}
		requested := strings.Fields(msg.Params[len(msg.Params)-1])
		ok := true
		for _, name := range requested {
			name = strings.TrimPrefix(name, "-")
			if !capSupported(name) {
				ok = false
				break
			}
		}
		verb := "ACK"
		if !ok {
			verb = "NAK"
		} else {
			for _, name := range requested {
				on := true
				if strings.HasPrefix(name, "-") {
					name = name[1:]
					on = false
				}
				c.mc.SetCap(name, on)
			}
		}
		c.send(ircline.Reply(c.rt.Config.ServerName, ircline.CAP, nick, verb, strings.Join(requested, " ")))
	case "END":
		c.mu.Lock()
		c.capPending = false
		c.setupTasks |= TaskCAP
		c.mu.Unlock()
		c.tryFinalize()
	}
}

func capSupported(name string) bool {
	for _, c := range Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

func (c *Conn) handlePASS(msg ircline.Message) {
	if len(msg.Params) < 1 {
		c.numeric(ircline.ERR_NEEDMOREPARAMS, "PASS", "Not enough parameters")
		return
	}
	c.mu.Lock()
	c.passGiven = msg.Params[0]
	c.mu.Unlock()
}

func (c *Conn) handleNICKRegister(msg ircline.Message) {
	if len(msg.Params) < 1 || msg.Params[0] == "" {
		c.numeric(ircline.ERR_NONICKNAMEGIVEN, "No nickname given")
		return
	}
	nick := msg.Params[0]
	if !ircline.ValidNick(nick, c.rt.Config.MaxNick) {
		c.numeric(ircline.ERR_ERRONEUSNICK, nick, "Erroneous nickname")
		return
	}
	folded := ircline.CaseFold(nick)
	if existing := c.rt.Registry.LookupNick(folded); existing != nil {
		c.numeric(ircline.ERR_NICKNAMEINUSE, nick, "Nickname is already in use")
		return
	}
	c.mc.SetTentativeNick(nick)
	c.mu.Lock()
	c.setupTasks |= TaskNICK
	c.mu.Unlock()
	c.tryFinalize()
}

func (c *Conn) handleUSER(msg ircline.Message) {
	if len(msg.Params) < 4 {
		c.numeric(ircline.ERR_NEEDMOREPARAMS, "USER", "Not enough parameters")
		return
	}
	if len(msg.Params[0]) > 16 {
		c.numeric(ircline.ERR_NEEDMOREPARAMS, "USER", "Username too long")
		c.quit("Username too long")
		return
	}
	c.mu.Lock()
	if c.setupTasks&TaskUSER != 0 {
		c.mu.Unlock()
		c.numeric(ircline.ERR_ALREADYREGISTRD, "You may not reregister")
		return
	}
	c.username = msg.Params[0]
	c.realname = msg.Params[3]
	c.setupTasks |= TaskUSER
	c.mu.Unlock()
	c.tryFinalize()
}

// handleAuthenticate implements SASL PLAIN (spec §4.3 AUTHENTICATE):
// "AUTHENTICATE PLAIN" requests the mechanism, the client then sends
// the base64-encoded "authzid\0authcid\0password" blob in a second
// AUTHENTICATE line.
func (c *Conn) handleAuthenticate(msg ircline.Message) {
	if len(msg.Params) != 1 {
		return
	}
	arg := msg.Params[0]
	if strings.EqualFold(arg, "PLAIN") {
		c.send(ircline.Message{Command: ircline.AUTHENTICATE, Params: []string{"+"}})
		return
	}
	if arg == "*" {
		c.numeric(ircline.ERR_SASLFAIL, "SASL authentication aborted")
		return
	}

	decoded, err := base64.StdEncoding.DecodeString(arg)
	if err != nil {
		c.numeric(ircline.ERR_SASLFAIL, "SASL authentication failed")
		return
	}
	parts := strings.SplitN(string(decoded), "\x00", 3)
	if len(parts) != 3 {
		c.numeric(ircline.ERR_SASLFAIL, "SASL authentication failed")
		return
	}
	authcid, password := parts[1], parts[2]

	if c.rt.Bus.HasHandler(events.KindAuthSASLPlain) {
		ev := &events.AuthEvent{Username: authcid, Password: password, RemoteIP: c.mc.Remote()}
		c.rt.Bus.Dispatch(events.KindAuthSASLPlain, ev)
		if ev.Cancelled() {
			c.numeric(ircline.ERR_SASLFAIL, "SASL authentication failed")
			return
		}
	}

	target := c.rt.Registry.LookupAccountByName(authcid)
	if target == nil || !c.rt.Hasher.Verify(password, target.PasswordHash()) {
		c.rt.logger("ircd/conn").Printf("SASL PLAIN failed for %q from %s", authcid, c.mc.Remote())
		c.numeric(ircline.ERR_SASLFAIL, "SASL authentication failed")
		return
	}

	c.mu.Lock()
	c.saslUser = authcid
	c.boundAccount = target
	c.mu.Unlock()

	c.numeric(ircline.RPL_LOGGEDIN, c.mc.Remote(), authcid, "You are now logged in as "+authcid)
	c.numeric(ircline.RPL_SASLSUCCESS, "SASL authentication successful")
}

// tryFinalize runs the registration finalisation sequence (spec
// §4.3) once CAP negotiation (if any) has ended and both NICK and
// USER have landed.
func (c *Conn) tryFinalize() {
	c.mu.Lock()
	if c.capPending || c.setupTasks&(TaskNICK|TaskUSER) != TaskNICK|TaskUSER || c.state != StateGreet {
		c.mu.Unlock()
		return
	}
	passGiven := c.passGiven
	bound := c.boundAccount
	c.mu.Unlock()

	if c.rt.Config.Password != "" && passGiven != c.rt.Config.Password {
		c.numeric(ircline.ERR_PASSWDMISMATCH, "Password incorrect")
		c.quit("Password incorrect")
		return
	}

	nick := c.mc.Nick()
	folded := ircline.CaseFold(nick)

	var acct *model.Account
	replaying := false
	if bound != nil {
		acct = bound
		replaying = true
	} else {
		acct = model.NewAnonymousAccount(nick)
		acct.SetUsername("") // explicit: anonymous has no persisted username
		c.rt.Registry.InsertAccount(acct)
	}
	acct.SetHost(model.DefaultHost)

	if err := c.rt.Registry.BindNick(folded, acct); err == registry.ErrNickTaken {
		c.rt.logger("ircd/registry").Printf("nick collision on finalisation: %q from %s", nick, c.mc.Remote())
		c.numeric(ircline.ERR_NICKNAMEINUSE, nick, "Nickname is already in use")
		c.quit("Nickname collision")
		return
	}
	if !replaying {
		acct.SetNick(nick)
	}

	acct.AddConnection(c.mc)
	c.mc.SetAccount(acct)

	c.mu.Lock()
	c.state = StateReady
	c.mu.Unlock()

	c.sendWelcome(acct)
	c.sendLUSERS()
	c.sendMOTD()

	if replaying {
		for _, ch := range acct.Channels() {
			c.replayJoin(ch, acct)
		}
	}
}

func (c *Conn) sendWelcome(acct *model.Account) {
	server := c.rt.Config.ServerName
	c.numeric(ircline.RPL_WELCOME, "Welcome to the "+c.rt.Config.Network+" Network, "+acct.Prefix())
	c.numeric(ircline.RPL_YOURHOST, "Your host is "+server+", running this server")
	c.numeric(ircline.RPL_CREATED, "This server was started some time ago")
	c.numeric(ircline.RPL_MYINFO, server, "chatripper-1.0", "ioOxrRswz", "biklmnopstv")
	isupport := c.rt.Config.ISUPPORT()
	isupport = append(isupport, "are supported by this server")
	c.numeric(ircline.RPL_ISUPPORT, isupport...)
}

func (c *Conn) sendLUSERS() {
	c.numeric(ircline.RPL_LUSERCLIENT, "There are 1 users and 0 invisible on 1 server")
	c.numeric(ircline.RPL_LUSEROP, "0", "operator(s) online")
	c.numeric(ircline.RPL_LUSERUNKNOWN, "0", "unknown connection(s)")
	c.numeric(ircline.RPL_LUSERCHANNELS, "0", "channels formed")
	c.numeric(ircline.RPL_LUSERME, "I have 1 clients and 1 servers")
}

func (c *Conn) sendMOTD() {
	motd := c.rt.Config.MOTD
	if len(motd) == 0 {
		c.numeric(ircline.ERR_NOMOTD, "MOTD File is missing")
		return
	}
	c.numeric(ircline.RPL_MOTDSTART, "- "+c.rt.Config.ServerName+" Message of the day -")
	for _, line := range motd {
		c.numeric(ircline.RPL_MOTD, "- "+line)
	}
	c.numeric(ircline.RPL_ENDOFMOTD, "End of MOTD command")
}
