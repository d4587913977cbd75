package conn

import (
	"strconv"
	"strings"

	"github.com/kroketio/chatripper-ircd/internal/ircd/events"
	"github.com/kroketio/chatripper-ircd/internal/ircd/ircline"
	"github.com/kroketio/chatripper-ircd/internal/ircd/model"
)

func (c *Conn) dispatchReady(msg ircline.Message) {
	switch msg.Command {
	case ircline.JOIN:
		c.handleJOIN(msg)
	case ircline.PART:
		c.handlePART(msg)
	case ircline.PRIVMSG, ircline.NOTICE:
		c.handleMessage(msg)
	case ircline.TAGMSG:
		c.handleTagmsg(msg)
	case ircline.MODE:
		c.handleMODE(msg)
	case ircline.TOPIC:
		c.handleTOPIC(msg)
	case ircline.NAMES:
		c.handleNAMES(msg)
	case ircline.NICK:
		c.handleNICKReady(msg)
	case ircline.PING:
		c.send(ircline.Reply(c.rt.Config.ServerName, ircline.PONG, msg.Params...))
	case ircline.PONG:
		// keepalive answer; touch() in HandleLine already cleared pingSent.
	case ircline.LUSERS:
		c.sendLUSERS()
	case ircline.MOTD:
		c.sendMOTD()
	case ircline.WHO:
		c.handleWHO(msg)
	case ircline.WHOIS:
		c.handleWHOIS(msg)
	case ircline.RENAME:
		c.handleRENAME(msg)
	case ircline.QUIT:
		reason := "Client quit"
		if len(msg.Params) > 0 {
			reason = msg.Params[0]
		}
		c.quit(reason)
	default:
		c.numeric(ircline.ERR_UNKNOWNCOMMAND, msg.Command, "Unknown command")
	}
}

// joinLineFor renders the JOIN line a specific recipient connection
// should see, expanding extended-join's account/realname trailer when
// negotiated (spec §6 extended-join).
func joinLineFor(recipient *model.Connection, acct *model.Account, ch *model.Channel) ircline.Message {
	line := ircline.Message{Prefix: acct.Prefix(), Command: ircline.JOIN, Params: []string{ch.Name()}}
	if recipient.HasCap("extended-join") {
		account := acct.Username()
		if account == "" {
			account = "*"
		}
		line.Params = []string{ch.Name(), account, acct.Prefix()}
		line.Trailing = true
	}
	return line
}

// numericMsgFor renders a numeric reply addressed to target rather than
// to the calling connection, for catching up a sibling connection of
// the same account.
func numericMsgFor(rt *Runtime, target *model.Connection, code string, params ...string) ircline.Message {
	nick := target.Nick()
	if nick == "" {
		nick = "*"
	}
	full := append([]string{nick}, params...)
	return ircline.Reply(rt.Config.ServerName, code, full...)
}

func sendTopicTo(rt *Runtime, target *model.Connection, ch *model.Channel) {
	if ch.Topic() == "" {
		target.Send(numericMsgFor(rt, target, ircline.RPL_NOTOPIC, ch.Name(), "No topic is set").Bytes())
		return
	}
	target.Send(numericMsgFor(rt, target, ircline.RPL_TOPIC, ch.Name(), ch.Topic()).Bytes())
}

func sendNamesTo(rt *Runtime, target *model.Connection, ch *model.Channel) {
	var names []string
	for _, m := range ch.Members() {
		names = append(names, m.Nick())
	}
	target.Send(numericMsgFor(rt, target, ircline.RPL_NAMREPLY, "=", ch.Name(), strings.Join(names, " ")).Bytes())
	target.Send(numericMsgFor(rt, target, ircline.RPL_ENDOFNAMES, ch.Name(), "End of NAMES list").Bytes())
}

func (c *Conn) handleJOIN(msg ircline.Message) {
	if len(msg.Params) < 1 || msg.Params[0] == "" {
		c.numeric(ircline.ERR_NEEDMOREPARAMS, "JOIN", "Not enough parameters")
		return
	}
	acct := c.mc.Account()
	names := strings.Split(msg.Params[0], ",")
	var keys []string
	if len(msg.Params) > 1 {
		keys = strings.Split(msg.Params[1], ",")
	}
	for i, name := range names {
		key := ""
		if i < len(keys) {
			key = keys[i]
		}
		c.joinOne(acct, name, key, false)
	}
}

func (c *Conn) joinOne(acct *model.Account, name, key string, fromSystem bool) {
	if !strings.HasPrefix(name, "#") {
		c.numeric(ircline.ERR_BADCHANMASK, name, "Bad Channel Mask")
		return
	}
	ch, _ := c.rt.Registry.GetOrCreateChannel(name)
	if ch.HasMode(model.ModeKey) && ch.Key() != "" && ch.Key() != key {
		c.numeric(ircline.ERR_BADCHANNELKEY, name, "Cannot join channel (+k)")
		return
	}

	if c.rt.Bus.HasHandler(events.KindChannelJoin) {
		ev := &events.ChannelJoinEvent{Channel: ch, Account: acct, Password: key, FromSystem: fromSystem}
		c.rt.Bus.Dispatch(events.KindChannelJoin, ev)
		if ev.Cancelled() {
			c.numeric(ircline.ERR_BADCHANNELKEY, name, "Cannot join channel")
			return
		}
	}

	added := ch.AddMember(acct)
	if added {
		acct.AddChannel(ch)
	}

	// Echo to the joining connection unconditionally.
	c.send(joinLineFor(c.mc, acct, ch))
	c.mc.MarkSeenMember(ch.FoldedName(), acct)

	// Fan out to other members' connections that have not already
	// observed this account in this channel (spec §4.3 JOIN step 5).
	// Finalisation auto-join replay (fromSystem) suppresses this fan-out
	// entirely (SPEC_FULL.md open question #1). This also covers every
	// other live connection of the joining account itself (spec §4.3
	// JOIN step 4): each one gets the self-JOIN plus NAMES/topic the
	// same way replayJoin catches up a reconnecting connection.
	if !fromSystem {
		for _, m := range ch.Members() {
			for _, conn := range m.Connections() {
				if conn == c.mc || conn.HasSeenMember(ch.FoldedName(), acct) {
					continue
				}
				conn.Send(joinLineFor(conn, acct, ch).Bytes())
				conn.MarkSeenMember(ch.FoldedName(), acct)
				if m == acct {
					sendTopicTo(c.rt, conn, ch)
					sendNamesTo(c.rt, conn, ch)
				}
			}
		}
	}

	c.sendTopic(ch)
	c.sendNames(ch)
}

// replayJoin catches a single reconnecting connection up on a channel
// its account is already a member of, without notifying anyone else
// (SPEC_FULL.md open question #1: fan-out is suppressed for
// finalisation auto-join replay).
func (c *Conn) replayJoin(ch *model.Channel, acct *model.Account) {
	for _, m := range ch.Members() {
		c.mc.MarkSeenMember(ch.FoldedName(), m)
	}
	c.send(joinLineFor(c.mc, acct, ch))
	c.sendTopic(ch)
	c.sendNames(ch)
}

func (c *Conn) handlePART(msg ircline.Message) {
	if len(msg.Params) < 1 {
		c.numeric(ircline.ERR_NEEDMOREPARAMS, "PART", "Not enough parameters")
		return
	}
	acct := c.mc.Account()
	reason := ""
	if len(msg.Params) > 1 {
		reason = msg.Params[len(msg.Params)-1]
	}
	for _, name := range strings.Split(msg.Params[0], ",") {
		folded := ircline.CaseFold(name)
		ch := c.rt.Registry.LookupChannelByName(folded)
		if ch == nil || !ch.Has(acct) {
			c.numeric(ircline.ERR_NOTONCHANNEL, name, "You're not on that channel")
			continue
		}
		c.leaveChannel(acct, ch, reason, true)
	}
}

// leaveChannel removes acct from ch and always clears this
// connection's seen-member mirror for the channel. When announce is
// true it sends the PART to this connection and to the remaining
// members, regardless of whether acct retains other live connections
// in it (SPEC_FULL.md open question #2); quit passes false.
func (c *Conn) leaveChannel(acct *model.Account, ch *model.Channel, reason string, announce bool) {
	if c.rt.Bus.HasHandler(events.KindChannelPart) {
		ev := &events.ChannelPartEvent{Channel: ch, Account: acct, Message: reason}
		c.rt.Bus.Dispatch(events.KindChannelPart, ev)
		if ev.Cancelled() {
			return
		}
	}

	remaining := ch.RemoveMember(acct)
	acct.RemoveChannel(ch)
	c.mc.ForgetChannel(ch.FoldedName())

	partMsg := ircline.Message{Prefix: acct.Prefix(), Command: ircline.PART, Params: []string{ch.Name(), reason}, Trailing: true}
	if announce {
		c.send(partMsg)
		for _, m := range ch.Members() {
			for _, conn := range m.Connections() {
				conn.Send(partMsg.Bytes())
			}
		}
	}

	if remaining == 0 {
		c.rt.Registry.RemoveChannelIfEmpty(ch)
	}
}

func (c *Conn) sendTopic(ch *model.Channel) {
	if ch.Topic() == "" {
		c.numeric(ircline.RPL_NOTOPIC, ch.Name(), "No topic is set")
		return
	}
	c.numeric(ircline.RPL_TOPIC, ch.Name(), ch.Topic())
}

func (c *Conn) sendNames(ch *model.Channel) {
	var names []string
	for _, m := range ch.Members() {
		names = append(names, m.Nick())
	}
	c.numeric(ircline.RPL_NAMREPLY, "=", ch.Name(), strings.Join(names, " "))
	c.numeric(ircline.RPL_ENDOFNAMES, ch.Name(), "End of NAMES list")
}

func (c *Conn) handleNAMES(msg ircline.Message) {
	if len(msg.Params) < 1 {
		return
	}
	for _, name := range strings.Split(msg.Params[0], ",") {
		ch := c.rt.Registry.LookupChannelByName(ircline.CaseFold(name))
		if ch == nil {
			continue
		}
		c.sendNames(ch)
	}
}

func (c *Conn) handleTOPIC(msg ircline.Message) {
	if len(msg.Params) < 1 {
		c.numeric(ircline.ERR_NEEDMOREPARAMS, "TOPIC", "Not enough parameters")
		return
	}
	ch := c.rt.Registry.LookupChannelByName(ircline.CaseFold(msg.Params[0]))
	if ch == nil {
		c.numeric(ircline.ERR_NOSUCHCHANNEL, msg.Params[0], "No such channel")
		return
	}
	if len(msg.Params) == 1 {
		c.sendTopic(ch)
		return
	}
	acct := c.mc.Account()
	if ch.HasMode(model.ModeTopicProtected) && !acct.InChannel(ch) {
		c.numeric(ircline.ERR_NOTONCHANNEL, ch.Name(), "You're not on that channel")
		return
	}
	ch.SetTopic(msg.Params[1])
	topicMsg := ircline.Message{Prefix: acct.Prefix(), Command: ircline.TOPIC, Params: []string{ch.Name(), msg.Params[1]}, Trailing: true}
	for _, m := range ch.Members() {
		for _, conn := range m.Connections() {
			conn.Send(topicMsg.Bytes())
		}
	}
}

// handleMessage implements PRIVMSG/NOTICE routing (spec §4.3): channel
// fan-out or private delivery, honouring echo-message and the
// znc.in/self-message / account-tag capabilities.
func (c *Conn) handleMessage(msg ircline.Message) {
	if len(msg.Params) < 2 {
		c.numeric(ircline.ERR_NEEDMOREPARAMS, msg.Command, "Not enough parameters")
		return
	}
	acct := c.mc.Account()
	targets := strings.Split(msg.Params[0], ",")
	text := msg.Params[1]

	for _, target := range targets {
		out := ircline.Message{
			Prefix:   acct.Prefix(),
			Command:  msg.Command,
			Params:   []string{target, text},
			Trailing: true,
			Tags:     selectRelayTags(msg.Tags),
			TagOrder: msg.TagOrder,
		}

		if strings.HasPrefix(target, "#") {
			ch := c.rt.Registry.LookupChannelByName(ircline.CaseFold(target))
			if ch == nil {
				c.numeric(ircline.ERR_NOSUCHCHANNEL, target, "No such channel")
				continue
			}
			if ch.HasMode(model.ModeNoExternal) && !acct.InChannel(ch) {
				c.numeric(ircline.ERR_CANNOTSENDTOCHAN, target, "Cannot send to channel")
				continue
			}
			if c.rt.Bus.HasHandler(events.KindChannelMessage) {
				ev := &events.MessageEvent{ConnID: c.mc.ID(), Tags: msg.Tags, Nick: acct.Nick(), Text: text, Account: acct, Channel: ch}
				c.rt.Bus.Dispatch(events.KindChannelMessage, ev)
				if ev.Cancelled() {
					continue
				}
			}
			for _, m := range ch.Members() {
				for _, conn := range m.Connections() {
					if conn == c.mc && !conn.HasCap("echo-message") {
						continue
					}
					conn.Send(out.Bytes())
				}
			}
			continue
		}

		dest := c.rt.Registry.LookupNick(ircline.CaseFold(target))
		if dest == nil {
			c.numeric(ircline.ERR_NOSUCHNICK, target, "No such nick/channel")
			continue
		}
		if c.rt.Bus.HasHandler(events.KindPrivateMessage) {
			ev := &events.MessageEvent{ConnID: c.mc.ID(), Tags: msg.Tags, Nick: acct.Nick(), Text: text, Account: acct, Dest: dest}
			c.rt.Bus.Dispatch(events.KindPrivateMessage, ev)
			if ev.Cancelled() {
				continue
			}
		}
		for _, conn := range dest.Connections() {
			conn.Send(out.Bytes())
		}
		if dest == acct {
			for _, conn := range acct.Connections() {
				if conn != c.mc && conn.HasCap("znc.in/self-message") {
					conn.Send(out.Bytes())
				}
			}
		} else if c.mc.HasCap("echo-message") {
			c.send(out)
		}
	}
}

// selectRelayTags forwards only the client-tags a sender attached,
// dropping server-reserved keys; account/time tags are stamped by the
// relay path the same way the original forwards account-tag.
func selectRelayTags(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if strings.HasPrefix(k, "+") {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (c *Conn) handleTagmsg(msg ircline.Message) {
	if len(msg.Params) < 1 {
		return
	}
	acct := c.mc.Account()
	if c.rt.Bus.HasHandler(events.KindTagMessage) {
		ev := &events.MessageTagsEvent{Account: acct, Tags: msg.Tags, Line: string(msg.Bytes())}
		c.rt.Bus.Dispatch(events.KindTagMessage, ev)
		if ev.Cancelled() {
			return
		}
	}
	target := msg.Params[0]
	out := ircline.Message{Prefix: acct.Prefix(), Command: ircline.TAGMSG, Params: []string{target}, Tags: selectRelayTags(msg.Tags)}
	if strings.HasPrefix(target, "#") {
		ch := c.rt.Registry.LookupChannelByName(ircline.CaseFold(target))
		if ch == nil {
			return
		}
		for _, m := range ch.Members() {
			for _, conn := range m.Connections() {
				if conn.HasCap("message-tags") {
					conn.Send(out.Bytes())
				}
			}
		}
		return
	}
	dest := c.rt.Registry.LookupNick(ircline.CaseFold(target))
	if dest == nil {
		return
	}
	for _, conn := range dest.Connections() {
		if conn.HasCap("message-tags") {
			conn.Send(out.Bytes())
		}
	}
}

func (c *Conn) handleNICKReady(msg ircline.Message) {
	if len(msg.Params) < 1 || msg.Params[0] == "" {
		c.numeric(ircline.ERR_NONICKNAMEGIVEN, "No nickname given")
		return
	}
	newNick := msg.Params[0]
	if !ircline.ValidNick(newNick, c.rt.Config.MaxNick) {
		c.numeric(ircline.ERR_ERRONEUSNICK, newNick, "Erroneous nickname")
		return
	}
	acct := c.mc.Account()
	oldNick := acct.Nick()
	oldFolded := ircline.CaseFold(oldNick)
	newFolded := ircline.CaseFold(newNick)

	if newFolded == oldFolded {
		c.numeric(ircline.ERR_NONICKNAMEGIVEN, "No nickname given")
		return
	}

	if c.rt.Bus.HasHandler(events.KindNickChange) {
		ev := &events.NickChangeEvent{Account: acct, OldNick: oldNick, NewNick: newNick}
		c.rt.Bus.Dispatch(events.KindNickChange, ev)
		if ev.Cancelled() {
			return
		}
	}

	if err := c.rt.Registry.RebindNick(oldFolded, newFolded, acct); err != nil {
		c.numeric(ircline.ERR_NICKNAMEINUSE, newNick, "Nickname is already in use")
		return
	}
	acct.SetNick(newNick)

	nickMsg := ircline.Message{Prefix: oldNick + "!" + acct.Username() + "@" + acct.Host(), Command: ircline.NICK, Params: []string{newNick}, Trailing: true}
	seen := map[*model.Connection]bool{}
	for _, ch := range acct.Channels() {
		for _, m := range ch.Members() {
			for _, conn := range m.Connections() {
				if seen[conn] {
					continue
				}
				seen[conn] = true
				conn.Send(nickMsg.Bytes())
			}
		}
	}
	for _, conn := range acct.Connections() {
		if !seen[conn] {
			conn.Send(nickMsg.Bytes())
		}
	}
}

// handleMODE implements both channel and user MODE (spec §6): query
// with no arguments, sign-led letter parsing otherwise. Unknown
// letters are reported but do not abort the rest of the string (spec
// §4.3 "partial validity").
func (c *Conn) handleMODE(msg ircline.Message) {
	if len(msg.Params) < 1 {
		c.numeric(ircline.ERR_NEEDMOREPARAMS, "MODE", "Not enough parameters")
		return
	}
	target := msg.Params[0]
	if strings.HasPrefix(target, "#") {
		c.handleChannelMode(msg, target)
		return
	}
	c.handleUserMode(msg, target)
}

func (c *Conn) handleChannelMode(msg ircline.Message, target string) {
	ch := c.rt.Registry.LookupChannelByName(ircline.CaseFold(target))
	if ch == nil {
		c.numeric(ircline.ERR_NOSUCHCHANNEL, target, "No such channel")
		return
	}
	if len(msg.Params) == 1 {
		letters, args := ch.ModeString(true)
		params := append([]string{target, letters}, args...)
		c.numeric(ircline.RPL_CHANNELMODEIS, params...)
		return
	}

	changes := msg.Params[1]
	extra := msg.Params[2:]
	var applied strings.Builder
	sign := byte('+')
	extraIdx := 0
	for i := 0; i < len(changes); i++ {
		r := changes[i]
		if r == '+' || r == '-' {
			sign = r
			continue
		}
		mode, ok := model.ChannelModeByLetter[r]
		if !ok {
			c.numeric(ircline.ERR_UNKNOWNMODE, string(r), "is unknown mode char to me")
			continue
		}
		on := sign == '+'
		switch mode {
		case model.ModeKey:
			if on && extraIdx < len(extra) {
				ch.SetKey(extra[extraIdx])
				extraIdx++
			} else if !on {
				ch.SetKey("")
			}
		case model.ModeLimit:
			if on && extraIdx < len(extra) {
				if n, err := strconv.Atoi(extra[extraIdx]); err == nil {
					ch.SetLimit(n)
				}
				extraIdx++
			} else if !on {
				ch.SetLimit(0)
			}
		case model.ModeBan:
			if extraIdx < len(extra) {
				if on {
					ch.AddBan(extra[extraIdx])
				} else {
					ch.RemoveBan(extra[extraIdx])
				}
				extraIdx++
			}
		}
		if ch.SetMode(mode, on) {
			applied.WriteByte(sign)
			applied.WriteByte(r)
		}
	}
	if applied.Len() == 0 {
		return
	}
	acct := c.mc.Account()
	out := ircline.Message{Prefix: acct.Prefix(), Command: ircline.MODE, Params: []string{target, applied.String()}}
	for _, m := range ch.Members() {
		for _, conn := range m.Connections() {
			conn.Send(out.Bytes())
		}
	}
}

func (c *Conn) handleUserMode(msg ircline.Message, target string) {
	acct := c.mc.Account()
	if !strings.EqualFold(target, acct.Nick()) {
		c.numeric(ircline.ERR_USERNOTINCHANNEL, target, "Cannot change mode for other users")
		return
	}
	if len(msg.Params) == 1 {
		letters := []byte{'+'}
		for _, e := range model.UserModeLetters {
			if c.mc.UserModes()&e.Mode != 0 {
				letters = append(letters, e.Letter)
			}
		}
		c.numeric(ircline.RPL_UMODEIS, string(letters))
		return
	}
	changes := msg.Params[1]
	sign := byte('+')
	var applied strings.Builder
	for i := 0; i < len(changes); i++ {
		r := changes[i]
		if r == '+' || r == '-' {
			sign = r
			continue
		}
		var mode model.UserMode
		found := false
		for _, e := range model.UserModeLetters {
			if e.Letter == r {
				mode, found = e.Mode, true
				break
			}
		}
		if !found {
			c.numeric(ircline.ERR_UNKNOWNMODE, string(r), "is unknown mode char to me")
			continue
		}
		if c.mc.SetUserMode(mode, sign == '+') {
			applied.WriteByte(sign)
			applied.WriteByte(r)
		}
	}
	if applied.Len() > 0 {
		c.send(ircline.Message{Prefix: acct.Prefix(), Command: ircline.MODE, Params: []string{target, applied.String()}})
	}
}

func (c *Conn) handleWHO(msg ircline.Message) {
	if len(msg.Params) < 1 {
		c.numeric(ircline.RPL_ENDOFWHO, "*", "End of WHO list")
		return
	}
	target := msg.Params[0]
	server := c.rt.Config.ServerName
	if strings.HasPrefix(target, "#") {
		ch := c.rt.Registry.LookupChannelByName(ircline.CaseFold(target))
		if ch != nil {
			for _, m := range ch.Members() {
				c.numeric(ircline.RPL_WHOREPLY, target, "user", m.Host(), server, m.Nick(), "H", "0 "+m.Nick())
			}
		}
	} else if acct := c.rt.Registry.LookupNick(ircline.CaseFold(target)); acct != nil {
		c.numeric(ircline.RPL_WHOREPLY, target, "user", acct.Host(), server, acct.Nick(), "H", "0 "+acct.Nick())
	}
	c.numeric(ircline.RPL_ENDOFWHO, target, "End of WHO list")
}

func (c *Conn) handleWHOIS(msg ircline.Message) {
	if len(msg.Params) < 1 {
		return
	}
	nick := msg.Params[len(msg.Params)-1]
	acct := c.rt.Registry.LookupNick(ircline.CaseFold(nick))
	if acct == nil {
		c.numeric(ircline.ERR_NOSUCHNICK, nick, "No such nick/channel")
		return
	}
	user := acct.Username()
	if user == "" {
		user = "user"
	}
	c.numeric(ircline.RPL_WHOISUSER, nick, user, acct.Host(), "*", acct.Nick())
	c.numeric(ircline.RPL_WHOISSERVER, nick, c.rt.Config.ServerName, c.rt.Config.Network)
	var chans []string
	for _, ch := range acct.Channels() {
		chans = append(chans, ch.Name())
	}
	if len(chans) > 0 {
		c.numeric(ircline.RPL_WHOISCHANNELS, nick, strings.Join(chans, " "))
	}
	c.numeric(ircline.RPL_ENDOFWHOIS, nick, "End of WHOIS list")
}

// handleRENAME implements draft/channel-rename (spec §6,
// SPEC_FULL.md open question #3): the registry rewrites its
// folded-name index atomically; there is no PART+JOIN fallback.
func (c *Conn) handleRENAME(msg ircline.Message) {
	if len(msg.Params) < 2 {
		c.numeric(ircline.ERR_NEEDMOREPARAMS, "RENAME", "Not enough parameters")
		return
	}
	oldName, newName := msg.Params[0], msg.Params[1]
	reason := ""
	if len(msg.Params) > 2 {
		reason = msg.Params[2]
	}
	ch := c.rt.Registry.LookupChannelByName(ircline.CaseFold(oldName))
	if ch == nil {
		c.numeric(ircline.ERR_NOSUCHCHANNEL, oldName, "No such channel")
		return
	}
	acct := c.mc.Account()
	if c.rt.Bus.HasHandler(events.KindChannelRename) {
		ev := &events.ChannelRenameEvent{Channel: ch, Account: acct, OldName: oldName, NewName: newName, Message: reason}
		c.rt.Bus.Dispatch(events.KindChannelRename, ev)
		if ev.Cancelled() {
			return
		}
	}
	if err := c.rt.Registry.RenameChannel(ch, newName); err != nil {
		c.numeric(ircline.ERR_BADCHANMASK, newName, "Channel name already in use")
		return
	}
	out := ircline.Message{Prefix: acct.Prefix(), Command: ircline.RENAME, Params: []string{oldName, newName, reason}, Trailing: true}
	for _, m := range ch.Members() {
		for _, conn := range m.Connections() {
			conn.Send(out.Bytes())
		}
	}
}
