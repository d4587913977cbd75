// Package ws implements the WebSocket IRC transport: one text frame
// per IRC line, no trailing CRLF (spec §2). Grounded on
// velour-chat/websocket/websocket.go's goSend/goRecv goroutine pair,
// adapted from JSON payloads to raw IRC lines.
package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kroketio/chatripper-ircd/internal/ircd/conn"
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	CheckOrigin:      func(*http.Request) bool { return true },
	Subprotocols:     []string{"text.ircv3.net"},
}

// WriteTimeout bounds how long a single outbound frame write may
// block before the connection is considered dead.
const WriteTimeout = 10 * time.Second

// Transport wraps one gorilla websocket.Conn.
type Transport struct {
	wc   *websocket.Conn
	out  chan []byte
	done chan struct{}
}

// Serve upgrades an HTTP request to a websocket and drives it until
// close, the same shape as tcp.Serve (spec §2: "the same codec and
// state machine underneath" both transports). onOpen/onClose mirror
// tcp.Serve's hooks for the caller's keepalive-sweep registry.
func Serve(rt *conn.Runtime, w http.ResponseWriter, r *http.Request, onOpen, onClose func(*conn.Conn)) error {
	wc, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	t := &Transport{wc: wc, out: make(chan []byte, 64), done: make(chan struct{})}
	c := conn.New(rt, wc.RemoteAddr().String(), t)
	if onOpen != nil {
		onOpen(c)
	}
	if onClose != nil {
		defer onClose(c)
	}

	go t.writeLoop()
	t.readLoop(c)
	c.ModelConnection().Close()
	return nil
}

func (t *Transport) readLoop(c *conn.Conn) {
	for {
		msgType, data, err := t.wc.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		c.HandleLine(data)
	}
}

func (t *Transport) writeLoop() {
	for {
		select {
		case line, ok := <-t.out:
			if !ok {
				return
			}
			t.wc.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if err := t.wc.WriteMessage(websocket.TextMessage, line); err != nil {
				return
			}
		case <-t.done:
			return
		}
	}
}

// Send implements model.Sender.
func (t *Transport) Send(line []byte) {
	select {
	case t.out <- line:
	case <-t.done:
	}
}

// Close implements model.Sender.
func (t *Transport) Close() {
	select {
	case <-t.done:
		return
	default:
		close(t.done)
	}
	t.wc.WriteControl(websocket.CloseMessage, nil, time.Now().Add(time.Second))
	t.wc.Close()
}
