// Package tcp implements the raw-socket IRC transport: one frame per
// CRLF-terminated line, grounded on velour/irc.Client's split
// read/write goroutine pair (_examples/velour-velour/irc/client.go).
package tcp

import (
	"bufio"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/kroketio/chatripper-ircd/internal/ircd/conn"
)

// MaxLineBytes bounds a single incoming frame before it is dropped as
// oversized (spec §4.1/§8: a buffer exceeding 1024 bytes without a
// terminating LF disconnects the peer).
const MaxLineBytes = 1024

// MaxPreTagBytes bounds the non-tag portion of a single line (spec
// §4.1: more than 512 bytes of pre-tag input on one line disconnects
// the peer, independent of MaxLineBytes).
const MaxPreTagBytes = 512

// WriteDeadline bounds how long a single flush may block, the same
// way the teacher's writeMsgs resets a deadline per write.
const WriteDeadline = 10 * time.Second

// Transport wraps one net.Conn and feeds it to a conn.Conn.
type Transport struct {
	nc  net.Conn
	out chan []byte
	done chan struct{}
}

// Serve drives a single accepted connection until it closes: it
// constructs the Conn, spawns the writer goroutine, and reads lines on
// the calling goroutine until EOF or a protocol-fatal error. Callers
// run Serve on its own goroutine per connection (spec §4.5 "one
// goroutine per accepted connection"). onOpen, if not nil, is called
// with the new Conn before the read loop starts; onClose is called
// once the connection has fully stopped. Both let the caller maintain
// a keepalive-sweep registry without this package knowing about one.
func Serve(rt *conn.Runtime, nc net.Conn, onOpen, onClose func(*conn.Conn)) {
	t := &Transport{nc: nc, out: make(chan []byte, 64), done: make(chan struct{})}
	c := conn.New(rt, nc.RemoteAddr().String(), t)
	if onOpen != nil {
		onOpen(c)
	}
	if onClose != nil {
		defer onClose(c)
	}

	go t.writeLoop()

	reader := bufio.NewReaderSize(nc, MaxLineBytes)
	for {
		line, err := readLine(reader)
		if err != nil {
			break
		}
		if line != nil {
			c.HandleLine(line)
		}
	}
	c.ModelConnection().Close()
}

// readLine reads one CRLF- or LF-terminated line, stripping the
// terminator, and enforces MaxLineBytes.
func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadSlice('\n')
	if err != nil {
		return nil, err
	}
	if len(line) > MaxLineBytes {
		return nil, errors.New("line too long")
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	if preTagTooLong(line) {
		return nil, errors.New("pre-tag input too long")
	}
	out := make([]byte, len(line))
	copy(out, line)
	return out, nil
}

// preTagTooLong reports whether the non-tag portion of line exceeds
// MaxPreTagBytes. Lines opening with a message-tags prefix ("@...")
// carry their tags before the first space; everything from that space
// onward is the pre-tag body this limit guards.
func preTagTooLong(line []byte) bool {
	if len(line) == 0 || line[0] != '@' {
		return len(line) > MaxPreTagBytes
	}
	sp := -1
	for i, b := range line {
		if b == ' ' {
			sp = i
			break
		}
	}
	if sp < 0 {
		return false
	}
	return len(line)-sp-1 > MaxPreTagBytes
}

func (t *Transport) writeLoop() {
	w := bufio.NewWriter(t.nc)
	for {
		select {
		case line, ok := <-t.out:
			if !ok {
				return
			}
			t.nc.SetWriteDeadline(time.Now().Add(WriteDeadline))
			if _, err := w.Write(line); err != nil {
				return
			}
			if _, err := w.WriteString("\r\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		case <-t.done:
			return
		}
	}
}

// Send implements model.Sender. It never blocks on socket I/O; it
// only enqueues onto the writer goroutine's channel.
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
	t.nc.Close()
}
