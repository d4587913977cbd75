// Package server wires the runtime context together: the TCP
// acceptor, the optional WebSocket HTTP listener, the worker pool,
// and the idle/keepalive timers (spec §4.5, §9). Grounded on
// original_source/src/irc/threaded_server.cpp's accept loop and
// droyo-styx/server.go's backoff-on-temporary-error pattern, with
// golang.org/x/sync/errgroup coordinating shutdown the way
// velour-chat/bridge.Bridge coordinates its background goroutines.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/kroketio/chatripper-ircd/internal/ircd/conn"
	"github.com/kroketio/chatripper-ircd/internal/ircd/events"
	"github.com/kroketio/chatripper-ircd/internal/ircd/ircdlog"
	"github.com/kroketio/chatripper-ircd/internal/ircd/transport/tcp"
	"github.com/kroketio/chatripper-ircd/internal/ircd/transport/ws"
	"github.com/kroketio/chatripper-ircd/internal/ircd/worker"
)

// Options configures a Server beyond what conn.Config already covers.
type Options struct {
	ListenAddr   string
	WebAddr      string // empty disables the WebSocket listener
	Workers      int
	MaxPerIP     int
	IdleGrace    time.Duration // how long an unanswered PING is tolerated
	PingInterval time.Duration
}

// Server owns the listeners and the worker pool for their whole
// lifetime.
type Server struct {
	opts Options
	rt   *conn.Runtime
	pool *worker.Pool

	ln     net.Listener
	webSrv *http.Server

	connsMu sync.Mutex
	conns   map[*conn.Conn]struct{}
}

// New constructs a Server bound to rt; it does not start listening
// until Run is called.
func New(rt *conn.Runtime, opts Options) *Server {
	if opts.Workers <= 0 {
		opts.Workers = worker.DefaultCount
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 90 * time.Second
	}
	if opts.IdleGrace <= 0 {
		opts.IdleGrace = 3 * time.Second
	}
	return &Server{
		opts:  opts,
		rt:    rt,
		pool:  worker.New(opts.Workers, opts.MaxPerIP),
		conns: make(map[*conn.Conn]struct{}),
	}
}

func (s *Server) track(c *conn.Conn) {
	s.connsMu.Lock()
	s.conns[c] = struct{}{}
	s.connsMu.Unlock()
}

func (s *Server) untrack(c *conn.Conn) {
	s.connsMu.Lock()
	delete(s.conns, c)
	s.connsMu.Unlock()
}

func (s *Server) log(component string) *ircdlog.Logger {
	if s.rt.Log == nil {
		return ircdlog.Default().With(component)
	}
	return s.rt.Log.With(component)
}

// Run starts the listener(s) and blocks until ctx is cancelled or a
// listener fails fatally, then tears everything down in order:
// stop accepting, close live connections, stop the worker pool
// (spec §9 teardown order).
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.ListenAddr)
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	s.ln = ln
	s.log("ircd/server").Printf("listening on %s", s.opts.ListenAddr)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.acceptLoop(gctx)
	})

	if s.opts.WebAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			_ = ws.Serve(s.rt, w, r, s.track, s.untrack)
		})
		s.webSrv = &http.Server{Addr: s.opts.WebAddr, Handler: mux}
		g.Go(func() error {
			if err := s.webSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		return s.keepaliveLoop(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		s.shutdown()
		return nil
	})

	return g.Wait()
}

func (s *Server) shutdown() {
	if s.ln != nil {
		s.ln.Close()
	}
	if s.webSrv != nil {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.webSrv.Shutdown(c)
	}

	s.connsMu.Lock()
	live := make([]*conn.Conn, 0, len(s.conns))
	for c := range s.conns {
		live = append(live, c)
	}
	s.connsMu.Unlock()
	for _, c := range live {
		c.ModelConnection().Close()
	}

	s.pool.Close()
}

// acceptLoop implements spec §4.5: accept, enforce the per-IP cap,
// round-robin dispatch to the worker pool. Temporary accept errors
// back off exponentially instead of spinning (droyo-styx/server.go).
func (s *Server) acceptLoop(ctx context.Context) error {
	backoff := time.Millisecond
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				time.Sleep(backoff)
				if backoff < time.Second {
					backoff *= 2
				}
				continue
			}
			return err
		}
		backoff = time.Millisecond

		host, _, _ := net.SplitHostPort(nc.RemoteAddr().String())
		if host == "" {
			host = nc.RemoteAddr().String()
		}
		if !s.pool.TryAcquire(host) {
			if s.rt.Bus.HasHandler(events.KindPeerMaxConnections) {
				ev := &events.PeerMaxConnectionsEvent{Connections: s.pool.PeerCount(host), IP: host}
				s.rt.Bus.Dispatch(events.KindPeerMaxConnections, ev)
			}
			s.log("ircd/worker").Printf("rejecting %s: per-IP connection cap reached", host)
			nc.Close()
			continue
		}

		s.log("ircd/server").Printf("accepted %s", nc.RemoteAddr())
		s.pool.Dispatch(func() {
			defer s.pool.Release(host)
			tcp.Serve(s.rt, nc, s.track, s.untrack)
		})
	}
}

// keepaliveLoop periodically sweeps every tracked connection for
// idleness (spec §4.5 "batch pings in groups per cycle, idle reaper
// with grace period"): connections idle past PingInterval get a PING,
// and a connection that fails to answer within IdleGrace afterward is
// dropped.
func (s *Server) keepaliveLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.PingInterval / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweepIdle()
		}
	}
}

func (s *Server) sweepIdle() {
	s.connsMu.Lock()
	live := make([]*conn.Conn, 0, len(s.conns))
	for c := range s.conns {
		live = append(live, c)
	}
	s.connsMu.Unlock()

	for _, c := range live {
		switch {
		case c.AwaitingPong() && c.IdleFor() > s.opts.PingInterval+s.opts.IdleGrace:
			c.ModelConnection().Close()
		case c.IdleFor() > s.opts.PingInterval:
			c.SendPing()
		}
	}
}
