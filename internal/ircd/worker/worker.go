// Package worker implements the fixed-size dispatch pool the acceptor
// hands accepted connections to (spec §4.5), grounded on
// original_source/src/irc/threaded_server.{h,cpp}'s ThreadedServer:
// a fixed QThread pool with round-robin QMetaObject::invokeMethod
// dispatch and a mutex-guarded per-IP connection counter. Go
// goroutines and buffered channels stand in for QThread and
// Qt::QueuedConnection.
package worker

import (
	"sync"
	"sync/atomic"
)

// DefaultCount mirrors the teacher's default thread_count.
const DefaultCount = 4

// Pool is a fixed set of worker goroutines, each draining its own
// queue in submission order. Binding a connection to a fixed worker
// for its lifetime (rather than a shared pool) keeps all state-machine
// callbacks for one connection on a single goroutine, the same
// guarantee QueuedConnection gave the original per-thread affinity.
type Pool struct {
	queues []chan func()
	next   uint32

	mu       sync.Mutex
	perIP    map[string]int
	maxPerIP int
}

// New starts a Pool of count workers, each rejecting nothing by
// itself: per-IP admission is a separate, explicit step (TryAcquire)
// so the acceptor can run the PeerMaxConnectionsEvent hook before a
// connection ever reaches a worker queue.
func New(count, maxPerIP int) *Pool {
	if count <= 0 {
		count = DefaultCount
	}
	p := &Pool{
		queues:   make([]chan func(), count),
		perIP:    make(map[string]int),
		maxPerIP: maxPerIP,
	}
	for i := range p.queues {
		p.queues[i] = make(chan func(), 32)
		go runWorker(p.queues[i])
	}
	return p
}

func runWorker(q chan func()) {
	for fn := range q {
		fn()
	}
}

// TryAcquire reserves one connection slot for ip, reporting whether
// the per-IP cap allowed it (spec §4.5 step 2).
func (p *Pool) TryAcquire(ip string) bool {
	if p.maxPerIP <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.perIP[ip] >= p.maxPerIP {
		return false
	}
	p.perIP[ip]++
	return true
}

// Release frees the slot reserved by a prior TryAcquire.
func (p *Pool) Release(ip string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := p.perIP[ip]; n <= 1 {
		delete(p.perIP, ip)
	} else {
		p.perIP[ip] = n - 1
	}
}

// PeerCount reports how many live connections are currently charged
// against ip.
func (p *Pool) PeerCount(ip string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.perIP[ip]
}

// Dispatch assigns fn to the next worker in round-robin order (spec
// §4.5 "round-robin across a fixed worker pool").
func (p *Pool) Dispatch(fn func()) {
	idx := atomic.AddUint32(&p.next, 1) % uint32(len(p.queues))
	p.queues[idx] <- fn
}

// Close stops accepting new work; in-flight queued work still drains.
func (p *Pool) Close() {
	for _, q := range p.queues {
		close(q)
	}
}
