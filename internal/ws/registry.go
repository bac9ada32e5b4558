package ws

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scangate/qrlogin-server-go/internal/model"
)

const (
	// Per-connection send queue. Status snapshots are small and the client
	// paces itself by polling, so the queue rarely holds more than one event.
	sendQueueSize = 16

	// Grace period for the writer to flush a terminal event before the
	// connection is force-closed.
	closeGrace = time.Second
)

// Event is a session status push delivered to the waiting browser.
type Event struct {
	Status model.SessionStatus `json:"status"`
	User   string              `json:"user,omitempty"`
	Token  string              `json:"token,omitempty"`

	// Terminal marks the binding as finished: the writer sends the event
	// and then closes the connection.
	Terminal bool `json:"-"`
}

// Conn is one live notification binding. Send is never closed; the writer
// goroutine drains it until Done fires. Close is idempotent.
type Conn struct {
	SessionID string
	Send      chan Event

	done      chan struct{}
	closeOnce sync.Once
}

func newConn(sessionID string) *Conn {
	return &Conn{
		SessionID: sessionID,
		Send:      make(chan Event, sendQueueSize),
		done:      make(chan struct{}),
	}
}

// Done returns a channel closed when the binding is being torn down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close signals teardown (idempotent). It does not close Send so concurrent
// senders never panic.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Registry tracks at most one live connection per session id. A new binding
// for the same id supersedes and closes the previous one.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*Conn
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Conn),
	}
}

// Bind registers a fresh connection for the session, closing any prior one.
// Last writer wins; the loser is closed, never left dangling.
func (r *Registry) Bind(sessionID string) *Conn {
	conn := newConn(sessionID)

	r.mu.Lock()
	prev := r.conns[sessionID]
	r.conns[sessionID] = conn
	r.mu.Unlock()

	if prev != nil {
		prev.Close()
		log.Debug().Str("sessionId", sessionID).Msg("ws binding superseded")
	}
	return conn
}

// Send delivers the event to the currently bound connection, if any. Missing
// bindings and full queues drop the event; there is no buffering or retry.
func (r *Registry) Send(sessionID string, event Event) bool {
	r.mu.Lock()
	conn := r.conns[sessionID]
	r.mu.Unlock()

	if conn == nil {
		return false
	}

	select {
	case conn.Send <- event:
		return true
	default:
		log.Warn().Str("sessionId", sessionID).Msg("ws send queue full, dropping event")
		return false
	}
}

// Unbind removes the binding if it still belongs to conn. A superseded
// connection unbinding late must not evict its successor.
func (r *Registry) Unbind(conn *Conn) {
	r.mu.Lock()
	if r.conns[conn.SessionID] == conn {
		delete(r.conns, conn.SessionID)
	}
	r.mu.Unlock()

	conn.Close()
}

// Drop removes the binding for a session, pushing a final terminal event
// first. Used on logout and eviction. The writer flushes the event and
// closes; a grace timer backstops a stuck writer.
func (r *Registry) Drop(sessionID string, event Event) {
	r.mu.Lock()
	conn := r.conns[sessionID]
	delete(r.conns, sessionID)
	r.mu.Unlock()

	if conn == nil {
		return
	}

	event.Terminal = true
	select {
	case conn.Send <- event:
		time.AfterFunc(closeGrace, conn.Close)
	default:
		conn.Close()
	}
}

// Close tears down every binding; used on process shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*Conn)
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}

// Count reports the number of live bindings.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
