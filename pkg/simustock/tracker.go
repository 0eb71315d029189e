package simustock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// requestTracker tags every search with a monotonically increasing
// sequence number. Within a session, beginning a new search cancels the
// previous one and marks its result stale.
type requestTracker struct {
	mu       sync.Mutex
	seq      uint64
	sessions map[string]*trackedRequest
	clock    func() time.Time
}

type trackedRequest struct {
	seq    uint64
	cancel context.CancelFunc
}

// requestTicket identifies one tracked search.
type requestTicket struct {
	ID      string
	session string
	seq     uint64
	cancel  context.CancelFunc
}

// newRequestTracker stamps request ids with clock, read in São Paulo time.
func newRequestTracker(clock func() time.Time) *requestTracker {
	if clock == nil {
		clock = time.Now
	}
	return &requestTracker{sessions: make(map[string]*trackedRequest), clock: clock}
}

// Begin registers a new search for session and returns a context that is
// cancelled when a newer search for the same session begins. Searches with
// an empty session are never superseded.
func (t *requestTracker) Begin(parent context.Context, session string) (context.Context, requestTicket) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	ticket := requestTicket{
		ID:      fmt.Sprintf("%s-%06d", t.clock().In(saoPauloLocation).Format("20060102T150405"), t.seq),
		session: session,
		seq:     t.seq,
		cancel:  cancel,
	}
	if session == "" {
		return ctx, ticket
	}
	if prev, ok := t.sessions[session]; ok {
		prev.cancel()
	}
	t.sessions[session] = &trackedRequest{seq: ticket.seq, cancel: cancel}
	return ctx, ticket
}

// IsCurrent reports whether ticket is still the latest search of its session.
func (t *requestTracker) IsCurrent(ticket requestTicket) bool {
	if ticket.session == "" {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.sessions[ticket.session]
	return ok && cur.seq == ticket.seq
}

// End releases the ticket's context and forgets the session entry when it
// still belongs to this ticket.
func (t *requestTracker) End(ticket requestTicket) {
	ticket.cancel()
	if ticket.session == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.sessions[ticket.session]; ok && cur.seq == ticket.seq {
		delete(t.sessions, ticket.session)
	}
}

// InFlight returns the number of sessions with a search in progress.
func (t *requestTracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

