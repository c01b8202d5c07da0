package reveal

import (
	"context"
	"sync"
	"time"
)

type sessionKey struct {
	userID uint64
	dealID uint64
}

type session struct {
	percent  int
	lastHold time.Time
	revealed bool
}

// MemoryGate keeps reveal progress in process memory. Suitable for a
// single instance; multi-instance deployments use the Redis gate so a
// reveal survives requests landing on different instances.
type MemoryGate struct {
	mu       sync.Mutex
	sessions map[sessionKey]*session

	now func() time.Time
}

// NewMemoryGate constructs an in-memory reveal gate.
func NewMemoryGate() *MemoryGate {
	return &MemoryGate{
		sessions: make(map[sessionKey]*session),
		now:      time.Now,
	}
}

// Hold registers one continuous-hold tick.
func (g *MemoryGate) Hold(_ context.Context, userID, dealID uint64) (Progress, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.pruneLocked(now)

	key := sessionKey{userID: userID, dealID: dealID}
	s, ok := g.sessions[key]
	if !ok {
		s = &session{}
		g.sessions[key] = s
	}
	if s.revealed {
		return Progress{Percent: 100, Revealed: true}, nil
	}

	step := stepPercent()
	if !s.lastHold.IsZero() && now.Sub(s.lastHold) <= holdTickTolerance {
		s.percent += step
	} else {
		// Gap too long: the hold was interrupted, start over.
		s.percent = step
	}
	s.lastHold = now

	if s.percent >= 100 {
		s.percent = 100
		s.revealed = true
	}
	return Progress{Percent: s.percent, Revealed: s.revealed}, nil
}

// Release ends the hold; partial progress resets to zero.
func (g *MemoryGate) Release(_ context.Context, userID, dealID uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := sessionKey{userID: userID, dealID: dealID}
	if s, ok := g.sessions[key]; ok && !s.revealed {
		delete(g.sessions, key)
	}
	return nil
}

// Revealed reports whether the user has fully revealed the deal.
func (g *MemoryGate) Revealed(_ context.Context, userID, dealID uint64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pruneLocked(g.now())
	s, ok := g.sessions[sessionKey{userID: userID, dealID: dealID}]
	return ok && s.revealed, nil
}

// pruneLocked drops sessions idle past the reveal TTL.
func (g *MemoryGate) pruneLocked(now time.Time) {
	for key, s := range g.sessions {
		if now.Sub(s.lastHold) > revealedTTL {
			delete(g.sessions, key)
		}
	}
}
