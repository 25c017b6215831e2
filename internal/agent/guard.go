package agent

import (
	"fmt"
	"sync"
)

// Guard prevents duplicate concurrent runs for the same user. It is an
// explicit, request-scoped set keyed by user id rather than ambient
// global state, so it can be injected and tested.
type Guard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewGuard creates an empty Guard.
func NewGuard() *Guard {
	return &Guard{inFlight: make(map[string]struct{})}
}

// Acquire marks userID as in flight, returning a release func. The
// second return is false when a run for that user is already active.
func (g *Guard) Acquire(userID string) (func(), bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[userID]; busy {
		return nil, false
	}
	g.inFlight[userID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, userID)
			g.mu.Unlock()
		})
	}, true
}

// ErrRunInProgress is returned when a user already has an active run.
var ErrRunInProgress = fmt.Errorf("a request is already being processed for this user")
