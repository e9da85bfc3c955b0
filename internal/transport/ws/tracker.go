package ws

import (
	"sync"

	"github.com/google/uuid"
)

// Tracker holds volatile presence state: the set of live connection ids
// per user plus an online flag. The flag is not derived from the set
// alone because an explicit offline signal wins over live connections.
type Tracker struct {
	mu    sync.Mutex
	users map[uuid.UUID]*presence
}

type presence struct {
	conns  map[string]struct{}
	online bool
}

func NewTracker() *Tracker {
	return &Tracker{users: make(map[uuid.UUID]*presence)}
}

// Connect records a connection and reports whether the user just came
// online. A connection arriving while the user is explicitly offline
// flips them back online.
func (t *Tracker) Connect(userID uuid.UUID, connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.users[userID]
	if p == nil {
		p = &presence{conns: make(map[string]struct{})}
		t.users[userID] = p
	}
	p.conns[connID] = struct{}{}

	if p.online {
		return false
	}
	p.online = true
	return true
}

// Disconnect drops a connection and reports whether the user just went
// offline. Remaining connections keep them online; a user already
// flipped offline by an explicit signal causes no second transition.
func (t *Tracker) Disconnect(userID uuid.UUID, connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.users[userID]
	if p == nil {
		return false
	}

	delete(p.conns, connID)
	if len(p.conns) > 0 {
		return false
	}

	delete(t.users, userID)
	return p.online
}

// SetOnline handles the explicit online signal.
func (t *Tracker) SetOnline(userID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.users[userID]
	if p == nil {
		p = &presence{conns: make(map[string]struct{})}
		t.users[userID] = p
	}

	if p.online {
		return false
	}
	p.online = true
	return true
}

// SetOffline handles the explicit offline signal. The user goes offline
// even while connections remain; the next connection or online signal
// flips them back.
func (t *Tracker) SetOffline(userID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.users[userID]
	if p == nil || !p.online {
		return false
	}
	p.online = false
	return true
}

func (t *Tracker) IsOnline(userID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.users[userID]
	return p != nil && p.online
}

// Connections returns the number of live connections for a user.
func (t *Tracker) Connections(userID uuid.UUID) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.users[userID]
	if p == nil {
		return 0
	}
	return len(p.conns)
}
