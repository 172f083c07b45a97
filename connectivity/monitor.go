// Package connectivity tracks the network reachability signal and
// notifies subscribers on transition edges. Callbacks fire exactly once
// per edge: repeated signals in the same direction are deduplicated, so
// a drain trigger wired to the online edge never fires redundantly.
package connectivity

import "sync"

// Direction identifies a transition edge.
type Direction int

const (
	// Online is the offline→online edge.
	Online Direction = iota
	// Offline is the online→offline edge.
	Offline
)

// String returns the direction name for logs.
func (d Direction) String() string {
	if d == Online {
		return "online"
	}
	return "offline"
}

// Monitor exposes the current reachability state and edge-triggered
// transition subscriptions.
type Monitor interface {
	// Online reports the last known reachability state.
	Online() bool

	// Subscribe registers cb to fire once per transition in the given
	// direction. The returned function removes the subscription.
	Subscribe(dir Direction, cb func()) (unsubscribe func())
}

// Manual is a Monitor fed explicitly by the host application, the Go
// analogue of wiring browser online/offline events into the library.
// Safe for concurrent use. It is also the state core of Probe.
type Manual struct {
	mu     sync.Mutex
	online bool
	nextID int
	subs   map[Direction]map[int]func()
}

var _ Monitor = (*Manual)(nil)

// NewManual creates a Manual monitor with the given initial state.
// No callbacks fire for the initial state; only edges notify.
func NewManual(online bool) *Manual {
	return &Manual{
		online: online,
		subs: map[Direction]map[int]func(){
			Online:  {},
			Offline: {},
		},
	}
}

// Online reports the last state fed via Set.
func (m *Manual) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers cb for the given edge.
func (m *Manual) Subscribe(dir Direction, cb func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subs[dir][id] = cb

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs[dir], id)
	}
}

// Set feeds a new reachability signal. If the state is unchanged the
// signal is not an edge and no callbacks fire. Callbacks run
// synchronously on the caller's goroutine, outside the monitor lock.
func (m *Manual) Set(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online

	dir := Offline
	if online {
		dir = Online
	}
	cbs := make([]func(), 0, len(m.subs[dir]))
	for _, cb := range m.subs[dir] {
		cbs = append(cbs, cb)
	}
	m.mu.Unlock()

	for _, cb := range cbs {
		cb()
	}
}
