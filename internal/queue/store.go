package queue

import "sync"

// Store holds the current queue State plus the ephemeral connectivity flag,
// and fans updates out to watchers. The flag is deliberately kept outside
// State: it describes the channel, not the ticket, and is never persisted
// or reset together with it.
type Store struct {
	mu        sync.Mutex
	state     State
	connected bool
	watchers  map[uint64]func(State)
	nextWatch uint64

	// notifyMu serializes dispatches end to end so watchers observe
	// states in the exact order they were applied, even when the push
	// readLoop and a resync goroutine dispatch concurrently.
	notifyMu sync.Mutex
}

// NewStore returns a Store holding the UNSET ticket.
func NewStore() *Store {
	return &Store{watchers: map[uint64]func(State){}}
}

// State returns a copy of the current snapshot.
func (st *Store) State() State {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}

// Dispatch runs the reducer and notifies watchers of the new state.
// Notifications are delivered in apply order; watchers must not call back
// into Dispatch.
func (st *Store) Dispatch(ev Event) State {
	st.notifyMu.Lock()
	defer st.notifyMu.Unlock()
	st.mu.Lock()
	st.state = Apply(st.state, ev)
	next := st.state
	fns := make([]func(State), 0, len(st.watchers))
	for _, fn := range st.watchers {
		fns = append(fns, fn)
	}
	st.mu.Unlock()
	for _, fn := range fns {
		fn(next)
	}
	return next
}

// Watch registers a state observer and returns its cancel func.
func (st *Store) Watch(fn func(State)) (cancel func()) {
	st.mu.Lock()
	id := st.nextWatch
	st.nextWatch++
	st.watchers[id] = fn
	st.mu.Unlock()
	return func() {
		st.mu.Lock()
		delete(st.watchers, id)
		st.mu.Unlock()
	}
}

// SetConnected records channel connectivity for the UI to read.
func (st *Store) SetConnected(connected bool) {
	st.mu.Lock()
	st.connected = connected
	st.mu.Unlock()
}

// Connected reports the last observed channel connectivity.
func (st *Store) Connected() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.connected
}
