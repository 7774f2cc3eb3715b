/*
Package notify turns room state mutations into an ordered stream of change events.

Notifier wraps a state.Store. Each mutation goes through the Notifier, which applies
it to the store, stamps the resulting event with the next room-scoped sequence number
and hands it to every registered sink before the next mutation is admitted. Snapshots
are taken under the same lock, so a snapshot always corresponds to exactly one point
in the event sequence.
*/
package notify

import (
	"sync"

	"syncroom/internal/app/protocol"
	"syncroom/internal/app/state"
)

// Sink consumes change events. Sinks run under the notifier lock and must not block
// or call back into the Notifier.
type Sink func(protocol.Event)

// Notifier serializes mutations of one store and emits their change events.
type Notifier struct {
	mu    sync.Mutex
	store *state.Store
	seq   uint64
	sinks []Sink
}

// New returns a Notifier over store.
func New(store *state.Store) *Notifier {
	return &Notifier{store: store}
}

// Subscribe registers a sink for all subsequent events.
func (n *Notifier) Subscribe(sink Sink) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.sinks = append(n.sinks, sink)
}

// Store returns the underlying store for read access.
func (n *Notifier) Store() *state.Store {
	return n.store
}

// emit must be called with n.mu held.
func (n *Notifier) emit(ev protocol.Event) protocol.Event {
	n.seq++
	ev.Seq = n.seq
	for _, sink := range n.sinks {
		sink(ev)
	}
	return ev
}

// AddPlayer adds a player for sessionID and emits PlayerAdded.
func (n *Notifier) AddPlayer(sessionID string) (protocol.Event, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	p, err := n.store.AddPlayer(sessionID)
	if err != nil {
		return protocol.Event{}, err
	}
	return n.emit(protocol.PlayerAdded(p.SessionID, p.Position)), nil
}

// RemovePlayer removes sessionID's player and emits PlayerRemoved.
func (n *Notifier) RemovePlayer(sessionID string) (protocol.Event, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.store.RemovePlayer(sessionID); err != nil {
		return protocol.Event{}, err
	}
	return n.emit(protocol.PlayerRemoved(sessionID)), nil
}

// UpdatePlayerPosition moves sessionID's player and emits PlayerPositionChanged.
func (n *Notifier) UpdatePlayerPosition(sessionID string, x, y, z float64) (protocol.Event, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	p, err := n.store.UpdatePlayerPosition(sessionID, x, y, z)
	if err != nil {
		return protocol.Event{}, err
	}
	return n.emit(protocol.PlayerPositionChanged(p.SessionID, p.Position)), nil
}

// AppendMessage appends a chat message and emits MessageAppended.
func (n *Notifier) AppendMessage(author, text string) (protocol.Event, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	m, err := n.store.AppendMessage(author, text)
	if err != nil {
		return protocol.Event{}, err
	}
	return n.emit(protocol.MessageAppended(m.Author, m.Text, m.Seq)), nil
}

// Seq returns the sequence number of the last emitted event.
func (n *Notifier) Seq() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.seq
}

// Snapshot returns the full state as of the last emitted event.
func (n *Notifier) Snapshot() protocol.Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.snapshotLocked()
}

// Sync runs fn with a snapshot while holding the mutation lock. No event is
// emitted between the snapshot and the end of fn, so a subscriber attached inside
// fn receives exactly the events that follow the snapshot.
func (n *Notifier) Sync(fn func(protocol.Snapshot)) {
	n.mu.Lock()
	defer n.mu.Unlock()

	fn(n.snapshotLocked())
}

func (n *Notifier) snapshotLocked() protocol.Snapshot {
	players := n.store.Players()
	messages := n.store.Messages()

	snap := protocol.Snapshot{
		Seq:      n.seq,
		Players:  make([]protocol.PlayerState, 0, len(players)),
		Messages: make([]protocol.ChatEntry, 0, len(messages)),
	}
	for _, p := range players {
		snap.Players = append(snap.Players, protocol.PlayerState{SessionID: p.SessionID, Position: p.Position})
	}
	for _, m := range messages {
		snap.Messages = append(snap.Messages, protocol.ChatEntry{Seq: m.Seq, Author: m.Author, Text: m.Text})
	}
	return snap
}
