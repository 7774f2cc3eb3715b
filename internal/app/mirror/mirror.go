/*
Package mirror keeps a client-side, read-only replica of a room's state.

A Mirror is a fold over the server's change events: it starts from the snapshot
received on join and applies each subsequent event in sequence order. Replays of
already-applied events are ignored, and a gap in the sequence is reported as a
protocol violation because the replica can no longer be trusted.
*/
package mirror

import (
	"sync"

	"syncroom/internal/app/protocol"
	"syncroom/internal/pkg/errs"
	"syncroom/internal/pkg/vec"
)

// Player is the mirrored view of one player.
type Player struct {
	SessionID string
	Position  vec.Vec3

	// Self marks the local client's own player.
	Self bool
}

// Message is the mirrored view of one chat entry.
type Message struct {
	Seq    uint64
	Author string
	Text   string
}

// Listener receives notifications after each applied change.
// Callbacks run on the goroutine that applies events and must not call Apply.
type Listener interface {
	OnPlayerAdded(p Player)
	OnPlayerUpdated(p Player)
	OnPlayerRemoved(p Player)
	OnMessageAdded(m Message)
}

// Funcs adapts optional callback functions to Listener.
type Funcs struct {
	PlayerAdded   func(Player)
	PlayerUpdated func(Player)
	PlayerRemoved func(Player)
	MessageAdded  func(Message)
}

func (f Funcs) OnPlayerAdded(p Player) {
	if f.PlayerAdded != nil {
		f.PlayerAdded(p)
	}
}

func (f Funcs) OnPlayerUpdated(p Player) {
	if f.PlayerUpdated != nil {
		f.PlayerUpdated(p)
	}
}

func (f Funcs) OnPlayerRemoved(p Player) {
	if f.PlayerRemoved != nil {
		f.PlayerRemoved(p)
	}
}

func (f Funcs) OnMessageAdded(m Message) {
	if f.MessageAdded != nil {
		f.MessageAdded(m)
	}
}

// Mirror is the replica. All methods are safe for concurrent use.
type Mirror struct {
	mu        sync.RWMutex
	selfID    string
	seq       uint64
	players   map[string]*Player
	order     []string
	messages  []Message
	listeners []Listener
}

// New returns an empty Mirror for the client whose session id is selfID.
func New(selfID string, listeners ...Listener) *Mirror {
	return &Mirror{
		selfID:    selfID,
		players:   make(map[string]*Player),
		listeners: listeners,
	}
}

// AddListener registers l for subsequent notifications.
func (m *Mirror) AddListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners = append(m.listeners, l)
}

// SelfID returns the local session id.
func (m *Mirror) SelfID() string {
	return m.selfID
}

type notification struct {
	kind    protocol.MessageType
	removed bool
	player  Player
	message Message
}

// Reset replaces the mirrored state with snap and notifies listeners of every
// player and message it contains.
func (m *Mirror) Reset(snap protocol.Snapshot) {
	m.mu.Lock()
	m.players = make(map[string]*Player)
	m.order = nil
	m.messages = nil

	var pending []notification
	for _, ev := range snap.Events() {
		pending = append(pending, m.fold(ev)...)
	}
	m.seq = snap.Seq
	listeners := m.listeners
	m.mu.Unlock()

	dispatch(listeners, pending)
}

// Apply folds one event into the mirror. It returns ErrOutOfOrderEvent when ev
// skips ahead of the next expected sequence number.
func (m *Mirror) Apply(ev protocol.Event) error {
	m.mu.Lock()
	if ev.Seq <= m.seq {
		m.mu.Unlock()
		return nil
	}
	if ev.Seq != m.seq+1 {
		last := m.seq
		m.mu.Unlock()
		return errs.NewError(errs.ErrOutOfOrderEvent, ev.Seq, last)
	}

	pending := m.fold(ev)
	m.seq = ev.Seq
	listeners := m.listeners
	m.mu.Unlock()

	dispatch(listeners, pending)
	return nil
}

// fold applies ev to the state. m.mu must be held.
func (m *Mirror) fold(ev protocol.Event) []notification {
	switch ev.Kind {
	case protocol.TypePlayerJoined:
		p, existed := m.players[ev.SessionID]
		if !existed {
			p = &Player{SessionID: ev.SessionID, Self: ev.SessionID == m.selfID}
			m.players[ev.SessionID] = p
			m.order = append(m.order, ev.SessionID)
		}
		p.Position = ev.Position
		if existed {
			return []notification{{kind: protocol.TypePlayerMoved, player: *p}}
		}
		return []notification{{kind: protocol.TypePlayerJoined, player: *p}}

	case protocol.TypePlayerMoved:
		p, ok := m.players[ev.SessionID]
		if !ok {
			return nil
		}
		p.Position = ev.Position
		return []notification{{kind: protocol.TypePlayerMoved, player: *p}}

	case protocol.TypePlayerLeft:
		p, ok := m.players[ev.SessionID]
		if !ok {
			return nil
		}
		delete(m.players, ev.SessionID)
		for i, id := range m.order {
			if id == ev.SessionID {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
		return []notification{{kind: protocol.TypePlayerLeft, player: *p}}

	case protocol.TypeMessagePosted:
		msg := Message{Seq: ev.MessageSeq, Author: ev.Author, Text: ev.Text}
		m.messages = append(m.messages, msg)
		return []notification{{kind: protocol.TypeMessagePosted, message: msg}}
	}

	return nil
}

func dispatch(listeners []Listener, pending []notification) {
	for _, n := range pending {
		for _, l := range listeners {
			switch n.kind {
			case protocol.TypePlayerJoined:
				l.OnPlayerAdded(n.player)
			case protocol.TypePlayerMoved:
				l.OnPlayerUpdated(n.player)
			case protocol.TypePlayerLeft:
				l.OnPlayerRemoved(n.player)
			case protocol.TypeMessagePosted:
				l.OnMessageAdded(n.message)
			}
		}
	}
}

// Seq returns the sequence number of the last applied event.
func (m *Mirror) Seq() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.seq
}

// Player returns the mirrored player for sessionID.
func (m *Mirror) Player(sessionID string) (Player, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.players[sessionID]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// Players returns every mirrored player in join order.
func (m *Mirror) Players() []Player {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Player, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.players[id])
	}
	return out
}

// Others returns every mirrored player except the local one.
func (m *Mirror) Others() []Player {
	all := m.Players()
	out := all[:0]
	for _, p := range all {
		if !p.Self {
			out = append(out, p)
		}
	}
	return out
}

// Messages returns the mirrored chat log.
func (m *Mirror) Messages() []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}
