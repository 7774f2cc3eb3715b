/*
Package state holds the canonical room state: the player table keyed by session id
and the append-only chat log.

Store is the only place that mutates that state. Every mutation either succeeds
completely or fails with a typed error and leaves the state untouched.
*/
package state

import (
	"strings"
	"sync"

	"syncroom/internal/pkg/errs"
	"syncroom/internal/pkg/vec"
)

// MaxMessageBytes is the maximum allowed size of a chat message text.
const MaxMessageBytes = 5000

// Player is the positional state owned by one joined session.
type Player struct {
	SessionID string
	Position  vec.Vec3
}

// Message is one chat log entry. Seq is its 1-based position in the log.
type Message struct {
	Seq    uint64
	Author string
	Text   string
}

// Store owns one room's players and messages.
type Store struct {
	mu sync.RWMutex

	players map[string]*Player

	// order keeps session ids in join order for deterministic iteration.
	order []string

	messages []Message
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		players: make(map[string]*Player),
	}
}

// AddPlayer inserts a player at the origin for sessionID.
func (s *Store) AddPlayer(sessionID string) (Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[sessionID]; ok {
		return Player{}, errs.NewError(errs.ErrDuplicateSession, sessionID)
	}

	p := &Player{SessionID: sessionID, Position: vec.Origin}
	s.players[sessionID] = p
	s.order = append(s.order, sessionID)

	return *p, nil
}

// RemovePlayer deletes the player owned by sessionID.
func (s *Store) RemovePlayer(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[sessionID]; !ok {
		return errs.NewError(errs.ErrUnknownSession, sessionID)
	}

	delete(s.players, sessionID)
	for i, id := range s.order {
		if id == sessionID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	return nil
}

// UpdatePlayerPosition overwrites the position of sessionID's player.
// Bounds are not checked; non-finite components are rejected.
func (s *Store) UpdatePlayerPosition(sessionID string, x, y, z float64) (Player, error) {
	pos := vec.New(x, y, z)
	if !pos.Finite() {
		return Player{}, errs.NewError(errs.ErrInvalidCoordinate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[sessionID]
	if !ok {
		return Player{}, errs.NewError(errs.ErrUnknownSession, sessionID)
	}

	p.Position = pos
	return *p, nil
}

// AppendMessage appends a chat message and returns the stored entry.
func (s *Store) AppendMessage(author, text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, errs.NewError(errs.ErrEmptyMessage)
	}
	if len(text) > MaxMessageBytes {
		return Message{}, errs.NewError(errs.ErrMessageTooLong)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := Message{
		Seq:    uint64(len(s.messages)) + 1,
		Author: author,
		Text:   text,
	}
	s.messages = append(s.messages, msg)

	return msg, nil
}

// Player returns the player owned by sessionID, if any.
func (s *Store) Player(sessionID string) (Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[sessionID]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// Players returns a copy of all players in join order.
func (s *Store) Players() []Player {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Player, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.players[id])
	}
	return out
}

// Messages returns a copy of the chat log in append order.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// PlayerCount returns the number of players.
func (s *Store) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.players)
}

// MessageCount returns the length of the chat log.
func (s *Store) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.messages)
}
