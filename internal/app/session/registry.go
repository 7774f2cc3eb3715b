/*
Package session binds connection lifecycles to room state.

A session exists from the websocket handshake until disconnect. It owns a player
only between a successful join and its disconnect. Disconnects are idempotent so
that retried or racing transport notifications never raise errors.
*/
package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"syncroom/internal/app/notify"
	"syncroom/internal/app/protocol"
	"syncroom/internal/pkg/errs"
	"syncroom/internal/pkg/randx"
)

// Session is one connected participant.
type Session struct {
	ID          string
	HasPlayer   bool
	ConnectedAt time.Time
}

// Registry tracks the sessions connected to one room.
type Registry struct {
	mu       sync.Mutex
	notifier *notify.Notifier
	sessions map[string]*Session
	joined   int

	// newID is swappable for tests.
	newID func() string

	logger zerolog.Logger
}

// NewRegistry returns a Registry that mutates room state through notifier.
func NewRegistry(notifier *notify.Notifier, logger zerolog.Logger) *Registry {
	return &Registry{
		notifier: notifier,
		sessions: make(map[string]*Session),
		newID:    randx.SessionID,
		logger:   logger,
	}
}

// OnConnect allocates a fresh session id. It does not touch room state.
func (r *Registry) OnConnect() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	for r.sessions[id] != nil {
		id = r.newID()
	}

	r.sessions[id] = &Session{ID: id, ConnectedAt: time.Now()}
	r.logger.Debug().Str("session_id", id).Int("connected", len(r.sessions)).Msg("Session connected.")

	return id
}

// OnJoin creates the player for sessionID. A second join for the same session
// fails with ErrDuplicateSession, which callers treat as a protocol violation.
func (r *Registry) OnJoin(sessionID string) (protocol.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return protocol.Event{}, errs.NewError(errs.ErrUnknownSession, sessionID)
	}
	if sess.HasPlayer {
		r.logger.Warn().Str("session_id", sessionID).Msg("Duplicate join rejected.")
		return protocol.Event{}, errs.NewError(errs.ErrDuplicateSession, sessionID)
	}

	ev, err := r.notifier.AddPlayer(sessionID)
	if err != nil {
		return protocol.Event{}, err
	}

	sess.HasPlayer = true
	r.joined++
	r.logger.Info().Str("session_id", sessionID).Int("joined", r.joined).Msg("Session joined room.")

	return ev, nil
}

// OnDisconnect removes sessionID and its player if it has one.
// Unknown or already-disconnected sessions are a no-op. It reports whether a
// player was removed.
func (r *Registry) OnDisconnect(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	delete(r.sessions, sessionID)

	if !sess.HasPlayer {
		r.logger.Debug().Str("session_id", sessionID).Msg("Session disconnected before joining.")
		return false
	}

	r.joined--
	if _, err := r.notifier.RemovePlayer(sessionID); err != nil {
		r.logger.Error().Err(err).Str("session_id", sessionID).Msg("Player already missing on disconnect.")
		return false
	}

	r.logger.Info().Str("session_id", sessionID).Int("joined", r.joined).Msg("Session left room.")
	return true
}

// Session returns a copy of the session record for sessionID.
func (r *Registry) Session(sessionID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// HasPlayer reports whether sessionID is connected and joined.
func (r *Registry) HasPlayer(sessionID string) bool {
	sess, ok := r.Session(sessionID)
	return ok && sess.HasPlayer
}

// Connected returns the number of connected sessions, joined or not.
func (r *Registry) Connected() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}

// Joined returns the number of sessions that own a player.
func (r *Registry) Joined() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.joined
}
