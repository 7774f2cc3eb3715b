package protocol

import "syncroom/internal/pkg/vec"

// Event is one observable room state transition.
//
// Seq is assigned by the notifier and is strictly increasing per room. Events are
// self-contained, but a receiver must apply them in Seq order.
type Event struct {
	Seq  uint64
	Kind MessageType

	// SessionID identifies the player for player events.
	SessionID string

	// Position is set for TypePlayerJoined and TypePlayerMoved.
	Position vec.Vec3

	// Author, Text and MessageSeq are set for TypeMessagePosted.
	Author     string
	Text       string
	MessageSeq uint64
}

// Type implements Message.
func (e Event) Type() MessageType { return e.Kind }

// PlayerAdded builds a player-joined event.
func PlayerAdded(sessionID string, pos vec.Vec3) Event {
	return Event{Kind: TypePlayerJoined, SessionID: sessionID, Position: pos}
}

// PlayerPositionChanged builds a player-moved event.
func PlayerPositionChanged(sessionID string, pos vec.Vec3) Event {
	return Event{Kind: TypePlayerMoved, SessionID: sessionID, Position: pos}
}

// PlayerRemoved builds a player-left event.
func PlayerRemoved(sessionID string) Event {
	return Event{Kind: TypePlayerLeft, SessionID: sessionID}
}

// MessageAppended builds a message-posted event for chat log entry seq.
func MessageAppended(author, text string, seq uint64) Event {
	return Event{Kind: TypeMessagePosted, Author: author, Text: text, MessageSeq: seq}
}

// Reliable reports whether the event must never be silently dropped for a client.
// Positional events are superseded by the next update; chat and lifecycle events are not.
func (e Event) Reliable() bool {
	return e.Kind != TypePlayerMoved
}
