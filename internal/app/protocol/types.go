/*
Package protocol defines the websocket vocabulary spoken between the room server and
its clients, and the change events that carry state mutations from one to the other.

Every frame is a JSON envelope {"type", "seq", "payload"}. Each message type has its
own payload shape; decoders validate required fields and reject anything malformed
with a ValidationFailure instead of letting undefined values reach room state.
*/
package protocol

import (
	"encoding/json"

	"syncroom/internal/pkg/vec"
)

// MessageType is the tag of a frame.
type MessageType string

// Client → server.
const (
	TypeJoin           MessageType = "join"
	TypeUpdatePosition MessageType = "updatePosition"
	TypeSendMessage    MessageType = "sendMessage"
	TypeLeave          MessageType = "leave"
)

// Server → client.
const (
	TypeJoined        MessageType = "joined"
	TypePlayerJoined  MessageType = "playerJoined"
	TypePlayerLeft    MessageType = "playerLeft"
	TypePlayerMoved   MessageType = "playerMoved"
	TypeMessagePosted MessageType = "messagePosted"
	TypeJoinRejected  MessageType = "joinRejected"
	TypeError         MessageType = "error"
)

// Envelope is the outer JSON frame.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message is implemented by every decoded frame variant.
type Message interface {
	Type() MessageType
}

// Join asks to enter the named room.
type Join struct {
	Room string
}

// UpdatePosition carries the sender's own position.
type UpdatePosition struct {
	Position vec.Vec3
}

// SendMessage posts a chat message.
type SendMessage struct {
	Text string
}

// Leave announces a voluntary departure.
type Leave struct{}

func (Join) Type() MessageType           { return TypeJoin }
func (UpdatePosition) Type() MessageType { return TypeUpdatePosition }
func (SendMessage) Type() MessageType    { return TypeSendMessage }
func (Leave) Type() MessageType          { return TypeLeave }

// Joined acknowledges a join with the assigned session id and a full-state snapshot.
type Joined struct {
	SessionID  string
	Room       string
	MaxClients int
	Snapshot   Snapshot
}

// JoinRejected tells the client its join was refused before any state changed.
type JoinRejected struct {
	Reason string
	Code   int
}

// ErrorMessage reports a failed request to the originating session.
type ErrorMessage struct {
	Code    int
	Kind    string
	Message string
}

func (Joined) Type() MessageType       { return TypeJoined }
func (JoinRejected) Type() MessageType { return TypeJoinRejected }
func (ErrorMessage) Type() MessageType { return TypeError }

// PlayerState is one player as carried in a snapshot.
type PlayerState struct {
	SessionID string
	Position  vec.Vec3
}

// ChatEntry is one chat log entry as carried in a snapshot.
type ChatEntry struct {
	Seq    uint64
	Author string
	Text   string
}

// Snapshot is the full room state at change sequence Seq.
type Snapshot struct {
	Seq      uint64
	Players  []PlayerState
	Messages []ChatEntry
}

// Events expands the snapshot into the equivalent unsequenced event list:
// one PlayerAdded per player in join order, then every message in log order.
func (s Snapshot) Events() []Event {
	out := make([]Event, 0, len(s.Players)+len(s.Messages))
	for _, p := range s.Players {
		out = append(out, PlayerAdded(p.SessionID, p.Position))
	}
	for _, m := range s.Messages {
		out = append(out, MessageAppended(m.Author, m.Text, m.Seq))
	}
	return out
}
