package protocol

import (
	"encoding/json"
	"fmt"

	"syncroom/internal/pkg/errs"
	"syncroom/internal/pkg/randx"
	"syncroom/internal/pkg/vec"
)

// coords uses pointers so that a missing component is distinguishable from zero.
type coords struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

func coordsOf(v vec.Vec3) coords {
	x, y, z := v.X, v.Y, v.Z
	return coords{X: &x, Y: &y, Z: &z}
}

func (c coords) vec() (vec.Vec3, error) {
	if c.X == nil || c.Y == nil || c.Z == nil {
		return vec.Vec3{}, errs.NewError(errs.ErrMalformedPayload, "position requires x, y and z")
	}
	v := vec.New(*c.X, *c.Y, *c.Z)
	if !v.Finite() {
		return vec.Vec3{}, errs.NewError(errs.ErrInvalidCoordinate)
	}
	return v, nil
}

type joinPayload struct {
	Room string `json:"room"`
}

type sendMessagePayload struct {
	Text *string `json:"text"`
}

type playerPayload struct {
	SessionID string  `json:"sessionId"`
	Position  *coords `json:"position,omitempty"`
}

type playerMovedPayload struct {
	SessionID string   `json:"sessionId"`
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	Z         *float64 `json:"z"`
}

type playerLeftPayload struct {
	SessionID string `json:"sessionId"`
}

type messagePostedPayload struct {
	Author string `json:"author"`
	Text   string `json:"text"`
	Index  uint64 `json:"index"`
}

type joinedPayload struct {
	SessionID  string                 `json:"sessionId"`
	Room       string                 `json:"room"`
	MaxClients int                    `json:"maxClients"`
	Players    []playerPayload        `json:"players"`
	Messages   []messagePostedPayload `json:"messages"`
}

type joinRejectedPayload struct {
	Reason string `json:"reason"`
	Code   int    `json:"code"`
}

type errorPayload struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Encode marshals any frame variant into its JSON envelope.
func Encode(m Message) ([]byte, error) {
	var (
		seq     uint64
		payload any
	)

	switch msg := m.(type) {
	case Join:
		payload = joinPayload{Room: msg.Room}
	case UpdatePosition:
		payload = coordsOf(msg.Position)
	case SendMessage:
		text := msg.Text
		payload = sendMessagePayload{Text: &text}
	case Leave:
	case Event:
		seq = msg.Seq
		p, err := eventPayload(msg)
		if err != nil {
			return nil, err
		}
		payload = p
	case Joined:
		seq = msg.Snapshot.Seq
		payload = joinedPayloadOf(msg)
	case JoinRejected:
		payload = joinRejectedPayload{Reason: msg.Reason, Code: msg.Code}
	case ErrorMessage:
		payload = errorPayload{Code: msg.Code, Kind: msg.Kind, Message: msg.Message}
	default:
		return nil, fmt.Errorf("protocol: cannot encode %T", m)
	}

	env := Envelope{Type: m.Type(), Seq: seq}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("protocol: marshal %s payload: %w", m.Type(), err)
		}
		env.Payload = raw
	}

	return json.Marshal(env)
}

// ErrorFrame builds the error frame reported to a session for err.
func ErrorFrame(err error) ErrorMessage {
	customErr := errs.From(err)
	return ErrorMessage{Code: customErr.Code, Kind: string(customErr.Kind), Message: customErr.Message}
}

func eventPayload(e Event) (any, error) {
	switch e.Kind {
	case TypePlayerJoined:
		pos := coordsOf(e.Position)
		return playerPayload{SessionID: e.SessionID, Position: &pos}, nil
	case TypePlayerMoved:
		c := coordsOf(e.Position)
		return playerMovedPayload{SessionID: e.SessionID, X: c.X, Y: c.Y, Z: c.Z}, nil
	case TypePlayerLeft:
		return playerLeftPayload{SessionID: e.SessionID}, nil
	case TypeMessagePosted:
		return messagePostedPayload{Author: e.Author, Text: e.Text, Index: e.MessageSeq}, nil
	}
	return nil, fmt.Errorf("protocol: %q is not an event type", e.Kind)
}

func joinedPayloadOf(j Joined) joinedPayload {
	out := joinedPayload{
		SessionID:  j.SessionID,
		Room:       j.Room,
		MaxClients: j.MaxClients,
		Players:    make([]playerPayload, 0, len(j.Snapshot.Players)),
		Messages:   make([]messagePostedPayload, 0, len(j.Snapshot.Messages)),
	}
	for _, p := range j.Snapshot.Players {
		pos := coordsOf(p.Position)
		out.Players = append(out.Players, playerPayload{SessionID: p.SessionID, Position: &pos})
	}
	for _, m := range j.Snapshot.Messages {
		out.Messages = append(out.Messages, messagePostedPayload{Author: m.Author, Text: m.Text, Index: m.Seq})
	}
	return out
}

func decodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, errs.NewError(errs.ErrMalformedPayload, "invalid JSON frame")
	}
	if env.Type == "" {
		return Envelope{}, errs.NewError(errs.ErrMalformedPayload, "missing type")
	}
	return env, nil
}

func decodePayload(env Envelope, dst any) error {
	if len(env.Payload) == 0 {
		return errs.NewError(errs.ErrMalformedPayload, fmt.Sprintf("%s requires a payload", env.Type))
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return errs.NewError(errs.ErrMalformedPayload, fmt.Sprintf("invalid %s payload", env.Type))
	}
	return nil
}

// DecodeClient parses a client → server frame.
func DecodeClient(data []byte) (Message, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case TypeJoin:
		var p joinPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		if !randx.IsValidRoomName(p.Room) {
			return nil, errs.NewError(errs.ErrRoomNameInvalid)
		}
		return Join{Room: p.Room}, nil

	case TypeUpdatePosition:
		var c coords
		if err := decodePayload(env, &c); err != nil {
			return nil, err
		}
		pos, err := c.vec()
		if err != nil {
			return nil, err
		}
		return UpdatePosition{Position: pos}, nil

	case TypeSendMessage:
		var p sendMessagePayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		if p.Text == nil {
			return nil, errs.NewError(errs.ErrMalformedPayload, "sendMessage requires text")
		}
		return SendMessage{Text: *p.Text}, nil

	case TypeLeave:
		return Leave{}, nil
	}

	return nil, errs.NewError(errs.ErrUnsupportedMessageType, string(env.Type))
}

// DecodeServer parses a server → client frame.
func DecodeServer(data []byte) (Message, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case TypeJoined:
		var p joinedPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return joinedFromPayload(env.Seq, p)

	case TypePlayerJoined:
		var p playerPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		st, err := playerStateOf(p)
		if err != nil {
			return nil, err
		}
		ev := PlayerAdded(st.SessionID, st.Position)
		ev.Seq = env.Seq
		return ev, nil

	case TypePlayerMoved:
		var p playerMovedPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		if p.SessionID == "" {
			return nil, errs.NewError(errs.ErrMalformedPayload, "missing sessionId")
		}
		pos, err := coords{X: p.X, Y: p.Y, Z: p.Z}.vec()
		if err != nil {
			return nil, err
		}
		ev := PlayerPositionChanged(p.SessionID, pos)
		ev.Seq = env.Seq
		return ev, nil

	case TypePlayerLeft:
		var p playerLeftPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		if p.SessionID == "" {
			return nil, errs.NewError(errs.ErrMalformedPayload, "missing sessionId")
		}
		ev := PlayerRemoved(p.SessionID)
		ev.Seq = env.Seq
		return ev, nil

	case TypeMessagePosted:
		var p messagePostedPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		if p.Author == "" {
			return nil, errs.NewError(errs.ErrMalformedPayload, "missing author")
		}
		ev := MessageAppended(p.Author, p.Text, p.Index)
		ev.Seq = env.Seq
		return ev, nil

	case TypeJoinRejected:
		var p joinRejectedPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return JoinRejected{Reason: p.Reason, Code: p.Code}, nil

	case TypeError:
		var p errorPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return ErrorMessage{Code: p.Code, Kind: p.Kind, Message: p.Message}, nil
	}

	return nil, errs.NewError(errs.ErrUnsupportedMessageType, string(env.Type))
}

func playerStateOf(p playerPayload) (PlayerState, error) {
	if p.SessionID == "" {
		return PlayerState{}, errs.NewError(errs.ErrMalformedPayload, "missing sessionId")
	}
	if p.Position == nil {
		return PlayerState{}, errs.NewError(errs.ErrMalformedPayload, "missing position")
	}
	pos, err := p.Position.vec()
	if err != nil {
		return PlayerState{}, err
	}
	return PlayerState{SessionID: p.SessionID, Position: pos}, nil
}

func joinedFromPayload(seq uint64, p joinedPayload) (Joined, error) {
	if p.SessionID == "" {
		return Joined{}, errs.NewError(errs.ErrMalformedPayload, "missing sessionId")
	}

	snap := Snapshot{
		Seq:      seq,
		Players:  make([]PlayerState, 0, len(p.Players)),
		Messages: make([]ChatEntry, 0, len(p.Messages)),
	}
	for _, pp := range p.Players {
		st, err := playerStateOf(pp)
		if err != nil {
			return Joined{}, err
		}
		snap.Players = append(snap.Players, st)
	}
	for _, m := range p.Messages {
		snap.Messages = append(snap.Messages, ChatEntry{Seq: m.Index, Author: m.Author, Text: m.Text})
	}

	return Joined{SessionID: p.SessionID, Room: p.Room, MaxClients: p.MaxClients, Snapshot: snap}, nil
}
