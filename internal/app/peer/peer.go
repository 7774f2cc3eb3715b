/*
Package peer is the client side of room synchronization.

A Peer dials a room server, performs the join handshake and then feeds every change
event it receives into a mirror.Mirror. Outbound updates are written by the caller's
goroutines; inbound frames are read on a dedicated goroutine so the mirror stays
current without the caller ever waiting on the network.
*/
package peer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"syncroom/internal/app/mirror"
	"syncroom/internal/app/protocol"
	"syncroom/internal/pkg/errs"
	"syncroom/internal/pkg/logx"
	"syncroom/internal/pkg/vec"
)

const (
	writeWait        = 10 * time.Second
	handshakeTimeout = 10 * time.Second
)

// Options tune Dial.
type Options struct {
	// Listeners are registered on the mirror before the snapshot is applied.
	Listeners []mirror.Listener

	// OnServerError is called for every error frame received after joining.
	OnServerError func(protocol.ErrorMessage)

	// Dialer overrides websocket.DefaultDialer.
	Dialer *websocket.Dialer

	Header http.Header
}

// Peer is one joined connection.
type Peer struct {
	conn       *websocket.Conn
	mirror     *mirror.Mirror
	room       string
	maxClients int

	onServerError func(protocol.ErrorMessage)

	writeMu sync.Mutex

	done    chan struct{}
	errOnce sync.Once
	err     error

	logger zerolog.Logger
}

// RoomURL builds the websocket URL of room on the server at base, which may use
// an http(s) or ws(s) scheme.
func RoomURL(base, room string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", base, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/ws/" + url.PathEscape(room)
	return u.String(), nil
}

// Dial connects to room and joins it. It returns once the initial snapshot has
// been applied to the mirror. A refused join returns the server's error, for
// example ErrRoomIsFull.
func Dial(ctx context.Context, serverURL, room string, opts Options) (*Peer, error) {
	target, err := RoomURL(serverURL, room)
	if err != nil {
		return nil, err
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, _, err := dialer.DialContext(ctx, target, opts.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}

	p := &Peer{
		conn:          conn,
		room:          room,
		onServerError: opts.OnServerError,
		done:          make(chan struct{}),
		logger:        logx.Component("Peer").With().Str("room", room).Logger(),
	}

	joined, err := p.handshake(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}

	p.maxClients = joined.MaxClients
	p.mirror = mirror.New(joined.SessionID, opts.Listeners...)
	p.mirror.Reset(joined.Snapshot)
	p.logger = p.logger.With().Str("session_id", joined.SessionID).Logger()

	p.logger.Info().
		Int("players", len(joined.Snapshot.Players)).
		Uint64("seq", joined.Snapshot.Seq).
		Msg("Joined room.")

	go p.readLoop()

	return p, nil
}

func (p *Peer) handshake(ctx context.Context) (protocol.Joined, error) {
	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := p.conn.SetReadDeadline(deadline); err != nil {
		return protocol.Joined{}, err
	}

	if err := p.write(protocol.Join{Room: p.room}); err != nil {
		return protocol.Joined{}, err
	}

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			return protocol.Joined{}, fmt.Errorf("join %s: %w", p.room, err)
		}

		msg, err := protocol.DecodeServer(data)
		if err != nil {
			return protocol.Joined{}, err
		}

		switch m := msg.(type) {
		case protocol.Joined:
			return m, p.conn.SetReadDeadline(time.Time{})
		case protocol.JoinRejected:
			return protocol.Joined{}, errs.NewError(m.Code)
		case protocol.ErrorMessage:
			return protocol.Joined{}, &errs.CustomError{Code: m.Code, Kind: errs.Kind(m.Kind), Message: m.Message}
		}
	}
}

func (p *Peer) readLoop() {
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			p.finish(err)
			return
		}

		msg, err := protocol.DecodeServer(data)
		if err != nil {
			p.logger.Warn().Err(err).Msg("Server sent invalid frame")
			continue
		}

		switch m := msg.(type) {
		case protocol.Event:
			if err := p.mirror.Apply(m); err != nil {
				p.logger.Error().Err(err).Msg("Mirror diverged from server, disconnecting.")
				p.closeWith(websocket.CloseProtocolError, errs.From(err).Message)
				p.finish(err)
				return
			}
		case protocol.ErrorMessage:
			p.logger.Warn().Int("code", m.Code).Str("kind", m.Kind).Msg(m.Message)
			if p.onServerError != nil {
				p.onServerError(m)
			}
		default:
			p.logger.Debug().Str("msg_type", string(msg.Type())).Msg("Ignoring unexpected frame")
		}
	}
}

func (p *Peer) finish(err error) {
	p.errOnce.Do(func() {
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
			err = nil
		}
		p.err = err
		close(p.done)
		p.conn.Close()
	})
}

func (p *Peer) write(m protocol.Message) error {
	select {
	case <-p.done:
		return errs.NewError(errs.ErrConnectionClosed)
	default:
	}

	frame, err := protocol.Encode(m)
	if err != nil {
		return err
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return p.conn.WriteMessage(websocket.TextMessage, frame)
}

func (p *Peer) closeWith(code int, reason string) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	_ = p.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
}

// UpdatePosition sends the local player's position.
func (p *Peer) UpdatePosition(pos vec.Vec3) error {
	if !pos.Finite() {
		return errs.NewError(errs.ErrInvalidCoordinate)
	}
	return p.write(protocol.UpdatePosition{Position: pos})
}

// SendMessage posts text to the room chat.
func (p *Peer) SendMessage(text string) error {
	return p.write(protocol.SendMessage{Text: text})
}

// Leave announces a voluntary departure. The server then closes the connection.
func (p *Peer) Leave() error {
	return p.write(protocol.Leave{})
}

// Close closes the connection without leaving first.
func (p *Peer) Close() error {
	p.closeWith(websocket.CloseNormalClosure, "")
	p.finish(nil)
	return nil
}

// Done is closed when the connection ends.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// Err returns why the connection ended. It is nil for a normal close.
func (p *Peer) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Mirror returns the room replica.
func (p *Peer) Mirror() *mirror.Mirror {
	return p.mirror
}

// SessionID returns the server-assigned session id.
func (p *Peer) SessionID() string {
	return p.mirror.SelfID()
}

// Room returns the joined room name.
func (p *Peer) Room() string {
	return p.room
}

// MaxClients returns the room capacity announced on join.
func (p *Peer) MaxClients() int {
	return p.maxClients
}
