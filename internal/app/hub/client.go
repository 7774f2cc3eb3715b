/*
Package hub runs the server side of room synchronization over websockets.

This file defines the Client struct, one websocket connection bound to a session of
a room. The read pump decodes inbound frames and hands them to the room goroutine;
the write pump drains the bounded outbound mailbox and keeps the connection alive
with pings. A client that stops answering pings for the session timeout is dropped.
*/
package hub

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"syncroom/internal/app/protocol"
	"syncroom/internal/pkg/errs"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 32 << 10
)

// Client represents an active WebSocket connection and its session.
type Client struct {
	room      *Room
	conn      *websocket.Conn
	sessionID string

	// send is the outbound mailbox. It is closed exactly once, by Close.
	send chan []byte

	mu          sync.Mutex
	closed      bool
	closeCode   int
	closeReason string

	// inbound flood guard.
	limiter *rate.Limiter

	pongWait   time.Duration
	pingPeriod time.Duration

	logger zerolog.Logger
}

func newClient(room *Room, conn *websocket.Conn, sessionID string) *Client {
	s := room.settings
	return &Client{
		room:       room,
		conn:       conn,
		sessionID:  sessionID,
		send:       make(chan []byte, s.SendQueueSize),
		limiter:    rate.NewLimiter(s.InboundRate, s.InboundBurst),
		pongWait:   s.SessionTimeout,
		pingPeriod: (s.SessionTimeout * 9) / 10,
		logger: room.logger.With().
			Str("session_id", sessionID).
			Logger(),
	}
}

// SessionID implements broadcast.Subscriber.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Enqueue implements broadcast.Subscriber.
func (c *Client) Enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Drop implements broadcast.Subscriber.
func (c *Client) Drop(err error) {
	reason := "Connection dropped."
	if ce := errs.From(err); ce != nil {
		reason = ce.Message
	}

	c.logger.Warn().Err(err).Int("queue_len", len(c.send)).Msg("Dropping client.")
	c.Close(websocket.CloseTryAgainLater, reason)
}

// Close stops accepting frames. The write pump flushes what is already queued,
// sends a close frame with code and reason, and closes the connection.
func (c *Client) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	close(c.send)
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// sendMessage encodes m and queues it. A full mailbox drops the client.
func (c *Client) sendMessage(m protocol.Message) bool {
	frame, err := protocol.Encode(m)
	if err != nil {
		c.logger.Error().Err(err).Str("msg_type", string(m.Type())).Msg("Error marshaling message for client")
		return false
	}

	if !c.Enqueue(frame) {
		c.Drop(errs.NewError(errs.ErrSendQueueFull))
		return false
	}
	return true
}

// SendError queues an error frame describing err.
func (c *Client) SendError(err error) {
	c.sendMessage(protocol.ErrorFrame(err))
}

// violation reports a protocol violation to the client and disconnects it.
func (c *Client) violation(err error) {
	c.logger.Warn().Err(err).Msg("Protocol violation, closing connection.")
	c.SendError(err)
	c.Close(websocket.CloseProtocolError, errs.From(err).Message)
}

// ReadPump handles reading frames from the WebSocket connection until it fails,
// then unregisters the client from its room.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			var netErr net.Error
			switch {
			case errors.As(err, &netErr) && netErr.Timeout():
				c.logger.Info().Err(errs.NewError(errs.ErrSessionTimeout)).Msg("No pong within session timeout")
			case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure):
				c.logger.Info().Err(err).Msg("Connection lost")
			}
			break
		}

		c.processInboundFrame(data)
	}
}

// cleanupOnDisconnect hands the client back to the room, which removes its
// player exactly as a voluntary leave would.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Debug().Msg("Client connection cleanup starting.")

	c.room.unregisterClient(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

func (c *Client) processInboundFrame(data []byte) {
	if !c.limiter.Allow() {
		c.SendError(errs.NewError(errs.ErrRateLimitExceeded))
		return
	}

	msg, err := protocol.DecodeClient(data)
	if err != nil {
		c.logger.Debug().Err(err).Msg("Client sent invalid frame")
		c.SendError(err)
		return
	}

	c.room.submit(c, msg)
}

// WritePump handles writing frames from the mailbox to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeQueuedFrame returns true if the WritePump loop should continue.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		c.mu.Lock()
		code, reason := c.closeCode, c.closeReason
		c.mu.Unlock()

		if err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason)); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Info().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Info().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
