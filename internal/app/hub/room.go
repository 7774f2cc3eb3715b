/*
Package hub runs the server side of room synchronization over websockets.

This file defines the Room, the single goroutine that owns a room's state. Every
join, move, chat message, leave and disconnect is applied by Room.Run in arrival
order, and the resulting change events are fanned out to the joined clients.
*/
package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"syncroom/internal/app/archive"
	"syncroom/internal/app/broadcast"
	"syncroom/internal/app/notify"
	"syncroom/internal/app/protocol"
	"syncroom/internal/app/session"
	"syncroom/internal/app/state"
	"syncroom/internal/pkg/errs"
	"syncroom/internal/pkg/logx"
	"syncroom/internal/pkg/randx"
)

const inboundChannelBuffer = 1024

// ChatRecorder receives every chat message posted in a room.
type ChatRecorder interface {
	Submit(rec archive.Record) bool
}

type inboundFrame struct {
	client *Client
	msg    protocol.Message
}

// Info summarizes a room for listings.
type Info struct {
	Name       string    `json:"name"`
	InstanceID string    `json:"instanceId"`
	MaxClients int       `json:"maxClients"`
	Players    int       `json:"players"`
	Connected  int       `json:"connected"`
	Messages   int       `json:"messages"`
	Seq        uint64    `json:"seq"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Room owns one room's state and is the only goroutine that mutates it.
type Room struct {
	// Name is the room name clients join by.
	Name string

	// InstanceID distinguishes this room from earlier rooms with the same name.
	InstanceID string

	// MaxClients is the number of players the room admits.
	MaxClients int

	CreatedAt time.Time

	settings Settings

	notifier    *notify.Notifier
	registry    *session.Registry
	broadcaster *broadcast.Broadcaster

	// clients holds every connected client, joined or not. Owned by Run.
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundFrame

	// cleanupChan notifies the Manager that Run has exited.
	cleanupChan chan<- RoomCleanupMsg

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	shutdownTimer *time.Timer

	logger zerolog.Logger
}

// NewRoom creates a room. Call Run to start it.
func NewRoom(name string, maxClients int, settings Settings, recorder ChatRecorder, cleanupChan chan<- RoomCleanupMsg) *Room {
	instanceID := randx.InstanceID()
	roomLogger := logx.Logger().With().
		Str("room", name).
		Str("room_instance", instanceID).
		Logger()

	notifier := notify.New(state.NewStore())

	r := &Room{
		Name:          name,
		InstanceID:    instanceID,
		MaxClients:    maxClients,
		CreatedAt:     time.Now(),
		settings:      settings,
		notifier:      notifier,
		registry:      session.NewRegistry(notifier, roomLogger.With().Str("component", "SessionRegistry").Logger()),
		broadcaster:   broadcast.New(maxClients, roomLogger.With().Str("component", "Broadcaster").Logger()),
		clients:       make(map[string]*Client),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		inbound:       make(chan inboundFrame, inboundChannelBuffer),
		cleanupChan:   cleanupChan,
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
		shutdownTimer: time.NewTimer(settings.IdleTimeout),
		logger:        roomLogger,
	}

	notifier.Subscribe(r.broadcaster.Publish)
	if recorder != nil {
		notifier.Subscribe(r.archiveSink(recorder))
	}

	return r
}

func (r *Room) archiveSink(recorder ChatRecorder) notify.Sink {
	return func(ev protocol.Event) {
		if ev.Kind != protocol.TypeMessagePosted {
			return
		}
		recorder.Submit(archive.Record{
			Room:         r.Name,
			RoomInstance: r.InstanceID,
			Seq:          ev.MessageSeq,
			Author:       ev.Author,
			Text:         ev.Text,
			PostedAt:     time.Now().UTC(),
		})
	}
}

// Connect allocates a session for conn and registers its client with the room.
// The caller runs the returned client's pumps.
func (r *Room) Connect(conn *websocket.Conn) (*Client, error) {
	sessionID := r.registry.OnConnect()
	client := newClient(r, conn, sessionID)

	select {
	case r.register <- client:
		return client, nil
	case <-r.done:
		r.registry.OnDisconnect(sessionID)
		return nil, errs.NewError(errs.ErrRoomNotFound)
	}
}

func (r *Room) submit(c *Client, msg protocol.Message) {
	select {
	case r.inbound <- inboundFrame{client: c, msg: msg}:
	case <-r.done:
	}
}

func (r *Room) unregisterClient(c *Client) {
	select {
	case r.unregister <- c:
	case <-r.done:
	}
}

// Stop sends a signal to immediately terminate the Room's Run loop.
func (r *Room) Stop() {
	r.stopOnce.Do(func() {
		r.logger.Info().Msg("Received stop signal. Stopping room immediately.")
		close(r.stopChan)
	})
}

// Done is closed once the Run loop has exited.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// Closed reports whether the Run loop has exited.
func (r *Room) Closed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Run starts the main event loop for the Room.
func (r *Room) Run() {
	defer r.finish()

	for {
		select {
		case client := <-r.register:
			r.handleRegister(client)

		case client := <-r.unregister:
			r.handleUnregister(client)

		case in := <-r.inbound:
			r.handleInbound(in.client, in.msg)

		case <-r.shutdownTimer.C:
			if len(r.clients) > 0 {
				continue
			}
			r.logger.Info().Msgf("Room inactivity timeout (%s) reached. Shutting down Room.Run() loop.", r.settings.IdleTimeout)
			return

		case <-r.stopChan:
			r.logger.Info().Msg("Room forced stop initiated.")
			for _, client := range r.clients {
				client.Close(websocket.CloseGoingAway, "Room closed.")
			}
			return
		}
	}
}

func (r *Room) finish() {
	r.shutdownTimer.Stop()

	select {
	case r.cleanupChan <- RoomCleanupMsg{Name: r.Name, InstanceID: r.InstanceID}:
		r.logger.Debug().Msg("Sent cleanup notification to Manager.")
	default:
		r.logger.Warn().Msg("Manager cleanup channel full. Skipping cleanup notification.")
	}

	close(r.done)
}

func (r *Room) stopIdleTimer() {
	if r.shutdownTimer.Stop() {
		return
	}
	select {
	case <-r.shutdownTimer.C:
	default:
	}
}

func (r *Room) handleRegister(client *Client) {
	r.stopIdleTimer()
	r.clients[client.sessionID] = client

	r.logger.Debug().
		Str("session_id", client.sessionID).
		Int("connected", len(r.clients)).
		Msg("Client connected to room.")
}

func (r *Room) handleUnregister(client *Client) {
	if current, ok := r.clients[client.sessionID]; !ok || current != client {
		return
	}
	delete(r.clients, client.sessionID)

	r.broadcaster.Detach(client.sessionID)
	r.registry.OnDisconnect(client.sessionID)
	client.Close(websocket.CloseNormalClosure, "")

	r.logger.Info().
		Str("session_id", client.sessionID).
		Int("connected", len(r.clients)).
		Msg("Client left room.")

	if len(r.clients) == 0 {
		r.stopIdleTimer()
		r.shutdownTimer.Reset(r.settings.IdleTimeout)
	}
}

func (r *Room) handleInbound(client *Client, msg protocol.Message) {
	if _, ok := r.clients[client.sessionID]; !ok || client.isClosed() {
		return
	}

	switch m := msg.(type) {
	case protocol.Join:
		r.handleJoin(client, m)

	case protocol.UpdatePosition:
		if !r.registry.HasPlayer(client.sessionID) {
			client.violation(errs.NewError(errs.ErrNotJoined))
			return
		}
		p := m.Position
		if _, err := r.notifier.UpdatePlayerPosition(client.sessionID, p.X, p.Y, p.Z); err != nil {
			client.SendError(err)
		}

	case protocol.SendMessage:
		if !r.registry.HasPlayer(client.sessionID) {
			client.violation(errs.NewError(errs.ErrNotJoined))
			return
		}
		if _, err := r.notifier.AppendMessage(client.sessionID, m.Text); err != nil {
			client.SendError(err)
		}

	case protocol.Leave:
		r.handleLeave(client)

	default:
		client.SendError(errs.NewError(errs.ErrUnsupportedMessageType, string(msg.Type())))
	}
}

func (r *Room) handleJoin(client *Client, m protocol.Join) {
	if m.Room != "" && m.Room != r.Name {
		client.violation(errs.NewError(errs.ErrRoomMismatch, r.Name))
		return
	}
	if r.registry.HasPlayer(client.sessionID) {
		client.violation(errs.NewError(errs.ErrDuplicateSession, client.sessionID))
		return
	}
	if r.registry.Joined() >= r.MaxClients {
		r.logger.Warn().
			Int("max_clients", r.MaxClients).
			Str("session_id", client.sessionID).
			Msg("Room is full. Join rejected.")

		full := errs.NewError(errs.ErrRoomIsFull)
		client.sendMessage(protocol.JoinRejected{Reason: full.Message, Code: full.Code})
		client.Close(websocket.CloseTryAgainLater, full.Message)
		return
	}

	if _, err := r.registry.OnJoin(client.sessionID); err != nil {
		if errs.KindOf(err) == errs.KindProtocol {
			client.violation(err)
			return
		}
		client.SendError(err)
		return
	}

	// The snapshot and the subscription are taken at the same point in the event
	// sequence, so the client sees every later event exactly once.
	r.notifier.Sync(func(snap protocol.Snapshot) {
		if !client.sendMessage(protocol.Joined{
			SessionID:  client.sessionID,
			Room:       r.Name,
			MaxClients: r.MaxClients,
			Snapshot:   snap,
		}) {
			return
		}
		if err := r.broadcaster.Attach(client); err != nil {
			r.logger.Error().Err(err).Str("session_id", client.sessionID).Msg("Failed to attach joined client.")
			client.Drop(err)
		}
	})
}

func (r *Room) handleLeave(client *Client) {
	r.broadcaster.Detach(client.sessionID)
	r.registry.OnDisconnect(client.sessionID)
	delete(r.clients, client.sessionID)
	client.Close(websocket.CloseNormalClosure, "Left room.")

	if len(r.clients) == 0 {
		r.stopIdleTimer()
		r.shutdownTimer.Reset(r.settings.IdleTimeout)
	}
}

// Snapshot returns the current room state.
func (r *Room) Snapshot() protocol.Snapshot {
	return r.notifier.Snapshot()
}

// Info summarizes the room.
func (r *Room) Info() Info {
	store := r.notifier.Store()
	return Info{
		Name:       r.Name,
		InstanceID: r.InstanceID,
		MaxClients: r.MaxClients,
		Players:    store.PlayerCount(),
		Connected:  r.registry.Connected(),
		Messages:   store.MessageCount(),
		Seq:        r.notifier.Seq(),
		CreatedAt:  r.CreatedAt,
	}
}

// IsFull reports whether every player slot is taken.
func (r *Room) IsFull() bool {
	return r.registry.Joined() >= r.MaxClients
}
