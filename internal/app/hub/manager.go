/*
Package hub runs the server side of room synchronization over websockets.

This file defines the Manager, which creates, tracks, retrieves and cleans up all
active Room instances. Rooms are keyed by name; a room that has shut down is
replaced by a fresh instance the next time its name is joined.
*/
package hub

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"syncroom/internal/configs"
	"syncroom/internal/pkg/errs"
	"syncroom/internal/pkg/logx"
)

// Settings are the per-room runtime parameters.
type Settings struct {
	// MaxClients is the default player capacity.
	MaxClients int

	// SendQueueSize bounds each client's outbound mailbox.
	SendQueueSize int

	// SessionTimeout is how long a connection may stay silent before it is dropped.
	SessionTimeout time.Duration

	// IdleTimeout is how long a room with no connections lives on.
	IdleTimeout time.Duration

	InboundRate  rate.Limit
	InboundBurst int
}

// SettingsFromConfig derives room settings from the server configuration.
func SettingsFromConfig(cfg *configs.AppConfig) Settings {
	return Settings{
		MaxClients:     cfg.RoomMaxClients,
		SendQueueSize:  cfg.SendQueueSize,
		SessionTimeout: cfg.SessionTimeout,
		IdleTimeout:    cfg.RoomIdleTimeout,
		InboundRate:    rate.Limit(cfg.InboundRate),
		InboundBurst:   cfg.InboundBurst,
	}
}

// RoomCleanupMsg tells the Manager that a room's Run loop has exited.
type RoomCleanupMsg struct {
	Name       string
	InstanceID string
}

// Manager coordinates all active rooms.
type Manager struct {
	// rooms stores all Room instances, keyed by name.
	rooms map[string]*Room

	settings Settings
	recorder ChatRecorder

	// mu protects concurrent access to the rooms map.
	mu sync.RWMutex

	// the channel used by Rooms to notify the Manager to clean up and remove them.
	// It is never closed.
	cleanup chan RoomCleanupMsg

	// stopCleanup ends runCleanupLoop.
	stopCleanup chan struct{}

	// wg is used to wait for the runCleanupLoop goroutine to finish during shutdown.
	wg sync.WaitGroup

	logger zerolog.Logger
}

// NewManager constructs a Manager. recorder may be nil to disable the chat archive.
func NewManager(settings Settings, recorder ChatRecorder) *Manager {
	m := &Manager{
		rooms:       make(map[string]*Room),
		settings:    settings,
		recorder:    recorder,
		cleanup:     make(chan RoomCleanupMsg, 64),
		stopCleanup: make(chan struct{}),
		logger:      logx.Component("Manager"),
	}

	m.wg.Add(1)
	go m.runCleanupLoop()

	return m
}

// Settings returns the room settings used for new rooms.
func (m *Manager) Settings() Settings {
	return m.settings
}

func (m *Manager) runCleanupLoop() {
	defer m.wg.Done()

	m.logger.Debug().Msg("Cleanup loop started.")

	for {
		select {
		case msg := <-m.cleanup:
			m.deleteRoom(msg)
		case <-m.stopCleanup:
			m.logger.Debug().Msg("Cleanup loop stopped.")
			return
		}
	}
}

// deleteRoom removes the room only if the map still holds the instance that exited.
func (m *Manager) deleteRoom(msg RoomCleanupMsg) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room, ok := m.rooms[msg.Name]; ok && room.InstanceID == msg.InstanceID {
		delete(m.rooms, msg.Name)
		m.logger.Info().Str("room", msg.Name).Str("room_instance", msg.InstanceID).Msg("Room successfully removed.")
	}
}

// startRoom must be called with m.mu held.
func (m *Manager) startRoom(name string, maxClients int) *Room {
	room := NewRoom(name, maxClients, m.settings, m.recorder, m.cleanup)
	m.rooms[name] = room

	go room.Run()

	m.logger.Info().
		Str("room", name).
		Str("room_instance", room.InstanceID).
		Int("max_clients", maxClients).
		Msg("New Room created and started.")
	return room
}

// CreateRoom creates a room with an explicit capacity. It fails if a live room
// with the same name exists.
func (m *Manager) CreateRoom(name string, maxClients int) (*Room, error) {
	if maxClients < 1 || maxClients > configs.MaxRoomClients {
		return nil, errs.NewError(errs.ErrRoomCapacityInvalid, configs.MaxRoomClients)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rooms == nil {
		return nil, errs.NewError(errs.ErrRoomNotFound)
	}
	if room, ok := m.rooms[name]; ok && !room.Closed() {
		m.logger.Warn().Str("room", name).Msg("Attempted to create existing room.")
		return nil, errs.NewError(errs.ErrRoomExists)
	}

	return m.startRoom(name, maxClients), nil
}

// GetOrCreateRoom returns the live room called name, creating it with the
// default capacity if needed.
func (m *Manager) GetOrCreateRoom(name string) (*Room, error) {
	if room := m.GetRoom(name); room != nil {
		return room, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rooms == nil {
		return nil, errs.NewError(errs.ErrRoomNotFound)
	}
	if room, ok := m.rooms[name]; ok && !room.Closed() {
		return room, nil
	}

	return m.startRoom(name, m.settings.MaxClients), nil
}

// GetRoom retrieves a live room by name, or nil.
func (m *Manager) GetRoom(name string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[name]
	if !ok || room.Closed() {
		return nil
	}
	return room
}

// Rooms lists every live room ordered by name.
func (m *Manager) Rooms() []Info {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		if !room.Closed() {
			rooms = append(rooms, room)
		}
	}
	m.mu.RUnlock()

	out := make([]Info, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Shutdown stops every room, waits for their Run loops to exit and stops the cleanup loop.
func (m *Manager) Shutdown() {
	m.logger.Info().Msg("Shutting down Manager...")

	m.mu.Lock()
	rooms := m.rooms
	m.rooms = nil
	m.mu.Unlock()

	for _, room := range rooms {
		room.Stop()
	}
	for _, room := range rooms {
		<-room.Done()
	}

	close(m.stopCleanup)
	m.wg.Wait()

	m.logger.Info().Msg("Manager shutdown complete.")
}
