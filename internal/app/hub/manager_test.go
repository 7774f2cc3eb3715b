package hub

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncroom/internal/app/archive"
	"syncroom/internal/pkg/errs"
)

func testSettings() Settings {
	return Settings{
		MaxClients:     4,
		SendQueueSize:  16,
		SessionTimeout: time.Second,
		IdleTimeout:    time.Minute,
		InboundRate:    1000,
		InboundBurst:   100,
	}
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []archive.Record
}

func (f *fakeRecorder) Submit(rec archive.Record) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.records = append(f.records, rec)
	return true
}

func (f *fakeRecorder) all() []archive.Record {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]archive.Record(nil), f.records...)
}

func TestCreateRoom(t *testing.T) {
	m := NewManager(testSettings(), nil)
	defer m.Shutdown()

	room, err := m.CreateRoom("lobby", 2)
	require.NoError(t, err)
	assert.Equal(t, "lobby", room.Name)
	assert.Equal(t, 2, room.MaxClients)
	assert.NotEmpty(t, room.InstanceID)
	assert.Same(t, room, m.GetRoom("lobby"))

	_, err = m.CreateRoom("lobby", 2)
	assert.True(t, errs.IsCode(err, errs.ErrRoomExists))

	_, err = m.CreateRoom("big", 17)
	assert.True(t, errs.IsCode(err, errs.ErrRoomCapacityInvalid))
	_, err = m.CreateRoom("small", 0)
	assert.True(t, errs.IsCode(err, errs.ErrRoomCapacityInvalid))
}

func TestGetOrCreateRoomUsesDefaultCapacity(t *testing.T) {
	m := NewManager(testSettings(), nil)
	defer m.Shutdown()

	first, err := m.GetOrCreateRoom("UNTITLED_GAME")
	require.NoError(t, err)
	assert.Equal(t, 4, first.MaxClients)

	again, err := m.GetOrCreateRoom("UNTITLED_GAME")
	require.NoError(t, err)
	assert.Same(t, first, again)
}

func TestRoomsAreListedByName(t *testing.T) {
	m := NewManager(testSettings(), nil)
	defer m.Shutdown()

	for _, name := range []string{"b", "c", "a"} {
		_, err := m.GetOrCreateRoom(name)
		require.NoError(t, err)
	}

	infos := m.Rooms()
	require.Len(t, infos, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{infos[0].Name, infos[1].Name, infos[2].Name})
	assert.Zero(t, infos[0].Players)
	assert.Equal(t, 4, infos[0].MaxClients)
}

func TestIdleRoomIsDisposedAndReplaced(t *testing.T) {
	s := testSettings()
	s.IdleTimeout = 20 * time.Millisecond
	m := NewManager(s, nil)
	defer m.Shutdown()

	room, err := m.GetOrCreateRoom("lobby")
	require.NoError(t, err)

	select {
	case <-room.Done():
	case <-time.After(time.Second):
		t.Fatal("idle room did not shut down")
	}
	require.Eventually(t, func() bool { return len(m.Rooms()) == 0 }, time.Second, 5*time.Millisecond)
	assert.Nil(t, m.GetRoom("lobby"))

	fresh, err := m.GetOrCreateRoom("lobby")
	require.NoError(t, err)
	assert.NotEqual(t, room.InstanceID, fresh.InstanceID)
}

func TestStaleCleanupKeepsReplacement(t *testing.T) {
	m := NewManager(testSettings(), nil)
	defer m.Shutdown()

	room, err := m.GetOrCreateRoom("lobby")
	require.NoError(t, err)

	m.deleteRoom(RoomCleanupMsg{Name: "lobby", InstanceID: "some-older-instance"})
	assert.Same(t, room, m.GetRoom("lobby"))
}

func TestShutdownStopsRooms(t *testing.T) {
	m := NewManager(testSettings(), nil)

	room, err := m.GetOrCreateRoom("lobby")
	require.NoError(t, err)

	m.Shutdown()
	assert.True(t, room.Closed())

	_, err = m.GetOrCreateRoom("lobby")
	assert.Error(t, err)
}

func TestRoomExitingAfterShutdownDoesNotPanic(t *testing.T) {
	m := NewManager(testSettings(), nil)
	m.Shutdown()

	s := testSettings()
	s.IdleTimeout = 10 * time.Millisecond
	stale := NewRoom("lobby", 1, s, nil, m.cleanup)

	assert.NotPanics(t, stale.Run)
	assert.True(t, stale.Closed())
}

func TestChatIsArchived(t *testing.T) {
	rec := &fakeRecorder{}
	m := NewManager(testSettings(), rec)
	defer m.Shutdown()

	room, err := m.GetOrCreateRoom("lobby")
	require.NoError(t, err)

	_, err = room.notifier.AddPlayer("s1")
	require.NoError(t, err)
	_, err = room.notifier.AppendMessage("s1", "hello")
	require.NoError(t, err)
	_, err = room.notifier.AppendMessage("s1", "   ")
	require.Error(t, err)

	records := rec.all()
	require.Len(t, records, 1)
	assert.Equal(t, "lobby", records[0].Room)
	assert.Equal(t, room.InstanceID, records[0].RoomInstance)
	assert.Equal(t, uint64(1), records[0].Seq)
	assert.Equal(t, "s1", records[0].Author)
	assert.Equal(t, "hello", records[0].Text)

	info := room.Info()
	assert.Equal(t, 1, info.Players)
	assert.Equal(t, 1, info.Messages)
	assert.Equal(t, uint64(2), info.Seq)
}

func TestClientTimingFollowsSettings(t *testing.T) {
	s := testSettings()
	room := NewRoom("x", 1, s, nil, make(chan RoomCleanupMsg, 1))
	c := newClient(room, nil, "s1")

	assert.Equal(t, s.SessionTimeout, c.pongWait)
	assert.Less(t, c.pingPeriod, c.pongWait)
	assert.Equal(t, s.SendQueueSize, cap(c.send))
}
