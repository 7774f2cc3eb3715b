package peer

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncroom/internal/app/hub"
	"syncroom/internal/app/interp"
	"syncroom/internal/app/mirror"
	"syncroom/internal/configs"
	"syncroom/internal/handler"
	"syncroom/internal/pkg/vec"
)

func TestRoomURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080":     "ws://localhost:8080/ws/lobby",
		"https://example.com/":      "wss://example.com/ws/lobby",
		"ws://10.0.0.1:9000/game":   "ws://10.0.0.1:9000/game/ws/lobby",
		"wss://example.com/prefix/": "wss://example.com/prefix/ws/lobby",
	}
	for base, want := range cases {
		got, err := RoomURL(base, "lobby")
		require.NoError(t, err, base)
		assert.Equal(t, want, got)
	}

	_, err := RoomURL("ftp://example.com", "lobby")
	assert.Error(t, err)
}

func startServer(t *testing.T) (*httptest.Server, *hub.Manager) {
	t.Helper()

	cfg := &configs.AppConfig{
		Environment:     "development",
		RoomMaxClients:  4,
		SendQueueSize:   256,
		SessionTimeout:  5 * time.Second,
		RoomIdleTimeout: time.Minute,
		InboundRate:     1000,
		InboundBurst:    1000,
	}
	ctx, cancel := context.WithCancel(context.Background())
	manager := hub.NewManager(hub.SettingsFromConfig(cfg), nil)
	srv := httptest.NewServer(handler.Router(ctx, &handler.AppDeps{Manager: manager, Config: cfg}))

	t.Cleanup(func() {
		manager.Shutdown()
		srv.Close()
		cancel()
	})
	return srv, manager
}

func join(t *testing.T, url, room string, opts Options) *Peer {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	p, err := Dial(ctx, url, room, opts)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestPositionFeedSendOnChange(t *testing.T) {
	srv, manager := startServer(t)
	p := join(t, srv.URL, "feed", Options{})
	room := manager.GetRoom("feed")
	require.NotNil(t, room)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	still := func() vec.Vec3 { return vec.New(2, 0, 2) }
	err := p.RunPositionFeed(ctx, still, 5*time.Millisecond, true)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.Eventually(t, func() bool {
		pos, ok := p.Mirror().Player(p.SessionID())
		return ok && pos.Position == vec.New(2, 0, 2)
	}, time.Second, 5*time.Millisecond)

	// One join and exactly one move.
	assert.Equal(t, uint64(2), room.Info().Seq)
}

func TestPositionFeedPeriodic(t *testing.T) {
	srv, manager := startServer(t)
	p := join(t, srv.URL, "feed", Options{})
	room := manager.GetRoom("feed")
	require.NotNil(t, room)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	still := func() vec.Vec3 { return vec.New(2, 0, 2) }
	_ = p.RunPositionFeed(ctx, still, 5*time.Millisecond, false)

	require.Eventually(t, func() bool { return room.Info().Seq > 3 }, time.Second, 5*time.Millisecond)
}

func TestRemotePlayersAreInterpolated(t *testing.T) {
	srv, _ := startServer(t)

	in, err := interp.New(0.5)
	require.NoError(t, err)

	moved := make(chan struct{}, 1)
	signal := mirror.Funcs{PlayerUpdated: func(p mirror.Player) {
		if p.Position.X == 8 {
			moved <- struct{}{}
		}
	}}

	watcher := join(t, srv.URL, "lobby", Options{Listeners: []mirror.Listener{in, signal}})
	mover := join(t, srv.URL, "lobby", Options{})

	require.Eventually(t, func() bool {
		_, ok := in.Position(mover.SessionID())
		return ok
	}, time.Second, 5*time.Millisecond)

	_, tracked := in.Position(watcher.SessionID())
	assert.False(t, tracked, "own player must not be interpolated")

	require.NoError(t, mover.UpdatePosition(vec.New(8, 0, 0)))
	select {
	case <-moved:
	case <-time.After(time.Second):
		t.Fatal("watcher never saw the move")
	}

	first := in.Tick()
	require.Len(t, first, 1)
	assert.InDelta(t, 4, first[0].Position.X, 1e-9)

	second := in.Tick()
	assert.InDelta(t, 6, second[0].Position.X, 1e-9)
}

func TestCloseEndsConnection(t *testing.T) {
	srv, manager := startServer(t)
	p := join(t, srv.URL, "lobby", Options{})

	require.NoError(t, p.Close())
	<-p.Done()
	assert.NoError(t, p.Err())

	require.Eventually(t, func() bool { return manager.GetRoom("lobby").Info().Players == 0 }, time.Second, 5*time.Millisecond)
}
