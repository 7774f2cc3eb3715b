package mirror

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"syncroom/internal/app/notify"
	"syncroom/internal/app/protocol"
	"syncroom/internal/app/state"
	"syncroom/internal/pkg/errs"
	"syncroom/internal/pkg/vec"
)

func seqd(seq uint64, ev protocol.Event) protocol.Event {
	ev.Seq = seq
	return ev
}

func TestMirror_AppliesInOrder(t *testing.T) {
	m := New("me")

	require.NoError(t, m.Apply(seqd(1, protocol.PlayerAdded("me", vec.Origin))))
	require.NoError(t, m.Apply(seqd(2, protocol.PlayerAdded("other", vec.Origin))))
	require.NoError(t, m.Apply(seqd(3, protocol.PlayerPositionChanged("other", vec.New(1, 0, 0)))))
	require.NoError(t, m.Apply(seqd(4, protocol.MessageAppended("other", "hi", 1))))

	p, ok := m.Player("other")
	require.True(t, ok)
	assert.Equal(t, vec.New(1, 0, 0), p.Position)
	assert.False(t, p.Self)

	self, ok := m.Player("me")
	require.True(t, ok)
	assert.True(t, self.Self)

	assert.Equal(t, []Message{{Seq: 1, Author: "other", Text: "hi"}}, m.Messages())
	assert.Equal(t, uint64(4), m.Seq())
	assert.Len(t, m.Others(), 1)
}

func TestMirror_GapIsProtocolViolation(t *testing.T) {
	m := New("me")
	require.NoError(t, m.Apply(seqd(1, protocol.PlayerAdded("a", vec.Origin))))

	err := m.Apply(seqd(3, protocol.PlayerRemoved("a")))
	assert.True(t, errs.IsCode(err, errs.ErrOutOfOrderEvent))
	assert.Equal(t, errs.KindProtocol, errs.KindOf(err))

	_, ok := m.Player("a")
	assert.True(t, ok)
	assert.Equal(t, uint64(1), m.Seq())
}

func TestMirror_ReplayedPlayerAddedIsIdempotent(t *testing.T) {
	once := New("me")
	twice := New("me")
	ev := seqd(1, protocol.PlayerAdded("a", vec.New(2, 3, 4)))

	require.NoError(t, once.Apply(ev))
	require.NoError(t, twice.Apply(ev))
	require.NoError(t, twice.Apply(ev))

	assert.Equal(t, once.Players(), twice.Players())
	assert.Equal(t, once.Seq(), twice.Seq())
}

func TestMirror_PlayerAddedOverwritesExisting(t *testing.T) {
	m := New("me")
	require.NoError(t, m.Apply(seqd(1, protocol.PlayerAdded("a", vec.New(1, 1, 1)))))
	require.NoError(t, m.Apply(seqd(2, protocol.PlayerAdded("a", vec.New(5, 5, 5)))))

	players := m.Players()
	require.Len(t, players, 1)
	assert.Equal(t, vec.New(5, 5, 5), players[0].Position)
}

func TestMirror_AbsentPlayerEventsAreNoOps(t *testing.T) {
	var removed, updated int
	m := New("me", Funcs{
		PlayerRemoved: func(Player) { removed++ },
		PlayerUpdated: func(Player) { updated++ },
	})

	require.NoError(t, m.Apply(seqd(1, protocol.PlayerPositionChanged("ghost", vec.New(1, 1, 1)))))
	require.NoError(t, m.Apply(seqd(2, protocol.PlayerRemoved("ghost"))))

	assert.Empty(t, m.Players())
	assert.Zero(t, removed)
	assert.Zero(t, updated)
	assert.Equal(t, uint64(2), m.Seq())
}

func TestMirror_ListenerNotifications(t *testing.T) {
	var log []string
	m := New("me", Funcs{
		PlayerAdded:   func(p Player) { log = append(log, fmt.Sprintf("add %s self=%v", p.SessionID, p.Self)) },
		PlayerUpdated: func(p Player) { log = append(log, "update "+p.SessionID) },
		PlayerRemoved: func(p Player) { log = append(log, "remove "+p.SessionID) },
		MessageAdded:  func(msg Message) { log = append(log, "message "+msg.Text) },
	})

	m.Reset(protocol.Snapshot{
		Seq:      10,
		Players:  []protocol.PlayerState{{SessionID: "me"}, {SessionID: "a"}},
		Messages: []protocol.ChatEntry{{Seq: 1, Author: "a", Text: "earlier"}},
	})
	require.NoError(t, m.Apply(seqd(11, protocol.PlayerPositionChanged("a", vec.New(1, 0, 0)))))
	require.NoError(t, m.Apply(seqd(12, protocol.PlayerRemoved("a"))))

	assert.Equal(t, []string{
		"add me self=true",
		"add a self=false",
		"message earlier",
		"update a",
		"remove a",
	}, log)
}

func TestMirror_ResetReplacesState(t *testing.T) {
	m := New("me")
	require.NoError(t, m.Apply(seqd(1, protocol.PlayerAdded("old", vec.Origin))))

	m.Reset(protocol.Snapshot{Seq: 40, Players: []protocol.PlayerState{{SessionID: "new"}}})

	_, ok := m.Player("old")
	assert.False(t, ok)
	assert.Equal(t, uint64(40), m.Seq())
	require.NoError(t, m.Apply(seqd(41, protocol.PlayerRemoved("new"))))
	assert.Empty(t, m.Players())
}

// Property: replaying the server's event stream into an empty mirror reproduces
// the server's state, and the chat order matches the server's append order.
func TestProperty_MirrorConvergesWithServer(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		store := state.NewStore()
		n := notify.New(store)

		var events []protocol.Event
		n.Subscribe(func(ev protocol.Event) { events = append(events, ev) })

		steps := rapid.IntRange(0, 150).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			id := fmt.Sprintf("s%d", rapid.IntRange(0, 5).Draw(t, "session"))
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				_, _ = n.AddPlayer(id)
			case 1:
				x := rapid.Float64Range(-100, 100).Draw(t, "x")
				z := rapid.Float64Range(-100, 100).Draw(t, "z")
				_, _ = n.UpdatePlayerPosition(id, x, 0, z)
			case 2:
				_, _ = n.RemovePlayer(id)
			case 3:
				_, _ = n.AppendMessage(id, rapid.StringMatching(`[a-z ]{0,8}`).Draw(t, "text"))
			}
		}

		m := New("s0")
		for _, ev := range events {
			if err := m.Apply(ev); err != nil {
				t.Fatalf("apply %d: %v", ev.Seq, err)
			}
		}

		serverPlayers := store.Players()
		mirrored := m.Players()
		if len(serverPlayers) != len(mirrored) {
			t.Fatalf("players: server %d mirror %d", len(serverPlayers), len(mirrored))
		}
		for i, p := range serverPlayers {
			if p.SessionID != mirrored[i].SessionID || p.Position != mirrored[i].Position {
				t.Fatalf("player %d: server %+v mirror %+v", i, p, mirrored[i])
			}
		}

		serverMessages := store.Messages()
		mirroredMessages := m.Messages()
		if len(serverMessages) != len(mirroredMessages) {
			t.Fatalf("messages: server %d mirror %d", len(serverMessages), len(mirroredMessages))
		}
		for i, msg := range serverMessages {
			if msg.Seq != mirroredMessages[i].Seq || msg.Text != mirroredMessages[i].Text || msg.Author != mirroredMessages[i].Author {
				t.Fatalf("message %d differs", i)
			}
		}
		if m.Seq() != n.Seq() {
			t.Fatalf("seq: server %d mirror %d", n.Seq(), m.Seq())
		}
	})
}

// Property: a late joiner that starts from a snapshot and applies the remaining
// events ends in the same state as a mirror that saw everything.
func TestProperty_SnapshotThenIncrementalConverges(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		store := state.NewStore()
		n := notify.New(store)

		full := New("x")
		var late *Mirror
		n.Subscribe(func(ev protocol.Event) {
			_ = full.Apply(ev)
			if late != nil {
				if err := late.Apply(ev); err != nil {
					t.Fatalf("late apply: %v", err)
				}
			}
		})

		steps := rapid.IntRange(1, 80).Draw(t, "steps")
		joinAt := rapid.IntRange(0, steps-1).Draw(t, "join_at")
		for i := 0; i < steps; i++ {
			if i == joinAt {
				n.Sync(func(snap protocol.Snapshot) {
					late = New("x")
					late.Reset(snap)
				})
			}
			id := fmt.Sprintf("s%d", rapid.IntRange(0, 3).Draw(t, "session"))
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				_, _ = n.AddPlayer(id)
			case 1:
				_, _ = n.UpdatePlayerPosition(id, float64(i), 1, 2)
			case 2:
				_, _ = n.RemovePlayer(id)
			case 3:
				_, _ = n.AppendMessage(id, fmt.Sprintf("m%d", i))
			}
		}

		assert.Equal(t, full.Players(), late.Players())
		assert.Equal(t, full.Messages(), late.Messages())
		assert.Equal(t, full.Seq(), late.Seq())
	})
}
