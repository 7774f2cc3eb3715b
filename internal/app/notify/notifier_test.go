package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncroom/internal/app/protocol"
	"syncroom/internal/app/state"
	"syncroom/internal/pkg/errs"
	"syncroom/internal/pkg/vec"
)

type recorder struct {
	events []protocol.Event
}

func (r *recorder) sink(ev protocol.Event) { r.events = append(r.events, ev) }

func TestNotifier_EmitsSequencedEvents(t *testing.T) {
	n := New(state.NewStore())
	rec := &recorder{}
	n.Subscribe(rec.sink)

	_, err := n.AddPlayer("s1")
	require.NoError(t, err)
	_, err = n.UpdatePlayerPosition("s1", 1, 0, 0)
	require.NoError(t, err)
	_, err = n.AppendMessage("s1", "hi")
	require.NoError(t, err)
	_, err = n.RemovePlayer("s1")
	require.NoError(t, err)

	require.Len(t, rec.events, 4)
	for i, ev := range rec.events {
		assert.Equal(t, uint64(i+1), ev.Seq)
	}
	assert.Equal(t, protocol.TypePlayerJoined, rec.events[0].Kind)
	assert.Equal(t, vec.New(1, 0, 0), rec.events[1].Position)
	assert.Equal(t, "hi", rec.events[2].Text)
	assert.Equal(t, uint64(1), rec.events[2].MessageSeq)
	assert.Equal(t, protocol.TypePlayerLeft, rec.events[3].Kind)
	assert.Equal(t, uint64(4), n.Seq())
}

func TestNotifier_FailedMutationEmitsNothing(t *testing.T) {
	n := New(state.NewStore())
	rec := &recorder{}
	n.Subscribe(rec.sink)

	_, err := n.RemovePlayer("ghost")
	assert.True(t, errs.IsCode(err, errs.ErrUnknownSession))
	_, err = n.AppendMessage("ghost", " ")
	assert.True(t, errs.IsCode(err, errs.ErrEmptyMessage))

	assert.Empty(t, rec.events)
	assert.Equal(t, uint64(0), n.Seq())
}

func TestNotifier_SnapshotMatchesSeq(t *testing.T) {
	n := New(state.NewStore())
	_, _ = n.AddPlayer("a")
	_, _ = n.AddPlayer("b")
	_, _ = n.UpdatePlayerPosition("b", 2, 2, 2)
	_, _ = n.AppendMessage("a", "first")

	snap := n.Snapshot()
	assert.Equal(t, uint64(4), snap.Seq)
	assert.Equal(t, []protocol.PlayerState{
		{SessionID: "a", Position: vec.Origin},
		{SessionID: "b", Position: vec.New(2, 2, 2)},
	}, snap.Players)
	assert.Equal(t, []protocol.ChatEntry{{Seq: 1, Author: "a", Text: "first"}}, snap.Messages)
}

func TestNotifier_SyncAttachesWithoutGap(t *testing.T) {
	n := New(state.NewStore())
	_, _ = n.AddPlayer("a")

	late := &recorder{}
	attached := false
	var snapSeq uint64
	n.Subscribe(func(ev protocol.Event) {
		if attached {
			late.sink(ev)
		}
	})

	n.Sync(func(snap protocol.Snapshot) {
		snapSeq = snap.Seq
		attached = true
	})

	_, _ = n.UpdatePlayerPosition("a", 1, 1, 1)

	require.Len(t, late.events, 1)
	assert.Equal(t, snapSeq+1, late.events[0].Seq)
}
