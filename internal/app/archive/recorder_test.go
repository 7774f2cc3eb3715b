package archive

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	records []Record
	fail    bool
	block   chan struct{}
}

func (s *memoryStore) Save(_ context.Context, rec Record) error {
	if s.block != nil {
		<-s.block
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail {
		return errors.New("disk on fire")
	}
	for _, existing := range s.records {
		if existing.RoomInstance == rec.RoomInstance && existing.Seq == rec.Seq {
			return nil
		}
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memoryStore) History(_ context.Context, room string, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, rec := range s.records {
		if rec.Room == room {
			out = append(out, rec)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memoryStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}

func TestRecorderPersistsInOrder(t *testing.T) {
	store := &memoryStore{}
	rec := NewRecorder(store, 16)

	for i := uint64(1); i <= 5; i++ {
		require.True(t, rec.Submit(Record{Room: "lobby", RoomInstance: "i1", Seq: i, Author: "a", Text: "hi"}))
	}
	rec.Close()

	history, err := rec.History(context.Background(), "lobby", 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []uint64{3, 4, 5}, []uint64{history[0].Seq, history[1].Seq, history[2].Seq})
}

func TestRecorderDropsWhenQueueFull(t *testing.T) {
	store := &memoryStore{block: make(chan struct{})}
	rec := NewRecorder(store, 1)

	accepted := 0
	for i := uint64(1); i <= 10; i++ {
		if rec.Submit(Record{Room: "lobby", RoomInstance: "i1", Seq: i}) {
			accepted++
		}
	}
	assert.Less(t, accepted, 10)

	close(store.block)
	rec.Close()
	assert.Equal(t, accepted, store.len())
}

func TestRecorderSurvivesStoreErrors(t *testing.T) {
	store := &memoryStore{fail: true}
	rec := NewRecorder(store, 4)

	assert.True(t, rec.Submit(Record{Room: "lobby", Seq: 1}))
	assert.Eventually(t, func() bool { return len(rec.queue) == 0 }, time.Second, time.Millisecond)
	rec.Close()
	assert.Zero(t, store.len())
}

func TestRecorderRejectsAfterClose(t *testing.T) {
	rec := NewRecorder(&memoryStore{}, 4)
	rec.Close()
	rec.Close()

	assert.False(t, rec.Submit(Record{Room: "lobby", Seq: 1}))
}

func TestReverse(t *testing.T) {
	records := []Record{{Seq: 3}, {Seq: 2}, {Seq: 1}}
	reverse(records)
	assert.Equal(t, []Record{{Seq: 1}, {Seq: 2}, {Seq: 3}}, records)
}
