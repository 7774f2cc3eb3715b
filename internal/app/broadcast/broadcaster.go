/*
Package broadcast fans change events out to every joined session of a room.

Each subscriber owns a bounded outbound mailbox. Delivery never blocks: a subscriber
whose mailbox is full is detached and dropped, and the broadcast carries on for
everyone else. Stale position replays are worse than a reconnect, and a chat message
that cannot be queued must not be skipped silently, so both cases disconnect.
*/
package broadcast

import (
	"sync"

	"github.com/rs/zerolog"

	"syncroom/internal/app/protocol"
	"syncroom/internal/pkg/errs"
)

// Subscriber is one session's outbound channel.
type Subscriber interface {
	// SessionID identifies the subscriber.
	SessionID() string

	// Enqueue queues a frame without blocking. It returns false when the mailbox
	// is full or closed.
	Enqueue(frame []byte) bool

	// Drop disconnects the subscriber because of err. It must not block.
	Drop(err error)
}

// Broadcaster delivers events to the subscribers attached to one room.
type Broadcaster struct {
	mu       sync.Mutex
	capacity int
	subs     map[string]Subscriber
	logger   zerolog.Logger
}

// New returns a Broadcaster accepting at most capacity subscribers.
func New(capacity int, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		capacity: capacity,
		subs:     make(map[string]Subscriber),
		logger:   logger,
	}
}

// Attach adds sub to the fan-out set.
func (b *Broadcaster) Attach(sub Subscriber) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := sub.SessionID()
	if _, ok := b.subs[id]; ok {
		return errs.NewError(errs.ErrDuplicateSession, id)
	}
	if b.capacity > 0 && len(b.subs) >= b.capacity {
		return errs.NewError(errs.ErrRoomIsFull)
	}

	b.subs[id] = sub
	return nil
}

// Detach removes the subscriber for sessionID and reports whether it was attached.
func (b *Broadcaster) Detach(sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sessionID]; !ok {
		return false
	}
	delete(b.subs, sessionID)
	return true
}

// Len returns the number of attached subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}

// Publish delivers ev to every attached subscriber. It is usable as a notify.Sink.
func (b *Broadcaster) Publish(ev protocol.Event) {
	frame, err := protocol.Encode(ev)
	if err != nil {
		b.logger.Error().Err(err).Uint64("seq", ev.Seq).Msg("Error encoding event for broadcast.")
		return
	}

	b.mu.Lock()
	var overflowed []Subscriber
	for id, sub := range b.subs {
		if !sub.Enqueue(frame) {
			delete(b.subs, id)
			overflowed = append(overflowed, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range overflowed {
		b.logger.Warn().
			Str("session_id", sub.SessionID()).
			Str("event", string(ev.Kind)).
			Uint64("seq", ev.Seq).
			Bool("reliable", ev.Reliable()).
			Msg("Subscriber mailbox full, dropping connection.")
		sub.Drop(errs.NewError(errs.ErrSendQueueFull))
	}
}

// Unicast encodes m and queues it for a single attached subscriber.
func (b *Broadcaster) Unicast(sessionID string, m protocol.Message) error {
	frame, err := protocol.Encode(m)
	if err != nil {
		return err
	}

	b.mu.Lock()
	sub, ok := b.subs[sessionID]
	if ok && !sub.Enqueue(frame) {
		delete(b.subs, sessionID)
		b.mu.Unlock()
		sub.Drop(errs.NewError(errs.ErrSendQueueFull))
		return errs.NewError(errs.ErrSendQueueFull)
	}
	b.mu.Unlock()

	if !ok {
		return errs.NewError(errs.ErrUnknownSession, sessionID)
	}
	return nil
}
