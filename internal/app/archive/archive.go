/*
Package archive persists room chat outside the live room.

Rooms hand every posted message to a Recorder, which writes them to a Store on
its own goroutine. The live room never waits on the archive: when the recorder
queue is full the record is dropped and logged, and storage errors never reach
the session that posted the message.
*/
package archive

import (
	"context"
	"time"
)

// Record is one archived chat message.
type Record struct {
	Room         string    `json:"room"`
	RoomInstance string    `json:"roomInstance"`
	Seq          uint64    `json:"index"`
	Author       string    `json:"author"`
	Text         string    `json:"text"`
	PostedAt     time.Time `json:"postedAt"`
}

// Store is the persistence backend of the archive.
type Store interface {
	// Save stores rec. Saving the same room instance and seq twice is not an error.
	Save(ctx context.Context, rec Record) error

	// History returns up to limit of the most recent records for room, oldest first.
	History(ctx context.Context, room string, limit int) ([]Record, error)
}
