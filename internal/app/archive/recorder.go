package archive

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"syncroom/internal/pkg/logx"
)

const saveTimeout = 5 * time.Second

// Recorder writes records to a Store asynchronously.
type Recorder struct {
	store  Store
	queue  chan Record
	closed chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger zerolog.Logger
}

// NewRecorder starts a Recorder with a queue of queueSize records.
func NewRecorder(store Store, queueSize int) *Recorder {
	r := &Recorder{
		store:  store,
		queue:  make(chan Record, queueSize),
		closed: make(chan struct{}),
		logger: logx.Component("ChatArchive"),
	}

	r.wg.Add(1)
	go r.run()

	return r
}

// Submit queues rec without blocking. It reports false when the record was dropped.
func (r *Recorder) Submit(rec Record) bool {
	select {
	case <-r.closed:
		return false
	default:
	}

	select {
	case r.queue <- rec:
		return true
	default:
		r.logger.Warn().
			Str("room", rec.Room).
			Uint64("seq", rec.Seq).
			Msg("Archive queue full, dropping chat record.")
		return false
	}
}

// History reads the archive for room.
func (r *Recorder) History(ctx context.Context, room string, limit int) ([]Record, error) {
	return r.store.History(ctx, room, limit)
}

func (r *Recorder) run() {
	defer r.wg.Done()

	for {
		select {
		case rec := <-r.queue:
			r.save(rec)
		case <-r.closed:
			for {
				select {
				case rec := <-r.queue:
					r.save(rec)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) save(rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := r.store.Save(ctx, rec); err != nil {
		r.logger.Error().Err(err).
			Str("room", rec.Room).
			Uint64("seq", rec.Seq).
			Msg("Failed to archive chat record.")
	}
}

// Close stops accepting records, flushes the queue and waits for the writer to exit.
func (r *Recorder) Close() {
	r.once.Do(func() {
		close(r.closed)
	})
	r.wg.Wait()
}
