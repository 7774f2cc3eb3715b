/*
Package interp smooths the positions of remote players between network updates.

The Interpolator keeps, per remote player, the latest target received from the
mirror and the currently rendered position. Each Tick moves every rendered position
a fixed fraction of the remaining distance toward its target. Ticks are driven by
the caller's frame loop and never wait on the network.
*/
package interp

import (
	"context"
	"sort"
	"sync"
	"time"

	"syncroom/internal/app/mirror"
	"syncroom/internal/pkg/errs"
	"syncroom/internal/pkg/vec"
)

// DefaultBlend is the fraction of the remaining distance covered per tick.
const DefaultBlend = 0.05

// Sample is the rendered position of one remote player after a tick.
type Sample struct {
	SessionID string
	Position  vec.Vec3
}

type track struct {
	target   vec.Vec3
	rendered vec.Vec3
}

// Interpolator tracks remote players. It implements mirror.Listener so it can be
// registered directly on a Mirror. All methods are safe for concurrent use.
type Interpolator struct {
	mu     sync.Mutex
	blend  float64
	tracks map[string]*track
}

var _ mirror.Listener = (*Interpolator)(nil)

// New returns an Interpolator with the given blend factor, which must lie in (0,1).
func New(blend float64) (*Interpolator, error) {
	if !(blend > 0 && blend < 1) {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}
	return &Interpolator{
		blend:  blend,
		tracks: make(map[string]*track),
	}, nil
}

// Blend returns the configured blend factor.
func (in *Interpolator) Blend() float64 {
	return in.blend
}

// SetTarget records the latest known position of sessionID. The first target for
// a player also becomes its rendered position, so a player never glides in from
// the origin. Non-finite targets are ignored.
func (in *Interpolator) SetTarget(sessionID string, target vec.Vec3) {
	if !target.Finite() {
		return
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	tr, ok := in.tracks[sessionID]
	if !ok {
		in.tracks[sessionID] = &track{target: target, rendered: target}
		return
	}
	tr.target = target
}

// Remove forgets sessionID.
func (in *Interpolator) Remove(sessionID string) {
	in.mu.Lock()
	defer in.mu.Unlock()

	delete(in.tracks, sessionID)
}

// Tick advances every tracked player one step toward its target and returns the
// rendered positions ordered by session id. Players without a target are absent.
func (in *Interpolator) Tick() []Sample {
	in.mu.Lock()
	defer in.mu.Unlock()

	out := make([]Sample, 0, len(in.tracks))
	for id, tr := range in.tracks {
		tr.rendered = vec.Lerp(tr.rendered, tr.target, in.blend)
		out = append(out, Sample{SessionID: id, Position: tr.rendered})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })

	return out
}

// Position returns the current rendered position of sessionID without advancing it.
func (in *Interpolator) Position(sessionID string) (vec.Vec3, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()

	tr, ok := in.tracks[sessionID]
	if !ok {
		return vec.Vec3{}, false
	}
	return tr.rendered, true
}

// Run calls Tick every interval and hands the samples to fn until ctx is done.
func (in *Interpolator) Run(ctx context.Context, interval time.Duration, fn func([]Sample)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			samples := in.Tick()
			if fn != nil {
				fn(samples)
			}
		}
	}
}

func (in *Interpolator) OnPlayerAdded(p mirror.Player) {
	if p.Self {
		return
	}
	in.SetTarget(p.SessionID, p.Position)
}

func (in *Interpolator) OnPlayerUpdated(p mirror.Player) {
	if p.Self {
		return
	}
	in.SetTarget(p.SessionID, p.Position)
}

func (in *Interpolator) OnPlayerRemoved(p mirror.Player) {
	in.Remove(p.SessionID)
}

func (in *Interpolator) OnMessageAdded(mirror.Message) {}
