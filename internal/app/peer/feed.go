package peer

import (
	"context"
	"time"

	"syncroom/internal/pkg/vec"
)

// PositionSource reports the local player's current position.
type PositionSource func() vec.Vec3

// RunPositionFeed sends the position reported by source every interval until ctx
// is done or the connection ends. Non-finite positions are skipped. With sendOnChange set, a tick whose position
// equals the last one sent is skipped.
func (p *Peer) RunPositionFeed(ctx context.Context, source PositionSource, interval time.Duration, sendOnChange bool) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		last vec.Vec3
		sent bool
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-p.done:
			return p.Err()

		case <-ticker.C:
			pos := source()
			if !pos.Finite() {
				continue
			}
			if sendOnChange && sent && pos == last {
				continue
			}
			if err := p.UpdatePosition(pos); err != nil {
				return err
			}
			last, sent = pos, true
		}
	}
}
