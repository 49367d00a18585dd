package batch

import (
	"fmt"

	"mu-rig-motion/internal/scene"
)

// Capture steps s n times by dt and returns the snapshots in order.
// Simulation is sequential; only rasterizing and encoding run in parallel.
func Capture(s scene.Scene, n int, dt float64) ([]scene.Frame, error) {
	frames := make([]scene.Frame, 0, n)
	for i := 0; i < n; i++ {
		f, err := s.Step(dt)
		if err != nil {
			return frames, fmt.Errorf("batch: capture frame %d: %w", i, err)
		}
		frames = append(frames, f)
	}
	return frames, nil
}
