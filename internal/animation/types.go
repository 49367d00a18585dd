package animation

import "mu-rig-motion/internal/vqs"

// KeyFrame is one time-stamped local pose of a bone.
type KeyFrame struct {
	Time      float64
	Transform vqs.VQS
}

// Track holds the keyframes of one bone, ordered by strictly increasing time.
type Track struct {
	Keys []KeyFrame
}

// TrackData is the per-track evaluation cursor. Each evaluation context
// (active clip, blend target) owns its own slice so cursors never interfere.
type TrackData struct {
	LastKey int
}

// NewTrackData allocates n zeroed cursors.
func NewTrackData(n int) []TrackData {
	return make([]TrackData, n)
}

// ResetTrackData rewinds every cursor to the first key.
func ResetTrackData(td []TrackData) {
	for i := range td {
		td[i].LastKey = 0
	}
}
