package batch

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"

	"mu-rig-motion/internal/scene"
)

// Manifest describes one export run.
type Manifest struct {
	RunID    string          `json:"run_id"`
	Created  time.Time       `json:"created"`
	Scene    string          `json:"scene"`
	Rig      string          `json:"rig"`
	Step     float64         `json:"step"`
	Animated string          `json:"animated,omitempty"`
	Frames   []ManifestEntry `json:"frames"`
}

// ManifestEntry represents one frame in the output manifest.
type ManifestEntry struct {
	Index    int        `json:"index"`
	Time     float64    `json:"time"`
	Image    string     `json:"image,omitempty"`
	Gait     string     `json:"gait"`
	Position [3]float64 `json:"position"`
	Distance *float64   `json:"ee_distance,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// NewManifest starts a manifest with a fresh run id.
func NewManifest(sceneName, rigName string, step float64) *Manifest {
	return &Manifest{
		RunID:   uuid.NewString(),
		Created: time.Now().UTC(),
		Scene:   sceneName,
		Rig:     rigName,
		Step:    step,
	}
}

// AddFrames records frames and, when given, their export results.
func (m *Manifest) AddFrames(frames []scene.Frame, results []Result) {
	for i, f := range frames {
		e := ManifestEntry{
			Index:    f.Index,
			Time:     f.Time,
			Gait:     f.Gait,
			Position: [3]float64(f.Model.V),
		}
		if f.Reaching {
			d := f.Distance
			e.Distance = &d
		}
		if i < len(results) {
			e.Image = results[i].File
			e.Error = results[i].Error
		}
		m.Frames = append(m.Frames, e)
	}
}

// WriteManifest writes the manifest as indented JSON.
func WriteManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
