// Package config loads scene and export settings from JSON or YAML and merges
// command-line overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jinzhu/copier"
	"gopkg.in/yaml.v3"

	"mu-rig-motion/internal/controller"
	"mu-rig-motion/internal/ik"
	"mu-rig-motion/internal/mathutil"
	"mu-rig-motion/internal/path"
)

var ErrInvalid = errors.New("config: invalid setting")

// Scene names.
const (
	SceneWalk  = "walk"
	SceneReach = "reach"
)

// Config holds the scene, its tunables and the export settings.
type Config struct {
	Scene        string  `json:"scene" yaml:"scene"`
	Rig          string  `json:"rig" yaml:"rig"` // BMD file; empty uses the demo figure
	FPS          float64 `json:"fps" yaml:"fps"` // BMD key rate
	FloorTexture string  `json:"floor_texture" yaml:"floor_texture"`
	OutputDir    string  `json:"output_dir" yaml:"output_dir"`

	// Export settings
	Width       int     `json:"width" yaml:"width"`
	Height      int     `json:"height" yaml:"height"`
	Supersample int     `json:"supersample" yaml:"supersample"`
	Frames      int     `json:"frames" yaml:"frames"`
	Step        float64 `json:"step" yaml:"step"` // seconds per frame
	Format      string  `json:"format" yaml:"format"`
	Animated    bool    `json:"animated" yaml:"animated"`
	Workers     int     `json:"workers" yaml:"workers"`

	Tunables controller.Tunables `json:"tunables" yaml:"tunables"`
	Path     PathConfig          `json:"path" yaml:"path"`
	IK       IKConfig            `json:"ik" yaml:"ik"`
}

// PathConfig describes the locomotion path.
type PathConfig struct {
	Points   [][3]float64 `json:"points" yaml:"points"`
	Loop     bool         `json:"loop" yaml:"loop"`
	Cruise   float64      `json:"cruise_velocity" yaml:"cruise_velocity"`
	Duration float64      `json:"duration" yaml:"duration"`
	Tension  float64      `json:"tension" yaml:"tension"`
	Adaptive bool         `json:"adaptive" yaml:"adaptive"`
}

// IKConfig describes the reach scene's solver. TargetOffset is added to the
// last path point to place the target. Constrained applies the right arm
// limits and only takes effect with the default end effector.
type IKConfig struct {
	Solver        string     `json:"solver" yaml:"solver"`
	EndEffector   string     `json:"end_effector" yaml:"end_effector"` // empty uses the demo right arm
	TargetOffset  [3]float64 `json:"target_offset" yaml:"target_offset"`
	Threshold     float64    `json:"threshold" yaml:"threshold"`
	Gain          float64    `json:"gain" yaml:"gain"`
	MaxIterations int        `json:"max_iterations" yaml:"max_iterations"`
	Constrained   bool       `json:"constrained" yaml:"constrained"`
	Arrive        float64    `json:"arrive_distance" yaml:"arrive_distance"`
}

// Load reads a config file. Files ending in .yaml or .yml are YAML; anything
// else is JSON. Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Scene     string
	Rig       string
	OutputDir string
	Frames    int
	Format    string
	Solver    string
	Workers   int
}

// Resolve fills in any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.Scene != "" {
		c.Scene = flags.Scene
	}
	if flags.Rig != "" {
		c.Rig = flags.Rig
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Frames > 0 {
		c.Frames = flags.Frames
	}
	if flags.Format != "" {
		c.Format = flags.Format
	}
	if flags.Solver != "" {
		c.IK.Solver = flags.Solver
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}

	if c.Scene == "" {
		c.Scene = SceneWalk
	}
	if c.FPS <= 0 {
		c.FPS = 30
	}
	if c.OutputDir == "" {
		c.OutputDir = "frames"
	}

	// Defaults for export settings
	if c.Width <= 0 {
		c.Width = 480
	}
	if c.Height <= 0 {
		c.Height = 360
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.Frames <= 0 {
		c.Frames = 300
	}
	if c.Step <= 0 {
		c.Step = 1.0 / 30
	}
	if c.Format == "" {
		c.Format = "webp"
	}
	c.Format = strings.ToLower(c.Format)
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}

	// Unset tunables take their defaults one by one; zero paces keep the
	// clips' authored paces.
	def := controller.DefaultTunables()
	if c.Tunables.IdleVelocity <= 0 {
		c.Tunables.IdleVelocity = def.IdleVelocity
	}
	if c.Tunables.RunFraction <= 0 {
		c.Tunables.RunFraction = def.RunFraction
	}
	if c.Tunables.BlendRate <= 0 {
		c.Tunables.BlendRate = def.BlendRate
	}
	if c.Tunables.BlendFloor <= 0 {
		c.Tunables.BlendFloor = def.BlendFloor
	}

	if len(c.Path.Points) == 0 {
		if c.Scene == SceneReach {
			c.Path.Points = reachPath()
		} else {
			c.Path.Points = walkPath()
			c.Path.Loop = true
		}
	}
	if c.Path.Cruise <= 0 {
		c.Path.Cruise = path.DefaultCruiseVelocity
	}
	if c.Path.Duration <= 0 {
		c.Path.Duration = path.DefaultDuration
		if c.Scene == SceneReach {
			c.Path.Duration = 15
		}
	}
	if c.Path.Tension <= 0 {
		c.Path.Tension = path.DefaultTension
	}

	if c.IK.Solver == "" {
		c.IK.Solver = ik.SolverJacobian.String()
	}
	if c.IK.TargetOffset == ([3]float64{}) {
		c.IK.TargetOffset = [3]float64{30, 105, 30}
	}
	if c.IK.Threshold <= 0 {
		c.IK.Threshold = ik.DefaultThreshold
	}
	if c.IK.Gain <= 0 {
		c.IK.Gain = ik.DefaultStep
	}
	if c.IK.MaxIterations <= 0 {
		c.IK.MaxIterations = ik.DefaultMaxIterations
	}
	if c.IK.Arrive <= 0 {
		c.IK.Arrive = 10
	}
}

// Validate reports settings Resolve cannot repair.
func (c *Config) Validate() error {
	switch c.Scene {
	case SceneWalk, SceneReach:
	default:
		return fmt.Errorf("%w: scene %q", ErrInvalid, c.Scene)
	}
	switch c.Format {
	case "webp", "tga":
	default:
		return fmt.Errorf("%w: format %q", ErrInvalid, c.Format)
	}
	if c.Animated && c.Format != "webp" {
		return fmt.Errorf("%w: animated output needs webp, got %q", ErrInvalid, c.Format)
	}
	if _, err := c.Solver(); err != nil {
		return err
	}
	if err := c.Tunables.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Clone returns a deep copy, so a resolved template can seed several runs.
func (c *Config) Clone() (Config, error) {
	var out Config
	if err := copier.CopyWithOption(&out, c, copier.Option{DeepCopy: true}); err != nil {
		return Config{}, fmt.Errorf("config: clone: %w", err)
	}
	return out, nil
}

// Expand turns a loaded config into one resolved run per scene name. Each run
// starts from a deep copy of c, so scene-dependent defaults such as the path
// never leak between runs. With more than one scene every run writes into
// its own subdirectory of the output directory.
func (c *Config) Expand(scenes []string, flags Flags) ([]Config, error) {
	if len(scenes) == 0 {
		scenes = []string{flags.Scene}
	}
	runs := make([]Config, 0, len(scenes))
	for _, name := range scenes {
		run, err := c.Clone()
		if err != nil {
			return nil, err
		}
		f := flags
		f.Scene = strings.ToLower(strings.TrimSpace(name))
		run.Resolve(f)
		if len(scenes) > 1 {
			run.OutputDir = filepath.Join(run.OutputDir, run.Scene)
		}
		if err := run.Validate(); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Solver parses the configured IK solver name.
func (c *Config) Solver() (ik.Solver, error) {
	for _, s := range []ik.Solver{ik.SolverJacobian, ik.SolverCCD} {
		if strings.EqualFold(c.IK.Solver, s.String()) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: solver %q", ErrInvalid, c.IK.Solver)
}

// PathPoints converts the configured control points.
func (c *Config) PathPoints() []mathutil.Vec3 {
	pts := make([]mathutil.Vec3, len(c.Path.Points))
	for i, p := range c.Path.Points {
		pts[i] = mathutil.Vec3(p)
	}
	return pts
}

// PathOptions converts the path settings. Open paths hold at their end.
func (c *Config) PathOptions() []path.Option {
	opts := []path.Option{
		path.WithCruiseVelocity(c.Path.Cruise),
		path.WithDuration(c.Path.Duration),
		path.WithTension(c.Path.Tension),
	}
	if c.Path.Loop {
		opts = append(opts, path.WithLoop())
	} else {
		opts = append(opts, path.WithHold())
	}
	if c.Path.Adaptive {
		opts = append(opts, path.WithAdaptive(path.DefaultLengthError, path.DefaultMinWidth))
	}
	return opts
}

// IKOptions converts the solver settings.
func (c *Config) IKOptions() []ik.Option {
	return []ik.Option{
		ik.WithThreshold(c.IK.Threshold),
		ik.WithStep(c.IK.Gain),
		ik.WithMaxIterations(c.IK.MaxIterations),
	}
}

// walkPath is the closed demo loop, doubled in size.
func walkPath() [][3]float64 {
	pts := [][3]float64{
		{-140, 0, 190}, {-180, 0, 150}, {-200, 0, 110}, {-180, 0, 50}, {-140, 0, 10},
		{-100, 0, 50}, {-20, 0, -90}, {40, 0, -10}, {100, 0, -90},
		{140, 0, -110}, {110, 0, 10}, {160, 0, 30}, {110, 0, 70}, {160, 0, 110},
		{120, 0, 150}, {40, 0, 190}, {0, 0, 230}, {-40, 0, 250}, {-80, 0, 270}, {-120, 0, 220},
	}
	for i := range pts {
		for k := range pts[i] {
			pts[i][k] *= 2
		}
	}
	return pts
}

// reachPath walks from the far corner to the reach target.
func reachPath() [][3]float64 {
	return [][3]float64{
		{-480, 0, 380}, {-440, 0, 300}, {-400, 0, 220}, {-360, 0, 100}, {-280, 0, 20}, {-100, 0, -50},
	}
}
