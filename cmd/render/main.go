package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mu-rig-motion/internal/batch"
	"mu-rig-motion/internal/bmd"
	"mu-rig-motion/internal/config"
	"mu-rig-motion/internal/ik"
	"mu-rig-motion/internal/mathutil"
	"mu-rig-motion/internal/path"
	"mu-rig-motion/internal/rig"
	"mu-rig-motion/internal/scene"
	"mu-rig-motion/internal/texture"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to a JSON or YAML config file")
	sceneName := flag.String("scene", "", "Scenes to simulate, comma separated: walk, reach (default: walk)")
	rigFile := flag.String("rig", "", "BMD model to animate (default: built-in demo figure)")
	outputDir := flag.String("output", "", "Output directory (default: frames)")
	frames := flag.Int("frames", 0, "Number of frames to capture (default: 300)")
	format := flag.String("format", "", "Frame format: webp or tga (default: webp)")
	solver := flag.String("solver", "", "IK solver for the reach scene: jacobian or ccd")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	animated := flag.Bool("animated", false, "Also write an animated WebP of all frames")

	flag.Parse()

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	if *animated {
		cfg.Animated = true
	}

	// CLI flags override config file. A comma separated -scene renders each
	// scene from its own copy of the config.
	var scenes []string
	if *sceneName != "" {
		scenes = strings.Split(*sceneName, ",")
	}
	runs, err := cfg.Expand(scenes, config.Flags{
		Rig:       *rigFile,
		OutputDir: *outputDir,
		Frames:    *frames,
		Format:    *format,
		Solver:    *solver,
		Workers:   *workers,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	for _, run := range runs {
		failed += render(run, filepath.Dir(*configFile))
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// render simulates and exports one scene and returns the number of frames
// that failed to export.
func render(cfg config.Config, textureDir string) int {
	r, err := loadRig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading rig: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Rig: %s, %d bones, %d clips\n", r.Name, r.Skeleton.Len(), len(r.Animations))

	p, err := path.New(cfg.PathPoints(), cfg.PathOptions()...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building path: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Path: %d segments, %.1f units\n", p.SegmentCount(), p.TotalLength())

	s, err := buildScene(cfg, r, p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	view := batch.DefaultView(cfg.Width, cfg.Height, s.Parents(), s.Path())
	view.Supersample = cfg.Supersample
	if cfg.FloorTexture != "" {
		cache := texture.NewCache(textureDir)
		tex, err := cache.Load(cfg.FloorTexture)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: floor texture: %v\n", err)
		}
		view.Floor.Texture = tex
	}

	fmt.Printf("Scene: %s, Frames: %d, Workers: %d\n", cfg.Scene, cfg.Frames, cfg.Workers)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()
	captured, err := batch.Capture(s, cfg.Frames, cfg.Step)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Simulated %d frames in %.2fs\n", len(captured), time.Since(start).Seconds())

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Run batch
	results := batch.Run(batch.Config{
		OutputDir: cfg.OutputDir,
		Format:    cfg.Format,
		Workers:   cfg.Workers,
		View:      view,
		Keep:      cfg.Animated,
	}, captured)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, failed := 0, 0
	var errors []batch.Result
	for _, res := range results {
		if res.Success {
			success++
		} else {
			failed++
			errors = append(errors, res)
		}
	}
	fmt.Printf("Rendered: %d/%d\n", success, len(results))

	if len(errors) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		limit := 20
		if len(errors) < limit {
			limit = len(errors)
		}
		for _, e := range errors[:limit] {
			fmt.Printf("  frame %d: %s\n", e.Index, e.Error)
		}
	}

	manifest := batch.NewManifest(cfg.Scene, r.Name, cfg.Step)
	manifest.AddFrames(captured, results)

	if cfg.Animated {
		animPath := filepath.Join(cfg.OutputDir, cfg.Scene+".webp")
		delay := time.Duration(cfg.Step * float64(time.Second))
		if err := batch.WriteAnimated(animPath, results, delay); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: animated webp failed: %v\n", err)
		} else {
			manifest.Animated = filepath.Base(animPath)
			fmt.Printf("Animation: %s\n", animPath)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	if err := batch.WriteManifest(manifestPath, manifest); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s (run %s)\n", manifestPath, manifest.RunID)
	}

	return failed
}

func loadRig(cfg config.Config) (*rig.Rig, error) {
	if cfg.Rig == "" {
		return rig.Demo(), nil
	}
	m, err := bmd.Parse(cfg.Rig)
	if err != nil {
		return nil, err
	}
	return rig.FromBMD(m, cfg.FPS)
}

func buildScene(cfg config.Config, r *rig.Rig, p *path.Path) (scene.Scene, error) {
	if cfg.Scene == config.SceneWalk {
		return scene.NewWalk(r, p, cfg.Tunables)
	}

	solver, err := cfg.Solver()
	if err != nil {
		return nil, err
	}
	chain := rig.RightArmChain
	var constraints []ik.Constraint
	if cfg.IK.EndEffector != "" {
		chain = rig.Chain{EndEffector: cfg.IK.EndEffector}
	} else if cfg.IK.Constrained {
		constraints = ik.DefaultRightArmConstraints()
	}

	pts := p.Points()
	target := pts[len(pts)-1].Add(mathutil.Vec3(cfg.IK.TargetOffset))
	return scene.NewReach(r, p, cfg.Tunables, scene.ReachOptions{
		Chain:       chain,
		Solver:      solver,
		Target:      target,
		Arrive:      cfg.IK.Arrive,
		Constraints: constraints,
		IK:          cfg.IKOptions(),
	})
}
