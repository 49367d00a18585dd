// Package batch captures scene frames and exports them as images.
package batch

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"

	"mu-rig-motion/internal/scene"
)

// Config holds the shared settings of an export run.
type Config struct {
	OutputDir string
	Format    string // "webp" or "tga"
	Workers   int
	View      View

	// Keep holds on to every rendered image in Result.Image, for animated
	// output.
	Keep bool
}

// Result holds the outcome of exporting one frame.
type Result struct {
	Index   int
	File    string
	Success bool
	Error   string
	Image   *image.NRGBA
}

// Run renders and encodes frames using a worker pool. Results are in frame
// order.
func Run(cfg Config, frames []scene.Frame) []Result {
	total := len(frames)
	results := make([]Result, total)
	var processed atomic.Int64

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					rate := float64(p) / elapsed
					fmt.Printf("  [%d/%d] %.1f frames/sec\n", p, total, rate)
				}
			}
		}
	}()

	// Worker pool
	frameChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range frameChan {
				results[idx] = processFrame(cfg, frames[idx])
				processed.Add(1)
			}
		}()
	}

	// Send work
	for i := range frames {
		frameChan <- i
	}
	close(frameChan)

	wg.Wait()
	close(done)

	return results
}

// FrameName is the file name of frame i for the given format.
func FrameName(i int, format string) string {
	return fmt.Sprintf("frame_%04d.%s", i, format)
}

func processFrame(cfg Config, f scene.Frame) Result {
	res := Result{Index: f.Index}

	img, err := Render(&cfg.View, f)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if cfg.Keep {
		res.Image = img
	}
	if cfg.OutputDir == "" {
		res.Success = true
		return res
	}

	res.File = FrameName(f.Index, cfg.Format)
	outPath := filepath.Join(cfg.OutputDir, res.File)
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		res.Error = err.Error()
		return res
	}

	out, err := os.Create(outPath)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer out.Close()

	switch cfg.Format {
	case "tga":
		err = tga.Encode(out, img)
	case "webp":
		err = nativewebp.Encode(out, img, nil)
	default:
		err = fmt.Errorf("unknown format %q", cfg.Format)
	}
	if err != nil {
		res.Error = fmt.Sprintf("%s encode: %v", cfg.Format, err)
		return res
	}

	res.Success = true
	return res
}
