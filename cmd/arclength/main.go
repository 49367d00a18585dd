package main

import (
	"flag"
	"fmt"
	"os"

	"mu-rig-motion/internal/config"
	"mu-rig-motion/internal/path"
)

func main() {
	configFile := flag.String("config", "", "Path to a JSON or YAML config file")
	sceneName := flag.String("scene", "", "Use the default path of this scene: walk or reach")
	every := flag.Int("every", 10, "Print every Nth table sample")
	steps := flag.Int("steps", 10, "Timing profile rows")
	adaptive := flag.Bool("adaptive", false, "Build adaptive distance tables")
	flag.Parse()

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{Scene: *sceneName})
	if *adaptive {
		cfg.Path.Adaptive = true
	}

	p, err := path.New(cfg.PathPoints(), cfg.PathOptions()...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *every < 1 {
		*every = 1
	}

	fmt.Printf("Path: %d points, %d segments, loop=%v\n", len(p.Points()), p.SegmentCount(), p.Loop())
	fmt.Printf("Length: %.3f, Duration: %.2fs, Cruise: %.1f\n", p.TotalLength(), p.Duration(), p.CruiseVelocity())

	for seg := 0; seg < p.SegmentCount(); seg++ {
		table := p.Table(seg)
		fmt.Printf("--- Segment %d: %d samples, %.3f units ---\n", seg, len(table), p.SegmentLength(seg))
		for i, s := range table {
			if i%*every != 0 && i != len(table)-1 {
				continue
			}
			fmt.Printf("  u=%.4f  s=%9.3f\n", s.U, s.Dist)
		}
	}

	fmt.Println("--- Timing ---")
	fmt.Println("      t   velocity   distance   eased")
	for i := 0; i <= *steps; i++ {
		t := float64(i) / float64(*steps)
		fmt.Printf("  %5.2f  %9.3f  %9.4f  %6.4f\n",
			t, p.GetVelocity(t), p.GetDistanceFromTime(t), p.GetSinDistanceFromTime(t))
	}
}
