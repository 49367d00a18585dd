package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"mu-rig-motion/internal/bmd"
	"mu-rig-motion/internal/rig"
)

func main() {
	fps := flag.Float64("fps", 30, "Key rate used to time the converted clips")
	keys := flag.Bool("keys", false, "Print the first key of every bone")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: inspect [-fps N] [-keys] model.bmd")
		os.Exit(2)
	}
	path := flag.Arg(0)

	m, err := bmd.Parse(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Model: %q (v%d)\n", m.Name, m.Version)
	fmt.Printf("Meshes: %d, Bones: %d, Actions: %d\n", len(m.Meshes), len(m.Bones), len(m.Actions))

	for i, mi := range m.Meshes {
		fmt.Printf("  Mesh[%d]: verts=%d, normals=%d, uvs=%d, tris=%d, texture=%q\n",
			i, mi.Vertices, mi.Normals, mi.TexCoords, mi.Triangles, mi.TexPath)
	}

	fmt.Println("--- Actions ---")
	for i, a := range m.Actions {
		lock := ""
		if a.LockPositions {
			lock = " (locked positions)"
		}
		fmt.Printf("  Action[%d]: %d keys%s\n", i, a.Keys, lock)
	}

	r, err := rig.FromBMD(m, *fps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error converting rig: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("--- Hierarchy ---")
	sk := r.Skeleton
	depth := make([]int, sk.Len())
	for i := 0; i < sk.Len(); i++ {
		b := sk.Bone(i)
		if b.Parent >= 0 {
			depth[i] = depth[b.Parent] + 1
		}
		name := b.Name
		if m.Bones[r.Source[i]].IsDummy {
			name = "(dummy)"
		}
		fmt.Printf("  %3d [file %3d] %s%s\n", i, r.Source[i], strings.Repeat("  ", depth[i]), name)
		if *keys {
			src := m.Bones[r.Source[i]]
			fmt.Printf("        pos %v rot %v\n", src.BindPosition(), src.BindRotation())
		}
	}

	fmt.Println("--- Clips ---")
	for _, a := range r.Animations {
		fmt.Printf("  %s: %.3fs, %d tracks\n", a.Name, a.Duration, a.TrackCount())
	}
}
