package raster

import (
	"image"
	"image/color"

	"mu-rig-motion/internal/mathutil"
)

// Floor is a square ground plane of Tiles×Tiles quads at height Y. A texture,
// when set, repeats once per tile; otherwise tiles alternate Color and Alt.
type Floor struct {
	Center  mathutil.Vec3
	Size    float64
	Tiles   int
	Texture *image.NRGBA
	Color   color.NRGBA
	Alt     color.NRGBA
}

// DefaultFloor is a grey checkerboard of 100-unit tiles.
func DefaultFloor() Floor {
	return Floor{
		Size:  2000,
		Tiles: 20,
		Color: color.NRGBA{120, 124, 130, 255},
		Alt:   color.NRGBA{90, 94, 100, 255},
	}
}

// DrawFloor rasterizes f. Tiles that reach behind the near plane are skipped.
func DrawFloor(fb *FrameBuffer, cam *Camera, f Floor, lc *LightConfig) {
	if f.Tiles <= 0 || f.Size <= 0 {
		return
	}
	shade := lc.ComputeShade(mathutil.UnitY)
	step := f.Size / float64(f.Tiles)
	x0 := f.Center[0] - f.Size/2
	z0 := f.Center[2] - f.Size/2

	for i := 0; i < f.Tiles; i++ {
		for j := 0; j < f.Tiles; j++ {
			corners := [4]mathutil.Vec3{
				{x0 + float64(i)*step, f.Center[1], z0 + float64(j)*step},
				{x0 + float64(i+1)*step, f.Center[1], z0 + float64(j)*step},
				{x0 + float64(i+1)*step, f.Center[1], z0 + float64(j+1)*step},
				{x0 + float64(i)*step, f.Center[1], z0 + float64(j+1)*step},
			}
			uv := [4][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
			var v [4]Vertex
			visible := true
			for k, p := range corners {
				x, y, z, ok := cam.Project(p)
				if !ok {
					visible = false
					break
				}
				v[k] = Vertex{X: x, Y: y, Z: z, U: uv[k][0], V: uv[k][1]}
			}
			if !visible {
				continue
			}
			def := f.Color
			if (i+j)%2 == 1 {
				def = f.Alt
			}
			RasterizeTriangle(fb, [3]Vertex{v[0], v[1], v[2]}, f.Texture, def, shade, lc)
			RasterizeTriangle(fb, [3]Vertex{v[0], v[2], v[3]}, f.Texture, def, shade, lc)
		}
	}
}
