package batch

import (
	"image"
	"image/color"

	"mu-rig-motion/internal/mathutil"
	"mu-rig-motion/internal/postprocess"
	"mu-rig-motion/internal/raster"
	"mu-rig-motion/internal/scene"
)

// View holds what every frame of a run shares: the scene layout and how to
// draw it.
type View struct {
	Width       int
	Height      int
	Supersample int
	FovY        float64
	EyeOffset   mathutil.Vec3 // camera position relative to the followed point
	LookHeight  float64       // followed point's height above the model origin
	Background  color.NRGBA
	Floor       raster.Floor
	Light       raster.LightConfig
	Skeleton    raster.SkeletonStyle
	PathColor   color.NRGBA
	TargetColor color.NRGBA

	Parents []int
	Path    []mathutil.Vec3
}

// DefaultView frames a standing figure from behind and above.
func DefaultView(w, h int, parents []int, path []mathutil.Vec3) View {
	return View{
		Width:       w,
		Height:      h,
		Supersample: 2,
		FovY:        50,
		EyeOffset:   mathutil.Vec3{0, 220, 480},
		LookHeight:  90,
		Background:  color.NRGBA{46, 52, 64, 255},
		Floor:       raster.DefaultFloor(),
		Light:       raster.DefaultLightConfig(),
		Skeleton:    raster.DefaultSkeletonStyle(),
		PathColor:   color.NRGBA{80, 200, 255, 255},
		TargetColor: color.NRGBA{255, 60, 60, 255},
		Parents:     parents,
		Path:        path,
	}
}

// Render rasterizes one frame at the supersampled size and resolves it down
// to Width×Height.
func Render(v *View, f scene.Frame) (*image.NRGBA, error) {
	ss := v.Supersample
	if ss < 1 {
		ss = 1
	}
	w, h := v.Width*ss, v.Height*ss

	look := f.Model.V.Add(mathutil.Vec3{0, v.LookHeight, 0})
	cam := raster.NewCamera(look.Add(v.EyeOffset), look, v.FovY, w, h)
	lc := v.Light
	lc.SetView(cam.ViewDir())

	fb := raster.NewFrameBuffer(w, h)
	fb.Clear(v.Background)

	floor := v.Floor
	floor.Center[0] += snap(f.Model.V[0], floor)
	floor.Center[2] += snap(f.Model.V[2], floor)
	raster.DrawFloor(fb, cam, floor, &lc)

	lifted := make([]mathutil.Vec3, len(v.Path))
	for i, p := range v.Path {
		lifted[i] = p.Add(mathutil.Vec3{0, 0.5, 0})
	}
	raster.DrawPolyline(fb, cam, lifted, v.PathColor)

	if f.HasTarget {
		raster.DrawMarker(fb, cam, f.Target, 12, v.TargetColor)
	}

	style := v.Skeleton
	style.Width *= ss
	if err := raster.DrawSkeleton(fb, cam, f.Model, f.World, v.Parents, style); err != nil {
		return nil, err
	}

	return postprocess.Downsample(fb.Image(), v.Width, v.Height), nil
}

// snap moves the floor with the character in pairs of tiles so the checker
// pattern stays fixed in the world.
func snap(x float64, f raster.Floor) float64 {
	if f.Tiles <= 0 {
		return 0
	}
	step := 2 * f.Size / float64(f.Tiles)
	return step * float64(int(x/step))
}
