package process

import (
	"image"
	"math"
	"math/rand"

	"gocv.io/x/gocv"
)

// Scale resizes frames by random factors. Output frames vary in size, so the
// sink size comes from the sinkScale rule rather than from the frames.
type Scale struct {
	Min, Max float64
	// Independent draws separate horizontal and vertical factors.
	Independent bool

	name      string
	sinkScale float64
}

// NewResize returns a kernel drawing independent x and y factors from
// [min, max). Its sink keeps the source size.
func NewResize(min, max float64) *Scale {
	return &Scale{Min: min, Max: max, Independent: true, name: "resize", sinkScale: 1}
}

// NewDownsample returns a kernel drawing one factor from [min, max) for both
// axes. Its sink is half the source size.
func NewDownsample(min, max float64) *Scale {
	return &Scale{Min: min, Max: max, name: "downsample", sinkScale: 0.5}
}

func (k *Scale) Name() string { return k.name }

func (k *Scale) OutputSize(src image.Point) image.Point {
	return image.Point{
		X: int(float64(src.X) * k.sinkScale),
		Y: int(float64(src.Y) * k.sinkScale),
	}
}

func (k *Scale) Apply(src gocv.Mat, rng *rand.Rand) (gocv.Mat, error) {
	if err := checkBGR(src); err != nil {
		return gocv.NewMat(), err
	}
	fx := uniform(rng, k.Min, k.Max)
	fy := fx
	if k.Independent {
		fy = uniform(rng, k.Min, k.Max)
	}
	return scaleBy(src, fx, fy), nil
}

// scaleBy returns an empty Mat when the scaled size collapses to nothing.
func scaleBy(src gocv.Mat, fx, fy float64) gocv.Mat {
	sz := image.Point{
		X: int(math.Round(float64(src.Cols()) * fx)),
		Y: int(math.Round(float64(src.Rows()) * fy)),
	}
	dst := gocv.NewMat()
	if sz.X < 1 || sz.Y < 1 {
		return dst
	}
	gocv.Resize(src, &dst, sz, 0, 0, gocv.InterpolationLinear)
	return dst
}
