package process

import (
	"image"
	"image/color"
	"math/rand"

	"gocv.io/x/gocv"
)

// Background fills the parts of a warped frame that no source pixel maps to.
var Background = color.RGBA{R: 0, G: 0, B: 0, A: 0}

// Shear applies the affine map x' = x + Factor*y on a canvas of the source
// size. Content sheared past the right edge is cropped.
type Shear struct {
	sameSize
	Factor float64
}

func (k *Shear) Name() string { return "shear" }

func (k *Shear) Apply(src gocv.Mat, _ *rand.Rand) (gocv.Mat, error) {
	if err := checkBGR(src); err != nil {
		return gocv.NewMat(), err
	}
	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer m.Close()
	m.SetDoubleAt(0, 0, 1)
	m.SetDoubleAt(0, 1, k.Factor)
	m.SetDoubleAt(0, 2, 0)
	m.SetDoubleAt(1, 0, 0)
	m.SetDoubleAt(1, 1, 1)
	m.SetDoubleAt(1, 2, 0)
	return warpAffine(src, m), nil
}

// Rotate turns each frame about its center by an angle drawn from
// [-MaxAngle, MaxAngle) degrees. Corners are cropped and uncovered areas
// filled with Background.
type Rotate struct {
	sameSize
	MaxAngle float64
}

func (k *Rotate) Name() string { return "rotate" }

func (k *Rotate) Apply(src gocv.Mat, rng *rand.Rand) (gocv.Mat, error) {
	if err := checkBGR(src); err != nil {
		return gocv.NewMat(), err
	}
	angle := uniform(rng, -k.MaxAngle, k.MaxAngle)
	center := image.Point{X: src.Cols() / 2, Y: src.Rows() / 2}
	m := gocv.GetRotationMatrix2D(center, angle, 1.0)
	defer m.Close()
	return warpAffine(src, m), nil
}

func warpAffine(src gocv.Mat, m gocv.Mat) gocv.Mat {
	dst := gocv.NewMat()
	size := image.Point{X: src.Cols(), Y: src.Rows()}
	gocv.WarpAffineWithParams(src, &dst, m, size, gocv.InterpolationLinear, gocv.BorderConstant, Background)
	return dst
}
