package process

import (
	"image"
	"math/rand"

	"gocv.io/x/gocv"
)

// Blur applies a Gaussian blur with a square kernel. A zero Sigma lets
// OpenCV derive it from Size.
type Blur struct {
	sameSize
	Size  int
	Sigma float64
}

func (k *Blur) Name() string { return "blur" }

func (k *Blur) Apply(src gocv.Mat, _ *rand.Rand) (gocv.Mat, error) {
	if err := checkBGR(src); err != nil {
		return gocv.NewMat(), err
	}
	dst := gocv.NewMat()
	gocv.GaussianBlur(src, &dst, image.Point{X: k.Size, Y: k.Size}, k.Sigma, k.Sigma, gocv.BorderDefault)
	return dst, nil
}

// Invert replaces every sample v with 255-v.
type Invert struct {
	sameSize
}

func (Invert) Name() string { return "invert" }

func (Invert) Apply(src gocv.Mat, _ *rand.Rand) (gocv.Mat, error) {
	if err := checkBGR(src); err != nil {
		return gocv.NewMat(), err
	}
	dst := gocv.NewMat()
	gocv.BitwiseNot(src, &dst)
	return dst, nil
}

// Flip mirrors frames left to right.
type Flip struct {
	sameSize
}

func (Flip) Name() string { return "flip" }

func (Flip) Apply(src gocv.Mat, _ *rand.Rand) (gocv.Mat, error) {
	if err := checkBGR(src); err != nil {
		return gocv.NewMat(), err
	}
	dst := gocv.NewMat()
	gocv.Flip(src, &dst, 1)
	return dst, nil
}
