package process

import (
	"math"
	"math/rand"

	"gocv.io/x/gocv"
)

// Add brightens (or, for a negative offset, darkens) every sample by a fixed
// amount. Results saturate at 0 and 255.
type Add struct {
	sameSize
	Offset int
}

func (k *Add) Name() string { return "add" }

func (k *Add) Apply(src gocv.Mat, _ *rand.Rand) (gocv.Mat, error) {
	if err := checkBGR(src); err != nil {
		return gocv.NewMat(), err
	}
	v := math.Abs(float64(k.Offset))
	offset := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), src.Rows(), src.Cols(), src.Type())
	defer offset.Close()

	dst := gocv.NewMat()
	if k.Offset >= 0 {
		gocv.Add(src, offset, &dst)
	} else {
		gocv.Subtract(src, offset, &dst)
	}
	return dst, nil
}
