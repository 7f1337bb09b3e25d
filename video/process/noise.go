package process

import (
	"math/rand"

	"gocv.io/x/gocv"
)

// Noise sets each pixel, independently with the given probability, to Value
// in all channels. Value 255 gives salt noise, 0 gives pepper noise.
type Noise struct {
	sameSize
	Probability float64
	Value       uint8

	name string
}

func (k *Noise) Name() string { return k.name }

func (k *Noise) Apply(src gocv.Mat, rng *rand.Rand) (gocv.Mat, error) {
	if err := checkBGR(src); err != nil {
		return gocv.NewMat(), err
	}
	dst := src.Clone()
	data, err := dst.DataPtrUint8()
	if err != nil {
		dst.Close()
		return gocv.NewMat(), err
	}
	for i := 0; i+2 < len(data); i += 3 {
		if rng.Float64() < k.Probability {
			data[i], data[i+1], data[i+2] = k.Value, k.Value, k.Value
		}
	}
	return dst, nil
}
