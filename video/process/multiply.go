package process

import (
	"fmt"
	"math/rand"

	"gocv.io/x/gocv"
)

// Multiply scales the blue, green and red channels by three factors drawn
// independently from [Min, Max) for every frame.
type Multiply struct {
	sameSize
	Min, Max float64
}

func (k *Multiply) Name() string { return "multiply" }

func (k *Multiply) Apply(src gocv.Mat, rng *rand.Rand) (gocv.Mat, error) {
	if err := checkBGR(src); err != nil {
		return gocv.NewMat(), err
	}
	var factors [3]float64
	for c := range factors {
		factors[c] = uniform(rng, k.Min, k.Max)
	}
	return scaleChannels(src, factors)
}

// scaleChannels multiplies each BGR channel by its factor, saturating to
// 8 bits.
func scaleChannels(src gocv.Mat, factors [3]float64) (gocv.Mat, error) {
	channels := gocv.Split(src)
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()
	if len(channels) != len(factors) {
		return gocv.NewMat(), fmt.Errorf("expected %d channels, got %d", len(factors), len(channels))
	}
	for c := range channels {
		gocv.ConvertScaleAbs(channels[c], &channels[c], factors[c], 0)
	}
	dst := gocv.NewMat()
	gocv.Merge(channels, &dst)
	return dst, nil
}
