package process

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSaturates(t *testing.T) {
	src := solidFrame(8, 4, 0, 128, 250)
	defer src.Close()

	dst := apply(t, &Add{Offset: 50}, src, nil)
	defer dst.Close()
	b := dst.ToBytes()
	assert.Equal(t, []byte{50, 178, 255}, b[:3])
	for i, v := range b {
		assert.GreaterOrEqual(t, v, src.ToBytes()[i])
	}

	dark := apply(t, &Add{Offset: -100}, src, nil)
	defer dark.Close()
	assert.Equal(t, []byte{0, 28, 150}, dark.ToBytes()[:3])
}

func TestAddMaxOffsetNeverWraps(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	src := randomFrame(t, rng, 32, 32)
	defer src.Close()

	dst := apply(t, &Add{Offset: 255}, src, nil)
	defer dst.Close()
	for _, v := range dst.ToBytes() {
		assert.Equal(t, byte(255), v)
	}
}

func TestScaleChannelsClamps(t *testing.T) {
	src := solidFrame(4, 4, 200, 100, 50)
	defer src.Close()

	dst, err := scaleChannels(src, [3]float64{2, 0.5, 1.5})
	require.NoError(t, err)
	defer dst.Close()
	assert.Equal(t, []byte{255, 50, 75}, dst.ToBytes()[:3])
}

func TestMultiplyIsSeeded(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	src := randomFrame(t, rng, 16, 16)
	defer src.Close()
	k := &Multiply{Min: 0.5, Max: 2.0}

	a := apply(t, k, src, rand.New(rand.NewSource(99)))
	defer a.Close()
	b := apply(t, k, src, rand.New(rand.NewSource(99)))
	defer b.Close()
	assert.Equal(t, a.ToBytes(), b.ToBytes())

	// Every output sample is the source scaled by a factor in [0.5, 2.0],
	// clamped to 255.
	in, out := src.ToBytes(), a.ToBytes()
	for i := range in {
		lo := int(float64(in[i])*0.5) - 1
		assert.GreaterOrEqual(t, int(out[i]), lo)
	}
}

func TestNoiseRate(t *testing.T) {
	tests := []struct {
		name  string
		value uint8
		base  float64
		p     float64
	}{
		{"salt", 255, 0, 0.1},
		{"pepper", 0, 255, 0.1},
		{"sparse salt", 255, 0, 0.01},
		{"dense pepper", 0, 255, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := solidFrame(400, 400, tt.base, tt.base, tt.base)
			defer src.Close()
			k := &Noise{Probability: tt.p, Value: tt.value, name: tt.name}

			dst := apply(t, k, src, rand.New(rand.NewSource(5)))
			defer dst.Close()

			b := dst.ToBytes()
			changed := 0
			for i := 0; i < len(b); i += 3 {
				if b[i] == tt.value {
					assert.Equal(t, tt.value, b[i+1])
					assert.Equal(t, tt.value, b[i+2])
					changed++
				}
			}
			frac := float64(changed) / float64(400*400)
			assert.InDelta(t, tt.p, frac, 0.01)
		})
	}
}

func TestNoiseBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	src := randomFrame(t, rng, 20, 20)
	defer src.Close()

	none := apply(t, &Noise{Probability: 0, Value: 255}, src, rng)
	defer none.Close()
	assert.Equal(t, src.ToBytes(), none.ToBytes())

	all := apply(t, &Noise{Probability: 1, Value: 0}, src, rng)
	defer all.Close()
	for _, v := range all.ToBytes() {
		assert.Equal(t, byte(0), v)
	}
}

func TestInvertIsInvolution(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	src := randomFrame(t, rng, 33, 17)
	defer src.Close()

	once := apply(t, Invert{}, src, nil)
	defer once.Close()
	twice := apply(t, Invert{}, once, nil)
	defer twice.Close()

	in, out := src.ToBytes(), once.ToBytes()
	for i := range in {
		assert.Equal(t, 255-in[i], out[i])
	}
	assert.Equal(t, in, twice.ToBytes())
}

func TestFlipIsInvolution(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	src := randomFrame(t, rng, 33, 17)
	defer src.Close()

	once := apply(t, Flip{}, src, nil)
	defer once.Close()
	twice := apply(t, Flip{}, once, nil)
	defer twice.Close()

	in, out := src.ToBytes(), once.ToBytes()
	// First pixel of a row becomes the last.
	assert.Equal(t, in[:3], out[3*32:3*33])
	assert.Equal(t, in, twice.ToBytes())
}

func TestBlurKeepsSolidFrames(t *testing.T) {
	src := solidFrame(40, 30, 10, 20, 30)
	defer src.Close()

	dst := apply(t, &Blur{Size: 15}, src, nil)
	defer dst.Close()
	in, out := src.ToBytes(), dst.ToBytes()
	require.Len(t, out, len(in))
	for i := range in {
		assert.InDelta(t, int(in[i]), int(out[i]), 1)
	}
}
