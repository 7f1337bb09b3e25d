package process

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func pixelAt(m gocv.Mat, x, y int) []byte {
	b := m.ToBytes()
	i := 3 * (y*m.Cols() + x)
	return b[i : i+3]
}

func TestShearSolidFrame(t *testing.T) {
	src := solidFrame(100, 60, 40, 80, 120)
	defer src.Close()

	dst := apply(t, &Shear{Factor: 0.2}, src, nil)
	defer dst.Close()

	assert.Equal(t, 100, dst.Cols())
	assert.Equal(t, 60, dst.Rows())
	// The top row is not displaced; the bottom-left corner samples from
	// left of the source and gets the background.
	assert.Equal(t, []byte{40, 80, 120}, pixelAt(dst, 0, 0))
	assert.Equal(t, []byte{0, 0, 0}, pixelAt(dst, 0, 59))
	assert.Equal(t, []byte{40, 80, 120}, pixelAt(dst, 99, 59))
}

func TestRotateZeroAngleKeepsCenter(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	src := randomFrame(t, rng, 41, 31)
	defer src.Close()

	dst := apply(t, &Rotate{MaxAngle: 0}, src, rng)
	defer dst.Close()
	assert.Equal(t, src.ToBytes(), dst.ToBytes())
}

func TestRotateCropsCorners(t *testing.T) {
	src := solidFrame(80, 80, 200, 200, 200)
	defer src.Close()

	dst := apply(t, &Rotate{MaxAngle: 45}, src, rand.New(rand.NewSource(11)))
	defer dst.Close()
	assert.Equal(t, []byte{200, 200, 200}, pixelAt(dst, 40, 40))
}

func TestScaleOutputSize(t *testing.T) {
	src := image.Point{X: 640, Y: 480}
	assert.Equal(t, image.Point{X: 320, Y: 240}, NewDownsample(0.5, 1).OutputSize(src))
	assert.Equal(t, src, NewResize(0.5, 2).OutputSize(src))
}

func TestScaleFactorsInRange(t *testing.T) {
	src := solidFrame(100, 80, 1, 2, 3)
	defer src.Close()
	rng := rand.New(rand.NewSource(12))

	resize := NewResize(0.5, 2)
	down := NewDownsample(0.5, 1)
	for i := 0; i < 20; i++ {
		r := apply(t, resize, src, rng)
		assert.True(t, r.Cols() >= 50 && r.Cols() <= 200, "cols %d", r.Cols())
		assert.True(t, r.Rows() >= 40 && r.Rows() <= 160, "rows %d", r.Rows())
		r.Close()

		d := apply(t, down, src, rng)
		assert.True(t, d.Cols() >= 50 && d.Cols() <= 100, "cols %d", d.Cols())
		// One factor for both axes.
		assert.InDelta(t, float64(d.Cols())/100, float64(d.Rows())/80, 0.02)
		d.Close()
	}
}

func TestScaleCollapsesToEmpty(t *testing.T) {
	src := solidFrame(1, 1, 1, 2, 3)
	defer src.Close()

	dst, err := NewDownsample(0.1, 0.2).Apply(src, rand.New(rand.NewSource(13)))
	require.NoError(t, err)
	defer dst.Close()
	assert.True(t, dst.Empty())
}

func TestTriangleMap(t *testing.T) {
	pts := [3]gocv.Point2f{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}}
	x, y := triangleMap(pts, pts).apply(3, 7)
	assert.InDelta(t, 3, x, 1e-6)
	assert.InDelta(t, 7, y, 1e-6)

	shifted := [3]gocv.Point2f{{X: 1, Y: 2}, {X: 11, Y: 2}, {X: 1, Y: 12}}
	x, y = triangleMap(pts, shifted).apply(5, 5)
	assert.InDelta(t, 6, x, 1e-6)
	assert.InDelta(t, 7, y, 1e-6)
}

func TestWarpMaps(t *testing.T) {
	const w, h, off = 50, 40, 10
	mapX, mapY, err := warpMaps(w, h, off)
	require.NoError(t, err)
	defer mapX.Close()
	defer mapY.Close()
	require.Equal(t, gocv.MatTypeCV32F, mapX.Type())
	at := func(x, y int) (float32, float32) {
		return mapX.GetFloatAt(y, x), mapY.GetFloatAt(y, x)
	}

	x, y := at(w-1, 0)
	assert.InDelta(t, w-1, x, 1e-3)
	assert.InDelta(t, off, y, 1e-3)

	x, y = at(w-1, h-1)
	assert.InDelta(t, w-1, x, 1e-3)
	assert.InDelta(t, h-1-off, y, 1e-3)

	// The left edge is left in place.
	for row := 0; row < h; row++ {
		x, y = at(0, row)
		assert.InDelta(t, 0, x, 1e-3)
		assert.InDelta(t, row, y, 1e-3)
	}
}

func TestWarpMapsDegenerateFrame(t *testing.T) {
	mapX, mapY, err := warpMaps(5, 1, 10)
	require.NoError(t, err)
	defer mapX.Close()
	defer mapY.Close()
	for x := 0; x < 5; x++ {
		assert.Equal(t, float32(x), mapX.GetFloatAt(0, x))
		assert.Equal(t, float32(0), mapY.GetFloatAt(0, x))
	}
}

func mapData(t *testing.T, m gocv.Mat) *float32 {
	t.Helper()
	data, err := m.DataPtrFloat32()
	require.NoError(t, err)
	return &data[0]
}

func TestWarpSolidFrame(t *testing.T) {
	src := solidFrame(60, 40, 7, 8, 9)
	defer src.Close()

	k := &Warp{Offset: 10}
	defer k.Close()
	dst := apply(t, k, src, nil)
	defer dst.Close()
	// Every sample lands inside the source, so a solid frame stays solid.
	assert.Equal(t, src.ToBytes(), dst.ToBytes())

	// The maps are reused for same-sized frames and rebuilt on a new size.
	first := mapData(t, k.mapX)
	again := apply(t, k, src, nil)
	defer again.Close()
	assert.Same(t, first, mapData(t, k.mapX))

	small := solidFrame(30, 20, 7, 8, 9)
	defer small.Close()
	resized := apply(t, k, small, nil)
	defer resized.Close()
	assert.Equal(t, 30, resized.Cols())
	assert.Equal(t, 30, k.mapX.Cols())
}

func TestSlicSplitsTwoRegions(t *testing.T) {
	const w, h = 20, 10
	lab := make([]byte, 3*w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x >= w/2 {
				i := 3 * (y*w + x)
				lab[i], lab[i+1], lab[i+2] = 255, 128, 128
			}
		}
	}
	labels := slic(lab, w, h, 2, 10)
	mask := contourMask(labels, w, h)
	for y := 0; y < h; y++ {
		assert.NotEqual(t, labels[y*w], labels[y*w+w-1])
		assert.True(t, mask[y*w+9])
		assert.True(t, mask[y*w+10])
		assert.False(t, mask[y*w])
	}
}

func TestSuperpixelKeepsOnlyContours(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	src := randomFrame(t, rng, 48, 32)
	defer src.Close()

	dst := apply(t, &Superpixel{Divisor: 4, Iterations: 5}, src, nil)
	defer dst.Close()

	in, out := src.ToBytes(), dst.ToBytes()
	kept := 0
	for i := 0; i < len(in); i += 3 {
		if out[i] == 0 && out[i+1] == 0 && out[i+2] == 0 {
			continue
		}
		assert.Equal(t, in[i:i+3], out[i:i+3])
		kept++
	}
	assert.Greater(t, kept, 0)
	assert.Less(t, kept, 48*32)
}

func TestSuperpixelBlanksFlatFrame(t *testing.T) {
	src := solidFrame(40, 40, 90, 90, 90)
	defer src.Close()

	// One superpixel has no boundary, so nothing survives the mask.
	dst := apply(t, &Superpixel{Divisor: 100, Iterations: 3}, src, nil)
	defer dst.Close()
	assert.Equal(t, gocv.MatTypeCV8UC3, dst.Type())
	flat := dst.Reshape(1, 0)
	defer flat.Close()
	assert.Equal(t, 0, gocv.CountNonZero(flat))
}
