package process

import (
	"image"
	"math/rand"

	"gocv.io/x/gocv"
)

// Warp is a piecewise affine warp defined by the four frame corners. The left
// corners stay fixed; the output's top-right corner samples the source Offset
// pixels down and the bottom-right corner Offset pixels up, which squeezes the
// right side of the picture vertically.
type Warp struct {
	sameSize
	Offset int

	size       image.Point
	mapX, mapY gocv.Mat
}

func (k *Warp) Name() string { return "warp" }

func (k *Warp) Apply(src gocv.Mat, _ *rand.Rand) (gocv.Mat, error) {
	if err := checkBGR(src); err != nil {
		return gocv.NewMat(), err
	}
	w, h := src.Cols(), src.Rows()
	if k.size != (image.Point{X: w, Y: h}) {
		mapX, mapY, err := warpMaps(w, h, float32(k.Offset))
		if err != nil {
			return gocv.NewMat(), err
		}
		k.Close()
		k.mapX, k.mapY = mapX, mapY
		k.size = image.Point{X: w, Y: h}
	}

	dst := gocv.NewMat()
	gocv.Remap(src, &dst, &k.mapX, &k.mapY, gocv.InterpolationLinear, gocv.BorderConstant, Background)
	return dst, nil
}

// Close releases the cached sampling maps.
func (k *Warp) Close() error {
	if k.size != (image.Point{}) {
		k.mapX.Close()
		k.mapY.Close()
		k.size = image.Point{}
	}
	return nil
}

// affine holds x' = A*x + B*y + C, y' = D*x + E*y + F.
type affine [6]float64

func (a affine) apply(x, y float64) (float64, float64) {
	return a[0]*x + a[1]*y + a[2], a[3]*x + a[4]*y + a[5]
}

// triangleMap returns the affine map taking the three points src to dst.
func triangleMap(src, dst [3]gocv.Point2f) affine {
	s := gocv.NewPoint2fVectorFromPoints(src[:])
	defer s.Close()
	d := gocv.NewPoint2fVectorFromPoints(dst[:])
	defer d.Close()
	m := gocv.GetAffineTransform2f(s, d)
	defer m.Close()

	var t affine
	for i := range t {
		t[i] = m.GetDoubleAt(i/3, i%3)
	}
	return t
}

// warpMaps returns CV_32FC1 maps holding, for each output pixel, the x and y
// source coordinate it samples. The frame is split into two triangles along
// the top-left to bottom-right diagonal, each with its own affine map.
func warpMaps(w, h int, offset float32) (gocv.Mat, gocv.Mat, error) {
	mapX := gocv.NewMatWithSize(h, w, gocv.MatTypeCV32F)
	mapY := gocv.NewMatWithSize(h, w, gocv.MatTypeCV32F)
	xs, err := mapX.DataPtrFloat32()
	if err == nil {
		var ys []float32
		if ys, err = mapY.DataPtrFloat32(); err == nil {
			fillWarp(xs, ys, w, h, offset)
			return mapX, mapY, nil
		}
	}
	mapX.Close()
	mapY.Close()
	return gocv.NewMat(), gocv.NewMat(), err
}

func fillWarp(xs, ys []float32, w, h int, offset float32) {
	// Degenerate frames have collinear corners and keep the identity map.
	degenerate := w < 2 || h < 2
	r, b := float32(w-1), float32(h-1)
	p0, p1, p2, p3 := gocv.Point2f{}, gocv.Point2f{Y: b}, gocv.Point2f{X: r}, gocv.Point2f{X: r, Y: b}
	q2, q3 := gocv.Point2f{X: r, Y: offset}, gocv.Point2f{X: r, Y: b - offset}

	var upper, lower affine
	if !degenerate {
		upper = triangleMap([3]gocv.Point2f{p0, p2, p3}, [3]gocv.Point2f{p0, q2, q3})
		lower = triangleMap([3]gocv.Point2f{p0, p1, p3}, [3]gocv.Point2f{p0, p1, q3})
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx, fy := float64(x), float64(y)
			sx, sy := fx, fy
			switch {
			case degenerate:
			case fy*float64(r) <= fx*float64(b):
				sx, sy = upper.apply(fx, fy)
			default:
				sx, sy = lower.apply(fx, fy)
			}
			i := y*w + x
			xs[i], ys[i] = snap(sx, float64(r)), snap(sy, float64(b))
		}
	}
}

// snap pulls coordinates within rounding error of the frame edge onto it so
// Remap does not blend in the border.
func snap(v, hi float64) float32 {
	const eps = 1e-3
	switch {
	case v < 0 && v > -eps:
		v = 0
	case v > hi && v < hi+eps:
		v = hi
	}
	return float32(v)
}
