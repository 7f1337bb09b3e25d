package process

import (
	"math"
	"math/rand"

	"gocv.io/x/gocv"
)

// Superpixel segments each frame into roughly sqrt(w*h)/Divisor superpixels
// and keeps only the pixels on superpixel boundaries; everything else turns
// black.
type Superpixel struct {
	sameSize
	Divisor    float64
	Iterations int
}

func (k *Superpixel) Name() string { return "superpixel" }

func (k *Superpixel) Apply(src gocv.Mat, _ *rand.Rand) (gocv.Mat, error) {
	if err := checkBGR(src); err != nil {
		return gocv.NewMat(), err
	}
	w, h := src.Cols(), src.Rows()
	n := int(math.Sqrt(float64(w*h)) / k.Divisor)
	if n < 1 {
		n = 1
	}

	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(src, &lab, gocv.ColorBGRToLab)

	labels := slic(lab.ToBytes(), w, h, n, k.Iterations)
	mask := contourMask(labels, w, h)

	keep := make([]byte, w*h)
	for i, on := range mask {
		if on {
			keep[i] = 255
		}
	}
	m, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8U, keep)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer m.Close()

	dst := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), h, w, gocv.MatTypeCV8UC3)
	src.CopyToWithMask(&dst, m)
	return dst, nil
}

type cluster struct {
	l, a, b, x, y float64
	// maxColor is the largest squared color distance seen in the cluster on
	// the previous pass; it normalizes color distance per cluster so that
	// smooth and textured regions get comparably compact superpixels.
	maxColor float64
}

// slic clusters a packed 8-bit Lab buffer into about k superpixels and returns
// a label per pixel.
func slic(lab []byte, w, h, k, iterations int) []int32 {
	step := math.Sqrt(float64(w*h) / float64(k))
	nx := max(1, int(math.Round(float64(w)/step)))
	ny := max(1, int(math.Round(float64(h)/step)))
	sx, sy := float64(w)/float64(nx), float64(h)/float64(ny)
	s := math.Max(sx, sy)

	clusters := make([]cluster, 0, nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			x, y := (float64(i)+0.5)*sx, (float64(j)+0.5)*sy
			p := 3 * (int(y)*w + int(x))
			clusters = append(clusters, cluster{
				l: float64(lab[p]), a: float64(lab[p+1]), b: float64(lab[p+2]),
				x: x, y: y,
				maxColor: 100,
			})
		}
	}

	// Start from the seeding grid so every pixel always carries a label, even
	// if no center's search window reaches it later.
	labels := make([]int32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cx := clamp(int(float64(x)/sx), 0, nx-1)
			cy := clamp(int(float64(y)/sy), 0, ny-1)
			labels[y*w+x] = int32(cy*nx + cx)
		}
	}

	dist := make([]float64, w*h)
	for it := 0; it < iterations; it++ {
		for i := range dist {
			dist[i] = math.Inf(1)
		}
		for ci, c := range clusters {
			x0, x1 := clamp(int(c.x-s), 0, w-1), clamp(int(c.x+s), 0, w-1)
			y0, y1 := clamp(int(c.y-s), 0, h-1), clamp(int(c.y+s), 0, h-1)
			for y := y0; y <= y1; y++ {
				for x := x0; x <= x1; x++ {
					p := y*w + x
					d := colorDist(lab[3*p:3*p+3], c)/c.maxColor + spatialDist(x, y, c)/(s*s)
					if d < dist[p] {
						dist[p] = d
						labels[p] = int32(ci)
					}
				}
			}
		}

		type acc struct{ l, a, b, x, y, n, maxColor float64 }
		sums := make([]acc, len(clusters))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				p := y*w + x
				ci := labels[p]
				px := lab[3*p : 3*p+3]
				sm := &sums[ci]
				sm.l += float64(px[0])
				sm.a += float64(px[1])
				sm.b += float64(px[2])
				sm.x += float64(x)
				sm.y += float64(y)
				sm.n++
				sm.maxColor = math.Max(sm.maxColor, colorDist(px, clusters[ci]))
			}
		}
		for ci := range clusters {
			sm := sums[ci]
			if sm.n == 0 {
				continue
			}
			clusters[ci] = cluster{
				l: sm.l / sm.n, a: sm.a / sm.n, b: sm.b / sm.n,
				x: sm.x / sm.n, y: sm.y / sm.n,
				maxColor: math.Max(sm.maxColor, 1),
			}
		}
	}
	return labels
}

func colorDist(px []byte, c cluster) float64 {
	dl := float64(px[0]) - c.l
	da := float64(px[1]) - c.a
	db := float64(px[2]) - c.b
	return dl*dl + da*da + db*db
}

func spatialDist(x, y int, c cluster) float64 {
	dx := float64(x) - c.x
	dy := float64(y) - c.y
	return dx*dx + dy*dy
}

// contourMask marks both pixels of every horizontally or vertically adjacent
// pair with different labels.
func contourMask(labels []int32, w, h int) []bool {
	mask := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := y*w + x
			if x+1 < w && labels[p] != labels[p+1] {
				mask[p], mask[p+1] = true, true
			}
			if y+1 < h && labels[p] != labels[p+w] {
				mask[p], mask[p+w] = true, true
			}
		}
	}
	return mask
}
