package sink

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"vidaug/video/source"
)

// ErrGeometryMismatch is matched by errors.Is for any GeometryMismatchError.
var ErrGeometryMismatch = errors.New("frame geometry does not match sink")

// GeometryMismatchError reports a frame whose size differs from the size the
// sink was created with.
type GeometryMismatchError struct {
	Frame int
	Want  image.Point
	Got   image.Point
}

func (e *GeometryMismatchError) Error() string {
	return fmt.Sprintf("frame %d is %dx%d, sink expects %dx%d", e.Frame, e.Got.X, e.Got.Y, e.Want.X, e.Want.Y)
}

func (e *GeometryMismatchError) Is(target error) bool {
	return target == ErrGeometryMismatch
}

// GeometryPolicy decides what happens to a frame whose size differs from the
// sink's.
type GeometryPolicy string

const (
	// GeometryStrict rejects mismatching frames with a GeometryMismatchError.
	GeometryStrict GeometryPolicy = "strict"
	// GeometryFit resizes mismatching frames to the sink size.
	GeometryFit GeometryPolicy = "fit"
)

func ParseGeometryPolicy(s string) (GeometryPolicy, error) {
	switch p := GeometryPolicy(s); p {
	case GeometryStrict, GeometryFit:
		return p, nil
	case "":
		return GeometryStrict, nil
	}
	return "", fmt.Errorf("unknown geometry policy %q", s)
}

// Geometry wraps another Sink so that every frame it receives matches the
// wrapped sink's size. Encoders silently produce corrupt output when fed
// frames of the wrong size, so the check happens before the write.
type Geometry struct {
	// sink is the wrapped Sink which only ever receives correctly sized frames.
	sink   Sink
	policy GeometryPolicy

	fitted  int
	scratch gocv.Mat
}

// NewGeometry creates a Geometry guard around sink applying policy.
func NewGeometry(sink Sink, policy GeometryPolicy) *Geometry {
	return &Geometry{
		sink:    sink,
		policy:  policy,
		scratch: gocv.NewMat(),
	}
}

func (g *Geometry) Put(f source.Frame) error {
	want := g.sink.Size()
	got := f.Size()
	if got == want {
		return g.sink.Put(f)
	}
	if g.policy != GeometryFit {
		return &GeometryMismatchError{Frame: f.Index, Want: want, Got: got}
	}

	gocv.Resize(f.Mat, &g.scratch, want, 0, 0, gocv.InterpolationLinear)
	g.fitted++
	log.Debugf("Fitted frame %d from %dx%d to %dx%d", f.Index, got.X, got.Y, want.X, want.Y)
	return g.sink.Put(source.Frame{Mat: g.scratch, Index: f.Index})
}

// Fitted returns the number of frames resized so far under GeometryFit.
func (g *Geometry) Fitted() int {
	return g.fitted
}

func (g *Geometry) Size() image.Point {
	return g.sink.Size()
}

func (g *Geometry) Close() error {
	defer g.scratch.Close()
	return g.sink.Close()
}
