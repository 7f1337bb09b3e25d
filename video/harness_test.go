package video

import (
	"image"
	"math/rand"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"vidaug/video/process"
	"vidaug/video/sink"
	"vidaug/video/source"
)

// harness wires a Pipeline to in-memory sources and sinks.
type harness struct {
	frames int
	size   image.Point
	color  gocv.Scalar
	// reported overrides the frame count the sources report when non-nil.
	reported *int
	// broken names inputs that fail to open.
	broken map[string]bool
	// touch creates an empty file at every output path.
	touch bool

	mu      sync.Mutex
	sources []*source.Memory
	sinks   map[string]*sink.Memory
}

func newHarness(frames int, size image.Point) *harness {
	return &harness{
		frames: frames,
		size:   size,
		color:  gocv.NewScalar(10, 20, 30, 0),
		broken: make(map[string]bool),
		sinks:  make(map[string]*sink.Memory),
	}
}

func (h *harness) open(path string) (source.Source, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.broken[path] {
		return nil, errors.New("cannot demux")
	}
	m := source.NewSolid(h.frames, h.size, h.color)
	if h.reported != nil {
		m.Reported = *h.reported
	}
	h.sources = append(h.sources, m)
	return m, nil
}

func (h *harness) newSink(path string, opts sink.Options) (sink.Sink, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.touch {
		if err := os.WriteFile(path, nil, 0644); err != nil {
			return nil, err
		}
	}
	m := sink.NewMemory(opts)
	h.sinks[path] = m
	return m, nil
}

func (h *harness) pipeline(k process.Kernel) *Pipeline {
	return &Pipeline{
		Kernel: k,
		Open:   h.open,
		Sinks:  sink.ProducerFunc(h.newSink),
		Rand:   rand.New(rand.NewSource(1)),
	}
}

func (h *harness) sink(path string) *sink.Memory {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sinks[path]
}

func (h *harness) sinkCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sinks)
}

func (h *harness) release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sources {
		s.Release()
	}
	for _, s := range h.sinks {
		s.Release()
	}
}

// stubKernel returns a copy of the frame, except for the indexes listed in
// drop (empty result) and fail (error).
type stubKernel struct {
	drop map[int]bool
	fail map[int]bool
	// size, when set, is the size of every output frame.
	size image.Point

	calls int
}

func (k *stubKernel) Name() string { return "stub" }

func (k *stubKernel) Apply(src gocv.Mat, _ *rand.Rand) (gocv.Mat, error) {
	i := k.calls
	k.calls++
	switch {
	case k.fail[i]:
		return gocv.NewMat(), errors.New("kernel failed")
	case k.drop[i]:
		return gocv.NewMat(), nil
	case k.size != (image.Point{}):
		return gocv.NewMatWithSize(k.size.Y, k.size.X, gocv.MatTypeCV8UC3), nil
	}
	return src.Clone(), nil
}

func (k *stubKernel) OutputSize(src image.Point) image.Point {
	return src
}

// recorder is an Observer that counts calls.
type recorder struct {
	started, frames, drops, finished int
	lastErr                          error
}

func (o *recorder) FileStarted(r *Report) { o.started++ }

func (o *recorder) FrameProcessed(r *Report, f *source.Frame) {
	if f == nil {
		o.drops++
		return
	}
	o.frames++
}

func (o *recorder) FileFinished(r *Report, err error) {
	o.finished++
	o.lastErr = err
}
