package source

import (
	"image"

	"gocv.io/x/gocv"
)

// Memory is a Source over frames held in memory. Each Read hands out a copy,
// so the stored frames are never modified by consumers.
type Memory struct {
	Frames []gocv.Mat
	Rate   float64
	// Reported is returned by FrameCount. It defaults to len(Frames) and can be
	// set to simulate containers with inaccurate metadata.
	Reported int

	next   int
	closed bool
}

// NewSolid creates a Memory source of n frames of the given size, each filled
// with a single BGR color.
func NewSolid(n int, size image.Point, bgr gocv.Scalar) *Memory {
	m := &Memory{Rate: 30, Reported: n}
	for i := 0; i < n; i++ {
		m.Frames = append(m.Frames, gocv.NewMatWithSizeFromScalar(bgr, size.Y, size.X, gocv.MatTypeCV8UC3))
	}
	return m
}

func (m *Memory) Read(f *Frame) bool {
	if m.closed || m.next >= len(m.Frames) {
		return false
	}
	m.Frames[m.next].CopyTo(&f.Mat)
	f.Index = m.next
	m.next++
	return true
}

func (m *Memory) Size() image.Point {
	if len(m.Frames) == 0 {
		return image.Point{}
	}
	return image.Point{X: m.Frames[0].Cols(), Y: m.Frames[0].Rows()}
}

func (m *Memory) FPS() float64 {
	return m.Rate
}

func (m *Memory) FrameCount() int {
	return m.Reported
}

// Closed reports whether Close has been called.
func (m *Memory) Closed() bool {
	return m.closed
}

func (m *Memory) Close() error {
	m.closed = true
	return nil
}

// Release frees the stored frames.
func (m *Memory) Release() {
	for _, f := range m.Frames {
		f.Close()
	}
	m.Frames = nil
}
