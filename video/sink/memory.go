package sink

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"vidaug/video/source"
)

// Memory is a Sink that keeps copies of every frame it receives.
type Memory struct {
	Frames []gocv.Mat
	Opts   Options

	closed bool
}

func NewMemory(opts Options) *Memory {
	return &Memory{Opts: opts}
}

func (m *Memory) Put(f source.Frame) error {
	if m.closed {
		return errors.New("put on closed sink")
	}
	m.Frames = append(m.Frames, f.Mat.Clone())
	return nil
}

func (m *Memory) Size() image.Point {
	return m.Opts.Size
}

// Closed reports whether Close has been called.
func (m *Memory) Closed() bool {
	return m.closed
}

func (m *Memory) Close() error {
	if m.closed {
		return errors.New("sink already closed")
	}
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
