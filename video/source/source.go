package source

import (
	"image"

	"gocv.io/x/gocv"
)

// Frame is one decoded picture of a video. Mat holds 8-bit BGR samples.
type Frame struct {
	Mat gocv.Mat
	// Index is the 0-based position of the frame in its source.
	Index int

	closed bool
}

// NewFrame allocates an empty frame ready to be passed to Source.Read.
func NewFrame() Frame {
	return Frame{
		Mat: gocv.NewMat(),
	}
}

// Size returns the frame dimensions as (cols, rows).
func (f *Frame) Size() image.Point {
	return image.Point{X: f.Mat.Cols(), Y: f.Mat.Rows()}
}

func (f *Frame) Close() {
	if f.closed {
		panic("frame already closed")
	}
	f.closed = true
	f.Mat.Close()
}

// Replace swaps in a new Mat for this frame, releasing the previous one. m
// must not share storage with the current Mat.
func (f *Frame) Replace(m gocv.Mat) {
	f.Mat.Close()
	f.Mat = m
}

// Source defines a finite stream of frames read from a video container.
type Source interface {
	// Read decodes the next frame into f and sets its index. It returns false
	// once the stream is exhausted or the container cannot yield more frames.
	Read(f *Frame) bool

	// Size returns the frame size of the source.
	Size() image.Point

	// FPS returns the frame rate reported by the container.
	FPS() float64

	// FrameCount returns the number of frames reported by the container. The
	// value may be approximate, or zero when unknown.
	FrameCount() int

	// Close releases the underlying capture handle.
	Close() error
}

// Opener opens a Source for the given path.
type Opener func(path string) (Source, error)
