package sink

import (
	"image"

	"vidaug/video/source"
)

// Sink defines a destination for a stream of frames, such as a video file.
type Sink interface {
	// Put appends a frame. The caller keeps ownership of the frame and may
	// release it once Put returns.
	Put(f source.Frame) error

	// Size returns the frame size the sink was created with.
	Size() image.Point

	// Close finalizes the output. It must be called exactly once.
	Close() error
}

// Options fixes the output of a sink at creation time.
type Options struct {
	Size image.Point
	FPS  float64
}

// Producer creates sinks for output paths.
type Producer interface {
	New(path string, opts Options) (Sink, error)
}

// ProducerFunc adapts a function to the Producer interface.
type ProducerFunc func(path string, opts Options) (Sink, error)

func (f ProducerFunc) New(path string, opts Options) (Sink, error) {
	return f(path, opts)
}
