package sink

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"vidaug/video/source"
)

// DefaultCodec is the fourcc used by the OpenCV writer when none is given.
const DefaultCodec = "mp4v"

// Video provides a sink that wraps opencv's VideoWriter. The container is
// chosen by OpenCV from the output file extension.
type Video struct {
	writer *gocv.VideoWriter
	size   image.Point
}

func NewVideo(path string, codec string, opts Options) (*Video, error) {
	if codec == "" {
		codec = DefaultCodec
	}
	if len(codec) != 4 {
		return nil, fmt.Errorf("codec %q is not a fourcc", codec)
	}
	w, err := gocv.VideoWriterFile(path, codec, opts.FPS, opts.Size.X, opts.Size.Y, true)
	if err != nil {
		return nil, err
	}
	if !w.IsOpened() {
		w.Close()
		return nil, fmt.Errorf("writer for %v did not open", path)
	}
	return &Video{
		writer: w,
		size:   opts.Size,
	}, nil
}

func (v *Video) Put(f source.Frame) error {
	return v.writer.Write(f.Mat)
}

func (v *Video) Size() image.Point {
	return v.size
}

func (v *Video) Close() error {
	return v.writer.Close()
}
