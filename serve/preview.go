package serve

import (
	"vidaug/video"
	"vidaug/video/sink"
	"vidaug/video/source"
)

// PreviewStream is the name of the MJPEG stream carrying kernel output.
const PreviewStream = "output"

// Preview publishes written frames to an MJPEG stream.
type Preview struct {
	Stream *sink.MJPEGStream
}

func (p *Preview) FileStarted(r *video.Report) {}

func (p *Preview) FrameProcessed(r *video.Report, f *source.Frame) {
	if f != nil {
		p.Stream.Put(f.Mat)
	}
}

func (p *Preview) FileFinished(r *video.Report, err error) {}
