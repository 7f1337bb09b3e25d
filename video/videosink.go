package video

import (
	"github.com/pkg/errors"

	"vidaug/video/sink"
)

const (
	EncoderOpenCV = "opencv"
	EncoderFFmpeg = "ffmpeg"
)

// SinkProducer creates output files with the configured encoder.
type SinkProducer struct {
	// Encoder is EncoderOpenCV or EncoderFFmpeg.
	Encoder string
	// Codec is the fourcc used by the OpenCV writer.
	Codec         string
	FFmpegOptions sink.FFmpegOptions
}

func (p *SinkProducer) New(path string, opts sink.Options) (sink.Sink, error) {
	var (
		s   sink.Sink
		err error
	)
	switch p.Encoder {
	case EncoderOpenCV, "":
		s, err = sink.NewVideo(path, p.Codec, opts)
	case EncoderFFmpeg:
		s, err = sink.NewFFmpeg(path, opts, p.FFmpegOptions)
	default:
		return nil, errors.Errorf("unknown encoder %q", p.Encoder)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
