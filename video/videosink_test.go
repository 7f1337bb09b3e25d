package video

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"vidaug/video/sink"
)

func TestSinkProducerRejectsBadSettings(t *testing.T) {
	opts := sink.Options{Size: image.Point{X: 16, Y: 16}, FPS: 30}
	out := filepath.Join(t.TempDir(), "out.mp4")

	_, err := (&SinkProducer{Encoder: "gstreamer"}).New(out, opts)
	assert.Error(t, err)

	s, err := (&SinkProducer{Encoder: EncoderOpenCV, Codec: "h264x"}).New(out, opts)
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestReportShortfall(t *testing.T) {
	r := &Report{Requested: 100, Processed: 5, EndOfStream: true}
	assert.Equal(t, 95, r.Shortfall())
	assert.Equal(t, 0.05, r.Progress())

	r = &Report{Requested: 10, Processed: 10}
	assert.Equal(t, 0, r.Shortfall())

	r = &Report{ReadToEnd: true, Processed: 12, EndOfStream: true}
	assert.Equal(t, 0, r.Shortfall())
	assert.Equal(t, -1.0, r.Progress())
}
