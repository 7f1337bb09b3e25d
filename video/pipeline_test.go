package video

import (
	"context"
	"image"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidaug/video/process"
	"vidaug/video/sink"
	"vidaug/video/source"
)

var vga = image.Point{X: 640, Y: 480}

func TestRunBrightnessScenario(t *testing.T) {
	h := newHarness(10, vga)
	defer h.release()
	p := h.pipeline(&process.Add{Offset: 50})

	r, err := p.Run(context.Background(), "in.mp4", "out.mp4", -1)
	require.NoError(t, err)

	assert.Equal(t, 10, r.Requested)
	assert.Equal(t, 10, r.Processed)
	assert.Equal(t, 10, r.Written)
	assert.Equal(t, 0, r.Dropped)
	assert.False(t, r.EndOfStream)
	assert.Equal(t, vga, r.OutputSize)

	out := h.sink("out.mp4")
	require.NotNil(t, out)
	assert.True(t, out.Closed())
	require.Len(t, out.Frames, 10)
	in := h.sources[0].Frames[0].ToBytes()
	for _, f := range out.Frames {
		assert.Equal(t, vga, image.Point{X: f.Cols(), Y: f.Rows()})
		b := f.ToBytes()
		assert.Equal(t, []byte{60, 70, 80}, b[:3])
		for i := range b {
			if b[i] < in[i] {
				t.Fatalf("sample %d darkened: %d < %d", i, b[i], in[i])
			}
		}
	}
	assert.True(t, h.sources[0].Closed())
}

func TestRunShortfall(t *testing.T) {
	h := newHarness(5, image.Point{X: 32, Y: 24})
	defer h.release()
	p := h.pipeline(&stubKernel{})

	r, err := p.Run(context.Background(), "in.mp4", "out.mp4", 100)
	require.NoError(t, err)

	assert.Equal(t, 100, r.Requested)
	assert.Equal(t, 5, r.Processed)
	assert.True(t, r.EndOfStream)
	assert.Equal(t, 95, r.Shortfall())
	assert.Len(t, h.sink("out.mp4").Frames, 5)
}

func TestRunZeroLimit(t *testing.T) {
	h := newHarness(5, image.Point{X: 32, Y: 24})
	defer h.release()
	k := &stubKernel{}
	p := h.pipeline(k)

	r, err := p.Run(context.Background(), "in.mp4", "out.mp4", 0)
	require.NoError(t, err)

	assert.Equal(t, 0, r.Processed)
	assert.Equal(t, 0, k.calls)
	out := h.sink("out.mp4")
	assert.Empty(t, out.Frames)
	assert.True(t, out.Closed())
}

func TestRunBudgetFromReportedCount(t *testing.T) {
	h := newHarness(5, image.Point{X: 32, Y: 24})
	defer h.release()
	reported := 3
	h.reported = &reported
	p := h.pipeline(&stubKernel{})

	r, err := p.Run(context.Background(), "in.mp4", "out.mp4", -1)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Requested)
	assert.Equal(t, 3, r.Processed)
	assert.False(t, r.EndOfStream)
	assert.Equal(t, 0, r.Shortfall())
}

func TestRunUnknownCountReadsToEnd(t *testing.T) {
	h := newHarness(7, image.Point{X: 32, Y: 24})
	defer h.release()
	reported := 0
	h.reported = &reported
	p := h.pipeline(&stubKernel{})

	r, err := p.Run(context.Background(), "in.mp4", "out.mp4", -1)
	require.NoError(t, err)
	assert.True(t, r.ReadToEnd)
	assert.Equal(t, 7, r.Processed)
	assert.True(t, r.EndOfStream)
	assert.Equal(t, 0, r.Shortfall())
	assert.Equal(t, -1.0, r.Progress())
}

func TestRunProcessedNeverExceedsBudget(t *testing.T) {
	for _, frames := range []int{0, 1, 4, 9} {
		for _, limit := range []int{0, 1, 5, 8} {
			h := newHarness(frames, image.Point{X: 8, Y: 8})
			p := h.pipeline(&stubKernel{})
			r, err := p.Run(context.Background(), "in.mp4", "out.mp4", limit)
			require.NoError(t, err)
			assert.LessOrEqual(t, r.Processed, limit)
			if r.Processed < limit {
				assert.True(t, r.EndOfStream, "frames=%d limit=%d", frames, limit)
			}
			h.release()
		}
	}
}

func TestRunDropsFrames(t *testing.T) {
	h := newHarness(6, image.Point{X: 16, Y: 16})
	defer h.release()
	k := &stubKernel{
		drop: map[int]bool{1: true, 4: true},
		fail: map[int]bool{2: true},
	}
	p := h.pipeline(k)
	obs := &recorder{}
	p.Observer = Observers{obs}

	r, err := p.Run(context.Background(), "in.mp4", "out.mp4", -1)
	require.NoError(t, err)
	assert.Equal(t, 6, r.Processed)
	assert.Equal(t, 3, r.Dropped)
	assert.Equal(t, 3, r.Written)
	assert.Len(t, h.sink("out.mp4").Frames, 3)

	assert.Equal(t, 1, obs.started)
	assert.Equal(t, 3, obs.frames)
	assert.Equal(t, 3, obs.drops)
	assert.Equal(t, 1, obs.finished)
	assert.NoError(t, obs.lastErr)
}

func TestRunSourceUnavailable(t *testing.T) {
	h := newHarness(3, image.Point{X: 16, Y: 16})
	defer h.release()
	h.broken["missing.mp4"] = true
	p := h.pipeline(&stubKernel{})

	r, err := p.Run(context.Background(), "missing.mp4", "out.mp4", -1)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	assert.NotNil(t, r)
	assert.Equal(t, 0, h.sinkCount())
}

func TestRunSinkUnavailableReleasesSource(t *testing.T) {
	h := newHarness(3, image.Point{X: 16, Y: 16})
	defer h.release()
	p := h.pipeline(&stubKernel{})
	p.Sinks = sink.ProducerFunc(func(path string, opts sink.Options) (sink.Sink, error) {
		return nil, errors.New("read-only filesystem")
	})

	_, err := p.Run(context.Background(), "in.mp4", "out.mp4", -1)
	assert.True(t, errors.Is(err, ErrSinkUnavailable))
	require.Len(t, h.sources, 1)
	assert.True(t, h.sources[0].Closed())
}

func TestRunFFmpegUnwritableOutput(t *testing.T) {
	h := newHarness(3, image.Point{X: 16, Y: 16})
	defer h.release()
	p := h.pipeline(&stubKernel{})
	p.Sinks = &SinkProducer{Encoder: EncoderFFmpeg}

	out := filepath.Join(t.TempDir(), "missing", "out.mp4")
	_, err := p.Run(context.Background(), "in.mp4", out, -1)
	assert.True(t, errors.Is(err, ErrSinkUnavailable))
	require.Len(t, h.sources, 1)
	assert.True(t, h.sources[0].Closed())
}

func TestRunStrictGeometryAborts(t *testing.T) {
	h := newHarness(4, image.Point{X: 16, Y: 16})
	defer h.release()
	p := h.pipeline(&stubKernel{size: image.Point{X: 8, Y: 8}})

	r, err := p.Run(context.Background(), "in.mp4", "out.mp4", -1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGeometryMismatch))
	var gm *sink.GeometryMismatchError
	require.True(t, errors.As(err, &gm))
	assert.Equal(t, 0, gm.Frame)
	assert.Equal(t, image.Point{X: 16, Y: 16}, gm.Want)
	assert.Equal(t, image.Point{X: 8, Y: 8}, gm.Got)

	assert.Equal(t, 0, r.Written)
	assert.True(t, h.sink("out.mp4").Closed())
	assert.True(t, h.sources[0].Closed())
}

func TestRunFitGeometry(t *testing.T) {
	h := newHarness(4, image.Point{X: 64, Y: 48})
	defer h.release()
	p := h.pipeline(process.NewDownsample(0.5, 1.0))
	p.Geometry = sink.GeometryFit

	r, err := p.Run(context.Background(), "in.mp4", "out.mp4", -1)
	require.NoError(t, err)
	assert.Equal(t, image.Point{X: 32, Y: 24}, r.OutputSize)
	assert.Equal(t, 4, r.Written)
	for _, f := range h.sink("out.mp4").Frames {
		assert.Equal(t, 32, f.Cols())
		assert.Equal(t, 24, f.Rows())
	}
}

type failingSink struct {
	sink.Sink
	after int
}

func (s *failingSink) Put(f source.Frame) error {
	if s.after == 0 {
		return errors.New("disk full")
	}
	s.after--
	return s.Sink.Put(f)
}

func TestRunSinkWriteFailure(t *testing.T) {
	h := newHarness(5, image.Point{X: 16, Y: 16})
	defer h.release()
	p := h.pipeline(&stubKernel{})
	p.Sinks = sink.ProducerFunc(func(path string, opts sink.Options) (sink.Sink, error) {
		s, err := h.newSink(path, opts)
		return &failingSink{Sink: s, after: 2}, err
	})

	r, err := p.Run(context.Background(), "in.mp4", "out.mp4", -1)
	require.Error(t, err)
	assert.Equal(t, 2, r.Written)
	assert.True(t, h.sink("out.mp4").Closed())
	assert.True(t, h.sources[0].Closed())
}

func TestRunCancelled(t *testing.T) {
	h := newHarness(5, image.Point{X: 16, Y: 16})
	defer h.release()
	p := h.pipeline(&stubKernel{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := p.Run(ctx, "in.mp4", "out.mp4", -1)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, r.Processed)
	assert.True(t, h.sources[0].Closed())
	assert.True(t, h.sink("out.mp4").Closed())
}

func TestRunSeededIsReproducible(t *testing.T) {
	run := func() [][]byte {
		h := newHarness(3, image.Point{X: 64, Y: 64})
		defer h.release()
		p := h.pipeline(&process.Noise{Probability: 0.2, Value: 255})
		p.Rand = rand.New(rand.NewSource(42))
		_, err := p.Run(context.Background(), "in.mp4", "out.mp4", -1)
		require.NoError(t, err)
		var out [][]byte
		for _, f := range h.sink("out.mp4").Frames {
			out = append(out, f.ToBytes())
		}
		return out
	}
	assert.Equal(t, run(), run())
}
