// Package video runs frame kernels over video files and directories of them.
package video

import (
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/pillash/mp4util"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"vidaug/video/process"
	"vidaug/video/sink"
	"vidaug/video/source"
)

const (
	// DefaultFPS is used when a container reports no frame rate.
	DefaultFPS = 30.0

	// ExtThumb is appended to the output stem to name its thumbnail.
	ExtThumb = "_thumb.jpg"
)

// Pipeline applies one kernel to every frame of a video.
type Pipeline struct {
	Kernel process.Kernel

	// Open opens inputs. Defaults to source.OpenFile.
	Open source.Opener
	// Sinks creates outputs.
	Sinks sink.Producer
	// Geometry decides what happens to kernel output that does not match the
	// size of the output. Defaults to strict.
	Geometry sink.GeometryPolicy

	// Rand supplies all kernel randomness. A time-seeded source is used when
	// nil.
	Rand *rand.Rand

	Observer Observer

	// Probe replaces the container frame count with the one from ffprobe.
	Probe bool
	// Thumbnails writes a JPEG of the first written frame next to the output.
	Thumbnails bool

	// BatchID is copied into every report.
	BatchID string
}

// Run processes up to frameLimit frames of input into output. A negative
// frameLimit means the total reported by the source. The returned report is
// never nil.
func (p *Pipeline) Run(ctx context.Context, input, output string, frameLimit int) (r *Report, err error) {
	r = &Report{
		BatchID: p.BatchID,
		Input:   input,
		Output:  output,
		Kernel:  p.Kernel.Name(),
		Started: time.Now(),
	}
	obs := p.observer()
	obs.FileStarted(r)
	defer func() {
		r.Elapsed = time.Since(r.Started)
		obs.FileFinished(r, err)
	}()

	src, err := p.open(input)
	if err != nil {
		return r, errors.Wrapf(ErrSourceUnavailable, "%v: %v", input, err)
	}
	defer src.Close()

	r.InputSize = src.Size()
	r.Reported = src.FrameCount()
	r.FPS = src.FPS()
	if r.FPS <= 0 {
		log.Warnf("%v reports no frame rate, using %v", input, DefaultFPS)
		r.FPS = DefaultFPS
	}
	switch {
	case frameLimit >= 0:
		r.Requested = frameLimit
	case r.Reported > 0:
		r.Requested = r.Reported
	default:
		r.ReadToEnd = true
	}

	r.OutputSize = p.Kernel.OutputSize(r.InputSize)
	s, err := p.Sinks.New(output, sink.Options{Size: r.OutputSize, FPS: r.FPS})
	if err != nil {
		return r, errors.Wrapf(ErrSinkUnavailable, "%v: %v", output, err)
	}
	out := sink.NewGeometry(s, p.policy())

	err = p.loop(ctx, src, out, r, obs)
	r.Fitted = out.Fitted()
	if cerr := out.Close(); cerr != nil && err == nil {
		err = errors.Wrapf(cerr, "finalizing %v", output)
	}
	if err == nil {
		r.OutputDurationSec = outputDuration(output)
	}
	return r, err
}

func (p *Pipeline) loop(ctx context.Context, src source.Source, out sink.Sink, r *Report, obs Observer) error {
	rng := p.rand()
	for r.ReadToEnd || r.Processed < r.Requested {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "after %d frames", r.Processed)
		}

		f := source.NewFrame()
		if !src.Read(&f) {
			f.Close()
			r.EndOfStream = true
			return nil
		}
		r.Processed++

		dst, err := p.Kernel.Apply(f.Mat, rng)
		if err != nil || dst.Empty() {
			if err != nil {
				log.Debugf("%v: kernel failed on frame %d: %v", r.Input, f.Index, err)
			}
			dst.Close()
			f.Close()
			r.Dropped++
			obs.FrameProcessed(r, nil)
			continue
		}
		f.Replace(dst)

		if err := out.Put(f); err != nil {
			f.Close()
			return errors.Wrapf(err, "writing frame %d", f.Index)
		}
		r.Written++
		if r.Written == 1 && p.Thumbnails {
			p.writeThumb(r, f)
		}
		obs.FrameProcessed(r, &f)
		f.Close()
	}
	return nil
}

func (p *Pipeline) open(path string) (source.Source, error) {
	open := p.Open
	if open == nil {
		open = source.OpenFile
	}
	src, err := open(path)
	if err != nil {
		return nil, err
	}
	if p.Probe {
		probeFrameCount(path, src)
	}
	return src, nil
}

// probeFrameCount overrides the container frame count with ffprobe's, when
// the source allows it.
func probeFrameCount(path string, src source.Source) {
	s, ok := src.(interface{ SetFrameCount(int) })
	if !ok {
		return
	}
	md, err := source.Probe(path)
	if err != nil {
		log.Warnf("Probe of %v failed, keeping container frame count: %v", path, err)
		return
	}
	if md.Frames > 0 && md.Frames != src.FrameCount() {
		log.Debugf("%v: ffprobe counts %d frames, container reports %d", path, md.Frames, src.FrameCount())
		s.SetFrameCount(md.Frames)
	}
}

func (p *Pipeline) writeThumb(r *Report, f source.Frame) {
	path := strings.TrimSuffix(r.Output, filepath.Ext(r.Output)) + ExtThumb
	if err := process.WriteThumb(path, f.Mat); err != nil {
		log.Errorf("failed to generate thumbnail: %v", err)
		return
	}
	r.Thumb = path
}

func (p *Pipeline) observer() Observer {
	if p.Observer == nil {
		return Observers(nil)
	}
	return p.Observer
}

func (p *Pipeline) policy() sink.GeometryPolicy {
	if p.Geometry == "" {
		return sink.GeometryStrict
	}
	return p.Geometry
}

func (p *Pipeline) rand() *rand.Rand {
	if p.Rand == nil {
		p.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return p.Rand
}

// outputDuration reads the duration of mp4 family outputs, or 0.
func outputDuration(path string) int {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".mov", ".m4v":
	default:
		return 0
	}
	d, err := mp4util.Duration(path)
	if err != nil {
		log.Debugf("Unable to read duration of %v: %v", path, err)
		return 0
	}
	return d
}
