package video

import (
	"time"

	log "github.com/sirupsen/logrus"

	"vidaug/video/source"
)

// Observer is notified of pipeline progress. Calls happen on the pipeline's
// goroutine, so implementations must not block.
type Observer interface {
	FileStarted(r *Report)
	// FrameProcessed is called after each frame. f is nil when the frame was
	// dropped; otherwise it holds the written frame, valid only for the
	// duration of the call.
	FrameProcessed(r *Report, f *source.Frame)
	FileFinished(r *Report, err error)
}

// Observers fans out to every member.
type Observers []Observer

func (o Observers) FileStarted(r *Report) {
	for _, x := range o {
		x.FileStarted(r)
	}
}

func (o Observers) FrameProcessed(r *Report, f *source.Frame) {
	for _, x := range o {
		x.FrameProcessed(r, f)
	}
}

func (o Observers) FileFinished(r *Report, err error) {
	for _, x := range o {
		x.FileFinished(r, err)
	}
}

// DefaultLogProgress is the default interval between progress lines.
const DefaultLogProgress = 5 * time.Second

// LogObserver writes progress to the standard logger.
type LogObserver struct {
	// Interval is the time between info progress lines of a running file.
	// Defaults to DefaultLogProgress.
	Interval time.Duration
	// Every sets how many frames pass between debug progress lines.
	Every int

	last time.Time
}

func (l *LogObserver) FileStarted(r *Report) {
	l.last = r.Started
	log.WithFields(log.Fields{
		"kernel": r.Kernel,
		"output": r.Output,
	}).Infof("Processing %v", r.Input)
}

func (l *LogObserver) FrameProcessed(r *Report, f *source.Frame) {
	if f == nil {
		log.Warnf("%v: dropped frame %d", r.Input, r.Processed-1)
		return
	}
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultLogProgress
	}
	every := l.Every
	if every <= 0 {
		every = 100
	}
	level := log.DebugLevel
	if now := time.Now(); now.Sub(l.last) >= interval {
		l.last = now
		level = log.InfoLevel
	} else if r.Processed%every != 0 {
		return
	}
	if p := r.Progress(); p >= 0 {
		log.StandardLogger().Logf(level, "%v: %d/%d frames (%.0f%%)", r.Input, r.Processed, r.Requested, 100*p)
	} else {
		log.StandardLogger().Logf(level, "%v: %d frames", r.Input, r.Processed)
	}
}

func (l *LogObserver) FileFinished(r *Report, err error) {
	clog := log.WithFields(log.Fields{
		"kernel":    r.Kernel,
		"processed": r.Processed,
		"written":   r.Written,
		"dropped":   r.Dropped,
		"elapsed":   r.Elapsed.Round(time.Millisecond),
	})
	if err != nil {
		clog.Errorf("Failed %v: %v", r.Input, err)
		return
	}
	if s := r.Shortfall(); s > 0 {
		clog.Warnf("%v ended %d frames short of %d", r.Input, s, r.Requested)
	}
	if r.Fitted > 0 {
		clog.Warnf("%v: %d frames resized to fit the output", r.Input, r.Fitted)
	}
	clog.Infof("Wrote %v", r.Output)
}
