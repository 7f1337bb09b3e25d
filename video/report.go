package video

import (
	"image"
	"time"
)

// Report describes one pipeline run. It is returned on every path, filled in
// as far as the run got.
type Report struct {
	BatchID string `json:",omitempty"`
	Input   string
	Output  string
	Kernel  string

	// Requested is the effective frame budget: the frame limit if one was
	// given, otherwise the reported total. Zero with ReadToEnd set means the
	// source did not report a total and was read until end-of-stream.
	Requested int
	ReadToEnd bool `json:",omitempty"`
	// Reported is the total frame count from container metadata.
	Reported int

	// Processed counts frames read from the source and passed to the kernel,
	// including dropped ones.
	Processed int
	Written   int
	Dropped   int
	// Fitted counts frames resized by the geometry guard.
	Fitted      int
	EndOfStream bool

	InputSize  image.Point
	OutputSize image.Point
	FPS        float64

	Started time.Time
	Elapsed time.Duration

	// OutputDurationSec is the duration read back from an mp4 output.
	OutputDurationSec int    `json:",omitempty"`
	Thumb             string `json:",omitempty"`
}

// Shortfall is the number of budgeted frames the source could not supply.
func (r *Report) Shortfall() int {
	if r.ReadToEnd || r.Processed >= r.Requested {
		return 0
	}
	return r.Requested - r.Processed
}

// Progress returns the fraction of the budget processed so far, or -1 when the
// total is not known.
func (r *Report) Progress() float64 {
	if r.ReadToEnd || r.Requested <= 0 {
		return -1
	}
	return float64(r.Processed) / float64(r.Requested)
}

// BatchReport summarizes a directory run.
type BatchReport struct {
	ID      string
	Started time.Time

	Found     int
	Succeeded int
	Failed    int
	Skipped   int
	// Ignored counts entries that are not recognized videos.
	Ignored int

	Reports []*Report
	Errors  map[string]error `json:"-"`
}
