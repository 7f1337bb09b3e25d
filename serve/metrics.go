package serve

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vidaug/video"
	"vidaug/video/source"
)

// Metrics exports pipeline progress to prometheus.
type Metrics struct {
	registry *prometheus.Registry

	frames   *prometheus.CounterVec
	files    *prometheus.CounterVec
	fitted   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	progress *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidaug_frames_total",
			Help: "Frames read by the pipeline, by kernel and result.",
		}, []string{"kernel", "result"}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidaug_files_total",
			Help: "Files processed, by kernel and status.",
		}, []string{"kernel", "status"}),
		fitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidaug_frames_fitted_total",
			Help: "Frames resized to fit the output.",
		}, []string{"kernel"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vidaug_file_seconds",
			Help:    "Wall time spent per file.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"kernel"}),
		progress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vidaug_file_progress_ratio",
			Help: "Fraction of the current file's frame budget processed.",
		}, []string{"kernel"}),
	}
	m.registry.MustRegister(m.frames, m.files, m.fitted, m.duration, m.progress)
	m.registry.MustRegister(collectors.NewGoCollector())
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) FileStarted(r *video.Report) {
	m.progress.WithLabelValues(r.Kernel).Set(0)
}

func (m *Metrics) FrameProcessed(r *video.Report, f *source.Frame) {
	result := "written"
	if f == nil {
		result = "dropped"
	}
	m.frames.WithLabelValues(r.Kernel, result).Inc()
	if p := r.Progress(); p >= 0 {
		m.progress.WithLabelValues(r.Kernel).Set(p)
	}
}

func (m *Metrics) FileFinished(r *video.Report, err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	m.files.WithLabelValues(r.Kernel, status).Inc()
	m.fitted.WithLabelValues(r.Kernel).Add(float64(r.Fitted))
	m.duration.WithLabelValues(r.Kernel).Observe(r.Elapsed.Seconds())
}
