// Package serve hosts the monitoring endpoints of a running pipeline.
package serve

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	log "github.com/sirupsen/logrus"

	"vidaug/ledger"
	"vidaug/video"
	"vidaug/video/sink"
)

// Monitor bundles the observers backing the monitoring endpoints.
type Monitor struct {
	Addr string

	Metrics  *Metrics
	Progress *ProgressUpdater
	Previews *sink.MJPEGServer
	// Ledger is optional; without it /runs, /output and /thumb are absent.
	Ledger *ledger.Ledger
}

func NewMonitor(addr string, previewInterval, progressInterval time.Duration, l *ledger.Ledger) *Monitor {
	return &Monitor{
		Addr:     addr,
		Metrics:  NewMetrics(),
		Progress: NewProgressUpdater(progressInterval),
		Previews: sink.NewMJPEGServer(previewInterval),
		Ledger:   l,
	}
}

// Observers returns the pipeline observers feeding the endpoints.
func (m *Monitor) Observers() video.Observers {
	return video.Observers{
		m.Metrics,
		m.Progress,
		&Preview{Stream: m.Previews.Stream(PreviewStream)},
	}
}

func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Metrics.Handler())
	mux.Handle("/progress", m.Progress)
	mux.Handle("/preview", m.Previews)
	if m.Ledger != nil {
		mux.Handle("/runs", &RunsServer{Ledger: m.Ledger})
		mux.Handle("/output", NewOutputServer(m.Ledger))
		mux.Handle("/thumb", NewThumbServer(m.Ledger))
	}
	access := log.StandardLogger().WriterLevel(log.DebugLevel)
	return handlers.RecoveryHandler()(handlers.CombinedLoggingHandler(access, mux))
}

// Serve runs the HTTP server until ctx is done.
func (m *Monitor) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    m.Addr,
		Handler: m.Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()
	log.Infof("Hosting monitor on %v", m.Addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
