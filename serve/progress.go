package serve

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"vidaug/video"
	"vidaug/video/source"
)

const (
	// Time allowed to write message to the client
	writeWait  = 10 * time.Second
	pingPeriod = 10 * time.Second
)

// Progress is the JSON message sent to websocket clients.
type Progress struct {
	Event     string
	BatchID   string `json:",omitempty"`
	Input     string
	Output    string
	Kernel    string
	Requested int
	Processed int
	Written   int
	Dropped   int
	// Fraction is -1 when the source length is unknown.
	Fraction float64
	Error    string `json:",omitempty"`
}

func newProgress(event string, r *video.Report) *Progress {
	return &Progress{
		Event:     event,
		BatchID:   r.BatchID,
		Input:     r.Input,
		Output:    r.Output,
		Kernel:    r.Kernel,
		Requested: r.Requested,
		Processed: r.Processed,
		Written:   r.Written,
		Dropped:   r.Dropped,
		Fraction:  r.Progress(),
	}
}

// ProgressUpdater streams pipeline progress to websocket clients. Slow
// clients miss updates rather than holding up the pipeline.
type ProgressUpdater struct {
	// Interval limits how often frame updates are sent.
	Interval time.Duration

	upgrader websocket.Upgrader
	cs       map[chan []byte]bool
	addc     chan chan []byte
	delc     chan chan []byte
	notify   chan []byte
	clients  int32
	last     time.Time
}

func NewProgressUpdater(interval time.Duration) *ProgressUpdater {
	m := &ProgressUpdater{
		Interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		cs:     make(map[chan []byte]bool),
		addc:   make(chan chan []byte),
		delc:   make(chan chan []byte),
		notify: make(chan []byte, 16),
	}
	go func() {
		for {
			select {
			case c := <-m.addc:
				m.cs[c] = true
				atomic.StoreInt32(&m.clients, int32(len(m.cs)))
			case c := <-m.delc:
				delete(m.cs, c)
				atomic.StoreInt32(&m.clients, int32(len(m.cs)))
			case b := <-m.notify:
				for c := range m.cs {
					select {
					case c <- b:
					default:
					}
				}
			}
		}
	}()
	return m
}

// Clients returns the number of connected clients.
func (m *ProgressUpdater) Clients() int {
	return int(atomic.LoadInt32(&m.clients))
}

func (m *ProgressUpdater) send(p *Progress) {
	if m.Clients() == 0 {
		return
	}
	b, err := json.Marshal(p)
	if err != nil {
		log.Errorf("Failed to encode progress: %v", err)
		return
	}
	select {
	case m.notify <- b:
	default:
	}
}

func (m *ProgressUpdater) FileStarted(r *video.Report) {
	m.send(newProgress("started", r))
}

// FrameProcessed is only called from the pipeline goroutine, so last needs no
// locking.
func (m *ProgressUpdater) FrameProcessed(r *video.Report, f *source.Frame) {
	now := time.Now()
	if now.Sub(m.last) < m.Interval {
		return
	}
	m.last = now
	m.send(newProgress("frame", r))
}

func (m *ProgressUpdater) FileFinished(r *video.Report, err error) {
	p := newProgress("finished", r)
	if err != nil {
		p.Error = err.Error()
	}
	m.send(p)
}

func (m *ProgressUpdater) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if _, ok := err.(websocket.HandshakeError); !ok {
			log.WithField("addr", r.RemoteAddr).Errorf("Websocket handshake failed for progress stream: %v", err)
		}
		return
	}
	go m.serve(ws)
}

func (m *ProgressUpdater) serve(ws *websocket.Conn) {
	clog := log.WithField("addr", ws.RemoteAddr())
	clog.Info("connected to progress socket")
	defer func() {
		ws.Close()
		clog.Info("disconnected from progress socket")
	}()
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	c := make(chan []byte, 8)
	m.addc <- c
	defer func() { m.delc <- c }()

	// Incoming messages are ignored, but reading is needed to process
	// control messages and notice disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case b := <-c:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-pingTicker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
