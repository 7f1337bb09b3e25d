package sink

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// MJPEG multi-streaming, based on implementation by saljam:
// https://github.com/saljam/mjpeg/blob/master/stream.go

const boundaryWord = "MJPEGBOUNDARY"
const headerf = "\r\n" +
	"--" + boundaryWord + "\r\n" +
	"Content-Type: image/jpeg\r\n" +
	"Content-Length: %d\r\n" +
	"X-Timestamp: 0.000000\r\n" +
	"\r\n"

// MJPEGServer serves named streams of preview frames over HTTP, e.g.
// /preview?name=output.
type MJPEGServer struct {
	// Interval limits how often a stream encodes a new frame. Augmentation
	// runs faster than real time, so without it previews would dominate CPU.
	Interval time.Duration

	m    map[string]*MJPEGStream
	lock sync.Mutex
}

func NewMJPEGServer(interval time.Duration) *MJPEGServer {
	return &MJPEGServer{
		Interval: interval,
		m:        make(map[string]*MJPEGStream),
	}
}

// Stream returns the stream with the given name, creating it if needed.
func (s *MJPEGServer) Stream(name string) *MJPEGStream {
	s.lock.Lock()
	defer s.lock.Unlock()
	if ms, ok := s.m[name]; ok {
		return ms
	}
	ms := &MJPEGStream{
		name:     name,
		interval: s.Interval,
		clients:  make(map[chan []byte]bool),
	}
	s.m[name] = ms
	return ms
}

func (s *MJPEGServer) getStream(name string) *MJPEGStream {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.m[name]
}

// ServeHTTP implements http.Handler interface, serving MJPEG.
func (s *MJPEGServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name := r.Form.Get("name")
	if name == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}
	stream := s.getStream(name)
	if stream == nil {
		http.Error(w, "unknown stream", http.StatusNotFound)
		return
	}

	clog := log.WithField("addr", r.RemoteAddr)
	clog.Infof("MJPEG preview connected to %v", name)
	w.Header().Add("Content-Type", "multipart/x-mixed-replace;boundary="+boundaryWord)

	c := stream.subscribe()
	defer stream.unsubscribe(c)
	for {
		select {
		case b := <-c:
			if _, err := w.Write(b); err != nil {
				clog.Infof("MJPEG preview disconnected from %v", name)
				return
			}
		case <-r.Context().Done():
			clog.Infof("MJPEG preview disconnected from %v", name)
			return
		}
	}
}

type MJPEGStream struct {
	name     string
	interval time.Duration
	clients  map[chan []byte]bool
	last     time.Time
	lock     sync.Mutex
}

func (s *MJPEGStream) subscribe() chan []byte {
	c := make(chan []byte, 1)
	s.lock.Lock()
	s.clients[c] = true
	s.lock.Unlock()
	return c
}

func (s *MJPEGStream) unsubscribe(c chan []byte) {
	s.lock.Lock()
	delete(s.clients, c)
	s.lock.Unlock()
}

// due reports whether a frame should be encoded now, and claims the slot.
func (s *MJPEGStream) due() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.clients) == 0 {
		// Nobody is listening; don't bother encoding.
		return false
	}
	now := time.Now()
	if now.Sub(s.last) < s.interval {
		return false
	}
	s.last = now
	return true
}

// Put publishes img to connected clients. It never blocks on slow clients.
func (s *MJPEGStream) Put(img gocv.Mat) {
	if img.Empty() || !s.due() {
		return
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		log.Errorf("Error encoding to JPG for MJPEG stream %v: %v", s.name, err)
		return
	}
	defer buf.Close()
	jpeg := buf.GetBytes()

	header := fmt.Sprintf(headerf, len(jpeg))
	frame := make([]byte, 0, len(header)+len(jpeg))
	frame = append(frame, header...)
	frame = append(frame, jpeg...)

	s.lock.Lock()
	defer s.lock.Unlock()
	for c := range s.clients {
		select {
		case c <- frame:
		default:
			// Skip listeners not ready for next frame.
		}
	}
}
