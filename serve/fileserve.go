package serve

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vidaug/ledger"
	"vidaug/video"
)

// FileServer serves a file belonging to a ledger run, selected by ?id=.
type FileServer struct {
	Ledger   *ledger.Ledger
	PathFunc func(r *ledger.Run) string
	// ContentType defaults to the type registered for the file extension.
	ContentType string
}

func NewOutputServer(l *ledger.Ledger) *FileServer {
	return &FileServer{
		Ledger: l,
		PathFunc: func(r *ledger.Run) string {
			return r.Output
		},
	}
}

func NewThumbServer(l *ledger.Ledger) *FileServer {
	return &FileServer{
		Ledger: l,
		PathFunc: func(r *ledger.Run) string {
			return strings.TrimSuffix(r.Output, filepath.Ext(r.Output)) + video.ExtThumb
		},
		ContentType: "image/jpeg",
	}
}

func (s *FileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := strconv.ParseUint(r.Form.Get("id"), 10, 0)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	run, err := s.Ledger.Get(uint(id))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, fmt.Sprintf("No run found for id %v", id), http.StatusNotFound)
		return
	}

	path := s.PathFunc(run)
	f, err := os.Open(path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	defer f.Close()

	ct := s.ContentType
	if ct == "" {
		ct = mime.TypeByExtension(filepath.Ext(path))
	}
	if ct != "" {
		w.Header().Add("Content-Type", ct)
	}
	io.Copy(w, f)
}
