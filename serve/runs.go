package serve

import (
	"encoding/json"
	"net/http"
	"strconv"

	"vidaug/ledger"
)

const defaultRunsLimit = 50

type RunEntry struct {
	ID        uint
	Timestamp int64
	BatchID   string
	Input     string
	Output    string
	Kernel    string

	Processed int
	Written   int
	Dropped   int
	Shortfall int

	DurationSec int
	ElapsedMS   int64

	Succeeded bool
	Error     string `json:",omitempty"`
}

type RunsResponse struct {
	Items []*RunEntry

	ItemsCount      int
	FailedCount     int
	OldestTimestamp int64
}

func toRunEntry(r *ledger.Run) *RunEntry {
	e := &RunEntry{
		ID:          r.ID,
		Timestamp:   r.CreatedAt.Unix(),
		BatchID:     r.BatchID,
		Input:       r.Input,
		Output:      r.Output,
		Kernel:      r.Kernel,
		Processed:   r.Processed,
		Written:     r.Written,
		Dropped:     r.Dropped,
		DurationSec: r.OutputDurationSec,
		ElapsedMS:   r.ElapsedMS,
		Succeeded:   r.Succeeded,
		Error:       r.Error,
	}
	if r.EndOfStream && r.Processed < r.Requested {
		e.Shortfall = r.Requested - r.Processed
	}
	return e
}

// RunsServer serves ledger entries as JSON. The optional batch parameter
// restricts the response to one batch, limit caps the number of entries.
type RunsServer struct {
	Ledger *ledger.Ledger
}

func (s *RunsServer) BuildResponse(runs []ledger.Run) *RunsResponse {
	resp := &RunsResponse{}
	for i := range runs {
		r := &runs[i]
		resp.Items = append(resp.Items, toRunEntry(r))
		if !r.Succeeded {
			resp.FailedCount++
		}
		resp.OldestTimestamp = r.CreatedAt.Unix()
	}
	resp.ItemsCount = len(runs)
	return resp
}

func (s *RunsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit := defaultRunsLimit
	if v := r.Form.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var (
		runs []ledger.Run
		err  error
	)
	if batch := r.Form.Get("batch"); batch != "" {
		runs, err = s.Ledger.Batch(batch)
	} else {
		runs, err = s.Ledger.Recent(limit)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	js, err := json.Marshal(s.BuildResponse(runs))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(js)
}
