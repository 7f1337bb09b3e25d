package video

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultExtensions are the file extensions recognized as videos.
var DefaultExtensions = []string{".mp4", ".mov", ".avi", ".mkv"}

// BatchJob describes a directory run.
type BatchJob struct {
	InputDir  string
	OutputDir string

	// Extensions recognized as videos, compared case-insensitively. Defaults
	// to DefaultExtensions.
	Extensions []string

	// FrameLimit is passed to every run; negative means each source's total.
	FrameLimit int

	// Prefix and Suffix decorate the output file stem.
	Prefix string
	Suffix string

	// Skip, when set, reports inputs whose output is already complete.
	Skip func(input, output string) bool
}

// IsVideo reports whether name carries a recognized extension.
func (j *BatchJob) IsVideo(name string) bool {
	exts := j.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	ext := filepath.Ext(name)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// OutputPath maps an input file name to its path under OutputDir.
func (j *BatchJob) OutputPath(name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return filepath.Join(j.OutputDir, j.Prefix+stem+j.Suffix+ext)
}

// IsOutput reports whether name looks like an output of this job written
// back into InputDir. Such files are never treated as inputs.
func (j *BatchJob) IsOutput(name string) bool {
	if !j.inPlace() || (j.Prefix == "" && j.Suffix == "") {
		return false
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return strings.HasPrefix(stem, j.Prefix) && strings.HasSuffix(stem, j.Suffix) &&
		len(stem) >= len(j.Prefix)+len(j.Suffix)
}

func (j *BatchJob) inPlace() bool {
	in, err := filepath.Abs(j.InputDir)
	if err != nil {
		return false
	}
	out, err := filepath.Abs(j.OutputDir)
	return err == nil && in == out
}

func (j *BatchJob) validate() error {
	if j.InputDir == "" || j.OutputDir == "" {
		return errors.New("input and output directories are required")
	}
	in, err := filepath.Abs(j.InputDir)
	if err != nil {
		return err
	}
	out, err := filepath.Abs(j.OutputDir)
	if err != nil {
		return err
	}
	if in == out && j.Prefix == "" && j.Suffix == "" {
		return errors.Errorf("output directory %v is the input directory; set a prefix or suffix", out)
	}
	return nil
}

// NewBatchReport starts a report with a fresh run id.
func NewBatchReport() *BatchReport {
	return &BatchReport{
		ID:      uuid.NewString(),
		Started: time.Now(),
		Errors:  make(map[string]error),
	}
}

// ForEachVideo runs p over every recognized video directly inside
// job.InputDir, one at a time in listing order. A failed file is recorded
// and the batch continues; the returned error covers only problems with the
// directories themselves or cancellation.
func ForEachVideo(ctx context.Context, p *Pipeline, job BatchJob) (*BatchReport, error) {
	br := NewBatchReport()
	if err := job.validate(); err != nil {
		return br, err
	}
	if err := os.MkdirAll(job.OutputDir, 0755); err != nil {
		return br, errors.Wrap(err, "creating output directory")
	}
	entries, err := os.ReadDir(job.InputDir)
	if err != nil {
		return br, errors.Wrap(err, "listing input directory")
	}

	bp := *p
	bp.BatchID = br.ID
	for _, e := range entries {
		if ctx.Err() != nil {
			return br, ctx.Err()
		}
		if e.IsDir() {
			continue
		}
		if !job.IsVideo(e.Name()) || job.IsOutput(e.Name()) {
			br.Ignored++
			continue
		}
		br.runFile(ctx, &bp, &job, e.Name())
	}
	log.WithField("batch", br.ID).Infof("Batch done: %d found, %d succeeded, %d failed, %d skipped, %d ignored",
		br.Found, br.Succeeded, br.Failed, br.Skipped, br.Ignored)
	return br, nil
}

func (br *BatchReport) runFile(ctx context.Context, p *Pipeline, job *BatchJob, name string) {
	br.Found++
	input := filepath.Join(job.InputDir, name)
	output := job.OutputPath(name)
	if job.Skip != nil && job.Skip(input, output) {
		log.Infof("Skipping %v, already processed", input)
		br.Skipped++
		return
	}
	r, err := p.Run(ctx, input, output, job.FrameLimit)
	br.Reports = append(br.Reports, r)
	if err != nil {
		br.Failed++
		br.Errors[input] = err
		return
	}
	br.Succeeded++
}
