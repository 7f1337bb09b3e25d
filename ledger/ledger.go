// Package ledger keeps a persistent record of pipeline runs.
package ledger

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vidaug/video"
	"vidaug/video/source"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Run is one processed file.
type Run struct {
	gorm.Model

	BatchID string `gorm:"index"`
	Input   string `gorm:"index"`
	Output  string
	Kernel  string

	Requested   int
	Processed   int
	Written     int
	Dropped     int
	Fitted      int
	EndOfStream bool

	Width        int
	Height       int
	OutputWidth  int
	OutputHeight int
	FPS          float64

	ElapsedMS         int64
	OutputDurationSec int

	Succeeded bool
	Error     string
}

func runFromReport(r *video.Report, err error) *Run {
	run := &Run{
		BatchID:           r.BatchID,
		Input:             r.Input,
		Output:            r.Output,
		Kernel:            r.Kernel,
		Requested:         r.Requested,
		Processed:         r.Processed,
		Written:           r.Written,
		Dropped:           r.Dropped,
		Fitted:            r.Fitted,
		EndOfStream:       r.EndOfStream,
		Width:             r.InputSize.X,
		Height:            r.InputSize.Y,
		OutputWidth:       r.OutputSize.X,
		OutputHeight:      r.OutputSize.Y,
		FPS:               r.FPS,
		ElapsedMS:         r.Elapsed.Milliseconds(),
		OutputDurationSec: r.OutputDurationSec,
		Succeeded:         err == nil,
	}
	if err != nil {
		run.Error = err.Error()
	}
	return run
}

// Ledger stores Runs in a SQL database. It is a video.Observer recording
// every finished file.
type Ledger struct {
	db *gorm.DB
}

// Open connects to the database and migrates the schema. driver is
// DriverSQLite (dsn is a file path, or ":memory:") or DriverMySQL.
func Open(driver, dsn string) (*Ledger, error) {
	var d gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		d = sqlite.Open(dsn)
	case DriverMySQL:
		d = mysql.Open(dsn)
	default:
		return nil, errors.Errorf("unknown ledger driver %q", driver)
	}
	db, err := gorm.Open(d, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "opening %v ledger", driver)
	}
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, errors.Wrap(err, "migrating ledger")
	}
	log.Debugf("Opened %v ledger", driver)
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record stores the outcome of one pipeline run.
func (l *Ledger) Record(r *video.Report, err error) error {
	return l.db.Create(runFromReport(r, err)).Error
}

// Completed reports whether input was already written to output by kernel
// without error.
func (l *Ledger) Completed(input, output, kernel string) bool {
	var n int64
	err := l.db.Model(&Run{}).
		Where("input = ? AND output = ? AND kernel = ? AND succeeded = ?", input, output, kernel, true).
		Count(&n).Error
	if err != nil {
		log.Errorf("Ledger lookup for %v failed: %v", input, err)
		return false
	}
	return n > 0
}

// Skipper returns a video.BatchJob Skip function for kernel.
func (l *Ledger) Skipper(kernel string) func(input, output string) bool {
	return func(input, output string) bool {
		return l.Completed(input, output, kernel)
	}
}

// Recent returns up to limit runs, newest first.
func (l *Ledger) Recent(limit int) ([]Run, error) {
	var runs []Run
	err := l.db.Order("id desc").Limit(limit).Find(&runs).Error
	return runs, err
}

// Batch returns the runs of the given batch.
func (l *Ledger) Batch(id string) ([]Run, error) {
	var runs []Run
	err := l.db.Where("batch_id = ?", id).Order("id").Find(&runs).Error
	return runs, err
}

// Get returns the run with the given id, or nil.
func (l *Ledger) Get(id uint) (*Run, error) {
	var run Run
	err := l.db.First(&run, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (l *Ledger) FileStarted(r *video.Report) {}

func (l *Ledger) FrameProcessed(r *video.Report, f *source.Frame) {}

func (l *Ledger) FileFinished(r *video.Report, err error) {
	if rerr := l.Record(r, err); rerr != nil {
		log.Errorf("Failed to record run of %v: %v", r.Input, rerr)
	}
}
