// Package config holds the settings of a vidaug run.
package config

import (
	"time"

	"github.com/pkg/errors"

	"vidaug/video"
	"vidaug/video/process"
	"vidaug/video/sink"
)

type Config struct {
	LogLevel string `yaml:"log_level"`
	// LogProgress is how often a running file logs its progress.
	LogProgress time.Duration `yaml:"log_progress"`

	Kernel string         `yaml:"kernel"`
	Params process.Params `yaml:"params"`

	// Seed fixes the random source of randomized kernels. Zero seeds from
	// the clock.
	Seed int64 `yaml:"seed"`

	// Frames limits the frames processed per file; -1 processes every frame.
	Frames int `yaml:"frames"`

	// Geometry is "strict" or "fit".
	Geometry string `yaml:"geometry"`

	// Probe uses ffprobe's frame count instead of the container's.
	Probe bool `yaml:"probe"`

	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
	Watch   WatchConfig   `yaml:"watch"`
	Monitor MonitorConfig `yaml:"monitor"`
	Ledger  LedgerConfig  `yaml:"ledger"`
}

type InputConfig struct {
	Extensions []string `yaml:"extensions"`
}

type OutputConfig struct {
	// Encoder is "opencv" or "ffmpeg".
	Encoder string `yaml:"encoder"`
	// Codec is the fourcc of the OpenCV writer.
	Codec  string `yaml:"codec"`
	Preset string `yaml:"preset"`
	CRF    int    `yaml:"crf"`

	Prefix string `yaml:"prefix"`
	Suffix string `yaml:"suffix"`

	Thumbnails    bool `yaml:"thumbnails"`
	SkipCompleted bool `yaml:"skip_completed"`
}

type WatchConfig struct {
	Settle time.Duration `yaml:"settle"`
}

type MonitorConfig struct {
	// Addr enables the monitor server when set, e.g. ":8080".
	Addr             string        `yaml:"addr"`
	PreviewInterval  time.Duration `yaml:"preview_interval"`
	ProgressInterval time.Duration `yaml:"progress_interval"`
}

type LedgerConfig struct {
	// Driver is "sqlite" or "mysql".
	Driver string `yaml:"driver"`
	// DSN enables the ledger when set.
	DSN string `yaml:"dsn"`
}

func Default() *Config {
	return &Config{
		LogLevel:    "info",
		LogProgress: video.DefaultLogProgress,
		Params:      process.DefaultParams(),
		Frames:      -1,
		Geometry:    string(sink.GeometryStrict),
		Input: InputConfig{
			Extensions: append([]string(nil), video.DefaultExtensions...),
		},
		Output: OutputConfig{
			Encoder: video.EncoderOpenCV,
			Codec:   sink.DefaultCodec,
			Preset:  "superfast",
			CRF:     23,
		},
		Watch: WatchConfig{
			Settle: video.DefaultSettle,
		},
		Monitor: MonitorConfig{
			PreviewInterval:  200 * time.Millisecond,
			ProgressInterval: 250 * time.Millisecond,
		},
		Ledger: LedgerConfig{
			Driver: "sqlite",
		},
	}
}

// Validate checks the configuration before any file is touched.
func (c *Config) Validate() error {
	if c.Kernel != "" {
		if _, ok := process.Lookup(c.Kernel); !ok {
			return errors.Errorf("unknown kernel %q (have %v)", c.Kernel, process.Names())
		}
	}
	if err := c.Params.Validate(); err != nil {
		return errors.Wrap(err, "params")
	}
	if c.LogProgress < 0 {
		return errors.Errorf("log_progress must not be negative, got %v", c.LogProgress)
	}
	if c.Frames < -1 {
		return errors.Errorf("frames must be -1 or more, got %d", c.Frames)
	}
	if _, err := sink.ParseGeometryPolicy(c.Geometry); err != nil {
		return err
	}
	switch c.Output.Encoder {
	case video.EncoderOpenCV, video.EncoderFFmpeg:
	default:
		return errors.Errorf("unknown encoder %q", c.Output.Encoder)
	}
	if c.Output.Codec != "" && len(c.Output.Codec) != 4 {
		return errors.Errorf("codec %q is not a fourcc", c.Output.Codec)
	}
	if c.Output.CRF < 0 || c.Output.CRF > 51 {
		return errors.Errorf("crf %d outside [0, 51]", c.Output.CRF)
	}
	if len(c.Input.Extensions) == 0 {
		return errors.New("no input extensions")
	}
	switch c.Ledger.Driver {
	case "sqlite", "mysql":
	default:
		return errors.Errorf("unknown ledger driver %q", c.Ledger.Driver)
	}
	if c.Output.SkipCompleted && c.Ledger.DSN == "" {
		return errors.New("skip_completed needs a ledger dsn")
	}
	return nil
}
