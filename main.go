package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vidaug/config"
	"vidaug/ledger"
	"vidaug/serve"
	"vidaug/util"
	"vidaug/video"
	"vidaug/video/process"
	"vidaug/video/sink"
	"vidaug/video/source"
)

var (
	rootCmd = &cobra.Command{
		Use:   "vidaug",
		Short: "Apply a frame transform to every frame of a video",
		Long: `vidaug applies one image transform to every frame of a video, or of every
video in a directory, writing one transformed video per input.

Examples:
  # Brighten the first 300 frames of a clip
  vidaug run add clip.mp4 bright.mp4 --frames 300

  # Rotate every video in a directory with a fixed seed
  vidaug batch rotate ./videos ./rotated --seed 1

  # Keep processing videos as they land in a directory
  vidaug watch salt ./incoming ./salted --monitor :8080`,
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run [kernel] <input> <output>",
		Short: "Transform a single video",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kernel, args, err := kernelArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, kernel, func(ctx context.Context, a *app, p *video.Pipeline) error {
				r, err := p.Run(ctx, args[0], args[1], a.cfg.Frames)
				if err != nil {
					return err
				}
				fmt.Printf("%v: %d processed, %d written, %d dropped\n", r.Output, r.Processed, r.Written, r.Dropped)
				return nil
			})
		},
	}

	batchCmd = &cobra.Command{
		Use:   "batch [kernel] <input-dir> <output-dir>",
		Short: "Transform every video in a directory",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kernel, args, err := kernelArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, kernel, func(ctx context.Context, a *app, p *video.Pipeline) error {
				br, err := video.ForEachVideo(ctx, p, a.job(args[0], args[1], kernel))
				if err != nil {
					return err
				}
				fmt.Printf("batch %v: %d succeeded, %d failed, %d skipped, %d ignored\n",
					br.ID, br.Succeeded, br.Failed, br.Skipped, br.Ignored)
				if br.Failed > 0 {
					return errors.Errorf("%d of %d files failed", br.Failed, br.Found)
				}
				return nil
			})
		},
	}

	watchCmd = &cobra.Command{
		Use:   "watch [kernel] <input-dir> <output-dir>",
		Short: "Transform videos in a directory, then new ones as they appear",
		Long: `watch processes the videos already in the input directory, then waits for
new ones. A video is processed once it has not been written to for the
configured settle time. Changes to the config file apply from the next video.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kernel, args, err := kernelArg(args)
			if err != nil {
				return err
			}
			return withApp(cmd, kernel, func(ctx context.Context, a *app, p *video.Pipeline) error {
				if path, _ := cmd.Flags().GetString("config"); path != "" {
					config.Set(a.cfg)
					go config.Watch(ctx, path, func(c *config.Config) { applyFlags(cmd, c) })
				}
				current := p
				latest := func() *video.Pipeline {
					cfg := config.Get()
					if cfg == nil || cfg == a.cfg {
						return current
					}
					np, err := a.pipeline(cfg, kernel)
					if err != nil {
						log.Errorf("Keeping previous settings: %v", err)
						return current
					}
					a.cfg, current = cfg, np
					return current
				}
				_, err := video.Watch(ctx, latest, a.job(args[0], args[1], kernel), a.cfg.Watch.Settle)
				return err
			})
		},
	}

	kernelsCmd = &cobra.Command{
		Use:   "kernels",
		Short: "List the available kernels",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tRANDOM\tGEOMETRY\tDESCRIPTION")
			for _, name := range process.Names() {
				e, _ := process.Lookup(name)
				fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", e.Name, e.Randomized, e.Geometry, e.Summary)
			}
			w.Flush()
		},
	}

	probeCmd = &cobra.Command{
		Use:   "probe <file>",
		Short: "Show what ffprobe and OpenCV report about a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := setup(cmd); err != nil {
				return err
			}
			path := args[0]
			if md, err := source.Probe(path); err != nil {
				log.Warnf("ffprobe: %v", err)
			} else {
				fmt.Printf("ffprobe: %v %v %dx%d %.3f fps, %d frames, %.2fs\n",
					md.Container, md.Codec, md.Width, md.Height, md.FPS, md.Frames, md.Duration)
			}
			src, err := source.OpenVideoCapture(path)
			if err != nil {
				return errors.Wrapf(video.ErrSourceUnavailable, "%v: %v", path, err)
			}
			defer src.Close()
			sz := src.Size()
			fmt.Printf("opencv:  %dx%d %.3f fps, %d frames\n", sz.X, sz.Y, src.FPS(), src.FrameCount())
			return nil
		},
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "YAML config file")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.Int64("seed", 0, "Seed for randomized kernels (0 seeds from the clock)")
	pf.String("geometry", "", "What to do with frames that do not match the output size (strict, fit)")
	pf.String("encoder", "", "Output encoder (opencv, ffmpeg)")
	pf.String("codec", "", "fourcc of the OpenCV encoder")
	pf.IntP("frames", "n", -1, "Frames to process per file (-1 for all)")
	pf.Bool("probe", false, "Use ffprobe's frame count instead of the container's")
	pf.String("monitor", "", "Address of the monitor server, e.g. :8080")
	pf.String("ledger", "", "Run ledger DSN (sqlite path unless the config selects mysql)")

	rootCmd.AddCommand(runCmd, batchCmd, watchCmd, kernelsCmd, probeCmd)
}

// kernelArg splits an optional leading kernel name from the paths.
func kernelArg(args []string) (string, []string, error) {
	if len(args) == 3 {
		return args[0], args[1:], nil
	}
	return "", args, nil
}

// applyFlags copies explicitly set flags over c.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("log-level") {
		c.LogLevel, _ = f.GetString("log-level")
	}
	if f.Changed("seed") {
		c.Seed, _ = f.GetInt64("seed")
	}
	if f.Changed("geometry") {
		c.Geometry, _ = f.GetString("geometry")
	}
	if f.Changed("encoder") {
		c.Output.Encoder, _ = f.GetString("encoder")
	}
	if f.Changed("codec") {
		c.Output.Codec, _ = f.GetString("codec")
	}
	if f.Changed("frames") {
		c.Frames, _ = f.GetInt("frames")
	}
	if f.Changed("probe") {
		c.Probe, _ = f.GetBool("probe")
	}
	if f.Changed("monitor") {
		c.Monitor.Addr, _ = f.GetString("monitor")
	}
	if f.Changed("ledger") {
		c.Ledger.DSN, _ = f.GetString("ledger")
	}
}

// setup loads the configuration and applies flags and the log level.
func setup(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.FromFile(path)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)
	return cfg, nil
}

type app struct {
	cfg     *config.Config
	rng     *rand.Rand
	ledger  *ledger.Ledger
	monitor *serve.Monitor
}

// withApp sets up the configuration, ledger and monitor, then calls fn with a
// pipeline for kernel and a context cancelled on SIGINT or SIGTERM.
func withApp(cmd *cobra.Command, kernel string, fn func(ctx context.Context, a *app, p *video.Pipeline) error) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.Debugf("Random seed %d", seed)
	a := &app{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}

	if cfg.Output.Encoder == video.EncoderFFmpeg {
		ffmpegp, err := util.LocateFFmpeg()
		if err != nil {
			return errors.Wrap(err, "unable to locate ffmpeg binary")
		}
		log.Infof("Located ffmpeg binary, %v", ffmpegp)
	}

	if cfg.Ledger.DSN != "" {
		if a.ledger, err = ledger.Open(cfg.Ledger.Driver, cfg.Ledger.DSN); err != nil {
			return err
		}
		defer a.ledger.Close()
	}
	if cfg.Monitor.Addr != "" {
		a.monitor = serve.NewMonitor(cfg.Monitor.Addr, cfg.Monitor.PreviewInterval, cfg.Monitor.ProgressInterval, a.ledger)
		go func() {
			if err := a.monitor.Serve(ctx); err != nil {
				log.Errorf("Monitor server failed: %v", err)
			}
		}()
	}

	p, err := a.pipeline(cfg, kernel)
	if err != nil {
		return err
	}
	return fn(ctx, a, p)
}

// pipeline builds a Pipeline for kernel, or the configured kernel if empty.
func (a *app) pipeline(cfg *config.Config, kernel string) (*video.Pipeline, error) {
	if kernel == "" {
		kernel = cfg.Kernel
	}
	if kernel == "" {
		return nil, errors.Errorf("no kernel given (have %v)", process.Names())
	}
	k, err := process.New(kernel, cfg.Params)
	if err != nil {
		return nil, err
	}
	policy, err := sink.ParseGeometryPolicy(cfg.Geometry)
	if err != nil {
		return nil, err
	}
	if e, _ := process.Lookup(kernel); e.Geometry == process.GeometryVaries && policy == sink.GeometryStrict {
		log.Warnf("Kernel %v changes frame size; with geometry %v, runs stop at the first mismatching frame", kernel, policy)
	}

	obs := video.Observers{&video.LogObserver{Interval: cfg.LogProgress}}
	if a.ledger != nil {
		obs = append(obs, a.ledger)
	}
	if a.monitor != nil {
		obs = append(obs, a.monitor.Observers()...)
	}
	return &video.Pipeline{
		Kernel: k,
		Open:   source.OpenFile,
		Sinks: &video.SinkProducer{
			Encoder: cfg.Output.Encoder,
			Codec:   cfg.Output.Codec,
			FFmpegOptions: sink.FFmpegOptions{
				Preset: cfg.Output.Preset,
				CRF:    cfg.Output.CRF,
			},
		},
		Geometry:   policy,
		Rand:       a.rng,
		Observer:   obs,
		Probe:      cfg.Probe,
		Thumbnails: cfg.Output.Thumbnails,
	}, nil
}

func (a *app) job(in, out, kernel string) video.BatchJob {
	job := video.BatchJob{
		InputDir:   in,
		OutputDir:  out,
		Extensions: a.cfg.Input.Extensions,
		FrameLimit: a.cfg.Frames,
		Prefix:     a.cfg.Output.Prefix,
		Suffix:     a.cfg.Output.Suffix,
	}
	if a.cfg.Output.SkipCompleted && a.ledger != nil {
		if kernel == "" {
			kernel = a.cfg.Kernel
		}
		job.Skip = a.ledger.Skipper(kernel)
	}
	return job
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
