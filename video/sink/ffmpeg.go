package sink

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"vidaug/util"
	"vidaug/video/source"
)

// FFmpegOptions configures the libx264 encoder of the FFmpeg sink.
type FFmpegOptions struct {
	Preset string
	CRF    int
}

// FFmpeg pipes raw BGR frames into an ffmpeg process, which encodes them with
// libx264. Output files are considerably smaller than the OpenCV writer's.
type FFmpeg struct {
	size   image.Point
	pipe   *io.PipeWriter
	stderr *io.PipeWriter
	done   chan error
}

func NewFFmpeg(path string, opts Options, enc FFmpegOptions) (*FFmpeg, error) {
	// ffmpeg only opens the output once the first frame arrives; surface an
	// unwritable path now.
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	if err := out.Close(); err != nil {
		return nil, err
	}
	if _, err := util.LocateFFmpeg(); err != nil {
		return nil, err
	}
	if enc.Preset == "" {
		enc.Preset = "superfast"
	}
	if enc.CRF == 0 {
		enc.CRF = 23
	}

	r, w := io.Pipe()

	stderr := log.StandardLogger().WriterLevel(log.DebugLevel)
	stream := ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		// Configure ffmpeg to read from the frame pipe.
		"f":            "rawvideo",
		"pixel_format": "bgr24",
		"video_size":   fmt.Sprintf("%dx%d", opts.Size.X, opts.Size.Y),
		"framerate":    fmt.Sprintf("%.3f", opts.FPS),
	}).Output(path, ffmpeg.KwArgs{
		"c:v":    "libx264",
		"preset": enc.Preset,
		"crf":    enc.CRF,
		// Allow playback on a wider range of devices.
		"pix_fmt":  "yuv420p",
		"movflags": "+faststart",
	}).OverWriteOutput().WithInput(r).WithErrorOutput(stderr)

	f := &FFmpeg{
		size:   opts.Size,
		pipe:   w,
		stderr: stderr,
		done:   make(chan error, 1),
	}
	go func() {
		err := stream.Run()
		// Unblock any pending writer if ffmpeg exits early.
		r.CloseWithError(errors.Errorf("ffmpeg exited: %v", err))
		f.done <- err
	}()
	return f, nil
}

func (f *FFmpeg) Put(frame source.Frame) error {
	if _, err := f.pipe.Write(frame.Mat.ToBytes()); err != nil {
		return errors.Wrap(err, "writing to ffmpeg")
	}
	return nil
}

func (f *FFmpeg) Size() image.Point {
	return f.size
}

func (f *FFmpeg) Close() error {
	f.pipe.Close()
	log.Debugf("Waiting for ffmpeg shutdown")
	err := <-f.done
	f.stderr.Close()
	if err != nil {
		return errors.Wrap(err, "ffmpeg")
	}
	return nil
}
