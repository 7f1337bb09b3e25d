package util

import (
	"os/exec"
	"sync"

	"github.com/pkg/errors"
)

var (
	ffmpegOnce sync.Once
	ffmpegPath string
	ffmpegErr  error
)

// LocateFFmpeg returns the path of the ffmpeg binary found in $PATH. The
// lookup happens once per process.
func LocateFFmpeg() (string, error) {
	ffmpegOnce.Do(func() {
		ffmpegPath, ffmpegErr = exec.LookPath("ffmpeg")
		if ffmpegErr != nil {
			ffmpegErr = errors.Wrap(ffmpegErr, "ffmpeg is required for the ffmpeg encoder")
		}
	})
	return ffmpegPath, ffmpegErr
}
