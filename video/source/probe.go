package source

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Metadata is what ffprobe reports about the first video stream of a file.
type Metadata struct {
	Codec     string
	Width     int
	Height    int
	FPS       float64
	Frames    int
	Duration  float64
	Container string
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	NbFrames   string `json:"nb_frames"`
	Duration   string `json:"duration"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

// Probe runs ffprobe on path. Unlike OpenCV's frame count, which is estimated
// from duration and frame rate, nb_frames is read from the container index
// when the muxer wrote one.
func Probe(path string) (*Metadata, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, errors.Wrapf(err, "probing %v", path)
	}
	return parseProbe([]byte(out))
}

func parseProbe(b []byte) (*Metadata, error) {
	var p probeOutput
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, errors.WithStack(err)
	}

	var vs *probeStream
	for i := range p.Streams {
		if p.Streams[i].CodecType == "video" {
			vs = &p.Streams[i]
			break
		}
	}
	if vs == nil {
		return nil, errors.New("no video stream found")
	}

	md := &Metadata{
		Codec:     vs.CodecName,
		Width:     vs.Width,
		Height:    vs.Height,
		FPS:       parseRate(vs.RFrameRate),
		Container: p.Format.FormatName,
	}
	if n, err := strconv.Atoi(strings.TrimSpace(vs.NbFrames)); err == nil {
		md.Frames = n
	}
	md.Duration = parseFloat(vs.Duration)
	if md.Duration == 0 {
		md.Duration = parseFloat(p.Format.Duration)
	}
	// Fall back to an estimate when the container carries no frame index.
	if md.Frames == 0 && md.Duration > 0 && md.FPS > 0 {
		md.Frames = int(md.Duration*md.FPS + 0.5)
	}
	return md, nil
}

func parseRate(s string) float64 {
	nums := strings.Split(s, "/")
	if len(nums) != 2 {
		return parseFloat(s)
	}
	num, err1 := strconv.ParseFloat(nums[0], 64)
	den, err2 := strconv.ParseFloat(nums[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
