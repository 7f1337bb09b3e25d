package source

import (
	"fmt"
	"image"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// VideoCapture reads frames from a video file through OpenCV.
type VideoCapture struct {
	Path string

	cap   *gocv.VideoCapture
	size  image.Point
	fps   float64
	count int
	next  int
}

// OpenVideoCapture opens path for reading. A file that OpenCV cannot demux is
// reported as an error and leaves no handle open.
func OpenVideoCapture(path string) (*VideoCapture, error) {
	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, err
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("capture for %v is not open", path)
	}
	v := &VideoCapture{
		Path: path,
		cap:  cap,
		size: image.Point{
			X: int(cap.Get(gocv.VideoCaptureFrameWidth)),
			Y: int(cap.Get(gocv.VideoCaptureFrameHeight)),
		},
		fps:   cap.Get(gocv.VideoCaptureFPS),
		count: int(cap.Get(gocv.VideoCaptureFrameCount)),
	}
	if v.size.X <= 0 || v.size.Y <= 0 {
		cap.Close()
		return nil, fmt.Errorf("capture for %v reports no video stream", path)
	}
	log.WithField("path", path).Debugf("Opened capture %dx%d @ %.2f fps, %d frames", v.size.X, v.size.Y, v.fps, v.count)
	return v, nil
}

// OpenFile is an Opener backed by OpenVideoCapture.
func OpenFile(path string) (Source, error) {
	return OpenVideoCapture(path)
}

func (v *VideoCapture) Read(f *Frame) bool {
	if ok := v.cap.Read(&f.Mat); !ok || f.Mat.Empty() {
		return false
	}
	f.Index = v.next
	v.next++
	return true
}

func (v *VideoCapture) Size() image.Point {
	return v.size
}

func (v *VideoCapture) FPS() float64 {
	return v.fps
}

func (v *VideoCapture) FrameCount() int {
	return v.count
}

// SetFrameCount overrides the container-reported frame count, for example
// with an exact value from Probe.
func (v *VideoCapture) SetFrameCount(n int) {
	v.count = n
}

func (v *VideoCapture) Close() error {
	return v.cap.Close()
}
