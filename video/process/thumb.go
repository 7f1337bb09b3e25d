package process

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ThumbWidth is the width of thumbnails; height follows the aspect ratio.
const ThumbWidth = 320

// WriteThumb saves a downscaled JPEG of img to path.
func WriteThumb(path string, img gocv.Mat) error {
	if img.Empty() {
		return fmt.Errorf("no image for thumbnail %v", path)
	}
	h := img.Rows() * ThumbWidth / img.Cols()
	if h < 1 {
		h = 1
	}
	tmat := gocv.NewMat()
	defer tmat.Close()
	gocv.Resize(img, &tmat, image.Point{X: ThumbWidth, Y: h}, 0, 0, gocv.InterpolationArea)

	if ok := gocv.IMWrite(path, tmat); !ok {
		return fmt.Errorf("failed to write thumbnail %v", path)
	}
	return nil
}
