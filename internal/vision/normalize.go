package vision

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrNoHeader is returned when a frame does not show exactly one club header.
var ErrNoHeader = errors.New("club header not found")

const (
	headerTolerance = 50
	headerMinArea   = 4000
	headerMargin    = 10
)

// Normalizer rescales a frame to a fixed height and crops it horizontally to
// the club member panel.
type Normalizer struct {
	height int
}

func NewNormalizer(height int) *Normalizer {
	return &Normalizer{height: height}
}

// Normalize returns a new Mat; frame is left untouched.
func (n *Normalizer) Normalize(frame gocv.Mat) (gocv.Mat, error) {
	resized := n.resize(frame)
	defer resized.Close()

	header, err := findClubHeader(resized)
	if err != nil {
		return gocv.Mat{}, err
	}

	x := max(header.Min.X-headerMargin, 0)
	crop := image.Rect(x, 0, x+header.Dx()+2*headerMargin, resized.Rows()).
		Intersect(image.Rect(0, 0, resized.Cols(), resized.Rows()))
	roi := resized.Region(crop)
	defer roi.Close()
	return roi.Clone(), nil
}

// resize leaves portrait frames (mobile recordings, more than twice as tall
// as wide) at their native size.
func (n *Normalizer) resize(frame gocv.Mat) gocv.Mat {
	rows, cols := frame.Rows(), frame.Cols()
	if n.height <= 0 || rows == 0 || rows > 2*cols {
		return frame.Clone()
	}
	out := gocv.NewMat()
	width := cols * n.height / rows
	gocv.Resize(frame, &out, image.Pt(width, n.height), 0, 0, gocv.InterpolationLinear)
	return out
}

func findClubHeader(img gocv.Mat) (image.Rectangle, error) {
	mask := colorMask(img, []string{ClubHeaderColor}, headerTolerance)
	defer mask.Close()
	clean := removeNoise(mask, headerMinArea)
	defer clean.Close()

	boxes := whiteRegions(clean, 0.5, 10, 10)
	if len(boxes) != 1 {
		return image.Rectangle{}, fmt.Errorf("%w: %d candidates", ErrNoHeader, len(boxes))
	}
	return boxes[0], nil
}
