package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// MatImage adapts a BGR or single channel gocv.Mat to image.Image.
// The Mat is owned by the MatImage and released by Close.
type MatImage struct {
	mat gocv.Mat
}

// NewMatImage takes ownership of mat.
func NewMatImage(mat gocv.Mat) *MatImage {
	return &MatImage{mat: mat}
}

func (m *MatImage) Mat() gocv.Mat { return m.mat }

func (m *MatImage) ColorModel() color.Model { return color.RGBAModel }

func (m *MatImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.mat.Cols(), m.mat.Rows())
}

func (m *MatImage) At(x, y int) color.Color {
	if !image.Pt(x, y).In(m.Bounds()) {
		return color.RGBA{}
	}
	if m.mat.Channels() == 1 {
		v := m.mat.GetUCharAt(y, x)
		return color.RGBA{R: v, G: v, B: v, A: 0xff}
	}
	v := m.mat.GetVecbAt(y, x)
	return color.RGBA{R: v[2], G: v[1], B: v[0], A: 0xff}
}

// EncodePNG encodes the Mat with OpenCV.
func (m *MatImage) EncodePNG() ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, m.mat)
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}

func (m *MatImage) Close() error {
	return m.mat.Close()
}

// matOf returns a BGR Mat for img. The release func must be called once the
// Mat is no longer used; it is a no-op for Mats owned by a *MatImage.
func matOf(img image.Image) (gocv.Mat, func(), error) {
	if m, ok := img.(*MatImage); ok {
		return m.mat, func() {}, nil
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, nil, fmt.Errorf("convert image: %w", err)
	}
	return mat, func() { mat.Close() }, nil
}

// LoadFrame reads an image file into a *MatImage.
func LoadFrame(path string) (*MatImage, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("read frame %s: empty image", path)
	}
	return NewMatImage(mat), nil
}
