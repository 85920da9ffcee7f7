package vision

import (
	"image"

	"gocv.io/x/gocv"
)

// Cleaner implements port.RowCleaner. It paints the top right badge area and
// the info icon next to the name with the row header color.
type Cleaner struct{}

func NewCleaner() *Cleaner { return &Cleaner{} }

// Clean returns a new image; crop is not modified.
func (c *Cleaner) Clean(crop image.Image) (image.Image, error) {
	src, release, err := matOf(crop)
	if err != nil {
		return nil, err
	}
	defer release()

	out := src.Clone()
	cols, rows := out.Cols(), out.Rows()

	w := int(float64(cols) * 0.23)
	h := int(float64(rows) * 0.25)
	fillArea(&out, image.Rect(cols-w, 0, cols, h), RowHeaderColor)

	left := int(float64(cols) * 0.215)
	for _, icon := range infoIcons(out, left, h) {
		x := int(float64(cols)*0.215 + float64(icon.Min.X))
		fillArea(&out, image.Rect(x, 0, x+int(float64(cols)*0.1+float64(h)), h), RowHeaderColor)
	}
	return NewMatImage(out), nil
}

// infoIcons locates the icon inside the header band. Boxes are relative to
// the band, which starts at x=left.
func infoIcons(img gocv.Mat, left, bandHeight int) []image.Rectangle {
	top := int(float64(bandHeight) * 0.1)
	band := image.Rect(left, top, left+int(float64(img.Cols())*0.8), top+int(float64(bandHeight)*0.8)).
		Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
	if band.Empty() {
		return nil
	}
	roi := img.Region(band)
	defer roi.Close()

	mask := colorMask(roi, []string{InfoIconTopColor, InfoIconBottomColor}, 10)
	defer mask.Close()
	grown := dilate(mask, int(float64(bandHeight)/7.5))
	defer grown.Close()

	side := float64(bandHeight) * 0.5
	return whiteRegions(grown, 0.5, side, side)
}
