package vision

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// colorMask returns a single channel mask, 255 where a pixel is within
// tolerance of any of the colors on every channel.
func colorMask(img gocv.Mat, colors []string, tolerance float64) gocv.Mat {
	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), img.Rows(), img.Cols(), gocv.MatTypeCV8U)
	one := gocv.NewMat()
	defer one.Close()
	for _, hex := range colors {
		lo, hi := mustHex(hex).bounds(tolerance)
		gocv.InRangeWithScalar(img, lo, hi, &one)
		gocv.BitwiseOr(mask, one, &mask)
	}
	return mask
}

// replaceColor returns a copy of img with every pixel close to from painted to.
func replaceColor(img gocv.Mat, from, to string, tolerance float64) gocv.Mat {
	mask := colorMask(img, []string{from}, tolerance)
	defer mask.Close()
	fill := gocv.NewMatWithSizeFromScalar(mustHex(to).scalar(), img.Rows(), img.Cols(), img.Type())
	defer fill.Close()
	out := img.Clone()
	fill.CopyToWithMask(&out, mask)
	return out
}

// removeNoise blacks out connected components smaller than minArea.
func removeNoise(mask gocv.Mat, minArea float64) gocv.Mat {
	out := mask.Clone()
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	for i := 0; i < contours.Size(); i++ {
		if gocv.ContourArea(contours.At(i)) < minArea {
			gocv.DrawContours(&out, contours, i, color.RGBA{}, -1)
		}
	}
	return out
}

func ellipse(radius int) gocv.Mat {
	size := 2*radius + 1
	return gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(size, size))
}

func dilate(mask gocv.Mat, radius int) gocv.Mat {
	out := gocv.NewMat()
	if radius <= 0 {
		mask.CopyTo(&out)
		return out
	}
	kernel := ellipse(radius)
	defer kernel.Close()
	gocv.Dilate(mask, &out, kernel)
	return out
}

func erode(mask gocv.Mat, radius int) gocv.Mat {
	out := gocv.NewMat()
	if radius <= 0 {
		mask.CopyTo(&out)
		return out
	}
	kernel := ellipse(radius)
	defer kernel.Close()
	gocv.Erode(mask, &out, kernel)
	return out
}

// whiteRegions returns the bounding boxes of external components at least
// minWidth x minHeight whose box is filled to at least fill.
func whiteRegions(mask gocv.Mat, fill, minWidth, minHeight float64) []image.Rectangle {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var boxes []image.Rectangle
	for i := 0; i < contours.Size(); i++ {
		r := gocv.BoundingRect(contours.At(i))
		if float64(r.Dx()) < minWidth || float64(r.Dy()) < minHeight {
			continue
		}
		roi := mask.Region(r)
		white := gocv.CountNonZero(roi)
		roi.Close()
		if float64(white)/float64(r.Dx()*r.Dy()) >= fill {
			boxes = append(boxes, r)
		}
	}
	return boxes
}

// fillArea paints rect of img, clipped to the image, with a solid color.
func fillArea(img *gocv.Mat, rect image.Rectangle, hex string) {
	rect = rect.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
	if rect.Empty() {
		return
	}
	roi := img.Region(rect)
	defer roi.Close()
	roi.SetTo(mustHex(hex).scalar())
}
