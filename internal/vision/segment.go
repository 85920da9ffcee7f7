package vision

import (
	"fmt"
	"image"
	"math"
	"slices"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/entity"
)

const (
	// RowAspectRatio is width/height of a roster row at any scale.
	RowAspectRatio = 3.89
	rowRatioBand   = 0.2

	// a row header band is at most this fraction of its row's height
	maxHeaderShare = 0.275
)

// Segmenter implements port.RowSegmenter on top of a Normalizer.
type Segmenter struct {
	normalizer *Normalizer
	logger     *zap.Logger
}

func NewSegmenter(normalizer *Normalizer, logger *zap.Logger) *Segmenter {
	return &Segmenter{normalizer: normalizer, logger: logger}
}

// Segment returns one observation per detected row, ordered top to bottom.
// Offsets are y positions in the normalized frame. The caller owns the crops.
func (s *Segmenter) Segment(frame entity.RawFrame) ([]entity.RowObservation, error) {
	mat, release, err := matOf(frame.Image)
	if err != nil {
		return nil, err
	}
	defer release()

	norm, err := s.normalizer.Normalize(mat)
	if err != nil {
		return nil, fmt.Errorf("normalize frame %d: %w", frame.Index, err)
	}
	defer norm.Close()

	boxes := DetectRows(norm)
	rows := make([]entity.RowObservation, 0, len(boxes))
	for _, box := range boxes {
		roi := norm.Region(box)
		crop := roi.Clone()
		roi.Close()
		rows = append(rows, entity.RowObservation{
			Crop:       NewMatImage(crop),
			FrameIndex: frame.Index,
			Offset:     box.Min.Y,
		})
	}

	s.logger.Debug("frame segmented",
		zap.Int("frame", frame.Index),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

// DetectRows finds roster row boxes in a normalized frame, sorted by y then x.
func DetectRows(img gocv.Mat) []image.Rectangle {
	flat := replaceColor(img, RowSelfBackground, RowBackgroundColor, 10)
	defer flat.Close()

	headers := rowHeaders(flat)

	mask := colorMask(flat, []string{RowHeaderColor, RowBackgroundColor, RowKeyBackgroundColor}, 5)
	defer mask.Close()
	clean := removeNoise(mask, 5)
	defer clean.Close()
	grown := dilate(clean, 2)
	defer grown.Close()

	boxes := rowsContaining(grown, headers)
	slices.SortFunc(boxes, func(a, b image.Rectangle) int {
		if a.Min.Y != b.Min.Y {
			return a.Min.Y - b.Min.Y
		}
		return a.Min.X - b.Min.X
	})
	return slices.Compact(boxes)
}

func rowHeaders(img gocv.Mat) []image.Rectangle {
	mask := colorMask(img, []string{RowHeaderColor}, 5)
	defer mask.Close()
	clean := removeNoise(mask, 2)
	defer clean.Close()
	shrunk := erode(clean, 1)
	defer shrunk.Close()
	return whiteRegions(shrunk, 0.5, 10, 10)
}

// rowsContaining keeps contours of row shape that fully contain a thin header box.
func rowsContaining(mask gocv.Mat, headers []image.Rectangle) []image.Rectangle {
	contours := gocv.FindContours(mask, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	var boxes []image.Rectangle
	for i := 0; i < contours.Size(); i++ {
		r := gocv.BoundingRect(contours.At(i))
		if r.Dy() == 0 || !rowShaped(r) {
			continue
		}
		for _, h := range headers {
			if h.In(r) && float64(h.Dy())/float64(r.Dy()) < maxHeaderShare {
				boxes = append(boxes, r)
				break
			}
		}
	}
	return boxes
}

func rowShaped(r image.Rectangle) bool {
	ratio := float64(r.Dx()) / float64(r.Dy())
	return math.Abs(ratio-RowAspectRatio) <= rowRatioBand
}
