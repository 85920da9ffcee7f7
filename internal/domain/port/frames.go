package port

import (
	"context"
	"errors"
	"image"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/entity"
)

// ErrVideoUnreadable is returned when a video cannot be opened or decoded.
var ErrVideoUnreadable = errors.New("video unreadable")

// FrameSampler opens a video and yields frames at a reduced rate.
type FrameSampler interface {
	Open(ctx context.Context, videoPath string) (FrameStream, error)
}

// FrameStream is a forward-only sequence of sampled frames. Next returns
// io.EOF once the source is exhausted. Close must be called on every path.
type FrameStream interface {
	Next(ctx context.Context) (entity.RawFrame, error)
	Close() error
}

// RowSegmenter normalizes a frame and returns its roster rows, top to bottom.
type RowSegmenter interface {
	Segment(frame entity.RawFrame) ([]entity.RowObservation, error)
}

// RowCleaner paints over row decorations that confuse OCR.
type RowCleaner interface {
	Clean(crop image.Image) (image.Image, error)
}

// OCREngine returns the recognized text fragments of an image in reading order.
type OCREngine interface {
	Recognize(ctx context.Context, img image.Image) ([]string, error)
}

// PNGEncoder is implemented by images that encode themselves without
// going through image/png.
type PNGEncoder interface {
	EncodePNG() ([]byte, error)
}

// RosterAnalyzer runs the whole video-to-roster reconstruction.
type RosterAnalyzer interface {
	Analyze(ctx context.Context, req entity.AnalyzeRequest) (*entity.RosterResult, error)
}
