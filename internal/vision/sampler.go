package vision

import (
	"context"
	"fmt"
	"io"
	"math"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/entity"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/port"
)

// Sampler decodes videos with OpenCV and keeps every k-th frame, where k is
// the native frame rate divided by the target rate.
type Sampler struct {
	targetFPS float64
	logger    *zap.Logger
}

func NewSampler(targetFPS float64, logger *zap.Logger) *Sampler {
	return &Sampler{targetFPS: targetFPS, logger: logger}
}

func (s *Sampler) Open(ctx context.Context, videoPath string) (port.FrameStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vc, err := gocv.VideoCaptureFile(videoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrVideoUnreadable, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: cannot open %s", port.ErrVideoUnreadable, videoPath)
	}

	native := vc.Get(gocv.VideoCaptureFPS)
	skip := FrameSkip(native, s.targetFPS)
	s.logger.Info("video opened",
		zap.String("path", videoPath),
		zap.Float64("native_fps", native),
		zap.Int("frame_skip", skip),
	)
	return &captureStream{vc: vc, skip: skip}, nil
}

// FrameSkip returns max(1, floor(native/target)). Unknown rates yield 1.
func FrameSkip(native, target float64) int {
	if target <= 0 || native <= 0 || math.IsNaN(native) || math.IsInf(native, 0) {
		return 1
	}
	return max(1, int(math.Floor(native/target)))
}

type captureStream struct {
	vc      *gocv.VideoCapture
	skip    int
	decoded int
	sampled int
	closed  bool
}

func (c *captureStream) Next(ctx context.Context) (entity.RawFrame, error) {
	if c.closed {
		return entity.RawFrame{}, io.EOF
	}
	for {
		if err := ctx.Err(); err != nil {
			return entity.RawFrame{}, err
		}
		mat := gocv.NewMat()
		if ok := c.vc.Read(&mat); !ok || mat.Empty() {
			mat.Close()
			return entity.RawFrame{}, io.EOF
		}
		n := c.decoded
		c.decoded++
		if n%c.skip != 0 {
			mat.Close()
			continue
		}
		frame := entity.RawFrame{Index: c.sampled, Image: NewMatImage(mat)}
		c.sampled++
		return frame, nil
	}
}

func (c *captureStream) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.vc.Close()
}
