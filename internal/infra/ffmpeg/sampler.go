package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/entity"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/port"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/vision"
)

// Sampler is a port.FrameSampler that lets ffmpeg resample the video to the
// target rate and decodes the written frames lazily. It handles containers
// and codecs the OpenCV build cannot open.
type Sampler struct {
	fps     float64
	tempDir string
	logger  *zap.Logger
}

func NewSampler(fps float64, tempDir string, logger *zap.Logger) *Sampler {
	return &Sampler{fps: fps, tempDir: tempDir, logger: logger}
}

func (s *Sampler) Open(ctx context.Context, videoPath string) (port.FrameStream, error) {
	duration, err := s.getVideoDuration(ctx, videoPath)
	if err != nil {
		s.logger.Warn("could not get video duration", zap.Error(err))
	}

	dir, err := os.MkdirTemp(s.tempDir, "frames-*")
	if err != nil {
		return nil, fmt.Errorf("create frame dir: %w", err)
	}

	framePattern := filepath.Join(dir, "frame_%06d.png")
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", videoPath,
		"-vf", "fps="+strconv.FormatFloat(s.fps, 'f', -1, 64),
		"-y",
		framePattern,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		os.RemoveAll(dir)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: ffmpeg: %v, output: %s", port.ErrVideoUnreadable, err, string(output))
	}

	frames, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("glob frames: %w", err)
	}
	sort.Strings(frames)

	s.logger.Info("frames extracted",
		zap.Int("count", len(frames)),
		zap.Float64("video_duration", duration),
	)
	return &fileStream{dir: dir, frames: frames}, nil
}

func (s *Sampler) getVideoDuration(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}

// fileStream yields extracted frames in file order and removes them on Close.
type fileStream struct {
	dir    string
	frames []string
	next   int
}

func (f *fileStream) Next(ctx context.Context) (entity.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return entity.RawFrame{}, err
	}
	if f.next >= len(f.frames) {
		return entity.RawFrame{}, io.EOF
	}
	idx := f.next
	f.next++

	img, err := vision.LoadFrame(f.frames[idx])
	if err != nil {
		return entity.RawFrame{}, fmt.Errorf("%w: %v", port.ErrVideoUnreadable, err)
	}
	return entity.RawFrame{Index: idx, Image: img}, nil
}

func (f *fileStream) Close() error {
	f.next = len(f.frames)
	return os.RemoveAll(f.dir)
}
