// Package pipeline turns a roster video into ordered member chains:
// sample frames, segment rows, clean and OCR each row, parse records and
// hand them to the reconstructor.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/entity"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/port"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/infra/metrics"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/roster"
)

type Config struct {
	// OCRWorkers bounds concurrent OCR calls within one frame.
	OCRWorkers int
}

// Pipeline implements port.RosterAnalyzer. Frames are processed one at a
// time; only the rows of the current frame are in flight.
type Pipeline struct {
	sampler       port.FrameSampler
	segmenter     port.RowSegmenter
	cleaner       port.RowCleaner
	ocr           port.OCREngine
	reconstructor *roster.Reconstructor
	workers       int
	logger        *zap.Logger
}

func New(
	sampler port.FrameSampler,
	segmenter port.RowSegmenter,
	cleaner port.RowCleaner,
	ocr port.OCREngine,
	reconstructor *roster.Reconstructor,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		sampler:       sampler,
		segmenter:     segmenter,
		cleaner:       cleaner,
		ocr:           ocr,
		reconstructor: reconstructor,
		workers:       max(cfg.OCRWorkers, 1),
		logger:        logger,
	}
}

func (p *Pipeline) Analyze(ctx context.Context, req entity.AnalyzeRequest) (*entity.RosterResult, error) {
	tracer := otel.Tracer("pipeline")
	ctx, span := tracer.Start(ctx, "Pipeline.Analyze")
	defer span.End()

	progress := req.Progress
	if progress == nil {
		progress = &entity.Progress{}
	}
	if req.CropDir != "" {
		if err := os.MkdirAll(req.CropDir, 0o755); err != nil {
			return nil, fmt.Errorf("create crop dir: %w", err)
		}
	}

	extractStart := time.Now()
	records, err := p.extract(ctx, req, progress)
	if err != nil {
		return nil, err
	}
	metrics.JobProcessingDuration.WithLabelValues("extract").Observe(time.Since(extractStart).Seconds())

	_, spanRc := tracer.Start(ctx, "reconstruct")
	res, err := p.reconstructor.Reconstruct(records)
	spanRc.End()
	if err != nil {
		return nil, fmt.Errorf("reconstruct roster: %w", err)
	}
	metrics.EdgesDroppedTotal.Add(float64(len(res.Dropped)))

	snap := progress.Snapshot()
	result := &entity.RosterResult{
		Chains: make([][]entity.Member, len(res.Chains)),
		Stats: entity.RosterStats{
			FramesSampled:   int(snap.FramesSampled),
			FramesSkipped:   int(snap.FramesSkipped),
			RowsDetected:    int(snap.RowsDetected),
			RecordsParsed:   int(snap.RecordsParsed),
			RowsUnparseable: int(snap.RowsUnparseable),
			Identities:      res.Identities,
			Merges:          len(res.Merges),
			Edges:           len(res.Edges),
			DroppedEdges:    len(res.Dropped),
		},
	}
	for i, chain := range res.Chains {
		members := make([]entity.Member, len(chain))
		for j, v := range chain {
			members[j] = entity.Member{Name: v.Name, Role: v.Role, TotalFans: v.Counter, LastLogin: v.Recency}
		}
		result.Chains[i] = members
	}

	span.SetAttributes(
		attribute.Int("roster.frames", result.Stats.FramesSampled),
		attribute.Int("roster.chains", len(result.Chains)),
		attribute.Int("roster.identities", result.Stats.Identities),
	)
	p.logger.Info("roster reconstructed",
		zap.Int("frames", result.Stats.FramesSampled),
		zap.Int("records", result.Stats.RecordsParsed),
		zap.Int("identities", result.Stats.Identities),
		zap.Int("chains", len(result.Chains)),
	)
	return result, nil
}

// extract returns parsed records in arrival order: frame by frame, rows top
// to bottom.
func (p *Pipeline) extract(ctx context.Context, req entity.AnalyzeRequest, progress *entity.Progress) ([]roster.ParsedRecord, error) {
	stream, err := p.sampler.Open(ctx, req.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}
	defer stream.Close()

	var records []roster.ParsedRecord
	for {
		frame, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("sample frame: %w", err)
		}
		progress.FramesSampled.Add(1)
		metrics.FramesSampledTotal.Inc()

		rows, err := p.segmenter.Segment(frame)
		frame.Close()
		if err != nil {
			progress.FramesSkipped.Add(1)
			metrics.FramesSkippedTotal.Inc()
			p.logger.Debug("frame skipped", zap.Int("frame", frame.Index), zap.Error(err))
			continue
		}

		parsed, err := p.readRows(ctx, rows, req.CropDir, progress)
		if err != nil {
			return nil, err
		}
		records = append(records, parsed...)
	}
}

type rowResult struct {
	record roster.ParsedRecord
	ok     bool
}

// readRows cleans and OCRs the rows of one frame concurrently and returns
// the parsed records in row order. A row that fails to clean, OCR or parse
// counts as unparseable; only cancellation stops the frame. The rows are
// closed before returning.
func (p *Pipeline) readRows(ctx context.Context, rows []entity.RowObservation, cropDir string, progress *entity.Progress) ([]roster.ParsedRecord, error) {
	defer func() {
		for _, r := range rows {
			r.Close()
		}
	}()
	progress.RowsDetected.Add(int64(len(rows)))
	metrics.RowsDetectedTotal.Add(float64(len(rows)))

	results := make([]rowResult, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, row := range rows {
		g.Go(func() error {
			if cropDir != "" {
				if err := saveCrop(cropDir, i, row); err != nil {
					p.logger.Warn("save row crop", zap.Error(err))
				}
			}
			texts, err := p.recognize(gctx, row)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				p.logger.Warn("row unreadable",
					zap.Int("frame", row.FrameIndex),
					zap.Int("row", i),
					zap.Error(err),
				)
				return nil
			}
			rec, err := roster.ParseRecord(texts, row.FrameIndex, row.Offset)
			if err != nil {
				p.logger.Debug("row unparseable",
					zap.Int("frame", row.FrameIndex),
					zap.Int("offset", row.Offset),
					zap.Strings("texts", texts),
					zap.Error(err),
				)
				return nil
			}
			results[i] = rowResult{record: rec, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []roster.ParsedRecord
	for _, r := range results {
		if !r.ok {
			progress.RowsUnparseable.Add(1)
			metrics.RowsUnparseableTotal.Inc()
			continue
		}
		progress.RecordsParsed.Add(1)
		records = append(records, r.record)
	}
	return records, nil
}

func (p *Pipeline) recognize(ctx context.Context, row entity.RowObservation) ([]string, error) {
	cleaned, err := p.cleaner.Clean(row.Crop)
	if err != nil {
		return nil, fmt.Errorf("clean row: %w", err)
	}
	if cleaned != row.Crop {
		defer closeImage(cleaned)
	}

	start := time.Now()
	texts, err := p.ocr.Recognize(ctx, cleaned)
	metrics.OCRDuration.Observe(time.Since(start).Seconds())
	return texts, err
}

func saveCrop(dir string, row int, obs entity.RowObservation) error {
	data, err := encodePNG(obs.Crop)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("frame_%06d_row_%02d.png", obs.FrameIndex, row)
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}

func encodePNG(img image.Image) ([]byte, error) {
	if enc, ok := img.(port.PNGEncoder); ok {
		return enc.EncodePNG()
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), nil
}

func closeImage(img image.Image) {
	if c, ok := img.(io.Closer); ok {
		c.Close()
	}
}
