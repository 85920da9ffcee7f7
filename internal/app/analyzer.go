// Package app assembles the roster analyzer from its concrete adapters.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/port"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/infra/config"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/infra/ffmpeg"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/infra/tesseract"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/pipeline"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/roster"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/vision"
)

type AnalyzerConfig struct {
	SampleFPS        float64
	SamplerBackend   string
	NormalizeHeight  int
	OCRLanguages     []string
	OCRPageSegMode   int
	OCRWorkers       int
	RevoteAfterMerge bool
	TempDir          string
}

func AnalyzerConfigFrom(cfg *config.Config) AnalyzerConfig {
	return AnalyzerConfig{
		SampleFPS:        cfg.SampleFPS,
		SamplerBackend:   cfg.SamplerBackend,
		NormalizeHeight:  cfg.NormalizeHeight,
		OCRLanguages:     cfg.OCRLanguages,
		OCRPageSegMode:   cfg.OCRPageSegMode,
		OCRWorkers:       cfg.OCRWorkers,
		RevoteAfterMerge: cfg.RevoteAfterMerge,
		TempDir:          cfg.TempDir,
	}
}

func NewSampler(cfg AnalyzerConfig, logger *zap.Logger) (port.FrameSampler, error) {
	switch cfg.SamplerBackend {
	case config.SamplerOpenCV, "":
		return vision.NewSampler(cfg.SampleFPS, logger), nil
	case config.SamplerFFmpeg:
		return ffmpeg.NewSampler(cfg.SampleFPS, cfg.TempDir, logger), nil
	default:
		return nil, fmt.Errorf("unknown sampler backend %q", cfg.SamplerBackend)
	}
}

// NewAnalyzer wires sampler, segmenter, cleaner, OCR and reconstructor.
func NewAnalyzer(cfg AnalyzerConfig, logger *zap.Logger) (*pipeline.Pipeline, error) {
	sampler, err := NewSampler(cfg, logger)
	if err != nil {
		return nil, err
	}
	return pipeline.New(
		sampler,
		vision.NewSegmenter(vision.NewNormalizer(cfg.NormalizeHeight), logger),
		vision.NewCleaner(),
		tesseract.NewEngine(cfg.OCRLanguages, cfg.OCRPageSegMode),
		roster.NewReconstructor(roster.Config{RevoteAfterMerge: cfg.RevoteAfterMerge}, logger),
		pipeline.Config{OCRWorkers: cfg.OCRWorkers},
		logger,
	), nil
}
