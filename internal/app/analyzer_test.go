package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/infra/config"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/infra/ffmpeg"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/vision"
)

func TestNewSamplerBackends(t *testing.T) {
	s, err := NewSampler(AnalyzerConfig{SampleFPS: 12, SamplerBackend: config.SamplerOpenCV}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &vision.Sampler{}, s)

	s, err = NewSampler(AnalyzerConfig{SampleFPS: 12, SamplerBackend: config.SamplerFFmpeg, TempDir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &ffmpeg.Sampler{}, s)

	_, err = NewSampler(AnalyzerConfig{SamplerBackend: "gstreamer"}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewAnalyzer(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	a, err := NewAnalyzer(AnalyzerConfigFrom(cfg), zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, a)
}
