package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/entity"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-video", "club.mp4", "-lang", "eng+jpn", "-workers", "2", "-format", "json"})
	require.NoError(t, err)
	assert.Equal(t, "club.mp4", opts.videoPath)
	assert.Equal(t, []string{"eng", "jpn"}, opts.analyzer.OCRLanguages)
	assert.Equal(t, 2, opts.analyzer.OCRWorkers)
	assert.Equal(t, formatJSON, opts.format)
	assert.Equal(t, "opencv", opts.analyzer.SamplerBackend)
	assert.True(t, opts.analyzer.RevoteAfterMerge)
}

func TestParseFlagsPositionalVideo(t *testing.T) {
	opts, err := parseFlags([]string{"club.mp4"})
	require.NoError(t, err)
	assert.Equal(t, "club.mp4", opts.videoPath)
	assert.Equal(t, formatCodeblock, opts.format)
}

func TestParseFlagsErrors(t *testing.T) {
	for name, args := range map[string][]string{
		"no video":   {},
		"bad format": {"-video", "a.mp4", "-format", "xml"},
		"no workers": {"-video", "a.mp4", "-workers", "0"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseFlags(args)
			assert.Error(t, err)
		})
	}
}

func TestWriteCodeblock(t *testing.T) {
	result := &entity.RosterResult{Chains: [][]entity.Member{{{Name: "Alice", TotalFans: 10}}}}
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, write(&buf, formatCodeblock, result, at))
	assert.Equal(t, ",\"Alice\"\n2026-03-14 09:00:00,10\n", buf.String())
}

func TestAppendSnapshotCreatesAndGrows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fans.csv")
	first := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	require.NoError(t, appendSnapshot(path, []entity.Member{{Name: "Alice", TotalFans: 10}}, first))
	require.NoError(t, appendSnapshot(path, []entity.Member{{Name: "Bob", TotalFans: 7}}, first.Add(time.Hour)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"Timestamp,Alice,Bob\n2026-03-14 09:00:00,10,\n2026-03-14 10:00:00,,7\n",
		string(data))
}
