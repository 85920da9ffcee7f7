package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/port"
)

// defaultGapFactor splits a text line where the space between two words is
// wider than this many word heights.
const defaultGapFactor = 1.0

// Engine implements port.OCREngine with a gosseract client per call, so one
// Engine may serve concurrent pipelines.
type Engine struct {
	languages     []string
	pageSegMode   gosseract.PageSegMode
	gapFactor     float64
	clientFactory func() *gosseract.Client
}

func NewEngine(languages []string, pageSegMode int) *Engine {
	return &Engine{
		languages:     languages,
		pageSegMode:   gosseract.PageSegMode(pageSegMode),
		gapFactor:     defaultGapFactor,
		clientFactory: gosseract.NewClient,
	}
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize returns text fragments in reading order. Words on the same line
// are joined unless a wide gap separates them.
func (e *Engine) Recognize(ctx context.Context, img image.Image) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := encode(img)
	if err != nil {
		return nil, err
	}

	c := e.clientFactory()
	defer c.Close()

	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetPageSegMode(e.pageSegMode); err != nil {
		return nil, fmt.Errorf("set page seg mode: %w", err)
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("recognize words: %w", err)
	}
	return fragments(boxes, e.gapFactor), nil
}

func fragments(words []gosseract.BoundingBox, gapFactor float64) []string {
	var (
		out  []string
		cur  []string
		prev *gosseract.BoundingBox
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, " "))
			cur = cur[:0]
		}
	}
	for i := range words {
		w := &words[i]
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		if prev != nil && !sameFragment(prev, w, gapFactor) {
			flush()
		}
		cur = append(cur, text)
		prev = w
	}
	flush()
	return out
}

func sameFragment(a, b *gosseract.BoundingBox, gapFactor float64) bool {
	if a.BlockNum != b.BlockNum || a.ParNum != b.ParNum || a.LineNum != b.LineNum {
		return false
	}
	height := max(a.Box.Dy(), b.Box.Dy(), 1)
	gap := b.Box.Min.X - a.Box.Max.X
	return float64(gap) <= gapFactor*float64(height)
}

func encode(img image.Image) ([]byte, error) {
	if enc, ok := img.(port.PNGEncoder); ok {
		return enc.EncodePNG()
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
