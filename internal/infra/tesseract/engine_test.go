package tesseract

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"os/exec"
	"strings"
	"testing"

	"github.com/otiai10/gosseract/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

func word(text string, minX, maxX, line int) gosseract.BoundingBox {
	return gosseract.BoundingBox{
		Box:     image.Rect(minX, 10, maxX, 30),
		Word:    text,
		LineNum: line,
	}
}

func TestFragmentsSplitOnWideGaps(t *testing.T) {
	words := []gosseract.BoundingBox{
		word("Member", 0, 60, 0),
		word("Total", 100, 140, 1),
		word("Fans", 145, 180, 1),
		word("12,345", 300, 360, 1),
		word("Last", 100, 130, 2),
		word("Login", 135, 170, 2),
		word("3h", 300, 320, 2),
	}
	assert.Equal(t,
		[]string{"Member", "Total Fans", "12,345", "Last Login", "3h"},
		fragments(words, defaultGapFactor),
	)
}

func TestFragmentsSkipsBlankWords(t *testing.T) {
	words := []gosseract.BoundingBox{word(" ", 0, 5, 0), word("Leader", 10, 60, 0)}
	assert.Equal(t, []string{"Leader"}, fragments(words, defaultGapFactor))
	assert.Nil(t, fragments(nil, defaultGapFactor))
}

func TestRecognizeRenderedText(t *testing.T) {
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed")
	}

	img := image.NewRGBA(image.Rect(0, 0, 400, 60))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 35),
	}
	d.DrawString("LEADER")

	texts, err := NewEngine([]string{"eng"}, int(gosseract.PSM_SINGLE_LINE)).Recognize(context.Background(), img)
	require.NoError(t, err)
	assert.Contains(t, strings.ToUpper(strings.Join(texts, " ")), "LEADER")
}

func TestRecognizeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine(nil, 11).Recognize(ctx, image.NewGray(image.Rect(0, 0, 1, 1)))
	assert.ErrorIs(t, err, context.Canceled)
}
