package vision

import (
	"fmt"
	"strconv"
	"strings"

	"gocv.io/x/gocv"
)

// UI colors of the club member list.
const (
	ClubHeaderColor       = "#7fcc0b"
	RowHeaderColor        = "#e4ddd2"
	RowBackgroundColor    = "#ffffff"
	RowSelfBackground     = "#fff4c6"
	RowKeyBackgroundColor = "#ece7e4"
	InfoIconTopColor      = "#ffffff"
	InfoIconBottomColor   = "#fafafa"
)

type bgr [3]float64

func parseHex(hex string) (bgr, error) {
	h := strings.TrimPrefix(hex, "#")
	if len(h) != 6 {
		return bgr{}, fmt.Errorf("invalid hex color %q", hex)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return bgr{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	r := float64(v >> 16 & 0xff)
	g := float64(v >> 8 & 0xff)
	b := float64(v & 0xff)
	return bgr{b, g, r}, nil
}

func mustHex(hex string) bgr {
	c, err := parseHex(hex)
	if err != nil {
		panic(err)
	}
	return c
}

func (c bgr) scalar() gocv.Scalar {
	return gocv.NewScalar(c[0], c[1], c[2], 0)
}

func (c bgr) bounds(tolerance float64) (gocv.Scalar, gocv.Scalar) {
	var lo, hi bgr
	for i, v := range c {
		lo[i] = max(v-tolerance, 0)
		hi[i] = min(v+tolerance, 255)
	}
	return lo.scalar(), hi.scalar()
}
