package roster

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	totalFansMarker = "total fans"
	lastLoginMarker = "last login"
)

// ErrUnparseable marks a row whose OCR text does not form a record.
var ErrUnparseable = errors.New("unparseable row")

// ParseRecord builds a record from OCR fragments laid out as
// role, name..., "Total Fans", count, ..., "Last Login", recency.
func ParseRecord(texts []string, frameIndex, offset int) (ParsedRecord, error) {
	normalized := make([]string, len(texts))
	for i, t := range texts {
		normalized[i] = strings.ToLower(strings.TrimSpace(t))
	}
	if len(normalized) == 0 {
		return ParsedRecord{}, fmt.Errorf("%w: no text", ErrUnparseable)
	}

	fansAt := indexOf(normalized, totalFansMarker)
	if fansAt < 0 {
		return ParsedRecord{}, fmt.Errorf("%w: %q marker missing", ErrUnparseable, totalFansMarker)
	}
	loginAt := indexOf(normalized, lastLoginMarker)
	if loginAt < 0 {
		return ParsedRecord{}, fmt.Errorf("%w: %q marker missing", ErrUnparseable, lastLoginMarker)
	}
	if fansAt+1 >= len(normalized) || loginAt+1 >= len(normalized) {
		return ParsedRecord{}, fmt.Errorf("%w: marker without value", ErrUnparseable)
	}

	// the name keeps its original casing so spelling variants still vote apart
	var name string
	if fansAt > 1 {
		name = strings.TrimSpace(strings.Join(texts[1:fansAt], " "))
	}
	if name == "" {
		return ParsedRecord{}, fmt.Errorf("%w: empty name", ErrUnparseable)
	}

	fans, err := ParseDigits(normalized[fansAt+1])
	if err != nil {
		return ParsedRecord{}, err
	}
	recency, err := ParseLastLogin(normalized[loginAt+1])
	if err != nil {
		return ParsedRecord{}, err
	}

	return ParsedRecord{
		Role:       normalized[0],
		Name:       name,
		Counter:    fans,
		Recency:    recency,
		FrameIndex: frameIndex,
		Offset:     offset,
	}, nil
}

// ParseDigits keeps only the ASCII digits of s and reads them as one number.
// A string without digits yields zero.
func ParseDigits(s string) (int64, error) {
	var n int64
	for _, r := range s {
		if r < '0' || r > '9' {
			continue
		}
		d := int64(r - '0')
		if n > (math.MaxInt64-d)/10 {
			return 0, fmt.Errorf("%w: number overflows in %q", ErrUnparseable, s)
		}
		n = n*10 + d
	}
	return n, nil
}

var unitSeconds = map[rune]int64{
	's': 1,
	'm': 60,
	'h': 60 * 60,
	'd': 60 * 60 * 24,
}

// ParseLastLogin converts "10s", "5m", "2h", "3d" (and "3h ago", "2 days")
// into seconds. The unit is the first letter after the last digit.
func ParseLastLogin(s string) (int64, error) {
	n, err := ParseDigits(s)
	if err != nil {
		return 0, err
	}
	mul, ok := unitSeconds[unitAfterDigits(strings.ToLower(s))]
	if !ok {
		return n, nil
	}
	if n > math.MaxInt64/mul {
		return 0, fmt.Errorf("%w: recency overflows in %q", ErrUnparseable, s)
	}
	return n * mul, nil
}

func unitAfterDigits(s string) rune {
	runes := []rune(s)
	last := -1
	for i, r := range runes {
		if r >= '0' && r <= '9' {
			last = i
		}
	}
	for i := last + 1; i < len(runes); i++ {
		if runes[i] == ' ' {
			continue
		}
		return runes[i]
	}
	return 0
}

func indexOf(values []string, target string) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}
	return -1
}
