package entity

import (
	"image"
	"io"
	"sync/atomic"
)

// Member is one reconstructed roster entry as handed to exporters.
type Member struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	TotalFans int64  `json:"total_fans"`
	LastLogin int64  `json:"last_login"`
}

// RawFrame is a decoded video frame and its index in sample order.
type RawFrame struct {
	Index int
	Image image.Image
}

// Close releases native memory held by the frame image, if any.
func (f RawFrame) Close() error {
	return closeImage(f.Image)
}

// RowObservation is one segmented roster row inside a frame.
type RowObservation struct {
	Crop       image.Image
	FrameIndex int
	Offset     int
}

func (r RowObservation) Close() error {
	return closeImage(r.Crop)
}

func closeImage(img image.Image) error {
	if c, ok := img.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// RosterStats summarises one pipeline run.
type RosterStats struct {
	FramesSampled   int `json:"frames_sampled"`
	FramesSkipped   int `json:"frames_skipped"`
	RowsDetected    int `json:"rows_detected"`
	RecordsParsed   int `json:"records_parsed"`
	RowsUnparseable int `json:"rows_unparseable"`
	Identities      int `json:"identities"`
	Merges          int `json:"merges"`
	Edges           int `json:"edges"`
	DroppedEdges    int `json:"dropped_edges"`
}

// AnalyzeRequest describes one reconstruction run. Progress may be nil.
// When CropDir is set, every segmented row is saved there as a PNG.
type AnalyzeRequest struct {
	VideoPath string
	CropDir   string
	Progress  *Progress
}

// RosterResult is the reconstructed roster: one member slice per chain.
type RosterResult struct {
	Chains [][]Member
	Stats  RosterStats
}

// Members flattens the chains in chain order.
func (r *RosterResult) Members() []Member {
	var out []Member
	for _, chain := range r.Chains {
		out = append(out, chain...)
	}
	return out
}

// Progress holds counters updated by a running pipeline. Safe for concurrent use.
type Progress struct {
	FramesSampled   atomic.Int64
	FramesSkipped   atomic.Int64
	RowsDetected    atomic.Int64
	RecordsParsed   atomic.Int64
	RowsUnparseable atomic.Int64
}

type ProgressSnapshot struct {
	FramesSampled   int64 `json:"frames_sampled"`
	FramesSkipped   int64 `json:"frames_skipped"`
	RowsDetected    int64 `json:"rows_detected"`
	RecordsParsed   int64 `json:"records_parsed"`
	RowsUnparseable int64 `json:"rows_unparseable"`
}

func (p *Progress) Snapshot() ProgressSnapshot {
	if p == nil {
		return ProgressSnapshot{}
	}
	return ProgressSnapshot{
		FramesSampled:   p.FramesSampled.Load(),
		FramesSkipped:   p.FramesSkipped.Load(),
		RowsDetected:    p.RowsDetected.Load(),
		RecordsParsed:   p.RecordsParsed.Load(),
		RowsUnparseable: p.RowsUnparseable.Load(),
	}
}
