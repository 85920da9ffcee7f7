// Package roster reconstructs an ordered club roster from noisy per-row OCR
// records collected across many overlapping video frames.
//
// The flow is: ParseRecord turns OCR fragments into a ParsedRecord, Groups
// collects records per extracted name, Vote computes a per-field majority for
// each group, MergeIdentical collapses name variants whose voted fields agree,
// and Graph recovers the visual order from rows that shared a frame.
// Reconstructor runs all of it.
package roster
