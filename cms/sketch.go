// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

// Package cms implements a Count-Min Sketch: a fixed-size counter
// matrix that estimates item frequencies from a stream, always at or
// above the true count, never below.
package cms

import (
	"errors"
	"fmt"
	"math"

	"github.com/dscore/probds/internal/seedhash"
)

// Sketch is a depth x width matrix of non-negative counters.
type Sketch struct {
	width, depth uint
	counters     [][]uint64
	total        uint64
}

// NewWithEstimates derives width and depth from the target error
// bound epsilon and failure probability delta per the standard
// closed-form formulas, and allocates the zeroed counter matrix.
func NewWithEstimates(epsilon, delta float64) (*Sketch, error) {
	if !(epsilon > 0) {
		return nil, errors.New("cms: epsilon must be positive")
	}
	if !(delta > 0 && delta <= 1) {
		return nil, fmt.Errorf("cms: delta must be in (0, 1], got %v", delta)
	}
	width := EstimateWidth(epsilon)
	depth := EstimateDepth(delta)

	counters := make([][]uint64, depth)
	for i := range counters {
		counters[i] = make([]uint64, width)
	}
	return &Sketch{width: width, depth: depth, counters: counters}, nil
}

// EstimateWidth computes ceil(e / epsilon).
func EstimateWidth(epsilon float64) uint {
	w := math.Ceil(math.E / epsilon)
	if w < 1 {
		w = 1
	}
	return uint(w)
}

// EstimateDepth computes ceil(ln(1/delta)).
func EstimateDepth(delta float64) uint {
	d := math.Ceil(math.Log(1 / delta))
	if d < 1 {
		d = 1
	}
	return uint(d)
}

// Width reports the counter matrix's column count.
func (s *Sketch) Width() uint { return s.width }

// Depth reports the counter matrix's row count.
func (s *Sketch) Depth() uint { return s.depth }

func (s *Sketch) columns(data []byte) []uint {
	h1, h2 := seedhash.Seeds(data)
	cols := make([]uint, s.depth)
	for i := uint(0); i < s.depth; i++ {
		cols[i] = uint(seedhash.At(h1, h2, uint32(i), uint32(s.width)))
	}
	return cols
}

// Update adds freq to every row's counter for item. A negative freq
// is a parameter violation, rejected before any counter is touched;
// freq == 0 leaves the sketch unchanged.
func (s *Sketch) Update(item []byte, freq int64) error {
	if freq < 0 {
		return fmt.Errorf("cms: freq must be non-negative, got %d", freq)
	}
	if freq == 0 {
		return nil
	}
	uf := uint64(freq)
	for row, col := range s.columns(item) {
		s.counters[row][col] += uf
	}
	s.total += uf
	return nil
}

// Estimate returns the minimum counter across item's row selections,
// an upper bound on item's true cumulative frequency.
func (s *Sketch) Estimate(item []byte) uint64 {
	min := uint64(math.MaxUint64)
	for row, col := range s.columns(item) {
		if v := s.counters[row][col]; v < min {
			min = v
		}
	}
	return min
}

// TotalCount reports the sum of every freq ever passed to Update.
func (s *Sketch) TotalCount() uint64 { return s.total }
