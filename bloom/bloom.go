// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

// Package bloom implements a standard (non-blocked) Bloom filter: an
// approximate-membership bit vector with no false negatives and a
// tunable false positive rate. There is no deletion.
package bloom

import (
	"errors"
	"fmt"
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/dscore/probds/internal/seedhash"
)

// Filter is a Bloom filter sized for n expected items at false
// positive rate f.
type Filter struct {
	bits     *bitset.BitSet
	m        uint
	k        uint
	n        uint64
	inserted uint64
}

// NewWithEstimates derives m and k from the target capacity n and
// false positive rate f per the standard closed-form formulas, and
// allocates the backing bit vector.
func NewWithEstimates(n uint, f float64) (*Filter, error) {
	if n < 1 {
		return nil, errors.New("bloom: n must be at least 1")
	}
	if !(f > 0 && f < 1) {
		return nil, fmt.Errorf("bloom: f must be in (0, 1), got %v", f)
	}
	m := EstimateM(n, f)
	k := EstimateK(m, n)
	return &Filter{
		bits: bitset.New(m),
		m:    m,
		k:    k,
		n:    uint64(n),
	}, nil
}

// EstimateM computes ceil(-n*ln(f) / ln(2)^2), the bit vector width
// needed to hold n items at false positive rate f.
func EstimateM(n uint, f float64) uint {
	ln2 := math.Ln2
	m := math.Ceil(-float64(n) * math.Log(f) / (ln2 * ln2))
	if m < 1 {
		m = 1
	}
	return uint(m)
}

// EstimateK computes ceil((m/n) * ln(2)), the number of hash indices
// per item a vector of width m holding n items should use.
func EstimateK(m, n uint) uint {
	k := math.Ceil((float64(m) / float64(n)) * math.Ln2)
	if k < 1 {
		k = 1
	}
	return uint(k)
}

// M reports the bit vector width.
func (f *Filter) M() uint { return f.m }

// K reports the number of hash indices per item.
func (f *Filter) K() uint { return f.k }

func (f *Filter) indices(data []byte) []uint {
	h1, h2 := seedhash.Seeds(data)
	idx := make([]uint, f.k)
	for i := uint(0); i < f.k; i++ {
		idx[i] = uint(seedhash.At(h1, h2, uint32(i), uint32(f.m)))
	}
	return idx
}

// Insert sets the k bits data's hash family selects.
func (f *Filter) Insert(data []byte) {
	for _, i := range f.indices(data) {
		f.bits.Set(i)
	}
	f.inserted++
}

// Lookup reports whether every bit data's hash family selects is
// set. It may return a false positive; it never returns a false
// negative for a previously inserted item.
func (f *Filter) Lookup(data []byte) bool {
	for _, i := range f.indices(data) {
		if !f.bits.Test(i) {
			return false
		}
	}
	return true
}

// TotalCount reports the number of Insert calls made so far.
func (f *Filter) TotalCount() uint64 { return f.inserted }

// EstimatedFalsePositiveRate returns the standard closed-form
// estimate (1 - e^{-k*n/m})^k for a filter that has seen `inserted`
// items, grounded in greatroar/blobloom's FPRate and
// bits-and-blooms/bloom's EstimateFalsePositiveRate.
func (f *Filter) EstimatedFalsePositiveRate(inserted uint64) float64 {
	exponent := -float64(f.k) * float64(inserted) / float64(f.m)
	return math.Pow(1-math.Exp(exponent), float64(f.k))
}
