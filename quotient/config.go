// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package quotient

import "fmt"

// minQBits is the smallest quotient width New will accept. Below this
// a table has too few slots for the run/cluster bookkeeping to be
// meaningful.
const minQBits = 2

// targetLoading is the loading factor Config.QBits sizes towards. It
// is purely a presizing heuristic to reduce the number of resizes a
// caller with a known entry count will pay for; it has no bearing on
// the automatic-growth rule in Insert, which triggers at 100% loading
// exactly as spec'd.
const targetLoading = 0.75

// Config pre-sizes a Filter for an expected number of entries, the
// way the teacher project's Config does for its own hash-derived
// filter.
type Config struct {
	// ExpectedEntries is the number of entries the filter should be
	// able to hold before its first automatic resize.
	ExpectedEntries uint64
	// RBits is the remainder width; fixed for the life of the filter
	// (Insert/Resize never change it, only Merge must match it across
	// inputs).
	RBits uint
	// BitPacked selects the bit-packed slot Vector over the simpler
	// one-word-per-slot Vector.
	BitPacked bool
}

// QBits returns the quotient width needed to hold ExpectedEntries at
// targetLoading, floored at minQBits.
func (c *Config) QBits() uint {
	bits := uint(minQBits)
	for (float64(uint64(1)<<bits) * targetLoading) < float64(c.ExpectedEntries) {
		bits++
	}
	return bits
}

// BucketCount reports the number of slots QBits() implies.
func (c *Config) BucketCount() uint64 {
	return uint64(1) << c.QBits()
}

// ExpectedLoading reports the loading percentage ExpectedEntries would
// produce at the computed QBits().
func (c *Config) ExpectedLoading() float64 {
	return 100. * float64(c.ExpectedEntries) / float64(c.BucketCount())
}

// BytesRequired estimates the in-memory footprint of a bit-packed
// filter built from this config.
func (c *Config) BytesRequired() uint {
	bitsPerSlot := 3 + c.RBits
	return uint(c.BucketCount()) * bitsPerSlot / 8
}

// Explain prints a human-readable summary of the sizing decision.
func (c *Config) Explain() {
	fmt.Printf("%2d bits configured for quotient (%d buckets)\n", c.QBits(), c.BucketCount())
	fmt.Printf("%2d bits needed per bucket for remainder\n", c.RBits)
	fmt.Printf("%2d bits metadata per bucket\n", 3)
	fmt.Printf("   %s storage size expected at %0.1f%% loading\n", humanBytes(c.BytesRequired()), c.ExpectedLoading())
}

func humanBytes(bytes uint) string {
	v := float64(bytes)
	suffix := "bytes"
	for _, s := range []string{"KB", "MB", "GB"} {
		if v < 1024 {
			break
		}
		v /= 1024.
		suffix = s
	}
	if v < 10 {
		return fmt.Sprintf("%0.2f %s", v, suffix)
	} else if v < 100 {
		return fmt.Sprintf("%0.1f %s", v, suffix)
	}
	return fmt.Sprintf("%0.0f %s", v, suffix)
}
