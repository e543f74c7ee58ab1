// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

// Package seedhash is the 32-bit seeded hash family shared by the
// Bloom filter and Count-Min Sketch. Both need k (or depth)
// independent-looking hash indices per item; rather than reseed a
// full hash k times, a single 64-bit murmur hash is split into two
// 32-bit halves and combined via the enhanced double hashing
// construction of Dillinger and Manolios, the same technique
// greatroar/blobloom uses to synthesize extra hashes from one.
package seedhash

// murmur mixing constants, the same 64 bit murmur2 variant the
// quotient filter uses.
const (
	bigM = 0xc6a4a7935bd1e995
	bigR = 47
)

func murmurhash64(v []byte) uint64 {
	var off int
	var h, k uint64

	h = uint64(len(v)) * bigM

	for l := len(v) - off; l >= 8; l -= 8 {
		k = uint64(v[off+0]) | uint64(v[off+1])<<8 | uint64(v[off+2])<<16 | uint64(v[off+3])<<24 |
			uint64(v[off+4])<<32 | uint64(v[off+5])<<40 | uint64(v[off+6])<<48 | uint64(v[off+7])<<56

		k *= bigM
		k ^= k >> bigR
		k *= bigM

		h ^= k
		h *= bigM

		off += 8
	}

	switch len(v) - off {
	case 7:
		h ^= uint64(v[off+6]) << 48
		fallthrough
	case 6:
		h ^= uint64(v[off+5]) << 40
		fallthrough
	case 5:
		h ^= uint64(v[off+4]) << 32
		fallthrough
	case 4:
		h ^= uint64(v[off+3]) << 24
		fallthrough
	case 3:
		h ^= uint64(v[off+2]) << 16
		fallthrough
	case 2:
		h ^= uint64(v[off+1]) << 8
		fallthrough
	case 1:
		h ^= uint64(v[off+0])
		h *= bigM
	}

	h ^= h >> bigR
	h *= bigM
	h ^= h >> bigR

	return h
}

// Seeds derives the two base values (h1, h2) double hashing combines
// to produce the family's i-th member.
func Seeds(data []byte) (h1, h2 uint32) {
	h := murmurhash64(data)
	return uint32(h >> 32), uint32(h)
}

// At returns the i-th hash in the family for (h1, h2), reduced into
// [0, mod). i is the "seed" the spec's hash family is indexed by.
func At(h1, h2 uint32, i uint32, mod uint32) uint32 {
	// enhanced double hashing: re-mix h2 every round so the sequence
	// doesn't degrade into a simple arithmetic progression for large i.
	v1, v2 := h1, h2
	for n := uint32(0); n < i; n++ {
		v1 += v2
		v2 += n
	}
	if mod == 0 {
		return 0
	}
	return v1 % mod
}
