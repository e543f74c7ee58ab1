// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package quotient

import "fmt"

// unpacked is a Vector with one slot per 64 bit word: simpler and
// faster than packed, at the cost of up to ~20x the space for narrow
// slots.
type unpacked []uint64

var _ Vector = (*unpacked)(nil)

// UnpackedVectorAllocate allocates one 64 bit word per slot, regardless
// of how many bits of 'bits' are actually significant.
func UnpackedVectorAllocate(bits uint, size uint64) Vector {
	if bits > bitsPerWord {
		panic(fmt.Sprintf("bit size of %d is greater than word size of %d, not supported",
			bits, bitsPerWord))
	}
	arr := make(unpacked, size)
	return &arr
}

func (v *unpacked) Set(ix uint64, val uint64) {
	(*v)[ix] = val
}

func (v *unpacked) Swap(ix uint64, val uint64) (oldval uint64) {
	(*v)[ix], oldval = val, (*v)[ix]
	return
}

func (v *unpacked) Get(ix uint64) (val uint64) {
	return (*v)[ix]
}
