// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package quotient

// VectorAllocateFn allocates a fixed size Vector capable of storing
// 'size' integers of 'bits' width.
type VectorAllocateFn func(bits uint, size uint64) Vector

// Vector stores a fixed size contiguous array of integer data. It is the
// storage abstraction behind the slot table: implementations may pack
// several slots per machine word (BitPackedVectorAllocate) or keep one
// slot per word (UnpackedVectorAllocate). Both satisfy identical
// semantics; callers pick based on the time/space tradeoff they want.
type Vector interface {
	// Set element ix to the specified value.
	Set(ix uint64, val uint64)
	// Swap val in ix and return the previous value.
	Swap(ix uint64, val uint64) uint64
	// Get the current value stored at element ix.
	Get(ix uint64) uint64
}
