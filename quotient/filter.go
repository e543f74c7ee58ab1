// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

// Package quotient implements a quotient filter: an approximate
// membership data structure that stores only a remainder per key,
// packed into a linear table with three metadata bits per slot. It
// supports insertion, lookup, dynamic resize and non-destructive
// merge. There is no deletion and no concurrent access - callers
// serialize their own mutations.
package quotient

import (
	"errors"
	"fmt"
)

// Filter is a quotient filter of q quotient bits and r remainder
// bits. Keys are q+r bits wide; a key's high q bits (its quotient)
// select a home bucket and its low r bits (its remainder) are what
// gets stored there.
type Filter struct {
	entries uint64
	size    uint64
	qBits   uint
	rBits   uint
	rMask   uint64
	keyMask uint64
	table   Vector
	allocfn VectorAllocateFn
}

// New allocates an empty filter with the given quotient and
// remainder widths, backed by a one-word-per-slot Vector.
func New(q, r uint) (*Filter, error) {
	return newFilter(q, r, UnpackedVectorAllocate)
}

// NewBitPacked is like New but packs slots several to a machine word,
// trading lookup/insert speed for a smaller table.
func NewBitPacked(q, r uint) (*Filter, error) {
	return newFilter(q, r, BitPackedVectorAllocate)
}

// NewWithConfig pre-sizes a filter from a Config's expected entry
// count instead of an explicit q.
func NewWithConfig(c Config) (*Filter, error) {
	alloc := UnpackedVectorAllocate
	if c.BitPacked {
		alloc = BitPackedVectorAllocate
	}
	return newFilter(c.QBits(), c.RBits, alloc)
}

func newFilter(q, r uint, alloc VectorAllocateFn) (*Filter, error) {
	if q < minQBits {
		return nil, fmt.Errorf("quotient: q must be at least %d, got %d", minQBits, q)
	}
	if r == 0 {
		return nil, errors.New("quotient: r must be positive")
	}
	if q+r > 64 {
		return nil, fmt.Errorf("quotient: q+r=%d exceeds the 64 bit key width limit", q+r)
	}
	if r > bitsPerWord-3 {
		return nil, fmt.Errorf("quotient: r=%d leaves no room for the 3 metadata bits in a single slot word", r)
	}

	f := &Filter{
		qBits:   q,
		rBits:   r,
		size:    uint64(1) << q,
		allocfn: alloc,
	}
	f.rMask = (uint64(1) << r) - 1
	if q+r >= 64 {
		f.keyMask = ^uint64(0)
	} else {
		f.keyMask = (uint64(1) << (q + r)) - 1
	}
	f.table = alloc(3+r, f.size)
	return f, nil
}

// Len reports the number of entries inserted, duplicates included.
func (f *Filter) Len() uint64 {
	return f.entries
}

// QBits reports the quotient width.
func (f *Filter) QBits() uint {
	return f.qBits
}

// RBits reports the remainder width.
func (f *Filter) RBits() uint {
	return f.rBits
}

// Size reports the number of slots in the table (2^q).
func (f *Filter) Size() uint64 {
	return f.size
}

// Split breaks a key of width q+r into its quotient (home bucket
// index) and remainder, exactly as Insert/Lookup do internally.
func (f *Filter) Split(key uint64) (quotient, remainder uint64) {
	key &= f.keyMask
	return key >> f.rBits, key & f.rMask
}

// slotData packs the three metadata bits and the remainder into one
// word: bits 0-2 are occupied/continued/shifted, the rest is the
// remainder. A slot is empty iff the whole word is zero.
type slotData uint64

const (
	occupiedMask    = slotData(1)
	continuedMask   = slotData(1 << 1)
	shiftedMask     = slotData(1 << 2)
	bookkeepingMask = slotData(0x7)
)

func (sd slotData) empty() bool     { return sd&bookkeepingMask == 0 }
func (sd slotData) occupied() bool  { return sd&occupiedMask != 0 }
func (sd slotData) continued() bool { return sd&continuedMask != 0 }
func (sd slotData) shifted() bool   { return sd&shiftedMask != 0 }
func (sd slotData) remainder() uint64 {
	return uint64(sd >> 3)
}

func (sd *slotData) setOccupied(on bool)  { sd.setMask(occupiedMask, on) }
func (sd *slotData) setContinued(on bool) { sd.setMask(continuedMask, on) }
func (sd *slotData) setShifted(on bool)   { sd.setMask(shiftedMask, on) }

func (sd *slotData) setMask(m slotData, on bool) {
	if on {
		*sd |= m
	} else {
		*sd &^= m
	}
}

func (sd *slotData) setRemainder(r uint64) {
	*sd = (*sd & bookkeepingMask) | slotData(r<<3)
}

func (f *Filter) read(slot uint64) slotData {
	return slotData(f.table.Get(slot))
}

func (f *Filter) write(slot uint64, sd slotData) {
	f.table.Set(slot, uint64(sd))
}

func right(i *uint64, size uint64) {
	*i++
	if *i >= size {
		*i = 0
	}
}

func left(i *uint64, size uint64) {
	if *i == 0 {
		*i += size
	}
	*i--
}

// locateRunHead finds the head slot of dq's run (spec.md §4.1.1 step
// 4): walk backward while shifted to find the cluster start, then
// walk forward skipping one full run per occupied home bucket
// encountered up to and including dq.
func (f *Filter) locateRunHead(dq uint64) uint64 {
	runs, complete := 1, 0
	for i := dq; ; left(&i, f.size) {
		sd := f.read(i)
		if !sd.continued() {
			complete++
		}
		if !sd.shifted() {
			break
		} else if sd.occupied() {
			runs++
		}
	}
	for runs > complete {
		right(&dq, f.size)
		if !f.read(dq).continued() {
			complete++
		}
	}
	return dq
}

// Insert stores key, a value of width q+r bits (wider keys are
// truncated to their low q+r bits). Duplicates are permitted: the
// same key inserted twice occupies two slots and increments Len()
// twice. Insert never fails; it grows the table first if the table
// is completely full.
func (f *Filter) Insert(key uint64) {
	if f.entries == f.size {
		f.resize()
	}
	key &= f.keyMask
	dq := key >> f.rBits
	dr := key & f.rMask
	f.insertSplit(dq, dr)
}

func (f *Filter) insertSplit(dq, dr uint64) {
	sd := f.read(dq)

	// slot is empty: dq has never been anyone's home bucket and
	// nothing has been shifted through it either.
	if sd.empty() {
		sd.setOccupied(true)
		sd.setRemainder(dr)
		f.write(dq, sd)
		f.entries++
		return
	}

	alreadyOccupied := sd.occupied()
	if !alreadyOccupied {
		sd.setOccupied(true)
		f.write(dq, sd)
	}

	runHead := dq
	if sd.shifted() {
		runHead = f.locateRunHead(dq)
	}

	// choose the in-run insertion point, preserving ascending order
	insertPos := runHead
	cur := f.read(insertPos)
	if !cur.empty() && cur.remainder() < dr {
		right(&insertPos, f.size)
		cur = f.read(insertPos)
		for cur.continued() && cur.remainder() < dr {
			right(&insertPos, f.size)
			cur = f.read(insertPos)
		}
	}
	insertingAtHead := insertPos == runHead

	if cur.empty() {
		var ns slotData
		ns.setOccupied(cur.occupied())
		ns.setShifted(insertPos != dq)
		ns.setContinued(alreadyOccupied && !insertingAtHead)
		ns.setRemainder(dr)
		f.write(insertPos, ns)
		f.entries++
		return
	}

	// shift every slot from insertPos onward one place to the right
	// until we reach an empty slot, then write the new remainder in.
	shifted := insertPos != dq
	continued := alreadyOccupied && !insertingAtHead
	slot := insertPos
	for {
		old := f.read(slot)
		var ns slotData
		ns.setOccupied(old.occupied())
		ns.setShifted(shifted)
		ns.setContinued(continued)
		ns.setRemainder(dr)
		f.write(slot, ns)

		if old.empty() {
			break
		}
		if (slot == runHead && alreadyOccupied) || old.continued() {
			continued = true
		} else {
			continued = false
		}
		dr = old.remainder()
		right(&slot, f.size)
		shifted = true
	}
	f.entries++
}

// Lookup reports whether key is present. It performs no writes.
func (f *Filter) Lookup(key uint64) bool {
	key &= f.keyMask
	dq := key >> f.rBits
	dr := key & f.rMask

	sd := f.read(dq)
	if !sd.occupied() {
		return false
	}
	slot := dq
	if sd.shifted() {
		slot = f.locateRunHead(dq)
	}
	sd = f.read(slot)
	for {
		if sd.remainder() == dr {
			return true
		}
		if sd.remainder() > dr {
			return false
		}
		right(&slot, f.size)
		sd = f.read(slot)
		if !sd.continued() {
			return false
		}
	}
}

// Contains is an alias for Lookup.
func (f *Filter) Contains(key uint64) bool { return f.Lookup(key) }

// InsertString folds s down to a q+r bit key via HashToKey and
// inserts it.
func (f *Filter) InsertString(s string) {
	f.Insert(HashToKey([]byte(s), f.qBits, f.rBits))
}

// LookupString is the Lookup counterpart to InsertString.
func (f *Filter) LookupString(s string) bool {
	return f.Lookup(HashToKey([]byte(s), f.qBits, f.rBits))
}

// collectKeys walks every run in the table and reassembles the
// original (quotient<<r | remainder) key for every stored slot,
// duplicates included. Grounded in the teacher's eachHashValue.
func (f *Filter) collectKeys() []uint64 {
	if f.entries == 0 {
		return nil
	}
	keys := make([]uint64, 0, f.entries)

	var stack []uint64
	start := uint64(0)
	for f.read(start).shifted() {
		right(&start, f.size)
	}
	end := start
	left(&end, f.size)

	for i := start; ; right(&i, f.size) {
		sd := f.read(i)
		if !sd.continued() && len(stack) > 0 {
			stack = stack[1:]
		}
		if sd.occupied() {
			stack = append(stack, i)
		}
		if len(stack) > 0 {
			keys = append(keys, (stack[0]<<f.rBits)|sd.remainder())
		}
		if i == end {
			break
		}
	}
	return keys
}

// resize doubles the table (q -> q+1, same r), preserving every
// stored key including duplicates, and swaps the new table in.
func (f *Filter) resize() {
	keys := f.collectKeys()
	grown, err := newFilter(f.qBits+1, f.rBits, f.allocfn)
	if err != nil {
		panic(fmt.Sprintf("quotient: resize failed: %s", err))
	}
	for _, k := range keys {
		grown.Insert(k)
	}
	*f = *grown
}

// Merge combines f and other into a new filter without modifying
// either input. Both filters must share the same remainder width.
// The result is sized to the smallest q such that 2^q is at least
// the combined entry count and at least as large as either input's
// q, per spec.md §4.1.1.
func Merge(f, other *Filter) (*Filter, error) {
	if f.rBits != other.rBits {
		return nil, fmt.Errorf("quotient: cannot merge filters with different remainder widths (%d vs %d)", f.rBits, other.rBits)
	}
	a := f.collectKeys()
	b := other.collectKeys()

	q := f.qBits
	if other.qBits > q {
		q = other.qBits
	}
	total := uint64(len(a) + len(b))
	for (uint64(1) << q) < total {
		q++
	}

	merged, err := newFilter(q, f.rBits, f.allocfn)
	if err != nil {
		return nil, err
	}
	for _, k := range a {
		merged.Insert(k)
	}
	for _, k := range b {
		merged.Insert(k)
	}
	return merged, nil
}

// SlotMeta exposes one slot's raw metadata bits, for tests that
// assert on run/cluster structure directly.
func (f *Filter) SlotMeta(i uint64) (occupied, continued, shifted bool, remainder uint64) {
	sd := f.read(i)
	return sd.occupied(), sd.continued(), sd.shifted(), sd.remainder()
}

// DebugDump prints a textual summary of the table to stdout: one
// line per non-empty slot, runs of empty slots collapsed to "...".
func (f *Filter) DebugDump(full bool) {
	fmt.Printf("quotient filter: %d slots (q=%d, r=%d), %d entries (%0.1f%% loaded)\n",
		f.size, f.qBits, f.rBits, f.entries, 100*float64(f.entries)/float64(f.size))
	if !full {
		return
	}
	fmt.Printf("  slot      O C S remainder\n")
	skipped := 0
	for i := uint64(0); i < f.size; i++ {
		sd := f.read(i)
		if sd.empty() {
			skipped++
			continue
		}
		if skipped > 0 {
			fmt.Printf("          ...\n")
			skipped = 0
		}
		fmt.Printf("%8d  %d %d %d %#x\n", i, b2i(sd.occupied()), b2i(sd.continued()), b2i(sd.shifted()), sd.remainder())
	}
	if skipped > 0 {
		fmt.Printf("          ...\n")
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
