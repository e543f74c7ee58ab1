// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package quotient

import "fmt"

// bitsPerWord is the number of bits in a 64 bit word.
const bitsPerWord = 8 * 8

// packed is a Vector that packs several fixed-width slots into each
// 64 bit word, trading a few extra shifts per access for a smaller
// table. Grounded in the teacher's packed.go, with the on-disk
// serialization stripped (this library has no persistence).
type packed struct {
	forbiddenMask uint64
	bits          uint
	space         []uint64
	size          uint64
}

var _ Vector = (*packed)(nil)

// BitPackedVectorAllocate allocates bitpacked storage for 'size' slots
// of 'bits' width each.
func BitPackedVectorAllocate(bits uint, size uint64) Vector {
	if bits > bitsPerWord {
		panic(fmt.Sprintf("bit size of %d is greater than word size of %d, not supported",
			bits, bitsPerWord))
	}
	words := wordsRequired(bits, size)
	return &packed{genForbiddenMask(bits), bits, make([]uint64, words), size}
}

func wordsRequired(bits uint, count uint64) (words uint64) {
	words = ((count * uint64(bits)) / bitsPerWord) + 1
	return
}

func genForbiddenMask(bits uint) uint64 {
	return ^((uint64(1) << bits) - 1)
}

// Swap writes val at ix and returns the old value.
func (p *packed) Swap(ix uint64, val uint64) (oldval uint64) {
	oldval = p.Get(ix)
	p.Set(ix, val)
	return
}

func (p *packed) Set(ix uint64, val uint64) {
	if val&p.forbiddenMask != 0 {
		panic(fmt.Sprintf("attempt to store out of range value: numeric overflow: %x (%x)", val&p.forbiddenMask, val))
	}
	bitstart := ix * uint64(p.bits)
	word := bitstart / 64
	bitoff := bitstart % 64
	getbits := 64 - bitoff
	if getbits > uint64(p.bits) {
		getbits = uint64(p.bits)
	}
	// zero the target bits, then or in val
	p.space[word] =
		((p.space[word] >> (bitoff + getbits)) << (bitoff + getbits)) |
			(p.space[word] << (64 - bitoff) >> (64 - bitoff))

	p.space[word] |= val << bitoff

	if uint(getbits) < p.bits {
		remainder := p.bits - uint(getbits)
		p.space[word+1] = ((p.space[word+1] >> remainder) << remainder) | val>>getbits
	}
}

func (p *packed) Get(ix uint64) (val uint64) {
	val, _ = getValFromPackedIx(ix, p.bits, func(off uint64, cnt uint64) ([]uint64, error) {
		return p.space[off : off+cnt], nil
	})
	return
}

func getValFromPackedIx(ix uint64, bits uint, read func(off uint64, cnt uint64) ([]uint64, error)) (val uint64, err error) {
	bitstart := ix * uint64(bits)
	word := bitstart / 64
	bitoff := bitstart % 64
	getbits := 64 - bitoff

	if getbits > uint64(bits) {
		getbits = uint64(bits)
	}
	needWords := uint64(1)
	if getbits < uint64(bits) {
		needWords = 2
	}
	words, err := read(word, needWords)
	if err != nil {
		return 0, err
	}

	sl := 64 - getbits - bitoff
	val = words[0] << sl
	sr := 64 - getbits
	val >>= sr
	if getbits < uint64(bits) {
		remainder := uint64(bits) - getbits
		x := (words[1] << (64 - remainder)) >> (64 - remainder)
		val |= x << getbits
	}
	return
}
