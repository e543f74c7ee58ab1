// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package quotient

import (
	"testing"

	murmur "github.com/aviddiviner/go-murmur"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkConsistency walks every occupied home bucket, finds its run,
// and verifies every slot belongs to exactly one run - the same
// sweep the teacher project uses in its own tests.
func (f *Filter) checkConsistency(t *testing.T) {
	t.Helper()
	usage := map[uint64]uint64{}
	for i := uint64(0); i < f.size; i++ {
		sd := f.read(i)
		if !sd.occupied() {
			continue
		}
		runStart := f.locateRunHead(i)
		for {
			who, used := usage[runStart]
			require.False(t, used, "slot %d claimed by both bucket %d and %d", runStart, i, who)
			usage[runStart] = i
			right(&runStart, f.size)
			if !f.read(runStart).continued() {
				break
			}
		}
	}
	require.Equal(t, int(f.entries), len(usage), "entry count disagrees with scanned run count")
}

func TestSplit(t *testing.T) {
	f, err := New(8, 4)
	require.NoError(t, err)
	q, r := f.Split(0b1111_1111_0000)
	assert.Equal(t, uint64(0b1111_1111), q)
	assert.Equal(t, uint64(0b0000), r)
}

func TestShiftAndSort(t *testing.T) {
	f, err := New(4, 4)
	require.NoError(t, err)
	f.Insert(0b0001_0010)
	f.Insert(0b0001_0011)
	f.Insert(0b0001_0001)
	f.checkConsistency(t)

	_, c1, s1, r1 := f.SlotMeta(1)
	assert.Equal(t, uint64(1), r1)
	assert.False(t, c1)
	assert.False(t, s1)

	_, c2, _, r2 := f.SlotMeta(2)
	assert.Equal(t, uint64(2), r2)
	assert.True(t, c2)

	_, c3, _, r3 := f.SlotMeta(3)
	assert.Equal(t, uint64(3), r3)
	assert.True(t, c3)
}

func TestCrossQuotientCluster(t *testing.T) {
	f, err := New(4, 4)
	require.NoError(t, err)
	f.Insert(0b0001_0001)
	f.Insert(0b0010_0010)
	f.Insert(0b0001_0011)
	f.checkConsistency(t)

	_, _, _, r1 := f.SlotMeta(1)
	assert.Equal(t, uint64(1), r1)

	_, c2, s2, r2 := f.SlotMeta(2)
	assert.Equal(t, uint64(3), r2)
	assert.True(t, c2)
	assert.True(t, s2)

	_, c3, s3, r3 := f.SlotMeta(3)
	assert.Equal(t, uint64(2), r3)
	assert.False(t, c3)
	assert.True(t, s3)

	occupied2, _, _, _ := f.SlotMeta(2)
	assert.True(t, occupied2)
	occupied3, _, _, _ := f.SlotMeta(3)
	assert.False(t, occupied3)
}

func TestWraparound(t *testing.T) {
	f, err := New(4, 4)
	require.NoError(t, err)
	f.Insert(0b1111_0001)
	f.Insert(0b1111_0010)
	f.checkConsistency(t)

	_, _, _, r15 := f.SlotMeta(15)
	assert.Equal(t, uint64(1), r15)

	_, c0, s0, r0 := f.SlotMeta(0)
	assert.Equal(t, uint64(2), r0)
	assert.True(t, s0)
	assert.True(t, c0)
}

func TestInsertLookupRoundTrip(t *testing.T) {
	f, err := New(6, 10)
	require.NoError(t, err)
	keys := []uint64{1, 42, 1000, 7, 999999, 0, 12345}
	for _, k := range keys {
		f.Insert(k)
	}
	f.checkConsistency(t)
	for _, k := range keys {
		assert.True(t, f.Lookup(k), "missing key %d", k)
	}
	assert.False(t, f.Lookup(424242))
}

func TestEntriesCountsDuplicates(t *testing.T) {
	f, err := New(6, 8)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		f.Insert(17)
	}
	assert.Equal(t, uint64(5), f.Len())
	assert.True(t, f.Lookup(17))
	f.checkConsistency(t)
}

func TestOccupiedTracksHomeBucket(t *testing.T) {
	f, err := New(4, 8)
	require.NoError(t, err)
	quotients := map[uint64]bool{}
	for _, k := range []uint64{0x015, 0x3AA, 0x2F0, 0x015} {
		f.Insert(k)
		q, _ := f.Split(k)
		quotients[q] = true
	}
	for i := uint64(0); i < f.Size(); i++ {
		occ, _, _, _ := f.SlotMeta(i)
		assert.Equal(t, quotients[i], occ, "occupied[%d] mismatch", i)
	}
}

func TestResizeDoublesAndPreservesMembership(t *testing.T) {
	f, err := New(4, 10)
	require.NoError(t, err)
	var keys []uint64
	for i := uint64(0); i < f.Size(); i++ {
		k := (i << 10) | (i % 1000)
		keys = append(keys, k)
		f.Insert(k)
	}
	require.Equal(t, f.Size(), f.Len())
	// the next insert must trigger an automatic resize
	extra := uint64(99)<<10 | 5
	f.Insert(extra)
	keys = append(keys, extra)

	assert.Equal(t, uint(5), f.QBits())
	assert.Equal(t, uint64(32), f.Size())
	assert.Equal(t, uint64(len(keys)), f.Len())
	for _, k := range keys {
		assert.True(t, f.Lookup(k))
	}
	f.checkConsistency(t)
}

func TestMergePreservesBothInputsAndMembership(t *testing.T) {
	a, err := New(4, 10)
	require.NoError(t, err)
	b, err := New(5, 10)
	require.NoError(t, err)

	var aKeys, bKeys []uint64
	for i := uint64(0); i < 6; i++ {
		k := (i << 10) | 1
		aKeys = append(aKeys, k)
		a.Insert(k)
	}
	for i := uint64(0); i < 6; i++ {
		k := (i << 10) | 2
		bKeys = append(bKeys, k)
		b.Insert(k)
	}

	merged, err := Merge(a, b)
	require.NoError(t, err)

	for _, k := range aKeys {
		assert.True(t, merged.Lookup(k))
	}
	for _, k := range bKeys {
		assert.True(t, merged.Lookup(k))
	}
	assert.Equal(t, a.Len()+b.Len(), merged.Len())
	assert.GreaterOrEqual(t, merged.Size(), uint64(len(aKeys)+len(bKeys)))
	assert.GreaterOrEqual(t, merged.QBits(), a.QBits())
	assert.GreaterOrEqual(t, merged.QBits(), b.QBits())
	merged.checkConsistency(t)

	// inputs unchanged
	assert.Equal(t, uint64(6), a.Len())
	assert.Equal(t, uint64(6), b.Len())
	for _, k := range aKeys {
		assert.True(t, a.Lookup(k))
	}
}

func TestMergeRejectsMismatchedRemainderWidth(t *testing.T) {
	a, err := New(4, 10)
	require.NoError(t, err)
	b, err := New(4, 12)
	require.NoError(t, err)
	_, err = Merge(a, b)
	assert.Error(t, err)
}

func TestNewRejectsOversizedKeys(t *testing.T) {
	_, err := New(40, 30)
	assert.Error(t, err)
}

func TestBitPackedMatchesUnpackedBehavior(t *testing.T) {
	up, err := New(6, 12)
	require.NoError(t, err)
	bp, err := NewBitPacked(6, 12)
	require.NoError(t, err)

	keys := []uint64{1, 2, 3, 100, 4095, 8191, 1 << 17}
	for _, k := range keys {
		up.Insert(k)
		bp.Insert(k)
	}
	for _, k := range keys {
		assert.Equal(t, up.Lookup(k), bp.Lookup(k))
	}
	up.checkConsistency(t)
	bp.checkConsistency(t)
}

func TestHashToKeyMatchesIndependentMurmur(t *testing.T) {
	for _, s := range []string{"red", "yellow", "orange", "blue", "a longer string entirely"} {
		got := murmurhash64([]byte(s))
		want := murmur.MurmurHash64A([]byte(s), 0)
		assert.Equal(t, want, got, "hash mismatch for %q", s)
	}
}

func TestInsertStringLookupString(t *testing.T) {
	f, err := New(6, 16)
	require.NoError(t, err)
	words := []string{"red", "yellow", "orange", "blue"}
	for _, w := range words {
		f.InsertString(w)
	}
	for _, w := range words {
		assert.True(t, f.LookupString(w))
	}
	assert.False(t, f.LookupString("green"))
}
