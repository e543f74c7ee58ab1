// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package bloom

import (
	"fmt"
	"testing"

	refbloom "github.com/bits-and-blooms/bloom/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryInsertedKeyIsFound(t *testing.T) {
	f, err := NewWithEstimates(1000, 0.01)
	require.NoError(t, err)

	var words [][]byte
	for i := 0; i < 500; i++ {
		words = append(words, []byte(fmt.Sprintf("item-%d", i)))
	}
	for _, w := range words {
		f.Insert(w)
	}
	for _, w := range words {
		assert.True(t, f.Lookup(w), "false negative for %s", w)
	}
}

func TestEmptyLookupIsFalse(t *testing.T) {
	f, err := NewWithEstimates(100, 0.01)
	require.NoError(t, err)
	assert.False(t, f.Lookup([]byte("never inserted")))
}

func TestDerivedParametersMatchClosedForm(t *testing.T) {
	f, err := NewWithEstimates(10000, 0.001)
	require.NoError(t, err)
	assert.Equal(t, EstimateM(10000, 0.001), f.M())
	assert.Equal(t, EstimateK(f.M(), 10000), f.K())
	assert.Greater(t, f.M(), uint(0))
	assert.Greater(t, f.K(), uint(0))
}

func TestRejectsInvalidParameters(t *testing.T) {
	_, err := NewWithEstimates(0, 0.01)
	assert.Error(t, err)
	_, err = NewWithEstimates(10, 0)
	assert.Error(t, err)
	_, err = NewWithEstimates(10, 1)
	assert.Error(t, err)
}

func TestFalsePositiveRateNarrowsWithMoreBits(t *testing.T) {
	loose, err := NewWithEstimates(1000, 0.1)
	require.NoError(t, err)
	tight, err := NewWithEstimates(1000, 0.0001)
	require.NoError(t, err)
	assert.Greater(t, tight.M(), loose.M())
}

// TestAgainstReferenceImplementation cross-checks sizing against
// bits-and-blooms/bloom/v3, which derives m and k with the same
// closed-form formulas.
func TestAgainstReferenceImplementation(t *testing.T) {
	n, fp := uint(2000), 0.01
	ours, err := NewWithEstimates(n, fp)
	require.NoError(t, err)
	ref := refbloom.NewWithEstimates(n, fp)

	assert.Equal(t, ref.Cap(), ours.M())
	assert.Equal(t, ref.K(), ours.K())
}

func TestTotalCountTracksInserts(t *testing.T) {
	f, err := NewWithEstimates(100, 0.01)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		f.Insert([]byte(fmt.Sprintf("x%d", i)))
	}
	assert.Equal(t, uint64(10), f.TotalCount())
}
