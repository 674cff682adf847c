package membernumber

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextFromEmpty(t *testing.T) {
	assert.Equal(t, "k11", Next(""))
	assert.Equal(t, "k11", Next("not-a-number"))
}

func TestNextIncrementsNumber(t *testing.T) {
	assert.Equal(t, "k12", Next("k11"))
	assert.Equal(t, "k99", Next("k98"))
	assert.Equal(t, "m43", Next("m42"))
}

func TestNextAdvancesLetterOnOverflow(t *testing.T) {
	assert.Equal(t, "l11", Next("k99"))
	assert.Equal(t, "n11", Next("m99"))
}

func TestNextWrapsFromZ99(t *testing.T) {
	assert.Equal(t, "k11", Next("z99"))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("k11"))
	assert.True(t, Valid("a11"))
	assert.True(t, Valid("z99"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("K11"))
	assert.False(t, Valid("k1"))
	assert.False(t, Valid("k111"))
	assert.False(t, Valid("1k1"))
}

func TestValidRejectsNumbersBelowSequenceStart(t *testing.T) {
	// Numeric parts below 11 sort before every allocated number and would
	// derail the lexicographic-max successor if one ever reached the store.
	assert.False(t, Valid("k00"))
	assert.False(t, Valid("k05"))
	assert.False(t, Valid("k10"))
	assert.Equal(t, First, Next("k05"))
	assert.Equal(t, "k12", Next("k11"))
}

func TestFullCycleIsDistinctThenRepeats(t *testing.T) {
	seen := make(map[string]struct{}, Capacity)
	cur := ""
	for i := 0; i < Capacity; i++ {
		cur = Next(cur)
		if _, dup := seen[cur]; dup {
			t.Fatalf("duplicate %q at allocation %d", cur, i+1)
		}
		seen[cur] = struct{}{}
	}
	assert.Len(t, seen, Capacity)
	assert.Equal(t, "z99", cur)
	assert.Equal(t, First, Next(cur))
}

func TestLexicographicOrderEqualsAllocationOrder(t *testing.T) {
	prev := First
	cur := Next(First)
	for cur != First { // until wraparound
		assert.Greater(t, cur, prev)
		prev, cur = cur, Next(cur)
	}
}
