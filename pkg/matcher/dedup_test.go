package matcher

import (
	"testing"

	"github.com/praetorian-inc/panscan/pkg/types"
	"github.com/stretchr/testify/assert"
)

func matchAt(ruleID, digits string, offset int64) *types.Match {
	return &types.Match{
		RuleID:   ruleID,
		Digits:   digits,
		Location: types.Location{Offset: types.OffsetSpan{Start: offset, End: offset + int64(len(digits))}},
	}
}

func TestNewDeduplicator(t *testing.T) {
	d := NewDeduplicator()
	assert.NotNil(t, d)
	assert.NotNil(t, d.seen)
}

func TestDeduplicator_ByLocation(t *testing.T) {
	d := NewDeduplicator()

	m1 := matchAt("pan.visa.16", "4111111111111111", 0)
	m2 := matchAt("pan.visa.16", "4111111111111111", 40)
	m3 := matchAt("pan.test.16", "4111111111111111", 0)

	assert.False(t, d.IsDuplicate(m1))
	d.Add(m1)
	assert.True(t, d.IsDuplicate(m1))
	assert.False(t, d.IsDuplicate(m2), "same number at another offset")
	assert.False(t, d.IsDuplicate(m3), "another rule on the same span")
}

func TestDeduplicator_ByContent(t *testing.T) {
	d := NewContentDeduplicator()

	m1 := matchAt("pan.visa.16", "4111111111111111", 0)
	m2 := matchAt("pan.visa.16", "4111111111111111", 40)
	m3 := matchAt("pan.visa.16", "4012888888881881", 80)

	d.Add(m1)
	assert.True(t, d.IsDuplicate(m2))
	assert.False(t, d.IsDuplicate(m3))
}

func TestDeduplicator_SetModeAndReset(t *testing.T) {
	d := NewDeduplicator()
	d.SetMode(DedupeByContent)

	d.Add(matchAt("pan.visa.16", "4111111111111111", 0))
	assert.True(t, d.IsDuplicate(matchAt("pan.visa.16", "4111111111111111", 99)))

	d.Reset()
	assert.False(t, d.IsDuplicate(matchAt("pan.visa.16", "4111111111111111", 99)))
}
