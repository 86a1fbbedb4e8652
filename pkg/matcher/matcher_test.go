package matcher

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/panscan/pkg/rule"
	"github.com/praetorian-inc/panscan/pkg/types"
)

func builtinRules(t *testing.T) []*types.IssuerRule {
	t.Helper()
	rules, err := rule.NewLoader().LoadBuiltinRules()
	require.NoError(t, err)
	return rules
}

func noAdjacent(m *types.Match) bool {
	return !m.PrecededByDigit && !m.FollowedByDigit
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Rules: builtinRules(t), Limit: -1})
	assert.Error(t, err)
}

func TestMatch_Basic(t *testing.T) {
	m, err := New(Config{Rules: builtinRules(t)})
	require.NoError(t, err)
	defer m.Close()

	content := []byte("name: test\ncard: 4111111111111111\n")
	matches, err := m.Match(content)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	got := matches[0]
	assert.Equal(t, "pan.visa.16", got.RuleID)
	assert.Equal(t, "VISA", got.Brand)
	assert.Equal(t, "4111111111111111", got.Digits)
	assert.Equal(t, int64(17), got.Location.Offset.Start)
	assert.Equal(t, int64(33), got.Location.Offset.End)
	assert.Equal(t, types.SourcePoint{Line: 2, Column: 7}, got.Location.Source.Start)
	assert.Equal(t, types.SourcePoint{Line: 2, Column: 22}, got.Location.Source.End)
	assert.Equal(t, types.ComputeBlobID(content), got.BlobID)
	assert.Equal(t, got.ComputeStructuralID(), got.StructuralID)
	assert.Equal(t, types.ComputeFindingID("VISA", "4111111111111111"), got.FindingID)
}

func TestMatchWithBlobID(t *testing.T) {
	m, err := New(Config{Rules: builtinRules(t)})
	require.NoError(t, err)

	id := types.ComputeBlobID([]byte("other"))
	matches, err := m.MatchWithBlobID([]byte("4111111111111111"), id)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, id, matches[0].BlobID)
	assert.Equal(t, matches[0].ComputeStructuralID(), matches[0].StructuralID)
}

func TestMatchReader_AcceptFilter(t *testing.T) {
	m, err := New(Config{Rules: builtinRules(t), Accept: noAdjacent})
	require.NoError(t, err)

	input := "541111111111111112 4111111111111111"
	res, err := m.MatchReader(context.Background(), strings.NewReader(input), int64(len(input)))
	require.NoError(t, err)

	require.Len(t, res.Matches, 1)
	assert.Equal(t, int64(19), res.Matches[0].Location.Offset.Start)
	assert.Equal(t, 2, res.Summary.Candidates)
	assert.Equal(t, 1, res.Summary.Suppressed)
	assert.Equal(t, RuleStat{RuleID: "pan.visa.16", Matches: 1, Suppressed: 1}, res.RuleStats["pan.visa.16"])
}

func TestMatchReader_Limit(t *testing.T) {
	m, err := New(Config{Rules: builtinRules(t), Limit: 2, Accept: noAdjacent})
	require.NoError(t, err)

	input := "94111111111111111 4111111111111111 5555555555554444 378282246310005"
	res, err := m.MatchReader(context.Background(), strings.NewReader(input), int64(len(input)))
	require.NoError(t, err)

	require.Len(t, res.Matches, 2)
	assert.Equal(t, "VISA", res.Matches[0].Brand)
	assert.Equal(t, "MASTERCARD", res.Matches[1].Brand)
	assert.True(t, res.Summary.LimitReached)
	assert.Equal(t, types.ComputeBlobID([]byte(input)), res.BlobID, "hash covers the unscanned remainder")
}

func TestMatchReader_ASCIIOnly(t *testing.T) {
	m, err := New(Config{
		Rules:     builtinRules(t),
		ASCIIOnly: true,
		Chunk:     ChunkConfig{ChunkSize: 32},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	buf.WriteString(" 4111111111111111 ")
	buf.WriteString(strings.Repeat(" ", 32-buf.Len()))
	buf.WriteString("caf\xc3\xa9 5555555555554444 ")
	content := buf.Bytes()

	res, err := m.MatchReader(context.Background(), bytes.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "VISA", res.Matches[0].Brand)
	assert.True(t, res.Summary.NonASCII)
	assert.Equal(t, int64(32), res.Summary.BytesScanned)
	assert.Equal(t, types.ComputeBlobID(content), res.BlobID)
}

func TestMatchReader_ASCIIOnlyResolvesPendingMatch(t *testing.T) {
	m, err := New(Config{Rules: builtinRules(t), ASCIIOnly: true})
	require.NoError(t, err)

	// The number ends the last ASCII chunk, so its lookahead is still open
	// when the next chunk is rejected.
	first := strings.Repeat("x", 4095-17) + " 4111111111111111"
	require.Len(t, first, DefaultChunkConfig().ChunkSize)
	content := []byte(first + "\xff 5555555555554444 ")

	res, err := m.MatchReader(context.Background(), bytes.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "4111111111111111", res.Matches[0].Digits)
	assert.Equal(t, int64(4079), res.Matches[0].Location.Offset.Start)
	assert.True(t, res.Summary.NonASCII)
	assert.Equal(t, int64(4095), res.Summary.BytesScanned)
	assert.Equal(t, int64(len(content)), res.Summary.BytesRead)
	assert.Equal(t, types.ComputeBlobID(content), res.BlobID)
}

func TestMatchReader_ChunkBoundaries(t *testing.T) {
	input := strings.Repeat("x", 4090) + "4111-1111-1111-1111\n" + strings.Repeat("y", 5000) +
		"%B5555555555554444^DOE/JOHN^"

	var results [][]*types.Match
	for _, size := range []int{1, 7, 4095, 1 << 16} {
		m, err := New(Config{Rules: builtinRules(t), Track1: true, Chunk: ChunkConfig{ChunkSize: size}})
		require.NoError(t, err)
		res, err := m.MatchReader(context.Background(), strings.NewReader(input), -1)
		require.NoError(t, err)
		results = append(results, res.Matches)
	}

	require.Len(t, results[0], 2)
	assert.Equal(t, int64(4090), results[0][0].Location.Offset.Start)
	assert.Equal(t, types.Track1, results[0][1].Track)
	assert.Equal(t, 2, results[0][1].Location.Source.Start.Line)
	for _, r := range results[1:] {
		assert.Equal(t, results[0], r)
	}
}

func TestMatchReader_HalfReader(t *testing.T) {
	m, err := New(Config{Rules: builtinRules(t)})
	require.NoError(t, err)

	input := "aaaa 4111111111111111 bbbb 6011111111111117"
	res, err := m.MatchReader(context.Background(), iotest.HalfReader(strings.NewReader(input)), int64(len(input)))
	require.NoError(t, err)
	assert.Len(t, res.Matches, 2)
	assert.Equal(t, int64(len(input)), res.Summary.BytesScanned)
}

func TestMatchReader_Dedupe(t *testing.T) {
	input := "4111111111111111 4111111111111111"

	m, err := New(Config{Rules: builtinRules(t)})
	require.NoError(t, err)
	matches, err := m.Match([]byte(input))
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	m, err = New(Config{Rules: builtinRules(t), Dedupe: DedupeByContent})
	require.NoError(t, err)
	matches, err = m.Match([]byte(input))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestMatchReader_Canceled(t *testing.T) {
	m, err := New(Config{Rules: builtinRules(t)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = m.MatchReader(ctx, strings.NewReader("4111111111111111"), 16)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMatchReader_TrackCount(t *testing.T) {
	m, err := New(Config{Rules: builtinRules(t), Track2: true})
	require.NoError(t, err)

	input := ";4111111111111111=2512101? 5555555555554444"
	res, err := m.MatchReader(context.Background(), strings.NewReader(input), -1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Summary.Reported)
	assert.Equal(t, 1, res.Summary.TrackMatches)
}
