package matcher

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_Sequential(t *testing.T) {
	content := []byte(strings.Repeat("0123456789", 10))
	c := NewChunker(bytes.NewReader(content), ChunkConfig{ChunkSize: 30})

	var got []byte
	var starts []int64
	for i := 0; ; i++ {
		chunk, err := c.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, i, chunk.Index)
		starts = append(starts, chunk.StartOffset)
		got = append(got, chunk.Content...)
	}

	assert.Equal(t, content, got)
	assert.Equal(t, []int64{0, 30, 60, 90}, starts)
	assert.Equal(t, int64(100), c.Offset())
}

func TestChunker_DefaultSize(t *testing.T) {
	assert.Equal(t, 4095, DefaultChunkConfig().ChunkSize)

	c := NewChunker(bytes.NewReader(make([]byte, 5000)), ChunkConfig{})
	chunk, err := c.Next()
	require.NoError(t, err)
	assert.Len(t, chunk.Content, 4095)
	assert.Equal(t, int64(4095), chunk.EndOffset())
}

func TestChunker_ASCIIOnly(t *testing.T) {
	content := append([]byte(strings.Repeat("a", 20)), 0xC3, 0xA9)
	c := NewChunker(bytes.NewReader(content), ChunkConfig{ChunkSize: 10, ASCIIOnly: true})

	for i := 0; i < 2; i++ {
		_, err := c.Next()
		require.NoError(t, err)
	}
	_, err := c.Next()
	assert.ErrorIs(t, err, ErrNonASCII)

	c = NewChunker(bytes.NewReader(content), ChunkConfig{ChunkSize: 10})
	for {
		_, err := c.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, int64(len(content)), c.Offset())
}

func TestChunker_ReadError(t *testing.T) {
	c := NewChunker(iotest.ErrReader(errors.New("boom")), DefaultChunkConfig())
	_, err := c.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestLineIndex(t *testing.T) {
	l := newLineIndex()
	l.observe([]byte("ab\ncd\n"), 0)
	l.observe([]byte("ef\ngh"), 6)

	assert.Equal(t, 1, l.point(0).Line)
	assert.Equal(t, 1, l.point(0).Column)
	assert.Equal(t, 2, l.point(4).Line)
	assert.Equal(t, 2, l.point(4).Column)
	assert.Equal(t, 4, l.point(10).Line)
	assert.Equal(t, 2, l.point(10).Column)

	l.prune(7)
	assert.Len(t, l.newlines, 1)
	assert.Equal(t, 3, l.point(7).Line)
	assert.Equal(t, 2, l.point(7).Column)
	assert.Equal(t, 4, l.point(9).Line)
	assert.Equal(t, 1, l.point(9).Column)
}
