package matcher

import (
	"errors"
	"fmt"
	"io"
)

// ErrNonASCII is returned by a Chunker in ASCII-only mode when a chunk
// holds a byte above 127. The chunk is not returned.
var ErrNonASCII = errors.New("non-ASCII content")

// ChunkConfig configures how input is read.
type ChunkConfig struct {
	ChunkSize int  // Bytes requested per read (default: 4095)
	ASCIIOnly bool // Stop at the first chunk holding a byte above 127
}

// DefaultChunkConfig returns production defaults: one byte short of a
// 4096-byte buffer per read.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize: 4095,
	}
}

// Chunk represents a portion of the input with position info.
type Chunk struct {
	Content     []byte // Valid until the next call to Next
	StartOffset int64  // Byte offset in the input where this chunk starts
	Index       int    // Chunk number (0-indexed)
}

// EndOffset is one past the last byte of the chunk.
func (c Chunk) EndOffset() int64 {
	return c.StartOffset + int64(len(c.Content))
}

// Chunker reads an input as a sequence of chunks, reusing one buffer.
type Chunker struct {
	r      io.Reader
	cfg    ChunkConfig
	buf    []byte
	offset int64
	index  int
}

// NewChunker creates a chunker over r. A non-positive ChunkSize uses the
// default.
func NewChunker(r io.Reader, cfg ChunkConfig) *Chunker {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkConfig().ChunkSize
	}
	return &Chunker{
		r:   r,
		cfg: cfg,
		buf: make([]byte, cfg.ChunkSize),
	}
}

// Next returns the next chunk, io.EOF at end of input, or ErrNonASCII.
// Short reads are returned as they come.
func (c *Chunker) Next() (Chunk, error) {
	for {
		n, err := c.r.Read(c.buf)
		if n > 0 {
			content := c.buf[:n]
			if c.cfg.ASCIIOnly && !isASCII(content) {
				return Chunk{}, ErrNonASCII
			}
			chunk := Chunk{
				Content:     content,
				StartOffset: c.offset,
				Index:       c.index,
			}
			c.offset += int64(n)
			c.index++
			return chunk, nil
		}
		if err == io.EOF {
			return Chunk{}, io.EOF
		}
		if err != nil {
			return Chunk{}, fmt.Errorf("reading chunk %d: %w", c.index, err)
		}
	}
}

// Offset is the number of bytes returned so far.
func (c *Chunker) Offset() int64 {
	return c.offset
}

func isASCII(p []byte) bool {
	for _, b := range p {
		if b > 127 {
			return false
		}
	}
	return true
}
