package types

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"io"
)

// BlobID is a Git-style SHA-1 content hash (20 bytes).
type BlobID [20]byte

// ComputeBlobID computes Git-style blob ID: SHA-1("blob {len}\0{content}").
func ComputeBlobID(content []byte) BlobID {
	h := NewBlobHasher(int64(len(content)))
	h.Write(content)
	return h.Sum()
}

// ComputeBlobIDReader hashes size bytes read from r.
func ComputeBlobIDReader(r io.Reader, size int64) (BlobID, error) {
	h := NewBlobHasher(size)
	if _, err := io.Copy(h, r); err != nil {
		return BlobID{}, fmt.Errorf("hashing blob: %w", err)
	}
	return h.Sum(), nil
}

// BlobHasher computes a BlobID while content streams through it.
// The Git header needs the size up front; a negative size hashes the
// content alone, which still identifies the stream but will not match git.
type BlobHasher struct {
	h hash.Hash
	n int64
}

// NewBlobHasher starts a hash for a blob of the given size.
func NewBlobHasher(size int64) *BlobHasher {
	h := sha1.New()
	if size >= 0 {
		fmt.Fprintf(h, "blob %d\x00", size)
	}
	return &BlobHasher{h: h}
}

// Write implements io.Writer.
func (b *BlobHasher) Write(p []byte) (int, error) {
	n, err := b.h.Write(p)
	b.n += int64(n)
	return n, err
}

// Len returns the number of content bytes written, excluding the header.
func (b *BlobHasher) Len() int64 {
	return b.n
}

// Sum returns the BlobID of everything written so far.
func (b *BlobHasher) Sum() BlobID {
	var id BlobID
	copy(id[:], b.h.Sum(nil))
	return id
}

// Hex returns 40-character hex string.
func (id BlobID) Hex() string {
	return hex.EncodeToString(id[:])
}

// String implements Stringer (returns Hex()).
func (id BlobID) String() string {
	return id.Hex()
}

// ParseBlobID parses 40-char hex string to BlobID.
func ParseBlobID(hexStr string) (BlobID, error) {
	if len(hexStr) != 40 {
		return BlobID{}, fmt.Errorf("invalid blob ID length: expected 40, got %d", len(hexStr))
	}

	decoded, err := hex.DecodeString(hexStr)
	if err != nil {
		return BlobID{}, fmt.Errorf("invalid hex string: %w", err)
	}

	var id BlobID
	copy(id[:], decoded)
	return id, nil
}

// MarshalJSON implements json.Marshaler.
func (id BlobID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Hex())
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *BlobID) UnmarshalJSON(data []byte) error {
	var hexStr string
	if err := json.Unmarshal(data, &hexStr); err != nil {
		return err
	}

	parsed, err := ParseBlobID(hexStr)
	if err != nil {
		return err
	}

	*id = parsed
	return nil
}
