package types

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
)

// Track tags attached to a match when the surrounding bytes look like
// magnetic-stripe data.
const (
	Track1 = "TRACK_1"
	Track2 = "TRACK_2"
)

// OffsetSpan is byte range [Start, End) - half-open interval.
type OffsetSpan struct {
	Start int64
	End   int64
}

// SourcePoint is line:column position (1-based).
type SourcePoint struct {
	Line   int
	Column int
}

// SourceSpan is start-end line:column range.
type SourceSpan struct {
	Start SourcePoint
	End   SourcePoint
}

// Location combines byte offsets and source positions.
type Location struct {
	Offset OffsetSpan
	Source SourceSpan
}

// Match is a single reported card number.
type Match struct {
	BlobID       BlobID
	StructuralID string // SHA-1(rule_id + '\0' + blob_id + '\0' + start)
	FindingID    string // SHA-1(brand + '\0' + digits)
	RuleID       string // e.g., "pan.visa.16"
	Brand        string // e.g., "VISA"
	Digits       string // the PAN, masked when masking is enabled
	Length       int
	Track        string `json:",omitempty"`
	Location     Location

	// Lookaround facts for adjacency suppression.
	PrecededByDigit bool `json:",omitempty"`
	FollowedByDigit bool `json:",omitempty"`
}

// ComputeStructuralID computes the per-occurrence ID of a match.
// Format: SHA-1(rule_id + '\0' + blob_id + '\0' + start)
func (m *Match) ComputeStructuralID() string {
	h := sha1.New()
	h.Write([]byte(m.RuleID))
	h.Write([]byte{0})
	h.Write(m.BlobID[:])
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(m.Location.Offset.Start, 10)))
	return hex.EncodeToString(h.Sum(nil))
}
