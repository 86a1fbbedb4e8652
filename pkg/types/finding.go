package types

import (
	"crypto/sha1"
	"encoding/hex"
)

// Finding groups every occurrence of the same card number under one brand.
type Finding struct {
	ID      string // SHA-1(brand + '\0' + digits)
	Brand   string
	Digits  string
	Matches []*Match
}

// ComputeFindingID computes the content-based finding ID. It is computed
// from the unmasked digits so masked results still group correctly.
func ComputeFindingID(brand, digits string) string {
	h := sha1.New()
	h.Write([]byte(brand))
	h.Write([]byte{0})
	h.Write([]byte(digits))
	return hex.EncodeToString(h.Sum(nil))
}
