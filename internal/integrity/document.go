// Package integrity holds the hashing and signature primitives behind
// document sealing, audit record fingerprints and transaction attestation.
// Everything here is pure: no storage, no logging, no global state.
package integrity

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"regexp"
)

var digestPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Seal returns the lowercase hex SHA-256 digest of b. The empty input is
// valid and seals to the digest of zero bytes.
func Seal(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// SealReader streams r into SHA-256 and returns the lowercase hex digest.
func SealReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyDocument reports whether b still seals to expected. The comparison
// is exact and case-sensitive.
func VerifyDocument(b []byte, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(Seal(b)), []byte(expected)) == 1
}

// IsDigest reports whether s has the shape of a Seal output.
func IsDigest(s string) bool {
	return digestPattern.MatchString(s)
}
