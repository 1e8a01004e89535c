package domain

import (
	"crypto/sha1"
	"encoding/hex"
)

// IdentityLength is the length of an identity fingerprint in hex characters.
const IdentityLength = 10

// Fingerprint derives the identity for a passcode.
//
// The fingerprint is a truncated SHA-1 digest: one-way, fixed length, and
// the sole key under which folder state is stored. Two distinct passcodes
// colliding here is treated as a fatal conflict at signup, not resolved.
func Fingerprint(passcode string) string {
	sum := sha1.Sum([]byte(passcode))
	return hex.EncodeToString(sum[:])[:IdentityLength]
}

// IsValidIdentity checks whether a string looks like a fingerprint.
// Used to reject forged cookies before any store lookup.
func IsValidIdentity(id string) bool {
	if len(id) != IdentityLength {
		return false
	}
	for _, c := range id {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
