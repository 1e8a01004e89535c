// Package stream provides passcode key derivation and streaming symmetric
// encryption for folder payloads.
//
// Keys are derived with PBKDF2-HMAC-SHA256 over a persisted per-folder salt.
// Payloads are encrypted with raw ChaCha20: a 16-byte nonce (4-byte
// little-endian initial counter followed by the 12-byte ChaCha20 nonce) is
// generated per object and prepended to the ciphertext.
//
// The cipher is deliberately unauthenticated: there is no integrity tag, so
// decrypting with the wrong key yields garbage bytes rather than an error.
// Callers that need tamper evidence must layer it on top.
package stream
