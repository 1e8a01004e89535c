package stream

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the symmetric key size in bytes.
	KeySize = 32

	// NonceSize is the per-object nonce size in bytes: a 4-byte initial
	// block counter followed by the 12-byte ChaCha20 nonce.
	NonceSize = 16

	// DefaultIterations is the default PBKDF2 iteration count.
	DefaultIterations = 480_000

	// MinIterations is the lowest iteration count accepted by DeriveKey.
	MinIterations = 480_000
)

// ErrShortCiphertext reports a sealed object smaller than its nonce.
var ErrShortCiphertext = errors.New("stream: ciphertext shorter than nonce")

// DeriveKey derives a symmetric key from a passcode and salt.
//
// Iteration counts below MinIterations are raised to it; key derivation
// hardness is a floor, not a tunable.
func DeriveKey(passcode string, salt []byte, iterations int) []byte {
	if iterations < MinIterations {
		iterations = MinIterations
	}
	return pbkdf2.Key([]byte(passcode), salt, iterations, KeySize, sha256.New)
}

// NewSalt generates a random key-derivation salt of the given size.
func NewSalt(size int) ([]byte, error) {
	salt := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// Stream is a positioned ChaCha20 keystream. Feeding the same chunks in the
// same order reproduces identical output regardless of chunk boundaries.
type Stream struct {
	c *chacha20.Cipher
}

// NewStream creates a keystream for the given key and 16-byte nonce.
func NewStream(key, nonce []byte) (*Stream, error) {
	if len(nonce) != NonceSize {
		return nil, errors.New("stream: nonce must be 16 bytes")
	}
	c, err := chacha20.NewUnauthenticatedCipher(key, nonce[4:])
	if err != nil {
		return nil, err
	}
	c.SetCounter(binary.LittleEndian.Uint32(nonce[:4]))
	return &Stream{c: c}, nil
}

// XORKeyStream encrypts or decrypts the next chunk in place-compatible
// fashion. dst and src must have the same length.
func (s *Stream) XORKeyStream(dst, src []byte) {
	s.c.XORKeyStream(dst, src)
}

// NewEncryptor creates a fresh stream with a random nonce.
// The returned nonce must be stored or transmitted ahead of the ciphertext.
func NewEncryptor(key []byte) (*Stream, []byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, err
	}
	s, err := NewStream(key, nonce)
	if err != nil {
		return nil, nil, err
	}
	return s, nonce, nil
}

// Seal encrypts a whole payload and returns nonce||ciphertext.
func Seal(key, plaintext []byte) ([]byte, error) {
	s, nonce, err := NewEncryptor(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, NonceSize+len(plaintext))
	copy(out, nonce)
	s.XORKeyStream(out[NonceSize:], plaintext)
	return out, nil
}

// Open decrypts a payload produced by Seal.
//
// A wrong key does not fail: it produces garbage. The only error case is a
// payload too short to carry its nonce.
func Open(key, sealed []byte) ([]byte, error) {
	if len(sealed) < NonceSize {
		return nil, ErrShortCiphertext
	}
	s, err := NewStream(key, sealed[:NonceSize])
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(sealed)-NonceSize)
	s.XORKeyStream(out, sealed[NonceSize:])
	return out, nil
}

// Writer encrypts everything written through it.
type Writer struct {
	w   io.Writer
	s   *Stream
	buf []byte
}

// NewWriter wraps w with a fresh encryptor and writes the nonce header
// before the first ciphertext byte.
func NewWriter(w io.Writer, key []byte) (*Writer, error) {
	s, nonce, err := NewEncryptor(key)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(nonce); err != nil {
		return nil, err
	}
	return &Writer{w: w, s: s}, nil
}

// Write encrypts p and writes the ciphertext to the underlying writer.
func (ew *Writer) Write(p []byte) (int, error) {
	if cap(ew.buf) < len(p) {
		ew.buf = make([]byte, len(p))
	}
	buf := ew.buf[:len(p)]
	ew.s.XORKeyStream(buf, p)
	if _, err := ew.w.Write(buf); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Reader decrypts everything read through it.
type Reader struct {
	r io.Reader
	s *Stream
}

// NewReader wraps r, consuming the nonce header written by NewWriter.
func NewReader(r io.Reader, key []byte) (*Reader, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(r, nonce); err != nil {
		return nil, err
	}
	s, err := NewStream(key, nonce)
	if err != nil {
		return nil, err
	}
	return &Reader{r: r, s: s}, nil
}

// Read reads ciphertext from the underlying reader and decrypts in place.
func (dr *Reader) Read(p []byte) (int, error) {
	n, err := dr.r.Read(p)
	if n > 0 {
		dr.s.XORKeyStream(p[:n], p[:n])
	}
	return n, err
}
