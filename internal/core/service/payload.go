package service

import (
	"encoding/base64"

	"github.com/yndnr/snapfold-go/internal/core/domain"
	"github.com/yndnr/snapfold-go/pkg/crypto/stream"
)

// sealPayload encrypts a payload string to base64(nonce || ciphertext) so it
// fits in the JSON message record.
func sealPayload(key []byte, data string) (string, error) {
	if len(key) == 0 {
		// Encryption is on but this connection never presented the
		// passcode (e.g. a stale cookie after a restart). Force a
		// fresh login instead of storing an unreadable payload.
		return "", domain.ErrUnauthorized.WithDetails("encryption key not available, log in again")
	}
	sealed, err := stream.Seal(key, []byte(data))
	if err != nil {
		return "", domain.ErrInternalServer.WithCause(err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// openPayload reverses sealPayload.
func openPayload(key []byte, data string) (string, error) {
	if len(key) == 0 {
		return "", domain.ErrUnauthorized.WithDetails("encryption key not available, log in again")
	}
	sealed, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", domain.ErrStorageError.WithDetails("corrupt payload encoding").WithCause(err)
	}
	plain, err := stream.Open(key, sealed)
	if err != nil {
		return "", domain.ErrStorageError.WithCause(err)
	}
	return string(plain), nil
}
