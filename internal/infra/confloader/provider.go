package confloader

import "errors"

// ErrReadBytesNotSupported is returned when koanf asks a map-backed
// provider for raw bytes. Map providers only implement Read.
var ErrReadBytesNotSupported = errors.New("confloader: map provider has no byte form, use Read")

// flagOverrides feeds already-parsed command-line values into koanf.
// It satisfies koanf.Provider through Read; there is no byte
// serialization to hand to a parser.
type flagOverrides map[string]any

func (f flagOverrides) ReadBytes() ([]byte, error) {
	return nil, ErrReadBytesNotSupported
}

func (f flagOverrides) Read() (map[string]any, error) {
	return f, nil
}
