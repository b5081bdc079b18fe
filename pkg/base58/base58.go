// Package base58 wraps mr-tron/base58 for the fixed 32-byte addresses used
// throughout the runtime.
package base58

import (
	"fmt"

	"github.com/mr-tron/base58"
)

func Encode(b []byte) string {
	return base58.Encode(b)
}

// DecodeFromString decodes a base58 string into a 32-byte address.
func DecodeFromString(str string) ([32]byte, error) {
	var out [32]byte
	b, err := base58.Decode(str)
	if err != nil {
		return out, err
	}
	if len(b) != len(out) {
		return out, fmt.Errorf("invalid address length %d for %s", len(b), str)
	}
	copy(out[:], b)
	return out, nil
}

// MustDecodeFromString is DecodeFromString, panicking on error. Intended for
// package-level address constants.
func MustDecodeFromString(str string) [32]byte {
	out, err := DecodeFromString(str)
	if err != nil {
		panic(err)
	}
	return out
}
