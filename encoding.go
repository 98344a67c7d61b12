// Package sequence - encoding.go converts IDs to and from compact alphabets.
//
// Radices 2-36 are served by strconv (see radix.go). This file covers the
// alphabets strconv does not know: Base58 (Bitcoin style) and Base62 (URL safe).
// Both are driven by one alphabet type with a precomputed decode table.

package sequence

import (
	"errors"
	"math"
)

// Maximum encoded lengths for a 63-bit ID. Longer inputs are rejected before decoding.
const (
	MaxBase58Len = 11 // ceil(log58(2^63))
	MaxBase62Len = 11 // ceil(log62(2^63))
)

// Encoding errors returned when parsing invalid encoded strings.
var (
	ErrInvalidBase58   = errors.New("invalid base58 encoding")
	ErrInvalidBase62   = errors.New("invalid base62 encoding")
	ErrInvalidRadix    = errors.New("invalid radix encoding")
	ErrStringTooLong   = errors.New("encoded string exceeds maximum length")
	ErrIntegerOverflow = errors.New("decoded value would overflow int64")
)

// Base58 excludes 0, O, I and l to avoid visual ambiguity.
const encodeBase58Map = "123456789abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// Base62 uses 0-9, a-z, A-Z and needs no escaping in URLs or filenames.
const encodeBase62Map = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const invalidDigit = 0xFF

// alphabet encodes non-negative int64 values with a fixed character set.
// Read-only after construction, so it is safe for concurrent use.
type alphabet struct {
	chars   string
	base    int64
	maxLen  int
	invalid error
	decode  [256]byte
}

func newAlphabet(chars string, maxLen int, invalid error) *alphabet {
	a := &alphabet{
		chars:   chars,
		base:    int64(len(chars)),
		maxLen:  maxLen,
		invalid: invalid,
	}
	for i := range a.decode {
		a.decode[i] = invalidDigit
	}
	for i := 0; i < len(chars); i++ {
		a.decode[chars[i]] = byte(i)
	}
	return a
}

var (
	base58 = newAlphabet(encodeBase58Map, MaxBase58Len, ErrInvalidBase58)
	base62 = newAlphabet(encodeBase62Map, MaxBase62Len, ErrInvalidBase62)
)

// encode renders v most significant digit first. Negative values render as the
// zero digit; IDs never have the sign bit set.
func (a *alphabet) encode(v int64) string {
	if v <= 0 {
		return a.chars[:1]
	}
	if v < a.base {
		return a.chars[v : v+1]
	}

	var buf [64]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = a.chars[v%a.base]
		v /= a.base
	}
	return string(buf[i:])
}

// decodeString parses s, rejecting empty input, unknown characters, inputs
// longer than maxLen and values that do not fit in an int64.
func (a *alphabet) decodeString(s string) (int64, error) {
	if len(s) == 0 {
		return 0, a.invalid
	}
	if len(s) > a.maxLen {
		return 0, ErrStringTooLong
	}

	var v int64
	for i := 0; i < len(s); i++ {
		d := a.decode[s[i]]
		if d == invalidDigit {
			return 0, a.invalid
		}
		if v > (math.MaxInt64-int64(d))/a.base {
			return 0, ErrIntegerOverflow
		}
		v = v*a.base + int64(d)
	}
	return v, nil
}

// Base58 returns the Bitcoin-style base58 representation of the ID.
func (id ID) Base58() string {
	return base58.encode(int64(id))
}

// Base62 returns the URL-safe base62 representation of the ID.
func (id ID) Base62() string {
	return base62.encode(int64(id))
}

// ParseBase58 parses a string produced by ID.Base58.
func ParseBase58(s string) (ID, error) {
	v, err := base58.decodeString(s)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}

// ParseBase62 parses a string produced by ID.Base62.
func ParseBase62(s string) (ID, error) {
	v, err := base62.decodeString(s)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}
