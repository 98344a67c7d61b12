// Package sequence - radix.go renders IDs in radix 2-36 and issues formatted IDs
// from the default generator.
//
// All helpers are pure functions of the already-encoded 64-bit value; they never
// look at the layout.

package sequence

import (
	"fmt"
	"strconv"
	"strings"
)

// Radix bounds accepted by the radix helpers. Other values fall back to DecimalRadix.
const (
	MinRadix     = 2
	MaxRadix     = 36
	DecimalRadix = 10

	// DTMRadix is the base-32 "DTM" form using digits 0-9a-v.
	DTMRadix = 32
)

func normalizeRadix(radix int) int {
	if radix < MinRadix || radix > MaxRadix {
		return DecimalRadix
	}
	return radix
}

// Binary returns the base-2 representation of the ID.
func (id ID) Binary() string {
	return strconv.FormatInt(int64(id), 2)
}

// Octal returns the base-8 representation of the ID.
func (id ID) Octal() string {
	return strconv.FormatInt(int64(id), 8)
}

// Hex returns the lower-case hexadecimal representation of the ID.
func (id ID) Hex() string {
	return strconv.FormatInt(int64(id), 16)
}

// HexUpper returns the upper-case hexadecimal representation of the ID.
func (id ID) HexUpper() string {
	return strings.ToUpper(id.Hex())
}

// DTM returns the base-32 representation of the ID using digits 0-9a-v.
func (id ID) DTM() string {
	return strconv.FormatInt(int64(id), DTMRadix)
}

// DTMUpper returns the base-32 representation of the ID using digits 0-9A-V.
func (id ID) DTMUpper() string {
	return strings.ToUpper(id.DTM())
}

// Radix returns the ID in the given radix with lower-case digits.
// A radix outside [2, 36] renders in base 10.
func (id ID) Radix(radix int) string {
	return strconv.FormatInt(int64(id), normalizeRadix(radix))
}

// RadixUpper is Radix with upper-case digits.
func (id ID) RadixUpper(radix int) string {
	return strings.ToUpper(id.Radix(radix))
}

// ParseRadix parses s in the given radix. Digits are case-insensitive.
// A radix outside [2, 36] parses as base 10, mirroring Radix.
func ParseRadix(s string, radix int) (ID, error) {
	i, err := strconv.ParseInt(strings.ToLower(s), normalizeRadix(radix), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q in radix %d: %w", ErrInvalidRadix, s, normalizeRadix(radix), err)
	}
	if i < 0 {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidRadix, s)
	}
	return ID(i), nil
}

// Format renders the ID in a named format.
//
// Recognized names: "decimal" (default), "binary", "octal", "hex", "HEX",
// "dtm", "DTM", "base58", "base62". Anything else renders as decimal.
//
// Example:
//
//	id.Format("hex")    // "112210f47de98115"
//	id.Format("DTM")    // "128GGUHUUJ08L"
//	id.Format("base62") // "1tckI1NfUnH"
func (id ID) Format(format string) string {
	switch format {
	case "binary", "bin", "b":
		return id.Binary()
	case "octal", "oct", "o":
		return id.Octal()
	case "hex", "x":
		return id.Hex()
	case "HEX", "X":
		return id.HexUpper()
	case "dtm", "base32", "b32", "32":
		return id.DTM()
	case "DTM":
		return id.DTMUpper()
	case "base58", "b58", "58":
		return id.Base58()
	case "base62", "b62", "62":
		return id.Base62()
	default:
		return id.String()
	}
}

// Parse parses s in a named format, the inverse of ID.Format.
func Parse(s, format string) (ID, error) {
	switch format {
	case "binary", "bin", "b":
		return ParseRadix(s, 2)
	case "octal", "oct", "o":
		return ParseRadix(s, 8)
	case "hex", "x", "HEX", "X":
		return ParseRadix(s, 16)
	case "dtm", "base32", "b32", "32", "DTM":
		return ParseRadix(s, DTMRadix)
	case "base58", "b58", "58":
		return ParseBase58(s)
	case "base62", "b62", "62":
		return ParseBase62(s)
	default:
		return ParseString(s)
	}
}

// nextFormatted issues an ID from the default generator and renders it.
func nextFormatted(render func(ID) string) (string, error) {
	id, err := NextID()
	if err != nil {
		return "", err
	}
	return render(id), nil
}

// NextString issues an ID from the default generator in decimal.
func NextString() (string, error) { return nextFormatted(ID.String) }

// NextBinary issues an ID from the default generator in base 2.
func NextBinary() (string, error) { return nextFormatted(ID.Binary) }

// NextOctal issues an ID from the default generator in base 8.
func NextOctal() (string, error) { return nextFormatted(ID.Octal) }

// NextHex issues an ID from the default generator in lower-case hexadecimal.
func NextHex() (string, error) { return nextFormatted(ID.Hex) }

// NextHexUpper issues an ID from the default generator in upper-case hexadecimal.
func NextHexUpper() (string, error) { return nextFormatted(ID.HexUpper) }

// NextDTM issues an ID from the default generator in base 32 (0-9a-v).
func NextDTM() (string, error) { return nextFormatted(ID.DTM) }

// NextDTMUpper issues an ID from the default generator in base 32 (0-9A-V).
func NextDTMUpper() (string, error) { return nextFormatted(ID.DTMUpper) }

// NextRadix issues an ID from the default generator in the given radix.
// A radix outside [2, 36] renders in base 10.
func NextRadix(radix int) (string, error) {
	return nextFormatted(func(id ID) string { return id.Radix(radix) })
}

// NextRadixUpper is NextRadix with upper-case digits.
func NextRadixUpper(radix int) (string, error) {
	return nextFormatted(func(id ID) string { return id.RadixUpper(radix) })
}
