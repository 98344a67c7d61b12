// Package sequence - id.go provides the ID type with conversion, marshaling and
// database integration.

package sequence

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"
)

// ID is a generated identifier.
//
// The top bit is never set, so an ID is always a non-negative int64 and sorts
// the same way numerically and as a signed database column.
//
// Interface implementations:
//   - fmt.Stringer: decimal
//   - json.Marshaler/Unmarshaler: decimal string, safe for JavaScript clients
//   - encoding.TextMarshaler/Unmarshaler: decimal
//   - sql.Scanner/driver.Valuer: BIGINT (INTEGER in SQLite)
//
// Example:
//
//	id, _ := gen.NextID()
//	fmt.Println(id)           // 517812015121
//	fmt.Println(id.Hex())     // 7890005011
//	fmt.Println(id.Base62())  // 97dkrBv
//	c := id.Components()      // decoded with LayoutDefault
type ID int64

// Int64 returns the ID as an int64.
func (id ID) Int64() int64 {
	return int64(id)
}

// Uint64 returns the ID as a uint64.
func (id ID) Uint64() uint64 {
	return uint64(id)
}

// String returns the decimal representation of the ID.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// MarshalJSON encodes the ID as a quoted decimal string.
//
//	{"id": "517812015121"}  rather than  {"id": 517812015121}
//
// JavaScript numbers lose precision above 2^53, which real IDs exceed.
func (id ID) MarshalJSON() ([]byte, error) {
	b := make([]byte, 0, 22)
	b = append(b, '"')
	b = strconv.AppendInt(b, int64(id), 10)
	b = append(b, '"')
	return b, nil
}

// UnmarshalJSON accepts both a quoted decimal string and a bare number.
// A JSON null leaves id unchanged.
func (id *ID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	parsed, err := ParseString(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseString(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Scan implements sql.Scanner.
//
// Supported column values:
//   - int64: BIGINT / INTEGER columns
//   - []byte, string: decimal text columns
//   - nil: zero ID
func (id *ID) Scan(value interface{}) error {
	if value == nil {
		*id = 0
		return nil
	}

	var (
		parsed ID
		err    error
	)
	switch v := value.(type) {
	case int64:
		if v < 0 {
			return fmt.Errorf("cannot scan negative value %d into ID", v)
		}
		parsed = ID(v)
	case []byte:
		parsed, err = ParseString(string(v))
	case string:
		parsed, err = ParseString(v)
	default:
		return fmt.Errorf("cannot scan %T into ID", value)
	}
	if err != nil {
		return err
	}

	*id = parsed
	return nil
}

// Value implements driver.Valuer, storing the ID as int64.
//
// Recommended schema:
//
//	-- PostgreSQL / MySQL
//	CREATE TABLE orders (id BIGINT PRIMARY KEY, ...);
//
//	-- SQLite
//	CREATE TABLE orders (id INTEGER PRIMARY KEY, ...);
func (id ID) Value() (driver.Value, error) {
	return int64(id), nil
}

// ParseString parses a decimal string into an ID.
func ParseString(s string) (ID, error) {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ID %q: %w", s, err)
	}
	if i < 0 {
		return 0, fmt.Errorf("invalid ID %q: negative", s)
	}
	return ID(i), nil
}

// Components decodes the ID with LayoutDefault.
// Use Layout.Decode for IDs issued with another layout.
func (id ID) Components() Components {
	return LayoutDefault.Decode(id)
}

// Time returns when the ID was issued, assuming LayoutDefault and the default Epoch.
// Use Generator.Time for generators with a custom layout or epoch.
func (id ID) Time() time.Time {
	return id.Components().Time(Epoch)
}

// Before reports whether id was issued before other.
func (id ID) Before(other ID) bool {
	return id < other
}

// After reports whether id was issued after other.
func (id ID) After(other ID) bool {
	return id > other
}

// Compare returns -1, 0 or +1, for use with slices.SortFunc.
func (id ID) Compare(other ID) int {
	switch {
	case id < other:
		return -1
	case id > other:
		return 1
	default:
		return 0
	}
}
