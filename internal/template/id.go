package template

import "strconv"

// ID distinguishes instances of one template. Numeric identifiers also drive
// port auto-assignment.
type ID struct {
	value   string
	number  int
	numeric bool
}

// NoID is the zero ID; instances without one use the template's default name.
var NoID ID

// NumericID returns an identifier usable as a port offset.
func NumericID(n int) ID {
	return ID{value: strconv.Itoa(n), number: n, numeric: true}
}

// StringID returns a non-numeric identifier, even if s looks like a number.
func StringID(s string) ID {
	return ID{value: s}
}

// ParseID treats s as numeric when it is a non-negative integer written in
// canonical form, so that the ID always renders back to s. "007" and "+5"
// are string IDs. An empty string yields NoID.
func ParseID(s string) ID {
	if s == "" {
		return NoID
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && strconv.Itoa(n) == s {
		return NumericID(n)
	}
	return StringID(s)
}

// IsSet reports whether the ID carries a value.
func (id ID) IsSet() bool {
	return id.value != ""
}

// Int returns the numeric value and whether the ID is numeric.
func (id ID) Int() (int, bool) {
	return id.number, id.numeric
}

func (id ID) String() string {
	return id.value
}
