package domain

import (
	"bytes"
	"strconv"
)

// FlexFloat is a numeric value decoded leniently from JSON. Upstream
// providers encode numbers as JSON numbers, quoted strings, or null
// depending on the endpoint; FlexFloat accepts all three and records
// whether a usable number was present. A malformed value decodes to
// the invalid state instead of failing the surrounding payload.
type FlexFloat struct {
	value float64
	valid bool
}

// NewFlexFloat returns a valid FlexFloat holding v.
func NewFlexFloat(v float64) FlexFloat {
	return FlexFloat{value: v, valid: true}
}

// Get returns the numeric value and whether it was present and parseable.
func (f FlexFloat) Get() (float64, bool) {
	return f.value, f.valid
}

// Ptr returns the value as *float64, nil when invalid.
func (f FlexFloat) Ptr() *float64 {
	if !f.valid {
		return nil
	}
	v := f.value
	return &v
}

// UnmarshalJSON accepts a JSON number, a string-encoded number, or null.
// Anything else leaves the value in the invalid state without error.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	f.value = 0
	f.valid = false

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}

	f.value = v
	f.valid = true
	return nil
}

// MarshalJSON encodes the value as a number, or null when invalid.
func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f.value, 'f', -1, 64)), nil
}
