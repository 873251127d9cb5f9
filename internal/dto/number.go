package dto

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Number is a lenient numeric form field. It accepts JSON numbers and numeric
// strings; absent, null or unparseable input decodes to zero.
type Number struct {
	Value   float64
	Present bool
}

// NewNumber builds a present Number.
func NewNumber(v float64) Number {
	return Number{Value: v, Present: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	n.Present = true

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		n.Value = v
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			n.Value = parsed
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Value)
}

// Negative reports whether a present value is below zero.
func (n Number) Negative() bool {
	return n.Present && n.Value < 0
}

// Int truncates the value toward zero.
func (n Number) Int() int {
	return int(n.Value)
}
