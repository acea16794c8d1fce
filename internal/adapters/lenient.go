package adapters

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Provider payloads change shape without notice. The types below decode a
// field when it has the expected form and leave it absent otherwise, so one
// drifted field never fails a whole response.

// Number is a JSON number decoded leniently. Numeric strings are accepted;
// null, booleans, objects and non-numeric strings leave it invalid.
type Number struct {
	Value float64
	Valid bool
}

// UnmarshalJSON never returns an error
func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	if isNull(b) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		var s string
		if json.Unmarshal(b, &s) != nil {
			return nil
		}
		if f, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return nil
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}

	n.Value, n.Valid = f, true
	return nil
}

// Float returns the value, zero when absent
func (n Number) Float() float64 {
	if !n.Valid {
		return 0
	}
	return n.Value
}

// Int returns the value rounded to the nearest integer, zero when absent
func (n Number) Int() int {
	if !n.Valid {
		return 0
	}
	return int(math.Round(n.Value))
}

// Ptr returns a pointer to the value, nil when absent
func (n Number) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	return Float(n.Value)
}

// Optional decodes a T and treats a value of the wrong shape as absent
type Optional[T any] struct {
	Value T
	Valid bool
}

// UnmarshalJSON never returns an error
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	*o = Optional[T]{}
	if isNull(b) {
		return nil
	}

	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	o.Value, o.Valid = v, true
	return nil
}

func isNull(b []byte) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}
