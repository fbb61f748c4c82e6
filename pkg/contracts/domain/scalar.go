package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ScalarKind tags the variant held by a Scalar
type ScalarKind int

const (
	ScalarNull ScalarKind = iota
	ScalarString
	ScalarNumber
)

// Scalar is a loosely typed warehouse cell, converted once at the boundary
type Scalar struct {
	Kind ScalarKind
	Str  string
	Num  float64
}

// Row maps a result column name to its cell
type Row map[string]Scalar

// Null is the absent cell
var Null = Scalar{Kind: ScalarNull}

// StringScalar builds a string scalar
func StringScalar(s string) Scalar {
	return Scalar{Kind: ScalarString, Str: s}
}

// NumberScalar builds a numeric scalar
func NumberScalar(v float64) Scalar {
	return Scalar{Kind: ScalarNumber, Num: v}
}

// ScalarOf converts a decoded JSON value into a Scalar. Nested values are
// flattened to their JSON text.
func ScalarOf(v interface{}) Scalar {
	switch val := v.(type) {
	case nil:
		return Null
	case string:
		return StringScalar(val)
	case float64:
		return NumberScalar(val)
	case float32:
		return NumberScalar(float64(val))
	case int:
		return NumberScalar(float64(val))
	case int64:
		return NumberScalar(float64(val))
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return NumberScalar(f)
		}
		return StringScalar(val.String())
	case bool:
		return StringScalar(strconv.FormatBool(val))
	default:
		if b, err := json.Marshal(val); err == nil {
			return StringScalar(string(b))
		}
		return StringScalar(fmt.Sprintf("%v", val))
	}
}

// IsNull reports whether the cell is absent
func (s Scalar) IsNull() bool {
	return s.Kind == ScalarNull
}

// Float returns the numeric reading of the cell. Strings are parsed after
// trimming; anything unparseable reports false.
func (s Scalar) Float() (float64, bool) {
	switch s.Kind {
	case ScalarNumber:
		return s.Num, true
	case ScalarString:
		f, err := strconv.ParseFloat(strings.TrimSpace(s.Str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// String returns the textual form of the cell, empty for null
func (s Scalar) String() string {
	switch s.Kind {
	case ScalarString:
		return s.Str
	case ScalarNumber:
		return strconv.FormatFloat(s.Num, 'f', -1, 64)
	}
	return ""
}
