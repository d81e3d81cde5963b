package canonical

import (
	"math"
	"strconv"
	"strings"
)

// floatPrecision is the number of decimal places every float is rounded to
// before serialization. Two mathematically-equal values computed via
// different floating paths (0.1+0.2 vs 0.3) collapse to the same string at
// this precision.
const floatPrecision = 8

// NormalizeFloat converts a float to its canonical decimal string form.
//
// Rules:
//   - NaN and ±Inf are rejected with SchemaViolation
//   - rounded to 8 decimal places (strconv's correct rounding, ties to even)
//   - trailing zeros stripped, but at least one fractional digit is kept
//     ("1.0", never "1")
//   - never scientific notation
//   - negative zero normalizes to "0.0"
//
// NormalizeFloat is idempotent: parsing the output and normalizing again
// yields the same string.
func NormalizeFloat(v float64) (string, error) {
	if math.IsNaN(v) {
		return "", Violation("", "NaN is not a valid canonical float")
	}
	if math.IsInf(v, 0) {
		return "", Violation("", "Inf is not a valid canonical float")
	}

	s := strconv.FormatFloat(v, 'f', floatPrecision, 64)

	// Strip trailing zeros, keep one digit after the point.
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}

	if s == "-0.0" {
		s = "0.0"
	}

	return s, nil
}

// MustNormalizeFloat is like NormalizeFloat but panics on error.
// Use only when the value is known to be finite.
func MustNormalizeFloat(v float64) string {
	s, err := NormalizeFloat(v)
	if err != nil {
		panic(err)
	}
	return s
}

// CheckFinite returns a SchemaViolation if v is NaN or ±Inf.
// Used by validators that bound-check floats before serialization.
func CheckFinite(field string, v float64) error {
	if math.IsNaN(v) {
		return Violation(field, "must not be NaN")
	}
	if math.IsInf(v, 0) {
		return Violation(field, "must not be Inf")
	}
	return nil
}

// CheckUnit returns a SchemaViolation if v is not a finite value in [0,1].
func CheckUnit(field string, v float64) error {
	if err := CheckFinite(field, v); err != nil {
		return err
	}
	if v < 0 || v > 1 {
		return Violation(field, "must be in [0,1], got %s", strconv.FormatFloat(v, 'g', -1, 64))
	}
	return nil
}
