package entry

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ErrInvalidInput reports a missing or non-numeric submission field.
var ErrInvalidInput = errors.New("invalid input")

// Submission is a validated score submission.
type Submission struct {
	Mode       string
	Name       string
	Score      int64
	Accuracy   float64
	Efficiency int64
}

// ParseSubmission validates raw caller values. Numeric fields accept JSON
// numbers, Go integers and numeric strings; accuracy may carry a trailing
// percent sign. Integer fields are truncated toward zero.
func ParseSubmission(mode, name string, score, accuracy, efficiency any) (Submission, error) {
	sub := Submission{
		Mode: strings.TrimSpace(mode),
		Name: strings.TrimSpace(name),
	}
	if sub.Mode == "" {
		return Submission{}, fmt.Errorf("%w: missing mode", ErrInvalidInput)
	}
	if sub.Name == "" {
		return Submission{}, fmt.Errorf("%w: missing name", ErrInvalidInput)
	}

	var err error
	if sub.Score, err = CoerceInt("score", score); err != nil {
		return Submission{}, err
	}
	if sub.Accuracy, err = CoerceAccuracy(accuracy); err != nil {
		return Submission{}, err
	}
	if sub.Efficiency, err = CoerceInt("efficiency", efficiency); err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// MaxExactInt bounds integer fields. Efficiency becomes a float64
// sorted-set score, which holds every integer up to this magnitude exactly.
const MaxExactInt = 1 << 53

var maxExact = new(big.Float).SetInt64(MaxExactInt)

// CoerceInt converts v to an integer, truncating any fraction. Magnitudes
// above MaxExactInt are rejected.
func CoerceInt(field string, v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return exactInt(field, int64(x))
	case int32:
		return exactInt(field, int64(x))
	case int64:
		return exactInt(field, x)
	}
	f, err := coerceFloat(field, v, false)
	if err != nil {
		return 0, err
	}
	// Check the literal itself: parsing to float64 rounds 2^53+1 down to 2^53.
	if text, ok := numericText(v); ok && beyondExact(text) {
		return 0, rangeErr(field)
	}
	t := math.Trunc(f)
	if math.Abs(t) > MaxExactInt {
		return 0, rangeErr(field)
	}
	return int64(t), nil
}

func exactInt(field string, n int64) (int64, error) {
	if n > MaxExactInt || n < -MaxExactInt {
		return 0, rangeErr(field)
	}
	return n, nil
}

func rangeErr(field string) error {
	return fmt.Errorf("%w: %s out of range", ErrInvalidInput, field)
}

func numericText(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), true
	case json.Number:
		return strings.TrimSpace(string(x)), true
	}
	return "", false
}

func beyondExact(s string) bool {
	f, _, err := big.ParseFloat(s, 10, 64, big.ToZero)
	if err != nil {
		return false
	}
	return f.Abs(f).Cmp(maxExact) > 0
}

// CoerceAccuracy converts v to a percentage, stripping a trailing "%".
func CoerceAccuracy(v any) (float64, error) {
	return coerceFloat("accuracy", v, true)
}

func coerceFloat(field string, v any, percent bool) (float64, error) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, fmt.Errorf("%w: missing %s", ErrInvalidInput, field)
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		return coerceFloat(field, string(x), percent)
	case string:
		s := strings.TrimSpace(x)
		if percent {
			s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
		}
		if s == "" {
			return 0, fmt.Errorf("%w: missing %s", ErrInvalidInput, field)
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s is not numeric", ErrInvalidInput, field)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: %s has unsupported type %T", ErrInvalidInput, field, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s is not finite", ErrInvalidInput, field)
	}
	return f, nil
}
