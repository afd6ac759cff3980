package utils

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNotInteger is returned when a value has no exact integer representation.
var ErrNotInteger = errors.New("not an integer")

// ToInt converts val to an int. Integer types, integral floats and decimal
// strings are accepted; fractions, overflow and anything else are errors.
func ToInt(val any) (int, error) {
	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return fromInt64(v)
	case int32:
		return int(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int", ErrNotInteger, v)
		}
		return fromInt64(int64(v))
	case uint32:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || v > math.MaxInt64 || v < math.MinInt64 {
			return 0, fmt.Errorf("%w: %v", ErrNotInteger, v)
		}
		return fromInt64(int64(v))
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotInteger, v)
		}
		return i, nil
	case []byte:
		return ToInt(string(v))
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrNotInteger, val)
	}
}

func fromInt64(v int64) (int, error) {
	if int64(int(v)) != v {
		return 0, fmt.Errorf("%w: %d overflows int", ErrNotInteger, v)
	}
	return int(v), nil
}

// ToBool reads a query flag with strconv.ParseBool rules ("1", "t", "true");
// everything else, including unparsable input, is false.
func ToBool(val string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(val))
	return err == nil && b
}
