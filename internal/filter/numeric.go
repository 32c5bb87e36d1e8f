package filter

import (
	"math"
	"strconv"
	"strings"
)

// Int accepts integers and anything that reads as one.
type Int struct{}

func (Int) Validate(v interface{}) bool {
	switch n := v.(type) {
	case nil:
		return true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return isIntegral(float64(n))
	case float64:
		return isIntegral(n)
	case string:
		_, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return err == nil
	default:
		return false
	}
}

// Sanitize truncates numbers and numeric strings. NaN, infinities and
// unparseable input become 0.
func (Int) Sanitize(v interface{}) interface{} {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return int64(0)
	}
	return int64(f)
}

// Float accepts finite numbers and numeric strings.
type Float struct{}

func (Float) Validate(v interface{}) bool {
	switch n := v.(type) {
	case nil:
		return true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return isFinite(float64(n))
	case float64:
		return isFinite(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return err == nil && isFinite(f)
	default:
		return false
	}
}

func (Float) Sanitize(v interface{}) interface{} {
	f, ok := toFloat(v)
	if !ok || !isFinite(f) {
		return float64(0)
	}
	return f
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isIntegral(f float64) bool {
	return isFinite(f) && f == math.Trunc(f)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case []byte:
		return toFloat(string(n))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
