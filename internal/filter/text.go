package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateTimeLayout = "2006-01-02 15:04:05"
	DateLayout     = "2006-01-02"
)

var timeLayouts = []string{DateTimeLayout, time.RFC3339Nano, "2006-01-02T15:04:05", DateLayout}

// String accepts strings.
type String struct{}

func (String) Validate(v interface{}) bool {
	switch v.(type) {
	case nil, string:
		return true
	default:
		return false
	}
}

func (String) Sanitize(v interface{}) interface{} {
	switch s := v.(type) {
	case []byte:
		return string(s)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", s)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case time.Time:
		return s.Format(DateTimeLayout)
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}

// Time accepts time.Time values and datetime strings.
type Time struct{}

func (Time) Validate(v interface{}) bool {
	switch t := v.(type) {
	case nil, time.Time:
		return true
	case string:
		_, ok := parseTime(t)
		return ok
	default:
		return false
	}
}

// Sanitize reads integers as unix seconds. Anything else becomes NULL.
func (Time) Sanitize(v interface{}) interface{} {
	switch t := v.(type) {
	case []byte:
		if parsed, ok := parseTime(string(t)); ok {
			return parsed
		}
	case int, int32, int64, uint, uint32, uint64, float64:
		if secs, ok := toFloat(t); ok {
			return time.Unix(int64(secs), 0).UTC()
		}
	}
	return nil
}

// Date accepts time.Time values and YYYY-MM-DD strings.
type Date struct{}

func (Date) Validate(v interface{}) bool {
	switch t := v.(type) {
	case nil, time.Time:
		return true
	case string:
		_, err := time.Parse(DateLayout, strings.TrimSpace(t))
		return err == nil
	default:
		return false
	}
}

// Sanitize trims datetimes to their date. Anything else becomes NULL.
func (Date) Sanitize(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		if parsed, ok := parseTime(t); ok {
			return parsed.Format(DateLayout)
		}
	case []byte:
		if parsed, ok := parseTime(string(t)); ok {
			return parsed.Format(DateLayout)
		}
	case int, int32, int64, uint, uint32, uint64, float64:
		if secs, ok := toFloat(t); ok {
			return time.Unix(int64(secs), 0).UTC().Format(DateLayout)
		}
	}
	return nil
}

// Bool accepts booleans, 0/1 and strconv.ParseBool strings.
type Bool struct{}

func (Bool) Validate(v interface{}) bool {
	switch b := v.(type) {
	case nil, bool:
		return true
	case string:
		_, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil
	default:
		if f, ok := toFloat(b); ok {
			return f == 0 || f == 1
		}
		return false
	}
}

// Sanitize returns the value's truthiness.
func (Bool) Sanitize(v interface{}) interface{} {
	switch b := v.(type) {
	case string:
		s := strings.ToLower(strings.TrimSpace(b))
		return s != "" && s != "0" && s != "false" && s != "no" && s != "off"
	case []byte:
		return Bool{}.Sanitize(string(b))
	default:
		if f, ok := toFloat(b); ok {
			return f != 0
		}
		return b != nil
	}
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
