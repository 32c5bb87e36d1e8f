package filter

import (
	"math"
	"testing"
	"time"
)

func TestIntFilter(t *testing.T) {
	f := Int{}

	valid := []interface{}{nil, 3, int64(-2), uint8(7), 4.0, "42", " 17 "}
	for _, v := range valid {
		if !f.Validate(v) {
			t.Errorf("Int.Validate(%#v) = false, want true", v)
		}
	}

	invalid := []interface{}{"abc", "", 2.5, math.NaN(), true, []int{1}}
	for _, v := range invalid {
		if f.Validate(v) {
			t.Errorf("Int.Validate(%#v) = true, want false", v)
		}
	}

	sanitize := []struct {
		in   interface{}
		want int64
	}{
		{"abc", 0},
		{"", 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{2.9, 2},
		{"12.7", 12},
		{true, 1},
		{struct{}{}, 0},
	}
	for _, tt := range sanitize {
		if got := f.Sanitize(tt.in); got != tt.want {
			t.Errorf("Int.Sanitize(%#v) = %#v, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFloatFilter(t *testing.T) {
	f := Float{}
	if !f.Validate("1.5") || !f.Validate(2) || f.Validate("x") || f.Validate(math.Inf(-1)) {
		t.Error("Float.Validate returned unexpected results")
	}
	if got := f.Sanitize("x"); got != float64(0) {
		t.Errorf("Float.Sanitize(x) = %v, want 0", got)
	}
	if got := f.Sanitize([]byte("2.25")); got != 2.25 {
		t.Errorf("Float.Sanitize(bytes) = %v, want 2.25", got)
	}
}

func TestStringFilter(t *testing.T) {
	f := String{}
	if !f.Validate("x") || !f.Validate(nil) || f.Validate(1) {
		t.Error("String.Validate returned unexpected results")
	}

	ts := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		in   interface{}
		want string
	}{
		{[]byte("raw"), "raw"},
		{12, "12"},
		{1.5, "1.5"},
		{false, "false"},
		{ts, "2024-03-01 10:30:00"},
	}
	for _, tt := range tests {
		if got := f.Sanitize(tt.in); got != tt.want {
			t.Errorf("String.Sanitize(%#v) = %#v, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTimeAndDateFilters(t *testing.T) {
	tf := Time{}
	if !tf.Validate("2024-03-01 10:30:00") || !tf.Validate(time.Now()) || tf.Validate("yesterday") {
		t.Error("Time.Validate returned unexpected results")
	}
	if got := tf.Sanitize(int64(0)); got != time.Unix(0, 0).UTC() {
		t.Errorf("Time.Sanitize(0) = %v", got)
	}
	if got := tf.Sanitize("yesterday"); got != nil {
		t.Errorf("Time.Sanitize(yesterday) = %v, want nil", got)
	}

	df := Date{}
	if !df.Validate("2024-03-01") || df.Validate("2024-03-01 10:30:00") {
		t.Error("Date.Validate returned unexpected results")
	}
	if got := df.Sanitize("2024-03-01 10:30:00"); got != "2024-03-01" {
		t.Errorf("Date.Sanitize(datetime) = %v, want 2024-03-01", got)
	}
}

func TestBoolFilter(t *testing.T) {
	f := Bool{}
	if !f.Validate(true) || !f.Validate(1) || !f.Validate("false") || f.Validate(2) || f.Validate("maybe") {
		t.Error("Bool.Validate returned unexpected results")
	}
	if got := f.Sanitize(2); got != true {
		t.Errorf("Bool.Sanitize(2) = %v, want true", got)
	}
	if got := f.Sanitize("off"); got != false {
		t.Errorf("Bool.Sanitize(off) = %v, want false", got)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	t.Run("sanitizes only on validation failure", func(t *testing.T) {
		if got := r.Apply("int", "abc"); got != int64(0) {
			t.Errorf("Apply(int, abc) = %#v, want 0", got)
		}
		if got := r.Apply("int", "42"); got != "42" {
			t.Errorf("Apply(int, \"42\") = %#v, want the original string", got)
		}
	})

	t.Run("unknown types pass through", func(t *testing.T) {
		v := []int{1, 2}
		got := r.Apply("geometry", v)
		if s, ok := got.([]int); !ok || len(s) != 2 {
			t.Errorf("Apply(geometry) = %#v, want input unchanged", got)
		}
		if r.Get("") != Passthrough {
			t.Error("Get(\"\") should return Passthrough")
		}
	})

	t.Run("custom filters replace built-ins", func(t *testing.T) {
		r.Register("string", Funcs{
			ValidateFunc: func(v interface{}) bool { return false },
			SanitizeFunc: func(v interface{}) interface{} { return "redacted" },
		})
		if got := r.Apply("string", "secret"); got != "redacted" {
			t.Errorf("Apply(string) = %v, want redacted", got)
		}
	})
}
