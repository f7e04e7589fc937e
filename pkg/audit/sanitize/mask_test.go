package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestMaskFields(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		fields []string
		want   string
	}{
		{
			name:   "quoted string value",
			input:  `{"name":"John","password":"x"}`,
			fields: []string{"password"},
			want:   `{"name":"John","password":"***MASKED***"}`,
		},
		{
			name:   "bare literal values",
			input:  `{"pin":1234,"cvv":null,"ok":true}`,
			fields: []string{"pin", "cvv"},
			want:   `{"pin":"***MASKED***","cvv":"***MASKED***","ok":true}`,
		},
		{
			name:   "nested objects and arrays",
			input:  `{"user":{"password":"p","roles":["a","b"]},"secret":{"k":[1,2]}}`,
			fields: []string{"password", "secret"},
			want:   `{"user":{"password":"***MASKED***","roles":["a","b"]},"secret":"***MASKED***"}`,
		},
		{
			name:   "top-level array",
			input:  `[{"token":"t1"},{"token":"t2","n":1.50}]`,
			fields: []string{"token"},
			want:   `[{"token":"***MASKED***"},{"token":"***MASKED***","n":1.50}]`,
		},
		{
			name:   "key match is case-insensitive",
			input:  `{"Password":"x"}`,
			fields: []string{"password"},
			want:   `{"Password":"***MASKED***"}`,
		},
		{
			name:   "field name as a value is not a key",
			input:  `{"label":"password","x":"y"}`,
			fields: []string{"password"},
			want:   `{"label":"password","x":"y"}`,
		},
		{
			name:   "escaped content survives",
			input:  `{"note":"say \"hi\" <b>","token":"a\"b"}`,
			fields: []string{"token"},
			want:   `{"note":"say \"hi\" <b>","token":"***MASKED***"}`,
		},
		{
			name:   "no fields",
			input:  `{"password":"x"}`,
			fields: nil,
			want:   `{"password":"x"}`,
		},
		{
			name:   "non-JSON falls back to pattern matching",
			input:  `payload={"password": "hunter2", "pin": 42`,
			fields: []string{"password", "pin"},
			want:   `payload={"password":"***MASKED***", "pin":"***MASKED***"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskFields(tt.input, tt.fields); got != tt.want {
				t.Errorf("MaskFields() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMaskFields_Idempotent(t *testing.T) {
	inputs := []string{
		`{"password":"x","profile":{"pin":1234}}`,
		`payload={"password": "hunter2"`,
		`[{"secret":{"nested":true}}]`,
	}
	fields := []string{"password", "pin", "secret"}

	for _, input := range inputs {
		once := MaskFields(input, fields)
		twice := MaskFields(once, fields)
		if once != twice {
			t.Errorf("MaskFields not idempotent for %s: %s != %s", input, once, twice)
		}
	}
}

func TestMaskFields_OrderIndependent(t *testing.T) {
	input := `{"password":"x","token":"y","name":"n"}`

	a := MaskFields(input, []string{"password", "token"})
	b := MaskFields(input, []string{"token", "password"})
	if a != b {
		t.Errorf("field order changed result: %s != %s", a, b)
	}
}

func TestTruncate(t *testing.T) {
	t.Run("under limit is a no-op", func(t *testing.T) {
		if got := Truncate("hello", 10); got != "hello" {
			t.Errorf("Truncate() = %q", got)
		}
	})

	t.Run("exactly at limit is a no-op", func(t *testing.T) {
		if got := Truncate("hello", 5); got != "hello" {
			t.Errorf("Truncate() = %q", got)
		}
	})

	t.Run("over limit is prefix plus marker", func(t *testing.T) {
		for size := 1; size < 40; size++ {
			input := strings.Repeat("x", 50)
			got := Truncate(input, size)

			if utf8.RuneCountInString(got) != size+utf8.RuneCountInString(TruncationMarker) {
				t.Fatalf("size %d: len = %d, want %d", size, len(got), size+len(TruncationMarker))
			}
			if !strings.HasPrefix(input, strings.TrimSuffix(got, TruncationMarker)) {
				t.Fatalf("size %d: output is not a prefix of the input", size)
			}
		}
	})

	t.Run("counts runes, not bytes", func(t *testing.T) {
		got := Truncate("ñandú ñandú", 3)
		if got != "ñan"+TruncationMarker {
			t.Errorf("Truncate() = %q", got)
		}
	})

	t.Run("non-positive limit disables truncation", func(t *testing.T) {
		if got := Truncate("hello", 0); got != "hello" {
			t.Errorf("Truncate() = %q", got)
		}
	})
}

func TestTruncateStackTrace(t *testing.T) {
	trace := strings.Repeat("frame\n", 1000)
	got := TruncateStackTrace(trace, MaxStackTraceSize)

	if !strings.HasSuffix(got, StackTruncationMarker) {
		t.Errorf("TruncateStackTrace() missing marker")
	}
	if len(got) != MaxStackTraceSize+len(StackTruncationMarker) {
		t.Errorf("len = %d, want %d", len(got), MaxStackTraceSize+len(StackTruncationMarker))
	}
}
