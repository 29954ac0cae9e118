package utils

import "testing"

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"unset", "", "fallback"},
		{"set", "/data", "/data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SHEETPIPE_TEST_DIR", tt.value)
			if got := GetEnvOrDefault("SHEETPIPE_TEST_DIR", "fallback"); got != tt.want {
				t.Errorf("GetEnvOrDefault() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetEnvOrDefaultInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int64
	}{
		{"unset", "", 42},
		{"set", "7", 7},
		{"negative", "-3", -3},
		{"not a number", "seven", 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SHEETPIPE_TEST_SEED", tt.value)
			if got := GetEnvOrDefaultInt("SHEETPIPE_TEST_SEED", 42); got != tt.want {
				t.Errorf("GetEnvOrDefaultInt() = %d, want %d", got, tt.want)
			}
		})
	}
}
