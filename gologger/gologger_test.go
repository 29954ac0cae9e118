package gologger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf)
	logger.Info().Str("sheet", "Summary").Int("rows", 3).Msg("sheet written")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}

	tests := []struct {
		field string
		want  interface{}
	}{
		{"level", "info"},
		{"message", "sheet written"},
		{"sheet", "Summary"},
		{"rows", 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			if entry[tt.field] != tt.want {
				t.Errorf("%s = %v, want %v", tt.field, entry[tt.field], tt.want)
			}
		})
	}

	if _, ok := entry["time"]; !ok {
		t.Error("time field missing")
	}
	caller, _ := entry["caller"].(string)
	if !strings.Contains(caller, "gologger_test.go:") {
		t.Errorf("caller = %q, want the logging call site", caller)
	}
}
