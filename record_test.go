package sheetpipe_test

import (
	"testing"
	"time"

	sheetpipe "github.com/ideamans/go-sheetpipe"
)

func TestRow_Getters(t *testing.T) {
	day := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)
	table, err := sheetpipe.FromRecords("T",
		[]string{"text", "int", "float", "bool", "date", "numtext", "empty"},
		[][]interface{}{{"hello", 42, 3.5, true, day, "7", nil}},
	)
	if err != nil {
		t.Fatal(err)
	}
	row := table.Row(0)

	t.Run("string", func(t *testing.T) {
		if got := row.GetAsString("text", "x"); got != "hello" {
			t.Errorf("GetAsString(text) = %q", got)
		}
		if got := row.GetAsString("int", "x"); got != "42" {
			t.Errorf("GetAsString(int) = %q", got)
		}
		if got := row.GetAsString("bool", "x"); got != "true" {
			t.Errorf("GetAsString(bool) = %q", got)
		}
		if got := row.GetAsString("empty", "x"); got != "x" {
			t.Errorf("GetAsString(empty) = %q", got)
		}
	})

	t.Run("int64", func(t *testing.T) {
		if got := row.GetAsInt64("int", 0); got != 42 {
			t.Errorf("GetAsInt64(int) = %d", got)
		}
		if got := row.GetAsInt64("float", 0); got != 3 {
			t.Errorf("GetAsInt64(float) = %d", got)
		}
		if got := row.GetAsInt64("numtext", 0); got != 7 {
			t.Errorf("GetAsInt64(numtext) = %d", got)
		}
		if got := row.GetAsInt64("missing", -1); got != -1 {
			t.Errorf("GetAsInt64(missing) = %d", got)
		}
	})

	t.Run("float64", func(t *testing.T) {
		if got := row.GetAsFloat64("float", 0); got != 3.5 {
			t.Errorf("GetAsFloat64(float) = %v", got)
		}
		if got := row.GetAsFloat64("int", 0); got != 42 {
			t.Errorf("GetAsFloat64(int) = %v", got)
		}
		if got := row.GetAsFloat64("text", 1.5); got != 1.5 {
			t.Errorf("GetAsFloat64(text) = %v", got)
		}
	})

	t.Run("bool", func(t *testing.T) {
		if !row.GetAsBool("bool", false) {
			t.Error("GetAsBool(bool) = false")
		}
		if !row.GetAsBool("int", false) {
			t.Error("GetAsBool(int) = false")
		}
		if !row.GetAsBool("empty", true) {
			t.Error("GetAsBool(empty) ignored the default")
		}
	})

	t.Run("time", func(t *testing.T) {
		if got := row.GetAsTime("date", time.Time{}); !got.Equal(day) {
			t.Errorf("GetAsTime(date) = %v", got)
		}
		if got := row.GetAsTime("text", time.Time{}); !got.IsZero() {
			t.Errorf("GetAsTime(text) = %v", got)
		}
	})

	t.Run("map", func(t *testing.T) {
		m := row.Map()
		if len(m) != 7 || m["text"] != "hello" {
			t.Errorf("Map() = %v", m)
		}
		if _, ok := table.Row(5).Value("text"); ok {
			t.Error("Value() out of range ok = true")
		}
	})
}
