package utils

import (
	"os"
	"strconv"

	"github.com/ideamans/go-sheetpipe/gologger"
)

var logger = gologger.NewLogger()

func GetEnvOrDefault(env, defaultVal string) string {
	e := os.Getenv(env)
	if e == "" {
		return defaultVal
	}
	return e
}

// GetEnvOrDefaultInt falls back to defaultVal when the variable is unset or
// not an integer.
func GetEnvOrDefaultInt(env string, defaultVal int64) int64 {
	e := os.Getenv(env)
	if e == "" {
		return defaultVal
	}
	intVal, err := strconv.ParseInt(e, 10, 64)
	if err != nil {
		logger.Warn().Str("env", env).Str("value", e).Msg("ignoring non-integer environment variable")
		return defaultVal
	}
	return intVal
}
