package excel

import (
	"path/filepath"
	"strings"
)

// Config holds configuration for Excel adapter
type Config struct {
	FilePath string // Path to the workbook file
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.FilePath == "" {
		return ErrMissingFilePath
	}
	switch strings.ToLower(filepath.Ext(c.FilePath)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
	default:
		return ErrInvalidFileFormat
	}
	return nil
}
