package googlesheets

// Config represents configuration specific to Google Sheets adapter
type Config struct {
	SpreadsheetID string // ID from the spreadsheet URL
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.SpreadsheetID == "" {
		return ErrMissingSpreadsheetID
	}
	return nil
}
