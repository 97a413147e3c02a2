package excel

import (
	"time"

	"gobrittle/internal/config"
)

// ReaderConfig describes the column layout of a recording export
type ReaderConfig struct {
	Sheet           string         `json:"sheet"`            // xlsx only; empty means the first sheet
	TimestampColumn string         `json:"timestamp_column"` // header of the time column
	Channels        []string       `json:"channels"`         // value column headers in channel order
	Layouts         []string       `json:"layouts"`          // accepted timestamp layouts
	Location        *time.Location `json:"-"`                // zone for timestamps without an offset
}

// DefaultLayouts are the timestamp formats seen in CGM, Holter and ABPM exports
var DefaultLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04",
	"01/02/2006 15:04",
}

// DefaultReaderConfig expects a "timestamp" column and one column per
// domain channel
func DefaultReaderConfig(profile config.DomainProfile) ReaderConfig {
	return ReaderConfig{
		TimestampColumn: "timestamp",
		Channels:        append([]string(nil), profile.Channels...),
		Layouts:         DefaultLayouts,
		Location:        time.UTC,
	}
}
