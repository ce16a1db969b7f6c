// Package export renders ranked scan results as CSV and JSON files, prints
// the console summary, and fans finished sessions out to configured sinks.
package export

import (
	"fmt"
	"strings"
)

// Format selects which files an export produces.
type Format string

// Supported formats.
const (
	FormatTabular    Format = "tabular"
	FormatStructured Format = "structured"
	FormatBoth       Format = "both"
)

// ParseFormat accepts a format name or one of the csv/json aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both":
		return FormatBoth, nil
	case "tabular", "csv":
		return FormatTabular, nil
	case "structured", "json":
		return FormatStructured, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv, json or both)", s)
	}
}

// Tabular reports whether the CSV file is produced.
func (f Format) Tabular() bool {
	return f == FormatTabular || f == FormatBoth
}

// Structured reports whether the JSON file is produced.
func (f Format) Structured() bool {
	return f == FormatStructured || f == FormatBoth
}

// DefaultBaseName names export files after the scanned municipality.
func DefaultBaseName(municipalityCode string) string {
	if municipalityCode == "" {
		return "hotel_scan_norway"
	}
	return "hotel_scan_" + municipalityCode
}
