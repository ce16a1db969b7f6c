package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
)

// Content types of the export files.
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeJSON = "application/json; charset=utf-8"
)

var tabularHeader = []string{
	"name", "org_number", "municipality", "address", "postal_code", "postal_place",
	"employees", "website", "seo_score", "opportunity_score", "seo_issues",
	"industry", "registered_date",
}

// WriteTabular writes one CSV row per result. Issues are joined with "; ".
func WriteTabular(w io.Writer, results []scanner.AnalyzedTarget) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tabularHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range results {
		row := []string{
			r.Name,
			r.OrgNumber,
			r.Municipality,
			r.Address,
			r.PostalCode,
			r.PostalPlace,
			strconv.Itoa(r.Employees),
			r.Website,
			strconv.Itoa(r.SEOScore),
			strconv.Itoa(r.OpportunityScore),
			strings.Join(r.SEOIssues, "; "),
			r.Industry,
			r.RegisteredDate,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.OrgNumber, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteStructured writes the results as an indented JSON array with the full
// detail maps. Non-ASCII text is written as-is.
func WriteStructured(w io.Writer, results []scanner.AnalyzedTarget) error {
	if results == nil {
		results = []scanner.AnalyzedTarget{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
