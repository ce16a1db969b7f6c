package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
)

// DefaultTopN is the number of opportunities the summary lists.
const DefaultTopN = 10

// Stats aggregates a result set.
type Stats struct {
	Analyzed        int
	Accessible      int
	AverageSEOScore float64
	BelowFifty      int
}

// Summarize computes Stats. The average covers accessible sites only.
func Summarize(results []scanner.AnalyzedTarget) Stats {
	var s Stats
	total := 0
	for _, r := range results {
		s.Analyzed++
		if r.SEOAccessible {
			s.Accessible++
			total += r.SEOScore
		}
		if r.SEOScore < 50 {
			s.BelowFifty++
		}
	}
	if s.Accessible > 0 {
		s.AverageSEOScore = float64(total) / float64(s.Accessible)
	}
	return s
}

// PrintSummary writes the top opportunities followed by the statistics block.
func PrintSummary(w io.Writer, results []scanner.AnalyzedTarget, topN int) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No results to display")
		return err
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	rule := strings.Repeat("=", 60)
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\nTOP %d OPPORTUNITIES\n%s\n", rule, topN, rule)
	for i, r := range results[:min(topN, len(results))] {
		website := r.Website
		if website == "" {
			website = "Not found"
		}
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, r.Name)
		fmt.Fprintf(&b, "   Location: %s, %s\n", orNA(r.Municipality), orNA(r.PostalPlace))
		fmt.Fprintf(&b, "   Org.nr: %s\n", r.OrgNumber)
		fmt.Fprintf(&b, "   Employees: %d\n", r.Employees)
		fmt.Fprintf(&b, "   Website: %s\n", website)
		fmt.Fprintf(&b, "   SEO Score: %d/100\n", r.SEOScore)
		fmt.Fprintf(&b, "   Opportunity Score: %d/100\n", r.OpportunityScore)
		if len(r.SEOIssues) > 0 {
			fmt.Fprintf(&b, "   Issues: %s\n", strings.Join(r.SEOIssues[:min(3, len(r.SEOIssues))], ", "))
		}
	}

	stats := Summarize(results)
	fmt.Fprintf(&b, "\n%s\nSTATISTICS\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Total companies analyzed: %d\n", stats.Analyzed)
	fmt.Fprintf(&b, "Companies with accessible websites: %d\n", stats.Accessible)
	fmt.Fprintf(&b, "Average SEO score: %.1f/100\n", stats.AverageSEOScore)
	fmt.Fprintf(&b, "Companies with SEO score < 50: %d\n", stats.BelowFifty)

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
