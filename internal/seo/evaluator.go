package seo

import (
	"fmt"
)

// Issue text shared with the scanner for targets that were never evaluated.
const IssueNoWebsite = "No website found"

// Result is the outcome of scoring one page.
type Result struct {
	URL        string         `json:"url"`
	FinalURL   string         `json:"final_url,omitempty"`
	Score      int            `json:"score"`
	Issues     []string       `json:"issues"`
	Details    map[string]any `json:"details"`
	Accessible bool           `json:"accessible"`
}

// Inaccessible builds the result for a page that could not be fetched: zero
// score, exactly one issue and no details.
func Inaccessible(url, issue string) Result {
	return Result{
		URL:     url,
		Score:   0,
		Issues:  []string{issue},
		Details: map[string]any{},
	}
}

// Evaluator runs a fixed battery of checks over a page.
type Evaluator struct {
	checks []Check
}

// NewEvaluator builds an Evaluator. A nil battery falls back to the default rubric.
func NewEvaluator(checks []Check) *Evaluator {
	if checks == nil {
		checks = DefaultChecks(DefaultRubricConfig())
	}
	cp := make([]Check, len(checks))
	copy(cp, checks)
	return &Evaluator{checks: cp}
}

// Checks returns a copy of the configured battery.
func (e *Evaluator) Checks() []Check {
	out := make([]Check, len(e.checks))
	copy(out, e.checks)
	return out
}

// Evaluate parses the document once and scores it. Evaluate is deterministic:
// the same document always produces the same result.
func (e *Evaluator) Evaluate(doc Document) Result {
	page := ParsePage(doc)
	outcomes := make([]Outcome, len(e.checks))
	for i, c := range e.checks {
		outcomes[i] = runCheck(c, page)
	}
	res := Aggregate(outcomes)
	res.URL = doc.RequestURL
	res.FinalURL = doc.FinalURL
	res.Accessible = true
	return res
}

func runCheck(c Check, page *Page) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Issue: fmt.Sprintf("Could not evaluate %s", c.Name)}
		}
	}()
	if c.Evaluate == nil {
		return Outcome{}
	}
	return c.Evaluate(page)
}

// Aggregate folds check outcomes into a result: points are summed and clamped
// to [0, MaxScore], issues keep check order, and details are merged by key.
func Aggregate(outcomes []Outcome) Result {
	total := 0
	issues := make([]string, 0, len(outcomes))
	details := make(map[string]any, len(outcomes)+2)
	for _, o := range outcomes {
		total += o.Points
		if o.Issue != "" {
			issues = append(issues, o.Issue)
		}
		for _, d := range o.Details {
			details[d.Key] = d.Value
		}
	}
	return Result{
		Score:   min(max(total, 0), MaxScore),
		Issues:  issues,
		Details: details,
	}
}
