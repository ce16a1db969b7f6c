// Package scanner defines the domain types and the orchestration service that
// turns a registry listing into a ranked list of SEO opportunities.
package scanner

import (
	"time"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/seo"
)

// DefaultIndustryCode selects accommodation businesses in the registry.
const DefaultIndustryCode = "55"

// Target is a business entity from the registry. Website is empty until
// discovery fills it in.
type Target struct {
	OrgNumber      string `json:"org_number"`
	Name           string `json:"name"`
	OrgForm        string `json:"org_form"`
	Industry       string `json:"industry"`
	IndustryCode   string `json:"industry_code"`
	Municipality   string `json:"municipality"`
	PostalCode     string `json:"postal_code"`
	PostalPlace    string `json:"postal_place"`
	Address        string `json:"address"`
	RegisteredDate string `json:"registered_date"`
	Employees      int    `json:"employees"`
	Website        string `json:"website"`
}

// AnalyzedTarget is a Target joined with its SEO result and opportunity score.
// It serializes flat, the way API consumers and exports expect it.
type AnalyzedTarget struct {
	Target
	SEOScore         int            `json:"seo_score"`
	SEOIssues        []string       `json:"seo_issues"`
	SEODetails       map[string]any `json:"seo_details"`
	SEOAccessible    bool           `json:"seo_accessible"`
	FinalURL         string         `json:"final_url,omitempty"`
	OpportunityScore int            `json:"opportunity_score"`
}

// NewAnalyzedTarget joins a target with its result.
func NewAnalyzedTarget(t Target, res seo.Result, opportunity int) AnalyzedTarget {
	issues := res.Issues
	if issues == nil {
		issues = []string{}
	}
	details := res.Details
	if details == nil {
		details = map[string]any{}
	}
	return AnalyzedTarget{
		Target:           t,
		SEOScore:         res.Score,
		SEOIssues:        issues,
		SEODetails:       details,
		SEOAccessible:    res.Accessible,
		FinalURL:         res.FinalURL,
		OpportunityScore: opportunity,
	}
}

// Query selects which registry entities a scan covers.
type Query struct {
	MunicipalityCode string `json:"municipality_code,omitempty"`
	IndustryCode     string `json:"industry_code"`
	MaxTargets       int    `json:"max_companies"`
	Sequential       bool   `json:"sequential"`
}

// Municipality is a selectable region.
type Municipality struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Region string `json:"region"`
}

// SessionStatus enumerates scan session states.
type SessionStatus string

// Session states. Complete and Error are terminal.
const (
	SessionPending  SessionStatus = "pending"
	SessionRunning  SessionStatus = "running"
	SessionComplete SessionStatus = "complete"
	SessionError    SessionStatus = "error"
)

// Terminal reports whether no further transitions are allowed.
func (s SessionStatus) Terminal() bool {
	return s == SessionComplete || s == SessionError
}

// Session is one scan run's status, progress and results.
type Session struct {
	ID        string           `json:"id"`
	Status    SessionStatus    `json:"status"`
	Progress  int              `json:"progress"`
	Message   string           `json:"message"`
	Query     Query            `json:"query"`
	Results   []AnalyzedTarget `json:"results"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ScanRequest is the queue item that hands a session to a scan runner.
type ScanRequest struct {
	SessionID string
	Query     Query
	Submitted time.Time
}
