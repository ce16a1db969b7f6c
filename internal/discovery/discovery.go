// Package discovery resolves the website of a registry entity.
package discovery

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
)

// Prober reports whether a URL answers with HTTP 200.
type Prober interface {
	Probe(ctx context.Context, url string) (bool, error)
}

// Discoverer prefers the declared website of a target and falls back to
// probing domains guessed from its name.
type Discoverer struct {
	prober Prober
	tld    string
	logger *zap.Logger
}

// New constructs a Discoverer that guesses under the given top-level domain.
func New(prober Prober, tld string, logger *zap.Logger) *Discoverer {
	if tld == "" {
		tld = "no"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{prober: prober, tld: strings.TrimPrefix(tld, "."), logger: logger}
}

// Discover returns the website of t, or "" when none was found. Probe
// failures count as misses; only context cancellation is returned as an error.
func (d *Discoverer) Discover(ctx context.Context, t scanner.Target) (string, error) {
	if site := NormalizeWebsite(t.Website); site != "" {
		return site, nil
	}
	for _, candidate := range CandidateURLs(t.Name, d.tld) {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("discover website: %w", err)
		}
		ok, err := d.prober.Probe(ctx, candidate)
		if err != nil {
			d.logger.Debug("website probe failed", zap.String("url", candidate), zap.Error(err))
			continue
		}
		if ok {
			return candidate, nil
		}
	}
	return "", nil
}

// NormalizeWebsite turns a declared website into an absolute URL, defaulting
// to https when no scheme is given.
func NormalizeWebsite(raw string) string {
	site := strings.TrimSpace(raw)
	if site == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(site), "http") {
		site = "https://" + site
	}
	return site
}

// CandidateURLs guesses website URLs from an entity name: lowercased, reduced
// to ASCII letters and digits, tried with and without the www. prefix.
func CandidateURLs(name, tld string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("https://www.%s.%s", clean, tld),
		fmt.Sprintf("https://%s.%s", clean, tld),
	}
}
