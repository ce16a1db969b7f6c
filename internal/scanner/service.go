package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/metrics"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/seo"
)

// Config controls Service behavior.
type Config struct {
	// Concurrency bounds the number of targets analyzed at once.
	Concurrency int
	// SequentialDelay is the pause between targets in sequential mode.
	SequentialDelay time.Duration
	// FetchTimeout is the page fetch timeout; it is quoted in timeout issues.
	FetchTimeout time.Duration
	// IndustryCode is used when a query does not name one.
	IndustryCode string
}

// ProgressFunc receives analysis progress. It may be called from several
// goroutines at once.
type ProgressFunc func(done, total int, last Target)

// Service analyzes targets. It holds no per-scan state and is safe for
// concurrent use by several scans.
type Service struct {
	registry   Registry
	discoverer Discoverer
	fetcher    Fetcher
	evaluator  Evaluator
	ranker     *seo.Ranker
	cfg        Config
	logger     *zap.Logger
}

// NewService constructs a Service.
func NewService(
	registry Registry,
	discoverer Discoverer,
	fetcher Fetcher,
	evaluator Evaluator,
	ranker *seo.Ranker,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.IndustryCode == "" {
		cfg.IndustryCode = DefaultIndustryCode
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry:   registry,
		discoverer: discoverer,
		fetcher:    fetcher,
		evaluator:  evaluator,
		ranker:     ranker,
		cfg:        cfg,
		logger:     logger,
	}
}

// Municipalities proxies to the registry.
func (s *Service) Municipalities() []Municipality {
	return s.registry.Municipalities()
}

// ListTargets queries the registry and truncates to q.MaxTargets. A partial
// listing is returned without error; only a listing that produced nothing is
// a failure.
func (s *Service) ListTargets(ctx context.Context, q Query) ([]Target, error) {
	if q.IndustryCode == "" {
		q.IndustryCode = s.cfg.IndustryCode
	}
	targets, err := s.registry.ListTargets(ctx, q)
	if err != nil {
		if len(targets) == 0 {
			return nil, fmt.Errorf("list targets: %w", err)
		}
		s.logger.Warn("registry listing incomplete, continuing with partial results",
			zap.Int("targets", len(targets)), zap.Error(err))
	}
	if q.MaxTargets > 0 && len(targets) > q.MaxTargets {
		targets = targets[:q.MaxTargets]
	}
	return targets, nil
}

// Scan lists, analyzes and ranks the targets selected by q.
func (s *Service) Scan(ctx context.Context, q Query, progress ProgressFunc) ([]AnalyzedTarget, error) {
	targets, err := s.ListTargets(ctx, q)
	if err != nil {
		return nil, err
	}
	results := s.AnalyzeAll(ctx, targets, q.Sequential, progress)
	SortResults(results)
	return results, nil
}

// SortResults orders results by descending opportunity, keeping ties in
// input order.
func SortResults(results []AnalyzedTarget) {
	seo.SortByOpportunity(results, func(a AnalyzedTarget) int { return a.OpportunityScore })
}

// AnalyzeAll analyzes every target and returns results in input order. In
// sequential mode targets are analyzed one by one with a pause between them;
// otherwise up to Concurrency run at once. A failing target never aborts the
// batch; targets not reached before ctx ends are recorded as failures.
func (s *Service) AnalyzeAll(ctx context.Context, targets []Target, sequential bool, progress ProgressFunc) []AnalyzedTarget {
	results := make([]AnalyzedTarget, len(targets))
	total := len(targets)
	var done atomic.Int64
	report := func(t Target) {
		n := int(done.Add(1))
		if progress != nil {
			progress(n, total, t)
		}
	}

	if sequential {
		limiter := rate.NewLimiter(rate.Every(s.cfg.SequentialDelay), 1)
		if s.cfg.SequentialDelay <= 0 {
			limiter = rate.NewLimiter(rate.Inf, 1)
		}
		for i, t := range targets {
			if err := limiter.Wait(ctx); err != nil {
				results[i] = s.failed(t, err)
			} else {
				results[i] = s.AnalyzeTarget(ctx, t)
			}
			report(t)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, t := range targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = s.failed(t, err)
			} else {
				results[i] = s.AnalyzeTarget(ctx, t)
			}
			report(t)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// AnalyzeTarget discovers, fetches, scores and ranks one target. It never
// panics and never returns an error: failures become issues on the result.
func (s *Service) AnalyzeTarget(ctx context.Context, t Target) (out AnalyzedTarget) {
	logger := s.logger.With(zap.String("org_number", t.OrgNumber), zap.String("name", t.Name))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("target analysis panicked", zap.Any("panic", r))
			out = s.failed(t, fmt.Errorf("%v", r))
		}
	}()

	website, err := s.discoverer.Discover(ctx, t)
	if err != nil {
		logger.Warn("website discovery failed", zap.Error(err))
		website = ""
	}
	t.Website = website

	res := s.AnalyzeURL(ctx, website)
	out = NewAnalyzedTarget(t, res, s.ranker.Opportunity(res.Score, t.Employees))
	logger.Debug("target analyzed",
		zap.String("site", metrics.SanitizeSite(website)),
		zap.Int("seo_score", out.SEOScore),
		zap.Int("opportunity_score", out.OpportunityScore),
		zap.Bool("accessible", out.SEOAccessible),
	)
	return out
}

// AnalyzeURL fetches and scores a single URL. An empty URL yields the
// "No website found" result.
func (s *Service) AnalyzeURL(ctx context.Context, url string) seo.Result {
	if url == "" {
		metrics.ObserveTarget(string(FailureDiscovery), false, 0)
		return seo.Inaccessible("", seo.IssueNoWebsite)
	}
	start := time.Now()
	doc, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		kind := ClassifyFetchError(err)
		metrics.ObserveFetch(string(kind), time.Since(start), 0)
		metrics.ObserveTarget(string(kind), false, 0)
		s.logger.Info("website not accessible",
			zap.String("url", url), zap.String("failure", string(kind)), zap.Error(err))
		return seo.Inaccessible(url, FailureIssue(kind, err, s.cfg.FetchTimeout))
	}
	metrics.ObserveFetch("ok", time.Since(start), len(doc.Body))
	res := s.evaluator.Evaluate(doc)
	res.URL = url
	metrics.ObserveTarget("scored", true, res.Score)
	return res
}

func (s *Service) failed(t Target, err error) AnalyzedTarget {
	kind := FailureOther
	if errors.Is(err, context.DeadlineExceeded) {
		kind = FailureTimeout
	}
	res := seo.Inaccessible(t.Website, FailureIssue(kind, err, s.cfg.FetchTimeout))
	return NewAnalyzedTarget(t, res, s.ranker.Opportunity(0, t.Employees))
}
