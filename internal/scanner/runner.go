package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/metrics"
)

const tracerName = "github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"

// Progress milestones of a scan session.
const (
	progressListing   = 10
	progressListed    = 30
	progressAnalysis  = 60
	progressCompleted = 100
)

// completionTimeout bounds the completion hooks of one session.
const completionTimeout = 2 * time.Minute

// CompletionHook runs after a session completes successfully, typically to
// export its results. Hooks get a context that outlives the scan deadline but
// is bounded on its own. Hook errors are logged and do not fail the session.
type CompletionHook interface {
	OnComplete(ctx context.Context, session Session) error
}

// Runner executes scan sessions and records their progress in a store. The
// runner is the only writer of a session while it runs.
type Runner struct {
	service *Service
	store   SessionStore
	hooks   []CompletionHook
	logger  *zap.Logger
}

// NewRunner constructs a Runner.
func NewRunner(service *Service, store SessionStore, logger *zap.Logger, hooks ...CompletionHook) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		service: service,
		store:   store,
		hooks:   hooks,
		logger:  logger,
	}
}

// Run executes the scan for one session through to a terminal status. The
// returned error is the cause of an error status, if any.
func (r *Runner) Run(ctx context.Context, req ScanRequest) (err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "scan")
	span.SetAttributes(
		attribute.String("scan.id", req.SessionID),
		attribute.String("scan.municipality_code", req.Query.MunicipalityCode),
		attribute.Int("scan.max_companies", req.Query.MaxTargets),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	logger := r.logger.With(zap.String("scan_id", req.SessionID))
	metrics.IncActiveScans()
	defer metrics.DecActiveScans()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("scan panicked: %v", rec)
			logger.Error("scan panicked", zap.Any("panic", rec))
			r.finish(ctx, logger, req.SessionID, SessionError, fmt.Sprintf("Error: %v", rec), nil)
		}
	}()

	r.progress(ctx, logger, req.SessionID, progressListing, "Fetching companies from Brønnøysundregistrene...")
	targets, err := r.service.ListTargets(ctx, req.Query)
	if err != nil {
		logger.Error("registry listing failed", zap.Error(err))
		r.finish(ctx, logger, req.SessionID, SessionError, fmt.Sprintf("Error: %v", err), nil)
		return err
	}

	r.progress(ctx, logger, req.SessionID, progressListed,
		fmt.Sprintf("Found %d companies. Analyzing SEO...", len(targets)))
	results := r.service.AnalyzeAll(ctx, targets, req.Query.Sequential, func(done, total int, last Target) {
		r.progress(ctx, logger, req.SessionID,
			progressListed+progressAnalysis*done/total,
			fmt.Sprintf("Analyzed %d/%d: %s...", done, total, truncate(last.Name, 30)))
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		r.finish(ctx, logger, req.SessionID, SessionError, "Scan canceled", nil)
		return fmt.Errorf("scan canceled: %w", ctxErr)
	}
	SortResults(results)

	r.finish(ctx, logger, req.SessionID, SessionComplete, "Scan complete!", results)
	span.SetAttributes(attribute.Int("scan.results", len(results)))
	logger.Info("scan complete", zap.Int("results", len(results)))
	r.runHooks(ctx, logger, req.SessionID)
	return nil
}

func (r *Runner) runHooks(ctx context.Context, logger *zap.Logger, id string) {
	if len(r.hooks) == 0 {
		return
	}
	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), completionTimeout)
	defer cancel()

	session, err := r.store.GetSession(hookCtx, id)
	if err != nil {
		logger.Warn("load finished session failed", zap.Error(err))
		return
	}
	for _, hook := range r.hooks {
		if hookErr := hook.OnComplete(hookCtx, session); hookErr != nil {
			logger.Error("completion hook failed", zap.Error(hookErr))
		}
	}
}

func (r *Runner) progress(ctx context.Context, logger *zap.Logger, id string, progress int, message string) {
	if err := r.store.UpdateProgress(ctx, id, progress, message); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("progress update failed", zap.Int("progress", progress), zap.Error(err))
	}
}

// finish records the terminal status even when ctx is already done.
func (r *Runner) finish(
	ctx context.Context,
	logger *zap.Logger,
	id string,
	status SessionStatus,
	message string,
	results []AnalyzedTarget,
) {
	metrics.ObserveScan(string(status))
	if err := r.store.FinishSession(context.WithoutCancel(ctx), id, status, message, results); err != nil {
		logger.Error("finish session failed", zap.String("status", string(status)), zap.Error(err))
	}
}
