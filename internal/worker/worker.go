// Package worker runs queued scan requests.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
)

// ScanRunner executes one scan session.
type ScanRunner interface {
	Run(ctx context.Context, req scanner.ScanRequest) error
}

// Config controls Worker behavior.
type Config struct {
	// ScanTimeout bounds a single session; zero means no limit.
	ScanTimeout time.Duration
}

// Worker consumes scan requests and hands them to the runner.
type Worker struct {
	id     int
	queue  scanner.Queue
	runner ScanRunner
	store  scanner.SessionStore
	cfg    Config
	logger *zap.Logger
}

// New constructs a Worker. The store is used to fail a session when the
// runner panics before recording a terminal status.
func New(
	id int,
	queue scanner.Queue,
	runner ScanRunner,
	store scanner.SessionStore,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		id:     id,
		queue:  queue,
		runner: runner,
		store:  store,
		cfg:    cfg,
		logger: logger.With(zap.Int("worker", id)),
	}
}

// Run blocks, consuming requests until the context finishes or the queue is
// closed and drained.
func (w *Worker) Run(ctx context.Context) {
	for {
		req, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, scanner.ErrQueueClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued scan", zap.String("scan_id", req.SessionID))
		w.process(ctx, req)
	}
}

func (w *Worker) process(ctx context.Context, req scanner.ScanRequest) {
	scanCtx := ctx
	if w.cfg.ScanTimeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, w.cfg.ScanTimeout)
		defer cancel()
	}
	defer func() {
		if rec := recover(); rec != nil {
			w.logger.Error("scan runner panicked", zap.String("scan_id", req.SessionID), zap.Any("panic", rec))
			w.fail(ctx, req.SessionID, fmt.Sprintf("Error: %v", rec))
		}
	}()
	if w.runner == nil {
		w.fail(ctx, req.SessionID, "Error: no scan runner configured")
		return
	}
	started := time.Now()
	if err := w.runner.Run(scanCtx, req); err != nil {
		w.logger.Warn("scan failed", zap.String("scan_id", req.SessionID), zap.Error(err))
		return
	}
	w.logger.Info("scan finished",
		zap.String("scan_id", req.SessionID),
		zap.Duration("elapsed", time.Since(started)),
	)
}

func (w *Worker) fail(ctx context.Context, id, message string) {
	if w.store == nil {
		return
	}
	err := w.store.FinishSession(context.WithoutCancel(ctx), id, scanner.SessionError, message, nil)
	if err != nil && !errors.Is(err, scanner.ErrSessionFinished) {
		w.logger.Error("fail session update", zap.String("scan_id", id), zap.Error(err))
	}
}
