package export

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
)

// PipelineConfig controls where finished sessions are exported.
type PipelineConfig struct {
	// Prefix is prepended to every object path.
	Prefix string
	// Topic receives the completion notice; empty disables publishing.
	Topic string
}

// Notice is the completion message published for a finished session.
type Notice struct {
	ScanID           string    `json:"scan_id"`
	Status           string    `json:"status"`
	MunicipalityCode string    `json:"municipality_code,omitempty"`
	Results          int       `json:"results"`
	Accessible       int       `json:"accessible"`
	AverageSEOScore  float64   `json:"average_seo_score"`
	Files            []File    `json:"files"`
	CompletedAt      time.Time `json:"completed_at"`
}

// Pipeline exports completed sessions: files go to the blob store, rows to the
// recorder, and a notice to the publisher. Each stage is optional.
type Pipeline struct {
	exporter  *Exporter
	recorder  scanner.ResultRecorder
	publisher scanner.Publisher
	clock     scanner.Clock
	cfg       PipelineConfig
	logger    *zap.Logger
}

// NewPipeline constructs a Pipeline.
func NewPipeline(
	exporter *Exporter,
	recorder scanner.ResultRecorder,
	publisher scanner.Publisher,
	clock scanner.Clock,
	cfg PipelineConfig,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		exporter:  exporter,
		recorder:  recorder,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// OnComplete implements scanner.CompletionHook.
func (p *Pipeline) OnComplete(ctx context.Context, session scanner.Session) error {
	logger := p.logger.With(zap.String("scan_id", session.ID))
	var errs []error

	var files []File
	if p.exporter != nil {
		base := path.Join(p.cfg.Prefix, session.ID, DefaultBaseName(session.Query.MunicipalityCode))
		written, err := p.exporter.Export(ctx, base, session.Results)
		files = written
		if err != nil {
			errs = append(errs, fmt.Errorf("export files: %w", err))
		}
		for _, f := range written {
			logger.Info("export written", zap.String("uri", f.URI), zap.Int("bytes", f.Bytes))
		}
	}

	if p.recorder != nil {
		if err := p.recorder.SaveResults(ctx, session.ID, session.Results); err != nil {
			errs = append(errs, fmt.Errorf("record results: %w", err))
		} else {
			logger.Info("results recorded", zap.Int("rows", len(session.Results)))
		}
	}

	if p.publisher != nil && p.cfg.Topic != "" {
		stats := Summarize(session.Results)
		notice := Notice{
			ScanID:           session.ID,
			Status:           string(session.Status),
			MunicipalityCode: session.Query.MunicipalityCode,
			Results:          stats.Analyzed,
			Accessible:       stats.Accessible,
			AverageSEOScore:  stats.AverageSEOScore,
			Files:            files,
			CompletedAt:      p.now(),
		}
		if notice.Files == nil {
			notice.Files = []File{}
		}
		id, err := p.publisher.Publish(ctx, p.cfg.Topic, notice)
		if err != nil {
			errs = append(errs, fmt.Errorf("publish notice: %w", err))
		} else {
			logger.Info("completion notice published", zap.String("message_id", id), zap.String("topic", p.cfg.Topic))
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) now() time.Time {
	if p.clock == nil {
		return time.Now().UTC()
	}
	return p.clock.Now()
}
