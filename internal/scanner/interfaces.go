package scanner

import (
	"context"
	"io"
	"time"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/seo"
)

// Registry lists business entities.
type Registry interface {
	// ListTargets returns matching entities in registry order. On a failure
	// after some pages were read it returns the partial list together with
	// an *UpstreamAPIError.
	ListTargets(ctx context.Context, q Query) ([]Target, error)
	Municipalities() []Municipality
}

// Discoverer resolves the website of a target. It returns "" with a nil
// error when no website could be found.
type Discoverer interface {
	Discover(ctx context.Context, t Target) (string, error)
}

// Fetcher retrieves a single page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (seo.Document, error)
}

// Evaluator scores a fetched page.
type Evaluator interface {
	Evaluate(doc seo.Document) seo.Result
}

// SessionStore persists scan sessions. Implementations must be safe for
// concurrent use, hand out copies, keep progress monotonic, and reject
// changes to terminal sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, s Session) error
	UpdateProgress(ctx context.Context, id string, progress int, message string) error
	FinishSession(ctx context.Context, id string, status SessionStatus, message string, results []AnalyzedTarget) error
	GetSession(ctx context.Context, id string) (Session, error)
}

// Queue buffers scan requests for the runners.
type Queue interface {
	Enqueue(ctx context.Context, req ScanRequest) error
	Dequeue(ctx context.Context) (ScanRequest, error)
	Close()
}

// BlobStore writes export files.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// ResultRecorder persists the ranked rows of a finished session.
type ResultRecorder interface {
	SaveResults(ctx context.Context, sessionID string, results []AnalyzedTarget) error
}

// Publisher emits completion notices.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher fingerprints export payloads.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator creates session identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
