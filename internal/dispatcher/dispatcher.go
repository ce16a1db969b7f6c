// Package dispatcher manages worker fan-out over the scan queue.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/worker"
)

// Dispatcher fans out queued scans to a pool of workers.
type Dispatcher struct {
	queue   scanner.Queue
	workers []*worker.Worker
}

// New creates a Dispatcher.
func New(queue scanner.Queue, workers []*worker.Worker) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		workers: workers,
	}
}

// Run starts all workers and blocks until every worker has returned, which
// happens when the context finishes or the queue is closed and drained.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	wg.Wait()
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, req scanner.ScanRequest) error {
	if err := d.queue.Enqueue(ctx, req); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}

// Close stops accepting new scans; workers drain what is buffered.
func (d *Dispatcher) Close() {
	d.queue.Close()
}
