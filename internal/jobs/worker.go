package jobs

import (
	"context"
	"log"
	"time"
)

// JobProcessor drains a batch of queued work. Implementations must be
// safe to call repeatedly; an error aborts the current pass only.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker polls a JobProcessor on a fixed interval.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start runs the polling loop until the context is cancelled or Stop is
// called. Jobs queued before startup are picked up by an immediate
// first pass rather than waiting out the initial interval.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("job worker started, polling every %v", w.pollInterval)

	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Printf("job pass failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("job worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("job worker stopped: stop signal received")
			return
		case <-ticker.C:
			if err := w.processor.ProcessJobs(ctx); err != nil {
				log.Printf("job pass failed: %v", err)
			}
		}
	}
}

// Stop signals the loop and waits for the current pass to finish.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("job worker shutdown complete")
}
