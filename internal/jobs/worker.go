package jobs

import (
	"context"
	"log"
	"time"
)

// Processor runs one pass of background work.
type Processor interface {
	Process(ctx context.Context) error
}

// Worker runs a Processor on a fixed interval until stopped.
type Worker struct {
	name         string
	processor    Processor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

func NewWorker(name string, processor Processor, pollInterval time.Duration) *Worker {
	return &Worker{
		name:         name,
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start blocks, running the processor every poll interval.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("%s worker started, interval %v", w.name, w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("%s worker stopped: context cancelled", w.name)
			return
		case <-w.stopChan:
			log.Printf("%s worker stopped", w.name)
			return
		case <-ticker.C:
			if err := w.processor.Process(ctx); err != nil {
				log.Printf("ERROR: %s worker: %v", w.name, err)
			}
		}
	}
}

// Stop signals the loop and waits for the current pass to finish.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
}
