package domain

import (
	"context"

	"warden/internal/core/message"
)

// SubmitPort is the single entry point transports call into the core
type SubmitPort interface {
	// Submit enqueues a message. It blocks when the queue is full
	// (backpressure) and never drops; the error is the context's when
	// the caller gives up waiting
	Submit(ctx context.Context, msg message.Message) error
}

// RunnerPort drives the batch-release loop
type RunnerPort interface {
	// Run consumes the queue until ctx is cancelled, flushing batches
	// by size or timeout. The remaining buffer is flushed on shutdown
	Run(ctx context.Context) error

	// Stats reports ingestion progress
	Stats() Stats
}
