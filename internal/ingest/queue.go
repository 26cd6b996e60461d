// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/buivan/tosho/internal/platform/apperr"
)

// # Job Queue

// Queue feeds ingestion jobs to a single worker.
//
// One worker keeps codec and disk pressure bounded no matter how many
// uploads arrive together; jobs simply wait their turn in the buffer. A
// full buffer rejects the upload instead of queueing without bound.
type Queue struct {
	jobs     chan Job
	pipeline *Pipeline
	logger   *slog.Logger

	stopOnce sync.Once
	done     chan struct{}
}

// NewQueue builds a queue with the given buffer depth.
func NewQueue(pipeline *Pipeline, depth int, logger *slog.Logger) *Queue {
	return &Queue{
		jobs:     make(chan Job, depth),
		pipeline: pipeline,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the worker. It returns immediately.
//
// Jobs run detached from any request context: the uploader was answered
// long ago, so each job gets a fresh background context and its failure is
// logged, never surfaced.
func (queue *Queue) Start() {
	go func() {
		defer close(queue.done)

		for job := range queue.jobs {
			if _, err := queue.pipeline.Run(context.Background(), job); err != nil {
				queue.logger.Error("ingest_job_failed",
					slog.String("file", job.OriginalName),
					slog.String("temp_path", job.TempPath),
					slog.String("error", err.Error()),
				)
			}
		}
	}()
}

// Stop closes intake and waits for the worker to drain queued jobs.
func (queue *Queue) Stop() {
	queue.stopOnce.Do(func() { close(queue.jobs) })
	<-queue.done
}

/*
Enqueue hands a job to the worker.

Parameters:
  - job: Job

Returns:
  - error: apperr.ServiceUnavailable when the buffer is full
*/
func (queue *Queue) Enqueue(job Job) error {
	select {
	case queue.jobs <- job:
		return nil
	default:
		return apperr.ServiceUnavailable("Ingestion queue is full, retry later")
	}
}
