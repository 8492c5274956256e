package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/jobs"
)

const (
	defaultWorkers    = 5
	defaultMaxRetries = 3
)

// Queue is an in-memory implementation of job publisher and consumer.
// Jobs are distributed over a buffered channel; it is safe for concurrent use
// and suited to a single API instance.
type Queue struct {
	jobChan   chan *jobs.ArchiveReportJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	closed    bool
	workers   int
	log       zerolog.Logger

	// backoffUnit is multiplied by the retry count before a failed job is re-enqueued.
	backoffUnit time.Duration
}

// NewQueue creates a new in-memory job queue.
// bufferSize determines how many jobs can be queued before PublishArchiveReport blocks.
// workers <= 0 selects the default worker count.
func NewQueue(bufferSize, workers int, store jobs.JobStore, log zerolog.Logger) *Queue {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Queue{
		jobChan:     make(chan *jobs.ArchiveReportJob, bufferSize),
		closeChan:   make(chan struct{}),
		store:       store,
		workers:     workers,
		log:         log,
		backoffUnit: time.Second,
	}
}

// PublishArchiveReport implements the Publisher interface.
func (q *Queue) PublishArchiveReport(ctx context.Context, job *jobs.ArchiveReportJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = defaultMaxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// Start implements the Consumer interface.
// The handler is called concurrently, up to the configured number of workers.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	q.log.Info().Int("workers", q.workers).Msg("Job queue started")
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}

			q.processJob(ctx, job, handler)
		}
	}
}

// processJob executes a single job with retry logic.
func (q *Queue) processJob(ctx context.Context, job *jobs.ArchiveReportJob, handler jobs.JobHandler) {
	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if err != nil {
		job.Error = err.Error()

		if job.RetryCount < job.MaxRetries {
			q.scheduleRetry(ctx, job, err)
			return
		}
		job.Status = jobs.JobStatusFailed
		q.log.Error().Err(err).Str("job_id", job.JobID).Msg("Job failed permanently")
	} else {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
	}

	// The payload is not needed once the job is finished.
	job.Payload = nil
	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}
}

// scheduleRetry records the retrying state and then re-enqueues a copy after a linear backoff.
// The state is saved before the timer is armed so it never overwrites the retried run.
func (q *Queue) scheduleRetry(ctx context.Context, job *jobs.ArchiveReportJob, cause error) {
	job.RetryCount++
	job.Status = jobs.JobStatusRetrying
	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	q.log.Warn().
		Err(cause).
		Str("job_id", job.JobID).
		Int("retry", job.RetryCount).
		Msg("Job failed, scheduling retry")

	backoff := time.Duration(job.RetryCount) * q.backoffUnit
	retry := *job
	retry.Status = jobs.JobStatusPending
	retry.StartedAt = nil
	retry.CompletedAt = nil
	time.AfterFunc(backoff, func() {
		if err := q.PublishArchiveReport(ctx, &retry); err != nil {
			q.log.Error().Err(err).Str("job_id", retry.JobID).Msg("Failed to re-enqueue job")
		}
	})
}

// Stop implements the Consumer interface.
// It stops the queue and waits for all in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
