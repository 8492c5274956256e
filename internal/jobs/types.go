package jobs

import (
	"context"
	"errors"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeArchiveReport copies a generated financial report to object storage.
	JobTypeArchiveReport JobType = "archive_report"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// ErrJobNotFound is returned by a JobStore for unknown job ids.
var ErrJobNotFound = errors.New("job not found")

// ArchiveReportJob writes one serialized report to a bucket.
type ArchiveReportJob struct {
	JobID string `json:"job_id"`

	FarmID     int64  `json:"farm_id"`
	Bucket     string `json:"bucket"`
	ObjectName string `json:"object_name"`

	// Payload is the report JSON. It is not exposed through the jobs API.
	Payload []byte `json:"-"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetStatus returns the current job status.
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ArchiveReportJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ArchiveReportJob) GetType() JobType {
	return JobTypeArchiveReport
}

// GetStatus implements the Job interface.
func (j *ArchiveReportJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher enqueues jobs.
type Publisher interface {
	// PublishArchiveReport publishes a report archive job.
	PublishArchiveReport(ctx context.Context, job *ArchiveReportJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer runs handlers for queued jobs.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job.
// It should return an error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore records job state so it can be inspected through the API.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ArchiveReportJob) error

	// GetJob retrieves a job by ID. Unknown ids yield an error wrapping ErrJobNotFound.
	GetJob(ctx context.Context, jobID string) (*ArchiveReportJob, error)

	// ListJobs retrieves jobs, newest first, with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ArchiveReportJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// FarmID filters jobs by farm. Zero means any farm.
	FarmID int64

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
