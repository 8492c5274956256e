package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/coffeetech/transactions/internal/jobs"
)

// Store is an in-memory implementation of JobStore.
// It is safe for concurrent use. Data is lost on restart.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.ArchiveReportJob
}

// NewStore creates a new in-memory job store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*jobs.ArchiveReportJob),
	}
}

// SaveJob saves or updates a copy of job. Finished jobs are stored without their payload.
func (s *Store) SaveJob(ctx context.Context, job *jobs.ArchiveReportJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobCopy := *job
	if finished(jobCopy.Status) {
		jobCopy.Payload = nil
	}
	s.jobs[job.JobID] = &jobCopy

	return nil
}

// GetJob returns a copy of the job with the given ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ArchiveReportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
	}

	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs returns copies of the matching jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ArchiveReportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*jobs.ArchiveReportJob{}
	for _, job := range s.jobs {
		if filter.FarmID != 0 && job.FarmID != filter.FarmID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}

		jobCopy := *job
		result = append(result, &jobCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].JobID < result[j].JobID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.ArchiveReportJob{}, nil
		}
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// UpdateJobStatus sets the status and, when given, the error message of a job.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
	}

	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	if finished(status) {
		job.Payload = nil
	}

	return nil
}

func finished(status jobs.JobStatus) bool {
	return status == jobs.JobStatusCompleted || status == jobs.JobStatusFailed
}

var _ jobs.JobStore = (*Store)(nil)
