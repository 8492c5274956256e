package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/domain"
	"github.com/coffeetech/transactions/internal/jobs"
)

const publishTimeout = 5 * time.Second

// Scheduler turns generated reports into archive jobs.
type Scheduler struct {
	publisher jobs.Publisher
	bucket    string
	log       zerolog.Logger
	now       func() time.Time
}

// NewScheduler creates a Scheduler writing to bucket.
func NewScheduler(publisher jobs.Publisher, bucket string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		publisher: publisher,
		bucket:    bucket,
		log:       log,
		now:       time.Now,
	}
}

// ArchiveReport enqueues report for upload. The upload itself happens on a queue worker.
func (s *Scheduler) ArchiveReport(ctx context.Context, farmID int64, report *domain.FinancialReportResponse) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	job := &jobs.ArchiveReportJob{
		FarmID:     farmID,
		Bucket:     s.bucket,
		ObjectName: ObjectName(farmID, s.now()),
		Payload:    payload,
	}

	// The request may finish before the queue accepts the job.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.PublishArchiveReport(pubCtx, job); err != nil {
		return fmt.Errorf("publish archive job: %w", err)
	}

	s.log.Debug().
		Str("job_id", job.JobID).
		Int64("farm_id", farmID).
		Str("object", job.ObjectName).
		Msg("Report archive scheduled")

	return nil
}
