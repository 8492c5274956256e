package archive

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/jobs"
)

const contentTypeJSON = "application/json"

// NewJobHandler returns the queue handler that uploads archive jobs to storage.
func NewJobHandler(store Storage, log zerolog.Logger) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		archiveJob, ok := job.(*jobs.ArchiveReportJob)
		if !ok {
			return fmt.Errorf("unsupported job type %q", job.GetType())
		}

		if archiveJob.Bucket == "" {
			return fmt.Errorf("job %s has no bucket", archiveJob.JobID)
		}

		if err := store.Upload(ctx, archiveJob.Bucket, archiveJob.ObjectName, archiveJob.Payload, contentTypeJSON); err != nil {
			return err
		}

		log.Info().
			Str("job_id", archiveJob.JobID).
			Int64("farm_id", archiveJob.FarmID).
			Str("uri", URI(archiveJob.Bucket, archiveJob.ObjectName)).
			Int("bytes", len(archiveJob.Payload)).
			Msg("Report archived")

		return nil
	}
}
