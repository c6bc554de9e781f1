package reliability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// BackupJob runs the nightly backup through the scheduler.
type BackupJob struct {
	service *BackupService
	log     zerolog.Logger
}

// NewBackupJob creates the scheduled backup job.
func NewBackupJob(service *BackupService, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service: service,
		log:     log.With().Str("job", "backup").Logger(),
	}
}

// Run creates and uploads a backup archive.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	return j.service.CreateAndUpload(ctx)
}

// Name returns the job name for scheduling and logging.
func (j *BackupJob) Name() string {
	return "backup"
}
