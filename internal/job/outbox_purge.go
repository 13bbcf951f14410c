package job

import (
	"context"
	"time"

	"validationlake/internal/config"
	"validationlake/internal/infrastructure/logger"
	"validationlake/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OutboxPurgeJob deletes delivered outbox rows once they are older than the
// retention window. FAILED rows are kept for inspection.
type OutboxPurgeJob struct {
	outboxRepo *repository.OutboxRepository
	stopCh     chan struct{}
	interval   time.Duration
	retention  time.Duration
	now        func() time.Time
	log        logrus.FieldLogger
}

func NewOutboxPurgeJob(db *gorm.DB, cfg config.OutboxConfig, log logrus.FieldLogger) *OutboxPurgeJob {
	j := &OutboxPurgeJob{
		outboxRepo: repository.NewOutboxRepository(db),
		stopCh:     make(chan struct{}),
		interval:   cfg.PurgeInterval,
		retention:  cfg.Retention,
		now:        time.Now,
		log:        logger.Component(log, "outbox_purge"),
	}
	if j.interval <= 0 {
		j.interval = time.Hour
	}
	if j.retention <= 0 {
		j.retention = 7 * 24 * time.Hour
	}
	return j
}

func (j *OutboxPurgeJob) Start(ctx context.Context) {
	j.log.WithField("retention", j.retention.String()).Info("started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info("context done, exiting")
			return
		case <-j.stopCh:
			j.log.Info("stopped")
			return
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil {
				j.log.WithError(err).Warn("purge failed")
			}
		}
	}
}

func (j *OutboxPurgeJob) Stop() {
	close(j.stopCh)
}

func (j *OutboxPurgeJob) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.retention)
	n, err := j.outboxRepo.DeleteSentBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		j.log.WithFields(logrus.Fields{"deleted": n, "cutoff": cutoff.Format(time.RFC3339)}).Info("purged sent messages")
	}
	return n, nil
}
