package job

import (
	"context"
	"time"

	"validationlake/internal/config"
	"validationlake/internal/infrastructure/logger"
	"validationlake/internal/infrastructure/mq"
	"validationlake/internal/model"
	"validationlake/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Locker guards a tick so only one instance sends at a time.
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	publisher  mq.Publisher
	locker     Locker
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
	maxRetry   int
	log        logrus.FieldLogger
}

// NewOutboxSender ships pending outbox rows through publisher. locker may be
// nil when a single instance runs.
func NewOutboxSender(db *gorm.DB, publisher mq.Publisher, locker Locker, cfg config.OutboxConfig, log logrus.FieldLogger) *OutboxSender {
	s := &OutboxSender{
		outboxRepo: repository.NewOutboxRepository(db),
		publisher:  publisher,
		locker:     locker,
		stopCh:     make(chan struct{}),
		interval:   cfg.Interval,
		batchSize:  cfg.BatchSize,
		maxRetry:   cfg.MaxRetryCount,
		log:        logger.Component(log, "outbox_sender"),
	}
	if s.interval <= 0 {
		s.interval = time.Second
	}
	if s.batchSize <= 0 {
		s.batchSize = 100
	}
	if s.maxRetry <= 0 {
		s.maxRetry = 5
	}
	return s
}

func (s *OutboxSender) Start(ctx context.Context) {
	s.log.WithField("interval", s.interval.String()).Info("started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("context done, exiting")
			return
		case <-s.stopCh:
			s.log.Info("stopped")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.log.WithError(err).Warn("tick failed")
			}
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

// RunOnce sends one batch and reports how many messages were delivered.
func (s *OutboxSender) RunOnce(ctx context.Context) (int, error) {
	if s.locker != nil {
		ok, err := s.locker.TryLock(ctx)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, nil
		}
		defer func() {
			if err := s.locker.Unlock(ctx); err != nil {
				s.log.WithError(err).Warn("release lock failed")
			}
		}()
	}

	messages, err := s.outboxRepo.FetchPending(ctx, s.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, msg := range messages {
		if s.send(ctx, msg) {
			sent++
		}
	}
	return sent, nil
}

func (s *OutboxSender) send(ctx context.Context, msg *model.OutboxMessage) bool {
	entry := s.log.WithFields(logrus.Fields{"id": msg.ID, "topic": msg.Topic, "key": msg.MessageKey})

	err := s.publisher.Publish(ctx, msg.Topic, msg.MessageKey, []byte(msg.Payload))
	if err == nil {
		if err := s.outboxRepo.MarkSent(ctx, msg.ID); err != nil {
			entry.WithError(err).Error("mark sent failed")
			return false
		}
		entry.Debug("message sent")
		return true
	}

	entry.WithError(err).Warn("publish failed")
	parked, err := s.outboxRepo.RecordFailure(ctx, msg, s.maxRetry)
	if err != nil {
		entry.WithError(err).Error("record failure failed")
		return false
	}
	if parked {
		entry.WithField("retries", msg.RetryCount+1).Error("retries exhausted, message parked as FAILED")
	}
	return false
}
