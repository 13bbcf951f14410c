package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"validationlake/internal/config"
	"validationlake/internal/infrastructure/logger"
	"validationlake/internal/infrastructure/mq"
	"validationlake/internal/model"
	"validationlake/internal/repository"
	"validationlake/internal/testutil"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakePublisher struct {
	mu   sync.Mutex
	err  error
	keys []string
}

func (p *fakePublisher) Publish(_ context.Context, _, key string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	return nil
}

type fakeLocker struct {
	free     bool
	unlocked int
}

func (l *fakeLocker) TryLock(context.Context) (bool, error) { return l.free, nil }

func (l *fakeLocker) Unlock(context.Context) error {
	l.unlocked++
	return nil
}

func queue(t *testing.T, db *gorm.DB, keys ...string) {
	t.Helper()
	repo := repository.NewOutboxRepository(db)
	for _, k := range keys {
		require.NoError(t, repo.Create(context.Background(), nil, &model.OutboxMessage{
			MessageKey: k,
			Topic:      "validation-record-created",
			Payload:    `{"record_id":1}`,
			Status:     model.OutboxStatusPending,
		}))
	}
}

var outboxCfg = config.OutboxConfig{Interval: 10 * time.Millisecond, BatchSize: 10, MaxRetryCount: 2}

func TestOutboxSender_DeliversPendingInOrder(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	queue(t, db, "k1", "k2", "k3")

	pub := &fakePublisher{}
	sender := NewOutboxSender(db, pub, nil, outboxCfg, logger.Discard())

	sent, err := sender.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	assert.Equal(t, []string{"k1", "k2", "k3"}, pub.keys)

	n, err := repository.NewOutboxRepository(db).CountByStatus(context.Background(), model.OutboxStatusSent)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	sent, err = sender.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestOutboxSender_ParksAfterMaxRetries(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	queue(t, db, "k1")
	ctx := context.Background()

	sender := NewOutboxSender(db, &fakePublisher{err: errors.New("broker down")}, nil, outboxCfg, logger.Discard())

	for i := 0; i < 3; i++ {
		sent, err := sender.RunOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, sent)
	}

	repo := repository.NewOutboxRepository(db)
	failed, err := repo.CountByStatus(ctx, model.OutboxStatusFailed)
	require.NoError(t, err)
	assert.EqualValues(t, 1, failed)
	pending, err := repo.CountByStatus(ctx, model.OutboxStatusPending)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestOutboxSender_SkipsTickWhenLockHeld(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	queue(t, db, "k1")
	ctx := context.Background()

	pub := &fakePublisher{}
	held := &fakeLocker{free: false}
	sent, err := NewOutboxSender(db, pub, held, outboxCfg, logger.Discard()).RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, pub.keys)
	assert.Zero(t, held.unlocked)

	free := &fakeLocker{free: true}
	sent, err = NewOutboxSender(db, pub, free, outboxCfg, logger.Discard()).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, free.unlocked)
}

func TestOutboxSender_WithSaramaProducer(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	queue(t, db, "k1", "k2")

	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndSucceed()
	sp.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)
	producer := mq.NewProducerFrom(sp, logger.Discard())

	sent, err := NewOutboxSender(db, producer, nil, outboxCfg, logger.Discard()).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.NoError(t, producer.Close())

	pending, err := repository.NewOutboxRepository(db).FetchPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "k2", pending[0].MessageKey)
	assert.Equal(t, 1, pending[0].RetryCount)
}

func TestOutboxSender_StartStops(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	queue(t, db, "k1")

	pub := &fakePublisher{}
	sender := NewOutboxSender(db, pub, nil, outboxCfg, logger.Discard())

	done := make(chan struct{})
	go func() {
		sender.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.keys) == 1
	}, 2*time.Second, 10*time.Millisecond)

	sender.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sender did not stop")
	}
}

func TestOutboxPurgeJob_DeletesOnlyOldSentRows(t *testing.T) {
	t.Parallel()
	db := testutil.NewDB(t)
	ctx := context.Background()
	queue(t, db, "old-sent", "new-sent", "old-pending")

	repo := repository.NewOutboxRepository(db)
	msgs, err := repo.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.NoError(t, repo.MarkSent(ctx, msgs[0].ID))
	require.NoError(t, repo.MarkSent(ctx, msgs[1].ID))

	old := time.Now().UTC().Add(-30 * 24 * time.Hour)
	require.NoError(t, db.Model(&model.OutboxMessage{}).
		Where("id IN ?", []int64{msgs[0].ID, msgs[2].ID}).
		UpdateColumn("updated_at", old).Error)

	job := NewOutboxPurgeJob(db, config.OutboxConfig{Retention: 7 * 24 * time.Hour}, logger.Discard())
	n, err := job.RunOnce(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var left []model.OutboxMessage
	require.NoError(t, db.Order("id").Find(&left).Error)
	require.Len(t, left, 2)
	assert.Equal(t, "new-sent", left[0].MessageKey)
	assert.Equal(t, "old-pending", left[1].MessageKey)
}
