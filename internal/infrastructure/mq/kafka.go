package mq

import (
	"context"
	"fmt"

	"validationlake/internal/config"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// Publisher delivers one keyed message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

type Producer struct {
	producer sarama.SyncProducer
	log      logrus.FieldLogger
}

// NewProducer dials the brokers with acks from all replicas.
func NewProducer(cfg config.KafkaConfig, log logrus.FieldLogger) (*Producer, error) {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	log.WithField("brokers", cfg.Brokers).Info("kafka producer ready")
	return NewProducerFrom(producer, log), nil
}

// NewProducerFrom wraps an existing sarama producer, e.g. a mock in tests.
func NewProducerFrom(producer sarama.SyncProducer, log logrus.FieldLogger) *Producer {
	return &Producer{producer: producer, log: log}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send to %s: %w", topic, err)
	}
	p.log.WithFields(logrus.Fields{
		"topic":     topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("message published")
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
