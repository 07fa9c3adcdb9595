package kafka

import (
	"Pulseboard/internal/api/config"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// SyncTaskProducer 同步任务投递口，按公司 ID 分区保证同租户任务有序
type SyncTaskProducer interface {
	EnqueueSyncTask(ctx context.Context, task *SyncTask) error
	Close() error
}

type syncTaskProducerImpl struct {
	producer sarama.SyncProducer
	topic    string
}

func NewSyncTaskProducer(cfg *config.Config) (SyncTaskProducer, error) {
	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, newSaramaConfig(cfg.Kafka))
	if err != nil {
		return nil, err
	}
	return &syncTaskProducerImpl{
		producer: producer,
		topic:    cfg.KafkaSyncConsumer.Topic,
	}, nil
}

func (s *syncTaskProducerImpl) EnqueueSyncTask(ctx context.Context, task *SyncTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	partition, offset, err := s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(task.CompanyID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "sync task enqueued",
		"task_id", task.TaskID, "company_id", task.CompanyID, "reason", task.Reason,
		"partition", partition, "offset", offset)
	return nil
}

func (s *syncTaskProducerImpl) Close() error {
	return s.producer.Close()
}
