package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/config"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/model"
)

// KafkaPublisher implements Publisher for Kafka. Records are keyed by lot id
// so all events of one lot land on the same partition, in order.
type KafkaPublisher struct {
	config *config.KafkaConfig
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaPublisher creates a new KafkaPublisher
func NewKafkaPublisher(cfg *config.KafkaConfig, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		config: cfg,
		logger: logger,
	}
}

func (k *KafkaPublisher) Connect(ctx context.Context) error {
	k.writer = &kafka.Writer{
		Addr:         kafka.TCP(k.config.Brokers...),
		Topic:        k.config.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    k.config.BatchSize,
		BatchTimeout: time.Duration(k.config.BatchTimeout) * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}

	pingMsg := struct {
		Type    string    `json:"type"`
		Message string    `json:"message"`
		Time    time.Time `json:"time"`
	}{
		Type:    "ping",
		Message: "Registry audit watcher startup",
		Time:    time.Now(),
	}

	pingMsgBytes, err := json.Marshal(pingMsg)
	if err != nil {
		return fmt.Errorf("failed to marshal ping message: %w", err)
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte("ping"),
		Value: pingMsgBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to kafka topic %s: %w", k.config.Topic, err)
	}

	k.logger.Info("Connected to Kafka",
		zap.Strings("brokers", k.config.Brokers),
		zap.String("topic", k.config.Topic))

	return nil
}

func (k *KafkaPublisher) Close() error {
	if k.writer != nil {
		err := k.writer.Close()
		if err != nil {
			return fmt.Errorf("failed to close Kafka connection: %w", err)
		}
	}

	k.logger.Info("Disconnected from Kafka")
	return nil
}

func (k *KafkaPublisher) PublishRecord(ctx context.Context, record *model.AuditRecord) error {
	if record == nil {
		return fmt.Errorf("cannot publish nil audit record")
	}

	msg, err := k.message(record)
	if err != nil {
		return err
	}

	err = k.writer.WriteMessages(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to publish audit record: %w", err)
	}

	k.logger.Info("Published audit record",
		zap.String("kind", record.Kind),
		zap.String("lot_id", record.LotID),
		zap.Uint64("block", record.BlockNumber))

	return nil
}

func (k *KafkaPublisher) PublishRecords(ctx context.Context, records []*model.AuditRecord) error {
	if len(records) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(records))
	for _, record := range records {
		if record == nil {
			continue
		}
		msg, err := k.message(record)
		if err != nil {
			return err
		}
		messages = append(messages, msg)
	}

	err := k.writer.WriteMessages(ctx, messages...)
	if err != nil {
		return fmt.Errorf("failed to publish batch of audit records: %w", err)
	}

	k.logger.Info("Published audit record batch",
		zap.Int("count", len(messages)))

	return nil
}

func (k *KafkaPublisher) message(record *model.AuditRecord) (kafka.Message, error) {
	payload := struct {
		Type string             `json:"type"`
		Data *model.AuditRecord `json:"data"`
		Time time.Time          `json:"time"`
	}{
		Type: record.Kind,
		Data: record,
		Time: time.Now(),
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal audit record: %w", err)
	}

	return kafka.Message{
		Key:   []byte(record.LotID),
		Value: value,
	}, nil
}
