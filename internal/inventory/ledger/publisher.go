package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/novozhilovsergeydisk/tool-system/pkg/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, entry *models.MovementLog) error
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *models.MovementLog) error { return nil }
func (NopPublisher) Close() error                                     { return nil }

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Acks    string
	Retries int
}

// KafkaPublisher sends every recorded movement to one topic, keyed by the moved entity
// so rows about the same tool, kit or car keep their order within a partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func NewKafkaPublisher(cfg KafkaConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = cfg.Retries

	switch cfg.Acks {
	case "0":
		config.Producer.RequiredAcks = sarama.NoResponse
	case "1":
		config.Producer.RequiredAcks = sarama.WaitForLocal
	default:
		// idempotence is only accepted by sarama together with acks=all
		config.Producer.RequiredAcks = sarama.WaitForAll
		config.Producer.Idempotent = true
		config.Version = sarama.V2_1_0_0
		config.Net.MaxOpenRequests = 1
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaPublisher{producer: producer, topic: cfg.Topic, logger: logger}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, entry *models.MovementLog) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal movement: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(PartitionKey(entry)),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(entry.ActionType)},
			{Key: []byte("event-id"), Value: []byte(uuid.New().String())},
			{Key: []byte("timestamp"), Value: []byte(entry.CreatedAt.UTC().Format(time.RFC3339))},
		},
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send movement %d: %w", entry.ID, err)
	}

	p.logger.Debug("Movement published to Kafka",
		zap.String("topic", p.topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.Int("movement_id", entry.ID),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

func PartitionKey(entry *models.MovementLog) string {
	switch {
	case entry.ToolID != nil:
		return "tool-" + strconv.Itoa(*entry.ToolID)
	case entry.KitID != nil:
		return "kit-" + strconv.Itoa(*entry.KitID)
	case entry.CarID != nil:
		return "car-" + strconv.Itoa(*entry.CarID)
	case entry.NomenclatureID != nil:
		return "nomenclature-" + strconv.Itoa(*entry.NomenclatureID)
	default:
		return "movement-" + strconv.Itoa(entry.ID)
	}
}
