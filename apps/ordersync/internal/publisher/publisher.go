package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"

	"ordersync/apps/ordersync/internal/events"
	"ordersync/apps/ordersync/internal/metrics"
	"ordersync/apps/ordersync/internal/model"
	"ordersync/apps/ordersync/internal/repository"
)

// Publisher relays accepted order transitions from the outbox table to Kafka
// with at-least-once semantics.
type Publisher struct {
	logger        *zap.Logger
	kafkaProducer *kafka.Producer
	kafkaTopic    string
	repository    *repository.OutboxRepository
	metrics       *metrics.Registry
	mu            sync.Mutex // Protects concurrent access to publishing operations
}

func NewPublisher(kafkaBroker, kafkaTopic string, logger *zap.Logger, outbox *repository.OutboxRepository, registry *metrics.Registry) (*Publisher, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": kafkaBroker,
		"acks":              "all",
		"retries":           3,
		"retry.backoff.ms":  100,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &Publisher{
		logger:        logger,
		kafkaProducer: producer,
		kafkaTopic:    kafkaTopic,
		repository:    outbox,
		metrics:       registry,
	}, nil
}

// StartPublishing drains the outbox on a fixed interval until the context is
// cancelled.
func (p *Publisher) StartPublishing(ctx context.Context) {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.publishUnsentEvents(ctx); err != nil {
				p.logger.Error("Error publishing events to Kafka", zap.Error(err))
			}
		}
	}
}

func (p *Publisher) publishUnsentEvents(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	outboxEvents, err := p.repository.GetUnsentForProcessing(ctx, 100)
	if err != nil {
		return err
	}

	successCount := 0
	for _, event := range outboxEvents {
		if err := p.publishEventToKafka(event); err != nil {
			p.logger.Error("Failed to publish event to Kafka",
				zap.String("identifier", event.Identifier),
				zap.String("event_type", event.EventType),
				zap.Error(err))
			p.metrics.OutboxFailed.Inc()
			// Returns status to 'unsent' for retry
			if markErr := p.repository.MarkFailed(ctx, event); markErr != nil {
				p.logger.Error("Failed to mark event as failed",
					zap.String("identifier", event.Identifier),
					zap.String("event_type", event.EventType),
					zap.Error(markErr))
			}
			continue
		}

		if err := p.repository.MarkSent(ctx, event); err != nil {
			p.logger.Error("Failed to mark event as sent",
				zap.String("identifier", event.Identifier),
				zap.String("event_type", event.EventType),
				zap.Error(err))
			// Note: the event was published but marking failed, which can lead
			// to a duplicate send; consumers must tolerate replays.
		} else {
			successCount++
			p.metrics.OutboxPublished.Inc()
		}
	}

	if successCount > 0 {
		p.logger.Info("Published events to Kafka",
			zap.Int("success_count", successCount),
			zap.Int("attempted", len(outboxEvents)))
	}

	return nil
}

// buildMessage renders the Kafka key and payload for one outbox event. Keyed
// by identifier so all transitions of one order land on the same partition.
func buildMessage(event model.OutboxEvent) ([]byte, []byte, error) {
	payload := events.OrderPublished{
		EventType:   event.EventType,
		Identifier:  event.Identifier,
		BlockNumber: event.BlockNumber,
		LogIndex:    uint64(event.LogIndex),
		TxHash:      event.TxHash,
		EventData:   event.EventBlob,
		Timestamp:   time.Now(),
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	return []byte(event.Identifier), value, nil
}

func (p *Publisher) publishEventToKafka(event model.OutboxEvent) error {
	key, value, err := buildMessage(event)
	if err != nil {
		return err
	}

	deliveryChan := make(chan kafka.Event)
	defer close(deliveryChan)

	err = p.kafkaProducer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.kafkaTopic, Partition: kafka.PartitionAny},
		Key:            key,
		Value:          value,
	}, deliveryChan)

	if err != nil {
		return err
	}

	e := <-deliveryChan
	switch ev := e.(type) {
	case *kafka.Message:
		if ev.TopicPartition.Error != nil {
			return ev.TopicPartition.Error
		}
		return nil
	default:
		return fmt.Errorf("unexpected kafka event type: %T", e)
	}
}

func (p *Publisher) Close() error {
	if p.kafkaProducer != nil {
		p.kafkaProducer.Close()
	}
	return nil
}
