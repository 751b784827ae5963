package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"restaurant-hub/domain/event"
	"restaurant-hub/errors"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// KafkaConfig holds Kafka connection settings. Each node needs its own
// consumer group so that every node sees every event.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	ClientID      string
	Version       string
}

type KafkaBridge struct {
	log      *slog.Logger
	topic    string
	client   sarama.Client
	producer sarama.SyncProducer
	consumer sarama.ConsumerGroup
}

func NewKafkaBridge(cfg KafkaConfig, log *slog.Logger) (*KafkaBridge, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers cannot be empty")
	}
	if cfg.Topic == "" {
		cfg.Topic = "restaurant-hub.events"
	}
	if cfg.Version == "" {
		cfg.Version = "2.8.0"
	}

	version, err := sarama.ParseKafkaVersion(cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("invalid kafka version: %w", err)
	}

	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Version = version
	kafkaConfig.ClientID = cfg.ClientID
	kafkaConfig.Producer.Return.Successes = true
	kafkaConfig.Producer.Return.Errors = true
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	// Events are notifications: a node joining late starts from now
	kafkaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	kafkaConfig.Consumer.Return.Errors = true
	kafkaConfig.Net.DialTimeout = 10 * time.Second
	kafkaConfig.Net.ReadTimeout = 10 * time.Second
	kafkaConfig.Net.WriteTimeout = 10 * time.Second

	client, err := sarama.NewClient(cfg.Brokers, kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	consumer, err := sarama.NewConsumerGroupFromClient(cfg.ConsumerGroup, client)
	if err != nil {
		producer.Close()
		client.Close()
		return nil, fmt.Errorf("create kafka consumer group: %w", err)
	}
	return &KafkaBridge{log: log, topic: cfg.Topic, client: client, producer: producer, consumer: consumer}, nil
}

func (b *KafkaBridge) Publish(_ context.Context, env event.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(env.Event.ID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("origin"), Value: []byte(env.Origin)},
		},
	}
	if _, _, err := b.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

func (b *KafkaBridge) Subscribe(ctx context.Context, handler func(event.Envelope)) error {
	h := &consumerGroupHandler{log: b.log, handler: handler}
	for {
		// Blocks for the lifetime of one consumer group session
		if err := b.consumer.Consume(ctx, []string{b.topic}, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return errors.ErrBridgeClosed
			}
			b.log.Warn("Kafka consumer error", "topic", b.topic, "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}

func (b *KafkaBridge) Close() error {
	var errs []error
	if err := b.consumer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close consumer: %w", err))
	}
	if err := b.producer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close producer: %w", err))
	}
	if err := b.client.Close(); err != nil && !errors.Is(err, sarama.ErrClosedClient) {
		errs = append(errs, fmt.Errorf("close client: %w", err))
	}
	return errors.Join(errs...)
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler.
type consumerGroupHandler struct {
	log     *slog.Logger
	handler func(event.Envelope)
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error { return nil }

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok || msg == nil {
				return nil
			}
			var env event.Envelope
			if err := json.Unmarshal(msg.Value, &env); err != nil {
				h.log.Warn("Dropping malformed bridge envelope", "offset", msg.Offset, "error", err)
			} else {
				h.handler(env)
			}
			session.MarkMessage(msg, "")
		}
	}
}
