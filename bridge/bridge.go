package bridge

import (
	"fmt"
	"log/slog"
	"strings"

	"restaurant-hub/contract"
	"restaurant-hub/errors"
)

type Type string

const (
	TypeNone   Type = "none"
	TypeMemory Type = "memory"
	TypeRedis  Type = "redis"
	TypeKafka  Type = "kafka"
)

type Config struct {
	Type         Type
	NodeID       string
	RedisAddr    string
	RedisChannel string
	KafkaBrokers string
	KafkaTopic   string
	KafkaGroup   string
}

// New builds the bridge selected by cfg.Type. TypeNone returns a nil
// bridge: the node then serves its own connections only.
func New(cfg Config, log *slog.Logger) (contract.Bridge, error) {
	switch cfg.Type {
	case TypeNone, "":
		return nil, nil
	case TypeMemory:
		return NewMemoryBridge(), nil
	case TypeRedis:
		return NewRedisBridge(RedisConfig{Addr: cfg.RedisAddr, Channel: cfg.RedisChannel}, log)
	case TypeKafka:
		return NewKafkaBridge(KafkaConfig{
			Brokers:       ParseKafkaBrokers(cfg.KafkaBrokers),
			Topic:         cfg.KafkaTopic,
			ConsumerGroup: cfg.KafkaGroup + "-" + cfg.NodeID,
			ClientID:      "restaurant-hub-" + cfg.NodeID,
		}, log)
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownBridge, cfg.Type)
	}
}

// ParseKafkaBrokers parses a comma-separated string of Kafka brokers.
func ParseKafkaBrokers(brokersStr string) []string {
	if brokersStr == "" {
		return nil
	}
	brokers := strings.Split(brokersStr, ",")
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}
	return brokers
}
