package main

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Host             string        `env:"HOST,default=0.0.0.0"`
	Port             int           `env:"PORT,default=8080"`
	GRPCPort         int           `env:"GRPC_PORT,default=9090"`
	LogLevel         string        `env:"LOG_LEVEL,default=INFO"`
	JWTSecret        string        `env:"JWT_SECRET,required=true"`
	ServiceTokenHash string        `env:"SERVICE_TOKEN_HASH"`
	BadgerFilepath   string        `env:"BADGER_FILEPATH"`
	NodeID           string        `env:"NODE_ID"`
	BridgeType       string        `env:"BRIDGE_TYPE,default=none"`
	RedisAddr        string        `env:"REDIS_ADDR,default=localhost:6379"`
	RedisChannel     string        `env:"REDIS_CHANNEL,default=restaurant-hub.events"`
	KafkaBrokers     string        `env:"KAFKA_BROKERS,default=localhost:9092"`
	KafkaTopic       string        `env:"KAFKA_TOPIC,default=restaurant-hub.events"`
	KafkaGroup       string        `env:"KAFKA_GROUP,default=restaurant-hub"`
	BridgeBufferSize int           `env:"BRIDGE_BUFFER_SIZE,default=1024"`
	SendBufferSize   int           `env:"SEND_BUFFER_SIZE,default=256"`
	CommandRate      float64       `env:"COMMAND_RATE,default=20"`
	CommandBurst     int           `env:"COMMAND_BURST,default=40"`
	IdleTimeout      time.Duration `env:"IDLE_TIMEOUT,default=2m"`
	ReapInterval     time.Duration `env:"REAP_INTERVAL,default=30s"`
	StatsInterval    time.Duration `env:"STATS_INTERVAL,default=15s"`
	RestartInterval  time.Duration `env:"RESTART_INTERVAL,default=2s"`
	CensoredWords    string        `env:"CENSORED_WORDS"`
	CensorChar       string        `env:"CENSOR_CHAR,default=*"`
	AllowedOrigins   string        `env:"ALLOWED_ORIGINS,default=*"`
	LimitMessages    *int          `env:"CHAT_HISTORY_LIMIT"`
}

func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.CensorChar)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CENSOR_CHAR must be a single character, got %q",
			c.CensorChar,
		)
	}
	return r[0], nil
}

func (c Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
