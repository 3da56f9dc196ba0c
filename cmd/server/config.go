package main

import (
	"fmt"
	"time"

	"guild-chat/errors"
)

const (
	storeBadger   = "badger"
	storePostgres = "postgres"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=8080"`
	GrpcPort int    `env:"GRPC_PORT,default=9090"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	StoreDriver    string `env:"STORE_DRIVER,default=badger"`
	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/badger"`
	PostgresDSN    string `env:"POSTGRES_DSN"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH"`
	DebugPort      int    `env:"DEBUG_PORT,default=8081"`

	ConnectionBufferSize int `env:"CONNECTION_BUFFER_SIZE,default=64"`
	HistoryLimit         int `env:"HISTORY_LIMIT,default=50"`
	MaxContentLength     int `env:"MAX_CONTENT_LENGTH,default=2000"`

	JWTSecret string `env:"JWT_SECRET"`

	CensoredDir     string `env:"CENSORED_DIR"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`

	KafkaBrokers string        `env:"KAFKA_BROKERS"`
	KafkaTopic   string        `env:"KAFKA_TOPIC,default=guild-chat.messages"`
	KafkaTimeout time.Duration `env:"KAFKA_TIMEOUT,default=5s"`

	ObserverBufferSize int           `env:"OBSERVER_BUFFER_SIZE,default=256"`
	MetricInterval     time.Duration `env:"METRIC_INTERVAL,default=15s"`
	RestartInterval    time.Duration `env:"RESTART_INTERVAL,default=1s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case storeBadger:
	case storePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required with STORE_DRIVER=%s", storePostgres)
		}
	default:
		return fmt.Errorf("%w: %q", errors.ErrUnknownStoreDriver, c.StoreDriver)
	}
	if c.ConnectionBufferSize <= 0 || c.ObserverBufferSize <= 0 {
		return fmt.Errorf("buffer sizes must be positive")
	}
	if c.HistoryLimit <= 0 || c.MaxContentLength <= 0 {
		return fmt.Errorf("HISTORY_LIMIT and MAX_CONTENT_LENGTH must be positive")
	}
	// Workers tick on these, time.NewTicker panics on a non positive duration.
	if c.MetricInterval <= 0 || c.RestartInterval <= 0 {
		return fmt.Errorf("METRIC_INTERVAL and RESTART_INTERVAL must be positive")
	}
	if c.KafkaBrokers != "" && c.KafkaTimeout <= 0 {
		return fmt.Errorf("KAFKA_TIMEOUT must be positive")
	}
	return nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
