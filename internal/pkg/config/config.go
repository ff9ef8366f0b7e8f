package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	KafkaBrokers  []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaTopic    string   `env:"KAFKA_TOPIC" envDefault:"game-events"`
	ConsumerGroup string   `env:"CONSUMER_GROUP" envDefault:"leaderboard-processor"`

	RedisAddr string `env:"REDIS_ADDR,required"`
	// PostgresURL enables the durable skip journal; empty falls back to
	// the logging journal.
	PostgresURL string `env:"POSTGRES_URL"`

	BatchSize      int           `env:"BATCH_SIZE" envDefault:"500"`
	PollTimeout    time.Duration `env:"POLL_TIMEOUT" envDefault:"1s"`
	RetryBackoff   time.Duration `env:"RETRY_BACKOFF" envDefault:"1s"`
	SnapshotEvery  int64         `env:"SNAPSHOT_EVERY" envDefault:"20"`
	DedupRetention time.Duration `env:"DEDUP_RETENTION" envDefault:"24h"`

	QueryServerAddr string        `env:"QUERY_SERVER_ADDR" envDefault:":8080"`
	AdminServerAddr string        `env:"ADMIN_SERVER_ADDR" envDefault:":9091"`
	StreamInterval  time.Duration `env:"STREAM_INTERVAL" envDefault:"2s"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
