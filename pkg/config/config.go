// Package config loads service configuration from the environment.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Addr      string        `envconfig:"ADDR" default:":8080"`
	LogLevel  string        `envconfig:"LOG_LEVEL" default:"info"`
	JWTSecret string        `envconfig:"JWT_SECRET" default:"my_secret_key"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	// Rooms is the fixed set of valid room names. The engine never mutates it.
	Rooms []string `envconfig:"ROOMS" default:"devops,cloud computing,covid19,sports,nodeJS"`

	UsersDB string `envconfig:"USERS_DB" default:"chat.db"`

	// Scylla-backed message store; the in-memory store is used when unset.
	ScyllaHosts    []string `envconfig:"SCYLLA_HOSTS"`
	ScyllaKeyspace string   `envconfig:"SCYLLA_KEYSPACE" default:"chat"`

	// Optional Redis cache in front of the history read paths.
	RedisAddr       string        `envconfig:"REDIS_ADDR"`
	HistoryCacheTTL time.Duration `envconfig:"HISTORY_CACHE_TTL" default:"30s"`

	// Optional Kafka mirror of persisted messages.
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"chat-messages"`
}

// Load reads .env if present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
