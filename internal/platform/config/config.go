package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	strutil "trafficreg/pkg/platform/strings"
)

// Server captures process level configuration for cmd/server.
type Server struct {
	Addr          string        `env:"TRAFFICREG_ADDR"            envDefault:":8080"`
	MetricsAddr   string        `env:"TRAFFICREG_METRICS_ADDR"    envDefault:":9090"`
	JWTSigningKey string        `env:"TRAFFICREG_JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer     string        `env:"TRAFFICREG_JWT_ISSUER"      envDefault:"trafficreg"`
	ShutdownGrace time.Duration `env:"TRAFFICREG_SHUTDOWN_GRACE"  envDefault:"10s"`

	// Deployer is the principal that receives the admin role in every
	// registry scope on first start.
	Deployer string `env:"TRAFFICREG_DEPLOYER"`

	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Outbox    OutboxConfig
	Tracing   TracingConfig
	RateLimit RateLimitConfig
}

type LogConfig struct {
	Level  string `env:"TRAFFICREG_LOG_LEVEL"  envDefault:"info"`
	Format string `env:"TRAFFICREG_LOG_FORMAT" envDefault:"json"`
}

// DatabaseConfig selects the durable ledger backend. An empty URL runs the
// registries in memory.
type DatabaseConfig struct {
	URL             string        `env:"TRAFFICREG_DATABASE_URL"`
	MaxOpenConns    int           `env:"TRAFFICREG_DATABASE_MAX_OPEN_CONNS"    envDefault:"10"`
	MaxIdleConns    int           `env:"TRAFFICREG_DATABASE_MAX_IDLE_CONNS"    envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"TRAFFICREG_DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	Migrate         bool          `env:"TRAFFICREG_DATABASE_MIGRATE"           envDefault:"true"`
}

// RedisConfig enables the shared validity cache. An empty URL keeps the
// cache in process.
type RedisConfig struct {
	URL          string        `env:"TRAFFICREG_REDIS_URL"`
	PoolSize     int           `env:"TRAFFICREG_REDIS_POOL_SIZE"      envDefault:"10"`
	MinIdleConns int           `env:"TRAFFICREG_REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"TRAFFICREG_REDIS_DIAL_TIMEOUT"   envDefault:"5s"`
	ReadTimeout  time.Duration `env:"TRAFFICREG_REDIS_READ_TIMEOUT"   envDefault:"3s"`
	WriteTimeout time.Duration `env:"TRAFFICREG_REDIS_WRITE_TIMEOUT"  envDefault:"3s"`
	ValidityTTL  time.Duration `env:"TRAFFICREG_VALIDITY_CACHE_TTL"   envDefault:"5m"`
}

// KafkaConfig enables publishing committed ledger events. No brokers means
// events stay in the audit store only.
type KafkaConfig struct {
	Brokers      []string `env:"TRAFFICREG_KAFKA_BROKERS" envSeparator:","`
	Topic        string   `env:"TRAFFICREG_KAFKA_TOPIC"         envDefault:"trafficreg.ledger-events"`
	Partitions   int32    `env:"TRAFFICREG_KAFKA_PARTITIONS"    envDefault:"3"`
	Replication  int16    `env:"TRAFFICREG_KAFKA_REPLICATION"   envDefault:"1"`
	CreateTopics bool     `env:"TRAFFICREG_KAFKA_CREATE_TOPICS" envDefault:"true"`
}

type OutboxConfig struct {
	Interval  time.Duration `env:"TRAFFICREG_OUTBOX_INTERVAL"   envDefault:"1s"`
	BatchSize int           `env:"TRAFFICREG_OUTBOX_BATCH_SIZE" envDefault:"100"`
}

// TracingConfig exports ledger spans over OTLP/HTTP when an endpoint is set.
type TracingConfig struct {
	Enabled     bool    `env:"TRAFFICREG_OTEL_ENABLED"      envDefault:"true"`
	Endpoint    string  `env:"TRAFFICREG_OTEL_ENDPOINT"`
	ServiceName string  `env:"TRAFFICREG_OTEL_SERVICE_NAME" envDefault:"trafficreg"`
	SampleRatio float64 `env:"TRAFFICREG_OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// RateLimitConfig bounds requests per caller and sliding window. Limits are
// shared through Redis when it is configured.
type RateLimitConfig struct {
	Enabled       bool          `env:"TRAFFICREG_RATELIMIT_ENABLED"        envDefault:"true"`
	ReadRequests  int           `env:"TRAFFICREG_RATELIMIT_READ_REQUESTS"  envDefault:"600"`
	WriteRequests int           `env:"TRAFFICREG_RATELIMIT_WRITE_REQUESTS" envDefault:"120"`
	Window        time.Duration `env:"TRAFFICREG_RATELIMIT_WINDOW"         envDefault:"1m"`
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Kafka.Brokers = strutil.DedupeAndTrim(cfg.Kafka.Brokers)
	return cfg, nil
}

// PublishingEnabled reports whether the outbox relay has somewhere to send events.
func (c Server) PublishingEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
