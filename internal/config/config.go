package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/catalogsearch/pkg/config"
)

// Config holds all configuration for the catalog search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"SEARCH_HTTP_PORT" envDefault:"8010"`

	// Search engine selection (elasticsearch or memory)
	SearchEngine string `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`

	// Elasticsearch
	ElasticsearchURL     string        `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex   string        `env:"ELASTICSEARCH_INDEX" envDefault:"products"`
	ElasticsearchTimeout time.Duration `env:"ELASTICSEARCH_TIMEOUT" envDefault:"10s"`
	ElasticsearchRetries int           `env:"ELASTICSEARCH_RETRIES" envDefault:"3"`

	// Semantic search. When the vector field is empty, queries run
	// keyword-only with no kNN section.
	EmbeddingModel string `env:"EMBEDDING_MODEL" envDefault:"product-embedding-model"`
	VectorField    string `env:"VECTOR_FIELD" envDefault:"product_embedding"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"catalog-search"`

	// PostgreSQL catalog source for reindexing. Disabled when the host is empty.
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:""`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"catalog"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"catalog_secret"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"catalog"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.SearchEngine != "elasticsearch" && c.SearchEngine != "memory" {
		return fmt.Errorf("invalid search engine: %q", c.SearchEngine)
	}
	if c.ElasticsearchTimeout <= 0 {
		return fmt.Errorf("invalid elasticsearch timeout: %s", c.ElasticsearchTimeout)
	}
	if c.ElasticsearchRetries < 1 {
		return fmt.Errorf("invalid elasticsearch retries: %d", c.ElasticsearchRetries)
	}
	return nil
}
