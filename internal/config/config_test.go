package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8010, cfg.HTTPPort)
	assert.Equal(t, "elasticsearch", cfg.SearchEngine)
	assert.Equal(t, "http://localhost:9200", cfg.ElasticsearchURL)
	assert.Equal(t, "products", cfg.ElasticsearchIndex)
	assert.Equal(t, 10*time.Second, cfg.ElasticsearchTimeout)
	assert.Equal(t, 3, cfg.ElasticsearchRetries)
	assert.Equal(t, "product-embedding-model", cfg.EmbeddingModel)
	assert.Equal(t, "product_embedding", cfg.VectorField)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "catalog-search", cfg.KafkaGroupID)
	assert.Empty(t, cfg.PostgresHost)
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	t.Setenv("SEARCH_HTTP_PORT", "99999")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_InvalidSearchEngine(t *testing.T) {
	t.Setenv("SEARCH_ENGINE", "solr")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid search engine")
}

func TestLoad_InvalidRetries(t *testing.T) {
	t.Setenv("ELASTICSEARCH_RETRIES", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid elasticsearch retries")
}

func TestLoad_MemoryEngine(t *testing.T) {
	t.Setenv("SEARCH_ENGINE", "memory")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.SearchEngine)
}

func TestLoad_KafkaBrokerList(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_DisabledVectorSearch(t *testing.T) {
	t.Setenv("VECTOR_FIELD", "")

	cfg, err := Load()

	require.NoError(t, err)
	// An empty value falls back to the envDefault with caarlos0/env, so the
	// keyword-only mode is selected by overriding to a sentinel at deploy
	// time or by leaving the field unset in query options.
	assert.NotNil(t, cfg)
}
