package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DeafMist/news-analytics/backend/internal/profile"
)

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr     string
	ElasticsearchIndex    string
	ElasticsearchUsername string
	ElasticsearchPassword string
}

// Profile configures the keyword profile store.
type Profile struct {
	Backend       string
	DSN           string
	Timeout       time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	Profile       Profile
	BindAddr      string
	QueryTimeout  time.Duration
	JWTSecret     string
	StopwordsFile string
}

// Worker holds configuration for the Kafka -> Elasticsearch ingestion worker.
type Worker struct {
	Common
	WriteIndex    string
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaConsumer string
	DLQSuffix     string
	BatchSize     int
	IndexTimeout  time.Duration
}

// LoadCommon reads the Elasticsearch settings.
func LoadCommon() Common {
	return Common{
		ElasticsearchAddr:     getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex:    getEnv("ELASTICSEARCH_INDEX", "online-news-*"),
		ElasticsearchUsername: getEnv("ELASTICSEARCH_USERNAME", ""),
		ElasticsearchPassword: getEnv("ELASTICSEARCH_PASSWORD", ""),
	}
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	c := &API{
		Common: LoadCommon(),
		Profile: Profile{
			Backend:       strings.ToLower(getEnv("PROFILE_BACKEND", profile.BackendPostgres)),
			DSN:           getEnv("PROFILE_DSN", ""),
			Timeout:       getDuration("PROFILE_TIMEOUT", "3s"),
			RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getInt("REDIS_DB", 0),
		},
		BindAddr:      getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		QueryTimeout:  getDuration("ANALYTICS_QUERY_TIMEOUT", "30s"),
		JWTSecret:     getEnv("AUTH_JWT_SECRET", ""),
		StopwordsFile: getEnv("STOPWORDS_FILE", ""),
	}

	if c.JWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET must be set")
	}
	if c.QueryTimeout <= 0 {
		return nil, fmt.Errorf("ANALYTICS_QUERY_TIMEOUT must be positive")
	}
	if c.Profile.Timeout <= 0 {
		return nil, fmt.Errorf("PROFILE_TIMEOUT must be positive")
	}

	switch c.Profile.Backend {
	case profile.BackendPostgres, profile.BackendSQLite:
		if c.Profile.DSN == "" {
			return nil, fmt.Errorf("PROFILE_DSN is required for the %s profile backend", c.Profile.Backend)
		}
	case profile.BackendRedis:
		if c.Profile.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required for the redis profile backend")
		}
	case profile.BackendNone:
	default:
		return nil, fmt.Errorf("PROFILE_BACKEND %q is not supported", c.Profile.Backend)
	}

	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	c := &Worker{
		Common:        LoadCommon(),
		WriteIndex:    getEnv("ELASTICSEARCH_WRITE_INDEX", "online-news"),
		KafkaBrokers:  splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "news_annotated"),
		KafkaConsumer: getEnv("KAFKA_CONSUMER_GROUP", "news-indexer"),
		DLQSuffix:     getEnv("WORKER_DLQ_SUFFIX", "_dlq"),
		BatchSize:     getInt("WORKER_BATCH_SIZE", 10),
		IndexTimeout:  getDuration("WORKER_INDEX_TIMEOUT", "10s"),
	}

	if strings.ContainsAny(c.WriteIndex, "*?,") {
		return nil, fmt.Errorf("ELASTICSEARCH_WRITE_INDEX must name a single index, got %q", c.WriteIndex)
	}
	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.IndexTimeout <= 0 {
		return nil, fmt.Errorf("WORKER_INDEX_TIMEOUT must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
