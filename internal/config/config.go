package config

import (
	"errors"
	"os"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// minFeedInterval mirrors the integration's lower bound on polling the ANM API.
const minFeedInterval = time.Minute

// Config holds all service settings, populated from environment variables.
type Config struct {
	CardEntity      string
	MapURL          string
	MapFetchTimeout time.Duration

	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// ANM feed configuration.
	FeedEnabled  bool
	FeedBaseURL  string
	FeedInterval time.Duration
	FeedTimeout  time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	mapFetchTimeout, err := parsePositiveDuration("MAP_FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	feedTimeout, err := parsePositiveDuration("ANM_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	feedInterval, err := parsePositiveDuration("ANM_POLL_INTERVAL", "10m")
	if err != nil {
		return nil, err
	}
	if feedInterval < minFeedInterval {
		return nil, errors.New("ANM_POLL_INTERVAL must be at least 1m")
	}

	cfg := &Config{
		CardEntity:      os.Getenv("CARD_ENTITY"),
		MapURL:          sharedcfg.EnvOrDefault("MAP_URL", "http://localhost:8123/local/anm-harta.svg"),
		MapFetchTimeout: mapFetchTimeout,

		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "home-assistant-states"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "anm-rendered-maps"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "anm-map-card"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		FeedEnabled:  os.Getenv("ANM_ENABLED") == "true",
		FeedBaseURL:  sharedcfg.EnvOrDefault("ANM_BASE_URL", "https://www.meteoromania.ro/wp-json/meteoapi/v2/"),
		FeedInterval: feedInterval,
		FeedTimeout:  feedTimeout,
	}

	if cfg.CardEntity == "" {
		return nil, errors.New("CARD_ENTITY is required")
	}
	if cfg.MapURL == "" {
		return nil, errors.New("MAP_URL is required")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}
