package main

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type (
	ServiceConfig struct {
		Environment string `env:"SENTRY_ENVIRONMENT"`
		Port        string `env:"PORT"`
		LogLevel    string `env:"CALLTRACER_LOG_LEVEL"`

		SentryDSN string `env:"SENTRY_DSN"`

		TracesBucketURL string `env:"CALLTRACER_BUCKET_URL"`
		TracesPrefix    string `env:"CALLTRACER_BUCKET_PREFIX"`

		TracesKafkaBrokers []string `env:"CALLTRACER_KAFKA_BROKERS" env-separator:","`
		TracesKafkaTopic   string   `env:"CALLTRACER_KAFKA_TOPIC"`

		// DemoMaxDepth and DemoMaxCalls bound the demos run on behalf of
		// clients.
		DemoMaxDepth int `env:"CALLTRACER_DEMO_MAX_DEPTH"`
		DemoMaxCalls int `env:"CALLTRACER_DEMO_MAX_CALLS"`
	}
)

var (
	serviceConfigs = map[string]ServiceConfig{
		"production": {
			Port:               "8080",
			LogLevel:           "info",
			TracesBucketURL:    "gs://sentry-call-traces",
			TracesPrefix:       "traces",
			TracesKafkaBrokers: []string{"kafka.service.us-central1.consul:9092"},
			TracesKafkaTopic:   "call-traces",
			DemoMaxDepth:       64,
			DemoMaxCalls:       10000,
		},
		"development": {
			Port:         "8080",
			LogLevel:     "debug",
			TracesPrefix: "traces",
			DemoMaxDepth: 256,
			DemoMaxCalls: 100000,
		},
	}
)

// loadConfig starts from the defaults of the environment and applies the
// variables set in the process environment on top.
func loadConfig() (ServiceConfig, error) {
	envName := os.Getenv("SENTRY_ENVIRONMENT")
	if envName == "" {
		envName = "development"
	}
	config, exists := serviceConfigs[envName]
	if !exists {
		return ServiceConfig{}, fmt.Errorf("service config for environment %v does not exist", envName)
	}
	if err := cleanenv.ReadEnv(&config); err != nil {
		return ServiceConfig{}, fmt.Errorf("can't read service config: %w", err)
	}
	config.Environment = envName
	if config.TracesBucketURL == "" {
		dir, err := os.MkdirTemp(os.TempDir(), "calltracer-traces-*")
		if err != nil {
			return ServiceConfig{}, err
		}
		config.TracesBucketURL = "file://localhost/" + dir
	}
	return config, nil
}
