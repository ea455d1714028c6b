package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/bidwatch/go/clients/auction_api_client"
)

// Config holds the watcher's options. Values come from the yaml file,
// then environment variables override field by field.
type Config struct {
	BaseURL          string `yaml:"base_url"`
	ListIntervalMs   int    `yaml:"list_interval_ms"`
	DetailIntervalMs int    `yaml:"detail_interval_ms"`
}

func defaultConfig() Config {
	return Config{
		BaseURL:          auction_api_client.DefaultBaseURL,
		ListIntervalMs:   5000,
		DetailIntervalMs: 2000,
	}
}

func loadConfig(path string) (Config, error) {
	config := defaultConfig()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return config, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return config, fmt.Errorf("failed to read config file: %w", err)
	}

	config.BaseURL = getEnv("BIDWATCH_BASE_URL", config.BaseURL)
	config.ListIntervalMs = getEnvAsInt("BIDWATCH_LIST_INTERVAL_MS", config.ListIntervalMs)
	config.DetailIntervalMs = getEnvAsInt("BIDWATCH_DETAIL_INTERVAL_MS", config.DetailIntervalMs)

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
