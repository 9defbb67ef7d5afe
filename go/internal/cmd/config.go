package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration file. Everything in it has a
// working default; environment variables override the connection settings.
type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Websocket struct {
		WriteTimeoutSeconds int   `yaml:"write_timeout_seconds"`
		ReadTimeoutSeconds  int   `yaml:"read_timeout_seconds"`
		PingIntervalSeconds int   `yaml:"ping_interval_seconds"`
		MaxMessageSize      int64 `yaml:"max_message_size"`
	} `yaml:"websocket"`
	Events struct {
		Enabled       bool   `yaml:"enabled"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"events"`
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

func (c *Config) writeTimeout() time.Duration {
	return secondsOrDefault(c.Websocket.WriteTimeoutSeconds, 10*time.Second)
}

func (c *Config) readTimeout() time.Duration {
	return secondsOrDefault(c.Websocket.ReadTimeoutSeconds, 60*time.Second)
}

func (c *Config) pingInterval() time.Duration {
	return secondsOrDefault(c.Websocket.PingIntervalSeconds, 30*time.Second)
}

func secondsOrDefault(seconds int, defaultValue time.Duration) time.Duration {
	if seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
