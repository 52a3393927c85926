package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/maraichr/neogm/pkg/graph"
)

type Config struct {
	Neo4j  Neo4jConfig
	Log    LogConfig
	Schema string // NEOGM_SCHEMA, path to the model schema file
}

type Neo4jConfig struct {
	URI            string
	User           string
	Password       string
	Database       string
	MaxPoolSize    int
	ConnectTimeout time.Duration
}

// Graph returns the connection settings for graph.NewClient.
func (n Neo4jConfig) Graph() graph.Config {
	return graph.Config{
		URI:            n.URI,
		User:           n.User,
		Password:       n.Password,
		Database:       n.Database,
		MaxPoolSize:    n.MaxPoolSize,
		ConnectTimeout: n.ConnectTimeout,
	}
}

type LogConfig struct {
	Level slog.Level
}

func Load() (*Config, error) {
	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Neo4j: Neo4jConfig{
			URI:            getEnv("NEO4J_URI", "bolt://localhost:7687"),
			User:           getEnv("NEO4J_USER", "neo4j"),
			Password:       getEnv("NEO4J_PASSWORD", "neogm"),
			Database:       getEnv("NEO4J_DATABASE", ""),
			MaxPoolSize:    getEnvInt("NEO4J_MAX_POOL_SIZE", 50),
			ConnectTimeout: time.Duration(getEnvInt("NEO4J_CONNECT_TIMEOUT_SECS", 5)) * time.Second,
		},
		Log:    LogConfig{Level: level},
		Schema: getEnv("NEOGM_SCHEMA", "schema.yaml"),
	}
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return l, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
