package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"NEO4J_URI", "NEO4J_DATABASE", "NEO4J_MAX_POOL_SIZE", "NEO4J_CONNECT_TIMEOUT_SECS", "LOG_LEVEL", "NEOGM_SCHEMA"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Neo4j.URI != "bolt://localhost:7687" {
		t.Errorf("URI = %q", cfg.Neo4j.URI)
	}
	if cfg.Neo4j.MaxPoolSize != 50 {
		t.Errorf("MaxPoolSize = %d, want 50", cfg.Neo4j.MaxPoolSize)
	}
	if cfg.Neo4j.ConnectTimeout != 5*time.Second {
		t.Errorf("ConnectTimeout = %v, want 5s", cfg.Neo4j.ConnectTimeout)
	}
	if cfg.Log.Level != slog.LevelInfo {
		t.Errorf("Level = %v, want INFO", cfg.Log.Level)
	}
	if cfg.Schema != "schema.yaml" {
		t.Errorf("Schema = %q", cfg.Schema)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("NEO4J_URI", "neo4j://db:7687")
	t.Setenv("NEO4J_DATABASE", "people")
	t.Setenv("NEO4J_MAX_POOL_SIZE", "8")
	t.Setenv("NEO4J_CONNECT_TIMEOUT_SECS", "not-a-number")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	g := cfg.Neo4j.Graph()
	if g.URI != "neo4j://db:7687" || g.Database != "people" || g.MaxPoolSize != 8 {
		t.Errorf("Graph() = %+v", g)
	}
	if g.ConnectTimeout != 5*time.Second {
		t.Errorf("ConnectTimeout = %v, want fallback 5s", g.ConnectTimeout)
	}
	if cfg.Log.Level != slog.LevelDebug {
		t.Errorf("Level = %v, want DEBUG", cfg.Log.Level)
	}
}

func TestLoadRejectsBadLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for LOG_LEVEL=loud")
	}
}
