package config

import (
	"log/slog"
	"testing"
	"time"
)

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestLoadDefaultsDevProfile(t *testing.T) {
	cfg, err := Load("sqlhunt-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want dev", cfg.Profile)
	}
	if cfg.Investigations.Driver != "duckdb" {
		t.Fatalf("Investigations.Driver = %q, want duckdb", cfg.Investigations.Driver)
	}
	if cfg.Validator.RowLimit != 1000 {
		t.Fatalf("Validator.RowLimit = %d, want 1000", cfg.Validator.RowLimit)
	}
	if cfg.Auth.Required {
		t.Fatal("Auth.Required = true in dev profile")
	}
}

func TestLoadProdProfileOverrides(t *testing.T) {
	cfg, err := Load("sqlhunt-api", mapLookup(map[string]string{
		"SQLHUNT_PROFILE": "prod",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Investigations.Driver != "pgx" {
		t.Fatalf("Investigations.Driver = %q, want pgx", cfg.Investigations.Driver)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required = false in prod profile")
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v, want info", cfg.Observability.LogLevel)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	cfg, err := Load("sqlhunt-worker", mapLookup(map[string]string{
		"SQLHUNT_WORKER_POLL_INTERVAL":         "2s",
		"SQLHUNT_WORKER_LEASE_SECONDS":         "90",
		"SQLHUNT_VALIDATOR_ROW_LIMIT":          "250",
		"SQLHUNT_INVESTIGATIONS_DRIVER":        "pgx",
		"SQLHUNT_INVESTIGATIONS_QUERY_TIMEOUT": "3s",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Worker.PollInterval != 2*time.Second {
		t.Fatalf("Worker.PollInterval = %v", cfg.Worker.PollInterval)
	}
	if cfg.Worker.LeaseSeconds != 90 {
		t.Fatalf("Worker.LeaseSeconds = %d", cfg.Worker.LeaseSeconds)
	}
	if cfg.Validator.RowLimit != 250 {
		t.Fatalf("Validator.RowLimit = %d", cfg.Validator.RowLimit)
	}
	if cfg.Investigations.QueryTimeout != 3*time.Second {
		t.Fatalf("Investigations.QueryTimeout = %v", cfg.Investigations.QueryTimeout)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad profile":  {"SQLHUNT_PROFILE": "staging"},
		"bad driver":   {"SQLHUNT_INVESTIGATIONS_DRIVER": "sqlite"},
		"bad duration": {"SQLHUNT_HTTP_READ_TIMEOUT": "soon"},
		"bad level":    {"SQLHUNT_LOG_LEVEL": "loud"},
		"bad limit":    {"SQLHUNT_VALIDATOR_ROW_LIMIT": "0"},
	}
	for name, env := range cases {
		if _, err := Load("sqlhunt-api", mapLookup(env)); err == nil {
			t.Errorf("%s: Load() accepted invalid config", name)
		}
	}
}
