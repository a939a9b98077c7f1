package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"chaingate/internal/chain"
	"chaingate/internal/failure"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `{
	"chains": [
		{"name": "mainnet", "endpoints": ["wss://node1.example.com/ws", "wss://node2.example.com/ws"]}
	]
}`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Host != DefaultHost || cfg.Port != DefaultPort {
		t.Errorf("host:port = %s:%d, want defaults", cfg.Host, cfg.Port)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("logLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.GetConnectTimeoutDuration() != 5*time.Second {
		t.Errorf("connect timeout = %v, want 5s", cfg.GetConnectTimeoutDuration())
	}
	if cfg.GetCallTimeoutDuration() != 10*time.Second {
		t.Errorf("call timeout = %v, want 10s", cfg.GetCallTimeoutDuration())
	}
	if cfg.IsCacheEnabled() {
		t.Error("cache should default to disabled")
	}
}

func TestLoadFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
		"host": "0.0.0.0",
		"port": 9000,
		"logLevel": "debug",
		"connectTimeout": 2000,
		"callTimeout": 4000,
		"cache": {"enabled": true, "ttl": 60, "size": 512},
		"chains": [
			{"name": "mainnet", "endpoints": ["wss://a/ws"], "historyUrl": "https://history.example.com"},
			{"name": "testnet", "endpoints": ["ws://b:8090"]}
		]
	}`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if !cfg.IsCacheEnabled() || cfg.Cache.GetTTLDuration() != time.Minute {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	chains := cfg.ChainList()
	if len(chains) != 2 || chains[0] != chain.Mainnet || chains[1] != chain.Testnet {
		t.Errorf("ChainList = %v", chains)
	}
	if got := cfg.EndpointMap()[chain.Testnet]; len(got) != 1 || got[0] != "ws://b:8090" {
		t.Errorf("EndpointMap testnet = %v", got)
	}
	if got := cfg.HistoryMap()[chain.Mainnet]; got != "https://history.example.com" {
		t.Errorf("HistoryMap mainnet = %q", got)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"no chains", `{"chains": []}`},
		{"unknown chain", `{"chains": [{"name": "devnet", "endpoints": ["wss://a"]}]}`},
		{"duplicate chain", `{"chains": [
			{"name": "mainnet", "endpoints": ["wss://a"]},
			{"name": "mainnet", "endpoints": ["wss://b"]}
		]}`},
		{"no endpoints", `{"chains": [{"name": "mainnet", "endpoints": []}]}`},
		{"http endpoint", `{"chains": [{"name": "mainnet", "endpoints": ["https://a"]}]}`},
		{"bad port", `{"port": 70000, "chains": [{"name": "mainnet", "endpoints": ["wss://a"]}]}`},
		{"bad log level", `{"logLevel": "verbose", "chains": [{"name": "mainnet", "endpoints": ["wss://a"]}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			var cfgErr *failure.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("error type = %T, want ConfigError", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("missing file should fail")
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	if _, err := Load(writeConfig(t, `{not json`)); err == nil {
		t.Fatal("malformed JSON should fail")
	}
}
