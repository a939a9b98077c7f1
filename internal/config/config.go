package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"chaingate/internal/chain"
	"chaingate/internal/failure"
)

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.HistoryTimeout == 0 {
		cfg.HistoryTimeout = DefaultHistoryTimeout
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = DefaultStaticDir
	}
	if cfg.Cache != nil && cfg.Cache.Enabled {
		if cfg.Cache.TTL == 0 {
			cfg.Cache.TTL = DefaultCacheTTL
		}
		if cfg.Cache.Size == 0 {
			cfg.Cache.Size = DefaultCacheSize
		}
	}
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	if len(cfg.Chains) == 0 {
		return &failure.ConfigError{Reason: "at least one chain is required"}
	}

	seen := make(map[string]bool)
	for i, cc := range cfg.Chains {
		if _, err := chain.Parse(cc.Name); err != nil {
			return &failure.ConfigError{Reason: fmt.Sprintf("chains[%d]: %v", i, err)}
		}
		if seen[cc.Name] {
			return &failure.ConfigError{Reason: fmt.Sprintf("chains[%d]: duplicate chain %q", i, cc.Name)}
		}
		seen[cc.Name] = true

		if len(cc.Endpoints) == 0 {
			return &failure.ConfigError{Reason: fmt.Sprintf("chain %q: at least one endpoint is required", cc.Name)}
		}
		for j, ep := range cc.Endpoints {
			if !strings.HasPrefix(ep, "ws://") && !strings.HasPrefix(ep, "wss://") {
				return &failure.ConfigError{Reason: fmt.Sprintf("chain %q, endpoint[%d]: must be a ws:// or wss:// URL", cc.Name, j)}
			}
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &failure.ConfigError{Reason: "port must be between 1 and 65535"}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return &failure.ConfigError{Reason: "logLevel must be one of: debug, info, warn, error"}
	}

	if cfg.ConnectTimeout < 0 || cfg.CallTimeout < 0 || cfg.HistoryTimeout < 0 {
		return &failure.ConfigError{Reason: "timeouts must be non-negative"}
	}

	if cfg.Cache != nil && cfg.Cache.Enabled {
		if cfg.Cache.TTL <= 0 {
			return &failure.ConfigError{Reason: "cache.ttl must be positive when cache is enabled"}
		}
		if cfg.Cache.Size <= 0 {
			return &failure.ConfigError{Reason: "cache.size must be positive when cache is enabled"}
		}
	}

	return nil
}
