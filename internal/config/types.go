package config

import (
	"time"

	"chaingate/internal/chain"
)

// Config represents the main configuration structure
type Config struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	LogLevel       string        `json:"logLevel"`
	ConnectTimeout int           `json:"connectTimeout"` // ms - session open handshake deadline
	CallTimeout    int           `json:"callTimeout"`    // ms - per remote call deadline
	HistoryTimeout int           `json:"historyTimeout"` // ms - external history service deadline
	StaticDir      string        `json:"staticDir"`
	Cache          *CacheConfig  `json:"cache,omitempty"`
	Chains         []ChainConfig `json:"chains"`
}

// CacheConfig controls the history/market-search response cache.
type CacheConfig struct {
	Enabled bool `json:"enabled"`
	TTL     int  `json:"ttl"`  // seconds
	Size    int  `json:"size"` // number of entries
}

// ChainConfig is one target network with its ranked endpoint list. Order
// encodes preference: the first endpoint is dialed first.
type ChainConfig struct {
	Name       string   `json:"name"`
	Endpoints  []string `json:"endpoints"`
	HistoryURL string   `json:"historyUrl"`
}

// Default values
const (
	DefaultHost           = "localhost"
	DefaultPort           = 8080
	DefaultLogLevel       = "info"
	DefaultConnectTimeout = 5000  // ms
	DefaultCallTimeout    = 10000 // ms
	DefaultHistoryTimeout = 10000 // ms
	DefaultStaticDir      = "./static"
	DefaultCacheTTL       = 30 // s
	DefaultCacheSize      = 1024
)

// GetConnectTimeoutDuration returns the session open deadline as time.Duration
func (c *Config) GetConnectTimeoutDuration() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Millisecond
}

// GetCallTimeoutDuration returns the per-call deadline as time.Duration
func (c *Config) GetCallTimeoutDuration() time.Duration {
	return time.Duration(c.CallTimeout) * time.Millisecond
}

// GetHistoryTimeoutDuration returns the history service deadline as time.Duration
func (c *Config) GetHistoryTimeoutDuration() time.Duration {
	return time.Duration(c.HistoryTimeout) * time.Millisecond
}

// IsCacheEnabled returns true if the response cache is configured and enabled
func (c *Config) IsCacheEnabled() bool {
	return c.Cache != nil && c.Cache.Enabled
}

// GetTTLDuration returns the cache TTL as time.Duration
func (c *CacheConfig) GetTTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// ChainList returns the configured chains in config order.
func (c *Config) ChainList() []chain.Chain {
	chains := make([]chain.Chain, 0, len(c.Chains))
	for _, cc := range c.Chains {
		ch, err := chain.Parse(cc.Name)
		if err != nil {
			continue // validate rejected unknown names already
		}
		chains = append(chains, ch)
	}
	return chains
}

// EndpointMap returns the per-chain ranked endpoint lists.
func (c *Config) EndpointMap() map[chain.Chain][]string {
	m := make(map[chain.Chain][]string, len(c.Chains))
	for _, cc := range c.Chains {
		ch, err := chain.Parse(cc.Name)
		if err != nil {
			continue
		}
		m[ch] = cc.Endpoints
	}
	return m
}

// HistoryMap returns the per-chain history service base URLs.
func (c *Config) HistoryMap() map[chain.Chain]string {
	m := make(map[chain.Chain]string, len(c.Chains))
	for _, cc := range c.Chains {
		ch, err := chain.Parse(cc.Name)
		if err != nil {
			continue
		}
		m[ch] = cc.HistoryURL
	}
	return m
}
