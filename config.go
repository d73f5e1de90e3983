package urlfetch

import (
	"github.com/go-urlfetch/urlfetch/internal/config"
)

// Config is the YAML-backed client configuration.
type Config = config.Config

// LoadConfig reads a [Config] from a YAML file.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// NewClient builds a [Client] from a loaded configuration. A nil config
// yields a client with built-in defaults.
func NewClient(cfg *Config) *Client {
	if cfg == nil {
		return &Client{}
	}
	return &Client{
		Timeout:         cfg.Timeout.Std(),
		LengthLimit:     cfg.LengthLimit,
		MaxRedirects:    cfg.MaxRedirects,
		UserAgent:       cfg.UserAgent,
		UserAgentFile:   cfg.UserAgentFile,
		Proxies:         cfg.Proxies,
		NoProxy:         cfg.NoProxy,
		DisableEnvProxy: cfg.DisableEnvProxy,
		SourceAddress:   cfg.SourceAddress,
	}
}
