// Package config loads client defaults from a YAML file, for programs
// that keep their fetch policy next to their other settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration unmarshals from strings like "30s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	// Timeout bounds each socket operation.
	Timeout Duration `yaml:"timeout"`
	// LengthLimit caps decoded response bodies, in bytes.
	LengthLimit int64 `yaml:"length_limit"`
	// MaxRedirects is followed when requests do not set their own.
	MaxRedirects int `yaml:"max_redirects"`
	// UserAgent replaces the built-in User-Agent string.
	UserAgent string `yaml:"user_agent"`
	// UserAgentFile points at a list of agent strings, one per line.
	UserAgentFile string `yaml:"user_agent_file"`
	// Proxies maps target schemes to proxy URLs.
	Proxies map[string]string `yaml:"proxies"`
	// NoProxy lists hosts and CIDR blocks that bypass the proxy.
	NoProxy []string `yaml:"no_proxy"`
	// DisableEnvProxy ignores http_proxy / https_proxy variables.
	DisableEnvProxy bool `yaml:"disable_env_proxy"`
	// SourceAddress is the local ip:port to bind outgoing connections to.
	SourceAddress string `yaml:"source_address"`
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate returns warnings for settings that look wrong but are
// survivable, and an error for ones that are not.
func (c *Config) Validate() ([]string, error) {
	if c.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative")
	}
	if c.LengthLimit < 0 {
		return nil, fmt.Errorf("length_limit must not be negative")
	}
	var warnings []string
	if c.MaxRedirects < 0 {
		warnings = append(warnings, "max_redirects is negative, redirects will not be followed")
	}
	for scheme := range c.Proxies {
		if scheme != "http" && scheme != "https" {
			warnings = append(warnings, fmt.Sprintf("proxy scheme %q is never used", scheme))
		}
	}
	if c.UserAgentFile != "" {
		if _, err := os.Stat(c.UserAgentFile); err != nil {
			warnings = append(warnings, fmt.Sprintf("user_agent_file %s is not readable", c.UserAgentFile))
		}
	}
	return warnings, nil
}
