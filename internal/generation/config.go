package generation

import "time"

// Config holds the generation collaborator settings.
type Config struct {
	// BaseURL of the Messages API. default: https://api.anthropic.com
	BaseURL string `yaml:"base_url"`
	// APIKeyEnv names the environment variable holding the API key. default: ANTHROPIC_API_KEY
	APIKeyEnv string `yaml:"api_key_env"`
	// default: claude-3-7-sonnet-20250219
	Model string `yaml:"model"`
	// default: 900
	MaxTokens int `yaml:"max_tokens"`
	// default: 0.2
	Temperature float64 `yaml:"temperature"`
	// Timeout bounds one generation call. default: 30s
	Timeout time.Duration `yaml:"timeout"`
	// BreakerFailures is the number of consecutive failures that opens the breaker. default: 5
	BreakerFailures uint32 `yaml:"breaker_failures"`
	// BreakerOpenTimeout is how long the breaker stays open. default: 30s
	BreakerOpenTimeout time.Duration `yaml:"breaker_open_timeout"`
}

// DefaultConfig returns the default generation settings.
func DefaultConfig() Config {
	c := Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.anthropic.com"
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "ANTHROPIC_API_KEY"
	}
	if c.Model == "" {
		c.Model = "claude-3-7-sonnet-20250219"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 900
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.2
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerOpenTimeout <= 0 {
		c.BreakerOpenTimeout = 30 * time.Second
	}
}
