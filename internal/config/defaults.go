package config

import "github.com/tonimelisma/odfetch/internal/graph"

// Default values for configuration options. These are layer 0 of the
// override chain.
const (
	defaultLogLevel          = "info"
	defaultLogFormat         = "auto"
	defaultAuthTimeout       = "30s"
	defaultAuthorityURL      = graph.DefaultAuthority
	defaultConnectTimeout    = "10s"
	defaultDataTimeout       = "60s"
	defaultRequestsPerSecond = graph.DefaultRequestsPerSecond
	defaultGraphURL          = graph.DefaultBaseURL
	defaultAccountName       = "default"
)

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding, so unset keys keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		LoggingConfig: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		NetworkConfig: NetworkConfig{
			ConnectTimeout:    defaultConnectTimeout,
			DataTimeout:       defaultDataTimeout,
			RequestsPerSecond: defaultRequestsPerSecond,
			GraphURL:          defaultGraphURL,
		},
		AuthConfig: AuthConfig{
			AuthTimeout:  defaultAuthTimeout,
			AuthorityURL: defaultAuthorityURL,
		},
		Accounts: make(map[string]Account),
	}
}
