// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for odfetch. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags) and
// any number of named accounts, each holding exactly one credential.
package config

import (
	"time"
)

// Config is the top-level configuration structure parsed from a TOML file.
// Global settings are flat top-level keys; accounts live in
// [account.<name>] tables.
type Config struct {
	LoggingConfig
	NetworkConfig
	AuthConfig

	Accounts map[string]Account `toml:"account"`
}

// LoggingConfig controls log level and format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// NetworkConfig controls the Graph API HTTP client.
type NetworkConfig struct {
	ConnectTimeout    string  `toml:"connect_timeout"`
	DataTimeout       string  `toml:"data_timeout"`
	UserAgent         string  `toml:"user_agent"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	GraphURL          string  `toml:"graph_url"`
}

// AuthConfig controls token acquisition.
type AuthConfig struct {
	AuthTimeout  string `toml:"auth_timeout"`
	AuthorityURL string `toml:"authority_url"`
}

// Account is one [account.<name>] table. A usable account sets either
// client_secret (application identity) or username and password (service
// account), never both.
type Account struct {
	Tenant       string `toml:"tenant"`
	AppID        string `toml:"app_id"`
	ClientSecret string `toml:"client_secret"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	User         string `toml:"user"`     // default --user for Graph calls; empty means /me
	DriveID      string `toml:"drive_id"` // default drive for `drive`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Empty strings mean "not specified".
type CLIOverrides struct {
	ConfigPath string // --config flag
	Account    string // --account flag
}

// ResolvedAccount is the fully merged result for one account: global
// settings with durations parsed, plus the account's own fields after
// environment overrides.
type ResolvedAccount struct {
	Name string
	Account

	LogLevel  string
	LogFormat string

	AuthTimeout    time.Duration
	AuthorityURL   string
	ConnectTimeout time.Duration
	DataTimeout    time.Duration

	UserAgent         string
	RequestsPerSecond float64
	GraphURL          string
}
