package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrUnknownAccount is returned when the selected account is not defined.
var ErrUnknownAccount = errors.New("unknown account")

// ErrAccountRequired is returned when several accounts are defined and none
// is selected.
var ErrAccountRequired = errors.New("multiple accounts configured; select one with --account or " + EnvAccount)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal, with "did you mean?" suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if cfg.Accounts == nil {
		cfg.Accounts = make(map[string]Account)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values, so environment variables alone
// are enough to run.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// ConfigPath picks the config file path: CLI > env > platform default.
func ConfigPath(env EnvOverrides, cli CLIOverrides) string {
	if cli.ConfigPath != "" {
		return cli.ConfigPath
	}

	if env.ConfigPath != "" {
		return env.ConfigPath
	}

	return DefaultConfigPath()
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags.
// It returns one fully resolved and validated account.
func Resolve(env EnvOverrides, cli CLIOverrides) (*ResolvedAccount, error) {
	cfg, err := LoadOrDefault(ConfigPath(env, cli))
	if err != nil {
		return nil, err
	}

	return ResolveFrom(cfg, env, cli)
}

// ResolveFrom is Resolve for an already loaded Config.
func ResolveFrom(cfg *Config, env EnvOverrides, cli CLIOverrides) (*ResolvedAccount, error) {
	requested := cli.Account
	if requested == "" {
		requested = env.Account
	}

	// With no accounts on file, synthesize one so a fully env-driven run
	// (CI, containers) works without a config file.
	if len(cfg.Accounts) == 0 {
		name := defaultAccountName
		if requested != "" {
			name = requested
		}

		cfg.Accounts = map[string]Account{name: {}}
	}

	name, err := selectAccount(cfg, requested)
	if err != nil {
		return nil, err
	}

	resolved, err := ResolveAccount(cfg, name)
	if err != nil {
		return nil, err
	}

	resolved.Account = env.apply(resolved.Account)

	if err := ValidateResolved(resolved); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return resolved, nil
}

// ResolveAll resolves every account defined in the config file, sorted by
// name. Environment account variables are not applied: they describe a
// single identity and would silently replace every account's fields.
func ResolveAll(env EnvOverrides, cli CLIOverrides) ([]*ResolvedAccount, error) {
	cfg, err := LoadOrDefault(ConfigPath(env, cli))
	if err != nil {
		return nil, err
	}

	if len(cfg.Accounts) == 0 {
		return nil, errors.New("no accounts configured")
	}

	names := AccountNames(cfg)
	out := make([]*ResolvedAccount, 0, len(names))

	var errs []error

	for _, name := range names {
		resolved, err := ResolveAccount(cfg, name)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		if err := ValidateResolved(resolved); err != nil {
			errs = append(errs, fmt.Errorf("account %q: %w", name, err))

			continue
		}

		out = append(out, resolved)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config validation: %w", errors.Join(errs...))
	}

	return out, nil
}

// selectAccount picks the account name: an explicit request wins, then a
// sole account, then one named "default".
func selectAccount(cfg *Config, requested string) (string, error) {
	if requested != "" {
		if _, ok := cfg.Accounts[requested]; !ok {
			return "", fmt.Errorf("%w %q (configured: %s)",
				ErrUnknownAccount, requested, strings.Join(AccountNames(cfg), ", "))
		}

		return requested, nil
	}

	if len(cfg.Accounts) == 1 {
		for name := range cfg.Accounts {
			return name, nil
		}
	}

	if _, ok := cfg.Accounts[defaultAccountName]; ok {
		return defaultAccountName, nil
	}

	return "", fmt.Errorf("%w (configured: %s)", ErrAccountRequired, strings.Join(AccountNames(cfg), ", "))
}

// AccountNames returns the configured account names in sorted order.
func AccountNames(cfg *Config) []string {
	names := make([]string, 0, len(cfg.Accounts))
	for name := range cfg.Accounts {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// ResolveAccount merges global settings with the named account. Durations
// were validated at load time; a parse failure here means the Config was
// built by hand and is reported rather than defaulted.
func ResolveAccount(cfg *Config, name string) (*ResolvedAccount, error) {
	acct, ok := cfg.Accounts[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownAccount, name)
	}

	authTimeout, err := time.ParseDuration(cfg.AuthTimeout)
	if err != nil {
		return nil, fmt.Errorf("auth_timeout: %w", err)
	}

	connectTimeout, err := time.ParseDuration(cfg.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect_timeout: %w", err)
	}

	dataTimeout, err := time.ParseDuration(cfg.DataTimeout)
	if err != nil {
		return nil, fmt.Errorf("data_timeout: %w", err)
	}

	return &ResolvedAccount{
		Name:              name,
		Account:           acct,
		LogLevel:          cfg.LogLevel,
		LogFormat:         cfg.LogFormat,
		AuthTimeout:       authTimeout,
		AuthorityURL:      cfg.AuthorityURL,
		ConnectTimeout:    connectTimeout,
		DataTimeout:       dataTimeout,
		UserAgent:         cfg.UserAgent,
		RequestsPerSecond: cfg.RequestsPerSecond,
		GraphURL:          cfg.GraphURL,
	}, nil
}
