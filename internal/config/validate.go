package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Validation minimums.
const (
	minAuthTimeout    = 1 * time.Second
	minConnectTimeout = 1 * time.Second
	minDataTimeout    = 5 * time.Second
)

// Validate checks all configuration values and returns all errors found,
// so users can fix every issue in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)
	errs = append(errs, validateNetwork(&cfg.NetworkConfig)...)
	errs = append(errs, validateAuth(&cfg.AuthConfig)...)

	for _, name := range AccountNames(cfg) {
		errs = append(errs, validateAccount(name, cfg.Accounts[name])...)
	}

	return errors.Join(errs...)
}

// ValidateResolved checks the fully merged account after environment
// overrides. A resolved account must carry a complete, unambiguous credential.
func ValidateResolved(ra *ResolvedAccount) error {
	var errs []error

	if ra.Tenant == "" {
		errs = append(errs, fmt.Errorf("tenant: required (set it in [account.%s] or %s)", ra.Name, EnvTenant))
	}

	if ra.AppID == "" {
		errs = append(errs, fmt.Errorf("app_id: required (set it in [account.%s] or %s)", ra.Name, EnvAppID))
	}

	errs = append(errs, validateAccount(ra.Name, ra.Account)...)

	if len(errs) == 0 {
		if _, err := ra.Credential(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// validateAccount checks the fields of one account that can be judged
// before overrides are applied.
func validateAccount(name string, a Account) []error {
	var errs []error

	if a.AppID != "" {
		if _, err := uuid.Parse(a.AppID); err != nil {
			errs = append(errs, fmt.Errorf("account %q: app_id: must be a GUID, got %q", name, a.AppID))
		}
	}

	if a.ClientSecret != "" && (a.Username != "" || a.Password != "") {
		errs = append(errs, fmt.Errorf("account %q: %w", name, ErrAmbiguousCredential))
	}

	if (a.Username == "") != (a.Password == "") && a.ClientSecret == "" {
		errs = append(errs, fmt.Errorf("account %q: username and password must be set together", name))
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	errs = append(errs, validateLogLevel(l.LogLevel)...)
	errs = append(errs, validateLogFormat(l.LogFormat)...)

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("log_format: must be one of auto, text, json; got %q", format)}
	}

	return nil
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	errs = append(errs, validateDurationMin("connect_timeout", n.ConnectTimeout, minConnectTimeout)...)
	errs = append(errs, validateDurationMin("data_timeout", n.DataTimeout, minDataTimeout)...)
	errs = append(errs, validateAbsoluteURL("graph_url", n.GraphURL)...)

	if n.RequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("requests_per_second: must be > 0, got %g", n.RequestsPerSecond))
	}

	return errs
}

func validateAuth(a *AuthConfig) []error {
	var errs []error

	errs = append(errs, validateDurationMin("auth_timeout", a.AuthTimeout, minAuthTimeout)...)
	errs = append(errs, validateAbsoluteURL("authority_url", a.AuthorityURL)...)

	return errs
}

func validateDurationMin(field, value string, minimum time.Duration) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid duration %q: %w", field, value, err)}
	}

	if d < minimum {
		return []error{fmt.Errorf("%s: must be >= %s, got %s", field, minimum, d)}
	}

	return nil
}

func validateAbsoluteURL(field, value string) []error {
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return []error{fmt.Errorf("%s: must be an absolute URL, got %q", field, value)}
	}

	return nil
}
