package config

import (
	"log/slog"
	"os"
)

// Environment variable names for overrides.
const (
	EnvConfig       = "ODFETCH_CONFIG"
	EnvAccount      = "ODFETCH_ACCOUNT"
	EnvTenant       = "ODFETCH_TENANT"
	EnvAppID        = "ODFETCH_APP_ID"
	EnvClientSecret = "ODFETCH_CLIENT_SECRET" //nolint:gosec // variable name, not a credential
	EnvUsername     = "ODFETCH_USERNAME"
	EnvPassword     = "ODFETCH_PASSWORD" //nolint:gosec // variable name, not a credential
	EnvUser         = "ODFETCH_USER"
	EnvDriveID      = "ODFETCH_DRIVE_ID"
)

// EnvOverrides holds values read from environment variables. Account fields
// apply to the selected account only.
type EnvOverrides struct {
	ConfigPath string
	Account    string

	Tenant       string
	AppID        string
	ClientSecret string
	Username     string
	Password     string
	User         string
	DriveID      string
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. Only variable names are logged; values may be secrets.
func ReadEnvOverrides(logger *slog.Logger) EnvOverrides {
	env := EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		Account:      os.Getenv(EnvAccount),
		Tenant:       os.Getenv(EnvTenant),
		AppID:        os.Getenv(EnvAppID),
		ClientSecret: os.Getenv(EnvClientSecret),
		Username:     os.Getenv(EnvUsername),
		Password:     os.Getenv(EnvPassword),
		User:         os.Getenv(EnvUser),
		DriveID:      os.Getenv(EnvDriveID),
	}

	if env.hasAccountFields() {
		logger.Debug("environment overrides account settings", slog.Any("vars", env.setNames()))
	}

	return env
}

// setNames lists the per-account variables that are set.
func (e EnvOverrides) setNames() []string {
	var names []string

	for _, v := range []struct{ name, value string }{
		{EnvTenant, e.Tenant},
		{EnvAppID, e.AppID},
		{EnvClientSecret, e.ClientSecret},
		{EnvUsername, e.Username},
		{EnvPassword, e.Password},
		{EnvUser, e.User},
		{EnvDriveID, e.DriveID},
	} {
		if v.value != "" {
			names = append(names, v.name)
		}
	}

	return names
}

// hasAccountFields reports whether any per-account variable is set.
func (e EnvOverrides) hasAccountFields() bool {
	return e.Tenant != "" || e.AppID != "" || e.ClientSecret != "" ||
		e.Username != "" || e.Password != "" || e.User != "" || e.DriveID != ""
}

// apply overlays every non-empty account variable onto acct.
func (e EnvOverrides) apply(acct Account) Account {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	set(&acct.Tenant, e.Tenant)
	set(&acct.AppID, e.AppID)
	set(&acct.ClientSecret, e.ClientSecret)
	set(&acct.Username, e.Username)
	set(&acct.Password, e.Password)
	set(&acct.User, e.User)
	set(&acct.DriveID, e.DriveID)

	return acct
}
