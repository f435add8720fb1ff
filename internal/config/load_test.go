package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAppID = "11111111-2222-3333-4444-555555555555"

// testLogger returns a debug-level logger so config debug output appears in
// test output.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

// noEnv returns overrides that point at no config file and set nothing.
func noEnv(path string) EnvOverrides {
	return EnvOverrides{ConfigPath: path}
}

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeTestConfig(t, `
log_level = "debug"
log_format = "json"
connect_timeout = "5s"
data_timeout = "2m"
user_agent = "contoso-fetch/1.0"
requests_per_second = 4.5
graph_url = "https://graph.microsoft.us/v1.0"
auth_timeout = "15s"
authority_url = "https://login.microsoftonline.us"

[account.app]
tenant = "contoso.onmicrosoft.com"
app_id = "`+testAppID+`"
client_secret = "s3cret"
user = "reports@contoso.com"
drive_id = "b!abc"

[account.svc]
tenant = "contoso.onmicrosoft.com"
app_id = "`+testAppID+`"
username = "svc@contoso.com"
password = "hunter2"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "5s", cfg.ConnectTimeout)
	assert.Equal(t, "2m", cfg.DataTimeout)
	assert.Equal(t, "contoso-fetch/1.0", cfg.UserAgent)
	assert.InDelta(t, 4.5, cfg.RequestsPerSecond, 0.001)
	assert.Equal(t, "https://graph.microsoft.us/v1.0", cfg.GraphURL)
	assert.Equal(t, "15s", cfg.AuthTimeout)
	assert.Equal(t, "https://login.microsoftonline.us", cfg.AuthorityURL)

	require.Len(t, cfg.Accounts, 2)
	assert.Equal(t, "s3cret", cfg.Accounts["app"].ClientSecret)
	assert.Equal(t, "reports@contoso.com", cfg.Accounts["app"].User)
	assert.Equal(t, "b!abc", cfg.Accounts["app"].DriveID)
	assert.Equal(t, "svc@contoso.com", cfg.Accounts["svc"].Username)
}

func TestLoad_MinimalConfig_UsesDefaults(t *testing.T) {
	path := writeTestConfig(t, "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_MalformedTOML(t *testing.T) {
	path := writeTestConfig(t, "log_level = [")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestLoad_ValidationError(t *testing.T) {
	path := writeTestConfig(t, `log_level = "verbose"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoadOrDefault_FileNotFound(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOrDefault_EmptyPath(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, defaultLogLevel, cfg.LogLevel)
}

func TestConfigPath_Precedence(t *testing.T) {
	assert.Equal(t, "/cli.toml", ConfigPath(EnvOverrides{ConfigPath: "/env.toml"}, CLIOverrides{ConfigPath: "/cli.toml"}))
	assert.Equal(t, "/env.toml", ConfigPath(EnvOverrides{ConfigPath: "/env.toml"}, CLIOverrides{}))
	assert.Equal(t, DefaultConfigPath(), ConfigPath(EnvOverrides{}, CLIOverrides{}))
}

func TestResolve_SingleAccount_AutoSelect(t *testing.T) {
	path := writeTestConfig(t, `
[account.work]
tenant = "contoso.onmicrosoft.com"
app_id = "`+testAppID+`"
client_secret = "s3cret"
`)

	ra, err := Resolve(noEnv(path), CLIOverrides{})
	require.NoError(t, err)

	assert.Equal(t, "work", ra.Name)
	assert.Equal(t, "contoso.onmicrosoft.com", ra.Tenant)
	assert.Equal(t, 30*time.Second, ra.AuthTimeout)
	assert.Equal(t, 10*time.Second, ra.ConnectTimeout)
	assert.Equal(t, time.Minute, ra.DataTimeout)
	assert.Equal(t, defaultGraphURL, ra.GraphURL)
}

const twoAccounts = `
[account.default]
tenant = "contoso.onmicrosoft.com"
app_id = "` + testAppID + `"
client_secret = "s3cret"

[account.svc]
tenant = "fabrikam.onmicrosoft.com"
app_id = "` + testAppID + `"
username = "svc@fabrikam.com"
password = "hunter2"
`

func TestResolve_MultipleAccounts_PrefersDefault(t *testing.T) {
	path := writeTestConfig(t, twoAccounts)

	ra, err := Resolve(noEnv(path), CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "default", ra.Name)
}

func TestResolve_MultipleAccounts_NoDefault_Error(t *testing.T) {
	path := writeTestConfig(t, `
[account.a]
tenant = "t"
app_id = "`+testAppID+`"
client_secret = "x"

[account.b]
tenant = "t"
app_id = "`+testAppID+`"
client_secret = "y"
`)

	_, err := Resolve(noEnv(path), CLIOverrides{})
	require.ErrorIs(t, err, ErrAccountRequired)
	assert.Contains(t, err.Error(), "a, b")
}

func TestResolve_CLIAccountOverridesEnv(t *testing.T) {
	path := writeTestConfig(t, twoAccounts)
	env := noEnv(path)
	env.Account = "default"

	ra, err := Resolve(env, CLIOverrides{Account: "svc"})
	require.NoError(t, err)
	assert.Equal(t, "svc", ra.Name)
	assert.Equal(t, "fabrikam.onmicrosoft.com", ra.Tenant)
}

func TestResolve_EnvAccountSelector(t *testing.T) {
	path := writeTestConfig(t, twoAccounts)
	env := noEnv(path)
	env.Account = "svc"

	ra, err := Resolve(env, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "svc", ra.Name)
}

func TestResolve_UnknownAccount(t *testing.T) {
	path := writeTestConfig(t, twoAccounts)

	_, err := Resolve(noEnv(path), CLIOverrides{Account: "nope"})
	require.ErrorIs(t, err, ErrUnknownAccount)
	assert.Contains(t, err.Error(), "default, svc")
}

func TestResolve_CLIConfigPathOverridesEnv(t *testing.T) {
	good := writeTestConfig(t, twoAccounts)
	bad := writeTestConfig(t, "not valid toml [[[")

	ra, err := Resolve(noEnv(bad), CLIOverrides{ConfigPath: good})
	require.NoError(t, err)
	assert.Equal(t, "default", ra.Name)
}

func TestResolve_InvalidConfigFile(t *testing.T) {
	path := writeTestConfig(t, `data_timeout = "1s"`)

	_, err := Resolve(noEnv(path), CLIOverrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data_timeout")
}

func TestResolve_NoConfigFile_EnvOnly(t *testing.T) {
	env := EnvOverrides{
		ConfigPath:   filepath.Join(t.TempDir(), "missing.toml"),
		Tenant:       "contoso.onmicrosoft.com",
		AppID:        testAppID,
		ClientSecret: "from-env",
	}

	ra, err := Resolve(env, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, defaultAccountName, ra.Name)
	assert.Equal(t, "from-env", ra.ClientSecret)
}

func TestResolve_NoConfigFile_NamedAccount(t *testing.T) {
	env := EnvOverrides{
		ConfigPath: filepath.Join(t.TempDir(), "missing.toml"),
		Tenant:     "contoso.onmicrosoft.com",
		AppID:      testAppID,
		Username:   "svc@contoso.com",
		Password:   "pw",
	}

	ra, err := Resolve(env, CLIOverrides{Account: "ci"})
	require.NoError(t, err)
	assert.Equal(t, "ci", ra.Name)
}

func TestResolve_NoConfigFile_NoCredential(t *testing.T) {
	env := EnvOverrides{ConfigPath: filepath.Join(t.TempDir(), "missing.toml")}

	_, err := Resolve(env, CLIOverrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant: required")
	assert.Contains(t, err.Error(), "app_id: required")
}

func TestResolve_EnvOverridesAccountFields(t *testing.T) {
	path := writeTestConfig(t, `
[account.work]
tenant = "contoso.onmicrosoft.com"
app_id = "`+testAppID+`"
client_secret = "from-file"
user = "a@contoso.com"
`)

	env := noEnv(path)
	env.ClientSecret = "from-env"
	env.User = "b@contoso.com"

	ra, err := Resolve(env, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "from-env", ra.ClientSecret)
	assert.Equal(t, "b@contoso.com", ra.User)
	assert.Equal(t, "contoso.onmicrosoft.com", ra.Tenant)
}

func TestResolve_EnvPasswordMakesAccountAmbiguous(t *testing.T) {
	path := writeTestConfig(t, `
[account.work]
tenant = "contoso.onmicrosoft.com"
app_id = "`+testAppID+`"
client_secret = "from-file"
`)

	env := noEnv(path)
	env.Username = "svc@contoso.com"
	env.Password = "pw"

	_, err := Resolve(env, CLIOverrides{})
	require.ErrorIs(t, err, ErrAmbiguousCredential)
}

func TestResolveAll_SortedByName(t *testing.T) {
	path := writeTestConfig(t, twoAccounts)

	all, err := ResolveAll(noEnv(path), CLIOverrides{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "default", all[0].Name)
	assert.Equal(t, "svc", all[1].Name)
}

func TestResolveAll_IgnoresEnvAccountFields(t *testing.T) {
	path := writeTestConfig(t, twoAccounts)
	env := noEnv(path)
	env.ClientSecret = "from-env"

	all, err := ResolveAll(env, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "s3cret", all[0].ClientSecret)
	assert.Empty(t, all[1].ClientSecret)
}

func TestResolveAll_NoAccounts(t *testing.T) {
	path := writeTestConfig(t, "")

	_, err := ResolveAll(noEnv(path), CLIOverrides{})
	require.Error(t, err)
}

func TestResolveAll_ReportsIncompleteAccounts(t *testing.T) {
	path := writeTestConfig(t, `
[account.ok]
tenant = "t"
app_id = "`+testAppID+`"
client_secret = "x"

[account.broken]
app_id = "`+testAppID+`"
`)

	_, err := ResolveAll(noEnv(path), CLIOverrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `account "broken"`)
}

func TestResolveAccount_Unknown(t *testing.T) {
	_, err := ResolveAccount(DefaultConfig(), "ghost")
	require.ErrorIs(t, err, ErrUnknownAccount)
}

func TestResolveAccount_BadDuration(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataTimeout = "soon"
	cfg.Accounts["a"] = Account{}

	_, err := ResolveAccount(cfg, "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data_timeout")
}

func TestAccountNames_Sorted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Accounts = map[string]Account{"zeta": {}, "alpha": {}, "mid": {}}

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, AccountNames(cfg))
}
