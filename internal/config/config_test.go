package config

import (
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_AllFieldsPopulated(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "auto", cfg.LogFormat)
	assert.Equal(t, "10s", cfg.ConnectTimeout)
	assert.Equal(t, "60s", cfg.DataTimeout)
	assert.Equal(t, "30s", cfg.AuthTimeout)
	assert.Equal(t, "https://login.microsoftonline.com", cfg.AuthorityURL)
	assert.Equal(t, "https://graph.microsoft.com/v1.0", cfg.GraphURL)
	assert.InDelta(t, 10.0, cfg.RequestsPerSecond, 0.001)
	assert.Empty(t, cfg.UserAgent)
	assert.NotNil(t, cfg.Accounts)
	assert.Empty(t, cfg.Accounts)
}

func TestDefaultConfig_PassesValidation(t *testing.T) {
	require.NoError(t, Validate(DefaultConfig()))
}

func TestConfig_EmbeddedStructPromotion(t *testing.T) {
	cfg := DefaultConfig()

	cfg.LogLevel = "debug"
	assert.Equal(t, "debug", cfg.LoggingConfig.LogLevel)

	cfg.GraphURL = "https://example.test/v1.0"
	assert.Equal(t, "https://example.test/v1.0", cfg.NetworkConfig.GraphURL)
}

func TestConfig_DecodeFlatKeys(t *testing.T) {
	cfg := DefaultConfig()

	md, err := toml.Decode(`
log_format = "text"
auth_timeout = "45s"

[account.x]
user = "u@contoso.com"
`, cfg)
	require.NoError(t, err)
	assert.Empty(t, md.Undecoded())

	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "45s", cfg.AuthTimeout)
	assert.Equal(t, "u@contoso.com", cfg.Accounts["x"].User)
}
