package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_UnknownKey_TopLevel(t *testing.T) {
	path := writeTestConfig(t, `log_levle = "debug"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config key "log_levle"`)
	assert.Contains(t, err.Error(), `did you mean "log_level"?`)
}

func TestLoad_UnknownKey_InAccount(t *testing.T) {
	path := writeTestConfig(t, `
[account.work]
tenant = "contoso.onmicrosoft.com"
client_secert = "x"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config key "client_secert" in [account.work]`)
	assert.Contains(t, err.Error(), `did you mean "client_secret"?`)
}

func TestLoad_UnknownKey_NoSuggestion(t *testing.T) {
	path := writeTestConfig(t, `completely_unrelated = true`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config key "completely_unrelated"`)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestLoad_UnknownKey_ReportsAll(t *testing.T) {
	path := writeTestConfig(t, `
log_levl = "info"
data_timout = "60s"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_levl")
	assert.Contains(t, err.Error(), "data_timout")
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"log_level", "log_level", 0},
		{"log_levle", "log_level", 2},
		{"app_di", "app_id", 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "levenshtein(%q, %q)", tt.a, tt.b)
	}
}

func TestClosestMatch_Found(t *testing.T) {
	assert.Equal(t, "tenant", closestMatch("tenent", knownAccountKeys))
	assert.Equal(t, "graph_url", closestMatch("GRAPH_URL", knownGlobalKeys))
}

func TestClosestMatch_NotFound(t *testing.T) {
	assert.Empty(t, closestMatch("zzzzzzzzzz", knownGlobalKeys))
}

func TestKnownKeys_Sorted(t *testing.T) {
	assert.IsNonDecreasing(t, knownGlobalKeys)
	assert.IsNonDecreasing(t, knownAccountKeys)
}
