package tokenfile

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/odfetch/internal/graph"
)

const testAppID = "11111111-2222-3333-4444-555555555555"

func testFile(t *testing.T, accessToken string) *File {
	t.Helper()

	cred, err := graph.NewClientSecret("contoso.onmicrosoft.com", testAppID, "s3cret")
	require.NoError(t, err)

	tok := &graph.Token{
		AccessToken: accessToken,
		Expiry:      time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC),
		Grant:       graph.GrantClientCredentials,
	}

	return New(tok, cred, "work", time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC))
}

func TestNew_Meta(t *testing.T) {
	f := testFile(t, "access-123")

	assert.Equal(t, "Bearer", f.Token.TokenType)
	assert.Equal(t, "work", f.Meta.Account)
	assert.Equal(t, "client_credentials", f.Meta.Grant)
	assert.Equal(t, "contoso.onmicrosoft.com", f.Meta.Tenant)
	assert.Equal(t, testAppID, f.Meta.AppID)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	original := testFile(t, "access-123")

	require.NoError(t, Save(path, original))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "access-123", loaded.Token.AccessToken)
	assert.True(t, loaded.Token.Expiry.Equal(original.Token.Expiry))
	assert.Equal(t, original.Meta.AppID, loaded.Meta.AppID)
	assert.True(t, loaded.Meta.AcquiredAt.Equal(original.Meta.AcquiredAt))
}

func TestSave_NeverWritesSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, Save(path, testFile(t, "access-123")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "s3cret")
}

func TestSave_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions only")
	}

	dir := filepath.Join(t.TempDir(), "nested", "tokens")
	path := filepath.Join(dir, "token.json")

	require.NoError(t, Save(path, testFile(t, "a")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(DirPerms), dirInfo.Mode().Perm())
}

func TestSave_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	require.NoError(t, Save(path, testFile(t, "first")))
	require.NoError(t, Save(path, testFile(t, "second")))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "second", loaded.Token.AccessToken)
}

func TestSave_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(filepath.Join(dir, "token.json"), testFile(t, "a")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "token.json", entries[0].Name())
}

func TestSave_EmptyToken(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "token.json"), &File{})
	require.ErrorIs(t, err, ErrNoToken)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_MissingTokenField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"meta":{"grant":"password"}}`), 0o600))

	_, err := Load(path)
	require.ErrorIs(t, err, ErrNoToken)
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json}`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding")
}

func TestFile_Claims(t *testing.T) {
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"tid":   "tenant-guid",
		"appid": testAppID,
		"idtyp": "app",
		"roles": []string{"Files.Read.All"},
	}).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	claims, err := testFile(t, access).Claims()
	require.NoError(t, err)
	assert.Equal(t, "tenant-guid", claims.TenantID)
	assert.True(t, claims.AppOnly())
	assert.Equal(t, []string{"Files.Read.All"}, claims.Permissions())
}

func TestFile_Claims_Opaque(t *testing.T) {
	_, err := testFile(t, "not-a-jwt").Claims()
	require.ErrorIs(t, err, graph.ErrOpaqueToken)
}
