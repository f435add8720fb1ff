package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrive_ByID(t *testing.T) {
	fs := newFakeService(t)
	writeCLIConfig(t, fs, "")

	out, err := runCLI(t, "--account", "app", "drive", "drive-abc")
	require.NoError(t, err)
	assert.Contains(t, out, "ID:    drive-abc")
	assert.Contains(t, out, "Quota: 1.0 MB / 1.0 GB")
}

func TestDrive_SignedInUserDefault(t *testing.T) {
	fs := newFakeService(t)
	writeCLIConfig(t, fs, "")

	out, err := runCLI(t, "--account", "svc", "--json", "drive")
	require.NoError(t, err)

	var got driveOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "drive-own", got.ID)
	assert.Equal(t, "business", got.DriveType)
	assert.Equal(t, "Report Reader", got.Owner)
}

func TestDrive_ConfiguredDriveID(t *testing.T) {
	fs := newFakeService(t)
	writeCLIConfig(t, fs, "")
	t.Setenv("ODFETCH_DRIVE_ID", "drive-configured")

	out, err := runCLI(t, "--account", "app", "drive")
	require.NoError(t, err)
	assert.Contains(t, out, "drive-configured")
}

func TestDrive_AppOnlyNeedsUser(t *testing.T) {
	fs := newFakeService(t)
	writeCLIConfig(t, fs, "")

	_, err := runCLI(t, "--account", "app", "drive")
	require.ErrorIs(t, err, errAppOnlyNeedsUser)
}
