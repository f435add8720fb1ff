// Package tokenfile exports acquired access tokens for hand-off to other
// tools and reads them back for inspection. odfetch never authenticates from
// an exported file: every run acquires a fresh token.
package tokenfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"

	"github.com/tonimelisma/odfetch/internal/graph"
)

// FilePerms restricts token files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the parent directory.
const DirPerms = 0o700

// ErrNoToken is returned by Load for files without a usable token.
var ErrNoToken = errors.New("tokenfile: missing access token")

// Meta describes where an exported token came from. It never holds secrets.
type Meta struct {
	Account    string    `json:"account,omitempty"`
	Grant      string    `json:"grant"`
	Tenant     string    `json:"tenant"`
	AppID      string    `json:"app_id"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// File is the on-disk format. The token uses the oauth2.Token JSON layout
// so other Go tools can decode it directly.
type File struct {
	Token *oauth2.Token `json:"token"`
	Meta  Meta          `json:"meta"`
}

// New builds a File from an acquired token.
func New(tok *graph.Token, cred graph.Credential, account string, now time.Time) *File {
	return &File{
		Token: &oauth2.Token{
			AccessToken: tok.AccessToken,
			TokenType:   "Bearer",
			Expiry:      tok.Expiry,
		},
		Meta: Meta{
			Account:    account,
			Grant:      tok.Grant.String(),
			Tenant:     cred.Tenant(),
			AppID:      cred.AppID(),
			AcquiredAt: now.UTC(),
		},
	}
}

// Load reads an exported token file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tokenfile: reading %s: %w", path, err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("tokenfile: decoding %s: %w", path, err)
	}

	if f.Token == nil || f.Token.AccessToken == "" {
		return nil, fmt.Errorf("%w in %s", ErrNoToken, path)
	}

	return &f, nil
}

// Claims decodes the claims of the exported access token.
func (f *File) Claims() (graph.TokenClaims, error) {
	return graph.ParseClaims(f.Token.AccessToken)
}

// Save writes f atomically (temp file, fsync, rename) with 0600 permissions.
// An existing file at path is replaced. Token values are never logged.
func Save(path string, f *File) error {
	if f == nil || f.Token == nil || f.Token.AccessToken == "" {
		return ErrNoToken
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenfile: encoding: %w", err)
	}

	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPerms); err != nil {
		return fmt.Errorf("tokenfile: creating directory %s: %w", dir, err)
	}

	// Same directory keeps the rename on one filesystem.
	tmp, err := os.CreateTemp(dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("tokenfile: renaming: %w", err)
	}

	success = true

	return nil
}
