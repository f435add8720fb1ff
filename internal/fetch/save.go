package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tonimelisma/odfetch/internal/graph"
	"github.com/tonimelisma/odfetch/internal/quickxor"
)

// Errors returned by Save.
var (
	ErrIsFolder     = errors.New("fetch: item is a folder")
	ErrHashMismatch = errors.New("fetch: downloaded content does not match remote hash")
)

// defaultHashRetries re-downloads once more after a mismatch before failing.
const defaultHashRetries = 1

const partialSuffix = ".partial"

// SaveResult reports a completed download.
type SaveResult struct {
	Path         string
	Size         int64
	QuickXorHash string
	HashVerified bool // false when the remote item carried no QuickXorHash
}

// LocalPath decides where Save writes item: localPath itself, or
// localPath/<name> when localPath is an existing directory. An empty
// localPath means the item's name in the working directory.
func LocalPath(localPath, name string) string {
	if localPath == "" {
		return name
	}

	if info, err := os.Stat(localPath); err == nil && info.IsDir() {
		return filepath.Join(localPath, name)
	}

	return localPath
}

// Save downloads a file item to localPath. Content is streamed to a
// ".partial" sibling, checked against the remote QuickXorHash when Graph
// reports one, stamped with the remote modification time, and renamed into
// place. A failed or mismatched download never leaves a file at localPath.
func (f *Fetcher) Save(ctx context.Context, item graph.SharedItem, localPath string) (*SaveResult, error) {
	if item.IsFolder {
		return nil, fmt.Errorf("%w: %s", ErrIsFolder, item.Name)
	}

	meta, err := f.api.GetItem(ctx, item.DriveID, item.ID)
	if err != nil {
		return nil, fmt.Errorf("getting metadata for %s: %w", item.Name, err)
	}

	if meta.IsFolder {
		return nil, fmt.Errorf("%w: %s", ErrIsFolder, item.Name)
	}

	targetPath := LocalPath(localPath, item.Name)

	f.logger.Debug("saving item",
		slog.String("drive_id", item.DriveID),
		slog.String("item_id", item.ID),
		slog.String("target", targetPath),
	)

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil { //nolint:mnd // standard dir perms
		return nil, fmt.Errorf("creating parent dir for %s: %w", targetPath, err)
	}

	partialPath := targetPath + partialSuffix

	var (
		localHash string
		size      int64
	)

	for attempt := range f.hashRetries + 1 {
		localHash, size, err = f.downloadToPartial(ctx, item, partialPath)
		if err != nil {
			return nil, err
		}

		if meta.QuickXorHash == "" || localHash == meta.QuickXorHash {
			break
		}

		os.Remove(partialPath)

		if attempt < f.hashRetries {
			f.logger.Warn("download hash mismatch, retrying",
				slog.String("target", targetPath),
				slog.Int("attempt", attempt+1),
				slog.String("local_hash", localHash),
				slog.String("remote_hash", meta.QuickXorHash),
			)

			continue
		}

		return nil, fmt.Errorf("%w: %s (local %s, remote %s)", ErrHashMismatch, targetPath, localHash, meta.QuickXorHash)
	}

	if meta.Size > 0 && size != meta.Size {
		f.logger.Warn("download size mismatch",
			slog.String("target", targetPath),
			slog.Int64("local_size", size),
			slog.Int64("remote_size", meta.Size),
		)
	}

	if !meta.ModifiedAt.IsZero() {
		if err := os.Chtimes(partialPath, meta.ModifiedAt, meta.ModifiedAt); err != nil {
			f.logger.Warn("failed to set mtime on partial",
				slog.String("target", targetPath),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := os.Rename(partialPath, targetPath); err != nil {
		os.Remove(partialPath)
		return nil, fmt.Errorf("renaming partial to %s: %w", targetPath, err)
	}

	f.logger.Info("saved item",
		slog.String("target", targetPath),
		slog.Int64("size", size),
		slog.Bool("hash_verified", meta.QuickXorHash != ""),
	)

	return &SaveResult{
		Path:         targetPath,
		Size:         size,
		QuickXorHash: localHash,
		HashVerified: meta.QuickXorHash != "",
	}, nil
}

// downloadToPartial streams the item into a fresh partial file while
// computing its QuickXorHash.
func (f *Fetcher) downloadToPartial(ctx context.Context, item graph.SharedItem, partialPath string) (string, int64, error) {
	file, err := os.OpenFile(partialPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644) //nolint:mnd // standard file perms
	if err != nil {
		return "", 0, fmt.Errorf("creating partial file %s: %w", partialPath, err)
	}

	h := quickxor.New()

	size, err := f.api.Download(ctx, item.DriveID, item.ID, io.MultiWriter(file, h))
	if err != nil {
		file.Close()
		os.Remove(partialPath)

		return "", 0, fmt.Errorf("downloading %s: %w", item.Name, err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(partialPath)

		return "", 0, fmt.Errorf("syncing partial file %s: %w", partialPath, err)
	}

	if err := file.Close(); err != nil {
		os.Remove(partialPath)
		return "", 0, fmt.Errorf("closing partial file %s: %w", partialPath, err)
	}

	return quickxor.Encode(h.Sum(nil)), size, nil
}
