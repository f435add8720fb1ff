// Package fetch is the convenience layer over the Graph client: it finds a
// shared item by drive, directory and name, saves files to disk with hash
// verification, and lists folders. The CLI uses it for `get`; everything it
// does can also be done directly through graph.API.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/odfetch/internal/graph"
	"github.com/tonimelisma/odfetch/internal/locate"
)

// ErrNotFolder is returned by List for items that are not folders.
var ErrNotFolder = errors.New("fetch: item is not a folder")

// Fetcher runs lookups and transfers against one Graph API.
type Fetcher struct {
	api    graph.API
	logger *slog.Logger

	// hashRetries is how many times Save re-downloads after a hash mismatch.
	hashRetries int
}

// New creates a Fetcher.
func New(api graph.API, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		api:         api,
		logger:      logger,
		hashRetries: defaultHashRetries,
	}
}

// Locate lists the items shared with userID ("" for the signed-in user) and
// returns the first one matching target. found is false when nothing
// matches; err is only set when the listing itself fails.
func (f *Fetcher) Locate(ctx context.Context, userID string, target locate.Target) (graph.SharedItem, bool, error) {
	f.warnIfNotNFC(target)

	items, err := f.api.SharedWithMe(ctx, userID)
	if err != nil {
		return graph.SharedItem{}, false, fmt.Errorf("listing shared items: %w", err)
	}

	item, found := locate.Find(items, target)

	f.logger.Debug("located shared item",
		slog.String("target", target.String()),
		slog.Int("candidates", len(items)),
		slog.Bool("found", found),
	)

	return item, found, nil
}

// List returns the children of a located folder.
func (f *Fetcher) List(ctx context.Context, item graph.SharedItem) ([]graph.Item, error) {
	if !item.IsFolder {
		return nil, fmt.Errorf("%w: %s", ErrNotFolder, item.Name)
	}

	children, err := f.api.ListChildren(ctx, item.DriveID, item.ID)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", item.Name, err)
	}

	return children, nil
}

// warnIfNotNFC flags targets that cannot match byte-for-byte because
// OneDrive stores names in NFC. Matching itself is left exact.
func (f *Fetcher) warnIfNotNFC(target locate.Target) {
	if norm.NFC.IsNormalString(target.Directory) && norm.NFC.IsNormalString(target.FileName) {
		return
	}

	f.logger.Warn("target path is not in Unicode NFC form; OneDrive names are NFC, so it may not match",
		slog.String("path", target.Path()),
		slog.String("nfc_path", norm.NFC.String(target.Path())),
	)
}
