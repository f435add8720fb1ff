package locate

import (
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/tonimelisma/odfetch/internal/graph"
)

// Graph reports parentReference.path in one of these forms:
//
//	/drives/{drive-id}/root:/a/b
//	/drive/root:/a/b
const (
	drivesPrefix = "/drives/"
	drivePrefix  = "/drive/root:"
	rootMarker   = "/root:"
)

// NormalizeParentPath converts a Graph parentReference.path into a plain
// directory path rooted at "/". The drive prefix is stripped and the rest
// percent-decoded; an empty remainder is the root. Paths not in Graph form
// are only cleaned.
func NormalizeParentPath(raw string) string {
	rest := raw

	switch {
	case strings.HasPrefix(raw, drivePrefix):
		rest = raw[len(drivePrefix):]
	case strings.HasPrefix(raw, drivesPrefix):
		if i := strings.Index(raw, rootMarker); i >= 0 {
			rest = raw[i+len(rootMarker):]
		}
	}

	if decoded, err := url.PathUnescape(rest); err == nil {
		rest = decoded
	}

	if rest == "" {
		return "/"
	}

	return path.Clean("/" + rest)
}

// Find returns the first item whose drive ID, normalized parent path, and
// name all equal target's, compared exactly and case-sensitively in that
// order. Items are scanned in input order and scanning stops at the first
// match, so later duplicates are never inspected.
func Find(items []graph.SharedItem, target Target) (graph.SharedItem, bool) {
	i := slices.IndexFunc(items, func(it graph.SharedItem) bool {
		return Matches(it, target)
	})
	if i < 0 {
		return graph.SharedItem{}, false
	}

	return items[i], true
}

// Matches reports whether item is the one target names.
func Matches(item graph.SharedItem, target Target) bool {
	if item.DriveID != target.DriveID {
		return false
	}

	if NormalizeParentPath(item.ParentPath) != target.Directory {
		return false
	}

	return item.Name == target.FileName
}
