package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// listChildrenPageSize is the $top value for ListChildren requests.
// 200 is the maximum allowed by the Graph API for drive item collections.
const listChildrenPageSize = 200

// Timestamp validation bounds. Timestamps outside this range are replaced
// with the zero time and a warning is logged.
const (
	minValidYear = 1970
	maxValidYear = 2100
)

// encodePathSegments URL-encodes each segment of a slash-separated path.
// Characters like #, ?, %, and spaces are encoded per-segment so the
// resulting path is safe for interpolation into Graph API URLs.
func encodePathSegments(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return strings.Join(segments, "/")
}

// driveItemResponse mirrors the Graph API driveItem JSON.
// Callers see Item, via toItem().
type driveItemResponse struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name"`
	Size                 int64            `json:"size"`
	ETag                 string           `json:"eTag"`
	WebURL               string           `json:"webUrl"`
	CreatedDateTime      string           `json:"createdDateTime"`
	LastModifiedDateTime string           `json:"lastModifiedDateTime"`
	ParentReference      *parentRef       `json:"parentReference"`
	File                 *fileFacet       `json:"file"`
	Folder               *folderFacet     `json:"folder"`
	Package              *json.RawMessage `json:"package"`
	DownloadURL          string           `json:"@microsoft.graph.downloadUrl"` //nolint:tagliatelle // Graph API annotation key
}

type parentRef struct {
	ID      string `json:"id"`
	DriveID string `json:"driveId"`
	Path    string `json:"path"`
}

type fileFacet struct {
	MimeType string     `json:"mimeType"`
	Hashes   *hashFacet `json:"hashes"`
}

type hashFacet struct {
	QuickXorHash string `json:"quickXorHash"`
	SHA1Hash     string `json:"sha1Hash"`
	SHA256Hash   string `json:"sha256Hash"`
}

type folderFacet struct {
	ChildCount int `json:"childCount"`
}

type listChildrenResponse struct {
	Value    []driveItemResponse `json:"value"`
	NextLink string              `json:"@odata.nextLink"` //nolint:tagliatelle // OData annotation key
}

// toItem normalizes a Graph API driveItem response into our Item type.
func (d *driveItemResponse) toItem(logger *slog.Logger) Item {
	item := Item{
		ID:          d.ID,
		Name:        d.Name,
		Size:        d.Size,
		ETag:        d.ETag,
		WebURL:      d.WebURL,
		IsFolder:    d.Folder != nil,
		IsPackage:   d.Package != nil,
		ChildCount:  ChildCountUnknown,
		DownloadURL: d.DownloadURL,
	}

	if d.ParentReference != nil {
		item.DriveID = d.ParentReference.DriveID
		item.ParentID = d.ParentReference.ID
		item.ParentPath = d.ParentReference.Path
	}

	if d.Folder != nil {
		item.ChildCount = d.Folder.ChildCount
	}

	// Hashes are optional at every level.
	if d.File != nil {
		item.MimeType = d.File.MimeType

		if d.File.Hashes != nil {
			item.QuickXorHash = d.File.Hashes.QuickXorHash
			item.SHA1Hash = d.File.Hashes.SHA1Hash
			item.SHA256Hash = d.File.Hashes.SHA256Hash
		}
	}

	item.CreatedAt = parseTimestamp(d.CreatedDateTime, "createdDateTime", d.ID, logger)
	item.ModifiedAt = parseTimestamp(d.LastModifiedDateTime, "lastModifiedDateTime", d.ID, logger)

	return item
}

// parseTimestamp parses an RFC3339 timestamp and validates the year range.
// Missing, invalid, or out-of-range timestamps yield the zero time. Display
// code treats zero as "unknown"; nothing in odfetch writes these back.
func parseTimestamp(raw, field, itemID string, logger *slog.Logger) time.Time {
	if raw == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.Warn("invalid timestamp, ignoring",
			slog.String("field", field),
			slog.String("item_id", itemID),
			slog.String("raw", raw),
			slog.String("error", err.Error()),
		)

		return time.Time{}
	}

	if t.Year() < minValidYear || t.Year() > maxValidYear {
		logger.Warn("timestamp out of valid range, ignoring",
			slog.String("field", field),
			slog.String("item_id", itemID),
			slog.String("raw", raw),
		)

		return time.Time{}
	}

	return t
}

// decodeJSON decodes a successful response body and closes it.
func decodeJSON(resp *http.Response, what string, v any) error {
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("graph: decoding %s response: %w", what, err)
	}

	return nil
}

// fetchItem fetches a single drive item from the given API path and decodes it.
// Shared by GetItem (ID-based) and GetItemByPath (path-based).
func (c *Client) fetchItem(ctx context.Context, apiPath string) (*Item, error) {
	resp, err := c.Do(ctx, http.MethodGet, apiPath)
	if err != nil {
		return nil, err
	}

	var dir driveItemResponse
	if err := decodeJSON(resp, "item", &dir); err != nil {
		return nil, err
	}

	item := dir.toItem(c.logger)

	return &item, nil
}

// GetItem retrieves a single drive item by ID.
func (c *Client) GetItem(ctx context.Context, driveID, itemID string) (*Item, error) {
	c.logger.Info("getting item",
		slog.String("drive_id", driveID),
		slog.String("item_id", itemID),
	)

	return c.fetchItem(ctx, fmt.Sprintf("/drives/%s/items/%s", url.PathEscape(driveID), url.PathEscape(itemID)))
}

// GetItemByPath retrieves a drive item by its path relative to the drive root.
// Leading and trailing slashes are ignored; an empty path is the root itself.
func (c *Client) GetItemByPath(ctx context.Context, driveID, remotePath string) (*Item, error) {
	clean := strings.Trim(remotePath, "/")
	if clean == "" {
		return c.GetItem(ctx, driveID, "root")
	}

	c.logger.Info("getting item by path",
		slog.String("drive_id", driveID),
		slog.String("path", clean),
	)

	return c.fetchItem(ctx, fmt.Sprintf("/drives/%s/root:/%s:", url.PathEscape(driveID), encodePathSegments(clean)))
}

// ListChildren returns all children of a folder, handling pagination automatically.
func (c *Client) ListChildren(ctx context.Context, driveID, parentID string) ([]Item, error) {
	c.logger.Info("listing children",
		slog.String("drive_id", driveID),
		slog.String("parent_id", parentID),
	)

	apiPath := fmt.Sprintf("/drives/%s/items/%s/children?$top=%d",
		url.PathEscape(driveID), url.PathEscape(parentID), listChildrenPageSize)

	var items []Item

	page := 1

	for apiPath != "" {
		resp, err := c.Do(ctx, http.MethodGet, apiPath)
		if err != nil {
			return nil, err
		}

		var lcr listChildrenResponse
		if err := decodeJSON(resp, "children", &lcr); err != nil {
			return nil, err
		}

		for i := range lcr.Value {
			items = append(items, lcr.Value[i].toItem(c.logger))
		}

		c.logger.Debug("fetched children page",
			slog.Int("page", page),
			slog.Int("count", len(lcr.Value)),
		)

		apiPath, err = c.nextPath(lcr.NextLink)
		if err != nil {
			return nil, err
		}

		page++
	}

	c.logger.Info("listed children complete",
		slog.String("drive_id", driveID),
		slog.String("parent_id", parentID),
		slog.Int("total_items", len(items)),
	)

	return items, nil
}

// nextPath converts an @odata.nextLink into a path for Do. An empty link
// yields an empty path, which ends pagination.
func (c *Client) nextPath(nextLink string) (string, error) {
	if nextLink == "" {
		return "", nil
	}

	return c.stripBaseURL(nextLink)
}

// stripBaseURL removes the client's base URL prefix from a full URL,
// returning the path + query string for use with Do().
// Returns an error if the URL doesn't start with the expected base.
func (c *Client) stripBaseURL(fullURL string) (string, error) {
	if !strings.HasPrefix(fullURL, c.baseURL) {
		return "", fmt.Errorf("graph: nextLink URL %q does not match base URL %q", fullURL, c.baseURL)
	}

	return fullURL[len(c.baseURL):], nil
}
