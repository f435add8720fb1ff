package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// sharedListResponse is one page of GET /me/drive/sharedWithMe. Entries are
// kept raw so each SharedItem can carry its full property bag.
type sharedListResponse struct {
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"@odata.nextLink"` //nolint:tagliatelle // OData annotation key
}

// sharedItemResponse mirrors the fields of a sharedWithMe entry we surface.
type sharedItemResponse struct {
	ID                   string              `json:"id"`
	Name                 string              `json:"name"`
	Size                 int64               `json:"size"`
	LastModifiedDateTime string              `json:"lastModifiedDateTime"`
	ParentReference      *parentRef          `json:"parentReference"`
	Folder               *folderFacet        `json:"folder"`
	RemoteItem           *remoteItemResponse `json:"remoteItem"`
}

// remoteItemResponse is the remoteItem facet: the item as it exists in the
// sharer's drive.
type remoteItemResponse struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	Size                 int64        `json:"size"`
	LastModifiedDateTime string       `json:"lastModifiedDateTime"`
	ParentReference      *parentRef   `json:"parentReference"`
	Folder               *folderFacet `json:"folder"`
	Shared               *sharedFacet `json:"shared"`
}

type sharedFacet struct {
	Owner    *identitySet `json:"owner"`
	SharedBy *identitySet `json:"sharedBy"`
}

type identitySet struct {
	User *struct {
		DisplayName string `json:"displayName"`
	} `json:"user"`
}

func (s *identitySet) displayName() string {
	if s == nil || s.User == nil {
		return ""
	}

	return s.User.DisplayName
}

// toSharedItem flattens a sharedWithMe entry, preferring remoteItem fields.
func (r *sharedItemResponse) toSharedItem(raw json.RawMessage, logger *slog.Logger) SharedItem {
	si := SharedItem{
		ID:         r.ID,
		Name:       r.Name,
		Size:       r.Size,
		IsFolder:   r.Folder != nil,
		Properties: raw,
	}

	modified := r.LastModifiedDateTime

	if r.ParentReference != nil {
		si.DriveID = r.ParentReference.DriveID
		si.ParentPath = r.ParentReference.Path
	}

	if ri := r.RemoteItem; ri != nil {
		si.ID = ri.ID

		if ri.Name != "" {
			si.Name = ri.Name
		}

		if ri.Size != 0 {
			si.Size = ri.Size
		}

		si.IsFolder = si.IsFolder || ri.Folder != nil

		if ri.ParentReference != nil {
			si.DriveID = ri.ParentReference.DriveID
			si.ParentPath = ri.ParentReference.Path
		}

		if ri.LastModifiedDateTime != "" {
			modified = ri.LastModifiedDateTime
		}

		if ri.Shared != nil {
			si.SharedBy = ri.Shared.SharedBy.displayName()
			if si.SharedBy == "" {
				si.SharedBy = ri.Shared.Owner.displayName()
			}
		}
	}

	si.ModifiedAt = parseTimestamp(modified, "lastModifiedDateTime", si.ID, logger)

	return si
}

// SharedWithMe lists the items shared with a user; "" means the signed-in
// user. All pages are fetched. The order of the Graph response is preserved
// and duplicates are kept: callers that search the listing rely on both.
func (c *Client) SharedWithMe(ctx context.Context, userID string) ([]SharedItem, error) {
	c.logger.Info("listing shared items", slog.String("user", userPath(userID)))

	apiPath := userPath(userID) + "/drive/sharedWithMe"

	var items []SharedItem

	page := 1

	for apiPath != "" {
		resp, err := c.Do(ctx, http.MethodGet, apiPath)
		if err != nil {
			return nil, err
		}

		var slr sharedListResponse
		if err := decodeJSON(resp, "shared items", &slr); err != nil {
			return nil, err
		}

		for i, raw := range slr.Value {
			var sir sharedItemResponse
			if err := json.Unmarshal(raw, &sir); err != nil {
				return nil, fmt.Errorf("graph: decoding shared item %d on page %d: %w", i, page, err)
			}

			items = append(items, sir.toSharedItem(raw, c.logger))
		}

		c.logger.Debug("fetched shared items page",
			slog.Int("page", page),
			slog.Int("count", len(slr.Value)),
		)

		apiPath, err = c.nextPath(slr.NextLink)
		if err != nil {
			return nil, err
		}

		page++
	}

	items = decodeURLEncodedNames(items, c.logger)

	c.logger.Info("listed shared items", slog.Int("total_items", len(items)))

	return items, nil
}
