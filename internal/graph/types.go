package graph

import (
	"encoding/json"
	"time"
)

// ChildCountUnknown indicates the child count was not present in the API response.
const ChildCountUnknown = -1

// Item represents a drive item (file, folder, or package).
// Fields are normalized from the Graph API response; callers never see raw API data.
type Item struct {
	ID           string
	Name         string
	DriveID      string
	ParentID     string
	ParentPath   string // Graph form, e.g. "/drives/{id}/root:/Documents"
	Size         int64
	ETag         string
	IsFolder     bool
	IsPackage    bool // OneNote packages have no downloadable content
	MimeType     string
	QuickXorHash string // base64-encoded
	SHA1Hash     string // hex (Personal accounts only)
	SHA256Hash   string // hex (Business accounts, sometimes)
	CreatedAt    time.Time
	ModifiedAt   time.Time
	ChildCount   int    // ChildCountUnknown if not present
	WebURL       string
	DownloadURL  string // pre-authenticated, ephemeral; NEVER log
}

// User is a Graph API user profile.
type User struct {
	ID          string
	DisplayName string
	Email       string
	UPN         string
}

// Drive is a OneDrive or SharePoint document library.
type Drive struct {
	ID         string
	Name       string
	DriveType  string // "personal", "business", or "documentLibrary"
	OwnerName  string
	WebURL     string
	QuotaUsed  int64
	QuotaTotal int64
}

// SharedItem describes one entry of a "shared with me" listing. DriveID,
// ParentPath, and Name come from the item's remoteItem facet when present,
// since that is where the shared content actually lives. Properties keeps
// the undecoded JSON object for callers that need fields not surfaced here.
type SharedItem struct {
	ID         string // remote item ID
	DriveID    string // drive containing the shared item, exactly as returned
	ParentPath string // Graph form, e.g. "/drives/{id}/root:/Reports"; may be empty
	Name       string
	IsFolder   bool
	Size       int64
	SharedBy   string
	ModifiedAt time.Time
	Properties json.RawMessage
}
