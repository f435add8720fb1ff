package graph

import (
	"context"
	"io"
)

// API is the set of Graph operations odfetch performs. *Client implements
// it; packages that consume Graph data depend on this interface so tests can
// substitute an in-memory fake.
type API interface {
	Me(ctx context.Context) (*User, error)
	User(ctx context.Context, userID string) (*User, error)
	Drive(ctx context.Context, driveID string) (*Drive, error)
	UserDrive(ctx context.Context, userID string) (*Drive, error)
	SharedWithMe(ctx context.Context, userID string) ([]SharedItem, error)
	GetItem(ctx context.Context, driveID, itemID string) (*Item, error)
	GetItemByPath(ctx context.Context, driveID, remotePath string) (*Item, error)
	ListChildren(ctx context.Context, driveID, parentID string) ([]Item, error)
	Download(ctx context.Context, driveID, itemID string, w io.Writer) (int64, error)
}

var _ API = (*Client)(nil)
