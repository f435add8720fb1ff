package graph

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// userResponse mirrors the Graph API user JSON response.
// Callers see User, via toUser().
type userResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Mail        string `json:"mail"`
	// UPN is a fallback when mail is empty (common on service accounts
	// without a mailbox).
	UPN string `json:"userPrincipalName"`
}

// toUser normalizes a Graph API user response into our User type.
func (u *userResponse) toUser() User {
	email := u.Mail
	if email == "" {
		email = u.UPN
	}

	return User{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       email,
		UPN:         u.UPN,
	}
}

// driveResponse mirrors the Graph API drive JSON response.
// Callers see Drive, via toDrive().
type driveResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	DriveType string      `json:"driveType"`
	WebURL    string      `json:"webUrl"`
	Owner     *ownerFacet `json:"owner"`
	Quota     *quotaFacet `json:"quota"`
}

// ownerFacet represents the owner block in a Graph API drive response.
type ownerFacet struct {
	User struct {
		DisplayName string `json:"displayName"`
	} `json:"user"`
}

// quotaFacet represents the quota block in a Graph API drive response.
type quotaFacet struct {
	Used  int64 `json:"used"`
	Total int64 `json:"total"`
}

// toDrive normalizes a Graph API drive response into our Drive type.
// Nil-safe for optional owner and quota facets.
func (d *driveResponse) toDrive() Drive {
	drive := Drive{
		ID:        d.ID,
		Name:      d.Name,
		DriveType: d.DriveType,
		WebURL:    d.WebURL,
	}

	if d.Owner != nil {
		drive.OwnerName = d.Owner.User.DisplayName
	}

	if d.Quota != nil {
		drive.QuotaUsed = d.Quota.Used
		drive.QuotaTotal = d.Quota.Total
	}

	return drive
}

// userPath returns "/me" for the signed-in user, or "/users/{id}" when a user
// ID or UPN is given. App-only tokens have no "me" and must name a user.
func userPath(userID string) string {
	if userID == "" {
		return "/me"
	}

	return "/users/" + url.PathEscape(userID)
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	return c.User(ctx, "")
}

// User returns a user's profile by object ID or UPN; "" means the signed-in user.
func (c *Client) User(ctx context.Context, userID string) (*User, error) {
	c.logger.Info("fetching user profile", slog.String("user", userPath(userID)))

	resp, err := c.Do(ctx, http.MethodGet, userPath(userID))
	if err != nil {
		return nil, err
	}

	var ur userResponse
	if err := decodeJSON(resp, "user", &ur); err != nil {
		return nil, err
	}

	user := ur.toUser()

	c.logger.Debug("fetched user profile",
		slog.String("id", user.ID),
		slog.String("display_name", user.DisplayName),
	)

	return &user, nil
}

// Drive returns a specific drive by ID.
func (c *Client) Drive(ctx context.Context, driveID string) (*Drive, error) {
	c.logger.Info("fetching drive", slog.String("drive_id", driveID))

	return c.fetchDrive(ctx, fmt.Sprintf("/drives/%s", url.PathEscape(driveID)))
}

// UserDrive returns a user's default OneDrive; "" means the signed-in user.
func (c *Client) UserDrive(ctx context.Context, userID string) (*Drive, error) {
	c.logger.Info("fetching default drive", slog.String("user", userPath(userID)))

	return c.fetchDrive(ctx, userPath(userID)+"/drive")
}

func (c *Client) fetchDrive(ctx context.Context, apiPath string) (*Drive, error) {
	resp, err := c.Do(ctx, http.MethodGet, apiPath)
	if err != nil {
		return nil, err
	}

	var dr driveResponse
	if err := decodeJSON(resp, "drive", &dr); err != nil {
		return nil, err
	}

	drive := dr.toDrive()

	c.logger.Debug("fetched drive",
		slog.String("id", drive.ID),
		slog.String("name", drive.Name),
		slog.String("drive_type", drive.DriveType),
	)

	return &drive, nil
}
