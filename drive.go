package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/odfetch/internal/graph"
)

func newDriveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drive [drive-id]",
		Short: "Display a drive's owner and quota",
		Long: `Display a drive by ID. Without an ID, shows the account's configured
drive_id, or else the default OneDrive of --user (or of the signed-in user).`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDrive,
	}

	addUserFlag(cmd)

	return cmd
}

// driveOutput is the JSON schema for `drive --json`.
type driveOutput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DriveType  string `json:"drive_type"`
	Owner      string `json:"owner,omitempty"`
	WebURL     string `json:"web_url,omitempty"`
	QuotaUsed  int64  `json:"quota_used"`
	QuotaTotal int64  `json:"quota_total"`
}

func runDrive(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	client, tok, err := cc.newGraphClient(ctx)
	if err != nil {
		return err
	}

	driveID := cc.Cfg.DriveID
	if len(args) > 0 {
		driveID = args[0]
	}

	var drive *graph.Drive

	if driveID != "" {
		cc.Logger.Debug("drive", slog.String("drive_id", driveID))

		drive, err = client.Drive(ctx, driveID)
	} else {
		userID, userErr := requireUser(tok, cc.userFlag(cmd))
		if userErr != nil {
			return userErr
		}

		drive, err = client.UserDrive(ctx, userID)
	}

	if err != nil {
		return fmt.Errorf("fetching drive: %w", err)
	}

	w := cmd.OutOrStdout()

	if cc.Flags.JSON {
		return printJSON(w, driveOutput{
			ID:         drive.ID,
			Name:       drive.Name,
			DriveType:  drive.DriveType,
			Owner:      drive.OwnerName,
			WebURL:     drive.WebURL,
			QuotaUsed:  drive.QuotaUsed,
			QuotaTotal: drive.QuotaTotal,
		})
	}

	printDriveText(w, drive)

	return nil
}

func printDriveText(w io.Writer, d *graph.Drive) {
	fmt.Fprintf(w, "Drive: %s (%s)\n", d.Name, d.DriveType)
	fmt.Fprintf(w, "ID:    %s\n", d.ID)

	if d.OwnerName != "" {
		fmt.Fprintf(w, "Owner: %s\n", d.OwnerName)
	}

	if d.QuotaTotal > 0 {
		fmt.Fprintf(w, "Quota: %s / %s\n", formatSize(d.QuotaUsed), formatSize(d.QuotaTotal))
	}
}
