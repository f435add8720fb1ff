package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/odfetch/internal/config"
	"github.com/tonimelisma/odfetch/internal/graph"
	"github.com/tonimelisma/odfetch/internal/tokenfile"
)

// errAppOnlyNeedsUser is returned when an app-only token is used without a
// user to act on; such tokens have no /me.
var errAppOnlyNeedsUser = errors.New("app-only token has no signed-in user; pass --user or set user in the account")

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Acquire an access token and describe it",
		Long: `Acquire a Microsoft Graph access token for the selected account using its
client secret (client credentials grant) or username and password (password
grant), then print who the token is for and what it may do.

A fresh token is acquired on every run; nothing is cached.`,
		Args: cobra.NoArgs,
		RunE: runToken,
	}

	cmd.Flags().Bool("all", false, "acquire a token for every configured account")
	cmd.Flags().StringP("output", "o", "", "write the token to this file (0600) for other tools")
	cmd.Flags().Bool("raw", false, "print only the access token to stdout")
	cmd.MarkFlagsMutuallyExclusive("all", "output")
	cmd.MarkFlagsMutuallyExclusive("all", "raw")

	cmd.AddCommand(newTokenInspectCmd())

	return cmd
}

func newTokenInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Describe a token file written by 'token --output'",
		Args:  cobra.ExactArgs(1),
		RunE:  runTokenInspect,
	}
}

func newWhoamiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Display the user the account acts as",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}

	addUserFlag(cmd)

	return cmd
}

// tokenOutput is the JSON schema for `token --json` and `token inspect --json`.
type tokenOutput struct {
	Account     string   `json:"account,omitempty"`
	Grant       string   `json:"grant"`
	Tenant      string   `json:"tenant"`
	AppID       string   `json:"app_id"`
	Identity    string   `json:"identity,omitempty"`
	AppOnly     bool     `json:"app_only"`
	Permissions []string `json:"permissions"`
	ExpiresAt   string   `json:"expires_at,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func newTokenOutput(account string, cred graph.Credential, tok *graph.Token) tokenOutput {
	out := tokenOutput{
		Account:     account,
		Grant:       cred.Grant().String(),
		Tenant:      cred.Tenant(),
		AppID:       cred.AppID(),
		Permissions: []string{},
	}

	if tok != nil {
		out.Identity = tok.Claims.UserIdentity()
		out.AppOnly = tok.Claims.AppOnly()
		out.ExpiresAt = formatJSONTime(tok.Expiry)

		if perms := tok.Claims.Permissions(); perms != nil {
			out.Permissions = perms
		}
	}

	return out
}

func runToken(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if all, _ := cmd.Flags().GetBool("all"); all {
		return runTokenAll(cmd, cc)
	}

	resolved, err := config.Resolve(cc.Env, cc.cliOverrides())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cc.Cfg = resolved
	cc.Logger = buildLogger(resolved, cc.Flags)

	cred, err := resolved.Credential()
	if err != nil {
		return err
	}

	tok, err := newAcquirer(resolved, cc.Logger).Acquire(cmd.Context(), cred)
	if err != nil {
		return err
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		if err := tokenfile.Save(output, tokenfile.New(tok, cred, resolved.Name, time.Now())); err != nil {
			return err
		}

		cc.Logger.Info("token exported", slog.String("path", output))
		cc.Statusf("Token written to %s\n", output)
	}

	w := cmd.OutOrStdout()

	if raw, _ := cmd.Flags().GetBool("raw"); raw {
		_, err := fmt.Fprintln(w, tok.AccessToken)
		return err
	}

	out := newTokenOutput(resolved.Name, cred, tok)

	if cc.Flags.JSON {
		return printJSON(w, out)
	}

	printTokenText(w, out, tok.Expiry)

	return nil
}

// runTokenAll acquires tokens for every configured account concurrently.
// Every account is reported; the command fails if any acquisition failed.
func runTokenAll(cmd *cobra.Command, cc *CLIContext) error {
	accounts, err := config.ResolveAll(cc.Env, cc.cliOverrides())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Global settings are shared, so any account's view of them will do.
	cc.Logger = buildLogger(accounts[0], cc.Flags)

	creds := make([]graph.Credential, len(accounts))
	for i, acct := range accounts {
		if creds[i], err = acct.Credential(); err != nil {
			return err
		}
	}

	results := newAcquirer(accounts[0], cc.Logger).AcquireEach(cmd.Context(), creds)

	outputs := make([]tokenOutput, len(results))
	failed := 0

	for i, r := range results {
		outputs[i] = newTokenOutput(accounts[i].Name, r.Credential, r.Token)

		if r.Err != nil {
			outputs[i].Error = r.Err.Error()
			failed++
		}
	}

	w := cmd.OutOrStdout()

	if cc.Flags.JSON {
		if err := printJSON(w, outputs); err != nil {
			return err
		}
	} else {
		printTokenTable(w, outputs)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d accounts failed to acquire a token", failed, len(results))
	}

	return nil
}

func runTokenInspect(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	f, err := tokenfile.Load(args[0])
	if err != nil {
		return err
	}

	out := tokenOutput{
		Account:     f.Meta.Account,
		Grant:       f.Meta.Grant,
		Tenant:      f.Meta.Tenant,
		AppID:       f.Meta.AppID,
		Permissions: []string{},
		ExpiresAt:   formatJSONTime(f.Token.Expiry),
	}

	claims, err := f.Claims()
	switch {
	case errors.Is(err, graph.ErrOpaqueToken):
		cc.Logger.Debug("token is not a JWT; claims unavailable", slog.String("path", args[0]))
	case err != nil:
		return err
	default:
		out.Identity = claims.UserIdentity()
		out.AppOnly = claims.AppOnly()

		if perms := claims.Permissions(); perms != nil {
			out.Permissions = perms
		}
	}

	w := cmd.OutOrStdout()

	if cc.Flags.JSON {
		return printJSON(w, out)
	}

	printTokenText(w, out, f.Token.Expiry)

	return nil
}

func printTokenText(w io.Writer, out tokenOutput, expiry time.Time) {
	if out.Account != "" {
		fmt.Fprintf(w, "Account:     %s\n", out.Account)
	}

	fmt.Fprintf(w, "Grant:       %s\n", out.Grant)
	fmt.Fprintf(w, "Tenant:      %s\n", out.Tenant)
	fmt.Fprintf(w, "App ID:      %s\n", out.AppID)
	fmt.Fprintf(w, "Identity:    %s\n", identityLabel(out))
	fmt.Fprintf(w, "Permissions: %s\n", permissionsLabel(out.Permissions))
	fmt.Fprintf(w, "Expires:     %s\n", formatExpiry(expiry, time.Now()))
}

func printTokenTable(w io.Writer, outputs []tokenOutput) {
	headers := []string{"ACCOUNT", "GRANT", "IDENTITY", "EXPIRES", "STATUS"}
	rows := make([][]string, 0, len(outputs))

	for _, out := range outputs {
		status := "ok"
		if out.Error != "" {
			status = out.Error
		}

		rows = append(rows, []string{out.Account, out.Grant, identityLabel(out), out.ExpiresAt, status})
	}

	printTable(w, headers, rows)
}

func identityLabel(out tokenOutput) string {
	switch {
	case out.Error != "":
		return "-"
	case out.AppOnly:
		return "application (app-only)"
	case out.Identity != "":
		return out.Identity
	default:
		return "unknown"
	}
}

func permissionsLabel(perms []string) string {
	if len(perms) == 0 {
		return "(none reported)"
	}

	return strings.Join(perms, " ")
}

// whoamiOutput is the JSON schema for `whoami --json`.
type whoamiOutput struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	UPN         string `json:"upn,omitempty"`
	AppOnly     bool   `json:"app_only"`
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	client, tok, err := cc.newGraphClient(ctx)
	if err != nil {
		return err
	}

	userID, err := requireUser(tok, cc.userFlag(cmd))
	if err != nil {
		return err
	}

	user, err := client.User(ctx, userID)
	if err != nil {
		return fmt.Errorf("fetching user profile: %w", err)
	}

	w := cmd.OutOrStdout()

	if cc.Flags.JSON {
		return printJSON(w, whoamiOutput{
			ID:          user.ID,
			DisplayName: user.DisplayName,
			Email:       user.Email,
			UPN:         user.UPN,
			AppOnly:     tok.Claims.AppOnly(),
		})
	}

	fmt.Fprintf(w, "User:  %s (%s)\n", user.DisplayName, user.Email)
	fmt.Fprintf(w, "ID:    %s\n", user.ID)

	if tok.Claims.AppOnly() {
		fmt.Fprintf(w, "Via:   application %s (app-only)\n", tok.Claims.Application())
	}

	return nil
}

// requireUser rejects an empty user for client-credentials tokens, which
// are always app-only and cannot use /me.
func requireUser(tok *graph.Token, userID string) (string, error) {
	if userID == "" && tok.Grant == graph.GrantClientCredentials {
		return "", errAppOnlyNeedsUser
	}

	return userID, nil
}
