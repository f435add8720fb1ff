package config

import (
	"fmt"
	"io"
)

// redacted replaces secrets in rendered output.
const redacted = "********"

// RenderEffective writes the resolved account as an annotated TOML-like
// summary to w, showing the values in effect after all four override layers.
// Client secrets and passwords are never printed.
func RenderEffective(ra *ResolvedAccount, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration for account %q\n\n", ra.Name)

	renderAccountSection(ew, ra)
	renderAuthSection(ew, ra)
	renderNetworkSection(ew, ra)
	renderLoggingSection(ew, ra)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func renderAccountSection(ew *errWriter, ra *ResolvedAccount) {
	ew.printf("[account.%s]\n", ra.Name)
	ew.printf("  tenant        = %q\n", ra.Tenant)
	ew.printf("  app_id        = %q\n", ra.AppID)

	if ra.ClientSecret != "" {
		ew.printf("  client_secret = %q\n", redacted)
	}

	if ra.Username != "" {
		ew.printf("  username      = %q\n", ra.Username)
	}

	if ra.Password != "" {
		ew.printf("  password      = %q\n", redacted)
	}

	if ra.User != "" {
		ew.printf("  user          = %q\n", ra.User)
	}

	if ra.DriveID != "" {
		ew.printf("  drive_id      = %q\n", ra.DriveID)
	}

	if cred, err := ra.Credential(); err == nil {
		ew.printf("  # grant: %s\n", cred.Grant())
	}

	ew.printf("\n")
}

func renderAuthSection(ew *errWriter, ra *ResolvedAccount) {
	ew.printf("[auth]\n")
	ew.printf("  auth_timeout  = %q\n", ra.AuthTimeout.String())
	ew.printf("  authority_url = %q\n", ra.AuthorityURL)
	ew.printf("\n")
}

func renderNetworkSection(ew *errWriter, ra *ResolvedAccount) {
	ew.printf("[network]\n")
	ew.printf("  connect_timeout     = %q\n", ra.ConnectTimeout.String())
	ew.printf("  data_timeout        = %q\n", ra.DataTimeout.String())
	ew.printf("  requests_per_second = %g\n", ra.RequestsPerSecond)
	ew.printf("  graph_url           = %q\n", ra.GraphURL)

	if ra.UserAgent != "" {
		ew.printf("  user_agent          = %q\n", ra.UserAgent)
	}

	ew.printf("\n")
}

func renderLoggingSection(ew *errWriter, ra *ResolvedAccount) {
	ew.printf("[logging]\n")
	ew.printf("  log_level  = %q\n", ra.LogLevel)
	ew.printf("  log_format = %q\n", ra.LogFormat)
}
