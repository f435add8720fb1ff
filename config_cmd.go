package main

import (
	"github.com/spf13/cobra"

	"github.com/tonimelisma/odfetch/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides (secrets redacted)",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

// configShowOutput is the JSON schema for `config show --json`. Secrets are
// reported only as present or absent.
type configShowOutput struct {
	Account           string  `json:"account"`
	Tenant            string  `json:"tenant"`
	AppID             string  `json:"app_id"`
	Grant             string  `json:"grant,omitempty"`
	HasClientSecret   bool    `json:"has_client_secret"`
	Username          string  `json:"username,omitempty"`
	HasPassword       bool    `json:"has_password"`
	User              string  `json:"user,omitempty"`
	DriveID           string  `json:"drive_id,omitempty"`
	AuthorityURL      string  `json:"authority_url"`
	AuthTimeout       string  `json:"auth_timeout"`
	GraphURL          string  `json:"graph_url"`
	ConnectTimeout    string  `json:"connect_timeout"`
	DataTimeout       string  `json:"data_timeout"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	UserAgent         string  `json:"user_agent,omitempty"`
	LogLevel          string  `json:"log_level"`
	LogFormat         string  `json:"log_format"`
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ra := cc.Cfg
	w := cmd.OutOrStdout()

	if !cc.Flags.JSON {
		return config.RenderEffective(ra, w)
	}

	out := configShowOutput{
		Account:           ra.Name,
		Tenant:            ra.Tenant,
		AppID:             ra.AppID,
		HasClientSecret:   ra.ClientSecret != "",
		Username:          ra.Username,
		HasPassword:       ra.Password != "",
		User:              ra.User,
		DriveID:           ra.DriveID,
		AuthorityURL:      ra.AuthorityURL,
		AuthTimeout:       ra.AuthTimeout.String(),
		GraphURL:          ra.GraphURL,
		ConnectTimeout:    ra.ConnectTimeout.String(),
		DataTimeout:       ra.DataTimeout.String(),
		RequestsPerSecond: ra.RequestsPerSecond,
		UserAgent:         ra.UserAgent,
		LogLevel:          ra.LogLevel,
		LogFormat:         ra.LogFormat,
	}

	if cred, err := ra.Credential(); err == nil {
		out.Grant = cred.Grant().String()
	}

	return printJSON(w, out)
}
