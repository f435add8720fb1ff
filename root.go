package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/odfetch/internal/config"
	"github.com/tonimelisma/odfetch/internal/graph"
)

// version is set at build time via ldflags.
var version = "dev"

// CLIFlags holds the persistent flags shared by every command.
type CLIFlags struct {
	ConfigPath string
	Account    string
	JSON       bool
	Verbose    bool
	Quiet      bool
}

// CLIContext is built once per invocation by the root pre-run and carried in
// the command context. Cfg is nil for commands that resolve configuration
// themselves.
type CLIContext struct {
	Flags  CLIFlags
	Env    config.EnvOverrides
	Cfg    *config.ResolvedAccount
	Logger *slog.Logger
}

type cliContextKey struct{}

// mustCLIContext returns the CLIContext installed by the root pre-run.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("odfetch: command context has no CLIContext")
	}

	return cc
}

// skipConfigCommands resolve configuration themselves: `token` may act on
// every account, and `token inspect` reads a file without any account.
var skipConfigCommands = map[string]bool{
	"odfetch token":         true,
	"odfetch token inspect": true,
}

// newRootCmd builds the root command with all subcommands registered.
func newRootCmd() *cobra.Command {
	var flags CLIFlags

	cmd := &cobra.Command{
		Use:   "odfetch",
		Short: "Fetch files shared with you on OneDrive for Business",
		Long: `odfetch acquires Microsoft Graph tokens non-interactively (client secret or
service-account password) and finds, lists, and downloads items shared with
the account.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupCLIContext(cmd, flags)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flags.Account, "account", "", "account section to use from the config file")
	cmd.PersistentFlags().BoolVar(&flags.JSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newDriveCmd())
	cmd.AddCommand(newSharedCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// setupCLIContext resolves configuration (unless the command does that
// itself), builds the logger, and installs a signal-aware context.
func setupCLIContext(cmd *cobra.Command, flags CLIFlags) error {
	cc := &CLIContext{Flags: flags}
	cc.Logger = buildLogger(nil, flags)
	cc.Env = config.ReadEnvOverrides(cc.Logger)

	if !skipConfigCommands[cmd.CommandPath()] {
		resolved, err := config.Resolve(cc.Env, cc.cliOverrides())
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		cc.Cfg = resolved
		cc.Logger = buildLogger(resolved, flags)
	}

	ctx := shutdownContext(cmd.Context(), cc.Logger)
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

func (cc *CLIContext) cliOverrides() config.CLIOverrides {
	return config.CLIOverrides{ConfigPath: cc.Flags.ConfigPath, Account: cc.Flags.Account}
}

// buildLogger creates the logger for a run. The config log level is the
// baseline; --verbose and --quiet override it. Logs always go to stderr so
// stdout stays clean for --json output.
func buildLogger(cfg *config.ResolvedAccount, flags CLIFlags) *slog.Logger {
	level, format := "info", "auto"
	if cfg != nil {
		level, format = cfg.LogLevel, cfg.LogFormat
	}

	terminal := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	return newLogger(os.Stderr, level, format, terminal, flags)
}

// newLogger picks the handler: "auto" means text on a terminal, JSON otherwise.
func newLogger(w io.Writer, level, format string, terminal bool, flags CLIFlags) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel(level, flags)}

	if format == "json" || (format == "auto" && !terminal) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

func logLevel(level string, flags CLIFlags) slog.Level {
	switch {
	case flags.Verbose:
		return slog.LevelDebug
	case flags.Quiet:
		return slog.LevelError
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// httpClient returns a client whose dial is bounded by connect_timeout and
// whose whole exchange, body included, is bounded by data_timeout.
func httpClient(cfg *config.ResolvedAccount) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext
	transport.TLSHandshakeTimeout = cfg.ConnectTimeout

	return &http.Client{Transport: transport, Timeout: cfg.DataTimeout}
}

// newAcquirer builds a token acquirer for cfg's authority and timeout.
func newAcquirer(cfg *config.ResolvedAccount, logger *slog.Logger) *graph.Acquirer {
	return graph.NewAcquirer(httpClient(cfg), logger).
		WithAuthority(cfg.AuthorityURL).
		WithTimeout(cfg.AuthTimeout)
}

// graphBurst is the limiter burst for a configured request rate.
func graphBurst(rps float64) int {
	return max(1, int(rps*graph.DefaultBurst/graph.DefaultRequestsPerSecond))
}

// newGraphClient acquires a fresh token for the resolved account and returns
// a Graph client using it. Each invocation acquires its own token.
func (cc *CLIContext) newGraphClient(ctx context.Context) (*graph.Client, *graph.Token, error) {
	cred, err := cc.Cfg.Credential()
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()

	tok, err := newAcquirer(cc.Cfg, cc.Logger).Acquire(ctx, cred)
	if err != nil {
		return nil, nil, err
	}

	cc.Logger.Debug("token acquired", slog.Any("token", tok), slog.Duration("elapsed", time.Since(start)))

	client := graph.NewClient(cc.Cfg.GraphURL, httpClient(cc.Cfg), graph.StaticTokenSource(tok), cc.Logger, cc.Cfg.UserAgent).
		WithRateLimit(cc.Cfg.RequestsPerSecond, graphBurst(cc.Cfg.RequestsPerSecond))

	return client, tok, nil
}

// userFlag returns --user when set, else the account's configured user.
func (cc *CLIContext) userFlag(cmd *cobra.Command) string {
	if cmd.Flags().Changed("user") {
		user, _ := cmd.Flags().GetString("user")
		return user
	}

	return cc.Cfg.User
}

func addUserFlag(cmd *cobra.Command) {
	cmd.Flags().String("user", "", "act on this user's drive (UPN or object ID); required for app-only tokens")
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
