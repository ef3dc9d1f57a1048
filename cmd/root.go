// Package cmd implements the CLI commands for drivemcp.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/drivemcp/drivemcp/internal/auth"
	"github.com/drivemcp/drivemcp/internal/drive"
	"github.com/drivemcp/drivemcp/internal/logging"
)

var (
	configDir       string
	credentialsFile string
	logLevel        string
	version         = "dev"
)

// SetVersion sets the version string used in the CLI and MCP server.
func SetVersion(v string) {
	version = v
}

// newLogger builds the process logger. Everything goes to stderr because
// stdout carries the MCP stdio transport.
func newLogger() *slog.Logger {
	return logging.New(os.Stderr, logging.ParseLevel(logLevel))
}

func newManager() (*auth.Manager, error) {
	return auth.NewManager(configDir, credentialsFile, newLogger())
}

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "drivemcp",
		Short: "Google Drive MCP server",
		Long: `drivemcp exposes Google Drive operations (list, search, create folder,
upload, rename, move, delete, download) as MCP tools for an AI agent,
authenticated via OAuth2 with a persistent token.

Setup:
  1. Download OAuth credentials from https://console.cloud.google.com/apis/credentials
  2. Place the file at ~/.config/drivemcp/credentials.json (or use --credentials)
  3. Authorize: drivemcp auth login
  4. Start the server: drivemcp serve`,
	}

	root.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default: $XDG_CONFIG_HOME/drivemcp)")
	root.PersistentFlags().StringVar(&credentialsFile, "credentials", "", "path to Google OAuth credentials.json (default: <config-dir>/credentials.json)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error (logs go to stderr)")

	root.AddCommand(
		newAuthCmd(),
		newServeCmd(),
	)

	return root
}

// --- auth commands ---

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Google Drive authorization",
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthStatusCmd(),
		newAuthLogoutCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var scopes []string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize Google Drive access via OAuth browser flow",
		Long: `Runs the OAuth2 consent flow and stores the resulting token.

Requires credentials.json from Google Cloud Console at the default
path (~/.config/drivemcp/credentials.json) or via --credentials.

By default, full Drive scopes are requested. Use --scopes to limit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}

			requested := drive.AccountScopes()
			if len(scopes) > 0 {
				requested = scopes
			}

			return mgr.Login(cmd.Context(), requested)
		},
	}

	cmd.Flags().StringSliceVar(&scopes, "scopes", nil, "specific OAuth scopes to request (default: full Drive scopes)")

	return cmd
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authorization status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}

			if !mgr.LoggedIn() {
				fmt.Println("Not logged in. Run 'drivemcp auth login'.")
				return nil
			}

			expiry := mgr.Expiry()
			switch {
			case expiry.IsZero():
				fmt.Println("Logged in (token has no recorded expiry).")
			case expiry.Before(time.Now()):
				fmt.Printf("Logged in; access token expired %s (will refresh on next use).\n", expiry.Format(time.RFC3339))
			default:
				fmt.Printf("Logged in; access token valid until %s.\n", expiry.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}
			if err := mgr.Logout(); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
