package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"git.sr.ht/~jakintosh/rallyauth/internal/config"
	"git.sr.ht/~jakintosh/rallyauth/internal/logging"
)

type rootOptions struct {
	envFiles []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "rallyauth",
		Short: "Session token server for the JustRally app",
		Long: `rallyauth exchanges Firebase ID tokens for first-party RS256 session
tokens and keeps the user and onboarding profile records.

Example usage:
  rallyauth serve                  # run the HTTP server
  rallyauth keygen --out ./keys    # write a signing key pair
  rallyauth user delete <id>       # soft-delete a user`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load (default .env)")

	cmd.AddCommand(
		newServeCmd(opts),
		newKeygenCmd(),
		newUserCmd(opts),
	)
	return cmd
}

// loadConfig reads configuration and builds the logger it asks for.
func (opts *rootOptions) loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.envFiles...)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
