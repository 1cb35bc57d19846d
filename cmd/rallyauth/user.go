package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user records",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Soft-delete a user; their tokens stop working on next use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SoftDelete(cmd.Context(), args[0]); err != nil {
				return err
			}
			logger.Info("user deleted", "user_id", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s\n", args[0])
			return nil
		},
	})
	return cmd
}
