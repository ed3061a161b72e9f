package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusName string

var statusCmd = &cobra.Command{
	Use:   "status <template> [id]",
	Short: "Print whether a container is running",
	Long: `Status prints "running" or "absent". An exited container is removed as a
side effect and reported as absent.`,
	Example: `  conman status jupyter 1`,
	Args:    instanceArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, args, statusName)
		if err != nil {
			return err
		}
		defer s.Close()

		state, err := s.instance.Status(ctx)
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), state)
		return nil
	},
}

// nolint:gochecknoinits // Standard Cobra pattern for command registration
func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusName, "name", "", "explicit container name")
}
