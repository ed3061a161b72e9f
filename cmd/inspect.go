package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var inspectName string

var inspectCmd = &cobra.Command{
	Use:   "inspect <template> [id]",
	Short: "Print Docker's inspection data for a running container",
	Long: `Inspect prints the engine-native inspection document as JSON, including
network settings, mounts and port bindings.`,
	Example: `  conman inspect jupyter 1

  # Port bindings only
  conman inspect jupyter 1 | jq '.NetworkSettings.Ports'`,
	Args: instanceArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, args, inspectName)
		if err != nil {
			return err
		}
		defer s.Close()

		info, err := s.instance.Inspect(ctx)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode inspection data for %s: %w", s.instance.Name(), err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

// nolint:gochecknoinits // Standard Cobra pattern for command registration
func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectName, "name", "", "explicit container name")
}
