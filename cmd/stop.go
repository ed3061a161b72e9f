package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zorak1103/conman/internal/notification"
)

var stopName string

var stopCmd = &cobra.Command{
	Use:   "stop <template> [id]",
	Short: "Stop and remove a container",
	Long: `Stop stops the container and removes it, so its name can be reused.

When nothing is running under the name, lifecycle.stop_policy decides the
outcome: "strict" (default) fails, "lenient" does nothing.`,
	Example: `  # Stop instance 1 of the jupyter template
  conman stop jupyter 1

  # Stop by explicit name
  conman stop jupyter --name my-notebook`,
	Args: instanceArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, args, stopName)
		if err != nil {
			return err
		}
		defer s.Close()

		stopped, err := s.instance.Stop(ctx)
		if err != nil {
			return err
		}

		if !stopped {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ℹ️  %s is not running\n", s.instance.Name())
			return nil
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✅ Stopped %s\n", s.instance.Name())
		s.notify(notification.Event{Action: notification.ActionStopped, Container: s.instance.Name()})
		return nil
	},
}

// nolint:gochecknoinits // Standard Cobra pattern for command registration
func init() {
	rootCmd.AddCommand(stopCmd)
	stopCmd.Flags().StringVar(&stopName, "name", "", "explicit container name")
}
